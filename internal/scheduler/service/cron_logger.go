package service

import (
	"golang-stock-tracker/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NewCronLogger adapts log to cron.Logger. Cron's info lines, one per wake-up and
// job start, go out at debug level.
func NewCronLogger(log *logger.Logger) cron.Logger {
	return cronLogger{log: log.Sugar()}
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
