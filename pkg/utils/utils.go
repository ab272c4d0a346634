package utils

import (
	"context"
	"runtime/debug"

	"golang-stock-tracker/pkg/logger"
)

// GoSafe runs fn in a goroutine and recovers any panic so a single bad
// item cannot take the process down.
func GoSafe(fn func()) {
	go RunSafe(fn)
}

// RunSafe runs fn in the current goroutine and recovers any panic.
func RunSafe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("Recovered from panic",
				logger.Field("panic", r),
				logger.StringField("stack", string(debug.Stack())))
		}
	}()
	fn()
}

// ShouldContinue reports whether ctx is still live, logging when it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Warn("Context done, stopping work", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}

// ToPointer returns a pointer to v.
func ToPointer[T any](v T) *T {
	return &v
}

// UniqueStrings returns values with duplicates and empty strings removed,
// keeping first-seen order.
func UniqueStrings(values ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range values {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
