package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang-stock-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"A", "B"}, []string{"B", "C", "D"}, []string{"", "E", "A"})
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, got)
}

func TestUniqueStrings_Empty(t *testing.T) {
	assert.Nil(t, UniqueStrings(nil, []string{}))
}

func TestGoSafe_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	var wg sync.WaitGroup
	wg.Add(1)
	GoSafe(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Recovered from panic").Len() == 1
	}, time.Second, 5*time.Millisecond)
	entry := logs.FilterMessage("Recovered from panic").All()[0]
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
	assert.NotEmpty(t, entry.ContextMap()["stack"])
}

func TestShouldContinue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, ShouldContinue(ctx, logger.NewNop()))
	cancel()
	assert.False(t, ShouldContinue(ctx, logger.NewNop()))
}

func TestLoadLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
	assert.Equal(t, time.UTC, LoadLocation(""))
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2024, 3, 5, 17, 42, 10, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), TruncateToDay(in))
}
