package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// TokenLimiter bounds the number of LLM tokens spent per minute.
type TokenLimiter struct {
	limiter *rate.Limiter
	perMin  int
}

// NewTokenLimiter returns a limiter refilling tokensPerMinute every minute.
// A non-positive budget yields an unlimited limiter.
func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	if tokensPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &TokenLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
		perMin:  tokensPerMinute,
	}
}

// Wait blocks until n tokens are available or ctx is done.
func (t *TokenLimiter) Wait(ctx context.Context, n int) error {
	if n <= 0 || t.perMin == 0 {
		return nil
	}
	if n > t.perMin {
		return fmt.Errorf("requested %d tokens exceeds per-minute budget %d", n, t.perMin)
	}
	return t.limiter.WaitN(ctx, n)
}

// GetRemaining returns the tokens currently available, or -1 when unlimited.
func (t *TokenLimiter) GetRemaining() int {
	if t.perMin == 0 {
		return -1
	}
	return int(t.limiter.Tokens())
}
