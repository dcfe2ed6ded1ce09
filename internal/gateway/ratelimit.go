package gateway

import (
	"context"

	"golang.org/x/time/rate"
)

// limiter throttles outgoing requests. A nil limiter never blocks.
type limiter struct {
	rl *rate.Limiter
}

func newLimiter(perMinute, burst int) *limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return &limiter{rl: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)}
}

func (l *limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
