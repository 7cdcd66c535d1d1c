// Package ratelimit throttles outbound calls to third-party providers.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fd1az/omniroute/internal/apperror"
)

// Limiter is a token bucket shared by every request to one provider.
// A nil *Limiter never blocks.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New allows rps requests per second with the given burst. A non-positive
// rps disables limiting.
func New(name string, rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{name: name, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// PerMinute allows n requests per minute with a burst of a tenth of n.
func PerMinute(name string, n int) *Limiter {
	return New(name, float64(n)/60.0, n/10)
}

// Wait blocks until a token is available. When ctx ends first the error is
// tagged as a provider rate limit so callers classify it like a 429.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.New(apperror.CodeProviderRateLimited,
			apperror.WithContext(fmt.Sprintf("%s: local rate limit", l.name)),
			apperror.WithCause(err))
	}
	return nil
}

// Allow reports whether a request may go out now, consuming a token if so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Name is the provider the limiter guards.
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}
