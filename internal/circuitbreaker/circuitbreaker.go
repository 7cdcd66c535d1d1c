// Package circuitbreaker wraps gobreaker with the service's defaults and
// error codes.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/omniroute/internal/apperror"
)

// Config configures a breaker.
type Config struct {
	Name             string
	MaxRequests      uint32        // allowed through while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open -> half-open
	FailureThreshold uint32        // consecutive failures that open the circuit
	OnStateChange    func(name string, from, to gobreaker.State)
	IsSuccessful     func(err error) bool
}

// DefaultConfig returns the defaults used by network adapters.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		IsSuccessful:     CountsAsSuccess,
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  cfg.IsSuccessful,
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. A rejected call returns CIRCUIT_OPEN.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithContext(c.cb.Name()),
			apperror.WithCause(err))
	}
	return res, err
}

func (c *CircuitBreaker[T]) Name() string { return c.cb.Name() }

func (c *CircuitBreaker[T]) State() gobreaker.State { return c.cb.State() }

// Healthy reports whether calls are currently let through.
func (c *CircuitBreaker[T]) Healthy() bool {
	return c.cb.State() != gobreaker.StateOpen
}

// CountsAsSuccess treats answers that describe the request (bad token,
// no liquidity, amount too low) as successful round trips. Only transport
// and server failures count toward opening the circuit.
func CountsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	switch apperror.GetCode(err) {
	case apperror.CodeProviderNoLiquidity, apperror.CodeProviderInvalidToken,
		apperror.CodeAmountTooLow, apperror.CodeAmountLessThanFee,
		apperror.CodeNoRoute, apperror.CodeInvalidRequest:
		return true
	}
	return false
}
