package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// State represents the circuit breaker state.
type State = gobreaker.State

const (
	Closed   = gobreaker.StateClosed   // Normal operation.
	Open     = gobreaker.StateOpen     // Failing, requests are rejected immediately.
	HalfOpen = gobreaker.StateHalfOpen // Testing recovery, one request allowed through.
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker guards calls to an upstream dependency.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a Breaker that opens after maxFailures consecutive errors
// and attempts recovery after resetTimeout. Context cancellation is not
// counted as a failure.
func New(name string, maxFailures int, resetTimeout time.Duration, logger *slog.Logger) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	})
	return &Breaker{cb: cb}
}

// Execute runs fn through the circuit breaker. If the circuit is open,
// ErrCircuitOpen is returned without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// GetState returns the current state of the breaker.
func (b *Breaker) GetState() State {
	return b.cb.State()
}
