// Package circuitbreaker stops calling a failing dependency for a while.
//
// Failures are counted in a sliding window. Once the window holds
// maxFailures of them the breaker opens and every call fails fast with
// ErrOpen. After the open timeout one trial call is let through (half-open):
// success closes the breaker, failure opens it again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const DefaultWindow = 60 * time.Second

type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	timeout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
	trial    bool
}

type Option func(*CircuitBreaker)

func WithWindow(window time.Duration) Option {
	return func(cb *CircuitBreaker) { cb.window = window }
}

// WithNow replaces the time source, mainly for tests.
func WithNow(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

func New(maxFailures int, timeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		window:      DefaultWindow,
		timeout:     timeout,
		now:         time.Now,
		state:       StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn unless the breaker is open. The lock is not held while fn
// runs, so slow calls do not serialize callers. A call abandoned by its
// caller (context.Canceled) is neither a success nor a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}
	err := fn()
	if errors.Is(err, context.Canceled) {
		cb.release()
		return err
	}
	cb.record(err)
	return err
}

// release frees the half-open trial slot without changing state.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trial = false
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.trial = true
		return true
	case StateHalfOpen:
		// one trial call at a time
		if cb.trial {
			return false
		}
		cb.trial = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	if err == nil {
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.trial = false
			cb.failures = cb.failures[:0]
		}
		cb.cleanOldFailures(now)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.cleanOldFailures(now)
	if cb.state == StateHalfOpen || len(cb.failures) >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = now
		cb.trial = false
	}
}

func (cb *CircuitBreaker) cleanOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	cb.failures = cb.failures[i:]
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.timeout {
		return StateHalfOpen
	}
	return cb.state
}
