package api

import (
	"sync"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// CircuitState is the breaker position.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

const (
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 60 * time.Second
)

var errBreakerOpen = shared.NewDomainError(shared.ErrCircuitOpen,
	"circuit breaker open: remote API marked unavailable")

// CircuitBreaker fails fast once the remote API looks down. One failure is
// one whole call sequence (initial attempt plus retries) ending in error.
// Client errors other than 429 never count: they mean the request was bad,
// not that the server is sick. Cancellations don't count either.
//
// Closed: calls pass through, consecutive failures are counted.
// Open: calls are rejected immediately, without consuming a limiter token
// or opening a socket.
// Half-open: entered once openTimeout has elapsed. Exactly one probe call
// passes; success closes the breaker, failure reopens it. Other calls during
// the probe are rejected as if the breaker were open.
type CircuitBreaker struct {
	maxFailures   int
	openTimeout   time.Duration
	clock         shared.Clock
	onStateChange func(CircuitState)

	mu           sync.Mutex
	state        CircuitState
	failureCount int
	openedAt     time.Time
	probing      bool
}

// NewCircuitBreaker creates a closed breaker. Non-positive maxFailures and
// openTimeout fall back to the defaults (5 failures, 60s). onStateChange,
// when non-nil, is invoked on every transition; it runs under the breaker
// lock and must not call back into the breaker.
func NewCircuitBreaker(maxFailures int, openTimeout time.Duration, clock shared.Clock, onStateChange func(CircuitState)) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenTimeout
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &CircuitBreaker{
		maxFailures:   maxFailures,
		openTimeout:   openTimeout,
		clock:         clock,
		onStateChange: onStateChange,
	}
}

// Call runs fn under the breaker. fn's error is returned unchanged; the
// breaker only inspects it to update its own state.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.clock.Now().Sub(cb.openedAt) < cb.openTimeout {
			return errBreakerOpen
		}
		cb.transition(CircuitHalfOpen)
		cb.probing = true
		return nil
	case CircuitHalfOpen:
		if cb.probing {
			return errBreakerOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := countsAsBreakerFailure(err)

	switch cb.state {
	case CircuitHalfOpen:
		cb.probing = false
		if failed {
			cb.trip()
			return
		}
		cb.failureCount = 0
		cb.transition(CircuitClosed)
	case CircuitClosed:
		if !failed {
			cb.failureCount = 0
			return
		}
		cb.failureCount++
		if cb.failureCount >= cb.maxFailures {
			cb.trip()
		}
	default:
		// Tripped by a concurrent call while this one was in flight; the
		// late result carries no new information.
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.clock.Now()
	cb.transition(CircuitOpen)
}

func (cb *CircuitBreaker) transition(state CircuitState) {
	if cb.state == state {
		return
	}
	cb.state = state
	if cb.onStateChange != nil {
		cb.onStateChange(state)
	}
}

// countsAsBreakerFailure decides whether an error indicates remote trouble.
// 4xx responses mean the server answered and judged the request; a canceled
// call says nothing about the server at all.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	switch shared.CodeOf(err) {
	case shared.ErrHTTP4xx, shared.ErrOperationCanceled:
		return false
	}
	return true
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Reset forces the breaker closed and clears the failure count. Exposed for
// the operator reset endpoint.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.probing = false
	cb.transition(CircuitClosed)
}
