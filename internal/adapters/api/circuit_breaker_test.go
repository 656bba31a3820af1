package api_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/api"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func failingCall() error {
	return shared.NewHTTPError(500, "upstream exploded")
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(3, time.Minute, clock, nil)

	// Act
	for i := 0; i < 3; i++ {
		_ = breaker.Call(failingCall)
	}

	// Assert
	assert.Equal(t, api.CircuitOpen, breaker.State())

	invoked := false
	err := breaker.Call(func() error {
		invoked = true
		return nil
	})
	assert.False(t, invoked, "open breaker must not run calls")
	assert.Equal(t, shared.ErrCircuitOpen, shared.CodeOf(err))
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(3, time.Minute, clock, nil)

	// Act
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)
	require.NoError(t, breaker.Call(func() error { return nil }))
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)

	// Assert
	assert.Equal(t, api.CircuitClosed, breaker.State())
	assert.Equal(t, 2, breaker.FailureCount())
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)
	require.Equal(t, api.CircuitOpen, breaker.State())

	// Act
	clock.Advance(time.Minute + time.Second)
	err := breaker.Call(func() error { return nil })

	// Assert
	require.NoError(t, err)
	assert.Equal(t, api.CircuitClosed, breaker.State())
	assert.Equal(t, 0, breaker.FailureCount())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)

	// Act
	clock.Advance(time.Minute + time.Second)
	_ = breaker.Call(failingCall)

	// Assert
	assert.Equal(t, api.CircuitOpen, breaker.State())

	err := breaker.Call(func() error { return nil })
	assert.Equal(t, shared.ErrCircuitOpen, shared.CodeOf(err))
}

func TestCircuitBreaker_OnlyOneProbeWhileHalfOpen(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)
	clock.Advance(time.Minute + time.Second)

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = breaker.Call(func() error {
			<-release
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return breaker.State() == api.CircuitHalfOpen
	}, time.Second, time.Millisecond)

	// Act: a second call while the probe is in flight.
	err := breaker.Call(func() error { return nil })

	// Assert
	assert.Equal(t, shared.ErrCircuitOpen, shared.CodeOf(err))

	close(release)
	wg.Wait()
	assert.Equal(t, api.CircuitClosed, breaker.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)

	// Act
	for i := 0; i < 10; i++ {
		_ = breaker.Call(func() error {
			return shared.NewHTTPError(404, "no such ship")
		})
	}

	// Assert: the request was judged, not the remote's health.
	assert.Equal(t, api.CircuitClosed, breaker.State())
	assert.Equal(t, 0, breaker.FailureCount())
}

func TestCircuitBreaker_CancellationsDoNotTrip(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)

	// Act
	for i := 0; i < 10; i++ {
		_ = breaker.Call(func() error {
			return shared.NewDomainError(shared.ErrOperationCanceled, "caller gave up")
		})
	}

	// Assert
	assert.Equal(t, api.CircuitClosed, breaker.State())
	assert.Equal(t, 0, breaker.FailureCount())
}

func TestCircuitBreaker_ResetClosesImmediately(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, nil)
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)
	require.Equal(t, api.CircuitOpen, breaker.State())

	// Act
	breaker.Reset()

	// Assert
	assert.Equal(t, api.CircuitClosed, breaker.State())

	invoked := false
	require.NoError(t, breaker.Call(func() error {
		invoked = true
		return nil
	}))
	assert.True(t, invoked)
}

func TestCircuitBreaker_NotifiesStateChanges(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Time{})
	var states []api.CircuitState
	breaker := api.NewCircuitBreaker(2, time.Minute, clock, func(s api.CircuitState) {
		states = append(states, s)
	})

	// Act
	_ = breaker.Call(failingCall)
	_ = breaker.Call(failingCall)
	clock.Advance(time.Minute + time.Second)
	require.NoError(t, breaker.Call(func() error { return nil }))

	// Assert: open, half-open probe, closed.
	assert.Equal(t, []api.CircuitState{api.CircuitOpen, api.CircuitHalfOpen, api.CircuitClosed}, states)
}
