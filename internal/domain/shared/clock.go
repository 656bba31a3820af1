package shared

import "time"

// Clock abstracts time so transit waits, retry backoff, and iteration pacing
// can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock implements Clock using system time.
type RealClock struct{}

// Now returns the current system time in UTC.
func (r *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep blocks for the given duration.
func (r *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// NewRealClock creates a RealClock.
func NewRealClock() Clock {
	return &RealClock{}
}

// MockClock implements Clock with controllable time. Sleep advances the
// clock instantly, so tests over sleep-heavy code run in microseconds.
type MockClock struct {
	CurrentTime time.Time
}

// NewMockClock creates a MockClock starting at startTime, or at the current
// time when startTime is zero.
func NewMockClock(startTime time.Time) *MockClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &MockClock{CurrentTime: startTime}
}

func (m *MockClock) Now() time.Time {
	return m.CurrentTime
}

func (m *MockClock) Sleep(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// Advance moves the clock forward without a Sleep call site.
func (m *MockClock) Advance(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// SetTime pins the clock to a specific instant.
func (m *MockClock) SetTime(t time.Time) {
	m.CurrentTime = t
}
