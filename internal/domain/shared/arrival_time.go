package shared

import (
	"fmt"
	"strings"
	"time"
)

// ArrivalTime wraps the ISO8601 arrival timestamp the remote API reports for
// a ship in transit.
type ArrivalTime struct {
	timestamp string
}

// NewArrivalTime validates an ISO8601 (RFC3339) timestamp.
func NewArrivalTime(timestamp string) (*ArrivalTime, error) {
	if timestamp == "" {
		return nil, fmt.Errorf("arrival time timestamp cannot be empty")
	}

	if _, err := time.Parse(time.RFC3339, normalizeTimestamp(timestamp)); err != nil {
		return nil, fmt.Errorf("invalid arrival time format: %w", err)
	}

	return &ArrivalTime{timestamp: timestamp}, nil
}

// Time returns the parsed arrival instant, or the zero time when the stored
// timestamp is unparseable (NewArrivalTime prevents that).
func (a *ArrivalTime) Time() time.Time {
	t, err := time.Parse(time.RFC3339, normalizeTimestamp(a.timestamp))
	if err != nil {
		return time.Time{}
	}
	return t
}

// WaitTimeFrom returns the seconds between now and arrival, minimum 0.
func (a *ArrivalTime) WaitTimeFrom(now time.Time) int {
	waitSeconds := a.Time().Sub(now).Seconds()
	if waitSeconds < 0 {
		return 0
	}
	return int(waitSeconds)
}

// CalculateWaitTime returns the seconds until arrival relative to the system
// clock. Prefer WaitTimeFrom with an injected Clock in anything testable.
func (a *ArrivalTime) CalculateWaitTime() int {
	return a.WaitTimeFrom(time.Now().UTC())
}

// HasArrived checks if the arrival instant is in the past.
func (a *ArrivalTime) HasArrived() bool {
	return a.CalculateWaitTime() == 0
}

// Timestamp returns the raw ISO8601 string.
func (a *ArrivalTime) Timestamp() string {
	return a.timestamp
}

func (a *ArrivalTime) String() string {
	return fmt.Sprintf("ArrivalTime(%s)", a.timestamp)
}

// normalizeTimestamp accepts both "Z" and "+00:00" UTC suffixes.
func normalizeTimestamp(timestamp string) string {
	return strings.Replace(timestamp, "Z", "+00:00", 1)
}
