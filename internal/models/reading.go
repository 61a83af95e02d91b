package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status enumerates machine lifecycle states.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusShutdown  Status = "SHUTDOWN"
)

// TimestampLayout is the wire format for reading timestamps: ISO-8601 with the
// local UTC offset and up to microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

// AllStatuses returns the full status alphabet in declaration order.
func AllStatuses() []Status {
	return []Status{StatusStarted, StatusRunning, StatusPaused, StatusCompleted, StatusShutdown}
}

// DefaultTransitions returns the directed transition graph between statuses.
func DefaultTransitions() map[Status][]Status {
	return map[Status][]Status{
		StatusStarted:   {StatusRunning, StatusShutdown},
		StatusRunning:   {StatusPaused, StatusCompleted, StatusShutdown},
		StatusPaused:    {StatusRunning, StatusShutdown},
		StatusCompleted: {StatusStarted, StatusShutdown},
		StatusShutdown:  {StatusStarted},
	}
}

// Valid reports whether s is a member of the status alphabet.
func (s Status) Valid() bool {
	switch s {
	case StatusStarted, StatusRunning, StatusPaused, StatusCompleted, StatusShutdown:
		return true
	}
	return false
}

// ValidTransition reports whether moving from -> to is allowed under the given
// table. Staying in the current status is always allowed.
func ValidTransition(table map[Status][]Status, from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reading is one timestamped telemetry sample emitted by the machine.
type Reading struct {
	Timestamp   time.Time
	Temperature float64
	Speed       float64
	Status      Status
}

type readingWire struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Speed       float64 `json:"speed"`
	Status      string  `json:"status"`
}

// MarshalJSON encodes the reading with its timestamp in TimestampLayout.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingWire{
		Timestamp:   r.Timestamp.Format(TimestampLayout),
		Temperature: r.Temperature,
		Speed:       r.Speed,
		Status:      string(r.Status),
	})
}

// UnmarshalJSON decodes a reading, accepting RFC3339 timestamps as a fallback.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var wire readingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	ts, err := ParseTimestamp(wire.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	r.Temperature = wire.Temperature
	r.Speed = wire.Speed
	r.Status = Status(wire.Status)
	return nil
}

// ParseTimestamp parses a reading or cursor timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}
