// Package mqtt provides the reading side channel with an abstraction for
// testing: every generated reading can be mirrored to a broker topic for
// external observers without touching the file-based pipeline.
package mqtt

import (
	"encoding/json"

	"github.com/machinestack/machine-monitor/internal/models"
)

// Publisher mirrors readings to an observability channel.
type Publisher interface {
	// Publish sends one reading. Errors should be logged by the caller, never
	// treated as fatal to the generator loop.
	Publish(reading models.Reading) error

	// Close releases the underlying connection.
	Close() error
}

// FormatPayload creates the JSON payload for a reading. It is the same shape
// as a telemetry log line.
func FormatPayload(reading models.Reading) ([]byte, error) {
	return json.Marshal(reading)
}

// NoopPublisher discards readings; used when the side channel is disabled.
type NoopPublisher struct{}

// Publish discards the reading.
func (NoopPublisher) Publish(models.Reading) error { return nil }

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }
