package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/machinestack/machine-monitor/internal/metrics"
	"github.com/machinestack/machine-monitor/internal/mqtt"
	"github.com/machinestack/machine-monitor/internal/stream"
)

// Runner drives the generator on a fixed tick: generate, append, publish,
// sleep. A failed tick is logged and the loop continues; only cancellation
// stops it, and an in-flight tick always completes first.
type Runner struct {
	logger    *slog.Logger
	generator *Generator
	log       *stream.AppendLog
	publisher mqtt.Publisher
	interval  time.Duration
}

// NewRunner constructs the simulation loop. A nil publisher disables the side
// channel.
func NewRunner(logger *slog.Logger, generator *Generator, log *stream.AppendLog, publisher mqtt.Publisher, interval time.Duration) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = mqtt.NoopPublisher{}
	}
	return &Runner{
		logger:    logger,
		generator: generator,
		log:       log,
		publisher: publisher,
		interval:  interval,
	}
}

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("simulator started", slog.Duration("interval", r.interval))

	for {
		if err := r.Tick(); err != nil {
			r.logger.Error("simulation tick failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			r.logger.Info("simulator stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick generates one reading, appends it to the log, and mirrors it to the
// side channel. A side channel failure is logged, not returned: the log append
// is the only durable obligation.
func (r *Runner) Tick() error {
	reading := r.generator.Tick(time.Now())

	if err := r.log.Append(reading); err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	metrics.ObserveReading(string(reading.Status))

	if err := r.publisher.Publish(reading); err != nil {
		r.logger.Warn("side channel publish failed", slog.Any("error", err))
	}

	r.logger.Debug("reading generated",
		slog.String("status", string(reading.Status)),
		slog.Float64("temperature", reading.Temperature),
		slog.Float64("speed", reading.Speed),
	)
	return nil
}
