package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/machinestack/machine-monitor/internal/config"
	"github.com/machinestack/machine-monitor/internal/metrics"
	"github.com/machinestack/machine-monitor/internal/models"
	"github.com/machinestack/machine-monitor/internal/stream"
	"github.com/machinestack/machine-monitor/internal/utils"
)

// Sink persists analysis records.
type Sink interface {
	Write(record models.AnalysisRecord) error
}

// Analyzer is the sliding-window engine: it polls the telemetry log for
// readings past its cursor, advances the per-metric windows, derives
// statistics and alerts, persists the record, and only then makes the new
// cursor durable.
type Analyzer struct {
	logger     *slog.Logger
	log        *stream.AppendLog
	cursor     *stream.Cursor
	sink       Sink
	metricsCfg config.MetricsConfig
	interval   time.Duration

	temperature *Window
	speed       *Window
	statuses    *StatusWindow

	cursorAt  time.Time
	latencies *utils.LatencyTracker
}

// NewAnalyzer constructs the analyzer and loads the cursor. A missing cursor
// file means processing starts from the beginning of the log; an unreadable
// one is logged and treated the same way.
func NewAnalyzer(
	logger *slog.Logger,
	log *stream.AppendLog,
	cursor *stream.Cursor,
	sink Sink,
	metricsCfg config.MetricsConfig,
	windowSize int,
	interval time.Duration,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Analyzer{
		logger:      logger,
		log:         log,
		cursor:      cursor,
		sink:        sink,
		metricsCfg:  metricsCfg,
		interval:    interval,
		temperature: NewWindow(windowSize),
		speed:       NewWindow(windowSize),
		statuses:    NewStatusWindow(windowSize),
		latencies:   utils.NewLatencyTracker(1024),
	}

	if cursor != nil {
		at, ok, err := cursor.Load()
		if err != nil {
			logger.Warn("cursor unreadable, processing from the beginning", slog.Any("error", err))
		} else if ok {
			a.cursorAt = at
			a.primeWindows()
		}
	}
	return a
}

// primeWindows replays the readings at or before the cursor into the windows
// so a restarted analyzer derives the same statistics as one that never
// stopped. The windows are bounded, so only the trailing samples survive.
func (a *Analyzer) primeWindows() {
	readings, _, err := a.log.ReadAll()
	if err != nil {
		a.logger.Warn("window priming failed, starting with empty windows", slog.Any("error", err))
		return
	}
	for _, r := range readings {
		if r.Timestamp.After(a.cursorAt) {
			continue
		}
		a.temperature.Push(r.Temperature)
		a.speed.Push(r.Speed)
		a.statuses.Push(r.Status)
	}
}

// Cursor returns the in-memory cursor position; zero before the first record.
func (a *Analyzer) Cursor() time.Time {
	return a.cursorAt
}

// Poll consumes all readings newer than the cursor and emits one analysis
// record for the latest of them. Every new reading advances the windows; only
// the last becomes the reported current reading. Returns nil, nil when there
// is nothing new.
//
// Window and cursor state commit only after both the sink write and the
// cursor save succeed, so a failed poll replays the same readings next time.
func (a *Analyzer) Poll() (*models.AnalysisRecord, error) {
	since := a.cursorAt
	readings, skipped, err := a.log.ReadSince(since)
	if skipped > 0 {
		metrics.AddMalformedLines(skipped)
		a.logger.Warn("skipped malformed log lines", slog.Int("count", skipped))
	}
	if err != nil {
		return nil, utils.NewAppError("analyzer.poll", "read telemetry log", err)
	}
	if len(readings) == 0 {
		return nil, nil
	}

	temperature := a.temperature.Clone()
	speed := a.speed.Clone()
	statuses := a.statuses.Clone()

	for _, r := range readings {
		temperature.Push(r.Temperature)
		speed.Push(r.Speed)
		statuses.Push(r.Status)
	}
	current := readings[len(readings)-1]

	record := a.buildRecord(current, temperature, speed, statuses)

	if err := a.sink.Write(record); err != nil {
		return nil, utils.NewAppError("analyzer.poll", "persist analysis record", err)
	}
	if a.cursor != nil {
		if err := a.cursor.Save(current.Timestamp); err != nil {
			return nil, utils.NewAppError("analyzer.poll", "save cursor", err)
		}
	}

	a.temperature = temperature
	a.speed = speed
	a.statuses = statuses
	a.cursorAt = current.Timestamp

	return &record, nil
}

func (a *Analyzer) buildRecord(current models.Reading, temperature, speed *Window, statuses *StatusWindow) models.AnalysisRecord {
	mode, _ := statuses.Mode()

	record := models.AnalysisRecord{
		Timestamp:   current.Timestamp,
		Temperature: metricStats(current.Temperature, temperature, a.metricsCfg.Temperature),
		Speed:       metricStats(current.Speed, speed, a.metricsCfg.Speed),
		Status: models.StatusSummary{
			Current:         current.Status,
			Mode:            mode,
			ChangesInWindow: statuses.DistinctCount(),
		},
		HealthScore: HealthScore(current),
		Alerts:      Alerts(current, a.metricsCfg),
	}
	return record
}

func metricStats(current float64, w *Window, r config.MetricRange) models.MetricStats {
	avg, ok := w.MovingAverage()
	return models.MetricStats{
		Current:   current,
		MovingAvg: avg,
		HasAvg:    ok,
		Trend:     w.Trend(),
		IsOutlier: !r.InExpected(current),
	}
}

// Run polls until ctx is cancelled. Failed polls are logged and retried on
// the next tick; an in-flight poll always completes before exit.
func (a *Analyzer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("analyzer started",
		slog.Duration("interval", a.interval),
		slog.Time("cursor", a.cursorAt),
	)

	for {
		a.runOnce()

		select {
		case <-ctx.Done():
			a.logger.Info("analyzer stopped", slog.Time("cursor", a.cursorAt))
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Analyzer) runOnce() {
	start := time.Now()
	record, err := a.Poll()
	duration := time.Since(start)

	switch {
	case err != nil:
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		a.logger.Error("analysis poll failed", slog.Any("error", err))
	case record == nil:
		metrics.ObserveAnalysis(duration, metrics.OutcomeNoData)
	default:
		metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
		metrics.AddAlerts(len(record.Alerts))
		a.latencies.Observe(duration)
		a.logger.Info("analysis emitted",
			slog.Time("timestamp", record.Timestamp),
			slog.String("status", string(record.Status.Current)),
			slog.Float64("health_score", record.HealthScore),
			slog.Int("alerts", len(record.Alerts)),
		)
		if count := a.latencies.Count(); count >= 20 && count%20 == 0 {
			a.logger.Info("analysis latency",
				slog.Duration("p95", a.latencies.Percentile(95)),
				slog.Int("samples", count),
			)
		}
	}
}
