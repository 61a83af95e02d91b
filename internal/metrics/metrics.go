package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels polls that emitted an analysis record.
	OutcomeSuccess = "success"
	// OutcomeNoData labels polls that found no new readings.
	OutcomeNoData = "no_data"
	// OutcomeError labels polls that failed.
	OutcomeError = "error"
)

var (
	readingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "machine_monitor",
			Name:      "readings_total",
			Help:      "Total readings generated, partitioned by status.",
		},
		[]string{"status"},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "machine_monitor",
			Name:      "analyses_total",
			Help:      "Total analyzer polls, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "machine_monitor",
			Name:      "analysis_seconds",
			Help:      "Analyzer poll latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)

	alertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "machine_monitor",
			Name:      "alerts_total",
			Help:      "Total alert strings emitted on analysis records.",
		},
	)

	malformedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "machine_monitor",
			Name:      "malformed_lines_total",
			Help:      "Total telemetry log lines skipped as unparseable.",
		},
	)
)

// Register attaches machine-monitor collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		readingsTotal,
		analysesTotal,
		analysisDurationSeconds,
		alertsTotal,
		malformedLinesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveReading counts one generated reading.
func ObserveReading(status string) {
	readingsTotal.WithLabelValues(status).Inc()
}

// ObserveAnalysis records one analyzer poll with its duration and outcome.
func ObserveAnalysis(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeNoData, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// AddAlerts counts emitted alert strings.
func AddAlerts(n int) {
	if n > 0 {
		alertsTotal.Add(float64(n))
	}
}

// AddMalformedLines counts skipped log lines.
func AddMalformedLines(n int) {
	if n > 0 {
		malformedLinesTotal.Add(float64(n))
	}
}
