// Package report computes offline batch statistics over a complete telemetry
// log: per-metric summary figures and percentage-deviation anomalies.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/machinestack/machine-monitor/internal/config"
	"github.com/machinestack/machine-monitor/internal/models"
)

// DefaultThreshold is the anomaly deviation threshold in percent.
const DefaultThreshold = 20.0

// Anomaly is one reading deviating from the metric mean beyond the threshold.
type Anomaly struct {
	Timestamp        time.Time
	Value            float64
	DeviationPercent float64
}

// MetricReport summarises one metric over the whole log.
type MetricReport struct {
	Metric     string
	Unit       string
	Average    float64
	Minimum    float64
	Maximum    float64
	DataPoints int
	Anomalies  []Anomaly
}

// Report is the full batch analysis output.
type Report struct {
	Metrics      []MetricReport
	StatusCounts map[models.Status]int
	Threshold    float64
}

// Analyzer runs batch analysis with a configurable anomaly threshold.
type Analyzer struct {
	threshold float64
}

// NewAnalyzer creates a batch analyzer; a non-positive threshold falls back
// to DefaultThreshold.
func NewAnalyzer(threshold float64) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Analyzer{threshold: threshold}
}

// Analyze computes per-metric statistics and anomalies plus the status
// distribution for the given readings.
func (a *Analyzer) Analyze(readings []models.Reading, metricsCfg config.MetricsConfig) Report {
	rep := Report{
		StatusCounts: make(map[models.Status]int),
		Threshold:    a.threshold,
	}

	rep.Metrics = append(rep.Metrics,
		a.analyzeMetric("speed", metricsCfg.Speed.Unit, readings, func(r models.Reading) float64 { return r.Speed }),
		a.analyzeMetric("temperature", metricsCfg.Temperature.Unit, readings, func(r models.Reading) float64 { return r.Temperature }),
	)

	for _, r := range readings {
		rep.StatusCounts[r.Status]++
	}
	return rep
}

func (a *Analyzer) analyzeMetric(name, unit string, readings []models.Reading, value func(models.Reading) float64) MetricReport {
	mr := MetricReport{Metric: name, Unit: unit, DataPoints: len(readings)}
	if len(readings) == 0 {
		return mr
	}

	sum := 0.0
	mr.Minimum = value(readings[0])
	mr.Maximum = mr.Minimum
	for _, r := range readings {
		v := value(r)
		sum += v
		if v < mr.Minimum {
			mr.Minimum = v
		}
		if v > mr.Maximum {
			mr.Maximum = v
		}
	}
	mean := sum / float64(len(readings))
	mr.Average = round2(mean)
	mr.Minimum = round2(mr.Minimum)
	mr.Maximum = round2(mr.Maximum)

	// A zero mean (e.g. speed over an all-shutdown log) has no meaningful
	// percentage deviation.
	if mean == 0 {
		return mr
	}

	for _, r := range readings {
		v := value(r)
		deviation := math.Abs(v-mean) / math.Abs(mean) * 100
		if deviation > a.threshold {
			mr.Anomalies = append(mr.Anomalies, Anomaly{
				Timestamp:        r.Timestamp,
				Value:            v,
				DeviationPercent: round2(deviation),
			})
		}
	}
	return mr
}

// WriteText renders the report in a human-readable layout.
func (r Report) WriteText(w io.Writer) error {
	for _, m := range r.Metrics {
		if _, err := fmt.Fprintf(w, "\n%s statistics (%s):\n", m.Metric, m.Unit); err != nil {
			return err
		}
		fmt.Fprintf(w, "  Average: %g\n", m.Average)
		fmt.Fprintf(w, "  Maximum: %g\n", m.Maximum)
		fmt.Fprintf(w, "  Minimum: %g\n", m.Minimum)
		fmt.Fprintf(w, "  Readings: %d\n", m.DataPoints)
		fmt.Fprintf(w, "  Anomalies detected (>%g%%): %d\n", r.Threshold, len(m.Anomalies))
		for _, a := range m.Anomalies {
			fmt.Fprintf(w, "    %s value=%g deviation=%g%%\n",
				a.Timestamp.Format(models.TimestampLayout), a.Value, a.DeviationPercent)
		}
	}

	if len(r.StatusCounts) > 0 {
		fmt.Fprintln(w, "\nStatus distribution:")
		for _, s := range models.AllStatuses() {
			if count, ok := r.StatusCounts[s]; ok {
				fmt.Fprintf(w, "  %s: %d\n", s, count)
			}
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
