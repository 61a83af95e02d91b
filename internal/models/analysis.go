package models

import "time"

// Trend is the qualitative direction of a metric over its window.
type Trend string

const (
	TrendStable           Trend = "stable"
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendInsufficientData Trend = "insufficient_data"
)

// MetricStats summarises one numeric metric at the current reading.
// HasAvg is false only when the window held no samples, in which case
// MovingAvg carries no meaning and Trend is TrendInsufficientData.
type MetricStats struct {
	Current   float64
	MovingAvg float64
	HasAvg    bool
	Trend     Trend
	IsOutlier bool
}

// StatusSummary describes the status window at the current reading.
type StatusSummary struct {
	Current Status
	// Mode is the most frequent status in the window; frequency ties resolve
	// to the value seen first scanning the window oldest to newest.
	Mode            Status
	ChangesInWindow int
}

// AnalysisRecord is the derived output for one consumed reading.
type AnalysisRecord struct {
	Timestamp   time.Time
	Temperature MetricStats
	Speed       MetricStats
	Status      StatusSummary
	HealthScore float64
	Alerts      []string
}
