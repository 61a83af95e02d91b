// Package engine implements the windowed streaming analytics: bounded
// per-metric windows, derived statistics, health scoring, alert rules, and
// the polling analyzer that ties them to the telemetry log and cursor.
package engine

import (
	"math"

	"github.com/machinestack/machine-monitor/internal/models"
)

// trendThreshold is the slope magnitude below which a metric reads as stable.
const trendThreshold = 0.1

// Window is a bounded trailing buffer of numeric samples; pushing past
// capacity evicts the oldest value.
type Window struct {
	capacity int
	values   []float64
}

// NewWindow creates a window holding up to capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity}
}

// Push appends a sample, evicting the oldest when full.
func (w *Window) Push(v float64) {
	w.values = append(w.values, v)
	if len(w.values) > w.capacity {
		w.values = w.values[len(w.values)-w.capacity:]
	}
}

// Len returns the number of real samples held.
func (w *Window) Len() int {
	return len(w.values)
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	return append([]float64(nil), w.values...)
}

// Clone returns an independent copy of the window.
func (w *Window) Clone() *Window {
	return &Window{capacity: w.capacity, values: append([]float64(nil), w.values...)}
}

// MovingAverage returns the trailing simple moving average of width capacity,
// left-padding a short window by repeating its first value. ok is false only
// on an empty window: the average is undefined, never NaN.
func (w *Window) MovingAverage() (float64, bool) {
	n := len(w.values)
	if n == 0 {
		return 0, false
	}

	sum := 0.0
	for _, v := range w.values {
		sum += v
	}
	if n < w.capacity {
		sum += float64(w.capacity-n) * w.values[0]
	}
	return sum / float64(w.capacity), true
}

// Trend classifies the direction of the two most recent raw samples. An empty
// window has no trend; a single sample reads as stable.
func (w *Window) Trend() models.Trend {
	n := len(w.values)
	if n == 0 {
		return models.TrendInsufficientData
	}
	if n < 2 {
		return models.TrendStable
	}

	slope := w.values[n-1] - w.values[n-2]
	switch {
	case math.Abs(slope) < trendThreshold:
		return models.TrendStable
	case slope > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}

// StatusWindow is the bounded trailing buffer of status values.
type StatusWindow struct {
	capacity int
	values   []models.Status
}

// NewStatusWindow creates a status window holding up to capacity samples.
func NewStatusWindow(capacity int) *StatusWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &StatusWindow{capacity: capacity}
}

// Push appends a status, evicting the oldest when full.
func (w *StatusWindow) Push(s models.Status) {
	w.values = append(w.values, s)
	if len(w.values) > w.capacity {
		w.values = w.values[len(w.values)-w.capacity:]
	}
}

// Len returns the number of statuses held.
func (w *StatusWindow) Len() int {
	return len(w.values)
}

// Values returns a copy of the statuses, oldest first.
func (w *StatusWindow) Values() []models.Status {
	return append([]models.Status(nil), w.values...)
}

// Clone returns an independent copy of the window.
func (w *StatusWindow) Clone() *StatusWindow {
	return &StatusWindow{capacity: w.capacity, values: append([]models.Status(nil), w.values...)}
}

// Mode returns the most frequent status in the window. Frequency ties resolve
// to the status encountered first scanning oldest to newest. ok is false on an
// empty window.
func (w *StatusWindow) Mode() (models.Status, bool) {
	if len(w.values) == 0 {
		return "", false
	}

	counts := make(map[models.Status]int, len(w.values))
	for _, s := range w.values {
		counts[s]++
	}

	var mode models.Status
	best := 0
	for _, s := range w.values {
		if counts[s] > best {
			mode = s
			best = counts[s]
		}
	}
	return mode, true
}

// DistinctCount returns the number of unique statuses in the window.
func (w *StatusWindow) DistinctCount() int {
	seen := make(map[models.Status]struct{}, len(w.values))
	for _, s := range w.values {
		seen[s] = struct{}{}
	}
	return len(seen)
}
