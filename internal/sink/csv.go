// Package sink persists analysis records as append-only tabular rows.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/machinestack/machine-monitor/internal/models"
)

// alertDelimiter joins alert strings into the single alerts cell.
const alertDelimiter = ";"

// Header is the column layout of the analysis table, written exactly once.
var Header = []string{
	"timestamp",
	"temperature_current",
	"temperature_avg",
	"temperature_trend",
	"speed_current",
	"speed_avg",
	"speed_trend",
	"status_current",
	"status_mode",
	"status_changes",
	"health_score",
	"alerts",
}

// CSVSink appends flattened analysis records to a CSV file. The header row is
// emitted only when the destination does not exist yet; prior rows are never
// rewritten.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a sink writing to the given path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the underlying file path.
func (s *CSVSink) Path() string {
	return s.path
}

// Write appends one record as a data row, prefixing the header on first use.
func (s *CSVSink) Write(record models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeHeader := false
	if info, err := os.Stat(s.path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat analysis table %s: %w", s.path, err)
		}
		writeHeader = true
	} else if info.Size() == 0 {
		writeHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open analysis table %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(flatten(record)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync analysis table: %w", err)
	}
	return nil
}

// Latest returns the most recent data row keyed by header column, or ok=false
// when the table is empty or absent.
func (s *CSVSink) Latest() (map[string]string, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open analysis table %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("read analysis table: %w", err)
	}
	if len(rows) < 2 {
		return nil, false, nil
	}

	header, last := rows[0], rows[len(rows)-1]
	row := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(last) {
			row[col] = last[i]
		}
	}
	return row, true, nil
}

func flatten(record models.AnalysisRecord) []string {
	return []string{
		record.Timestamp.Format(models.TimestampLayout),
		formatFloat(record.Temperature.Current),
		formatAvg(record.Temperature),
		string(record.Temperature.Trend),
		formatFloat(record.Speed.Current),
		formatAvg(record.Speed),
		string(record.Speed.Trend),
		string(record.Status.Current),
		string(record.Status.Mode),
		strconv.Itoa(record.Status.ChangesInWindow),
		formatFloat(record.HealthScore),
		strings.Join(record.Alerts, alertDelimiter),
	}
}

func formatAvg(m models.MetricStats) string {
	if !m.HasAvg {
		return ""
	}
	return formatFloat(m.MovingAvg)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
