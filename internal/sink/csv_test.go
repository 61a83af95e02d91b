package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

func sampleRecord(ts time.Time, alerts []string) models.AnalysisRecord {
	return models.AnalysisRecord{
		Timestamp: ts,
		Temperature: models.MetricStats{
			Current: 27.5, MovingAvg: 26.8, HasAvg: true,
			Trend: models.TrendIncreasing, IsOutlier: false,
		},
		Speed: models.MetricStats{
			Current: 1520, MovingAvg: 1480.4, HasAvg: true,
			Trend: models.TrendStable, IsOutlier: false,
		},
		Status: models.StatusSummary{
			Current: models.StatusRunning, Mode: models.StatusRunning, ChangesInWindow: 2,
		},
		HealthScore: 0.97,
		Alerts:      alerts,
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestWriteHeaderExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")
	s := NewCSVSink(path)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	if err := s.Write(sampleRecord(base, nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(sampleRecord(base.Add(10*time.Second), nil)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("header = %v, want %v", rows[0], Header)
	}
	for _, row := range rows[1:] {
		if row[0] == Header[0] {
			t.Fatal("header written more than once")
		}
	}
}

func TestWriteHeaderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)

	if err := NewCSVSink(path).Write(sampleRecord(base, nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A fresh sink instance on an existing file must not re-emit the header.
	if err := NewCSVSink(path).Write(sampleRecord(base.Add(time.Second), nil)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
}

func TestWriteJoinsAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")
	s := NewCSVSink(path)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	alerts := []string{
		"Temperature out of safe range: 45",
		"Machine paused - may require attention",
	}
	if err := s.Write(sampleRecord(ts, alerts)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readRows(t, path)
	got := rows[1][len(rows[1])-1]
	want := "Temperature out of safe range: 45;Machine paused - may require attention"
	if got != want {
		t.Fatalf("alerts cell = %q, want %q", got, want)
	}
}

func TestWriteEmptyAlertsCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")
	s := NewCSVSink(path)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	if err := s.Write(sampleRecord(ts, nil)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows := readRows(t, path)
	if got := rows[1][len(rows[1])-1]; got != "" {
		t.Fatalf("alerts cell = %q, want empty", got)
	}
}

func TestLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.csv")
	s := NewCSVSink(path)

	if _, ok, err := s.Latest(); err != nil || ok {
		t.Fatalf("empty table Latest = ok=%v err=%v", ok, err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	s.Write(sampleRecord(base, nil))
	s.Write(sampleRecord(base.Add(10*time.Second), []string{"Machine shutdown - check if scheduled"}))

	row, ok, err := s.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest = ok=%v err=%v", ok, err)
	}
	if row["timestamp"] != base.Add(10*time.Second).Format(models.TimestampLayout) {
		t.Fatalf("latest timestamp = %q", row["timestamp"])
	}
	if row["health_score"] != "0.97" {
		t.Fatalf("health_score = %q, want 0.97", row["health_score"])
	}
	if row["alerts"] != "Machine shutdown - check if scheduled" {
		t.Fatalf("alerts = %q", row["alerts"])
	}
}
