package stream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

func testReading(ts time.Time, temp, speed float64, status models.Status) models.Reading {
	return models.Reading{Timestamp: ts, Temperature: temp, Speed: speed, Status: status}
}

func TestAppendReadRoundtrip(t *testing.T) {
	log := NewAppendLog(filepath.Join(t.TempDir(), "stream.jsonl"))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	want := []models.Reading{
		testReading(base, 27.5, 1500, models.StatusRunning),
		testReading(base.Add(time.Second), 28.13, 1612.4, models.StatusRunning),
		testReading(base.Add(2*time.Second), 17.2, 0, models.StatusShutdown),
	}
	for _, r := range want {
		if err := log.Append(r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, skipped, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("expected no skipped lines, got %d", skipped)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Fatalf("reading %d timestamp %v, want %v", i, got[i].Timestamp, want[i].Timestamp)
		}
		if got[i].Temperature != want[i].Temperature || got[i].Speed != want[i].Speed || got[i].Status != want[i].Status {
			t.Fatalf("reading %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllMissingFile(t *testing.T) {
	log := NewAppendLog(filepath.Join(t.TempDir(), "absent.jsonl"))
	readings, skipped, err := log.ReadAll()
	if err != nil {
		t.Fatalf("missing file should read as empty, got error: %v", err)
	}
	if len(readings) != 0 || skipped != 0 {
		t.Fatalf("expected empty result, got %d readings %d skipped", len(readings), skipped)
	}
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.jsonl")
	log := NewAppendLog(path)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	if err := log.Append(testReading(base, 26, 1400, models.StatusRunning)); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{not json}\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	if err := log.Append(testReading(base.Add(time.Second), 27, 1450, models.StatusRunning)); err != nil {
		t.Fatalf("append: %v", err)
	}

	readings, skipped, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped line, got %d", skipped)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings around the malformed line, got %d", len(readings))
	}
}

func TestReadAllIgnoresTrailingPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.jsonl")
	log := NewAppendLog(path)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	if err := log.Append(testReading(base, 26, 1400, models.StatusRunning)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Simulate a concurrent writer mid-line: valid JSON prefix, no newline yet.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"timestamp":"2025-06-01T12:00:0`); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	f.Close()

	readings, skipped, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("partial line must not count as malformed, got %d skipped", skipped)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 complete reading, got %d", len(readings))
	}

	// Writer finishes the line: it becomes visible.
	f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rest := `0.000000+02:00","temperature":27.5,"speed":1500,"status":"RUNNING"}` + "\n"
	if _, err := f.WriteString(rest); err != nil {
		t.Fatalf("complete line: %v", err)
	}
	f.Close()

	readings, _, err = log.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings after line completed, got %d", len(readings))
	}
}

func TestReadSinceFiltersStrictlyAfter(t *testing.T) {
	log := NewAppendLog(filepath.Join(t.TempDir(), "stream.jsonl"))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	for i := 0; i < 5; i++ {
		if err := log.Append(testReading(base.Add(time.Duration(i)*time.Second), 26, 1400, models.StatusRunning)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, _, err := log.ReadSince(base.Add(2 * time.Second))
	if err != nil {
		t.Fatalf("read since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings after cursor, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(3 * time.Second)) {
		t.Fatalf("first returned reading at %v, want %v", got[0].Timestamp, base.Add(3*time.Second))
	}
}

func TestLatest(t *testing.T) {
	log := NewAppendLog(filepath.Join(t.TempDir(), "stream.jsonl"))

	if _, ok, err := log.Latest(); err != nil || ok {
		t.Fatalf("empty log Latest = ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	log.Append(testReading(base, 26, 1400, models.StatusRunning))
	log.Append(testReading(base.Add(time.Second), 19.5, 0, models.StatusShutdown))

	latest, ok, err := log.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest = ok=%v err=%v", ok, err)
	}
	if latest.Status != models.StatusShutdown {
		t.Fatalf("latest status %s, want SHUTDOWN", latest.Status)
	}
}
