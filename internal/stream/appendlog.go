// Package stream implements the file-based contracts the generator and
// analyzer coordinate through: an append-only line-delimited JSON log and a
// durable read cursor.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

// AppendLog is an append-only, line-delimited JSON record store. Appends are
// flushed before returning and prior lines are never rewritten. The mutex
// serialises appends from the generator loop and the status-update endpoint
// when both run in one process.
type AppendLog struct {
	path string
	mu   sync.Mutex
}

// NewAppendLog creates a log handle for the given path. The file is created
// lazily on first append.
func NewAppendLog(path string) *AppendLog {
	return &AppendLog{path: path}
}

// Path returns the underlying file path.
func (l *AppendLog) Path() string {
	return l.path
}

// Append serialises the reading and writes it as one newline-terminated line,
// syncing the file before returning.
func (l *AppendLog) Append(r models.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append to log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

// ReadAll replays the log top to bottom. Malformed lines are skipped and
// counted rather than failing the read. A trailing line without a newline is
// treated as an in-flight partial write and ignored until the writer
// completes it. A missing file reads as an empty log.
func (l *AppendLog) ReadAll() ([]models.Reading, int, error) {
	return l.ReadSince(time.Time{})
}

// ReadSince returns readings with timestamps strictly after the given instant,
// in file order. A zero time returns everything.
func (l *AppendLog) ReadSince(after time.Time) ([]models.Reading, int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read log %s: %w", l.path, err)
	}

	lines := strings.Split(string(data), "\n")
	// Without a trailing newline the final element is a partial record still
	// being written; drop it. With one, the final element is empty anyway.
	lines = lines[:len(lines)-1]

	var readings []models.Reading
	skipped := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var r models.Reading
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			skipped++
			continue
		}
		if !after.IsZero() && !r.Timestamp.After(after) {
			continue
		}
		readings = append(readings, r)
	}
	return readings, skipped, nil
}

// Latest returns the most recent parseable reading, or ok=false when the log
// holds none.
func (l *AppendLog) Latest() (models.Reading, bool, error) {
	readings, _, err := l.ReadAll()
	if err != nil {
		return models.Reading{}, false, err
	}
	if len(readings) == 0 {
		return models.Reading{}, false, nil
	}
	return readings[len(readings)-1], true, nil
}
