package stream

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/machinestack/machine-monitor/internal/models"
)

// Cursor is the durable pointer to the last-processed reading timestamp. It is
// overwritten wholesale on each save so a crashed analyzer resumes at-least-once
// from the last durable value.
type Cursor struct {
	path string
}

// NewCursor creates a cursor handle for the given path.
func NewCursor(path string) *Cursor {
	return &Cursor{path: path}
}

// Load returns the stored timestamp. A missing file means first run and yields
// ok=false with no error; an unreadable or unparseable file also yields
// ok=false but surfaces the error so the caller can log it before processing
// from the beginning.
func (c *Cursor) Load() (time.Time, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read cursor %s: %w", c.path, err)
	}

	value := strings.TrimSpace(string(data))
	t, err := models.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cursor %s: %w", c.path, err)
	}
	return t, true, nil
}

// Save replaces the cursor file with the given timestamp. The write goes to a
// temp file in the same directory and is renamed over the target so a crash
// never leaves a half-written cursor.
func (c *Cursor) Save(t time.Time) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("create temp cursor: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.WriteString(t.Format(models.TimestampLayout))
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cursor: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cursor: %w", closeErr)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cursor %s: %w", c.path, err)
	}
	return nil
}
