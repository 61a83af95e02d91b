package stream

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCursorMissingFile(t *testing.T) {
	c := NewCursor(filepath.Join(t.TempDir(), "cursor.txt"))
	_, ok, err := c.Load()
	if err != nil {
		t.Fatalf("missing cursor should not error: %v", err)
	}
	if ok {
		t.Fatal("missing cursor reported as present")
	}
}

func TestCursorSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.txt")
	c := NewCursor(path)

	want := time.Date(2025, 6, 1, 12, 30, 45, 123456000, time.Local)
	if err := c.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := c.Load()
	if err != nil || !ok {
		t.Fatalf("load = ok=%v err=%v", ok, err)
	}
	if !got.Equal(want) {
		t.Fatalf("loaded %v, want %v", got, want)
	}
}

func TestCursorSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.txt")
	c := NewCursor(path)

	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	second := first.Add(time.Minute)
	if err := c.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := c.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, _, err := c.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("loaded %v, want %v", got, second)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		t.Fatalf("cursor file should be a bare timestamp, got %q", data)
	}
}

func TestCursorGarbageSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.txt")
	if err := os.WriteFile(path, []byte("not a timestamp"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewCursor(path)
	_, ok, err := c.Load()
	if err == nil {
		t.Fatal("expected error for unparseable cursor")
	}
	if ok {
		t.Fatal("unparseable cursor reported as present")
	}
}
