package liveness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMarker_TouchAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alive")
	m := NewMarker(path)
	now := time.Unix(1760000000, 0)

	if err := m.Touch(now); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if string(b) != "1760000000" {
		t.Errorf("marker = %q, want 1760000000", b)
	}

	if err := Check(path, 3*time.Minute, now.Add(2*time.Minute)); err != nil {
		t.Errorf("Check fresh marker: %v", err)
	}
	if err := Check(path, 3*time.Minute, now.Add(4*time.Minute)); !errors.Is(err, ErrStale) {
		t.Errorf("Check stale marker: err = %v, want ErrStale", err)
	}
}

func TestMarker_TouchOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alive")
	m := NewMarker(path)

	if err := m.Touch(time.Unix(100, 0)); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := m.Touch(time.Unix(200, 0)); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Unix() != 200 {
		t.Errorf("Read = %d, want 200", got.Unix())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the marker in dir, found %d entries", len(entries))
	}
}

func TestMarker_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alive")
	m := NewMarker(path)

	if err := m.Remove(); err != nil {
		t.Errorf("Remove missing marker: %v", err)
	}
	if err := m.Touch(time.Now()); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := Check(path, time.Hour, time.Now()); !errors.Is(err, ErrMissing) {
		t.Errorf("Check after remove: err = %v, want ErrMissing", err)
	}
}

func TestRead_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alive")
	if err := os.WriteFile(path, []byte("yesterday"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("expected parse error")
	}
}
