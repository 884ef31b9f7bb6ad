// Package liveness maintains a timestamp file that external health checks
// use to detect a stalled process.
package liveness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultPath = "/tmp/weatherstatus.alive"

var (
	ErrMissing = errors.New("liveness: marker missing")
	ErrStale   = errors.New("liveness: marker stale")
)

// Marker is a file holding the unix time of the last completed tick.
type Marker struct {
	path string
}

func NewMarker(path string) *Marker {
	if path == "" {
		path = DefaultPath
	}
	return &Marker{path: path}
}

func (m *Marker) Path() string { return m.path }

// Touch writes now as unix seconds. The write goes through a temp file and a
// rename so readers never see a partial value.
func (m *Marker) Touch(now time.Time) error {
	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp marker: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(now.Unix(), 10)); err != nil {
		tmp.Close()
		return fmt.Errorf("write marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close marker: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("rename marker: %w", err)
	}
	return nil
}

// Remove deletes the marker. A missing marker is not an error.
func (m *Marker) Remove() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Read returns the timestamp stored in the marker at path.
func Read(path string) (time.Time, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, ErrMissing
	}
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse marker %s: %w", path, err)
	}
	return time.Unix(secs, 0), nil
}

// Check returns nil when the marker at path was written within maxAge of now.
func Check(path string, maxAge time.Duration, now time.Time) error {
	last, err := Read(path)
	if err != nil {
		return err
	}
	if age := now.Sub(last); age > maxAge {
		return fmt.Errorf("%w: last tick %s ago (max %s)", ErrStale, age.Truncate(time.Second), maxAge)
	}
	return nil
}
