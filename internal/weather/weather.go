package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTransport covers network failures and non-2xx responses.
	ErrTransport = errors.New("weather: transport error")
	// ErrMalformed covers payloads that could not be decoded or lack required fields.
	ErrMalformed = errors.New("weather: malformed response")
)

// HTTPError is returned for non-2xx responses. It matches ErrTransport.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("weather: status %d", e.StatusCode)
	}
	return fmt.Sprintf("weather: status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrTransport
}

// Provider returns the current conditions for a fixed coordinate.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Snapshot, error)
}

// Snapshot is the most recently fetched weather. It is replaced wholesale on
// refresh and never modified in place.
type Snapshot struct {
	Condition   string
	Temperature *float64 // °C
	Sunrise     *TimeOfDay
	Sunset      *TimeOfDay
	FetchedAt   time.Time
	Source      string
	// Flags names values Sanitize discarded.
	Flags []string
}

// UnknownCondition is the condition text of the placeholder snapshot.
const UnknownCondition = "unknown"

// Unknown returns the placeholder used until a fetch has succeeded.
func Unknown() Snapshot {
	return Snapshot{Condition: UnknownCondition}
}

// IsUnknown reports whether s is the placeholder rather than fetched data.
func (s Snapshot) IsUnknown() bool {
	return s.FetchedAt.IsZero()
}

// TimeOfDay is a local wall-clock time with minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At returns the time of day of t in t's location.
func At(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns the minutes elapsed since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "06:45 AM", "6:45 PM" or "18:45". Values like
// "No sunrise" (polar day and night) return ok=false.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"03:04 PM", "3:04 PM", "15:04"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return At(t), true
		}
	}
	return TimeOfDay{}, false
}
