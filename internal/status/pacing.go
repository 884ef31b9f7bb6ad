package status

import (
	"time"
)

// Pacer decides how long to wait after a tick.
type Pacer interface {
	Next(now time.Time) time.Duration
}

// FixedInterval waits the same duration between ticks.
type FixedInterval struct {
	Interval time.Duration
}

func (p FixedInterval) Next(time.Time) time.Duration {
	return p.Interval
}

// PhaseAligned wakes inside a seconds-of-minute window so the displayed
// minute changes close to the real minute boundary. Inside the window it
// ticks every Step; once the next step would leave the window it sleeps
// until the window opens in the following minute.
type PhaseAligned struct {
	Window SecondWindow
	Step   time.Duration
}

func (p PhaseAligned) Next(now time.Time) time.Duration {
	step := p.Step
	if step <= 0 {
		step = time.Second
	}
	start := time.Duration(p.Window.Start) * time.Second
	end := time.Duration(p.Window.End) * time.Second

	offset := now.Sub(now.Truncate(time.Minute))

	if offset < start {
		return start - offset
	}
	if offset <= end {
		next := offset.Truncate(time.Second) + step
		if next <= end {
			return next - offset
		}
	}
	return time.Minute - offset + start
}
