package status

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/metrics"
)

const (
	DefaultCooldown    = 30 * time.Second
	DefaultMaxCooldown = 5 * time.Minute
)

// Handler is invoked once per tick.
type Handler interface {
	Tick(ctx context.Context) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scheduler drives a Handler: tick, wait as the Pacer says, repeat. A tick
// that fails or panics is followed by a growing cooldown instead.
type Scheduler struct {
	handler  Handler
	pacer    Pacer
	now      func() time.Time
	sleep    SleepFunc
	cooldown backoff.BackOff
	log      *zap.Logger
}

func NewScheduler(handler Handler, pacer Pacer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		handler:  handler,
		pacer:    pacer,
		now:      time.Now,
		sleep:    Sleep,
		cooldown: NewCooldown(DefaultCooldown, DefaultMaxCooldown),
		log:      logger,
	}
}

// NewCooldown returns a deterministic exponential backoff starting at
// initial and capped at maxInterval. It never gives up.
func NewCooldown(initial, maxInterval time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// SetClock replaces the time source and sleep function.
func (s *Scheduler) SetClock(now func() time.Time, sleep SleepFunc) {
	s.now = now
	s.sleep = sleep
}

// SetCooldown replaces the policy used after a failed tick.
func (s *Scheduler) SetCooldown(b backoff.BackOff) {
	s.cooldown = b
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.log.Info("scheduler: shutting down")
			return nil
		}

		var wait time.Duration
		if err := s.tick(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait = s.cooldown.NextBackOff()
			metrics.TicksTotal.WithLabelValues("error").Inc()
			s.log.Error("scheduler: tick failed, cooling down",
				zap.Duration("cooldown", wait),
				zap.Error(err))
		} else {
			s.cooldown.Reset()
			wait = s.pacer.Next(s.now())
			s.log.Debug("scheduler: next tick", zap.Duration("wait", wait))
		}

		if err := s.sleep(ctx, wait); err != nil && ctx.Err() == nil {
			s.log.Warn("scheduler: sleep interrupted", zap.Error(err))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in tick: %v", rec)
			s.log.Error("scheduler: recovered panic", zap.ByteString("stack", debug.Stack()))
		}
	}()
	return s.handler.Tick(ctx)
}
