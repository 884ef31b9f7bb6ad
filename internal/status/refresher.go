package status

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/metrics"
	"github.com/lox/weatherstatus/internal/models"
	"github.com/lox/weatherstatus/internal/weather"
)

const DefaultRefreshInterval = 30 * time.Minute

// Sink applies text as the account's visible status.
type Sink interface {
	SetStatus(ctx context.Context, text string) error
}

// Marker records that a tick completed.
type Marker interface {
	Touch(now time.Time) error
}

// Mirror receives every successfully pushed status.
type Mirror interface {
	PublishStatus(text string, snap weather.Snapshot) error
}

// Recorder keeps an audit history of fetches and pushes.
type Recorder interface {
	RecordWeatherFetch(f models.WeatherFetch) error
	RecordStatusPush(p models.StatusPush) error
}

// Options configures a Refresher. Zero values take defaults.
type Options struct {
	Location          *time.Location
	Template          *Template
	TemperatureWindow SecondWindow
	RefreshInterval   time.Duration
	// RetryInterval, when positive, gates fetches while no snapshot has ever
	// succeeded. Zero leaves RefreshInterval in charge.
	RetryInterval time.Duration
	Now           func() time.Time
	Logger        *zap.Logger
}

// State is the refresher's view of what it last did.
type State struct {
	LastPushedText     string
	HasPushed          bool
	LastWeatherRefresh time.Time
	LastPushAttempt    time.Time
	LastTick           time.Time
	LastError          string
	Snapshot           weather.Snapshot
}

// Refresher runs one status update per Tick: refresh weather when stale,
// render the status text and push it when it changed.
type Refresher struct {
	provider weather.Provider
	sink     Sink
	marker   Marker
	recorder Recorder
	mirrors  []Mirror

	loc        *time.Location
	tmpl       *Template
	tempWindow SecondWindow
	refresh    time.Duration
	retry      time.Duration
	now        func() time.Time
	log        *zap.Logger

	mu        sync.Mutex
	state     State
	attempted bool
}

func NewRefresher(provider weather.Provider, sink Sink, marker Marker, opts Options) *Refresher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = ResolveLocation(DefaultTimezone, opts.Logger)
	}
	if opts.Template == nil {
		opts.Template, _ = ParseTemplate(DefaultTemplate)
	}
	if opts.TemperatureWindow == (SecondWindow{}) {
		opts.TemperatureWindow = DefaultTemperatureWindow
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RetryInterval < 0 {
		opts.RetryInterval = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Refresher{
		provider:   provider,
		sink:       sink,
		marker:     marker,
		loc:        opts.Location,
		tmpl:       opts.Template,
		tempWindow: opts.TemperatureWindow,
		refresh:    opts.RefreshInterval,
		retry:      opts.RetryInterval,
		now:        opts.Now,
		log:        opts.Logger,
		state:      State{Snapshot: weather.Unknown()},
	}
}

// SetRecorder enables the audit history.
func (r *Refresher) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// AddMirror registers a receiver for pushed statuses.
func (r *Refresher) AddMirror(m Mirror) {
	r.mirrors = append(r.mirrors, m)
}

// State returns a copy of the current state. Safe to call from other goroutines.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tick performs one refresh. Fetch, render and push failures are logged and
// leave the previous state in place; the next tick retries. A tick without
// failures clears LastError.
func (r *Refresher) Tick(ctx context.Context) error {
	now := r.now()
	local := now.In(r.loc)

	failed := r.refreshWeather(ctx, now) != nil

	r.mu.Lock()
	snap := r.state.Snapshot
	lastText, hasPushed := r.state.LastPushedText, r.state.HasPushed
	r.mu.Unlock()

	text, err := r.Render(local, snap)
	if err != nil {
		r.log.Error("render status", zap.Error(err))
		r.setError(err)
		failed = true
		metrics.TicksTotal.WithLabelValues("render_error").Inc()
	} else if hasPushed && text == lastText {
		metrics.StatusPushesTotal.WithLabelValues("unchanged").Inc()
		metrics.TicksTotal.WithLabelValues("ok").Inc()
	} else {
		if r.push(ctx, now, text, snap) != nil {
			failed = true
		}
		metrics.TicksTotal.WithLabelValues("ok").Inc()
	}

	if err := r.marker.Touch(now); err != nil {
		r.log.Warn("touch liveness marker", zap.Error(err))
	}

	r.mu.Lock()
	r.state.LastTick = now
	if !failed {
		r.state.LastError = ""
	}
	r.mu.Unlock()
	metrics.LastTickTimestamp.Set(float64(now.Unix()))

	return ctx.Err()
}

// Render produces the status text for local time t from snap.
func (r *Refresher) Render(t time.Time, snap weather.Snapshot) (string, error) {
	return r.tmpl.Render(Fields{
		Emoji:           Emoji(snap.Condition, weather.At(t), snap.Sunrise, snap.Sunset),
		Time:            t.Format("15:04"),
		Condition:       snap.Condition,
		Temperature:     snap.Temperature,
		ShowTemperature: r.tempWindow.Contains(t.Second()),
	})
}

func (r *Refresher) needsRefresh(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.attempted {
		return true
	}
	interval := r.refresh
	if r.state.Snapshot.IsUnknown() && r.retry > 0 && r.retry < interval {
		interval = r.retry
	}
	return now.Sub(r.state.LastWeatherRefresh) > interval
}

// refreshWeather returns the fetch error, or nil when no fetch was due.
func (r *Refresher) refreshWeather(ctx context.Context, now time.Time) error {
	if !r.needsRefresh(now) {
		return nil
	}

	source := r.provider.Name()
	start := time.Now()
	snap, err := r.provider.Fetch(ctx)
	elapsed := time.Since(start)
	metrics.WeatherFetchLatency.WithLabelValues(source).Observe(elapsed.Seconds())

	r.mu.Lock()
	r.attempted = true
	r.state.LastWeatherRefresh = now
	if err == nil {
		r.state.Snapshot = snap
	}
	stale := r.state.Snapshot
	r.mu.Unlock()

	fetch := models.WeatherFetch{
		Source:     source,
		StartedAt:  now,
		DurationMS: elapsed.Milliseconds(),
		Success:    err == nil,
	}

	if err != nil {
		kind := errorKind(err)
		metrics.WeatherFetchesTotal.WithLabelValues(source, kind).Inc()
		fetch.ErrorKind = sql.NullString{String: kind, Valid: true}
		fetch.ErrorMsg = sql.NullString{String: err.Error(), Valid: true}
		r.setError(err)
		r.log.Warn("weather fetch failed, keeping previous snapshot",
			zap.String("source", source),
			zap.String("kind", kind),
			zap.String("condition", stale.Condition),
			zap.Bool("placeholder", stale.IsUnknown()),
			zap.Error(err))
	} else {
		metrics.WeatherFetchesTotal.WithLabelValues(source, "ok").Inc()
		fetch.Condition = sql.NullString{String: snap.Condition, Valid: true}
		if snap.Temperature != nil {
			fetch.Temp = sql.NullFloat64{Float64: *snap.Temperature, Valid: true}
		}
		if snap.Sunrise != nil {
			fetch.Sunrise = sql.NullString{String: snap.Sunrise.String(), Valid: true}
		}
		if snap.Sunset != nil {
			fetch.Sunset = sql.NullString{String: snap.Sunset.String(), Valid: true}
		}
		fields := []zap.Field{
			zap.String("source", source),
			zap.String("condition", snap.Condition),
		}
		if snap.Temperature != nil {
			fields = append(fields, zap.Float64("temp_c", *snap.Temperature))
		}
		if snap.Sunrise != nil && snap.Sunset != nil {
			fields = append(fields, zap.Stringer("sunrise", snap.Sunrise), zap.Stringer("sunset", snap.Sunset))
		}
		if len(snap.Flags) > 0 {
			fields = append(fields, zap.Strings("discarded", snap.Flags))
		}
		r.log.Info("weather refreshed", fields...)
	}

	if r.recorder != nil {
		if recErr := r.recorder.RecordWeatherFetch(fetch); recErr != nil {
			r.log.Warn("record weather fetch", zap.Error(recErr))
		}
	}
	return err
}

func (r *Refresher) push(ctx context.Context, now time.Time, text string, snap weather.Snapshot) error {
	start := time.Now()
	err := r.sink.SetStatus(ctx, text)
	elapsed := time.Since(start)
	metrics.StatusPushLatency.Observe(elapsed.Seconds())

	r.mu.Lock()
	r.state.LastPushAttempt = now
	if err == nil {
		r.state.LastPushedText = text
		r.state.HasPushed = true
	}
	r.mu.Unlock()

	if r.recorder != nil {
		p := models.StatusPush{
			Text:       text,
			PushedAt:   now,
			DurationMS: elapsed.Milliseconds(),
			Success:    err == nil,
		}
		if err != nil {
			p.ErrorMsg = sql.NullString{String: err.Error(), Valid: true}
		}
		if recErr := r.recorder.RecordStatusPush(p); recErr != nil {
			r.log.Warn("record status push", zap.Error(recErr))
		}
	}

	if err != nil {
		metrics.StatusPushesTotal.WithLabelValues("error").Inc()
		r.setError(err)
		r.log.Warn("status push failed, will retry next tick", zap.String("text", text), zap.Error(err))
		return err
	}

	metrics.StatusPushesTotal.WithLabelValues("ok").Inc()
	r.log.Info("status updated", zap.String("text", text))

	for _, m := range r.mirrors {
		if err := m.PublishStatus(text, snap); err != nil {
			r.log.Warn("mirror status", zap.Error(err))
		}
	}
	return nil
}

func (r *Refresher) setError(err error) {
	r.mu.Lock()
	r.state.LastError = err.Error()
	r.mu.Unlock()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, weather.ErrTransport):
		return "transport"
	case errors.Is(err, weather.ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
