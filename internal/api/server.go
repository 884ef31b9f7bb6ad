package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/models"
	"github.com/lox/weatherstatus/internal/status"
)

// StateSource exposes the refresher's current state.
type StateSource interface {
	State() status.State
}

// History exposes the audit store.
type History interface {
	RecentPushes(limit int) ([]models.StatusPush, error)
	RecentFetches(limit int) ([]models.WeatherFetch, error)
}

const maxHistoryLimit = 500

// Server serves health, metrics and recent history over HTTP.
type Server struct {
	state      StateSource
	history    History
	addr       string
	staleAfter time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewServer reports unhealthy once the last tick is older than staleAfter.
func NewServer(state StateSource, addr string, staleAfter time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		state:      state,
		addr:       addr,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        logger,
	}
}

// SetHistory enables /api/history.
func (s *Server) SetHistory(h History) {
	s.history = h
}

// SetClock replaces the time source used for staleness.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/history", s.handleAPIHistory)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("http listener started", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status         string     `json:"status"`
	LastTick       *time.Time `json:"last_tick,omitempty"`
	AgeSeconds     int        `json:"age_seconds"`
	LastPushedText string     `json:"last_pushed_text,omitempty"`
	Condition      string     `json:"condition"`
	LastError      string     `json:"last_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.state.State()
	now := s.now()

	health := HealthStatus{
		Status:         "ok",
		AgeSeconds:     -1,
		LastPushedText: st.LastPushedText,
		Condition:      st.Snapshot.Condition,
		LastError:      st.LastError,
	}

	if st.LastTick.IsZero() {
		health.Status = "starting"
	} else {
		tick := st.LastTick
		health.LastTick = &tick
		age := now.Sub(tick)
		health.AgeSeconds = int(age.Seconds())
		if s.staleAfter > 0 && age > s.staleAfter {
			health.Status = "stale"
		}
	}

	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

type statusResponse struct {
	LastPushedText     string     `json:"last_pushed_text"`
	HasPushed          bool       `json:"has_pushed"`
	LastTick           *time.Time `json:"last_tick,omitempty"`
	LastPushAttempt    *time.Time `json:"last_push_attempt,omitempty"`
	LastWeatherRefresh *time.Time `json:"last_weather_refresh,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	Weather            struct {
		Condition   string   `json:"condition"`
		Temperature *float64 `json:"temperature_c,omitempty"`
		Sunrise     string   `json:"sunrise,omitempty"`
		Sunset      string   `json:"sunset,omitempty"`
		Source      string   `json:"source,omitempty"`
		Placeholder bool     `json:"placeholder"`
	} `json:"weather"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	st := s.state.State()

	var resp statusResponse
	resp.LastPushedText = st.LastPushedText
	resp.HasPushed = st.HasPushed
	resp.LastTick = timePtr(st.LastTick)
	resp.LastPushAttempt = timePtr(st.LastPushAttempt)
	resp.LastWeatherRefresh = timePtr(st.LastWeatherRefresh)
	resp.LastError = st.LastError

	snap := st.Snapshot
	resp.Weather.Condition = snap.Condition
	resp.Weather.Temperature = snap.Temperature
	resp.Weather.Source = snap.Source
	resp.Weather.Placeholder = snap.IsUnknown()
	if snap.Sunrise != nil {
		resp.Weather.Sunrise = snap.Sunrise.String()
	}
	if snap.Sunset != nil {
		resp.Weather.Sunset = snap.Sunset.String()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type historyPush struct {
	Text     string    `json:"text"`
	PushedAt time.Time `json:"pushed_at"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}

type historyFetch struct {
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	Success   bool      `json:"success"`
	Condition string    `json:"condition,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	pushes, err := s.history.RecentPushes(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fetches, err := s.history.RecentFetches(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Pushes  []historyPush  `json:"pushes"`
		Fetches []historyFetch `json:"fetches"`
	}{
		Pushes:  make([]historyPush, 0, len(pushes)),
		Fetches: make([]historyFetch, 0, len(fetches)),
	}
	for _, p := range pushes {
		resp.Pushes = append(resp.Pushes, historyPush{
			Text:     p.Text,
			PushedAt: p.PushedAt,
			Success:  p.Success,
			Error:    p.ErrorMsg.String,
		})
	}
	for _, f := range fetches {
		resp.Fetches = append(resp.Fetches, historyFetch{
			Source:    f.Source,
			StartedAt: f.StartedAt,
			Success:   f.Success,
			Condition: f.Condition.String,
			ErrorKind: f.ErrorKind.String,
			Error:     f.ErrorMsg.String,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}
