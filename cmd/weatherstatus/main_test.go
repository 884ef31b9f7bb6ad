package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/config"
)

const forecastBody = `{
	"current": {"temp_c": 21.3, "condition": {"text": "Thunderstorm"}},
	"forecast": {"forecastday": [{"astro": {"sunrise": "06:00 AM", "sunset": "08:00 PM"}}]}
}`

func weatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, weatherURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.WeatherAPIKey = "key"
	cfg.WeatherURL = weatherURL
	cfg.Latitude = 52.52
	cfg.Longitude = 13.405
	cfg.Template = "{weather_emoji} {condition}"
	cfg.LivenessFile = filepath.Join(t.TempDir(), "alive")
	return &cfg
}

func TestRunOnce_DryRun(t *testing.T) {
	cfg := testConfig(t, weatherServer(t).URL)
	if err := cfg.ValidateDryRun(); err != nil {
		t.Fatalf("ValidateDryRun: %v", err)
	}

	text, err := runOnce(context.Background(), cfg, true, zap.NewNop())
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if text != "⛈️ Thunderstorm" {
		t.Errorf("text = %q, want %q", text, "⛈️ Thunderstorm")
	}
	if _, err := os.Stat(cfg.LivenessFile); !os.IsNotExist(err) {
		t.Error("dry run should not touch the liveness marker")
	}
}

func TestRunOnce_Push(t *testing.T) {
	var gotAuth, gotText string
	statusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			CustomStatus struct {
				Text string `json:"text"`
			} `json:"custom_status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotText = body.CustomStatus.Text
		w.WriteHeader(http.StatusOK)
	}))
	defer statusSrv.Close()

	cfg := testConfig(t, weatherServer(t).URL)
	cfg.Token = "secret"
	cfg.StatusURL = statusSrv.URL

	text, err := runOnce(context.Background(), cfg, false, zap.NewNop())
	if err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if gotAuth != "secret" {
		t.Errorf("Authorization = %q, want secret", gotAuth)
	}
	if gotText != text {
		t.Errorf("pushed %q, returned %q", gotText, text)
	}
	if _, err := os.Stat(cfg.LivenessFile); err != nil {
		t.Errorf("liveness marker not written: %v", err)
	}
}

func TestRunOnce_PushFails(t *testing.T) {
	statusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "401: Unauthorized", http.StatusUnauthorized)
	}))
	defer statusSrv.Close()

	cfg := testConfig(t, weatherServer(t).URL)
	cfg.Token = "revoked"
	cfg.StatusURL = statusSrv.URL

	if _, err := runOnce(context.Background(), cfg, false, zap.NewNop()); err == nil {
		t.Fatal("expected error when the push is rejected")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := newLogger("debug", format)
		if err != nil {
			t.Fatalf("newLogger(%s): %v", format, err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Errorf("%s logger should enable debug", format)
		}
	}
	if _, err := newLogger("loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRunDaemon_ShutdownRemovesMarker(t *testing.T) {
	pushed := make(chan struct{}, 1)
	statusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		select {
		case pushed <- struct{}{}:
		default:
		}
	}))
	defer statusSrv.Close()

	cfg := testConfig(t, weatherServer(t).URL)
	cfg.Token = "secret"
	cfg.StatusURL = statusSrv.URL

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runDaemon(ctx, cfg, zap.NewNop()) }()

	select {
	case <-pushed:
	case err := <-done:
		t.Fatalf("runDaemon returned before the first push: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no status pushed")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(cfg.LivenessFile); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("liveness marker not written")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runDaemon after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runDaemon did not return after cancel")
	}

	if _, err := os.Stat(cfg.LivenessFile); !os.IsNotExist(err) {
		t.Errorf("liveness marker still present after shutdown: %v", err)
	}
}
