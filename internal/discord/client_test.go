package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSetStatus(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotContentType string
	var gotBody map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("tok123", "", srv.Client(), DefaultBreakerSettings)
	c.SetBaseURL(srv.URL)

	if err := c.SetStatus(context.Background(), "⛈️ | 14:00"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", gotMethod)
	}
	if gotPath != "/users/@me/settings" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "tok123" {
		t.Errorf("Authorization = %q, want raw token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["custom_status"]["text"] != "⛈️ | 14:00" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSetStatus_AuthScheme(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := NewClient("tok123", "Bearer", srv.Client(), DefaultBreakerSettings)
	c.SetBaseURL(srv.URL)

	if err := c.SetStatus(context.Background(), "x"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
}

func TestSetStatus_Non2xx(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient("tok", "", srv.Client(), DefaultBreakerSettings)
		c.SetBaseURL(srv.URL)

		if err := c.SetStatus(context.Background(), "x"); err == nil {
			t.Errorf("status %d: expected error", status)
		}
		srv.Close()
	}
}

func TestSetStatus_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("tok", "", srv.Client(), BreakerSettings{MaxFailures: 3, OpenTimeout: time.Hour})
	c.SetBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		if err := c.SetStatus(context.Background(), "x"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if !c.BreakerOpen() {
		t.Fatal("expected breaker to be open after 3 failures")
	}

	err := c.SetStatus(context.Background(), "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}
