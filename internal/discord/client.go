// Package discord applies text to the account's custom status.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/weatherstatus/internal/httputil"
)

const DefaultBaseURL = "https://discord.com/api/v10"

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("discord: status endpoint unavailable")

// Client updates the custom status of the account that owns the token.
type Client struct {
	token      string
	authScheme string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// BreakerSettings controls when consecutive failures stop further calls.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	MaxFailures: 5,
	OpenTimeout: time.Minute,
}

// NewClient creates a status client. authScheme is prepended to the token in
// the Authorization header when set (e.g. "Bearer" or "Bot").
func NewClient(token, authScheme string, httpClient *http.Client, bs BreakerSettings) *Client {
	if httpClient == nil {
		httpClient = httputil.NewClient(0)
	}
	if bs.MaxFailures == 0 {
		bs.MaxFailures = DefaultBreakerSettings.MaxFailures
	}
	maxFailures := bs.MaxFailures

	return &Client{
		token:      token,
		authScheme: authScheme,
		baseURL:    DefaultBaseURL,
		httpClient: httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "discord-status",
			Timeout: bs.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
		}),
	}
}

// SetBaseURL overrides the API root, e.g. for a test server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

type settingsPatch struct {
	CustomStatus customStatus `json:"custom_status"`
}

type customStatus struct {
	Text string `json:"text"`
}

// SetStatus replaces the custom status text. Any non-2xx response is an error.
func (c *Client) SetStatus(ctx context.Context, text string) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.patch(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// BreakerOpen reports whether calls are currently being rejected.
func (c *Client) BreakerOpen() bool {
	return c.breaker.State() == gobreaker.StateOpen
}

func (c *Client) patch(ctx context.Context, text string) error {
	body, err := json.Marshal(settingsPatch{CustomStatus: customStatus{Text: text}})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/users/@me/settings", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "WeatherStatus/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("patch status: status %d: %s", resp.StatusCode, httputil.BodySnippet(resp))
	}
	return nil
}

func (c *Client) authorization() string {
	if c.authScheme == "" {
		return c.token
	}
	return c.authScheme + " " + c.token
}
