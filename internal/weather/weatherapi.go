package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lox/weatherstatus/internal/httputil"
)

const DefaultWeatherAPIURL = "https://api.weatherapi.com/v1"

// WeatherAPI fetches current conditions and today's astronomy from
// WeatherAPI.com.
type WeatherAPI struct {
	apiKey  string
	baseURL string
	lat     float64
	lon     float64
	client  *http.Client
	now     func() time.Time
}

func NewWeatherAPI(apiKey string, lat, lon float64, client *http.Client) *WeatherAPI {
	if client == nil {
		client = httputil.NewClient(0)
	}
	return &WeatherAPI{
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIURL,
		lat:     lat,
		lon:     lon,
		client:  client,
		now:     time.Now,
	}
}

// SetBaseURL overrides the API root, e.g. for a test server.
func (w *WeatherAPI) SetBaseURL(u string) {
	w.baseURL = strings.TrimRight(u, "/")
}

func (w *WeatherAPI) Name() string { return "weatherapi" }

type weatherAPIResponse struct {
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Astro struct {
				Sunrise string `json:"sunrise"`
				Sunset  string `json:"sunset"`
			} `json:"astro"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (w *WeatherAPI) Fetch(ctx context.Context) (Snapshot, error) {
	values := url.Values{}
	values.Set("key", w.apiKey)
	values.Set("q", fmt.Sprintf("%.4f,%.4f", w.lat, w.lon))
	values.Set("days", "1")
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/forecast.json?"+values.Encode(), nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &HTTPError{StatusCode: resp.StatusCode, Body: httputil.BodySnippet(resp)}
	}

	var data weatherAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if data.Current == nil {
		return Snapshot{}, fmt.Errorf("%w: missing current", ErrMalformed)
	}
	condition := strings.TrimSpace(data.Current.Condition.Text)
	if condition == "" {
		return Snapshot{}, fmt.Errorf("%w: missing current.condition.text", ErrMalformed)
	}

	snap := Snapshot{
		Condition:   condition,
		Temperature: data.Current.TempC,
		FetchedAt:   w.now(),
		Source:      w.Name(),
	}

	// Sun times are optional; a missing forecast day leaves them unset.
	if len(data.Forecast.ForecastDay) > 0 {
		astro := data.Forecast.ForecastDay[0].Astro
		if t, ok := ParseTimeOfDay(astro.Sunrise); ok {
			snap.Sunrise = &t
		}
		if t, ok := ParseTimeOfDay(astro.Sunset); ok {
			snap.Sunset = &t
		}
	}

	return Sanitize(snap), nil
}
