package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lox/weatherstatus/internal/httputil"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org"

// OpenWeather fetches current conditions from OpenWeatherMap. Sunrise and
// sunset arrive as unix timestamps and are converted to loc.
type OpenWeather struct {
	apiKey  string
	baseURL string
	lat     float64
	lon     float64
	loc     *time.Location
	client  *http.Client
	now     func() time.Time
}

func NewOpenWeather(apiKey string, lat, lon float64, loc *time.Location, client *http.Client) *OpenWeather {
	if client == nil {
		client = httputil.NewClient(0)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OpenWeather{
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		lat:     lat,
		lon:     lon,
		loc:     loc,
		client:  client,
		now:     time.Now,
	}
}

// SetBaseURL overrides the API root, e.g. for a test server.
func (o *OpenWeather) SetBaseURL(u string) {
	o.baseURL = strings.TrimRight(u, "/")
}

func (o *OpenWeather) Name() string { return "openweather" }

type openWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (o *OpenWeather) Fetch(ctx context.Context) (Snapshot, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(o.lat, 'f', 4, 64))
	values.Set("lon", strconv.FormatFloat(o.lon, 'f', 4, 64))
	values.Set("appid", o.apiKey)
	values.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/data/2.5/weather?"+values.Encode(), nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &HTTPError{StatusCode: resp.StatusCode, Body: httputil.BodySnippet(resp)}
	}

	var data openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if len(data.Weather) == 0 {
		return Snapshot{}, fmt.Errorf("%w: missing weather[0]", ErrMalformed)
	}

	condition := strings.TrimSpace(data.Weather[0].Description)
	if condition == "" {
		condition = strings.TrimSpace(data.Weather[0].Main)
	}
	if condition == "" {
		return Snapshot{}, fmt.Errorf("%w: missing weather[0].description", ErrMalformed)
	}

	snap := Snapshot{
		Condition: condition,
		FetchedAt: o.now(),
		Source:    o.Name(),
	}
	if data.Main != nil {
		snap.Temperature = data.Main.Temp
	}
	if data.Sys.Sunrise > 0 {
		t := At(time.Unix(data.Sys.Sunrise, 0).In(o.loc))
		snap.Sunrise = &t
	}
	if data.Sys.Sunset > 0 {
		t := At(time.Unix(data.Sys.Sunset, 0).In(o.loc))
		snap.Sunset = &t
	}

	return Sanitize(snap), nil
}
