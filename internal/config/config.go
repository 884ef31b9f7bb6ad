package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lox/weatherstatus/internal/discord"
	"github.com/lox/weatherstatus/internal/liveness"
	"github.com/lox/weatherstatus/internal/mqtt"
	"github.com/lox/weatherstatus/internal/status"
)

const (
	ProviderWeatherAPI  = "weatherapi"
	ProviderOpenWeather = "openweather"

	PacingFixed   = "fixed"
	PacingAligned = "aligned"
)

// Config holds everything the daemon needs. It is populated by kong from
// flags, environment variables and an optional .env file.
type Config struct {
	Token      string `help:"Chat account credential." env:"DISCORD_TOKEN"`
	AuthScheme string `help:"Optional scheme prefixed to the credential, e.g. Bearer." env:"DISCORD_AUTH_SCHEME"`
	StatusURL  string `help:"Base URL of the status API." env:"STATUS_API_URL" default:"https://discord.com/api/v10"`

	WeatherProvider string  `help:"Weather provider." env:"WEATHER_PROVIDER" default:"weatherapi" enum:"weatherapi,openweather"`
	WeatherAPIKey   string  `help:"Weather API key." env:"WEATHER_API_KEY"`
	WeatherURL      string  `help:"Override the weather provider base URL." env:"WEATHER_API_URL"`
	Latitude        float64 `help:"Latitude of the location." env:"LATITUDE" default:"NaN"`
	Longitude       float64 `help:"Longitude of the location." env:"LONGITUDE" default:"NaN"`
	Timezone        string  `help:"IANA timezone for the displayed time." env:"TIMEZONE" default:"Europe/Berlin"`

	Template string `help:"Status template." env:"STATUS_TEMPLATE" default:"{weather_emoji} | {current_time}"`

	Pacing                 string        `help:"Tick pacing: fixed or aligned." env:"PACING" default:"fixed" enum:"fixed,aligned"`
	TickInterval           time.Duration `help:"Interval between ticks with fixed pacing." env:"TICK_INTERVAL" default:"60s"`
	AlignWindowStart       int           `help:"First second of the minute ticks may fire in with aligned pacing." env:"ALIGN_WINDOW_START" default:"0"`
	AlignWindowEnd         int           `help:"Last second of the minute ticks may fire in with aligned pacing." env:"ALIGN_WINDOW_END" default:"0"`
	AlignStep              time.Duration `help:"Tick step inside the aligned window." env:"ALIGN_STEP" default:"1s"`
	TemperatureWindowStart int           `help:"First second of the minute that shows temperature." env:"TEMPERATURE_WINDOW_START" default:"25"`
	TemperatureWindowEnd   int           `help:"Last second of the minute that shows temperature." env:"TEMPERATURE_WINDOW_END" default:"35"`

	WeatherRefreshInterval time.Duration `help:"Minimum time between weather fetches." env:"WEATHER_REFRESH_INTERVAL" default:"30m"`
	WeatherRetryInterval   time.Duration `help:"Shorter retry interval until the first fetch succeeds (0 disables)." env:"WEATHER_RETRY_INTERVAL" default:"0s"`
	HTTPTimeout            time.Duration `help:"Timeout for outbound HTTP calls." env:"HTTP_TIMEOUT" default:"10s"`

	LivenessFile string `help:"Liveness marker path." env:"LIVENESS_FILE" default:"/tmp/weatherstatus.alive"`

	DBPath      string        `name:"db" help:"SQLite audit history path (disabled when empty)." env:"DB_PATH"`
	DBRetention time.Duration `help:"Audit history retention." env:"DB_RETENTION" default:"720h"`
	Listen      string        `help:"Address for the health and metrics listener (disabled when empty)." env:"LISTEN_ADDR"`

	MQTTBroker      string `name:"mqtt-broker" help:"MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)." env:"MQTT_BROKER"`
	MQTTTopicPrefix string `name:"mqtt-topic-prefix" help:"MQTT topic prefix." env:"MQTT_TOPIC_PREFIX" default:"weatherstatus"`
	MQTTClientID    string `name:"mqtt-client-id" help:"MQTT client ID." env:"MQTT_CLIENT_ID" default:"weatherstatus"`
	MQTTUsername    string `name:"mqtt-username" help:"MQTT username." env:"MQTT_USERNAME"`
	MQTTPassword    string `name:"mqtt-password" help:"MQTT password." env:"MQTT_PASSWORD"`
}

// Default returns a Config with the same defaults kong applies.
func Default() Config {
	return Config{
		StatusURL:              discord.DefaultBaseURL,
		WeatherProvider:        ProviderWeatherAPI,
		Latitude:               math.NaN(),
		Longitude:              math.NaN(),
		Timezone:               status.DefaultTimezone,
		Template:               status.DefaultTemplate,
		Pacing:                 PacingFixed,
		TickInterval:           time.Minute,
		AlignStep:              time.Second,
		TemperatureWindowStart: status.DefaultTemperatureWindow.Start,
		TemperatureWindowEnd:   status.DefaultTemperatureWindow.End,
		WeatherRefreshInterval: status.DefaultRefreshInterval,
		HTTPTimeout:            10 * time.Second,
		LivenessFile:           liveness.DefaultPath,
		DBRetention:            30 * 24 * time.Hour,
		MQTTTopicPrefix:        mqtt.DefaultTopicPrefix,
		MQTTClientID:           mqtt.DefaultClientID,
	}
}

// Validate reports every problem at once so a misconfigured deployment can
// be fixed in one pass.
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateDryRun is Validate without the credential, for runs that never
// push.
func (c *Config) ValidateDryRun() error {
	return c.validate(false)
}

func (c *Config) validate(requireToken bool) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if requireToken && strings.TrimSpace(c.Token) == "" {
		add("missing credential: set --token or DISCORD_TOKEN")
	}
	if strings.TrimSpace(c.WeatherAPIKey) == "" {
		add("missing weather API key: set --weather-api-key or WEATHER_API_KEY")
	}

	switch {
	case math.IsNaN(c.Latitude):
		add("missing latitude: set --latitude or LATITUDE")
	case c.Latitude < -90 || c.Latitude > 90:
		add("latitude %v out of range [-90, 90]", c.Latitude)
	}
	switch {
	case math.IsNaN(c.Longitude):
		add("missing longitude: set --longitude or LONGITUDE")
	case c.Longitude < -180 || c.Longitude > 180:
		add("longitude %v out of range [-180, 180]", c.Longitude)
	}

	switch c.WeatherProvider {
	case ProviderWeatherAPI, ProviderOpenWeather:
	default:
		add("unknown weather provider %q (want %s or %s)", c.WeatherProvider, ProviderWeatherAPI, ProviderOpenWeather)
	}

	if _, err := status.ParseTemplate(c.Template); err != nil {
		errs = append(errs, err)
	}

	for name, raw := range map[string]string{"status URL": c.StatusURL, "weather URL": c.WeatherURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			add("invalid %s %q", name, raw)
		}
	}

	switch c.Pacing {
	case PacingFixed:
		if c.TickInterval <= 0 {
			add("tick interval must be positive, got %s", c.TickInterval)
		}
	case PacingAligned:
		if err := c.AlignWindow().Validate(); err != nil {
			add("align window: %w", err)
		}
		if c.AlignStep <= 0 {
			add("align step must be positive, got %s", c.AlignStep)
		}
	default:
		add("unknown pacing %q (want %s or %s)", c.Pacing, PacingFixed, PacingAligned)
	}

	if err := c.TemperatureWindow().Validate(); err != nil {
		add("temperature window: %w", err)
	}

	if c.WeatherRefreshInterval <= 0 {
		add("weather refresh interval must be positive, got %s", c.WeatherRefreshInterval)
	}
	if c.WeatherRetryInterval < 0 {
		add("weather retry interval must not be negative, got %s", c.WeatherRetryInterval)
	}
	if c.HTTPTimeout <= 0 {
		add("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.LivenessFile == "" {
		add("liveness file path must not be empty")
	}

	return errors.Join(errs...)
}

func (c *Config) AlignWindow() status.SecondWindow {
	return status.SecondWindow{Start: c.AlignWindowStart, End: c.AlignWindowEnd}
}

func (c *Config) TemperatureWindow() status.SecondWindow {
	return status.SecondWindow{Start: c.TemperatureWindowStart, End: c.TemperatureWindowEnd}
}

// Pacer builds the tick pacer for the configured strategy.
func (c *Config) Pacer() status.Pacer {
	if c.Pacing == PacingAligned {
		return status.PhaseAligned{Window: c.AlignWindow(), Step: c.AlignStep}
	}
	return status.FixedInterval{Interval: c.TickInterval}
}

// NominalTickInterval is the longest expected gap between ticks, used for
// liveness and health staleness.
func (c *Config) NominalTickInterval() time.Duration {
	if c.Pacing == PacingAligned {
		return time.Minute
	}
	return c.TickInterval
}

func (c *Config) Location(logger *zap.Logger) *time.Location {
	return status.ResolveLocation(c.Timezone, logger)
}

func (c *Config) MQTT(logger *zap.Logger) mqtt.PublisherConfig {
	return mqtt.PublisherConfig{
		Broker:      c.MQTTBroker,
		ClientID:    c.MQTTClientID,
		Username:    c.MQTTUsername,
		Password:    c.MQTTPassword,
		TopicPrefix: c.MQTTTopicPrefix,
		Logger:      logger,
	}
}
