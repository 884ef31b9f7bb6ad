package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lox/weatherstatus/internal/api"
	"github.com/lox/weatherstatus/internal/config"
	"github.com/lox/weatherstatus/internal/discord"
	"github.com/lox/weatherstatus/internal/httputil"
	"github.com/lox/weatherstatus/internal/liveness"
	"github.com/lox/weatherstatus/internal/mqtt"
	"github.com/lox/weatherstatus/internal/status"
	"github.com/lox/weatherstatus/internal/store"
	"github.com/lox/weatherstatus/internal/weather"
)

// staleTicks is how many nominal tick intervals may pass before the health
// listener reports the loop as stalled.
const staleTicks = 3

func newProvider(cfg *config.Config, client *http.Client, loc *time.Location) weather.Provider {
	switch cfg.WeatherProvider {
	case config.ProviderOpenWeather:
		p := weather.NewOpenWeather(cfg.WeatherAPIKey, cfg.Latitude, cfg.Longitude, loc, client)
		if cfg.WeatherURL != "" {
			p.SetBaseURL(cfg.WeatherURL)
		}
		return p
	default:
		p := weather.NewWeatherAPI(cfg.WeatherAPIKey, cfg.Latitude, cfg.Longitude, client)
		if cfg.WeatherURL != "" {
			p.SetBaseURL(cfg.WeatherURL)
		}
		return p
	}
}

func newRefresher(cfg *config.Config, sink status.Sink, marker status.Marker, logger *zap.Logger) (*status.Refresher, error) {
	tmpl, err := status.ParseTemplate(cfg.Template)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location(logger)
	client := httputil.NewClient(cfg.HTTPTimeout)

	provider := newProvider(cfg, client, loc)
	logger.Info("configured",
		zap.String("provider", provider.Name()),
		zap.Float64("latitude", cfg.Latitude),
		zap.Float64("longitude", cfg.Longitude),
		zap.String("timezone", loc.String()),
		zap.String("template", tmpl.String()),
		zap.String("pacing", cfg.Pacing))

	return status.NewRefresher(provider, sink, marker, status.Options{
		Location:          loc,
		Template:          tmpl,
		TemperatureWindow: cfg.TemperatureWindow(),
		RefreshInterval:   cfg.WeatherRefreshInterval,
		RetryInterval:     cfg.WeatherRetryInterval,
		Logger:            logger,
	}), nil
}

func newSink(cfg *config.Config) *discord.Client {
	c := discord.NewClient(cfg.Token, cfg.AuthScheme, httputil.NewClient(cfg.HTTPTimeout), discord.DefaultBreakerSettings)
	c.SetBaseURL(cfg.StatusURL)
	return c
}

func runDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	marker := liveness.NewMarker(cfg.LivenessFile)
	defer func() {
		if err := marker.Remove(); err != nil {
			logger.Warn("remove liveness marker", zap.Error(err))
		}
	}()

	refresher, err := newRefresher(cfg, newSink(cfg), marker, logger)
	if err != nil {
		return err
	}

	var history *store.Store
	if cfg.DBPath != "" {
		st, db, err := store.Open(cfg.DBPath, logger.Named("store"))
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer db.Close()

		if n, err := st.Prune(time.Now(), cfg.DBRetention); err != nil {
			logger.Warn("prune audit history", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned audit history", zap.Int64("rows", n))
		}
		refresher.SetRecorder(st)
		history = st
	}

	publisher, err := mqtt.NewPublisher(cfg.MQTT(logger.Named("mqtt")))
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	defer publisher.Close()
	if publisher.Enabled() {
		refresher.AddMirror(publisher)
	}

	scheduler := status.NewScheduler(refresher, cfg.Pacer(), logger.Named("scheduler"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if cfg.Listen != "" {
		srv := api.NewServer(refresher, cfg.Listen, staleTicks*cfg.NominalTickInterval(), logger.Named("api"))
		if history != nil {
			srv.SetHistory(history)
		}
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("http listener: %w", err)
			}
			return nil
		})
	}

	logger.Info("weatherstatus started")
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("weatherstatus stopped")
	return nil
}

// discardSink accepts every status without sending it anywhere.
type discardSink struct{}

func (discardSink) SetStatus(context.Context, string) error { return nil }

type nopMarker struct{}

func (nopMarker) Touch(time.Time) error { return nil }

func runOnce(ctx context.Context, cfg *config.Config, dryRun bool, logger *zap.Logger) (string, error) {
	var (
		sink   status.Sink   = discardSink{}
		marker status.Marker = nopMarker{}
	)
	if !dryRun {
		sink = newSink(cfg)
		marker = liveness.NewMarker(cfg.LivenessFile)
	}

	refresher, err := newRefresher(cfg, sink, marker, logger)
	if err != nil {
		return "", err
	}
	if err := refresher.Tick(ctx); err != nil {
		return "", err
	}

	st := refresher.State()
	if !st.HasPushed {
		if st.LastError != "" {
			return "", fmt.Errorf("status not applied: %s", st.LastError)
		}
		return "", errors.New("status not applied")
	}
	return st.LastPushedText, nil
}
