package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lox/weatherstatus/internal/config"
	"github.com/lox/weatherstatus/internal/liveness"
	"github.com/lox/weatherstatus/internal/status"
	"github.com/lox/weatherstatus/internal/weather"
)

type CLI struct {
	LogLevel  string `help:"Log level." env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `help:"Log format." env:"LOG_FORMAT" default:"json" enum:"json,console"`

	Run         RunCmd         `cmd:"" default:"withargs" help:"Run the status daemon."`
	Once        OnceCmd        `cmd:"" help:"Run a single tick and print the status text."`
	Healthcheck HealthcheckCmd `cmd:"" help:"Exit non-zero when the liveness marker is missing or stale."`
	Emoji       EmojiCmd       `cmd:"" help:"Print the emoji for a condition."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("weatherstatus"),
		kong.Description("Keeps a chat custom status in sync with the local weather and time."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	logger, err := newLogger(cli.LogLevel, cli.LogFormat)
	if err != nil {
		kctx.FatalIfErrorf(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(logger)
	kctx.FatalIfErrorf(kctx.Run())
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

type RunCmd struct {
	Config config.Config `embed:""`
}

func (c *RunCmd) Run(ctx context.Context, logger *zap.Logger) error {
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return runDaemon(ctx, &c.Config, logger)
}

type OnceCmd struct {
	Config config.Config `embed:""`

	DryRun bool `help:"Render and print the status without pushing it." env:"DRY_RUN"`
}

func (c *OnceCmd) Run(ctx context.Context, logger *zap.Logger) error {
	validate := c.Config.Validate
	if c.DryRun {
		validate = c.Config.ValidateDryRun
	}
	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	text, err := runOnce(ctx, &c.Config, c.DryRun, logger)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

type HealthcheckCmd struct {
	LivenessFile string        `help:"Liveness marker path." env:"LIVENESS_FILE" default:"/tmp/weatherstatus.alive"`
	MaxAge       time.Duration `help:"Maximum marker age before the process is considered stalled." env:"HEALTHCHECK_MAX_AGE" default:"3m"`
}

func (c *HealthcheckCmd) Run() error {
	if err := liveness.Check(c.LivenessFile, c.MaxAge, time.Now()); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		return err
	}
	fmt.Println("ok")
	return nil
}

type EmojiCmd struct {
	Condition string `arg:"" help:"Condition text, e.g. \"Patchy light rain\"."`
	At        string `help:"Local time of day (HH:MM); defaults to now in --timezone." name:"at"`
	Sunrise   string `help:"Sunrise (HH:MM or 06:45 AM)." default:"06:00"`
	Sunset    string `help:"Sunset (HH:MM or 08:15 PM)." default:"20:00"`
	Timezone  string `help:"IANA timezone for the default time." env:"TIMEZONE" default:"Europe/Berlin"`
}

func (c *EmojiCmd) Run(logger *zap.Logger) error {
	now := weather.At(time.Now().In(status.ResolveLocation(c.Timezone, logger)))
	if c.At != "" {
		t, ok := weather.ParseTimeOfDay(c.At)
		if !ok {
			return fmt.Errorf("invalid --at %q", c.At)
		}
		now = t
	}

	var sunrise, sunset *weather.TimeOfDay
	if t, ok := weather.ParseTimeOfDay(c.Sunrise); ok {
		sunrise = &t
	}
	if t, ok := weather.ParseTimeOfDay(c.Sunset); ok {
		sunset = &t
	}

	rule := status.MatchRule(c.Condition)
	fmt.Printf("%s\t%s\n", status.Emoji(c.Condition, now, sunrise, sunset), rule.Name)
	return nil
}
