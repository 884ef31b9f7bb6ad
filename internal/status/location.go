package status

import (
	"time"

	"go.uber.org/zap"
)

const DefaultTimezone = "Europe/Berlin"

// ResolveLocation loads the named IANA zone. An invalid name is not fatal:
// it logs a warning and falls back to DefaultTimezone, then UTC.
func ResolveLocation(name string, logger *zap.Logger) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	logger.Warn("invalid timezone, using default",
		zap.String("timezone", name),
		zap.String("default", DefaultTimezone),
		zap.Error(err))

	loc, err = time.LoadLocation(DefaultTimezone)
	if err != nil {
		logger.Warn("could not load default timezone, using UTC", zap.Error(err))
		return time.UTC
	}
	return loc
}
