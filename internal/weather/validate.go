package weather

import (
	"math"
	"strings"
)

const (
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagSunTimesDuplicate = "sun_times_equal"
)

// Plausible surface air temperature bounds in °C.
const (
	minTempC = -90
	maxTempC = 60
)

// Sanitize drops values no real observation can have and records why in
// s.Flags. Condition text is trimmed.
func Sanitize(s Snapshot) Snapshot {
	s.Condition = strings.TrimSpace(s.Condition)
	s.Flags = nil

	if s.Temperature != nil {
		if t := *s.Temperature; t < minTempC || t > maxTempC || math.IsNaN(t) {
			s.Temperature = nil
			s.Flags = append(s.Flags, FlagTempOutOfRange)
		}
	}

	// Identical sunrise and sunset would make night last a single minute.
	if s.Sunrise != nil && s.Sunset != nil && *s.Sunrise == *s.Sunset {
		s.Sunrise, s.Sunset = nil, nil
		s.Flags = append(s.Flags, FlagSunTimesDuplicate)
	}

	return s
}
