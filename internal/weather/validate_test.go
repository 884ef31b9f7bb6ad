package weather

import (
	"math"
	"slices"
	"testing"
)

func TestSanitize(t *testing.T) {
	ptr := func(f float64) *float64 { return &f }
	six := &TimeOfDay{Hour: 6}

	tests := []struct {
		name      string
		in        Snapshot
		wantTemp  bool
		wantSun   bool
		wantFlags []string
	}{
		{
			name:     "plausible",
			in:       Snapshot{Condition: " Sunny ", Temperature: ptr(21.5), Sunrise: six, Sunset: &TimeOfDay{Hour: 20}},
			wantTemp: true,
			wantSun:  true,
		},
		{
			name:      "sensor glitch",
			in:        Snapshot{Condition: "Sunny", Temperature: ptr(-999)},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "NaN temperature",
			in:        Snapshot{Condition: "Sunny", Temperature: ptr(math.NaN())},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "equal sun times",
			in:        Snapshot{Condition: "Sunny", Temperature: ptr(10), Sunrise: six, Sunset: six},
			wantTemp:  true,
			wantFlags: []string{FlagSunTimesDuplicate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			if got.Condition != "Sunny" {
				t.Errorf("Condition = %q, want Sunny", got.Condition)
			}
			if (got.Temperature != nil) != tt.wantTemp {
				t.Errorf("Temperature kept = %v, want %v", got.Temperature != nil, tt.wantTemp)
			}
			if (got.Sunrise != nil) != tt.wantSun {
				t.Errorf("sun times kept = %v, want %v", got.Sunrise != nil, tt.wantSun)
			}
			if !slices.Equal(got.Flags, tt.wantFlags) {
				t.Errorf("Flags = %v, want %v", got.Flags, tt.wantFlags)
			}
		})
	}
}
