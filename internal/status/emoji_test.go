package status

import (
	"testing"

	"github.com/lox/weatherstatus/internal/weather"
)

func tod(h, m int) weather.TimeOfDay { return weather.TimeOfDay{Hour: h, Minute: m} }

func todPtr(h, m int) *weather.TimeOfDay {
	t := tod(h, m)
	return &t
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		condition string
		want      string
	}{
		{"Clear", "clear"},
		{"Sunny", "clear"},
		{"Partly cloudy", "partly_cloudy"},
		{"Cloudy", "cloudy"},
		{"Overcast", "cloudy"},
		{"overcast clouds", "cloudy"},
		{"Light rain", "rain"},
		{"Patchy light drizzle", "rain"},
		{"Light rain shower", "rain"},
		{"Thunderstorm", "thunderstorm"},
		{"Thundery outbreaks possible", "thunderstorm"},
		{"Moderate snow", "snow"},
		{"Light snow showers", "snow"},
		{"Mist", "fog"},
		{"Freezing fog", "fog"},
		{"Light sleet", "sleet"},
		{"Blizzard", "sleet"},
		{"Moderate or heavy showers of ice pellets", "sleet"},
		{"Hail", "sleet"},
		{"Tornado", "tornado"},
		{"Hurricane", "hurricane"},
		{"Sand", "dust"},
		{"dust whirls", "dust"},
		{"Smoke", "smoke"},
		{"Squalls", "fallback"},
		{"", "fallback"},
		{weather.UnknownCondition, "fallback"},
	}

	for _, tt := range tests {
		if got := MatchRule(tt.condition).Name; got != tt.want {
			t.Errorf("MatchRule(%q) = %s, want %s", tt.condition, got, tt.want)
		}
	}
}

func TestMatchRule_FirstMatchWins(t *testing.T) {
	// "partly cloudy" also contains "cloud"; the earlier rule must win.
	if got := MatchRule("PARTLY CLOUDY").Name; got != "partly_cloudy" {
		t.Errorf("MatchRule(PARTLY CLOUDY) = %s, want partly_cloudy", got)
	}
	// Rain precedes thunderstorm in the table.
	if got := MatchRule("Patchy light rain with thunder").Name; got != "rain" {
		t.Errorf("MatchRule(rain with thunder) = %s, want rain", got)
	}
}

func TestEmoji_RainIgnoresTimeOfDay(t *testing.T) {
	for _, cond := range []string{"rain", "Light RAIN", "Drizzle", "freezing drizzle", "Heavy rain at times"} {
		for _, now := range []weather.TimeOfDay{tod(3, 0), tod(12, 0), tod(23, 59)} {
			if got := Emoji(cond, now, todPtr(6, 0), todPtr(20, 0)); got != GlyphRain {
				t.Errorf("Emoji(%q, %s) = %s, want %s", cond, now, got, GlyphRain)
			}
		}
	}
}

func TestEmoji_ClearDayNight(t *testing.T) {
	sunrise, sunset := todPtr(6, 0), todPtr(20, 0)

	tests := []struct {
		now  weather.TimeOfDay
		want string
	}{
		{tod(10, 0), GlyphSun},
		{tod(22, 0), GlyphMoon},
		{tod(5, 59), GlyphMoon},
		{tod(6, 0), GlyphSun},
		{tod(20, 0), GlyphSun},
		{tod(20, 1), GlyphMoon},
	}
	for _, tt := range tests {
		if got := Emoji("Clear", tt.now, sunrise, sunset); got != tt.want {
			t.Errorf("Emoji(Clear, %s) = %s, want %s", tt.now, got, tt.want)
		}
	}
}

func TestEmoji_NoSunTimesIsDay(t *testing.T) {
	for _, now := range []weather.TimeOfDay{tod(0, 0), tod(3, 0), tod(23, 0)} {
		if got := Emoji("Clear", now, nil, nil); got != GlyphSun {
			t.Errorf("Emoji(Clear, %s, no sun) = %s, want %s", now, got, GlyphSun)
		}
		if got := Emoji("Clear", now, todPtr(6, 0), nil); got != GlyphSun {
			t.Errorf("Emoji(Clear, %s, no sunset) = %s, want %s", now, got, GlyphSun)
		}
		if got := Emoji("strange", now, nil, nil); got != GlyphRainbow {
			t.Errorf("Emoji(strange, %s, no sun) = %s, want %s", now, got, GlyphRainbow)
		}
	}
}

func TestEmoji_FallbackDayNight(t *testing.T) {
	if got := Emoji("Squalls", tod(12, 0), todPtr(6, 0), todPtr(20, 0)); got != GlyphRainbow {
		t.Errorf("fallback by day = %s, want %s", got, GlyphRainbow)
	}
	if got := Emoji("Squalls", tod(23, 0), todPtr(6, 0), todPtr(20, 0)); got != GlyphNightSky {
		t.Errorf("fallback by night = %s, want %s", got, GlyphNightSky)
	}
}

func TestEmoji_Thunderstorm(t *testing.T) {
	if got := Emoji("Thunderstorm", tod(14, 0), todPtr(6, 0), todPtr(20, 0)); got != "⛈️" {
		t.Errorf("Emoji(Thunderstorm) = %q, want ⛈️", got)
	}
}

// Earlier rules shadow rain when a condition names both, so mixed
// conditions keep the day/night glyph of the earlier rule.
func TestEmoji_EarlierRuleShadowsRain(t *testing.T) {
	sunrise, sunset := todPtr(6, 0), todPtr(20, 0)

	tests := []struct {
		cond string
		now  weather.TimeOfDay
		want string
	}{
		{"Sunny intervals and rain", tod(12, 0), GlyphSun},
		{"Sunny intervals and rain", tod(23, 0), GlyphMoon},
		{"Clear, drizzle later", tod(3, 0), GlyphMoon},
		{"Cloudy, drizzle", tod(12, 0), GlyphCloud},
		{"Overcast with light rain", tod(23, 0), GlyphCloud},
		{"Light rain", tod(23, 0), GlyphRain},
	}
	for _, tt := range tests {
		if got := Emoji(tt.cond, tt.now, sunrise, sunset); got != tt.want {
			t.Errorf("Emoji(%q, %s) = %s, want %s", tt.cond, tt.now, got, tt.want)
		}
	}
}

func TestIsDaytime_WrappedInterval(t *testing.T) {
	// Sun times shifted past midnight by the display timezone.
	sunrise, sunset := todPtr(13, 0), todPtr(2, 0)

	tests := []struct {
		now  weather.TimeOfDay
		want bool
	}{
		{tod(13, 0), true},
		{tod(18, 0), true},
		{tod(0, 0), true},
		{tod(1, 0), true},
		{tod(2, 0), true},
		{tod(2, 1), false},
		{tod(10, 0), false},
		{tod(12, 59), false},
	}
	for _, tt := range tests {
		if got := IsDaytime(tt.now, sunrise, sunset); got != tt.want {
			t.Errorf("IsDaytime(%s, 13:00, 02:00) = %v, want %v", tt.now, got, tt.want)
		}
	}
	if got := Emoji("Clear", tod(18, 0), sunrise, sunset); got != GlyphSun {
		t.Errorf("Emoji(Clear, 18:00, wrapped) = %s, want %s", got, GlyphSun)
	}
}
