package status

import (
	"strings"

	"github.com/lox/weatherstatus/internal/weather"
)

// Glyphs used in the status text.
const (
	GlyphSun       = "☀️"
	GlyphMoon      = "🌙"
	GlyphPartly    = "⛅"
	GlyphCloud     = "☁️"
	GlyphRain      = "🌧️"
	GlyphThunder   = "⛈️"
	GlyphSnow      = "❄️"
	GlyphFog       = "🌫️"
	GlyphSleet     = "🌨️"
	GlyphTornado   = "🌪️"
	GlyphHurricane = "🌀"
	GlyphDust      = "🏜️"
	GlyphSmoke     = "💨"
	GlyphRainbow   = "🌈"
	GlyphNightSky  = "🌌"
)

// EmojiRule maps condition keywords to a glyph. Rules with a distinct Night
// glyph switch on whether the sun is up.
type EmojiRule struct {
	Name     string
	Keywords []string
	Day      string
	Night    string
}

func (r EmojiRule) matches(lower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// EmojiRules is evaluated in order; the first match wins. "partly cloudy"
// must stay ahead of "cloud" and "clear" ahead of everything else.
var EmojiRules = []EmojiRule{
	{Name: "clear", Keywords: []string{"clear", "sunny"}, Day: GlyphSun, Night: GlyphMoon},
	{Name: "partly_cloudy", Keywords: []string{"partly cloudy"}, Day: GlyphPartly, Night: GlyphPartly},
	{Name: "cloudy", Keywords: []string{"cloud", "overcast"}, Day: GlyphCloud, Night: GlyphCloud},
	{Name: "rain", Keywords: []string{"rain", "drizzle"}, Day: GlyphRain, Night: GlyphRain},
	{Name: "thunderstorm", Keywords: []string{"thunder"}, Day: GlyphThunder, Night: GlyphThunder},
	{Name: "snow", Keywords: []string{"snow"}, Day: GlyphSnow, Night: GlyphSnow},
	{Name: "fog", Keywords: []string{"mist", "fog", "haze"}, Day: GlyphFog, Night: GlyphFog},
	{Name: "sleet", Keywords: []string{"hail", "sleet", "blizzard", "ice pellets"}, Day: GlyphSleet, Night: GlyphSleet},
	{Name: "tornado", Keywords: []string{"tornado"}, Day: GlyphTornado, Night: GlyphTornado},
	{Name: "hurricane", Keywords: []string{"hurricane", "cyclone", "typhoon"}, Day: GlyphHurricane, Night: GlyphHurricane},
	{Name: "dust", Keywords: []string{"sand", "dust"}, Day: GlyphDust, Night: GlyphDust},
	{Name: "smoke", Keywords: []string{"smoke"}, Day: GlyphSmoke, Night: GlyphSmoke},
}

// FallbackRule applies when no rule matches.
var FallbackRule = EmojiRule{Name: "fallback", Day: GlyphRainbow, Night: GlyphNightSky}

// MatchRule returns the first rule whose keywords occur in condition,
// ignoring case, or FallbackRule.
func MatchRule(condition string) EmojiRule {
	lower := strings.ToLower(condition)
	for _, r := range EmojiRules {
		if r.matches(lower) {
			return r
		}
	}
	return FallbackRule
}

// Emoji resolves the glyph for condition at local time now.
func Emoji(condition string, now weather.TimeOfDay, sunrise, sunset *weather.TimeOfDay) string {
	r := MatchRule(condition)
	if IsDaytime(now, sunrise, sunset) {
		return r.Day
	}
	return r.Night
}

// IsDaytime reports whether now lies within [sunrise, sunset], both ends
// inclusive. A sunset earlier than sunrise means the day spans midnight in
// the displayed timezone. Without both sun times it is always day.
func IsDaytime(now weather.TimeOfDay, sunrise, sunset *weather.TimeOfDay) bool {
	if sunrise == nil || sunset == nil {
		return true
	}
	m, rise, set := now.Minutes(), sunrise.Minutes(), sunset.Minutes()
	if set < rise {
		return m >= rise || m <= set
	}
	return rise <= m && m <= set
}
