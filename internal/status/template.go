package status

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Placeholders understood by Template.
const (
	PlaceholderEmoji             = "weather_emoji"
	PlaceholderTime              = "current_time"
	PlaceholderTemperature       = "temperature"
	PlaceholderCondition         = "condition"
	PlaceholderTimeOrTemperature = "time_or_temperature"
)

// Placeholders lists every supported placeholder name.
var Placeholders = []string{
	PlaceholderEmoji,
	PlaceholderTime,
	PlaceholderTemperature,
	PlaceholderCondition,
	PlaceholderTimeOrTemperature,
}

const DefaultTemplate = "{weather_emoji} | {current_time}"

// Fields are the values substituted into a template.
type Fields struct {
	Emoji       string
	Time        string
	Condition   string
	Temperature *float64
	// ShowTemperature selects the temperature for {time_or_temperature}.
	ShowTemperature bool
}

// Template renders status text from {placeholder} tokens.
type Template struct {
	raw  string
	tmpl *fasttemplate.Template
}

// ParseTemplate compiles s and rejects placeholders outside Placeholders.
func ParseTemplate(s string) (*Template, error) {
	tmpl, err := fasttemplate.NewTemplate(s, "{", "}")
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", s, err)
	}
	t := &Template{raw: s, tmpl: tmpl}

	var unknown []string
	tmpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if !isPlaceholder(tag) {
			unknown = append(unknown, "{"+tag+"}")
		}
		return 0, nil
	})
	if len(unknown) > 0 {
		supported := make([]string, len(Placeholders))
		for i, p := range Placeholders {
			supported[i] = "{" + p + "}"
		}
		sort.Strings(supported)
		return nil, fmt.Errorf("template %q: unknown placeholder(s) %s; supported: %s",
			s, strings.Join(unknown, ", "), strings.Join(supported, ", "))
	}
	return t, nil
}

func (t *Template) String() string { return t.raw }

// Render substitutes f into the template.
func (t *Template) Render(f Fields) (string, error) {
	return t.tmpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		switch tag {
		case PlaceholderEmoji:
			return io.WriteString(w, f.Emoji)
		case PlaceholderTime:
			return io.WriteString(w, f.Time)
		case PlaceholderTemperature:
			return io.WriteString(w, FormatTemperature(f.Temperature))
		case PlaceholderCondition:
			return io.WriteString(w, f.Condition)
		case PlaceholderTimeOrTemperature:
			if f.ShowTemperature && f.Temperature != nil {
				return io.WriteString(w, FormatTemperature(f.Temperature))
			}
			return io.WriteString(w, f.Time)
		default:
			return 0, fmt.Errorf("unknown placeholder {%s}", tag)
		}
	})
}

// FormatTemperature renders a rounded Celsius value, or "" when unknown.
func FormatTemperature(t *float64) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d°C", int(math.Round(*t)))
}

func isPlaceholder(tag string) bool {
	for _, p := range Placeholders {
		if p == tag {
			return true
		}
	}
	return false
}

// SecondWindow is an inclusive range of seconds within a minute.
type SecondWindow struct {
	Start int
	End   int
}

// DefaultTemperatureWindow is when {time_or_temperature} shows the temperature.
var DefaultTemperatureWindow = SecondWindow{Start: 25, End: 35}

func (w SecondWindow) Contains(second int) bool {
	return w.Start <= second && second <= w.End
}

func (w SecondWindow) Validate() error {
	if w.Start < 0 || w.End > 59 || w.Start > w.End {
		return fmt.Errorf("invalid second window [%d, %d]: need 0 <= start <= end <= 59", w.Start, w.End)
	}
	return nil
}
