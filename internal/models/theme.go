package models

import "time"

// Theme selects the page gradient from the local time of day.
type Theme string

const (
	ThemeMorning Theme = "morning"
	ThemeDay     Theme = "day"
	ThemeEvening Theme = "evening"
)

func ThemeAt(t time.Time) Theme {
	h := t.Hour()
	switch {
	case h >= 6 && h < 12:
		return ThemeMorning
	case h >= 12 && h < 18:
		return ThemeDay
	default:
		return ThemeEvening
	}
}

// Gradient returns the start and end colours of the background.
func (t Theme) Gradient() (from, to string) {
	switch t {
	case ThemeMorning:
		return "#f97316", "#facc15"
	case ThemeDay:
		return "#3b82f6", "#7dd3fc"
	default:
		return "#7c3aed", "#f97316"
	}
}
