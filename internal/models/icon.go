package models

import "fmt"

// Icon is the closed set of glyphs the page knows how to draw.
type Icon uint8

const (
	IconUnknown Icon = iota
	IconSun
	IconCloud
	IconCloudRain
	IconCloudSun
	IconHeart
	IconDroplets
	IconWind
	IconGauge
	IconMapPin
	IconSearch
)

var iconNames = [...]string{
	IconUnknown:   "",
	IconSun:       "Sun",
	IconCloud:     "Cloud",
	IconCloudRain: "CloudRain",
	IconCloudSun:  "CloudSun",
	IconHeart:     "Heart",
	IconDroplets:  "Droplets",
	IconWind:      "Wind",
	IconGauge:     "Gauge",
	IconMapPin:    "MapPin",
	IconSearch:    "Search",
}

var iconGlyphs = [...]string{
	IconUnknown:   "",
	IconSun:       "☀️",
	IconCloud:     "☁️",
	IconCloudRain: "🌧️",
	IconCloudSun:  "⛅",
	IconHeart:     "♥",
	IconDroplets:  "💧",
	IconWind:      "💨",
	IconGauge:     "⏲",
	IconMapPin:    "📍",
	IconSearch:    "🔍",
}

func (i Icon) Valid() bool {
	return i > IconUnknown && int(i) < len(iconNames)
}

func (i Icon) String() string {
	if !i.Valid() {
		return fmt.Sprintf("Icon(%d)", uint8(i))
	}
	return iconNames[i]
}

// Glyph returns the character used when rendering the icon as text.
func (i Icon) Glyph() string {
	if !i.Valid() {
		return ""
	}
	return iconGlyphs[i]
}

func ParseIcon(name string) (Icon, error) {
	for i := IconSun; int(i) < len(iconNames); i++ {
		if iconNames[i] == name {
			return i, nil
		}
	}
	return IconUnknown, fmt.Errorf("unknown icon %q", name)
}

func (i Icon) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid icon %d", uint8(i))
	}
	return []byte(iconNames[i]), nil
}

func (i *Icon) UnmarshalText(b []byte) error {
	parsed, err := ParseIcon(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
