package models

import "time"

// WeatherSnapshot is the current-conditions card. Values are replaced
// wholesale on every fetch or search.
type WeatherSnapshot struct {
	Location    string  `json:"location"`
	Temperature int     `json:"temperature"`
	Condition   string  `json:"condition"`
	Icon        Icon    `json:"icon"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Pressure    float64 `json:"pressure"`
	UVIndex     int     `json:"uvIndex"`
}

type ForecastEntry struct {
	Day           string `json:"day"`
	High          int    `json:"high"`
	Low           int    `json:"low"`
	Condition     string `json:"condition"`
	Icon          Icon   `json:"icon"`
	Precipitation int    `json:"precipitation"`
}

type Position struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
)

// View is a detached copy of everything the page renders.
type View struct {
	Phase      Phase            `json:"phase"`
	IsLoading  bool             `json:"isLoading"`
	SearchText string           `json:"searchText"`
	Current    *WeatherSnapshot `json:"current,omitempty"`
	Forecast   []ForecastEntry  `json:"forecast"`
	Favorites  []string         `json:"favorites"`
	Theme      Theme            `json:"theme"`
	Version    uint64           `json:"version"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}
