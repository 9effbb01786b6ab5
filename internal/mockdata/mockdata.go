package mockdata

import (
	"math/rand/v2"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

const (
	MinSearchTemp = 5
	MaxSearchTemp = 34
)

// TemperatureSource yields integers in [0, n).
type TemperatureSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the process-wide math/rand/v2 generator.
var DefaultSource TemperatureSource = globalRand{}

func Current() models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Location:    "Москва",
		Temperature: 24,
		Condition:   "Солнечно",
		Icon:        models.IconSun,
		Humidity:    45,
		WindSpeed:   12,
		Pressure:    1013,
		UVIndex:     6,
	}
}

// Forecast returns a fresh copy of the fixed week, starting today.
func Forecast() []models.ForecastEntry {
	return []models.ForecastEntry{
		{Day: "Сегодня", High: 24, Low: 15, Condition: "Солнечно", Icon: models.IconSun, Precipitation: 0},
		{Day: "Завтра", High: 22, Low: 14, Condition: "Облачно", Icon: models.IconCloud, Precipitation: 20},
		{Day: "Ср", High: 18, Low: 12, Condition: "Дождь", Icon: models.IconCloudRain, Precipitation: 80},
		{Day: "Чт", High: 20, Low: 13, Condition: "Переменно", Icon: models.IconCloudSun, Precipitation: 30},
		{Day: "Пт", High: 25, Low: 16, Condition: "Солнечно", Icon: models.IconSun, Precipitation: 10},
		{Day: "Сб", High: 27, Low: 18, Condition: "Солнечно", Icon: models.IconSun, Precipitation: 5},
		{Day: "Вс", High: 23, Low: 15, Condition: "Облачно", Icon: models.IconCloud, Precipitation: 40},
	}
}

// ForCity copies the current template under a new name with a random
// temperature in [MinSearchTemp, MaxSearchTemp].
func ForCity(city string, src TemperatureSource) models.WeatherSnapshot {
	if src == nil {
		src = DefaultSource
	}
	w := Current()
	w.Location = city
	w.Temperature = MinSearchTemp + src.IntN(MaxSearchTemp-MinSearchTemp+1)
	return w
}
