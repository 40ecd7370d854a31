package weather

import (
	"time"
)

// Location represents the fixed place a pipeline run ingests history for.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for logging and indexing this location.
func (l Location) Key() string {
	return l.Name
}

// HourlyUnits carries the unit string the source reported for each hourly
// variable. Transform uses these to decide which conversions apply.
type HourlyUnits struct {
	Time          string `json:"time"`
	Temperature   string `json:"temperature_2m"`
	Humidity      string `json:"relative_humidity_2m"`
	Precipitation string `json:"precipitation"`
	WindSpeed     string `json:"wind_speed_10m"`
	WeatherCode   string `json:"weather_code"`
}

// HourlyBatch is the raw extraction result: one timestamp array plus one
// parallel array per measurement, all expected to be of equal length.
// Measurement values are pointers so a null in the source JSON stays
// distinguishable from zero.
type HourlyBatch struct {
	Latitude      float64
	Longitude     float64
	Units         HourlyUnits
	Time          []string
	Temperature   []*float64
	Humidity      []*float64
	Precipitation []*float64
	WindSpeed     []*float64
	WeatherCode   []*int16
}

// Hours returns the number of hourly observations in the batch.
func (b *HourlyBatch) Hours() int {
	return len(b.Time)
}

// Record is one normalized hourly observation, ready to be committed as a
// warehouse row. Constructed by Transform and never mutated afterwards.
type Record struct {
	RecordedAt      time.Time `json:"recordedAt"`
	LocationName    string    `json:"locationName"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	TemperatureF    *float64  `json:"temperatureF"`
	HumidityPct     *float64  `json:"humidityPct"`
	PrecipitationIn *float64  `json:"precipitationIn"`
	WindSpeedMPH    *float64  `json:"windSpeedMph"`
	WeatherCode     *int16    `json:"weatherCode"`
}
