package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d1420348/weather-etl/internal/weather"
	"github.com/sony/gobreaker"
)

// hourlyVariables is the fixed set of hourly measurements requested from the
// archive endpoint, in warehouse column order.
var hourlyVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"precipitation",
	"wind_speed_10m",
	"weather_code",
}

// OpenMeteoArchive implements weather.HistorySource against the Open-Meteo
// historical weather API. No API key is required.
type OpenMeteoArchive struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoArchive(client *http.Client) *OpenMeteoArchive {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo-archive",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoArchive{
		name:    "openmeteo-archive",
		baseURL: "https://archive-api.open-meteo.com/v1/archive",
		client:  client,
		circuit: cb,
	}
}

func (p *OpenMeteoArchive) Name() string {
	return p.name
}

// FetchRange issues one GET covering every hour in [start 00:00, end 23:00]
// and returns the parsed parallel arrays. The call is bounded by the shared
// HTTP client's timeout; there is no retry.
func (p *OpenMeteoArchive) FetchRange(ctx context.Context, loc weather.Location, start, end time.Time) (*weather.HourlyBatch, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	values.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	values.Set("start_date", start.Format("2006-01-02"))
	values.Set("end_date", end.Format("2006-01-02"))
	values.Set("hourly", strings.Join(hourlyVariables, ","))
	values.Set("timezone", "UTC")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, &ExtractionError{Kind: KindNetwork, Err: err}
	}

	resp, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Latitude    float64             `json:"latitude"`
		Longitude   float64             `json:"longitude"`
		HourlyUnits weather.HourlyUnits `json:"hourly_units"`
		Hourly      struct {
			Time          []string   `json:"time"`
			Temperature   []*float64 `json:"temperature_2m"`
			Humidity      []*float64 `json:"relative_humidity_2m"`
			Precipitation []*float64 `json:"precipitation"`
			WindSpeed     []*float64 `json:"wind_speed_10m"`
			WeatherCode   []*int16   `json:"weather_code"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ExtractionError{Kind: KindMalformed, Err: err}
	}

	if len(payload.Hourly.Time) == 0 {
		return nil, &ExtractionError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("response contains no hourly timestamps"),
		}
	}

	return &weather.HourlyBatch{
		Latitude:      payload.Latitude,
		Longitude:     payload.Longitude,
		Units:         payload.HourlyUnits,
		Time:          payload.Hourly.Time,
		Temperature:   payload.Hourly.Temperature,
		Humidity:      payload.Hourly.Humidity,
		Precipitation: payload.Hourly.Precipitation,
		WindSpeed:     payload.Hourly.WindSpeed,
		WeatherCode:   payload.Hourly.WeatherCode,
	}, nil
}
