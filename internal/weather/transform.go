package weather

import (
	"fmt"
	"time"
)

// TransformationError reports why a raw batch could not be normalized.
type TransformationError struct {
	Reason string
	Err    error
}

func (e *TransformationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform: %s: %v", e.Reason, e.Err)
	}
	return "transform: " + e.Reason
}

func (e *TransformationError) Unwrap() error {
	return e.Err
}

// timeLayout is the ISO-8601 minute-precision layout Open-Meteo uses for
// hourly timestamps.
const timeLayout = "2006-01-02T15:04"

// Transform normalizes a raw hourly batch into one Record per observation
// hour, attaching the constant location metadata and converting measurement
// units where the source reports metric ones. It is a pure function: order
// and length of the input are preserved, nulls propagate as nil pointers,
// and nothing is filtered or deduplicated.
func Transform(batch *HourlyBatch, loc Location) ([]Record, error) {
	if batch == nil || len(batch.Time) == 0 {
		return nil, &TransformationError{Reason: "batch has no hourly timestamps"}
	}

	n := len(batch.Time)
	for name, l := range map[string]int{
		"temperature_2m":       len(batch.Temperature),
		"relative_humidity_2m": len(batch.Humidity),
		"precipitation":        len(batch.Precipitation),
		"wind_speed_10m":       len(batch.WindSpeed),
		"weather_code":         len(batch.WeatherCode),
	} {
		if l != n {
			return nil, &TransformationError{
				Reason: fmt.Sprintf("measurement array %s has %d entries, want %d", name, l, n),
			}
		}
	}

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		ts, err := parseTimestamp(batch.Time[i])
		if err != nil {
			return nil, &TransformationError{
				Reason: fmt.Sprintf("unparseable timestamp at index %d", i),
				Err:    err,
			}
		}

		temp, err := toFahrenheit(batch.Temperature[i], batch.Units.Temperature)
		if err != nil {
			return nil, err
		}
		precip, err := toInches(batch.Precipitation[i], batch.Units.Precipitation)
		if err != nil {
			return nil, err
		}
		wind, err := toMPH(batch.WindSpeed[i], batch.Units.WindSpeed)
		if err != nil {
			return nil, err
		}

		records = append(records, Record{
			RecordedAt:      ts,
			LocationName:    loc.Name,
			Latitude:        loc.Latitude,
			Longitude:       loc.Longitude,
			TemperatureF:    temp,
			HumidityPct:     copyValue(batch.Humidity[i]),
			PrecipitationIn: precip,
			WindSpeedMPH:    wind,
			WeatherCode:     copyCode(batch.WeatherCode[i]),
		})
	}

	return records, nil
}

// parseTimestamp accepts Open-Meteo's minute-precision layout and falls back
// to RFC3339 for sources that include seconds and an offset.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(timeLayout, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

func toFahrenheit(v *float64, unit string) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	switch unit {
	case "°F", "fahrenheit":
		out := *v
		return &out, nil
	case "°C", "celsius", "":
		out := *v*9/5 + 32
		return &out, nil
	default:
		return nil, &TransformationError{Reason: "unsupported temperature unit " + unit}
	}
}

func toInches(v *float64, unit string) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	switch unit {
	case "inch":
		out := *v
		return &out, nil
	case "mm", "":
		out := *v / 25.4
		return &out, nil
	default:
		return nil, &TransformationError{Reason: "unsupported precipitation unit " + unit}
	}
}

func toMPH(v *float64, unit string) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	switch unit {
	case "mp/h", "mph":
		out := *v
		return &out, nil
	case "km/h", "kmh", "":
		out := *v / 1.609
		return &out, nil
	default:
		return nil, &TransformationError{Reason: "unsupported wind speed unit " + unit}
	}
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyCode(v *int16) *int16 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
