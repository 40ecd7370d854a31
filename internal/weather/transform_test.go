package weather

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }
func cptr(v int16) *int16     { return &v }

// metricUnits is what the archive API reports when queried with its default
// (metric) units.
var metricUnits = HourlyUnits{
	Time:          "iso8601",
	Temperature:   "°C",
	Humidity:      "%",
	Precipitation: "mm",
	WindSpeed:     "km/h",
	WeatherCode:   "wmo code",
}

var testLocation = Location{Name: "Boston, MA", Latitude: 42.36, Longitude: -71.06}

// dayBatch builds a well-formed 24-hour batch for 2025-01-01 with constant
// metric measurements.
func dayBatch() *HourlyBatch {
	b := &HourlyBatch{
		Latitude:  42.36,
		Longitude: -71.06,
		Units:     metricUnits,
	}
	for h := 0; h < 24; h++ {
		b.Time = append(b.Time, fmt.Sprintf("2025-01-01T%02d:00", h))
		b.Temperature = append(b.Temperature, fptr(0))
		b.Humidity = append(b.Humidity, fptr(50))
		b.Precipitation = append(b.Precipitation, fptr(0))
		b.WindSpeed = append(b.WindSpeed, fptr(10))
		b.WeatherCode = append(b.WeatherCode, cptr(0))
	}
	return b
}

func TestTransformFullDay(t *testing.T) {
	records, err := Transform(dayBatch(), testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 24 {
		t.Fatalf("expected 24 records, got %d", len(records))
	}

	for i, rec := range records {
		want := time.Date(2025, 1, 1, i, 0, 0, 0, time.UTC)
		if !rec.RecordedAt.Equal(want) {
			t.Fatalf("record %d: expected recorded_at %v, got %v", i, want, rec.RecordedAt)
		}
		if rec.LocationName != "Boston, MA" {
			t.Errorf("record %d: expected location name Boston, MA, got %q", i, rec.LocationName)
		}
		if rec.Latitude != 42.36 || rec.Longitude != -71.06 {
			t.Errorf("record %d: unexpected coordinates (%v, %v)", i, rec.Latitude, rec.Longitude)
		}
		if rec.TemperatureF == nil || math.Abs(*rec.TemperatureF-32.0) > 1e-9 {
			t.Errorf("record %d: expected temperature 32.0, got %v", i, rec.TemperatureF)
		}
		if rec.HumidityPct == nil || *rec.HumidityPct != 50.0 {
			t.Errorf("record %d: expected humidity 50.0, got %v", i, rec.HumidityPct)
		}
		if rec.PrecipitationIn == nil || *rec.PrecipitationIn != 0.0 {
			t.Errorf("record %d: expected precipitation 0.0, got %v", i, rec.PrecipitationIn)
		}
		if rec.WindSpeedMPH == nil || math.Abs(*rec.WindSpeedMPH-6.21) > 0.01 {
			t.Errorf("record %d: expected wind speed near 6.21, got %v", i, rec.WindSpeedMPH)
		}
		if rec.WeatherCode == nil || *rec.WeatherCode != 0 {
			t.Errorf("record %d: expected weather code 0, got %v", i, rec.WeatherCode)
		}
	}

	// Ascending, no repeats.
	for i := 1; i < len(records); i++ {
		if !records[i].RecordedAt.After(records[i-1].RecordedAt) {
			t.Fatalf("records out of order at index %d", i)
		}
	}
}

func TestTransformUnitConversions(t *testing.T) {
	batch := dayBatch()
	batch.Time = batch.Time[:1]
	batch.Temperature = []*float64{fptr(0)}
	batch.Humidity = []*float64{fptr(50)}
	batch.Precipitation = []*float64{fptr(100)}
	batch.WindSpeed = []*float64{fptr(10)}
	batch.WeatherCode = []*int16{cptr(71)}

	records, err := Transform(batch, testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records[0]

	if math.Abs(*rec.TemperatureF-32.0) > 1e-9 {
		t.Errorf("0°C: expected 32.0°F, got %v", *rec.TemperatureF)
	}
	if math.Abs(*rec.PrecipitationIn-3.937) > 1e-3 {
		t.Errorf("100mm: expected 3.937in, got %v", *rec.PrecipitationIn)
	}
	if math.Abs(*rec.WindSpeedMPH-10.0/1.609) > 1e-9 {
		t.Errorf("10km/h: expected %v mph, got %v", 10.0/1.609, *rec.WindSpeedMPH)
	}
	if *rec.WeatherCode != 71 {
		t.Errorf("expected weather code passed through as 71, got %d", *rec.WeatherCode)
	}
}

func TestTransformImperialPassthrough(t *testing.T) {
	batch := dayBatch()
	batch.Units.Temperature = "°F"
	batch.Units.Precipitation = "inch"
	batch.Units.WindSpeed = "mp/h"
	batch.Time = batch.Time[:1]
	batch.Temperature = []*float64{fptr(32)}
	batch.Humidity = []*float64{fptr(50)}
	batch.Precipitation = []*float64{fptr(1.5)}
	batch.WindSpeed = []*float64{fptr(6.2)}
	batch.WeatherCode = []*int16{cptr(3)}

	records, err := Transform(batch, testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records[0]
	if *rec.TemperatureF != 32 || *rec.PrecipitationIn != 1.5 || *rec.WindSpeedMPH != 6.2 {
		t.Errorf("imperial values must pass through unchanged, got %v %v %v",
			*rec.TemperatureF, *rec.PrecipitationIn, *rec.WindSpeedMPH)
	}
}

func TestTransformNullPropagation(t *testing.T) {
	batch := dayBatch()
	batch.Temperature[7] = nil
	batch.WindSpeed[7] = nil
	batch.WeatherCode[7] = nil

	records, err := Transform(batch, testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 24 {
		t.Fatalf("null values must not drop records, got %d", len(records))
	}

	if records[7].TemperatureF != nil {
		t.Errorf("expected nil temperature at index 7, got %v", *records[7].TemperatureF)
	}
	if records[7].WindSpeedMPH != nil {
		t.Errorf("expected nil wind speed at index 7, got %v", *records[7].WindSpeedMPH)
	}
	if records[7].WeatherCode != nil {
		t.Errorf("expected nil weather code at index 7, got %v", *records[7].WeatherCode)
	}
	if records[6].TemperatureF == nil || records[8].TemperatureF == nil {
		t.Errorf("neighbouring records must keep their values")
	}
}

func TestTransformLengthMismatch(t *testing.T) {
	batch := dayBatch()
	batch.Temperature = batch.Temperature[:23]

	records, err := Transform(batch, testLocation)
	if err == nil {
		t.Fatalf("expected error for 23 temperatures against 24 timestamps, got %d records", len(records))
	}
	var terr *TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransformationError, got %T: %v", err, err)
	}
	if records != nil {
		t.Fatalf("a length mismatch must not yield partial output")
	}
}

func TestTransformBadTimestamp(t *testing.T) {
	batch := dayBatch()
	batch.Time[3] = "not-a-timestamp"

	_, err := Transform(batch, testLocation)
	var terr *TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransformationError, got %T: %v", err, err)
	}
}

func TestTransformUnknownUnit(t *testing.T) {
	batch := dayBatch()
	batch.Units.Temperature = "K"

	_, err := Transform(batch, testLocation)
	var terr *TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransformationError for unknown unit, got %T: %v", err, err)
	}
}

func TestTransformEmptyBatch(t *testing.T) {
	_, err := Transform(&HourlyBatch{}, testLocation)
	var terr *TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransformationError for empty batch, got %T: %v", err, err)
	}
}

func TestTransformRFC3339Timestamp(t *testing.T) {
	batch := dayBatch()
	batch.Time[0] = "2025-01-01T00:00:00Z"

	records, err := Transform(batch, testLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !records[0].RecordedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected recorded_at: %v", records[0].RecordedAt)
	}
}
