// Package export writes an optional Parquet snapshot of a run's normalized
// records, alongside the warehouse load, for file-based analytical tooling.
package export

import (
	"fmt"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/d1420348/weather-etl/internal/weather"
)

// hourlyRow mirrors the warehouse column layout for Parquet serialization.
// Nullable measurements are OPTIONAL columns.
type hourlyRow struct {
	RecordedAt      int64    `parquet:"name=recorded_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	LocationName    string   `parquet:"name=location_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude        float64  `parquet:"name=latitude, type=DOUBLE"`
	Longitude       float64  `parquet:"name=longitude, type=DOUBLE"`
	TemperatureF    *float64 `parquet:"name=temperature_f, type=DOUBLE, repetitiontype=OPTIONAL"`
	HumidityPct     *float64 `parquet:"name=humidity_pct, type=DOUBLE, repetitiontype=OPTIONAL"`
	PrecipitationIn *float64 `parquet:"name=precipitation_in, type=DOUBLE, repetitiontype=OPTIONAL"`
	WindSpeedMPH    *float64 `parquet:"name=wind_speed_mph, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeatherCode     *int32   `parquet:"name=weather_code, type=INT32, repetitiontype=OPTIONAL"`
}

// ParquetExporter writes one snapshot file per run into a fixed directory.
type ParquetExporter struct {
	dir string
}

func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{dir: dir}
}

// Export writes all records to weather_hourly_<runID>.parquet and returns the
// file path.
func (e *ParquetExporter) Export(records []weather.Record, runID string) (string, error) {
	path := filepath.Join(e.dir, fmt.Sprintf("weather_hourly_%s.parquet", runID))

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("create parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(hourlyRow), 4)
	if err != nil {
		fw.Close()
		return "", fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		if err := pw.Write(toRow(rec)); err != nil {
			fw.Close()
			return "", fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return "", fmt.Errorf("finalize parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("close parquet file: %w", err)
	}

	return path, nil
}

func toRow(rec weather.Record) hourlyRow {
	row := hourlyRow{
		RecordedAt:      rec.RecordedAt.UnixMilli(),
		LocationName:    rec.LocationName,
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		TemperatureF:    rec.TemperatureF,
		HumidityPct:     rec.HumidityPct,
		PrecipitationIn: rec.PrecipitationIn,
		WindSpeedMPH:    rec.WindSpeedMPH,
	}
	if rec.WeatherCode != nil {
		code := int32(*rec.WeatherCode)
		row.WeatherCode = &code
	}
	return row
}
