// Package pipeline runs the Extract → Transform → Load sequence. The three
// stages execute strictly in order, each a pure function of its input except
// for Load's committed side effect; an error in any stage aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/d1420348/weather-etl/internal/weather"
)

// Exporter is an optional post-load sink for a run's normalized records.
type Exporter interface {
	Export(records []weather.Record, runID string) (string, error)
}

// RunResult summarizes one completed pipeline run.
type RunResult struct {
	RunID       string           `json:"runId"`
	Location    weather.Location `json:"location"`
	StartDate   string           `json:"startDate"`
	EndDate     string           `json:"endDate"`
	Hours       int              `json:"hours"`
	RowsLoaded  int              `json:"rowsLoaded"`
	ParquetPath string           `json:"parquetPath,omitempty"`
	Duration    time.Duration    `json:"durationNs"`
}

// Pipeline wires a history source to a warehouse sink. It holds no state
// between runs; every invocation is independent.
type Pipeline struct {
	source   weather.HistorySource
	sink     weather.Warehouse
	exporter Exporter // may be nil
}

func New(source weather.HistorySource, sink weather.Warehouse, exporter Exporter) *Pipeline {
	return &Pipeline{
		source:   source,
		sink:     sink,
		exporter: exporter,
	}
}

// Run extracts hourly history for the location and date range, transforms it
// into normalized records, and commits the records to the warehouse. On any
// stage failure the run aborts with that stage's error; nothing is retried
// and no partial result is persisted.
func (p *Pipeline) Run(ctx context.Context, loc weather.Location, start, end time.Time) (*RunResult, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	runID := uuid.NewString()
	began := time.Now()

	log.Printf("INFO: run %s: extracting %s (%.4f, %.4f) from %s to %s via %s",
		runID, loc.Key(), loc.Latitude, loc.Longitude,
		start.Format("2006-01-02"), end.Format("2006-01-02"), p.source.Name())

	batch, err := p.source.FetchRange(ctx, loc, start, end)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	log.Printf("INFO: run %s: extracted %d hourly observations", runID, batch.Hours())

	records, err := weather.Transform(batch, loc)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	log.Printf("INFO: run %s: transformed %d records", runID, len(records))

	if err := p.sink.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	count, err := p.sink.LoadRecords(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	log.Printf("INFO: run %s: loaded %d rows", runID, count)

	result := &RunResult{
		RunID:      runID,
		Location:   loc,
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		Hours:      batch.Hours(),
		RowsLoaded: count,
		Duration:   time.Since(began),
	}

	// The snapshot is best effort: the warehouse commit already succeeded,
	// so an export failure does not fail the run.
	if p.exporter != nil {
		path, err := p.exporter.Export(records, runID)
		if err != nil {
			log.Printf("ERROR: run %s: parquet export failed: %v", runID, err)
		} else {
			result.ParquetPath = path
			log.Printf("INFO: run %s: exported snapshot to %s", runID, path)
		}
	}

	return result, nil
}
