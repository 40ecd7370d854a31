package weather

import (
	"context"
	"time"
)

// HistorySource abstracts a historical weather data source (e.g. the
// Open-Meteo archive API). Implementations perform a single bounded network
// call per FetchRange and keep no state between calls.
type HistorySource interface {
	Name() string
	FetchRange(ctx context.Context, loc Location, start, end time.Time) (*HourlyBatch, error)
}

// Warehouse is the contract the destination store must satisfy: make sure the
// relation exists, then durably commit a run's records and report how many
// rows were written.
type Warehouse interface {
	EnsureSchema(ctx context.Context) error
	LoadRecords(ctx context.Context, records []Record) (int, error)
}
