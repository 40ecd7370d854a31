// Package warehouse commits normalized weather records to a
// Postgres-compatible analytical warehouse (Redshift speaks the same wire
// protocol). Loads are upserts keyed on (location_name, recorded_at): each
// run stages its rows in a temp table, deletes matching rows from the target,
// and inserts the staged rows, all inside a single transaction so a run is
// committed whole or not at all.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/d1420348/weather-etl/internal/weather"
)

// LoadError kinds, one per failure mode of the warehouse side.
const (
	KindConnect = "connect"
	KindAuth    = "auth"
	KindSchema  = "schema"
	KindWrite   = "write"
)

// LoadError reports why a load failed. A failed load leaves the target
// relation untouched; the transaction is rolled back before this is returned.
type LoadError struct {
	Kind string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: %s: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Config holds warehouse connection parameters.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Table    string
}

// recordColumns is the warehouse column order for one record, shared by the
// staging DDL, the bulk insert and the publish statement.
var recordColumns = []string{
	"recorded_at",
	"location_name",
	"latitude",
	"longitude",
	"temperature_f",
	"humidity_pct",
	"precipitation_in",
	"wind_speed_mph",
	"weather_code",
}

// insertChunkSize bounds the number of rows per staging INSERT so the
// statement stays well under the protocol's parameter limit.
const insertChunkSize = 500

// Postgres implements weather.Warehouse over database/sql with the lib/pq
// driver. The connection is a single scoped resource: opened once, used for
// schema-ensure and the bulk write, and closed by the caller afterwards.
type Postgres struct {
	db    *sql.DB
	table string
}

// Open validates the connection parameters and prepares a handle. The first
// network round trip happens on EnsureSchema.
func Open(cfg Config) (*Postgres, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &LoadError{Kind: KindConnect, Err: err}
	}

	return New(db, cfg.Table), nil
}

// New wraps an existing handle. Used by Open and by tests.
func New(db *sql.DB, table string) *Postgres {
	return &Postgres{db: db, table: table}
}

func (w *Postgres) Close() error {
	return w.db.Close()
}

// EnsureSchema verifies the connection and creates the destination relation
// if it does not exist yet. The surrogate id and the load timestamp live only
// here; the pipeline never generates either.
func (w *Postgres) EnsureSchema(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return classifyConnectError(err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		recorded_at TIMESTAMP NOT NULL,
		location_name TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		temperature_f DOUBLE PRECISION,
		humidity_pct DOUBLE PRECISION,
		precipitation_in DOUBLE PRECISION,
		wind_speed_mph DOUBLE PRECISION,
		weather_code SMALLINT,
		loaded_at TIMESTAMP NOT NULL
	)`, w.table)

	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return &LoadError{Kind: KindSchema, Err: err}
	}
	return nil
}

// LoadRecords commits every record as a row in the destination relation and
// returns the number of rows written. Re-running with an overlapping range
// replaces the overlapping rows rather than duplicating them.
func (w *Postgres) LoadRecords(ctx context.Context, records []weather.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classifyConnectError(err)
	}
	defer tx.Rollback()

	staging := w.table + "_staging"
	cols := strings.Join(recordColumns, ", ")

	createStaging := fmt.Sprintf(`CREATE TEMP TABLE %s (
		recorded_at TIMESTAMP NOT NULL,
		location_name TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		temperature_f DOUBLE PRECISION,
		humidity_pct DOUBLE PRECISION,
		precipitation_in DOUBLE PRECISION,
		wind_speed_mph DOUBLE PRECISION,
		weather_code SMALLINT
	) ON COMMIT DROP`, staging)

	if _, err := tx.ExecContext(ctx, createStaging); err != nil {
		return 0, &LoadError{Kind: KindWrite, Err: err}
	}

	for offset := 0; offset < len(records); offset += insertChunkSize {
		chunk := records[offset:]
		if len(chunk) > insertChunkSize {
			chunk = chunk[:insertChunkSize]
		}
		if err := w.insertChunk(ctx, tx, staging, cols, chunk); err != nil {
			return 0, err
		}
	}

	deleteOverlap := fmt.Sprintf(
		`DELETE FROM %s USING %s WHERE %s.location_name = %s.location_name AND %s.recorded_at = %s.recorded_at`,
		w.table, staging, w.table, staging, w.table, staging,
	)
	if _, err := tx.ExecContext(ctx, deleteOverlap); err != nil {
		return 0, &LoadError{Kind: KindWrite, Err: err}
	}

	publish := fmt.Sprintf(
		`INSERT INTO %s (%s, loaded_at) SELECT %s, $1 FROM %s`,
		w.table, cols, cols, staging,
	)
	res, err := tx.ExecContext(ctx, publish, time.Now().UTC())
	if err != nil {
		return 0, &LoadError{Kind: KindWrite, Err: err}
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, &LoadError{Kind: KindWrite, Err: err}
	}
	if int(count) != len(records) {
		return 0, &LoadError{
			Kind: KindWrite,
			Err:  fmt.Errorf("published %d of %d staged rows", count, len(records)),
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &LoadError{Kind: KindWrite, Err: err}
	}
	return int(count), nil
}

// insertChunk appends one multi-row VALUES insert to the staging table.
func (w *Postgres) insertChunk(ctx context.Context, tx *sql.Tx, staging, cols string, chunk []weather.Record) error {
	width := len(recordColumns)
	valueStrings := make([]string, 0, len(chunk))
	valueArgs := make([]interface{}, 0, len(chunk)*width)

	for i, rec := range chunk {
		placeholders := make([]string, width)
		for j := 0; j < width; j++ {
			placeholders[j] = fmt.Sprintf("$%d", i*width+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			rec.RecordedAt,
			rec.LocationName,
			rec.Latitude,
			rec.Longitude,
			rec.TemperatureF,
			rec.HumidityPct,
			rec.PrecipitationIn,
			rec.WindSpeedMPH,
			rec.WeatherCode,
		)
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		staging, cols, strings.Join(valueStrings, ", "),
	)
	if _, err := tx.ExecContext(ctx, stmt, valueArgs...); err != nil {
		return &LoadError{Kind: KindWrite, Err: err}
	}
	return nil
}

// classifyConnectError separates authentication failures from plain
// connectivity ones. Class 28 covers invalid authorization and bad passwords.
func classifyConnectError(err error) *LoadError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "28") {
		return &LoadError{Kind: KindAuth, Err: err}
	}
	return &LoadError{Kind: KindConnect, Err: err}
}
