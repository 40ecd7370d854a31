package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/d1420348/weather-etl/internal/warehouse"
	"github.com/d1420348/weather-etl/internal/weather"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// AppConfig is the immutable run configuration, read once at startup and
// passed explicitly into each stage. Nothing here is ambient global state.
type AppConfig struct {
	// Location and date range to ingest.
	LocationName string    `validate:"required"`
	Latitude     float64   `validate:"latitude"`
	Longitude    float64   `validate:"longitude"`
	StartDate    time.Time `validate:"required"`
	EndDate      time.Time `validate:"required,gtefield=StartDate"`

	// HTTPTimeout bounds the single outbound extraction call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Warehouse connection parameters.
	WarehouseHost     string `validate:"required"`
	WarehousePort     int    `validate:"gt=0"`
	WarehouseDB       string `validate:"required"`
	WarehouseUser     string `validate:"required"`
	WarehousePassword string
	WarehouseSSLMode  string `validate:"required"`
	WarehouseTable    string `validate:"required"`

	// ParquetExportDir enables a per-run Parquet snapshot when non-empty.
	ParquetExportDir string

	// Serve mode: HTTP port and optional catch-up schedule (0 = disabled).
	Port          string
	FetchSchedule time.Duration
}

// Location assembles the constant location metadata attached to every record.
func (c *AppConfig) Location() weather.Location {
	return weather.Location{
		Name:      c.LocationName,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

// Warehouse assembles the loader's connection config.
func (c *AppConfig) Warehouse() warehouse.Config {
	return warehouse.Config{
		Host:     c.WarehouseHost,
		Port:     c.WarehousePort,
		Database: c.WarehouseDB,
		User:     c.WarehouseUser,
		Password: c.WarehousePassword,
		SSLMode:  c.WarehouseSSLMode,
		Table:    c.WarehouseTable,
	}
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.LocationName = getenvDefault("WEATHER_LOCATION_NAME", "Boston, MA")

	lat, lon, err := loadCoordinates(cfg.LocationName)
	if err != nil {
		return nil, err
	}
	cfg.Latitude = lat
	cfg.Longitude = lon

	// Date range: default to the previous UTC day, the smallest complete
	// range the archive can serve.
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)

	cfg.StartDate, err = parseDate(getenvDefault("WEATHER_START_DATE", yesterday))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_START_DATE: %w", err)
	}
	cfg.EndDate, err = parseDate(getenvDefault("WEATHER_END_DATE", yesterday))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_END_DATE: %w", err)
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	cfg.HTTPTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg.WarehouseHost = os.Getenv("WAREHOUSE_HOST")
	cfg.WarehousePort = getenvInt("WAREHOUSE_PORT", 5439)
	cfg.WarehouseDB = os.Getenv("WAREHOUSE_DB")
	cfg.WarehouseUser = os.Getenv("WAREHOUSE_USER")
	cfg.WarehousePassword = os.Getenv("WAREHOUSE_PASSWORD")
	cfg.WarehouseSSLMode = getenvDefault("WAREHOUSE_SSLMODE", "require")
	cfg.WarehouseTable = getenvDefault("WAREHOUSE_TABLE", "weather_hourly")

	cfg.ParquetExportDir = os.Getenv("PARQUET_EXPORT_DIR")
	cfg.Port = getenvDefault("PORT", "8080")

	if scheduleStr := os.Getenv("FETCH_SCHEDULE"); scheduleStr != "" {
		cfg.FetchSchedule, err = time.ParseDuration(scheduleStr)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_SCHEDULE: %w", err)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadCoordinates prefers explicit WEATHER_LATITUDE/WEATHER_LONGITUDE, falls
// back to geocoding the location name when a GEOCODER_API_KEY is configured,
// and otherwise uses the default location's coordinates.
func loadCoordinates(locationName string) (float64, float64, error) {
	latStr := os.Getenv("WEATHER_LATITUDE")
	lonStr := os.Getenv("WEATHER_LONGITUDE")

	if latStr != "" && lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid WEATHER_LATITUDE: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid WEATHER_LONGITUDE: %w", err)
		}
		return lat, lon, nil
	}

	if key := os.Getenv("GEOCODER_API_KEY"); key != "" {
		return resolveCoordinates(locationName, key)
	}

	// Boston, MA — the default location.
	return 42.36, -71.06, nil
}

// resolveCoordinates geocodes a "City, State" label via the Google geocoding
// API.
func resolveCoordinates(locationName, apiKey string) (float64, float64, error) {
	geocoder.ApiKey = apiKey

	address := geocoder.Address{}
	parts := strings.SplitN(locationName, ",", 2)
	address.City = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		address.State = strings.TrimSpace(parts[1])
	}

	loc, err := geocoder.Geocoding(address)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q failed: %w", locationName, err)
	}
	return loc.Latitude, loc.Longitude, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
