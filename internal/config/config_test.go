package config

import (
	"strings"
	"testing"
	"time"
)

// setWarehouseEnv fills in the env vars every successful Load needs.
func setWarehouseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WAREHOUSE_HOST", "warehouse.example.com")
	t.Setenv("WAREHOUSE_DB", "analytics")
	t.Setenv("WAREHOUSE_USER", "loader")
	t.Setenv("WAREHOUSE_PASSWORD", "secret")
}

func TestLoadFullConfig(t *testing.T) {
	setWarehouseEnv(t)
	t.Setenv("WEATHER_LOCATION_NAME", "Chicago, IL")
	t.Setenv("WEATHER_LATITUDE", "41.88")
	t.Setenv("WEATHER_LONGITUDE", "-87.63")
	t.Setenv("WEATHER_START_DATE", "2025-01-01")
	t.Setenv("WEATHER_END_DATE", "2025-01-31")
	t.Setenv("WAREHOUSE_PORT", "5432")
	t.Setenv("WAREHOUSE_TABLE", "weather_obs")
	t.Setenv("HTTP_TIMEOUT", "10s")
	t.Setenv("FETCH_SCHEDULE", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc := cfg.Location()
	if loc.Name != "Chicago, IL" || loc.Latitude != 41.88 || loc.Longitude != -87.63 {
		t.Errorf("unexpected location: %+v", loc)
	}
	if !cfg.StartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start date: %v", cfg.StartDate)
	}
	if !cfg.EndDate.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end date: %v", cfg.EndDate)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.HTTPTimeout)
	}
	if cfg.FetchSchedule != 24*time.Hour {
		t.Errorf("unexpected schedule: %v", cfg.FetchSchedule)
	}

	wh := cfg.Warehouse()
	if wh.Host != "warehouse.example.com" || wh.Port != 5432 || wh.Table != "weather_obs" {
		t.Errorf("unexpected warehouse config: %+v", wh)
	}
}

func TestLoadDefaults(t *testing.T) {
	setWarehouseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LocationName != "Boston, MA" {
		t.Errorf("expected default location, got %q", cfg.LocationName)
	}
	if cfg.Latitude != 42.36 || cfg.Longitude != -71.06 {
		t.Errorf("expected default coordinates, got (%v, %v)", cfg.Latitude, cfg.Longitude)
	}
	if cfg.WarehousePort != 5439 {
		t.Errorf("expected default port 5439, got %d", cfg.WarehousePort)
	}
	if cfg.WarehouseTable != "weather_hourly" {
		t.Errorf("expected default table weather_hourly, got %q", cfg.WarehouseTable)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.HTTPTimeout)
	}
	if cfg.FetchSchedule != 0 {
		t.Errorf("expected schedule disabled by default, got %v", cfg.FetchSchedule)
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	if cfg.StartDate.Format("2006-01-02") != yesterday {
		t.Errorf("expected start date to default to %s, got %v", yesterday, cfg.StartDate)
	}
	if !cfg.EndDate.Equal(cfg.StartDate) {
		t.Errorf("expected end date to default to the start date")
	}
}

func TestLoadRejectsInvertedDateRange(t *testing.T) {
	setWarehouseEnv(t)
	t.Setenv("WEATHER_START_DATE", "2025-02-01")
	t.Setenv("WEATHER_END_DATE", "2025-01-01")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for end date before start date")
	}
}

func TestLoadRejectsBadDate(t *testing.T) {
	setWarehouseEnv(t)
	t.Setenv("WEATHER_START_DATE", "01/02/2025")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "WEATHER_START_DATE") {
		t.Fatalf("expected WEATHER_START_DATE error, got %v", err)
	}
}

func TestLoadRejectsMissingWarehouse(t *testing.T) {
	t.Setenv("WAREHOUSE_HOST", "")
	t.Setenv("WAREHOUSE_DB", "")
	t.Setenv("WAREHOUSE_USER", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing warehouse settings")
	}
}

func TestLoadRejectsOutOfRangeCoordinates(t *testing.T) {
	setWarehouseEnv(t)
	t.Setenv("WEATHER_LATITUDE", "99.0")
	t.Setenv("WEATHER_LONGITUDE", "-71.06")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for latitude out of range")
	}
}
