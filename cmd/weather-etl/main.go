package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/d1420348/weather-etl/internal/api/http"
	"github.com/d1420348/weather-etl/internal/config"
	"github.com/d1420348/weather-etl/internal/export"
	"github.com/d1420348/weather-etl/internal/pipeline"
	"github.com/d1420348/weather-etl/internal/scheduler"
	"github.com/d1420348/weather-etl/internal/warehouse"
	"github.com/d1420348/weather-etl/internal/weather"
	"github.com/d1420348/weather-etl/internal/weather/providers"
)

// Exit codes, one per stage of the run.
const (
	exitConfig    = 1
	exitExtract   = 2
	exitTransform = 3
	exitLoad      = 4
)

func main() {
	serve := flag.Bool("serve", false, "expose a run-trigger HTTP API instead of running once")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Printf("ERROR: failed to load config: %v", err)
		os.Exit(exitConfig)
	}

	// Shared HTTP client for the outbound extraction call.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	source := providers.NewOpenMeteoArchive(httpClient)

	wh, err := warehouse.Open(cfg.Warehouse())
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(exitLoad)
	}
	defer wh.Close()

	var exporter pipeline.Exporter
	if cfg.ParquetExportDir != "" {
		exporter = export.NewParquetExporter(cfg.ParquetExportDir)
	}

	pipe := pipeline.New(source, wh, exporter)

	if !*serve {
		runOnce(pipe, cfg)
		return
	}

	serveAPI(pipe, cfg)
}

// runOnce executes a single Extract → Transform → Load run and exits with a
// stage-specific status code on failure.
func runOnce(pipe *pipeline.Pipeline, cfg *config.AppConfig) {
	result, err := pipe.Run(context.Background(), cfg.Location(), cfg.StartDate, cfg.EndDate)
	if err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(exitCode(err))
	}
	log.Printf("INFO: run %s complete: %d rows loaded for %s in %s",
		result.RunID, result.RowsLoaded, result.Location.Key(), result.Duration.Round(time.Millisecond))
}

// serveAPI runs the long-lived trigger API with an optional catch-up
// schedule.
func serveAPI(pipe *pipeline.Pipeline, cfg *config.AppConfig) {
	if cfg.FetchSchedule > 0 {
		sched := scheduler.New(cfg.Location(), cfg.FetchSchedule, pipe)
		if err := sched.Start(); err != nil {
			log.Printf("ERROR: failed to start scheduler: %v", err)
			os.Exit(exitConfig)
		}
		defer sched.Stop()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-etl",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, pipe, httpapi.Defaults{
		Location:  cfg.Location(),
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// exitCode maps a run error to the failed stage's exit status.
func exitCode(err error) int {
	var extractErr *providers.ExtractionError
	if errors.As(err, &extractErr) {
		return exitExtract
	}
	var transformErr *weather.TransformationError
	if errors.As(err, &transformErr) {
		return exitTransform
	}
	var loadErr *warehouse.LoadError
	if errors.As(err, &loadErr) {
		return exitLoad
	}
	return exitConfig
}
