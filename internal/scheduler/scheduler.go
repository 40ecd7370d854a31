package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/d1420348/weather-etl/internal/pipeline"
	"github.com/d1420348/weather-etl/internal/weather"
)

// Runner executes one pipeline run for a location and date range.
type Runner interface {
	Run(ctx context.Context, loc weather.Location, start, end time.Time) (*pipeline.RunResult, error)
}

// Scheduler triggers catch-up pipeline runs at a fixed interval in serve
// mode. Each tick ingests the previous UTC day, so the destination table
// tracks the archive without an external cron.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	location  weather.Location
	interval  time.Duration
}

// New creates a new Scheduler.
func New(loc weather.Location, interval time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		location:  loc,
		interval:  interval,
	}
}

// Start schedules the periodic catch-up job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: no interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		day := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
		log.Printf("scheduler: running catch-up for %s on %s", s.location.Key(), day.Format("2006-01-02"))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := s.runner.Run(ctx, s.location, day, day)
		if err != nil {
			log.Printf("scheduler: catch-up run failed for %s: %v", s.location.Key(), err)
			return
		}
		log.Printf("scheduler: catch-up run %s loaded %d rows", res.RunID, res.RowsLoaded)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
