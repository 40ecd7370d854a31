package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/d1420348/weather-etl/internal/pipeline"
	"github.com/d1420348/weather-etl/internal/warehouse"
	"github.com/d1420348/weather-etl/internal/weather"
	"github.com/d1420348/weather-etl/internal/weather/providers"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Runner executes one pipeline run; satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, loc weather.Location, start, end time.Time) (*pipeline.RunResult, error)
}

// Defaults fill in request fields the caller omits.
type Defaults struct {
	Location  weather.Location
	StartDate time.Time
	EndDate   time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, runner Runner, defaults Defaults) {
	v1 := app.Group("/api/v1")

	v1.Post("/runs", func(c *fiber.Ctx) error {
		var req runRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, start, end, err := req.resolve(defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := runner.Run(c.Context(), loc, start, end)
		if err != nil {
			return runError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(result)
	})
}

// runError maps stage errors to HTTP statuses: upstream data problems are
// gateway errors, warehouse problems are internal ones.
func runError(err error) error {
	var extractErr *providers.ExtractionError
	if errors.As(err, &extractErr) {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	var transformErr *weather.TransformationError
	if errors.As(err, &transformErr) {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	var loadErr *warehouse.LoadError
	if errors.As(err, &loadErr) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

// runRequest holds optional overrides for a triggered run. Empty fields fall
// back to the configured defaults.
type runRequest struct {
	LocationName string   `json:"locationName"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	StartDate    string   `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string   `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func (r runRequest) resolve(defaults Defaults) (weather.Location, time.Time, time.Time, error) {
	loc := defaults.Location
	if r.LocationName != "" {
		loc.Name = r.LocationName
	}
	if r.Latitude != nil {
		loc.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		loc.Longitude = *r.Longitude
	}

	start := defaults.StartDate
	end := defaults.EndDate
	var err error
	if r.StartDate != "" {
		if start, err = time.Parse(dateLayout, r.StartDate); err != nil {
			return loc, start, end, err
		}
	}
	if r.EndDate != "" {
		if end, err = time.Parse(dateLayout, r.EndDate); err != nil {
			return loc, start, end, err
		}
	}
	if end.Before(start) {
		return loc, start, end, errors.New("endDate must not be before startDate")
	}

	return loc, start, end, nil
}
