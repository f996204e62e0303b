package httpapi

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/hdx-scraper-peacesecurity/internal/peacesecurity"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/store"
)

var datasetName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("datasetname", func(fl validator.FieldLevel) bool {
		return datasetName.MatchString(fl.Field().String())
	})
	return v
}

// ReportSource exposes the outcome of the most recent run.
type ReportSource interface {
	LastReport() (peacesecurity.RunReport, bool)
}

// StateReader exposes the recorded last update dates.
type StateReader interface {
	Snapshot() map[string]time.Time
	Lookup(name string) (time.Time, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reports ReportSource, state StateReader) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		report, ok := reports.LastReport()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no run has completed yet")
		}
		return c.JSON(report)
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		dates := state.Snapshot()
		def := dates[store.DefaultKey]
		delete(dates, store.DefaultKey)

		return c.JSON(fiber.Map{
			"default":  def,
			"datasets": dates,
		})
	})

	v1.Get("/state/:dataset", func(c *fiber.Ctx) error {
		req := datasetParam{Dataset: c.Params("dataset")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ts, err := state.Lookup(req.Dataset)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no last update date for requested dataset")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read state")
		}

		return c.JSON(fiber.Map{
			"dataset":        req.Dataset,
			"lastUpdateDate": ts,
		})
	})
}

// datasetParam holds the path parameter naming an upstream dataset.
type datasetParam struct {
	Dataset string `validate:"required,max=100,datasetname"`
}
