// handlers/health.go
package handlers

import (
	"time"

	"fitness-challenge-system/services"
	"fitness-challenge-system/workers"

	"github.com/gofiber/fiber/v2"
)

func SetupHealthRoutes(app *fiber.App, health *services.HealthService, progress *services.ProgressService, events *workers.HealthEventWorker) {
	// Device sync entrypoint: persist the sample, then hand it to the worker
	// pool so challenge progress updates off the request path.
	app.Post("/health/sync", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}

		var req struct {
			Date          time.Time `json:"date"`
			Steps         int64     `json:"steps"`
			Distance      int64     `json:"distance"`
			ActiveMinutes int       `json:"active_minutes"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Date.IsZero() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date is required"})
		}

		sample, err := health.RecordSample(uid, req.Date, req.Steps, req.Distance, req.ActiveMinutes)
		if err != nil {
			return serviceError(c, err)
		}

		events.Enqueue(workers.HealthEvent{
			UserID: uid,
			Date:   sample.Date,
			Sample: *sample,
		})

		return c.Status(fiber.StatusAccepted).JSON(sample)
	})

	// Operator entrypoint for bulk backfills: replay a stored range through
	// the progress pipeline.
	app.Post("/health/reconcile", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}

		var req struct {
			StartDate time.Time `json:"start_date"`
			EndDate   time.Time `json:"end_date"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "valid start_date and end_date required"})
		}

		if err := progress.Reconcile(uid, req.StartDate, req.EndDate); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Reconciliation completed"})
	})

	app.Get("/health/range", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}

		start, err := time.Parse("2006-01-02", c.Query("start"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be YYYY-MM-DD"})
		}
		end, err := time.Parse("2006-01-02", c.Query("end"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be YYYY-MM-DD"})
		}

		samples, err := health.SamplesInRange(uid, start, end)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(samples)
	})
}
