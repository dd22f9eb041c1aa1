// handlers/challenge.go
package handlers

import (
	"strconv"
	"time"

	"fitness-challenge-system/models"
	"fitness-challenge-system/services"

	"github.com/gofiber/fiber/v2"
)

// userID returns the caller identity forwarded by the gateway. Authentication
// itself lives upstream.
func userID(c *fiber.Ctx) string {
	return c.Get("X-User-ID")
}

// serviceError maps core errors onto HTTP statuses: not-found → 404,
// precondition → 409, anything else → 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case services.IsPrecondition(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func SetupChallengeRoutes(app *fiber.App, catalog *services.CatalogService, enrollment *services.EnrollmentService, progress *services.ProgressService, automation *services.AutomationService) {
	app.Post("/challenges", func(c *fiber.Ctx) error {
		var req struct {
			Title           string    `json:"title"`
			Description     string    `json:"description"`
			Category        string    `json:"category"`
			Type            string    `json:"type"`
			Difficulty      string    `json:"difficulty"`
			Goal            int64     `json:"goal"`
			StartDate       time.Time `json:"start_date"`
			EndDate         time.Time `json:"end_date"`
			MaxParticipants int       `json:"max_participants"`
			IsFeatured      bool      `json:"is_featured"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		ch, err := catalog.CreateChallenge(services.CreateChallengeInput{
			Title:           req.Title,
			Description:     req.Description,
			Category:        models.ChallengeCategory(req.Category),
			Type:            models.ChallengeType(req.Type),
			Difficulty:      models.ChallengeDifficulty(req.Difficulty),
			Goal:            req.Goal,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			MaxParticipants: req.MaxParticipants,
			IsFeatured:      req.IsFeatured,
			CreatedBy:       userID(c),
		})
		if err != nil {
			if services.IsPrecondition(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	app.Get("/challenges", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		challenges, err := catalog.ListChallenges(limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(challenges)
	})

	app.Get("/challenges/:id", func(c *fiber.Ctx) error {
		ch, err := catalog.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ch)
	})

	app.Patch("/challenges/:id", func(c *fiber.Ctx) error {
		var req struct {
			Description string `json:"description"`
			IsFeatured  *bool  `json:"is_featured"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := catalog.UpdateDescription(c.Params("id"), req.Description, req.IsFeatured); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Challenge updated"})
	})

	app.Delete("/challenges/:id", func(c *fiber.Ctx) error {
		if err := catalog.Deactivate(c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Challenge deactivated"})
	})

	app.Post("/challenges/:id/join", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}
		uc, err := enrollment.Join(uid, c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uc)
	})

	app.Delete("/challenges/:id/join", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}
		if err := enrollment.Leave(uid, c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Left challenge"})
	})

	app.Post("/challenges/:id/baseline/recapture", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}
		if err := enrollment.RecaptureBaseline(uid, c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Baseline recaptured"})
	})

	app.Get("/challenges/:id/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		entries, err := enrollment.Leaderboard(c.Params("id"), limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(entries)
	})

	app.Get("/challenges/:id/stats", func(c *fiber.Ctx) error {
		stats, err := enrollment.Stats(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(stats)
	})

	app.Get("/user/challenges", func(c *fiber.Ctx) error {
		uid := userID(c)
		if uid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "X-User-ID header required"})
		}
		enrollments, err := enrollment.UserChallenges(uid)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(enrollments)
	})

	// Operator endpoint: replay an enrollment's full window through the
	// progress pipeline after manual data corrections.
	app.Post("/enrollments/:id/recalculate", func(c *fiber.Ctx) error {
		if err := progress.Recalculate(c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Recalculation completed"})
	})

	// Operator endpoint: run the maintenance pass on demand instead of
	// waiting for the next scheduled tick.
	app.Post("/admin/maintenance/run", func(c *fiber.Ctx) error {
		if err := automation.RunScheduledMaintenance(); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Maintenance pass completed"})
	})
}
