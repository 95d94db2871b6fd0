package stats

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/users/:id", authMiddleware, func(c *fiber.Ctx) error {
		st, err := svc.GetUserStats(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(st)
	})

	r.Get("/users/:id/walks", authMiddleware, func(c *fiber.Ctx) error {
		period := c.Query("period", PeriodWeek)

		var start, end *time.Time
		if raw := c.Query("start"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start must be YYYY-MM-DD")
			}
			start = &t
		}
		if raw := c.Query("end"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end must be YYYY-MM-DD")
			}
			// inclusive through the end of the named day
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
			end = &t
		}

		report, err := svc.GetWalkStats(c.Context(), c.Params("id"), period, start, end)
		if errors.Is(err, ErrInvalidPeriod) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(report)
	})
}
