package schedule

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Schedule
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		organizerID := actorID(c, req.OrganizerID)
		sch, err := svc.Create(c.Context(), organizerID, req)
		if err != nil {
			return scheduleError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sch)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Schedule
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sch, err := svc.Update(c.Context(), c.Params("id"), actorID(c, ""), req)
		if err != nil {
			return scheduleError(err)
		}
		return c.JSON(sch)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			userID = actorID(c, "")
		}
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		schedules, err := svc.ListForUser(c.Context(), userID, Filters{
			Status:       c.Query("status"),
			UpcomingOnly: c.QueryBool("upcoming"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(schedules)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		sch, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return scheduleError(err)
		}
		return c.JSON(sch)
	})

	r.Get("/:id/participants", authMiddleware, func(c *fiber.Ctx) error {
		participants, err := svc.Participants(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(participants)
	})

	r.Post("/:id/join", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
			DogID  string `json:"dog_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.Join(c.Context(), c.Params("id"), actorID(c, body.UserID), body.DogID)
		if err != nil {
			return scheduleError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Post("/:id/leave", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.Leave(c.Context(), c.Params("id"), actorID(c, body.UserID))
		if err != nil {
			return scheduleError(err)
		}
		return c.JSON(p)
	})
}

// actorID prefers the authenticated identity over a body-supplied id.
func actorID(c *fiber.Ctx, fallback string) string {
	if v, ok := c.Locals("user_id").(string); ok && v != "" {
		return v
	}
	return fallback
}

func scheduleError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidSchedule):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrFull), errors.Is(err, ErrNotParticipant):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
