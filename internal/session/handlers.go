package session

import (
	"errors"

	"backend-pawmates/internal/walk"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, rec *Recorder, sub *Submitter, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			UserID     string      `json:"user_id"`
			DogID      string      `json:"dog_id"`
			ScheduleID string      `json:"schedule_id"`
			Origin     *walk.Point `json:"origin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		id, err := rec.Start(req.UserID, req.DogID, req.ScheduleID, req.Origin)
		if errors.Is(err, ErrPermissionDenied) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	r.Post("/:id/points", authMiddleware, func(c *fiber.Ctx) error {
		var p walk.Point
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		accepted, err := rec.Record(c.Params("id"), p)
		if err != nil {
			return sessionError(err)
		}
		snap, err := rec.Snapshot(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(fiber.Map{"accepted": accepted, "snapshot": snap})
	})

	r.Post("/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		if err := rec.Pause(c.Params("id")); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		if err := rec.Resume(c.Params("id")); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := rec.Snapshot(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := rec.Stop(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(sess)
	})

	// stop + submit in one call; the response distinguishes a synced walk
	// from one parked in the local queue.
	r.Post("/:id/submit", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := rec.Stop(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		result, err := sub.Submit(c.Context(), sess)
		if errors.Is(err, ErrSavedLocally) {
			return c.Status(fiber.StatusAccepted).JSON(result)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
