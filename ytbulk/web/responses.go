package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/logger"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
)

func sendSuccess(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func sendCreated(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func sendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    status,
			"message": message,
		},
	})
}

// sendRepoError maps domain sentinels onto HTTP statuses. Anything unmapped
// is a 500 and gets logged with its cause.
func sendRepoError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return sendError(c, http.StatusNotFound, "not found")
	case errors.Is(err, repositories.ErrActiveClaim):
		return sendError(c, http.StatusConflict, "you already have an active claim")
	case errors.Is(err, repositories.ErrAlreadyParticipated):
		return sendError(c, http.StatusConflict, "you already participated in this work")
	case errors.Is(err, repositories.ErrSoldOut):
		return sendError(c, http.StatusConflict, "work is sold out")
	case errors.Is(err, repositories.ErrOutOfInventory):
		return sendError(c, http.StatusConflict, "no metadata items available")
	case errors.Is(err, repositories.ErrInvalidTransition):
		return sendError(c, http.StatusConflict, "operation not allowed in current state")
	case errors.Is(err, repositories.ErrAlreadyProcessed):
		return sendError(c, http.StatusBadRequest, "request already processed")
	case errors.Is(err, repositories.ErrInsufficientBalance):
		return sendError(c, http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, repositories.ErrBelowMinimum):
		return sendError(c, http.StatusBadRequest, "amount below minimum withdrawal")
	case errors.Is(err, repositories.ErrDuplicateBatch):
		return sendError(c, http.StatusConflict, "batch name already exists")
	case errors.Is(err, repositories.ErrInsufficientCapacity):
		return sendError(c, http.StatusBadRequest, "requested slots exceed batch capacity")
	case errors.Is(err, services.ErrInvalidVideoURL):
		return sendError(c, http.StatusBadRequest, "invalid video URL")
	default:
		logger.LogError("Request handler failed", err,
			"method", c.Method(), "path", c.Path())
		return sendError(c, http.StatusInternalServerError, "internal server error")
	}
}
