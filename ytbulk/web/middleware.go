package web

import (
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CustomErrorHandler turns unhandled errors into JSON responses.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// LoggingMiddleware logs HTTP requests in a structured format.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		logLevel := slog.LevelInfo
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		logger := slog.With(
			slog.String("type", "http"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", statusCode),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		)
		if userID := c.Get("X-User-ID"); userID != "" {
			logger = logger.With(slog.String("user_id", userID))
		}
		if err != nil {
			logger = logger.With(slog.String("error", err.Error()))
		}

		message := "Request handled"
		if err != nil {
			message = "Request failed"
		}
		logger.Log(c.Context(), logLevel, message)

		return err
	}
}

// RequireUser ensures the auth proxy identified the caller. The user id is
// stored in locals for handlers.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID returns the authenticated caller set by RequireUser.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// RequireAdmin guards admin routes with a bearer token compared in constant
// time.
func RequireAdmin(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return fiber.NewError(fiber.StatusForbidden, "admin access disabled")
		}

		header := c.Get("Authorization")
		presented := strings.TrimPrefix(header, "Bearer ")
		if presented == header || presented == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing admin token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			slog.Warn("Admin auth rejected",
				slog.String("type", "http"),
				slog.String("ip", c.IP()),
				slog.String("path", c.Path()))
			return fiber.NewError(fiber.StatusForbidden, "invalid admin token")
		}
		return c.Next()
	}
}

// RequireCronSecret guards the scheduler trigger endpoints.
func RequireCronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return fiber.NewError(fiber.StatusForbidden, "cron triggers disabled")
		}
		presented := c.Get("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			return fiber.NewError(fiber.StatusForbidden, "invalid cron secret")
		}
		return c.Next()
	}
}
