package web

import (
	"github.com/gofiber/fiber/v2"
)

// RunSweep triggers the expiry sweep on demand. External schedulers hit this
// with the cron secret; the same sweep also runs on the internal schedule.
func (s *Server) RunSweep(c *fiber.Ctx) error {
	swept, err := s.SweepSvc.Run(c.Context())
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, fiber.Map{"swept": swept})
}

// RunRefresh triggers one metrics refresh batch on demand.
func (s *Server) RunRefresh(c *fiber.Ctx) error {
	result, err := s.RefreshSvc.Refresh(c.Context())
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, fiber.Map{
		"scanned":            result.Scanned,
		"updated":            result.Updated,
		"milestones_created": result.MilestonesCreated,
	})
}
