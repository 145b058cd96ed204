package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
)

// ListActiveMilestoneRules shows workers which view thresholds pay a bonus.
func (s *Server) ListActiveMilestoneRules(c *fiber.Ctx) error {
	rules, err := s.Milestones.ListRules(c.Context(), true)
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewRules(rules))
}

func (s *Server) ListMilestoneRules(c *fiber.Ctx) error {
	rules, err := s.Milestones.ListRules(c.Context(), c.QueryBool("active_only"))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewRules(rules))
}

type milestoneRuleRequest struct {
	Active         *bool `json:"active"`
	ThresholdViews int64 `json:"threshold_views"`
	PayoutAmount   int64 `json:"payout_amount"`
}

func (s *Server) CreateMilestoneRule(c *fiber.Ctx) error {
	var req milestoneRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ThresholdViews <= 0 {
		return sendError(c, http.StatusBadRequest, "threshold_views must be positive")
	}
	if req.PayoutAmount < 0 {
		return sendError(c, http.StatusBadRequest, "payout_amount must not be negative")
	}

	rule := &models.MilestoneRule{
		Active:         true,
		ThresholdViews: req.ThresholdViews,
		PayoutAmount:   req.PayoutAmount,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.Milestones.CreateRule(c.Context(), rule); err != nil {
		return sendRepoError(c, err)
	}
	return sendCreated(c, viewRules([]*models.MilestoneRule{rule})[0])
}

func (s *Server) UpdateMilestoneRule(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid rule id")
	}

	var req milestoneRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.ThresholdViews <= 0 {
		return sendError(c, http.StatusBadRequest, "threshold_views must be positive")
	}
	if req.PayoutAmount < 0 {
		return sendError(c, http.StatusBadRequest, "payout_amount must not be negative")
	}

	rule := &models.MilestoneRule{
		ID:             int64(id),
		Active:         true,
		ThresholdViews: req.ThresholdViews,
		PayoutAmount:   req.PayoutAmount,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.Milestones.UpdateRule(c.Context(), rule); err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewRules([]*models.MilestoneRule{rule})[0])
}

func (s *Server) ListMilestonePayouts(c *fiber.Ctx) error {
	payouts, err := s.Milestones.PendingPayouts(c.Context(), c.QueryInt("limit"))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewPayouts(payouts))
}

// ApproveMilestonePayout credits the bonus exactly once; re-approving an
// already credited payout reports already_processed=true.
func (s *Server) ApproveMilestonePayout(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid payout id")
	}

	result, err := s.Milestones.ApprovePayout(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	if result.Txn != nil {
		metrics.LedgerCreditsTotal.WithLabelValues(string(models.TxKindMilestoneBonus)).Inc()
	}
	return sendSuccess(c, fiber.Map{
		"payout":            viewPayout(result.Payout),
		"already_processed": result.Already,
	})
}

func (s *Server) RejectMilestonePayout(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid payout id")
	}

	result, err := s.Milestones.RejectPayout(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, fiber.Map{
		"payout":            viewPayout(result.Payout),
		"already_processed": result.Already,
	})
}
