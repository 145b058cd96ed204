package web

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
)

func (s *Server) ListMyClaims(c *fiber.Ctx) error {
	claims, err := s.Claims.ListForUser(c.Context(), UserID(c))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewClaims(claims))
}

// GetActiveClaim returns the caller's current claim, or null when they are
// free to take a new task.
func (s *Server) GetActiveClaim(c *fiber.Ctx) error {
	claim, err := s.Claims.ActiveForUser(c.Context(), UserID(c))
	if err != nil {
		return sendRepoError(c, err)
	}
	if claim == nil {
		return sendSuccess(c, nil)
	}
	return sendSuccess(c, viewClaim(claim))
}

func (s *Server) GetMyClaim(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid claim id")
	}
	claim, err := s.Claims.GetOwned(c.Context(), int64(id), UserID(c))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewClaim(claim))
}

type submitClaimRequest struct {
	VideoURL string `json:"video_url"`
}

// SubmitClaim records the uploaded video against the caller's claim. The URL
// must be a recognizable YouTube link; the video id is extracted here so the
// metrics refresh can track it.
func (s *Server) SubmitClaim(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid claim id")
	}

	var req submitClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	videoURL := strings.TrimSpace(req.VideoURL)
	if videoURL == "" {
		return sendError(c, http.StatusBadRequest, "video_url is required")
	}

	videoID, err := services.ExtractVideoID(videoURL)
	if err != nil {
		return sendRepoError(c, err)
	}

	claim, err := s.Claims.Submit(c.Context(), int64(id), UserID(c), videoURL, videoID)
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewClaim(claim))
}

// ListSubmissions lists submitted claims for review, optionally filtered by
// work and review status.
func (s *Server) ListSubmissions(c *fiber.Ctx) error {
	filter := repositories.SubmissionFilter{
		WorkID: int64(c.QueryInt("work_id")),
		Limit:  c.QueryInt("limit"),
	}
	if rs := c.Query("review_status"); rs != "" {
		filter.ReviewStatus = models.ReviewStatus(rs)
	}

	claims, err := s.Claims.ListSubmissions(c.Context(), filter)
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewSubmissions(claims))
}

// ApproveClaim accepts a submission and credits the worker once. Repeating
// the call reports already_processed=true but stays a success.
func (s *Server) ApproveClaim(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid claim id")
	}

	result, err := s.Claims.Approve(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	if result.Txn != nil {
		metrics.LedgerCreditsTotal.WithLabelValues(string(models.TxKindTaskCredit)).Inc()
	}
	return sendSuccess(c, fiber.Map{
		"claim":             viewClaim(result.Claim),
		"already_processed": result.Already,
	})
}

func (s *Server) RejectClaim(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid claim id")
	}

	result, err := s.Claims.Reject(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, fiber.Map{
		"claim":             viewClaim(result.Claim),
		"already_processed": result.Already,
	})
}
