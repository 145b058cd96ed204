package web

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
)

func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ListOpenWorks returns works that still have claimable slots.
func (s *Server) ListOpenWorks(c *fiber.Ctx) error {
	works, err := s.Works.ListOpen(c.Context())
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, s.viewWorks(works))
}

func (s *Server) GetWork(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid work id")
	}
	work, err := s.Works.GetByID(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, s.viewWork(work))
}

// ClaimWork allocates one slot of the work to the caller.
func (s *Server) ClaimWork(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid work id")
	}

	claim, err := s.Works.AllocateClaim(c.Context(), UserID(c), int64(id))
	if err != nil {
		metrics.AllocationFailuresTotal.WithLabelValues(allocationFailureReason(err)).Inc()
		return sendRepoError(c, err)
	}
	metrics.AllocationsTotal.Inc()
	return sendCreated(c, viewClaim(claim))
}

func allocationFailureReason(err error) string {
	switch {
	case errors.Is(err, repositories.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, repositories.ErrOutOfInventory):
		return "out_of_inventory"
	case errors.Is(err, repositories.ErrActiveClaim):
		return "active_claim"
	case errors.Is(err, repositories.ErrAlreadyParticipated):
		return "already_participated"
	case errors.Is(err, repositories.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

// SweepWork expires overdue claims of a single work, returning slots and item
// uses to inventory.
func (s *Server) SweepWork(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid work id")
	}

	swept, err := s.Works.SweepExpired(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	if swept > 0 {
		metrics.SweptClaimsTotal.Add(float64(swept))
	}
	return sendSuccess(c, fiber.Map{"swept": swept})
}

type createWorkRequest struct {
	Name            string `json:"name"`
	FileBatchID     int64  `json:"file_batch_id"`
	PricePerItem    int64  `json:"price_per_item"`
	DeadlineMinutes int    `json:"deadline_minutes"`
	TotalSlots      int    `json:"total_slots"`
}

// CreateWork carves a new slot-limited work out of an existing batch.
func (s *Server) CreateWork(c *fiber.Ctx) error {
	var req createWorkRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.FileBatchID <= 0 || req.TotalSlots <= 0 {
		return sendError(c, http.StatusBadRequest, "name, file_batch_id and total_slots are required")
	}
	if req.PricePerItem < 0 {
		return sendError(c, http.StatusBadRequest, "price_per_item must not be negative")
	}

	if _, err := s.Batches.GetByID(c.Context(), req.FileBatchID); err != nil {
		return sendRepoError(c, err)
	}

	work := &models.Work{
		Name:            req.Name,
		FileBatchID:     req.FileBatchID,
		PricePerItem:    req.PricePerItem,
		DeadlineMinutes: req.DeadlineMinutes,
		TotalSlots:      req.TotalSlots,
	}
	if err := s.Works.Create(c.Context(), work); err != nil {
		return sendRepoError(c, err)
	}
	return sendCreated(c, s.viewWork(work))
}

func (s *Server) ListAllWorks(c *fiber.Ctx) error {
	works, err := s.Works.List(c.Context())
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, s.viewWorks(works))
}

// UploadWorkVideo stores the work's raw video archive in object storage and
// records its key on the work.
func (s *Server) UploadWorkVideo(c *fiber.Ctx) error {
	if s.Spaces == nil {
		return sendError(c, http.StatusServiceUnavailable, "object storage not configured")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid work id")
	}
	work, err := s.Works.GetByID(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		return sendError(c, http.StatusBadRequest, "video file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return sendError(c, http.StatusBadRequest, "could not read uploaded file")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, err := s.Spaces.UploadWorkVideo(c.Context(), work.Name, file, contentType)
	if err != nil {
		return sendRepoError(c, err)
	}

	if err := s.Works.SetVideoKey(c.Context(), work.ID, key); err != nil {
		return sendRepoError(c, err)
	}

	return sendSuccess(c, fiber.Map{
		"key": key,
		"url": s.Spaces.PublicURL(key),
	})
}
