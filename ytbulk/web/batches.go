package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
)

type generateBatchRequest struct {
	SeedKeyword  string `json:"seed_keyword"`
	TitleCount   int    `json:"title_count"`
	SuggestCount int    `json:"suggest_count"`
	DescLength   int    `json:"desc_length"`
	ReuseLimit   int    `json:"reuse_limit"`
}

// GenerateBatch expands a seed keyword into a stored metadata batch.
func (s *Server) GenerateBatch(c *fiber.Ctx) error {
	var req generateBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.SeedKeyword == "" {
		return sendError(c, http.StatusBadRequest, "seed_keyword is required")
	}

	batch, err := s.BatchSvc.GenerateBatch(c.Context(), services.GenerateBatchRequest{
		SeedKeyword:  req.SeedKeyword,
		TitleCount:   req.TitleCount,
		SuggestCount: req.SuggestCount,
		DescLength:   req.DescLength,
		ReuseLimit:   req.ReuseLimit,
	})
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendCreated(c, viewBatch(batch))
}

func (s *Server) ListBatches(c *fiber.Ctx) error {
	batches, err := s.Batches.List(c.Context(), c.QueryInt("limit"))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewBatches(batches))
}

// GetBatch returns a batch with its items and remaining claim capacity.
func (s *Server) GetBatch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid batch id")
	}

	batch, err := s.Batches.GetByID(c.Context(), int64(id))
	if err != nil {
		return sendRepoError(c, err)
	}
	items, err := s.Batches.GetItems(c.Context(), batch.ID)
	if err != nil {
		return sendRepoError(c, err)
	}
	capacity, err := s.Batches.RemainingCapacity(c.Context(), batch.ID)
	if err != nil {
		return sendRepoError(c, err)
	}

	return sendSuccess(c, fiber.Map{
		"batch":              viewBatch(batch),
		"items":              viewItems(items),
		"remaining_capacity": capacity,
	})
}
