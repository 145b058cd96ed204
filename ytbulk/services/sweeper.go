package services

import (
	"context"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/logger"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
)

// SweepService expires overdue claims and returns their slots and item uses
// to inventory. It is idempotent: a second run right after the first finds
// nothing to do.
type SweepService struct {
	works repositories.WorkRepository
}

func NewSweepService(works repositories.WorkRepository) *SweepService {
	return &SweepService{works: works}
}

func (s *SweepService) Run(ctx context.Context) (int, error) {
	start := time.Now()
	swept, err := s.works.SweepAllExpired(ctx)
	logger.LogJob("claim_sweep", time.Since(start), err, "swept", swept)
	if err != nil {
		return swept, err
	}
	if swept > 0 {
		metrics.SweptClaimsTotal.Add(float64(swept))
	}
	return swept, nil
}
