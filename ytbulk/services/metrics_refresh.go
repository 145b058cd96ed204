package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
)

const refreshBatchLimit = 200

// claimSource is the slice of the claim repository the refresh needs.
type claimSource interface {
	DueForRefresh(ctx context.Context, now time.Time, limit int) ([]*models.WorkClaim, error)
	RecordMetrics(ctx context.Context, id int64, views, likes int64, nextCheck time.Time) error
}

// milestoneSink is the slice of the milestone repository the refresh needs.
type milestoneSink interface {
	ActiveRulesUpTo(ctx context.Context, views int64) ([]*models.MilestoneRule, error)
	RecordHit(ctx context.Context, claim *models.WorkClaim, rule *models.MilestoneRule) (bool, error)
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Scanned           int
	Updated           int
	MilestonesCreated int
}

// RefreshService pulls fresh view counts for due claims and records any
// milestone thresholds they crossed. External fetches happen before any
// database write so API latency never extends lock hold times.
type RefreshService struct {
	claims     claimSource
	milestones milestoneSink
	stats      StatsProvider
	cooldown   time.Duration
	batchLimit int
}

func NewRefreshService(claims claimSource, milestones milestoneSink, stats StatsProvider, cooldownDays int) *RefreshService {
	if cooldownDays <= 0 {
		cooldownDays = 5
	}
	return &RefreshService{
		claims:     claims,
		milestones: milestones,
		stats:      stats,
		cooldown:   time.Duration(cooldownDays) * 24 * time.Hour,
		batchLimit: refreshBatchLimit,
	}
}

func (s *RefreshService) Refresh(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	due, err := s.claims.DueForRefresh(ctx, now, s.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due claims: %w", err)
	}

	result := &RefreshResult{Scanned: len(due)}
	if len(due) == 0 {
		return result, nil
	}

	seen := make(map[string]bool, len(due))
	ids := make([]string, 0, len(due))
	for _, claim := range due {
		if claim.VideoID != "" && !seen[claim.VideoID] {
			seen[claim.VideoID] = true
			ids = append(ids, claim.VideoID)
		}
	}

	statsByID, err := s.stats.FetchStats(ctx, ids)
	if err != nil {
		metrics.StatsFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch video stats: %w", err)
	}
	metrics.StatsFetchTotal.WithLabelValues("ok").Inc()

	nextCheck := now.Add(s.cooldown)
	for _, claim := range due {
		views, likes := claim.Views, claim.Likes
		if st, ok := statsByID[claim.VideoID]; ok {
			views, likes = st.Views, st.Likes
		}

		// Advance the cooldown even when the video is gone; otherwise a
		// deleted video keeps its claim at the head of the due queue forever.
		if err := s.claims.RecordMetrics(ctx, claim.ID, views, likes, nextCheck); err != nil {
			return result, fmt.Errorf("failed to record metrics for claim %d: %w", claim.ID, err)
		}
		result.Updated++

		claim.Views, claim.Likes = views, likes

		// Milestones unlock only on approved work with a tracked video;
		// pending and rejected claims just keep their counters fresh.
		if claim.ReviewStatus == models.ReviewStatusApproved && claim.VideoID != "" {
			created, err := s.recordMilestones(ctx, claim)
			if err != nil {
				return result, err
			}
			result.MilestonesCreated += created
		}
	}

	return result, nil
}

func (s *RefreshService) recordMilestones(ctx context.Context, claim *models.WorkClaim) (int, error) {
	rules, err := s.milestones.ActiveRulesUpTo(ctx, claim.Views)
	if err != nil {
		return 0, fmt.Errorf("failed to list reached rules: %w", err)
	}

	created := 0
	for _, rule := range rules {
		ok, err := s.milestones.RecordHit(ctx, claim, rule)
		if err != nil {
			return created, fmt.Errorf("failed to record milestone hit: %w", err)
		}
		if ok {
			created++
			metrics.MilestoneHitsTotal.Inc()
		}
	}
	return created, nil
}
