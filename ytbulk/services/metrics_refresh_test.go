package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
	"github.com/pkbhaiya/ytbulk/ytbulk/services/mock"
	"go.uber.org/mock/gomock"
)

type fakeClaimSource struct {
	due      []*models.WorkClaim
	recorded map[int64]services.VideoStats
	next     map[int64]time.Time
}

func (f *fakeClaimSource) DueForRefresh(ctx context.Context, now time.Time, limit int) ([]*models.WorkClaim, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeClaimSource) RecordMetrics(ctx context.Context, id int64, views, likes int64, nextCheck time.Time) error {
	if f.recorded == nil {
		f.recorded = make(map[int64]services.VideoStats)
		f.next = make(map[int64]time.Time)
	}
	f.recorded[id] = services.VideoStats{Views: views, Likes: likes}
	f.next[id] = nextCheck
	return nil
}

type fakeMilestoneSink struct {
	rules []*models.MilestoneRule
	hits  map[int64][]int64 // claim id -> rule ids
	dupes map[string]bool
}

func (f *fakeMilestoneSink) ActiveRulesUpTo(ctx context.Context, views int64) ([]*models.MilestoneRule, error) {
	var reached []*models.MilestoneRule
	for _, r := range f.rules {
		if r.Active && r.ThresholdViews <= views {
			reached = append(reached, r)
		}
	}
	return reached, nil
}

func (f *fakeMilestoneSink) RecordHit(ctx context.Context, claim *models.WorkClaim, rule *models.MilestoneRule) (bool, error) {
	if f.hits == nil {
		f.hits = make(map[int64][]int64)
		f.dupes = make(map[string]bool)
	}
	key := fmt.Sprintf("%d:%d", claim.ID, rule.ID)
	if f.dupes[key] {
		return false, nil
	}
	f.dupes[key] = true
	f.hits[claim.ID] = append(f.hits[claim.ID], rule.ID)
	return true, nil
}

func TestRefreshService_Refresh(t *testing.T) {
	claims := &fakeClaimSource{
		due: []*models.WorkClaim{
			{ID: 1, VideoID: "vid1", Views: 100, ReviewStatus: models.ReviewStatusApproved},
			{ID: 2, VideoID: "vid2", Views: 50, ReviewStatus: models.ReviewStatusApproved},
		},
	}
	milestones := &fakeMilestoneSink{
		rules: []*models.MilestoneRule{
			{ID: 10, Active: true, ThresholdViews: 1000, PayoutAmount: 5000},
			{ID: 11, Active: true, ThresholdViews: 10000, PayoutAmount: 20000},
		},
	}

	stats := mock.NewMockStatsProvider(gomock.NewController(t))
	stats.EXPECT().
		FetchStats(gomock.Any(), []string{"vid1", "vid2"}).
		Return(map[string]services.VideoStats{
			"vid1": {Views: 12000, Likes: 300},
			"vid2": {Views: 500, Likes: 9},
		}, nil)

	svc := services.NewRefreshService(claims, milestones, stats, 5)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if result.Scanned != 2 || result.Updated != 2 {
		t.Errorf("result = %+v, want 2 scanned and 2 updated", result)
	}

	// vid1 crossed both thresholds, vid2 none.
	if result.MilestonesCreated != 2 {
		t.Errorf("MilestonesCreated = %d, want 2", result.MilestonesCreated)
	}
	if got := len(milestones.hits[1]); got != 2 {
		t.Errorf("claim 1 hits = %d, want 2", got)
	}
	if got := len(milestones.hits[2]); got != 0 {
		t.Errorf("claim 2 hits = %d, want 0", got)
	}

	if got := claims.recorded[1]; got.Views != 12000 || got.Likes != 300 {
		t.Errorf("claim 1 recorded stats = %+v", got)
	}

	// Cooldown pushes the next check roughly five days out.
	next := claims.next[1]
	if d := time.Until(next); d < 4*24*time.Hour || d > 6*24*time.Hour {
		t.Errorf("next check %v not within cooldown window", next)
	}
}

func TestRefreshService_Refresh_UnreviewedClaimsEarnNoMilestones(t *testing.T) {
	claims := &fakeClaimSource{
		due: []*models.WorkClaim{
			{ID: 1, VideoID: "vid1", ReviewStatus: models.ReviewStatusPending},
			{ID: 2, VideoID: "vid2", ReviewStatus: models.ReviewStatusRejected},
		},
	}
	milestones := &fakeMilestoneSink{
		rules: []*models.MilestoneRule{
			{ID: 10, Active: true, ThresholdViews: 1000, PayoutAmount: 5000},
		},
	}

	stats := mock.NewMockStatsProvider(gomock.NewController(t))
	stats.EXPECT().
		FetchStats(gomock.Any(), []string{"vid1", "vid2"}).
		Return(map[string]services.VideoStats{
			"vid1": {Views: 12000, Likes: 300},
			"vid2": {Views: 12000, Likes: 300},
		}, nil)

	svc := services.NewRefreshService(claims, milestones, stats, 5)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Counters refresh, but thresholds crossed before approval pay nothing.
	if result.Updated != 2 {
		t.Errorf("Updated = %d, want 2", result.Updated)
	}
	if result.MilestonesCreated != 0 {
		t.Errorf("MilestonesCreated = %d, want 0", result.MilestonesCreated)
	}
	if len(milestones.hits) != 0 {
		t.Errorf("hits = %v, want none", milestones.hits)
	}
	if got := claims.recorded[1]; got.Views != 12000 {
		t.Errorf("claim 1 recorded views = %d, want 12000", got.Views)
	}
}

func TestRefreshService_Refresh_MissingVideoKeepsCounters(t *testing.T) {
	claims := &fakeClaimSource{
		due: []*models.WorkClaim{
			{ID: 1, VideoID: "gone", Views: 777, Likes: 5},
		},
	}
	milestones := &fakeMilestoneSink{}

	stats := mock.NewMockStatsProvider(gomock.NewController(t))
	stats.EXPECT().
		FetchStats(gomock.Any(), []string{"gone"}).
		Return(map[string]services.VideoStats{}, nil)

	svc := services.NewRefreshService(claims, milestones, stats, 5)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1 (cooldown must advance)", result.Updated)
	}
	if got := claims.recorded[1]; got.Views != 777 || got.Likes != 5 {
		t.Errorf("recorded stats = %+v, want previous counters kept", got)
	}
}

func TestRefreshService_Refresh_NothingDue(t *testing.T) {
	stats := mock.NewMockStatsProvider(gomock.NewController(t))

	svc := services.NewRefreshService(&fakeClaimSource{}, &fakeMilestoneSink{}, stats, 5)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if result.Scanned != 0 || result.Updated != 0 || result.MilestonesCreated != 0 {
		t.Errorf("result = %+v, want all zero", result)
	}
}
