package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ClaimStatus string

const (
	ClaimStatusClaimed   ClaimStatus = "claimed"
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusExpired   ClaimStatus = "expired"
)

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending_review"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// WorkClaim binds a user, a work and one file item. A user holds at most one
// active claim at a time and never claims the same work twice; the
// (user_id, work_id) unique constraint backs the second rule.
type WorkClaim struct {
	bun.BaseModel `bun:"table:work_claims,alias:wc"`

	ID         int64  `bun:"id,pk,autoincrement"`
	UserID     string `bun:"user_id,notnull"`
	WorkID     int64  `bun:"work_id,notnull"`
	FileItemID *int64 `bun:"file_item_id"`

	// Snapshot of the assigned item so the worker keeps their copy even if
	// the batch is edited later.
	Title       string `bun:"title"`
	Description string `bun:"description"`
	Tags        string `bun:"tags"`

	PayoutAmount int64        `bun:"payout_amount,notnull,default:0"` // paise
	Status       ClaimStatus  `bun:"status,notnull,default:'claimed'"`
	ReviewStatus ReviewStatus `bun:"review_status,notnull,default:'pending_review'"`
	ClientID     string       `bun:"client_id"`

	AssignedAt  time.Time  `bun:"assigned_at,notnull,default:current_timestamp"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	SubmittedAt *time.Time `bun:"submitted_at"`

	VideoURL string `bun:"video_url"`
	VideoID  string `bun:"video_id"`

	Views          int64      `bun:"views,notnull,default:0"`
	Likes          int64      `bun:"likes,notnull,default:0"`
	LastCheckedAt  *time.Time `bun:"last_checked_at"`
	NextCheckAt    *time.Time `bun:"next_check_at"`
	ViewsPaidUnits int        `bun:"views_paid_units,notnull,default:0"`
}

// Active reports whether the claim still blocks the user from taking
// another task: claimed and not yet past its deadline.
func (c *WorkClaim) Active(now time.Time) bool {
	return c.Status == ClaimStatusClaimed && c.ExpiresAt.After(now)
}

// CanSubmit reports whether a submission is a legal transition.
// Re-submitting an already submitted claim is allowed and idempotent.
func (c *WorkClaim) CanSubmit() bool {
	return c.Status == ClaimStatusClaimed || c.Status == ClaimStatusSubmitted
}

// Expirable reports whether the sweep may expire the claim at now.
func (c *WorkClaim) Expirable(now time.Time) bool {
	return c.Status == ClaimStatusClaimed && !c.ExpiresAt.After(now)
}

// HasVideo reports whether the claim carries a usable video reference.
func (c *WorkClaim) HasVideo() bool {
	return c.VideoID != "" || c.VideoURL != ""
}

// ClaimMetricsLog is an append-only snapshot of externally fetched view and
// like counts, kept for audit. Rows are never updated or deleted.
type ClaimMetricsLog struct {
	bun.BaseModel `bun:"table:claim_metrics_log,alias:cml"`

	ID         int64     `bun:"id,pk,autoincrement"`
	ClaimID    int64     `bun:"claim_id,notnull"`
	SnapshotAt time.Time `bun:"snapshot_at,notnull,default:current_timestamp"`
	Views      int64     `bun:"views,notnull,default:0"`
	Likes      int64     `bun:"likes,notnull,default:0"`
}
