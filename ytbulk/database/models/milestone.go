package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MilestoneRule is an admin-defined view-count threshold that unlocks a
// bonus payout for an approved claim. Rules are evaluated in ascending
// threshold order.
type MilestoneRule struct {
	bun.BaseModel `bun:"table:milestone_rules,alias:mr"`

	ID             int64 `bun:"id,pk,autoincrement"`
	Active         bool  `bun:"active,notnull,default:true"`
	ThresholdViews int64 `bun:"threshold_views,notnull,unique"`
	PayoutAmount   int64 `bun:"payout_amount,notnull,default:0"` // paise

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// MilestonePayout records one claim crossing one rule. The (claim_id,
// rule_id) unique constraint guarantees a rule fires at most once per claim
// no matter how often metrics refreshes overlap.
type MilestonePayout struct {
	bun.BaseModel `bun:"table:milestone_payouts,alias:mp"`

	ID      int64 `bun:"id,pk,autoincrement"`
	ClaimID int64 `bun:"claim_id,notnull"`
	RuleID  int64 `bun:"rule_id,notnull"`

	ViewsSnapshot int64 `bun:"views_snapshot,notnull,default:0"`
	LikesSnapshot int64 `bun:"likes_snapshot,notnull,default:0"`
	Amount        int64 `bun:"amount,notnull,default:0"` // paise

	Status        ReviewStatus `bun:"status,notnull,default:'pending_review'"`
	CreatedAt     time.Time    `bun:"created_at,notnull,default:current_timestamp"`
	DecidedAt     *time.Time   `bun:"decided_at"`
	CreditedTxnID *int64       `bun:"credited_txn_id"`
}
