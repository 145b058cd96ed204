package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/uptrace/bun"
)

// ReviewResult reports the outcome of an admin review decision. Already is
// set when the decision had been applied before and this call changed
// nothing, which callers treat as success.
type ReviewResult struct {
	Claim   *models.WorkClaim
	Already bool
	Txn     *models.WalletTransaction
}

// SubmissionFilter narrows admin submission listings.
type SubmissionFilter struct {
	WorkID       int64
	ReviewStatus models.ReviewStatus
	Limit        int
}

type ClaimRepository interface {
	GetByID(ctx context.Context, id int64) (*models.WorkClaim, error)
	GetOwned(ctx context.Context, id int64, userID string) (*models.WorkClaim, error)
	ActiveForUser(ctx context.Context, userID string) (*models.WorkClaim, error)
	ListForUser(ctx context.Context, userID string) ([]*models.WorkClaim, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*models.WorkClaim, error)
	Submit(ctx context.Context, id int64, userID, videoURL, videoID string) (*models.WorkClaim, error)
	Approve(ctx context.Context, id int64) (*ReviewResult, error)
	Reject(ctx context.Context, id int64) (*ReviewResult, error)
	DueForRefresh(ctx context.Context, now time.Time, limit int) ([]*models.WorkClaim, error)
	RecordMetrics(ctx context.Context, id int64, views, likes int64, nextCheck time.Time) error
}

type claimRepository struct {
	db      *bun.DB
	wallets WalletRepository
}

func NewClaimRepository(db *bun.DB, wallets WalletRepository) ClaimRepository {
	return &claimRepository{db: db, wallets: wallets}
}

func (r *claimRepository) GetByID(ctx context.Context, id int64) (*models.WorkClaim, error) {
	claim := new(models.WorkClaim)
	err := r.db.NewSelect().
		Model(claim).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

// GetOwned fetches a claim only if it belongs to userID. Other users' claims
// are indistinguishable from missing ones.
func (r *claimRepository) GetOwned(ctx context.Context, id int64, userID string) (*models.WorkClaim, error) {
	claim := new(models.WorkClaim)
	err := r.db.NewSelect().
		Model(claim).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return claim, nil
}

func (r *claimRepository) ActiveForUser(ctx context.Context, userID string) (*models.WorkClaim, error) {
	claim := new(models.WorkClaim)
	err := r.db.NewSelect().
		Model(claim).
		Where("user_id = ?", userID).
		Where("status = ?", models.ClaimStatusClaimed).
		Where("expires_at > ?", time.Now().UTC()).
		Order("assigned_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active claim: %w", err)
	}
	return claim, nil
}

func (r *claimRepository) ListForUser(ctx context.Context, userID string) ([]*models.WorkClaim, error) {
	var claims []*models.WorkClaim
	err := r.db.NewSelect().
		Model(&claims).
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

func (r *claimRepository) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*models.WorkClaim, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var claims []*models.WorkClaim
	q := r.db.NewSelect().
		Model(&claims).
		Where("status = ?", models.ClaimStatusSubmitted)
	if filter.WorkID > 0 {
		q = q.Where("work_id = ?", filter.WorkID)
	}
	if filter.ReviewStatus != "" {
		q = q.Where("review_status = ?", filter.ReviewStatus)
	}
	err := q.Order("submitted_at DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return claims, nil
}

// Submit records the worker's uploaded video against their claim. Submission
// is legal while the claim is claimed and not overdue; re-submitting an
// already submitted claim just replaces the video reference.
func (r *claimRepository) Submit(ctx context.Context, id int64, userID, videoURL, videoID string) (*models.WorkClaim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	claim := new(models.WorkClaim)
	err = tx.NewSelect().
		Model(claim).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim: %w", err)
	}

	now := time.Now().UTC()
	if !claim.CanSubmit() {
		return nil, ErrInvalidTransition
	}
	if claim.Status == models.ClaimStatusClaimed && !claim.ExpiresAt.After(now) {
		// Overdue but not yet swept; the slot belongs back to the pool.
		return nil, ErrInvalidTransition
	}

	claim.Status = models.ClaimStatusSubmitted
	claim.SubmittedAt = &now
	claim.VideoURL = videoURL
	claim.VideoID = videoID

	_, err = tx.NewUpdate().
		Model(claim).
		Column("status", "submitted_at", "video_url", "video_id").
		Where("id = ?", claim.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return claim, nil
}

// Approve marks a submitted claim approved and credits the worker exactly
// once. The claim row lock plus the existing-credit check make repeated
// approvals (double clicks, retried requests) no-ops that still succeed.
func (r *claimRepository) Approve(ctx context.Context, id int64) (*ReviewResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	claim := new(models.WorkClaim)
	err = tx.NewSelect().
		Model(claim).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim: %w", err)
	}

	if claim.Status != models.ClaimStatusSubmitted {
		return nil, ErrInvalidTransition
	}

	already := claim.ReviewStatus == models.ReviewStatusApproved
	if claim.ReviewStatus == models.ReviewStatusRejected {
		return nil, ErrInvalidTransition
	}

	if !already {
		claim.ReviewStatus = models.ReviewStatusApproved
		_, err = tx.NewUpdate().
			Model(claim).
			Column("review_status").
			Where("id = ?", claim.ID).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to approve claim: %w", err)
		}
	}

	// A missing or corrupted snapshot falls back to the current work price.
	amount := claim.PayoutAmount
	if amount <= 0 {
		work := new(models.Work)
		err = tx.NewSelect().
			Model(work).
			Where("id = ?", claim.WorkID).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to resolve payout amount: %w", err)
		}
		if err == nil {
			amount = work.PricePerItem
		}
	}

	result := &ReviewResult{Claim: claim, Already: already}

	// Zero or negative payouts approve the work without touching the wallet.
	if amount <= 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return result, nil
	}

	exists, err := r.wallets.HasCreditForClaim(ctx, tx, models.TxKindTaskCredit, claim.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		result.Already = true
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return result, nil
	}

	wallet, err := r.wallets.GetOrCreateTx(ctx, tx, claim.UserID)
	if err != nil {
		return nil, err
	}
	claimID := claim.ID
	txn, err := r.wallets.ApplyTx(ctx, tx, wallet.ID, models.TxKindTaskCredit, amount, &claimID,
		fmt.Sprintf("Payout for claim #%d", claim.ID))
	if err != nil {
		return nil, err
	}
	result.Txn = txn

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// Reject marks a submitted claim rejected. No money moves. Rejecting twice is
// a no-op; rejecting after approval is refused since the credit already
// landed.
func (r *claimRepository) Reject(ctx context.Context, id int64) (*ReviewResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	claim := new(models.WorkClaim)
	err = tx.NewSelect().
		Model(claim).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim: %w", err)
	}

	if claim.Status != models.ClaimStatusSubmitted {
		return nil, ErrInvalidTransition
	}
	if claim.ReviewStatus == models.ReviewStatusApproved {
		return nil, ErrInvalidTransition
	}
	if claim.ReviewStatus == models.ReviewStatusRejected {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &ReviewResult{Claim: claim, Already: true}, nil
	}

	claim.ReviewStatus = models.ReviewStatusRejected
	_, err = tx.NewUpdate().
		Model(claim).
		Column("review_status").
		Where("id = ?", claim.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reject claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &ReviewResult{Claim: claim}, nil
}

// DueForRefresh returns claims whose external metrics are stale: they carry a
// video id, are submitted or still under/after review, and their cooldown has
// lapsed. Never-checked claims sort first.
func (r *claimRepository) DueForRefresh(ctx context.Context, now time.Time, limit int) ([]*models.WorkClaim, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var claims []*models.WorkClaim
	err := r.db.NewSelect().
		Model(&claims).
		Where("video_id != ''").
		Where("(status = ? OR review_status IN (?, ?))",
			models.ClaimStatusSubmitted, models.ReviewStatusApproved, models.ReviewStatusPending).
		Where("(next_check_at IS NULL OR next_check_at <= ?)", now).
		OrderExpr("next_check_at ASC NULLS FIRST").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims due for refresh: %w", err)
	}
	return claims, nil
}

// RecordMetrics stores a fresh stats snapshot on the claim and appends an
// immutable row to the metrics log in one transaction.
func (r *claimRepository) RecordMetrics(ctx context.Context, id int64, views, likes int64, nextCheck time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.NewUpdate().
		Model((*models.WorkClaim)(nil)).
		Set("views = ?", views).
		Set("likes = ?", likes).
		Set("last_checked_at = ?", now).
		Set("next_check_at = ?", nextCheck).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update claim metrics: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	entry := &models.ClaimMetricsLog{
		ClaimID:    id,
		SnapshotAt: now,
		Views:      views,
		Likes:      likes,
	}
	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append metrics log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
