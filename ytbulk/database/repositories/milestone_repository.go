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

// MilestoneResult reports a milestone payout decision, mirroring ReviewResult
// for claims.
type MilestoneResult struct {
	Payout  *models.MilestonePayout
	Already bool
	Txn     *models.WalletTransaction
}

type MilestoneRepository interface {
	CreateRule(ctx context.Context, rule *models.MilestoneRule) error
	UpdateRule(ctx context.Context, rule *models.MilestoneRule) error
	ListRules(ctx context.Context, activeOnly bool) ([]*models.MilestoneRule, error)
	ActiveRulesUpTo(ctx context.Context, views int64) ([]*models.MilestoneRule, error)
	RecordHit(ctx context.Context, claim *models.WorkClaim, rule *models.MilestoneRule) (bool, error)
	GetPayout(ctx context.Context, id int64) (*models.MilestonePayout, error)
	PendingPayouts(ctx context.Context, limit int) ([]*models.MilestonePayout, error)
	PayoutsForClaim(ctx context.Context, claimID int64) ([]*models.MilestonePayout, error)
	ApprovePayout(ctx context.Context, id int64) (*MilestoneResult, error)
	RejectPayout(ctx context.Context, id int64) (*MilestoneResult, error)
}

type milestoneRepository struct {
	db      *bun.DB
	wallets WalletRepository
}

func NewMilestoneRepository(db *bun.DB, wallets WalletRepository) MilestoneRepository {
	return &milestoneRepository{db: db, wallets: wallets}
}

func (r *milestoneRepository) CreateRule(ctx context.Context, rule *models.MilestoneRule) error {
	if _, err := r.db.NewInsert().Model(rule).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create milestone rule: %w", err)
	}
	return nil
}

func (r *milestoneRepository) UpdateRule(ctx context.Context, rule *models.MilestoneRule) error {
	rule.UpdatedAt = time.Now().UTC()
	res, err := r.db.NewUpdate().
		Model(rule).
		Column("active", "threshold_views", "payout_amount", "updated_at").
		Where("id = ?", rule.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update milestone rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *milestoneRepository) ListRules(ctx context.Context, activeOnly bool) ([]*models.MilestoneRule, error) {
	var rules []*models.MilestoneRule
	q := r.db.NewSelect().Model(&rules)
	if activeOnly {
		q = q.Where("active = TRUE")
	}
	if err := q.Order("threshold_views ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list milestone rules: %w", err)
	}
	return rules, nil
}

// ActiveRulesUpTo returns active rules whose threshold the view count has
// reached, ascending, so callers fire lower milestones before higher ones.
func (r *milestoneRepository) ActiveRulesUpTo(ctx context.Context, views int64) ([]*models.MilestoneRule, error) {
	var rules []*models.MilestoneRule
	err := r.db.NewSelect().
		Model(&rules).
		Where("active = TRUE").
		Where("threshold_views <= ?", views).
		Order("threshold_views ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reached milestone rules: %w", err)
	}
	return rules, nil
}

// RecordHit creates the pending payout for one (claim, rule) crossing. The
// unique constraint on the pair plus ON CONFLICT DO NOTHING make this safe
// against overlapping refresh runs; it reports whether this call created the
// row.
func (r *milestoneRepository) RecordHit(ctx context.Context, claim *models.WorkClaim, rule *models.MilestoneRule) (bool, error) {
	payout := &models.MilestonePayout{
		ClaimID:       claim.ID,
		RuleID:        rule.ID,
		ViewsSnapshot: claim.Views,
		LikesSnapshot: claim.Likes,
		Amount:        rule.PayoutAmount,
		Status:        models.ReviewStatusPending,
	}
	res, err := r.db.NewInsert().
		Model(payout).
		On("CONFLICT (claim_id, rule_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to record milestone hit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

func (r *milestoneRepository) GetPayout(ctx context.Context, id int64) (*models.MilestonePayout, error) {
	payout := new(models.MilestonePayout)
	err := r.db.NewSelect().
		Model(payout).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone payout: %w", err)
	}
	return payout, nil
}

func (r *milestoneRepository) PendingPayouts(ctx context.Context, limit int) ([]*models.MilestonePayout, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var payouts []*models.MilestonePayout
	err := r.db.NewSelect().
		Model(&payouts).
		Where("status = ?", models.ReviewStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending milestone payouts: %w", err)
	}
	return payouts, nil
}

func (r *milestoneRepository) PayoutsForClaim(ctx context.Context, claimID int64) ([]*models.MilestonePayout, error) {
	var payouts []*models.MilestonePayout
	err := r.db.NewSelect().
		Model(&payouts).
		Where("claim_id = ?", claimID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestone payouts: %w", err)
	}
	return payouts, nil
}

// ApprovePayout credits the bonus exactly once. Idempotency is double
// layered: the credited_txn_id marker on the payout row and a ledger note
// lookup that survives even if the marker was lost.
func (r *milestoneRepository) ApprovePayout(ctx context.Context, id int64) (*MilestoneResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	payout := new(models.MilestonePayout)
	err = tx.NewSelect().
		Model(payout).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock milestone payout: %w", err)
	}

	if payout.Status == models.ReviewStatusRejected {
		return nil, ErrInvalidTransition
	}
	if payout.Status == models.ReviewStatusApproved && payout.CreditedTxnID != nil {
		return &MilestoneResult{Payout: payout, Already: true}, nil
	}

	claim := new(models.WorkClaim)
	err = tx.NewSelect().
		Model(claim).
		Where("id = ?", payout.ClaimID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim for payout: %w", err)
	}

	wallet, err := r.wallets.GetOrCreateTx(ctx, tx, claim.UserID)
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("MilestonePayout#%d", payout.ID)
	existing, err := r.wallets.FindByNote(ctx, tx, wallet.ID, models.TxKindMilestoneBonus, note)
	if err != nil {
		return nil, err
	}

	result := &MilestoneResult{Payout: payout}
	var txnID *int64
	if existing != nil {
		result.Already = true
		txnID = &existing.ID
	} else if payout.Amount > 0 {
		claimID := claim.ID
		txn, err := r.wallets.ApplyTx(ctx, tx, wallet.ID, models.TxKindMilestoneBonus, payout.Amount, &claimID, note)
		if err != nil {
			return nil, err
		}
		result.Txn = txn
		txnID = &txn.ID
	}

	now := time.Now().UTC()
	payout.Status = models.ReviewStatusApproved
	payout.DecidedAt = &now
	payout.CreditedTxnID = txnID
	_, err = tx.NewUpdate().
		Model(payout).
		Column("status", "decided_at", "credited_txn_id").
		Where("id = ?", payout.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to approve milestone payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (r *milestoneRepository) RejectPayout(ctx context.Context, id int64) (*MilestoneResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	payout := new(models.MilestonePayout)
	err = tx.NewSelect().
		Model(payout).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock milestone payout: %w", err)
	}

	if payout.Status == models.ReviewStatusApproved {
		return nil, ErrInvalidTransition
	}
	if payout.Status == models.ReviewStatusRejected {
		return &MilestoneResult{Payout: payout, Already: true}, nil
	}

	now := time.Now().UTC()
	payout.Status = models.ReviewStatusRejected
	payout.DecidedAt = &now
	_, err = tx.NewUpdate().
		Model(payout).
		Column("status", "decided_at").
		Where("id = ?", payout.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reject milestone payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &MilestoneResult{Payout: payout}, nil
}
