package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/uptrace/bun"
)

// WorkRepository owns the work-slot inventory. AllocateClaim and SweepExpired
// are the only writers of remaining_slots and used_count, and both take the
// work row lock first so slot accounting can never go negative or leak.
type WorkRepository interface {
	Create(ctx context.Context, work *models.Work) error
	GetByID(ctx context.Context, id int64) (*models.Work, error)
	List(ctx context.Context) ([]*models.Work, error)
	ListOpen(ctx context.Context) ([]*models.Work, error)
	SetVideoKey(ctx context.Context, id int64, key string) error
	AllocateClaim(ctx context.Context, userID string, workID int64) (*models.WorkClaim, error)
	SweepExpired(ctx context.Context, workID int64) (int, error)
	SweepAllExpired(ctx context.Context) (int, error)
}

type workRepository struct {
	db *bun.DB
}

func NewWorkRepository(db *bun.DB) WorkRepository {
	return &workRepository{db: db}
}

// Create validates the slot count against the batch's remaining item capacity
// before inserting; a work must never promise more slots than its batch can
// back with item uses.
func (r *workRepository) Create(ctx context.Context, work *models.Work) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	err = tx.NewSelect().
		Model((*models.FileItem)(nil)).
		ColumnExpr("COALESCE(SUM(GREATEST(reuse_limit - used_count, 0)), 0)").
		Where("batch_id = ?", work.FileBatchID).
		Scan(ctx, &capacity)
	if err != nil {
		return fmt.Errorf("failed to compute batch capacity: %w", err)
	}
	if work.TotalSlots <= 0 || work.TotalSlots > capacity {
		return ErrInsufficientCapacity
	}

	work.RemainingSlots = work.TotalSlots
	if _, err := tx.NewInsert().Model(work).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create work: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *workRepository) GetByID(ctx context.Context, id int64) (*models.Work, error) {
	work := new(models.Work)
	err := r.db.NewSelect().
		Model(work).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work: %w", err)
	}
	return work, nil
}

func (r *workRepository) List(ctx context.Context) ([]*models.Work, error) {
	var works []*models.Work
	err := r.db.NewSelect().
		Model(&works).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list works: %w", err)
	}
	return works, nil
}

func (r *workRepository) ListOpen(ctx context.Context) ([]*models.Work, error) {
	var works []*models.Work
	err := r.db.NewSelect().
		Model(&works).
		Where("remaining_slots > 0").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open works: %w", err)
	}
	return works, nil
}

func (r *workRepository) SetVideoKey(ctx context.Context, id int64, key string) error {
	res, err := r.db.NewUpdate().
		Model((*models.Work)(nil)).
		Set("video_key = ?", key).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set video key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AllocateClaim atomically hands one work slot and one metadata item to the
// user. The work row lock is taken before any check: it serializes all
// allocations for a work, so the eligibility counts that follow cannot race
// with a concurrent insert. One claim per (user, work) ever, one active claim
// per user globally.
func (r *workRepository) AllocateClaim(ctx context.Context, userID string, workID int64) (*models.WorkClaim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	work := new(models.Work)
	err = tx.NewSelect().
		Model(work).
		Where("id = ?", workID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock work: %w", err)
	}

	participated, err := tx.NewSelect().
		Model((*models.WorkClaim)(nil)).
		Where("user_id = ?", userID).
		Where("work_id = ?", workID).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	if participated > 0 {
		return nil, ErrAlreadyParticipated
	}

	active, err := tx.NewSelect().
		Model((*models.WorkClaim)(nil)).
		Where("user_id = ?", userID).
		Where("status = ?", models.ClaimStatusClaimed).
		Where("expires_at > ?", now).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check active claims: %w", err)
	}
	if active > 0 {
		return nil, ErrActiveClaim
	}

	if work.RemainingSlots <= 0 {
		return nil, ErrSoldOut
	}

	var candidateIDs []int64
	err = tx.NewSelect().
		Model((*models.FileItem)(nil)).
		Column("id").
		Where("batch_id = ?", work.FileBatchID).
		Where("used_count < reuse_limit").
		Scan(ctx, &candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find available items: %w", err)
	}
	if len(candidateIDs) == 0 {
		return nil, ErrOutOfInventory
	}

	// Random pick keeps item assignment uniform across workers instead of
	// always draining the lowest ids first.
	itemID := candidateIDs[rand.IntN(len(candidateIDs))]

	item := new(models.FileItem)
	err = tx.NewSelect().
		Model(item).
		Where("id = ?", itemID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	_, err = tx.NewUpdate().
		Model((*models.FileItem)(nil)).
		Set("used_count = used_count + 1").
		Where("id = ?", item.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to consume item use: %w", err)
	}

	_, err = tx.NewUpdate().
		Model((*models.Work)(nil)).
		Set("remaining_slots = remaining_slots - 1").
		Where("id = ?", work.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to consume work slot: %w", err)
	}

	claim := &models.WorkClaim{
		UserID:       userID,
		WorkID:       work.ID,
		FileItemID:   &item.ID,
		Title:        item.Title,
		Description:  item.Description,
		Tags:         item.Tags,
		PayoutAmount: work.PricePerItem,
		Status:       models.ClaimStatusClaimed,
		ReviewStatus: models.ReviewStatusPending,
		ClientID:     uuid.NewString(),
		AssignedAt:   now,
		ExpiresAt:    work.Deadline(now),
	}
	if _, err := tx.NewInsert().Model(claim).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return claim, nil
}

// SweepExpired expires every overdue claimed claim of a work and returns
// freed slots and item uses to inventory. Lock order matches AllocateClaim:
// work first, then claims.
func (r *workRepository) SweepExpired(ctx context.Context, workID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	work := new(models.Work)
	err = tx.NewSelect().
		Model(work).
		Where("id = ?", workID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock work: %w", err)
	}

	var expired []*models.WorkClaim
	err = tx.NewSelect().
		Model(&expired).
		Where("work_id = ?", workID).
		Where("status = ?", models.ClaimStatusClaimed).
		Where("expires_at <= ?", now).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to lock expired claims: %w", err)
	}
	if len(expired) == 0 {
		return 0, tx.Commit()
	}

	for _, claim := range expired {
		if claim.FileItemID != nil {
			_, err = tx.NewUpdate().
				Model((*models.FileItem)(nil)).
				Set("used_count = GREATEST(used_count - 1, 0)").
				Where("id = ?", *claim.FileItemID).
				Exec(ctx)
			if err != nil {
				return 0, fmt.Errorf("failed to return item use: %w", err)
			}
		}

		_, err = tx.NewUpdate().
			Model((*models.WorkClaim)(nil)).
			Set("status = ?", models.ClaimStatusExpired).
			Where("id = ?", claim.ID).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to expire claim: %w", err)
		}
	}

	_, err = tx.NewUpdate().
		Model((*models.Work)(nil)).
		Set("remaining_slots = LEAST(remaining_slots + ?, total_slots)", len(expired)).
		Where("id = ?", workID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to return work slots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(expired), nil
}

// SweepAllExpired runs the per-work sweep for every work that currently has
// at least one overdue claim. Each work commits independently so one bad row
// cannot wedge the whole sweep.
func (r *workRepository) SweepAllExpired(ctx context.Context) (int, error) {
	var workIDs []int64
	err := r.db.NewSelect().
		Model((*models.WorkClaim)(nil)).
		ColumnExpr("DISTINCT work_id").
		Where("status = ?", models.ClaimStatusClaimed).
		Where("expires_at <= ?", time.Now().UTC()).
		Scan(ctx, &workIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to find works with expired claims: %w", err)
	}

	total := 0
	for _, id := range workIDs {
		n, err := r.SweepExpired(ctx, id)
		if err != nil {
			return total, fmt.Errorf("failed to sweep work %d: %w", id, err)
		}
		total += n
	}
	return total, nil
}
