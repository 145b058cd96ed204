package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/uptrace/bun"
)

// BatchRepository stores generated metadata batches and their claimable
// items.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.FileBatch, items []*models.FileItem) error
	GetByID(ctx context.Context, id int64) (*models.FileBatch, error)
	GetByName(ctx context.Context, fileName string) (*models.FileBatch, error)
	List(ctx context.Context, limit int) ([]*models.FileBatch, error)
	GetItems(ctx context.Context, batchID int64) ([]*models.FileItem, error)
	RemainingCapacity(ctx context.Context, batchID int64) (int, error)
}

type batchRepository struct {
	db *bun.DB
}

func NewBatchRepository(db *bun.DB) BatchRepository {
	return &batchRepository{db: db}
}

// Create inserts the batch and all of its items in one transaction. Batch
// file names are unique; reusing one is ErrDuplicateBatch.
func (r *batchRepository) Create(ctx context.Context, batch *models.FileBatch, items []*models.FileItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := tx.NewSelect().
		Model((*models.FileBatch)(nil)).
		Where("file_name = ?", batch.FileName).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check batch name: %w", err)
	}
	if exists {
		return ErrDuplicateBatch
	}

	if _, err := tx.NewInsert().Model(batch).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	for _, item := range items {
		item.BatchID = batch.ID
	}
	if len(items) > 0 {
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create batch items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *batchRepository) GetByID(ctx context.Context, id int64) (*models.FileBatch, error) {
	batch := new(models.FileBatch)
	err := r.db.NewSelect().
		Model(batch).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepository) GetByName(ctx context.Context, fileName string) (*models.FileBatch, error) {
	batch := new(models.FileBatch)
	err := r.db.NewSelect().
		Model(batch).
		Where("file_name = ?", fileName).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepository) List(ctx context.Context, limit int) ([]*models.FileBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var batches []*models.FileBatch
	err := r.db.NewSelect().
		Model(&batches).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (r *batchRepository) GetItems(ctx context.Context, batchID int64) ([]*models.FileItem, error) {
	var items []*models.FileItem
	err := r.db.NewSelect().
		Model(&items).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch items: %w", err)
	}
	return items, nil
}

// RemainingCapacity is the number of claims the batch can still back: the
// sum of each item's remaining uses.
func (r *batchRepository) RemainingCapacity(ctx context.Context, batchID int64) (int, error) {
	var capacity int
	err := r.db.NewSelect().
		Model((*models.FileItem)(nil)).
		ColumnExpr("COALESCE(SUM(GREATEST(reuse_limit - used_count, 0)), 0)").
		Where("batch_id = ?", batchID).
		Scan(ctx, &capacity)
	if err != nil {
		return 0, fmt.Errorf("failed to compute batch capacity: %w", err)
	}
	return capacity, nil
}
