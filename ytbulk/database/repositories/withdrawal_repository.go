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

// WithdrawalRepository implements the hold model: the full amount leaves the
// wallet the moment the request is created. Approval therefore records a
// zero-amount audit entry and rejection credits the hold back.
type WithdrawalRepository interface {
	Create(ctx context.Context, userID string, amount int64, payoutAddress string, minAmount int64) (*models.WithdrawalRequest, error)
	GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error)
	ListForWallet(ctx context.Context, walletID int64) ([]*models.WithdrawalRequest, error)
	List(ctx context.Context, status models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error)
	Approve(ctx context.Context, id int64, adminNote string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, id int64, adminNote string) (*models.WithdrawalRequest, error)
}

type withdrawalRepository struct {
	db      *bun.DB
	wallets WalletRepository
}

func NewWithdrawalRepository(db *bun.DB, wallets WalletRepository) WithdrawalRepository {
	return &withdrawalRepository{db: db, wallets: wallets}
}

// Create places a withdrawal request and debits the hold in one transaction.
// The wallet row lock is taken before the balance check, so two concurrent
// requests can never both pass against the same funds.
func (r *withdrawalRepository) Create(ctx context.Context, userID string, amount int64, payoutAddress string, minAmount int64) (*models.WithdrawalRequest, error) {
	if amount < minAmount {
		return nil, ErrBelowMinimum
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	wallet, err := r.wallets.GetOrCreateTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	locked := new(models.Wallet)
	err = tx.NewSelect().
		Model(locked).
		Where("id = ?", wallet.ID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if locked.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	req := &models.WithdrawalRequest{
		WalletID:      wallet.ID,
		Amount:        amount,
		PayoutAddress: payoutAddress,
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   time.Now().UTC(),
	}
	if _, err := tx.NewInsert().Model(req).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	_, err = r.wallets.ApplyTx(ctx, tx, wallet.ID, models.TxKindWithdrawalHold, -amount, nil,
		fmt.Sprintf("Hold for WR#%d", req.ID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return req, nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	req := new(models.WithdrawalRequest)
	err := r.db.NewSelect().
		Model(req).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return req, nil
}

func (r *withdrawalRepository) ListForWallet(ctx context.Context, walletID int64) ([]*models.WithdrawalRequest, error) {
	var reqs []*models.WithdrawalRequest
	err := r.db.NewSelect().
		Model(&reqs).
		Where("wallet_id = ?", walletID).
		Order("requested_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return reqs, nil
}

func (r *withdrawalRepository) List(ctx context.Context, status models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var reqs []*models.WithdrawalRequest
	q := r.db.NewSelect().Model(&reqs)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("requested_at DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return reqs, nil
}

// Approve settles a pending request. The money already left with the hold, so
// the ledger only gains a zero-amount marker tying the settlement to the
// request for audit.
func (r *withdrawalRepository) Approve(ctx context.Context, id int64, adminNote string) (*models.WithdrawalRequest, error) {
	return r.decide(ctx, id, adminNote, true)
}

// Reject cancels a pending request and returns the held amount.
func (r *withdrawalRepository) Reject(ctx context.Context, id int64, adminNote string) (*models.WithdrawalRequest, error) {
	return r.decide(ctx, id, adminNote, false)
}

func (r *withdrawalRepository) decide(ctx context.Context, id int64, adminNote string, approve bool) (*models.WithdrawalRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	req := new(models.WithdrawalRequest)
	err = tx.NewSelect().
		Model(req).
		Where("id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal request: %w", err)
	}
	if !req.Pending() {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	req.ProcessedAt = &now
	req.AdminNote = adminNote
	if approve {
		req.Status = models.WithdrawalStatusApproved
	} else {
		req.Status = models.WithdrawalStatusRejected
	}

	_, err = tx.NewUpdate().
		Model(req).
		Column("status", "processed_at", "admin_note").
		Where("id = ?", req.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	if approve {
		_, err = r.wallets.ApplyTx(ctx, tx, req.WalletID, models.TxKindWithdrawal, 0, nil,
			fmt.Sprintf("Approved WR#%d", req.ID))
	} else {
		_, err = r.wallets.ApplyTx(ctx, tx, req.WalletID, models.TxKindReversal, req.Amount, nil,
			fmt.Sprintf("Reversal of hold WR#%d", req.ID))
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return req, nil
}
