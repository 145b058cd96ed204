package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/uptrace/bun"
)

// WalletRepository is the ledger: the apply path is the only sanctioned
// mutator of a wallet balance. Every apply locks the wallet row, appends one
// signed transaction and folds its amount into the cached balance inside the
// same database transaction.
type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error)
	GetOrCreateTx(ctx context.Context, idb bun.IDB, userID string) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	Apply(ctx context.Context, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error)
	ApplyTx(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error)
	HasCreditForClaim(ctx context.Context, idb bun.IDB, kind models.TransactionKind, claimID int64) (bool, error)
	FindByNote(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, note string) (*models.WalletTransaction, error)
	Transactions(ctx context.Context, walletID int64, limit int) ([]*models.WalletTransaction, error)
}

type walletRepository struct {
	db *bun.DB
}

func NewWalletRepository(db *bun.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.GetOrCreateTx(ctx, r.db, userID)
}

// GetOrCreateTx creates the wallet lazily on first reference. The insert is
// ON CONFLICT DO NOTHING so two concurrent first references cannot race into
// duplicate wallets.
func (r *walletRepository) GetOrCreateTx(ctx context.Context, idb bun.IDB, userID string) (*models.Wallet, error) {
	wallet := new(models.Wallet)
	err := idb.NewSelect().
		Model(wallet).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet = &models.Wallet{UserID: userID}
	_, err = idb.NewInsert().
		Model(wallet).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	// Re-read: a concurrent creator may have won the conflict.
	err = idb.NewSelect().
		Model(wallet).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload wallet: %w", err)
	}
	return wallet, nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	wallet := new(models.Wallet)
	err := r.db.NewSelect().
		Model(wallet).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (r *walletRepository) Apply(ctx context.Context, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	txn, err := r.ApplyTx(ctx, tx, walletID, kind, amount, refClaimID, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// ApplyTx appends a signed transaction and updates the cached balance under
// an exclusive lock on the wallet row. Sign encodes direction: credits and
// debits share this single code path.
func (r *walletRepository) ApplyTx(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error) {
	wallet := new(models.Wallet)
	err := idb.NewSelect().
		Model(wallet).
		Where("id = ?", walletID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	txn := &models.WalletTransaction{
		WalletID:   walletID,
		Kind:       kind,
		Amount:     amount,
		RefClaimID: refClaimID,
		Note:       note,
	}
	if _, err := idb.NewInsert().Model(txn).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	_, err = idb.NewUpdate().
		Model((*models.Wallet)(nil)).
		Set("balance = balance + ?", amount).
		Where("id = ?", walletID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	return txn, nil
}

// HasCreditForClaim reports whether a transaction of the given kind already
// references the claim. Callers must hold the relevant row locks: the
// protocol is check locked row then create, never create then deduplicate.
func (r *walletRepository) HasCreditForClaim(ctx context.Context, idb bun.IDB, kind models.TransactionKind, claimID int64) (bool, error) {
	count, err := idb.NewSelect().
		Model((*models.WalletTransaction)(nil)).
		Where("kind = ?", kind).
		Where("ref_claim_id = ?", claimID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existing credit: %w", err)
	}
	return count > 0, nil
}

// FindByNote matches the note exactly. Callers embed ids in their markers, so
// a substring match would let one marker shadow another whose id it prefixes.
func (r *walletRepository) FindByNote(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, note string) (*models.WalletTransaction, error) {
	txn := new(models.WalletTransaction)
	err := idb.NewSelect().
		Model(txn).
		Where("wallet_id = ?", walletID).
		Where("kind = ?", kind).
		Where("note = ?", note).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction by note: %w", err)
	}
	return txn, nil
}

func (r *walletRepository) Transactions(ctx context.Context, walletID int64, limit int) ([]*models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var txns []*models.WalletTransaction
	err := r.db.NewSelect().
		Model(&txns).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
