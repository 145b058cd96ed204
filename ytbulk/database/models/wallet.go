package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Wallet holds a cached balance that is always the sum of its transactions'
// signed amounts. Only the wallet repository's apply path may touch Balance.
type Wallet struct {
	bun.BaseModel `bun:"table:wallets,alias:wl"`

	ID      int64  `bun:"id,pk,autoincrement"`
	UserID  string `bun:"user_id,notnull,unique"`
	Balance int64  `bun:"balance,notnull,default:0"` // paise
}

type TransactionKind string

const (
	TxKindTaskCredit      TransactionKind = "task_credit"
	TxKindMilestoneBonus  TransactionKind = "milestone_bonus"
	TxKindWithdrawalHold  TransactionKind = "withdrawal_hold"
	TxKindWithdrawal      TransactionKind = "withdrawal"
	TxKindAdminAdjustment TransactionKind = "admin_adjustment"
	TxKindReversal        TransactionKind = "reversal"
)

// WalletTransaction is one immutable signed ledger entry: positive amounts
// credit, negative amounts debit. The note doubles as an idempotency key for
// milestone bonuses.
type WalletTransaction struct {
	bun.BaseModel `bun:"table:wallet_transactions,alias:wt"`

	ID         int64           `bun:"id,pk,autoincrement"`
	WalletID   int64           `bun:"wallet_id,notnull"`
	Kind       TransactionKind `bun:"kind,notnull"`
	Amount     int64           `bun:"amount,notnull"` // signed, paise
	RefClaimID *int64          `bun:"ref_claim_id"`
	Note       string          `bun:"note"`
	CreatedAt  time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

// ReplayBalance folds a transaction log into the balance it implies.
// Used to verify the cached wallet balance in audits and tests.
func ReplayBalance(txns []*WalletTransaction) int64 {
	var sum int64
	for _, t := range txns {
		sum += t.Amount
	}
	return sum
}
