package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest is one payout ask. The hold transaction debits the
// wallet at creation time, so approval only records an audit marker and
// rejection reverses the hold.
type WithdrawalRequest struct {
	bun.BaseModel `bun:"table:withdrawal_requests,alias:wr"`

	ID            int64            `bun:"id,pk,autoincrement"`
	WalletID      int64            `bun:"wallet_id,notnull"`
	Amount        int64            `bun:"amount,notnull"` // paise
	PayoutAddress string           `bun:"payout_address,notnull"` // UPI VPA, e.g. name@bank
	Status        WithdrawalStatus `bun:"status,notnull,default:'pending'"`
	RequestedAt   time.Time        `bun:"requested_at,notnull,default:current_timestamp"`
	ProcessedAt   *time.Time       `bun:"processed_at"`
	AdminNote     string           `bun:"admin_note"`
}

func (r *WithdrawalRequest) Pending() bool {
	return r.Status == WithdrawalStatusPending
}
