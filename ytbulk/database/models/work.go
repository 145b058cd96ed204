package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Work is a slot-limited offer: TotalSlots paid tasks sharing one file batch
// and a fixed per-task price. RemainingSlots is mutated only by claim
// allocation and the expiry sweep, always inside a row-locked transaction.
type Work struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID              int64  `bun:"id,pk,autoincrement"`
	Name            string `bun:"name,notnull"`
	FileBatchID     int64  `bun:"file_batch_id,notnull"`
	PricePerItem    int64  `bun:"price_per_item,notnull,default:0"` // paise
	DeadlineMinutes int    `bun:"deadline_minutes,notnull,default:60"`
	VideoKey        string `bun:"video_key"` // object key of the uploaded video archive
	TotalSlots      int    `bun:"total_slots,notnull,default:0"`
	RemainingSlots  int    `bun:"remaining_slots,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Deadline returns the claim expiry for a claim assigned at t.
func (w *Work) Deadline(t time.Time) time.Time {
	minutes := w.DeadlineMinutes
	if minutes <= 0 {
		minutes = 60
	}
	return t.Add(time.Duration(minutes) * time.Minute)
}
