package models

import (
	"time"

	"github.com/uptrace/bun"
)

// FileBatch is a named set of generated video metadata items. Works are
// carved out of a batch and hand its items to workers one claim at a time.
type FileBatch struct {
	bun.BaseModel `bun:"table:file_batches,alias:fb"`

	ID           int64     `bun:"id,pk,autoincrement"`
	FileName     string    `bun:"file_name,notnull,unique"`
	SeedKeyword  string    `bun:"seed_keyword,notnull"`
	TitleCount   int       `bun:"title_count,notnull,default:0"`
	SuggestCount int       `bun:"suggest_count,notnull,default:0"`
	DescLength   int       `bun:"desc_length,notnull,default:0"`
	Suggestions  []string  `bun:"suggestions,type:jsonb"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// FileItem is one unit of claimable inventory: a title/description/tags
// triple that may be handed out up to ReuseLimit times.
type FileItem struct {
	bun.BaseModel `bun:"table:file_items,alias:fi"`

	ID          int64  `bun:"id,pk,autoincrement"`
	BatchID     int64  `bun:"batch_id,notnull"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`
	Tags        string `bun:"tags"`
	ReuseLimit  int    `bun:"reuse_limit,notnull,default:2"`
	UsedCount   int    `bun:"used_count,notnull,default:0"`
}

// RemainingUses reports how many more claims this item can back.
func (i *FileItem) RemainingUses() int {
	if n := i.ReuseLimit - i.UsedCount; n > 0 {
		return n
	}
	return 0
}
