package web

import (
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
)

// View structs fix the public JSON shape independently of the storage
// models. All money fields are paise.

type workView struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	PricePerItem    int64     `json:"price_per_item"`
	DeadlineMinutes int       `json:"deadline_minutes"`
	TotalSlots      int       `json:"total_slots"`
	RemainingSlots  int       `json:"remaining_slots"`
	VideoURL        string    `json:"video_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Server) viewWork(w *models.Work) workView {
	v := workView{
		ID:              w.ID,
		Name:            w.Name,
		PricePerItem:    w.PricePerItem,
		DeadlineMinutes: w.DeadlineMinutes,
		TotalSlots:      w.TotalSlots,
		RemainingSlots:  w.RemainingSlots,
		CreatedAt:       w.CreatedAt,
	}
	if w.VideoKey != "" && s.Spaces != nil {
		v.VideoURL = s.Spaces.PublicURL(w.VideoKey)
	}
	return v
}

func (s *Server) viewWorks(works []*models.Work) []workView {
	views := make([]workView, 0, len(works))
	for _, w := range works {
		views = append(views, s.viewWork(w))
	}
	return views
}

type claimView struct {
	ID           int64      `json:"id"`
	WorkID       int64      `json:"work_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Tags         string     `json:"tags"`
	PayoutAmount int64      `json:"payout_amount"`
	Status       string     `json:"status"`
	ReviewStatus string     `json:"review_status"`
	ClientID     string     `json:"client_id"`
	AssignedAt   time.Time  `json:"assigned_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	VideoURL     string     `json:"video_url,omitempty"`
	VideoID      string     `json:"video_id,omitempty"`
	Views        int64      `json:"views"`
	Likes        int64      `json:"likes"`
}

func viewClaim(c *models.WorkClaim) claimView {
	return claimView{
		ID:           c.ID,
		WorkID:       c.WorkID,
		Title:        c.Title,
		Description:  c.Description,
		Tags:         c.Tags,
		PayoutAmount: c.PayoutAmount,
		Status:       string(c.Status),
		ReviewStatus: string(c.ReviewStatus),
		ClientID:     c.ClientID,
		AssignedAt:   c.AssignedAt,
		ExpiresAt:    c.ExpiresAt,
		SubmittedAt:  c.SubmittedAt,
		VideoURL:     c.VideoURL,
		VideoID:      c.VideoID,
		Views:        c.Views,
		Likes:        c.Likes,
	}
}

func viewClaims(claims []*models.WorkClaim) []claimView {
	views := make([]claimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, viewClaim(c))
	}
	return views
}

type submissionView struct {
	claimView
	UserID string `json:"user_id"`
}

func viewSubmissions(claims []*models.WorkClaim) []submissionView {
	views := make([]submissionView, 0, len(claims))
	for _, c := range claims {
		views = append(views, submissionView{claimView: viewClaim(c), UserID: c.UserID})
	}
	return views
}

type transactionView struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Amount     int64     `json:"amount"`
	RefClaimID *int64    `json:"ref_claim_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func viewTransaction(t *models.WalletTransaction) transactionView {
	return transactionView{
		ID:         t.ID,
		Kind:       string(t.Kind),
		Amount:     t.Amount,
		RefClaimID: t.RefClaimID,
		Note:       t.Note,
		CreatedAt:  t.CreatedAt,
	}
}

func viewTransactions(txns []*models.WalletTransaction) []transactionView {
	views := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, viewTransaction(t))
	}
	return views
}

type withdrawalView struct {
	ID            int64      `json:"id"`
	Amount        int64      `json:"amount"`
	PayoutAddress string     `json:"payout_address"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requested_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	AdminNote     string     `json:"admin_note,omitempty"`
}

func viewWithdrawal(w *models.WithdrawalRequest) withdrawalView {
	return withdrawalView{
		ID:            w.ID,
		Amount:        w.Amount,
		PayoutAddress: w.PayoutAddress,
		Status:        string(w.Status),
		RequestedAt:   w.RequestedAt,
		ProcessedAt:   w.ProcessedAt,
		AdminNote:     w.AdminNote,
	}
}

func viewWithdrawals(reqs []*models.WithdrawalRequest) []withdrawalView {
	views := make([]withdrawalView, 0, len(reqs))
	for _, w := range reqs {
		views = append(views, viewWithdrawal(w))
	}
	return views
}

type ruleView struct {
	ID             int64 `json:"id"`
	Active         bool  `json:"active"`
	ThresholdViews int64 `json:"threshold_views"`
	PayoutAmount   int64 `json:"payout_amount"`
}

func viewRules(rules []*models.MilestoneRule) []ruleView {
	views := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, ruleView{
			ID:             r.ID,
			Active:         r.Active,
			ThresholdViews: r.ThresholdViews,
			PayoutAmount:   r.PayoutAmount,
		})
	}
	return views
}

type payoutView struct {
	ID            int64      `json:"id"`
	ClaimID       int64      `json:"claim_id"`
	RuleID        int64      `json:"rule_id"`
	ViewsSnapshot int64      `json:"views_snapshot"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
}

func viewPayout(p *models.MilestonePayout) payoutView {
	return payoutView{
		ID:            p.ID,
		ClaimID:       p.ClaimID,
		RuleID:        p.RuleID,
		ViewsSnapshot: p.ViewsSnapshot,
		Amount:        p.Amount,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		DecidedAt:     p.DecidedAt,
	}
}

func viewPayouts(payouts []*models.MilestonePayout) []payoutView {
	views := make([]payoutView, 0, len(payouts))
	for _, p := range payouts {
		views = append(views, viewPayout(p))
	}
	return views
}

type batchView struct {
	ID           int64     `json:"id"`
	FileName     string    `json:"file_name"`
	SeedKeyword  string    `json:"seed_keyword"`
	TitleCount   int       `json:"title_count"`
	SuggestCount int       `json:"suggest_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func viewBatch(b *models.FileBatch) batchView {
	return batchView{
		ID:           b.ID,
		FileName:     b.FileName,
		SeedKeyword:  b.SeedKeyword,
		TitleCount:   b.TitleCount,
		SuggestCount: b.SuggestCount,
		CreatedAt:    b.CreatedAt,
	}
}

func viewBatches(batches []*models.FileBatch) []batchView {
	views := make([]batchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, viewBatch(b))
	}
	return views
}

type itemView struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Tags          string `json:"tags"`
	ReuseLimit    int    `json:"reuse_limit"`
	UsedCount     int    `json:"used_count"`
	RemainingUses int    `json:"remaining_uses"`
}

func viewItems(items []*models.FileItem) []itemView {
	views := make([]itemView, 0, len(items))
	for _, i := range items {
		views = append(views, itemView{
			ID:            i.ID,
			Title:         i.Title,
			Description:   i.Description,
			Tags:          i.Tags,
			ReuseLimit:    i.ReuseLimit,
			UsedCount:     i.UsedCount,
			RemainingUses: i.RemainingUses(),
		})
	}
	return views
}
