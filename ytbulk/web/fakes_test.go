package web

import (
	"context"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/uptrace/bun"
)

// Function-backed fakes. Unset methods fail with ErrNotFound so a handler
// reaching for something a test did not stub shows up as a 404/500 instead
// of a panic.

type fakeWorkRepo struct {
	create     func(ctx context.Context, work *models.Work) error
	getByID    func(ctx context.Context, id int64) (*models.Work, error)
	list       func(ctx context.Context) ([]*models.Work, error)
	listOpen   func(ctx context.Context) ([]*models.Work, error)
	allocate   func(ctx context.Context, userID string, workID int64) (*models.WorkClaim, error)
	sweepAll   func(ctx context.Context) (int, error)
	setVideoFn func(ctx context.Context, id int64, key string) error
}

func (f *fakeWorkRepo) Create(ctx context.Context, work *models.Work) error {
	if f.create == nil {
		return repositories.ErrNotFound
	}
	return f.create(ctx, work)
}

func (f *fakeWorkRepo) GetByID(ctx context.Context, id int64) (*models.Work, error) {
	if f.getByID == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getByID(ctx, id)
}

func (f *fakeWorkRepo) List(ctx context.Context) ([]*models.Work, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx)
}

func (f *fakeWorkRepo) ListOpen(ctx context.Context) ([]*models.Work, error) {
	if f.listOpen == nil {
		return nil, nil
	}
	return f.listOpen(ctx)
}

func (f *fakeWorkRepo) SetVideoKey(ctx context.Context, id int64, key string) error {
	if f.setVideoFn == nil {
		return repositories.ErrNotFound
	}
	return f.setVideoFn(ctx, id, key)
}

func (f *fakeWorkRepo) AllocateClaim(ctx context.Context, userID string, workID int64) (*models.WorkClaim, error) {
	if f.allocate == nil {
		return nil, repositories.ErrNotFound
	}
	return f.allocate(ctx, userID, workID)
}

func (f *fakeWorkRepo) SweepExpired(ctx context.Context, workID int64) (int, error) {
	return 0, nil
}

func (f *fakeWorkRepo) SweepAllExpired(ctx context.Context) (int, error) {
	if f.sweepAll == nil {
		return 0, nil
	}
	return f.sweepAll(ctx)
}

type fakeClaimRepo struct {
	getOwned func(ctx context.Context, id int64, userID string) (*models.WorkClaim, error)
	active   func(ctx context.Context, userID string) (*models.WorkClaim, error)
	listUser func(ctx context.Context, userID string) ([]*models.WorkClaim, error)
	submit   func(ctx context.Context, id int64, userID, videoURL, videoID string) (*models.WorkClaim, error)
	approve  func(ctx context.Context, id int64) (*repositories.ReviewResult, error)
	reject   func(ctx context.Context, id int64) (*repositories.ReviewResult, error)
}

func (f *fakeClaimRepo) GetByID(ctx context.Context, id int64) (*models.WorkClaim, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeClaimRepo) GetOwned(ctx context.Context, id int64, userID string) (*models.WorkClaim, error) {
	if f.getOwned == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getOwned(ctx, id, userID)
}

func (f *fakeClaimRepo) ActiveForUser(ctx context.Context, userID string) (*models.WorkClaim, error) {
	if f.active == nil {
		return nil, nil
	}
	return f.active(ctx, userID)
}

func (f *fakeClaimRepo) ListForUser(ctx context.Context, userID string) ([]*models.WorkClaim, error) {
	if f.listUser == nil {
		return nil, nil
	}
	return f.listUser(ctx, userID)
}

func (f *fakeClaimRepo) ListSubmissions(ctx context.Context, filter repositories.SubmissionFilter) ([]*models.WorkClaim, error) {
	return nil, nil
}

func (f *fakeClaimRepo) Submit(ctx context.Context, id int64, userID, videoURL, videoID string) (*models.WorkClaim, error) {
	if f.submit == nil {
		return nil, repositories.ErrNotFound
	}
	return f.submit(ctx, id, userID, videoURL, videoID)
}

func (f *fakeClaimRepo) Approve(ctx context.Context, id int64) (*repositories.ReviewResult, error) {
	if f.approve == nil {
		return nil, repositories.ErrNotFound
	}
	return f.approve(ctx, id)
}

func (f *fakeClaimRepo) Reject(ctx context.Context, id int64) (*repositories.ReviewResult, error) {
	if f.reject == nil {
		return nil, repositories.ErrNotFound
	}
	return f.reject(ctx, id)
}

func (f *fakeClaimRepo) DueForRefresh(ctx context.Context, now time.Time, limit int) ([]*models.WorkClaim, error) {
	return nil, nil
}

func (f *fakeClaimRepo) RecordMetrics(ctx context.Context, id int64, views, likes int64, nextCheck time.Time) error {
	return nil
}

type fakeWalletRepo struct {
	getOrCreate  func(ctx context.Context, userID string) (*models.Wallet, error)
	transactions func(ctx context.Context, walletID int64, limit int) ([]*models.WalletTransaction, error)
}

func (f *fakeWalletRepo) GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error) {
	if f.getOrCreate == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getOrCreate(ctx, userID)
}

func (f *fakeWalletRepo) GetOrCreateTx(ctx context.Context, idb bun.IDB, userID string) (*models.Wallet, error) {
	return f.GetOrCreate(ctx, userID)
}

func (f *fakeWalletRepo) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeWalletRepo) Apply(ctx context.Context, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeWalletRepo) ApplyTx(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, amount int64, refClaimID *int64, note string) (*models.WalletTransaction, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeWalletRepo) HasCreditForClaim(ctx context.Context, idb bun.IDB, kind models.TransactionKind, claimID int64) (bool, error) {
	return false, nil
}

func (f *fakeWalletRepo) FindByNote(ctx context.Context, idb bun.IDB, walletID int64, kind models.TransactionKind, note string) (*models.WalletTransaction, error) {
	return nil, nil
}

func (f *fakeWalletRepo) Transactions(ctx context.Context, walletID int64, limit int) ([]*models.WalletTransaction, error) {
	if f.transactions == nil {
		return nil, nil
	}
	return f.transactions(ctx, walletID, limit)
}

type fakeWithdrawalRepo struct {
	create func(ctx context.Context, userID string, amount int64, payoutAddress string, minAmount int64) (*models.WithdrawalRequest, error)
	list   func(ctx context.Context, status models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error)
	decide func(ctx context.Context, id int64, note string, approve bool) (*models.WithdrawalRequest, error)
}

func (f *fakeWithdrawalRepo) Create(ctx context.Context, userID string, amount int64, payoutAddress string, minAmount int64) (*models.WithdrawalRequest, error) {
	if f.create == nil {
		return nil, repositories.ErrNotFound
	}
	return f.create(ctx, userID, amount, payoutAddress, minAmount)
}

func (f *fakeWithdrawalRepo) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeWithdrawalRepo) ListForWallet(ctx context.Context, walletID int64) ([]*models.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawalRepo) List(ctx context.Context, status models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(ctx, status, limit)
}

func (f *fakeWithdrawalRepo) Approve(ctx context.Context, id int64, note string) (*models.WithdrawalRequest, error) {
	if f.decide == nil {
		return nil, repositories.ErrNotFound
	}
	return f.decide(ctx, id, note, true)
}

func (f *fakeWithdrawalRepo) Reject(ctx context.Context, id int64, note string) (*models.WithdrawalRequest, error) {
	if f.decide == nil {
		return nil, repositories.ErrNotFound
	}
	return f.decide(ctx, id, note, false)
}

type fakeMilestoneRepo struct {
	approvePayout func(ctx context.Context, id int64) (*repositories.MilestoneResult, error)
}

func (f *fakeMilestoneRepo) CreateRule(ctx context.Context, rule *models.MilestoneRule) error {
	rule.ID = 1
	return nil
}

func (f *fakeMilestoneRepo) UpdateRule(ctx context.Context, rule *models.MilestoneRule) error {
	return nil
}

func (f *fakeMilestoneRepo) ListRules(ctx context.Context, activeOnly bool) ([]*models.MilestoneRule, error) {
	return nil, nil
}

func (f *fakeMilestoneRepo) ActiveRulesUpTo(ctx context.Context, views int64) ([]*models.MilestoneRule, error) {
	return nil, nil
}

func (f *fakeMilestoneRepo) RecordHit(ctx context.Context, claim *models.WorkClaim, rule *models.MilestoneRule) (bool, error) {
	return false, nil
}

func (f *fakeMilestoneRepo) GetPayout(ctx context.Context, id int64) (*models.MilestonePayout, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeMilestoneRepo) PendingPayouts(ctx context.Context, limit int) ([]*models.MilestonePayout, error) {
	return nil, nil
}

func (f *fakeMilestoneRepo) PayoutsForClaim(ctx context.Context, claimID int64) ([]*models.MilestonePayout, error) {
	return nil, nil
}

func (f *fakeMilestoneRepo) ApprovePayout(ctx context.Context, id int64) (*repositories.MilestoneResult, error) {
	if f.approvePayout == nil {
		return nil, repositories.ErrNotFound
	}
	return f.approvePayout(ctx, id)
}

func (f *fakeMilestoneRepo) RejectPayout(ctx context.Context, id int64) (*repositories.MilestoneResult, error) {
	return nil, repositories.ErrNotFound
}
