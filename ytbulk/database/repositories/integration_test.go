package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/pkbhaiya/ytbulk/ytbulk/database"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
)

// These tests run against a real Postgres because the guarantees under test
// are row-lock guarantees. Set YTBULK_TEST_DATABASE to a postgres:// DSN to
// enable them; without it the suite skips.

type testRepos struct {
	bun         *bun.DB
	batches     repositories.BatchRepository
	works       repositories.WorkRepository
	claims      repositories.ClaimRepository
	wallets     repositories.WalletRepository
	withdrawals repositories.WithdrawalRepository
	milestones  repositories.MilestoneRepository
}

func setupRepos(t *testing.T) *testRepos {
	t.Helper()

	dsn := os.Getenv("YTBULK_TEST_DATABASE")
	if dsn == "" {
		t.Skip("YTBULK_TEST_DATABASE not set")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("invalid test DSN: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	if port == 0 {
		port = 5432
	}
	password, _ := u.User.Password()

	ctx := context.Background()
	db, err := database.New(ctx, database.DBConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		Database: strings.TrimPrefix(u.Path, "/"),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.InitializeSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	bunDB := db.BunDB()
	wallets := repositories.NewWalletRepository(bunDB)
	return &testRepos{
		bun:         bunDB,
		batches:     repositories.NewBatchRepository(bunDB),
		works:       repositories.NewWorkRepository(bunDB),
		claims:      repositories.NewClaimRepository(bunDB, wallets),
		wallets:     wallets,
		withdrawals: repositories.NewWithdrawalRepository(bunDB, wallets),
		milestones:  repositories.NewMilestoneRepository(bunDB, wallets),
	}
}

// newWork creates a batch with items*reuseLimit capacity and a work on top of
// it. Names are randomized so runs do not collide with leftover rows.
func (r *testRepos) newWork(t *testing.T, items, reuseLimit, slots int, price int64) *models.Work {
	t.Helper()
	ctx := context.Background()

	batch := &models.FileBatch{
		FileName:    "test-batch-" + uuid.NewString(),
		SeedKeyword: "integration",
	}
	fileItems := make([]*models.FileItem, items)
	for i := range fileItems {
		fileItems[i] = &models.FileItem{
			Title:      fmt.Sprintf("title %d", i+1),
			ReuseLimit: reuseLimit,
		}
	}
	if err := r.batches.Create(ctx, batch, fileItems); err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}

	work := &models.Work{
		Name:            "test-work-" + uuid.NewString(),
		FileBatchID:     batch.ID,
		PricePerItem:    price,
		DeadlineMinutes: 60,
		TotalSlots:      slots,
	}
	if err := r.works.Create(ctx, work); err != nil {
		t.Fatalf("failed to create work: %v", err)
	}
	return work
}

func TestAllocateClaim_OneWinnerPerSlot(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 1, 1, 1, 5000)

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.works.AllocateClaim(ctx, "user-"+uuid.NewString(), work.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, repositories.ErrSoldOut), errors.Is(err, repositories.ErrOutOfInventory):
		default:
			t.Errorf("unexpected allocation error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	got, err := r.works.GetByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.RemainingSlots != 0 {
		t.Errorf("remaining slots = %d, want 0", got.RemainingSlots)
	}
}

func TestAllocateClaim_OneActiveClaimPerUser(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	first := r.newWork(t, 2, 2, 2, 5000)
	second := r.newWork(t, 2, 2, 2, 5000)
	userID := "user-" + uuid.NewString()

	if _, err := r.works.AllocateClaim(ctx, userID, first.ID); err != nil {
		t.Fatalf("first allocation error = %v", err)
	}
	if _, err := r.works.AllocateClaim(ctx, userID, second.ID); !errors.Is(err, repositories.ErrActiveClaim) {
		t.Fatalf("second allocation error = %v, want ErrActiveClaim", err)
	}
	if _, err := r.works.AllocateClaim(ctx, userID, first.ID); !errors.Is(err, repositories.ErrAlreadyParticipated) {
		t.Fatalf("repeat allocation error = %v, want ErrAlreadyParticipated", err)
	}
}

func TestAllocateClaim_ConcurrentSameUser(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 2, 2, 2, 5000)
	userID := "user-" + uuid.NewString()

	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.works.AllocateClaim(ctx, userID, work.ID)
		}(i)
	}
	wg.Wait()

	// One request wins; the rest must see an eligibility error, never a raw
	// unique-index violation from the driver.
	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, repositories.ErrAlreadyParticipated), errors.Is(err, repositories.ErrActiveClaim):
		default:
			t.Errorf("unexpected allocation error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestApprove_CreditsExactlyOnce(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 1, 1, 1, 7500)
	userID := "user-" + uuid.NewString()

	claim, err := r.works.AllocateClaim(ctx, userID, work.ID)
	if err != nil {
		t.Fatalf("AllocateClaim() error = %v", err)
	}
	if _, err := r.claims.Submit(ctx, claim.ID, userID, "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	const approvers = 4
	var wg sync.WaitGroup
	results := make([]*repositories.ReviewResult, approvers)
	errs := make([]error, approvers)
	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.claims.Approve(ctx, claim.ID)
		}(i)
	}
	wg.Wait()

	credited := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Approve() error = %v", errs[i])
		}
		if results[i].Txn != nil {
			credited++
		}
	}
	if credited != 1 {
		t.Errorf("credits issued = %d, want 1", credited)
	}

	wallet, err := r.wallets.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if wallet.Balance != 7500 {
		t.Errorf("balance = %d, want 7500", wallet.Balance)
	}
}

func TestApprove_FallsBackToWorkPrice(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 1, 1, 1, 6000)
	userID := "user-" + uuid.NewString()

	claim, err := r.works.AllocateClaim(ctx, userID, work.ID)
	if err != nil {
		t.Fatalf("AllocateClaim() error = %v", err)
	}
	if _, err := r.claims.Submit(ctx, claim.ID, userID, "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Corrupt the snapshot; approval must fall back to the work price.
	if _, err := r.bun.NewUpdate().
		Model((*models.WorkClaim)(nil)).
		Set("payout_amount = ?", -1).
		Where("id = ?", claim.ID).
		Exec(ctx); err != nil {
		t.Fatalf("failed to corrupt snapshot: %v", err)
	}

	result, err := r.claims.Approve(ctx, claim.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.Txn == nil {
		t.Fatal("Approve() issued no credit")
	}
	if result.Txn.Amount != 6000 {
		t.Errorf("credit amount = %d, want 6000", result.Txn.Amount)
	}

	wallet, err := r.wallets.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if wallet.Balance != 6000 {
		t.Errorf("balance = %d, want 6000", wallet.Balance)
	}
}

func TestSweepExpired_RestoresInventory(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 1, 1, 1, 5000)
	userID := "user-" + uuid.NewString()

	claim, err := r.works.AllocateClaim(ctx, userID, work.ID)
	if err != nil {
		t.Fatalf("AllocateClaim() error = %v", err)
	}

	// Backdate the deadline so the sweep sees the claim as overdue.
	if _, err := r.bun.NewUpdate().
		Model((*models.WorkClaim)(nil)).
		Set("expires_at = ?", time.Now().UTC().Add(-time.Hour)).
		Where("id = ?", claim.ID).
		Exec(ctx); err != nil {
		t.Fatalf("failed to backdate claim: %v", err)
	}

	swept, err := r.works.SweepExpired(ctx, work.ID)
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	got, err := r.works.GetByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.RemainingSlots != work.TotalSlots {
		t.Errorf("remaining slots = %d, want %d", got.RemainingSlots, work.TotalSlots)
	}

	// Re-running finds nothing.
	swept, err = r.works.SweepExpired(ctx, work.ID)
	if err != nil {
		t.Fatalf("second SweepExpired() error = %v", err)
	}
	if swept != 0 {
		t.Errorf("second sweep = %d, want 0", swept)
	}
}

func TestWithdrawal_HoldAndReversal(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	userID := "user-" + uuid.NewString()
	wallet, err := r.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if _, err := r.wallets.Apply(ctx, wallet.ID, models.TxKindAdminAdjustment, 50000, nil, "test funding"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	wr, err := r.withdrawals.Create(ctx, userID, 30000, "user@bank", 10000)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	wallet, err = r.wallets.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if wallet.Balance != 20000 {
		t.Errorf("balance after hold = %d, want 20000", wallet.Balance)
	}

	// The hold counts against further requests.
	if _, err := r.withdrawals.Create(ctx, userID, 25000, "user@bank", 10000); !errors.Is(err, repositories.ErrInsufficientBalance) {
		t.Fatalf("over-balance request error = %v, want ErrInsufficientBalance", err)
	}

	if _, err := r.withdrawals.Reject(ctx, wr.ID, "test rejection"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	wallet, err = r.wallets.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if wallet.Balance != 50000 {
		t.Errorf("balance after reversal = %d, want 50000", wallet.Balance)
	}

	// A decided request is final.
	if _, err := r.withdrawals.Approve(ctx, wr.ID, ""); !errors.Is(err, repositories.ErrAlreadyProcessed) {
		t.Fatalf("re-decide error = %v, want ErrAlreadyProcessed", err)
	}
}

func TestFindByNote_ExactMatch(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	userID := "user-" + uuid.NewString()
	wallet, err := r.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if _, err := r.wallets.Apply(ctx, wallet.ID, models.TxKindMilestoneBonus, 1000, nil, "MilestonePayout#12"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	// A marker whose id prefixes another must not match the longer one.
	got, err := r.wallets.FindByNote(ctx, r.bun, wallet.ID, models.TxKindMilestoneBonus, "MilestonePayout#1")
	if err != nil {
		t.Fatalf("FindByNote() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindByNote(#1) = %+v, want nil", got)
	}

	got, err = r.wallets.FindByNote(ctx, r.bun, wallet.ID, models.TxKindMilestoneBonus, "MilestonePayout#12")
	if err != nil {
		t.Fatalf("FindByNote() error = %v", err)
	}
	if got == nil || got.Amount != 1000 {
		t.Errorf("FindByNote(#12) = %+v, want the 1000 paise credit", got)
	}
}

func TestMilestone_OnePayoutPerClaimAndRule(t *testing.T) {
	r := setupRepos(t)
	ctx := context.Background()

	work := r.newWork(t, 1, 1, 1, 5000)
	userID := "user-" + uuid.NewString()
	claim, err := r.works.AllocateClaim(ctx, userID, work.ID)
	if err != nil {
		t.Fatalf("AllocateClaim() error = %v", err)
	}

	// Thresholds are unique across rules; derive one per run.
	rule := &models.MilestoneRule{Active: true, ThresholdViews: time.Now().UnixNano(), PayoutAmount: 2500}
	if err := r.milestones.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	created, err := r.milestones.RecordHit(ctx, claim, rule)
	if err != nil {
		t.Fatalf("RecordHit() error = %v", err)
	}
	if !created {
		t.Fatal("first RecordHit() created = false, want true")
	}
	created, err = r.milestones.RecordHit(ctx, claim, rule)
	if err != nil {
		t.Fatalf("second RecordHit() error = %v", err)
	}
	if created {
		t.Fatal("second RecordHit() created = true, want false")
	}

	payouts, err := r.milestones.PayoutsForClaim(ctx, claim.ID)
	if err != nil {
		t.Fatalf("PayoutsForClaim() error = %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("payouts = %d, want 1", len(payouts))
	}

	// Approving twice credits once.
	first, err := r.milestones.ApprovePayout(ctx, payouts[0].ID)
	if err != nil {
		t.Fatalf("ApprovePayout() error = %v", err)
	}
	if first.Already || first.Txn == nil {
		t.Errorf("first approval = %+v, want a fresh credit", first)
	}
	second, err := r.milestones.ApprovePayout(ctx, payouts[0].ID)
	if err != nil {
		t.Fatalf("second ApprovePayout() error = %v", err)
	}
	if !second.Already || second.Txn != nil {
		t.Errorf("second approval = %+v, want already_processed and no credit", second)
	}

	wallet, err := r.wallets.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if wallet.Balance != 2500 {
		t.Errorf("balance = %d, want 2500", wallet.Balance)
	}
}
