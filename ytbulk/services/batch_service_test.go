package services_test

import (
	"context"
	"testing"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
	"github.com/pkbhaiya/ytbulk/ytbulk/services/mock"
	"go.uber.org/mock/gomock"
)

type fakeBatchRepo struct {
	batch *models.FileBatch
	items []*models.FileItem
}

func (f *fakeBatchRepo) Create(ctx context.Context, batch *models.FileBatch, items []*models.FileItem) error {
	if f.batch != nil && f.batch.FileName == batch.FileName {
		return repositories.ErrDuplicateBatch
	}
	batch.ID = 1
	f.batch = batch
	f.items = items
	return nil
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, id int64) (*models.FileBatch, error) {
	if f.batch == nil || f.batch.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.batch, nil
}

func (f *fakeBatchRepo) GetByName(ctx context.Context, name string) (*models.FileBatch, error) {
	if f.batch == nil || f.batch.FileName != name {
		return nil, repositories.ErrNotFound
	}
	return f.batch, nil
}

func (f *fakeBatchRepo) List(ctx context.Context, limit int) ([]*models.FileBatch, error) {
	if f.batch == nil {
		return nil, nil
	}
	return []*models.FileBatch{f.batch}, nil
}

func (f *fakeBatchRepo) GetItems(ctx context.Context, batchID int64) ([]*models.FileItem, error) {
	return f.items, nil
}

func (f *fakeBatchRepo) RemainingCapacity(ctx context.Context, batchID int64) (int, error) {
	total := 0
	for _, i := range f.items {
		total += i.RemainingUses()
	}
	return total, nil
}

func TestBatchService_GenerateBatch(t *testing.T) {
	repo := &fakeBatchRepo{}

	suggests := mock.NewMockSuggestProvider(gomock.NewController(t))
	suggests.EXPECT().
		Suggest(gomock.Any(), "cooking hacks").
		Return([]string{"cooking hacks 2026", "cooking hacks easy", "cooking hacks kitchen"}, nil)

	svc := services.NewBatchService(repo, suggests)

	batch, err := svc.GenerateBatch(context.Background(), services.GenerateBatchRequest{
		SeedKeyword:  "cooking hacks",
		TitleCount:   4,
		SuggestCount: 3,
		DescLength:   200,
		ReuseLimit:   2,
	})
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}

	if batch.SeedKeyword != "cooking hacks" {
		t.Errorf("SeedKeyword = %q", batch.SeedKeyword)
	}
	if batch.TitleCount != 4 {
		t.Errorf("TitleCount = %d, want 4", batch.TitleCount)
	}
	if len(repo.items) != 4 {
		t.Fatalf("stored items = %d, want 4", len(repo.items))
	}
	for i, item := range repo.items {
		if item.ReuseLimit != 2 {
			t.Errorf("item %d reuse limit = %d, want 2", i, item.ReuseLimit)
		}
	}

	// The batch can back reuse_limit * items claims.
	capacity, err := repo.RemainingCapacity(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("RemainingCapacity() error = %v", err)
	}
	if capacity != 8 {
		t.Errorf("capacity = %d, want 8", capacity)
	}
}

func TestBatchService_GenerateBatch_EmptyKeyword(t *testing.T) {
	suggests := mock.NewMockSuggestProvider(gomock.NewController(t))
	svc := services.NewBatchService(&fakeBatchRepo{}, suggests)

	if _, err := svc.GenerateBatch(context.Background(), services.GenerateBatchRequest{SeedKeyword: "   "}); err == nil {
		t.Fatal("expected error for blank keyword")
	}
}
