package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
)

func TestRepository_UpsertAndList(t *testing.T) {
	repo := NewRepository(
		domain.Bill{ID: "1", Name: "first"},
		domain.Bill{ID: "2", Name: "second"},
	)
	ctx := context.Background()

	if err := repo.UpsertBill(ctx, domain.Bill{ID: "1", Name: "first, edited"}); err != nil {
		t.Fatalf("UpsertBill failed: %v", err)
	}

	list, err := repo.ListBills(ctx)
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListBills returned %d bills, want 2", len(list))
	}
	if list[0].Name != "first, edited" || list[1].Name != "second" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestRepository_GetBill(t *testing.T) {
	repo := NewRepository(domain.Bill{ID: "1", Name: "first"})

	if _, err := repo.GetBill(context.Background(), "1"); err != nil {
		t.Errorf("GetBill(1) failed: %v", err)
	}
	if _, err := repo.GetBill(context.Background(), "2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBill(2) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_RequiresID(t *testing.T) {
	repo := NewRepository()
	if err := repo.UpsertBill(context.Background(), domain.Bill{Name: "no id"}); err == nil {
		t.Error("expected error for bill without ID")
	}
}

func TestRepository_ConcurrentUpserts(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.UpsertBill(ctx, domain.Bill{ID: string(rune('a' + i%10))})
			_, _ = repo.ListBills(ctx)
		}(i)
	}
	wg.Wait()

	list, _ := repo.ListBills(ctx)
	if len(list) != 10 {
		t.Errorf("ListBills returned %d bills, want 10", len(list))
	}
}
