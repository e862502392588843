package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/store"
)

// Repository is an in-memory implementation of store.BillRepository.
// It is safe for concurrent use. Data is lost on restart.
type Repository struct {
	mu    sync.RWMutex
	bills map[string]domain.Bill
	order []string
}

// NewRepository creates an empty repository, optionally seeded with bills.
func NewRepository(seed ...domain.Bill) *Repository {
	r := &Repository{bills: make(map[string]domain.Bill)}
	for _, b := range seed {
		_ = r.UpsertBill(context.Background(), b)
	}
	return r
}

// ListBills implements store.BillRepository. Bills come back in insertion order.
func (r *Repository) ListBills(ctx context.Context) ([]domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Bill, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bills[id])
	}
	return out, nil
}

// GetBill implements store.BillRepository.
func (r *Repository) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bills[id]
	if !ok {
		return domain.Bill{}, fmt.Errorf("GetBill: %s: %w", id, store.ErrNotFound)
	}
	return b, nil
}

// UpsertBill implements store.BillRepository.
func (r *Repository) UpsertBill(ctx context.Context, b domain.Bill) error {
	if b.ID == "" {
		return fmt.Errorf("UpsertBill: bill ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bills[b.ID]; !exists {
		r.order = append(r.order, b.ID)
	}
	r.bills[b.ID] = b
	return nil
}

var _ store.BillRepository = (*Repository)(nil)
