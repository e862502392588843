// Package store exposes bills and their receipts behind a single service.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvloznov/billed/internal/bills"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/receipts"
	"github.com/google/uuid"
)

// BillStore is the backend the bill pages talk to.
type BillStore interface {
	// List returns every stored bill, in no particular order.
	List(ctx context.Context) ([]domain.Bill, error)

	// Get returns one bill. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (domain.Bill, error)

	// Create stores a receipt file and returns where it lives.
	Create(ctx context.Context, u receipts.Upload) (domain.Receipt, error)

	// Receipt resolves a receipt stored by an earlier Create from its key
	// and original file name.
	Receipt(ctx context.Context, key, fileName string) (domain.Receipt, error)

	// Update persists a completed bill and returns the stored version.
	Update(ctx context.Context, b domain.Bill) (domain.Bill, error)
}

// BillRepository provides an interface for bill persistence.
type BillRepository interface {
	// ListBills retrieves all bills.
	ListBills(ctx context.Context) ([]domain.Bill, error)

	// GetBill retrieves one bill by ID. Returns ErrNotFound if absent.
	GetBill(ctx context.Context, id string) (domain.Bill, error)

	// UpsertBill inserts the bill or replaces the one with the same ID.
	UpsertBill(ctx context.Context, b domain.Bill) error
}

// Service implements BillStore on top of a repository and a receipt storage.
type Service struct {
	repo     BillRepository
	receipts receipts.Storage
	newID    func() string
}

// NewService creates a bill service.
func NewService(repo BillRepository, storage receipts.Storage) *Service {
	return &Service{
		repo:     repo,
		receipts: storage,
		newID:    uuid.NewString,
	}
}

// List implements BillStore.
func (s *Service) List(ctx context.Context) ([]domain.Bill, error) {
	list, err := s.repo.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return list, nil
}

// Get implements BillStore.
func (s *Service) Get(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("Get: %w", err)
	}
	return b, nil
}

// Create implements BillStore. The receipt key doubles as the bill ID.
func (s *Service) Create(ctx context.Context, u receipts.Upload) (domain.Receipt, error) {
	ext, err := bills.ValidateFile(u.FileName)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("Create: %w", err)
	}

	key := s.newID()
	name := receipts.ObjectName(key, ext)
	if err := s.receipts.Put(ctx, name, u); err != nil {
		return domain.Receipt{}, fmt.Errorf("Create: storing receipt: %w", err)
	}

	return domain.Receipt{
		FileURL:  s.receipts.URL(name),
		Key:      key,
		FileName: u.FileName,
	}, nil
}

// Receipt implements BillStore. The URL is derived from the key, never taken
// from the caller, and the object must exist.
func (s *Service) Receipt(ctx context.Context, key, fileName string) (domain.Receipt, error) {
	ext, err := bills.ValidateFile(fileName)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("Receipt: %w", err)
	}

	name := receipts.ObjectName(key, ext)
	if !receipts.ValidObjectName(name) {
		return domain.Receipt{}, fmt.Errorf("Receipt: %w", &StatusError{
			Code: http.StatusBadRequest,
			Err:  fmt.Errorf("invalid receipt key %q", key),
		})
	}

	rc, _, err := s.receipts.Open(ctx, name)
	if err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			return domain.Receipt{}, fmt.Errorf("Receipt: %w", &StatusError{Code: http.StatusBadRequest, Err: err})
		}
		return domain.Receipt{}, fmt.Errorf("Receipt: %w", err)
	}
	rc.Close()

	return domain.Receipt{
		FileURL:  s.receipts.URL(name),
		Key:      key,
		FileName: fileName,
	}, nil
}

// Update implements BillStore. Bills without an ID get a fresh one and an
// empty status becomes pending. An existing bill keeps its author: an empty
// email inherits it and a different one is refused with a 403.
func (s *Service) Update(ctx context.Context, b domain.Bill) (domain.Bill, error) {
	if b.ID == "" {
		b.ID = s.newID()
	} else {
		existing, err := s.repo.GetBill(ctx, b.ID)
		switch {
		case err == nil:
			if b.Email == "" {
				b.Email = existing.Email
			}
			if existing.Email != "" && !strings.EqualFold(existing.Email, b.Email) {
				return domain.Bill{}, fmt.Errorf("Update: %w", &StatusError{
					Code: http.StatusForbidden,
					Err:  fmt.Errorf("bill %s belongs to another employee", b.ID),
				})
			}
		case !errors.Is(err, ErrNotFound):
			return domain.Bill{}, fmt.Errorf("Update: %w", err)
		}
	}
	if b.Status == "" {
		b.Status = domain.StatusPending
	}
	if !b.Status.Valid() {
		return domain.Bill{}, fmt.Errorf("Update: %w", &StatusError{
			Code: http.StatusBadRequest,
			Err:  fmt.Errorf("unknown status %q", b.Status),
		})
	}

	if err := s.repo.UpsertBill(ctx, b); err != nil {
		return domain.Bill{}, fmt.Errorf("Update: %w", err)
	}
	return b, nil
}

// IsInvalidFile reports whether err comes from a rejected receipt name.
func IsInvalidFile(err error) bool {
	return errors.Is(err, bills.ErrInvalidFileType)
}

var _ BillStore = (*Service)(nil)
