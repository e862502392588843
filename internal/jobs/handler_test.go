package jobs

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/rs/zerolog"
)

type updaterFunc func(ctx context.Context, b domain.Bill) (domain.Bill, error)

func (f updaterFunc) Update(ctx context.Context, b domain.Bill) (domain.Bill, error) {
	return f(ctx, b)
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestUpdateBillHandler(t *testing.T) {
	log := zerolog.New(io.Discard)

	t.Run("stores bill", func(t *testing.T) {
		h := UpdateBillHandler(updaterFunc(func(ctx context.Context, b domain.Bill) (domain.Bill, error) {
			b.Status = domain.StatusPending
			return b, nil
		}), log)

		job := &UpdateBillJob{JobID: "j1", Bill: domain.Bill{ID: "b1"}}
		if err := h(context.Background(), job); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if job.Bill.Status != domain.StatusPending {
			t.Errorf("stored bill not kept on job: %+v", job.Bill)
		}
	})

	t.Run("propagates failure", func(t *testing.T) {
		boom := errors.New("Erreur 500")
		h := UpdateBillHandler(updaterFunc(func(ctx context.Context, b domain.Bill) (domain.Bill, error) {
			return domain.Bill{}, boom
		}), log)

		err := h(context.Background(), &UpdateBillJob{JobID: "j1"})
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("rejects other jobs", func(t *testing.T) {
		h := UpdateBillHandler(updaterFunc(func(ctx context.Context, b domain.Bill) (domain.Bill, error) {
			t.Fatal("update should not be called")
			return b, nil
		}), log)

		if err := h(context.Background(), otherJob{}); err == nil {
			t.Error("expected error for unknown job type")
		}
	})
}
