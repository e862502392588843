package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/logger"
	"github.com/rs/zerolog"
)

// BillUpdater persists bills.
type BillUpdater interface {
	Update(ctx context.Context, b domain.Bill) (domain.Bill, error)
}

// UpdateBillHandler returns a JobHandler that stores the bill of each
// UpdateBillJob. Failures are logged and returned so the queue can retry.
func UpdateBillHandler(u BillUpdater, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*UpdateBillJob)
		if !ok {
			return fmt.Errorf("UpdateBillHandler: unexpected job type %q", job.GetType())
		}

		l := logger.ForBill(log, j.Bill.ID, j.Bill.Email).With().Str("job_id", j.JobID).Logger()
		stored, err := u.Update(ctx, j.Bill)
		if err != nil {
			l.Error().Err(err).Int("retry", j.RetryCount).Msg("Failed to store bill")
			return fmt.Errorf("UpdateBillHandler: %w", err)
		}

		j.Bill = stored
		l.Info().Msg("Bill stored")
		return nil
	}
}
