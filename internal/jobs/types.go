package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/billed/internal/domain"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeUpdateBill persists a submitted bill.
	JobTypeUpdateBill JobType = "update_bill"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// UpdateBillJob stores a bill submitted through the new-bill form once the
// request that produced it has already been answered.
type UpdateBillJob struct {
	JobID string `json:"job_id"`

	// Bill is the bill to persist.
	Bill domain.Bill `json:"bill"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *UpdateBillJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *UpdateBillJob) GetType() JobType {
	return JobTypeUpdateBill
}

// GetStatus implements the Job interface.
func (j *UpdateBillJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishUpdateBill enqueues a bill update.
	PublishUpdateBill(ctx context.Context, job *UpdateBillJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *UpdateBillJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*UpdateBillJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*UpdateBillJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// BillID filters jobs by the bill they carry.
	BillID string

	// Email filters jobs by the author of the bill, ignoring case.
	Email string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Matches reports whether the job passes every set criterion.
func (f JobFilter) Matches(job *UpdateBillJob) bool {
	switch {
	case f.BillID != "" && job.Bill.ID != f.BillID:
		return false
	case f.Email != "" && !strings.EqualFold(job.Bill.Email, f.Email):
		return false
	case f.Status != "" && job.Status != f.Status:
		return false
	}
	return true
}
