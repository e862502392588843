package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dvloznov/billed/internal/jobs"
)

// Store keeps bill update jobs in memory, in submission order.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*jobs.UpdateBillJob
	order []string
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*jobs.UpdateBillJob)}
}

// SaveJob records a snapshot of the job. The queue keeps mutating its own
// copy; readers only see those changes after the next save.
func (s *Store) SaveJob(ctx context.Context, job *jobs.UpdateBillJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	snapshot := *job

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[job.JobID]; !ok {
		s.order = append(s.order, job.JobID)
	}
	s.byID[job.JobID] = &snapshot
	return nil
}

// GetJob returns a copy of the job, or jobs.ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.UpdateBillJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	snapshot := *job
	return &snapshot, nil
}

// ListJobs returns the jobs matching the filter, oldest submission first.
// Jobs created at the same instant are ordered by ID.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.UpdateBillJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.UpdateBillJob, 0, len(s.order))
	for _, id := range s.order {
		if job := s.byID[id]; filter.Matches(job) {
			snapshot := *job
			matched = append(matched, &snapshot)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *jobs.UpdateBillJob) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.JobID < b.JobID:
			return -1
		case a.JobID > b.JobID:
			return 1
		}
		return 0
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

// UpdateJobStatus sets the status of a stored job, keeping any earlier
// error message when errorMsg is empty.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byID[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

func paginate(list []*jobs.UpdateBillJob, offset, limit int) []*jobs.UpdateBillJob {
	if offset >= len(list) {
		return []*jobs.UpdateBillJob{}
	}
	if offset > 0 {
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

var _ jobs.JobStore = (*Store)(nil)
