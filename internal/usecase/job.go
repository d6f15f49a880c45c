package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

type Job struct {
	ID         uuid.UUID
	Type       string
	Status     string
	Payload    []byte
	Result     []byte
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ListJobsOption struct {
	Skip   int
	Limit  int
	SortBy string
	SortIn string

	Types    []string
	Statuses []string
}

func (u Usecase) ListJobs(ctx context.Context, opt ListJobsOption) ([]Job, int, error) {
	return u.repo.ListJobs(ctx, opt)
}

func (u Usecase) GetJobByID(ctx context.Context, id uuid.UUID) (Job, error) {
	return u.repo.GetJobByID(ctx, id)
}

// CreateJob records a job and hands it to the queue when one is wired.
// A job the queue refuses is marked FAILED and returned with the error.
func (u Usecase) CreateJob(ctx context.Context, job Job) (Job, error) {
	if job.Status == "" {
		job.Status = JobStatusPending
	}

	created, err := u.repo.CreateJob(ctx, job)
	if err != nil {
		return Job{}, err
	}
	if u.queue == nil {
		return created, nil
	}

	if err := u.queue.EnqueueJob(ctx, created.ID, created.Type, created.Payload); err != nil {
		now := time.Now()
		created.Status = JobStatusFailed
		created.Error = err.Error()
		created.FinishedAt = &now
		if _, uerr := u.repo.UpdateJob(ctx, created); uerr != nil {
			u.log.ErrorContext(ctx, "job status update failed", "job_id", created.ID, "err", uerr)
		}
		return created, fmt.Errorf("enqueue job %s: %w", created.ID, err)
	}
	return created, nil
}

func (u Usecase) startJob(ctx context.Context, job Job) (Job, error) {
	now := time.Now()
	job.Status = JobStatusProcessing
	job.StartedAt = &now
	job.Error = ""
	return u.repo.UpdateJob(ctx, job)
}

func (u Usecase) finishJob(ctx context.Context, job Job, result []byte, runErr error) (Job, error) {
	now := time.Now()
	job.FinishedAt = &now
	job.Result = result
	job.Status = JobStatusCompleted
	if runErr != nil {
		job.Status = JobStatusFailed
		job.Error = runErr.Error()
	}
	return u.repo.UpdateJob(ctx, job)
}
