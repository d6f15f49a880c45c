package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// HandleSweepOrphans runs an orphan sweep. A task enqueued for a recorded
// job processes that job; the scheduler's task records a fresh one.
func (h *Handlers) HandleSweepOrphans(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			h.log.ErrorContext(ctx, "parse task payload failed", slog.String("err", err.Error()))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
	}

	if payload.JobID == "" {
		h.log.InfoContext(ctx, "processing scheduled sweep", slog.String("type", task.Type()))
		if err := h.usecase.RunScheduledSweep(ctx); err != nil {
			h.log.ErrorContext(ctx, "scheduled sweep failed", slog.String("err", err.Error()))
			return err
		}
		return nil
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		h.log.ErrorContext(ctx, "invalid job id", slog.String("job_id", payload.JobID))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	h.log.InfoContext(ctx, "processing sweep job", slog.String("job_id", jobID.String()))
	if err := h.usecase.ProcessSweepJob(ctx, jobID); err != nil {
		h.log.ErrorContext(ctx, "sweep job failed",
			slog.String("job_id", jobID.String()),
			slog.String("err", err.Error()))
		return err
	}

	h.log.InfoContext(ctx, "sweep job completed", slog.String("job_id", jobID.String()))
	return nil
}
