package handlers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Usecase is the part of the usecase layer queue tasks delegate to.
type Usecase interface {
	ProcessSweepJob(ctx context.Context, jobID uuid.UUID) error
	RunScheduledSweep(ctx context.Context) error
}

// Handlers contains all queue task handlers
type Handlers struct {
	usecase Usecase
	log     *slog.Logger
}

func NewHandlers(uc Usecase, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		usecase: uc,
		log:     log.With(slog.String("component", "queue")),
	}
}

// TaskPayload represents the standard payload structure for all tasks.
// Scheduled tasks carry no job id.
type TaskPayload struct {
	JobID   string `json:"job_id,omitempty"`
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}
