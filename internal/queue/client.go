package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/civicweb/cms/internal/queue/handlers"
)

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewClient creates a new queue client
func NewClient(redis asynq.RedisClientOpt, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		client: asynq.NewClient(redis),
		log:    log.With(slog.String("component", "queue")),
	}
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueJob enqueues a recorded job. The task carries the job id; the
// worker reads the rest from the job row.
func (c *Client) EnqueueJob(ctx context.Context, jobID uuid.UUID, jobType string, payload []byte) error {
	task, err := newJobTask(jobID, jobType, payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.TaskID(jobID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.log.InfoContext(ctx, "enqueued task",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("type", jobType))
	return nil
}

func newJobTask(jobID uuid.UUID, jobType string, payload []byte) (*asynq.Task, error) {
	b, err := json.Marshal(handlers.TaskPayload{
		JobID:   jobID.String(),
		Type:    jobType,
		Payload: string(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(jobType, b), nil
}
