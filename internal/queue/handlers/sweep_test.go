package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	processed []uuid.UUID
	scheduled int
	err       error
}

func (f *fakeUsecase) ProcessSweepJob(_ context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return f.err
}

func (f *fakeUsecase) RunScheduledSweep(context.Context) error {
	f.scheduled++
	return f.err
}

func TestHandleSweepOrphans(t *testing.T) {
	id := uuid.New()

	t.Run("recorded job", func(t *testing.T) {
		uc := &fakeUsecase{}
		h := NewHandlers(uc, nil)

		err := h.HandleSweepOrphans(context.Background(),
			asynq.NewTask("assets:sweep", []byte(`{"job_id":"`+id.String()+`","type":"assets:sweep"}`)))

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{id}, uc.processed)
		assert.Zero(t, uc.scheduled)
	})

	t.Run("scheduled", func(t *testing.T) {
		uc := &fakeUsecase{}
		h := NewHandlers(uc, nil)

		require.NoError(t, h.HandleSweepOrphans(context.Background(), asynq.NewTask("assets:sweep", nil)))
		assert.Equal(t, 1, uc.scheduled)
		assert.Empty(t, uc.processed)
	})

	t.Run("bad job id is not retried", func(t *testing.T) {
		uc := &fakeUsecase{}
		h := NewHandlers(uc, nil)

		err := h.HandleSweepOrphans(context.Background(),
			asynq.NewTask("assets:sweep", []byte(`{"job_id":"nope"}`)))

		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.Empty(t, uc.processed)
	})

	t.Run("failure propagates", func(t *testing.T) {
		uc := &fakeUsecase{err: errors.New("store unavailable")}
		h := NewHandlers(uc, nil)

		err := h.HandleSweepOrphans(context.Background(),
			asynq.NewTask("assets:sweep", []byte(`{"job_id":"`+id.String()+`"}`)))

		assert.EqualError(t, err, "store unavailable")
	})
}
