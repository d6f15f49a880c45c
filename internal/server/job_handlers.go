package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/usecase"
)

type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  *string         `json:"started_at,omitempty"`
	FinishedAt *string         `json:"finished_at,omitempty"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

func toJob(job usecase.Job) Job {
	j := Job{
		ID:        job.ID.String(),
		Type:      job.Type,
		Status:    job.Status,
		Error:     job.Error,
		CreatedAt: timestamp(job.CreatedAt),
		UpdatedAt: timestamp(job.UpdatedAt),
	}
	if json.Valid(job.Payload) {
		j.Payload = job.Payload
	}
	if json.Valid(job.Result) {
		j.Result = job.Result
	}
	if job.StartedAt != nil {
		tmp := timestamp(*job.StartedAt)
		j.StartedAt = &tmp
	}
	if job.FinishedAt != nil {
		tmp := timestamp(*job.FinishedAt)
		j.FinishedAt = &tmp
	}
	return j
}

type ListJobsRequest struct {
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at started_at finished_at"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`

	Types    []string `query:"types"`
	Statuses []string `query:"statuses" validate:"omitempty,dive,oneof=PENDING PROCESSING COMPLETED FAILED"`
}

func (s *Server) ListJobs(ctx echo.Context) error {
	var req ListJobsRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return unprocessable(ctx, err)
	}

	jobs, total, err := s.server.ListJobs(
		ctx.Request().Context(),
		usecase.ListJobsOption{
			Skip:     req.Skip,
			Limit:    req.Limit,
			SortBy:   req.SortBy,
			SortIn:   req.SortIn,
			Types:    req.Types,
			Statuses: req.Statuses,
		})
	if err != nil {
		return s.writeError(ctx, err)
	}

	list := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		list = append(list, toJob(job))
	}

	return ctx.JSON(http.StatusOK, Res{
		Data: list,
		Meta: &Meta{
			Total: total,
			Skip:  req.Skip,
			Limit: req.Limit,
		},
	})
}

func (s *Server) GetJobByID(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}

	job, err := s.server.GetJobByID(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toJob(job)})
}

type RequestSweepRequest struct {
	Prefix      string `json:"prefix" form:"prefix"`
	GracePeriod string `json:"grace_period" form:"grace_period"`
	DryRun      bool   `json:"dry_run" form:"dry_run"`
}

// RequestSweep records an orphan sweep and hands it to the worker.
func (s *Server) RequestSweep(ctx echo.Context) error {
	var req RequestSweepRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, err)
	}

	opt := usecase.SweepOption{
		Prefix: strings.TrimLeft(strings.TrimSpace(req.Prefix), "/"),
		DryRun: req.DryRun,
	}
	if req.GracePeriod != "" {
		d, err := time.ParseDuration(req.GracePeriod)
		if err != nil || d < 0 {
			return ctx.JSON(http.StatusUnprocessableEntity, Res{
				Error:   "invalid_grace_period",
				Message: "grace_period must be a positive duration such as 48h",
			})
		}
		opt.GracePeriod = d
	}

	job, err := s.server.RequestSweep(ctx.Request().Context(), opt)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusAccepted, Res{Data: toJob(job)})
}
