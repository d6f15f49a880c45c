package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/config"
)

// maxListedOrphans bounds the orphan ids kept in a sweep result.
const maxListedOrphans = 200

type SweepOption struct {
	Prefix      string        `json:"prefix,omitempty"`
	GracePeriod time.Duration `json:"grace_period,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty"`
}

type SweepResult struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	Recent     int      `json:"recent"`
	Orphaned   int      `json:"orphaned"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
	DryRun     bool     `json:"dry_run"`
	Orphans    []string `json:"orphans,omitempty"`
}

// SweepOrphans deletes stored objects that no entity references and that
// are older than the grace period. Younger objects may belong to a write
// still in flight and are left alone.
func (u Usecase) SweepOrphans(ctx context.Context, opt SweepOption) (SweepResult, error) {
	if u.lister == nil {
		return SweepResult{}, errors.New("file storage does not support listing")
	}
	grace := opt.GracePeriod
	if grace <= 0 {
		grace = u.cfg.SweepGracePeriod
	}
	if grace <= 0 {
		grace = config.DEFAULT_SWEEP_GRACE_PERIOD
	}

	referenced, err := u.repo.ReferencedRemoteIDs(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load referenced ids: %w", err)
	}

	var (
		res     = SweepResult{DryRun: opt.DryRun}
		cutoff  = time.Now().Add(-grace)
		orphans []asset.RemoteObject
	)
	err = u.lister.List(ctx, opt.Prefix, func(o asset.RemoteObject) error {
		res.Scanned++
		_, inUse := referenced[o.RemoteID]
		switch {
		case inUse:
			res.Referenced++
		case o.LastModified.After(cutoff):
			res.Recent++
		default:
			orphans = append(orphans, o)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("list remote objects: %w", err)
	}

	res.Orphaned = len(orphans)
	for i, o := range orphans {
		if i == maxListedOrphans {
			break
		}
		res.Orphans = append(res.Orphans, o.RemoteID)
	}
	if !opt.DryRun && len(orphans) > 0 {
		res.Failed = u.cleaner.PurgeObjects(ctx, orphans...)
		res.Deleted = res.Orphaned - res.Failed
	}

	u.log.InfoContext(ctx, "orphan sweep finished",
		"scanned", res.Scanned,
		"orphaned", res.Orphaned,
		"deleted", res.Deleted,
		"failed", res.Failed,
		"dry_run", res.DryRun,
	)
	return res, nil
}

// RequestSweep records a sweep job and enqueues it.
func (u Usecase) RequestSweep(ctx context.Context, opt SweepOption) (Job, error) {
	payload, err := json.Marshal(opt)
	if err != nil {
		return Job{}, err
	}
	return u.CreateJob(ctx, Job{
		Type:    config.TASK_TYPE_SWEEP_ORPHANS,
		Payload: payload,
	})
}

// ProcessSweepJob runs a recorded sweep job and stores its outcome.
func (u Usecase) ProcessSweepJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := u.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	return u.runSweepJob(ctx, job)
}

// RunScheduledSweep records and runs a sweep with default options. The
// scheduler enqueues it without a job row.
func (u Usecase) RunScheduledSweep(ctx context.Context) error {
	job, err := u.repo.CreateJob(ctx, Job{
		Type:    config.TASK_TYPE_SWEEP_ORPHANS,
		Status:  JobStatusPending,
		Payload: []byte(`{}`),
	})
	if err != nil {
		return err
	}
	return u.runSweepJob(ctx, job)
}

func (u Usecase) runSweepJob(ctx context.Context, job Job) error {
	var opt SweepOption
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &opt); err != nil {
			_, _ = u.finishJob(ctx, job, nil, fmt.Errorf("decode payload: %w", err))
			return err
		}
	}

	job, err := u.startJob(ctx, job)
	if err != nil {
		return err
	}

	res, runErr := u.SweepOrphans(ctx, opt)
	result, err := json.Marshal(res)
	if err != nil {
		return err
	}
	job, err = u.finishJob(ctx, job, result, runErr)
	if err != nil {
		return err
	}

	if err := u.sendSweepReport(ctx, job, res); err != nil {
		u.log.WarnContext(ctx, "sweep report not sent", "job_id", job.ID, "err", err)
	}
	return runErr
}
