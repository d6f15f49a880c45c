package asset

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Reconciler computes the next asset state of an entity from its current
// state and a partial update. It uploads new files but never deletes:
// superseded references are returned for the caller to release after the
// entity write succeeds.
type Reconciler struct {
	store       Store
	log         *slog.Logger
	concurrency int
}

type ReconcilerOption func(*Reconciler)

// WithUploadConcurrency bounds parallel uploads within one gallery batch.
func WithUploadConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewReconciler(store Store, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	r := &Reconciler{
		store:       store,
		log:         log.With(slog.String("component", "asset-reconciler")),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) upload(ctx context.Context, f StagedFile, folder string) (Reference, error) {
	ctx, span := tracer.Start(ctx, "asset.upload")
	span.SetAttributes(
		attribute.String("asset.filename", f.Filename),
		attribute.String("asset.folder", folder),
		attribute.Int64("asset.size", f.Size),
	)

	ref, err := r.store.Upload(ctx, f.Path, folder)
	if err == nil && !ref.Complete() {
		err = fmt.Errorf("store returned an incomplete reference")
	}
	if err != nil {
		meters().uploadFailures.Add(ctx, 1)
		err = UploadError{Filename: f.Filename, Err: err}
		endSpan(span, err)
		return Reference{}, err
	}
	if len(f.Palette) > 0 {
		ref.Palette = f.Palette
	}
	meters().uploads.Add(ctx, 1)
	span.SetAttributes(attribute.String("asset.remote_id", ref.RemoteID))
	endSpan(span, nil)
	return ref, nil
}

// uploadAll uploads files concurrently and returns their references in
// submission order. On failure every reference uploaded by the batch is
// reported as orphaned and nothing is returned.
func (r *Reconciler) uploadAll(ctx context.Context, files []StagedFile, folder string) ([]Reference, error) {
	if len(files) == 0 {
		return nil, nil
	}

	refs := make([]Reference, len(files))
	done := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, f := range files {
		g.Go(func() error {
			ref, err := r.upload(gctx, f, folder)
			if err != nil {
				return err
			}
			refs[i] = ref
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var orphans []Reference
		for i, ok := range done {
			if ok {
				orphans = append(orphans, refs[i])
			}
		}
		r.ReportOrphans(ctx, orphans, err)
		return nil, err
	}
	return refs, nil
}

// ReportOrphans logs and counts uploaded objects that no entity will
// reference because the operation that produced them failed.
func (r *Reconciler) ReportOrphans(ctx context.Context, refs []Reference, cause error) {
	if len(refs) == 0 {
		return
	}
	meters().orphans.Add(ctx, int64(len(refs)))
	for _, ref := range refs {
		r.log.WarnContext(ctx, "orphaned_upload",
			slog.String("remote_id", ref.RemoteID),
			slog.String("url", ref.URL),
			slog.String("cause", cause.Error()),
		)
	}
}
