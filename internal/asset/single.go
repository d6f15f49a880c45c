package asset

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// PrimaryChange is the submitted source for a primary slot: either an
// UploadChange or a LinkChange. A nil PrimaryChange means the request did
// not touch the primary asset.
type PrimaryChange interface {
	sourceMode() SourceMode
}

// UploadChange requests the uploaded-file mode. File may be nil when the
// client keeps the file it already has.
type UploadChange struct {
	File *StagedFile
}

// LinkChange requests the external-link mode.
type LinkChange struct {
	URL string
}

func (UploadChange) sourceMode() SourceMode { return ModeUpload }
func (LinkChange) sourceMode() SourceMode   { return ModeLink }

type PrimaryInput struct {
	Current   PrimarySlot
	Change    PrimaryChange
	Thumbnail *StagedFile
	Create    bool
	// Folder is the store folder hint for new uploads.
	Folder string
}

type PrimaryResult struct {
	Next     PrimarySlot
	ToDelete []Reference
}

// ReconcilePrimary decides the next state of a primary slot.
//
// Every validation rule is checked before the first upload so a rejected
// request never leaves new objects behind.
func (r *Reconciler) ReconcilePrimary(ctx context.Context, in PrimaryInput) (_ PrimaryResult, err error) {
	ctx, span := tracer.Start(ctx, "asset.ReconcilePrimary")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.Bool("asset.create", in.Create),
		attribute.String("asset.current_mode", string(in.Current.Mode)),
	)

	var (
		next     = in.Current
		toDelete []Reference
		file     *StagedFile
	)

	switch c := in.Change.(type) {
	case LinkChange:
		link := strings.TrimSpace(c.URL)
		if link == "" {
			return PrimaryResult{}, errLinkRequired
		}
		if in.Current.File != nil {
			toDelete = append(toDelete, *in.Current.File)
		}
		next.Mode = ModeLink
		next.ExternalURL = link
		next.File = nil

	case UploadChange:
		if c.File != nil {
			file = c.File
			break
		}
		switch {
		case in.Create:
			return PrimaryResult{}, errFileOrLinkRequired
		case in.Current.Mode == ModeLink:
			return PrimaryResult{}, errFileRequiredOnSwitch
		case in.Current.File == nil:
			return PrimaryResult{}, errFileOrLinkRequired
		}
		// nothing resubmitted: keep the current file as is

	case nil:
		if in.Create {
			return PrimaryResult{}, errFileOrLinkRequired
		}

	default:
		return PrimaryResult{}, fmt.Errorf("unsupported primary change %T", in.Change)
	}

	var uploaded []Reference

	if file != nil {
		ref, err := r.upload(ctx, *file, in.Folder)
		if err != nil {
			return PrimaryResult{}, err
		}
		uploaded = append(uploaded, ref)
		if in.Current.File != nil {
			toDelete = append(toDelete, *in.Current.File)
		}
		next.Mode = ModeUpload
		next.File = &ref
		next.ExternalURL = ""
	}

	if in.Thumbnail != nil {
		ref, err := r.upload(ctx, *in.Thumbnail, path.Join(in.Folder, "thumbnails"))
		if err != nil {
			r.ReportOrphans(ctx, uploaded, err)
			return PrimaryResult{}, err
		}
		if in.Current.Thumbnail != nil {
			toDelete = append(toDelete, *in.Current.Thumbnail)
		}
		next.Thumbnail = &ref
	}

	if err := next.Validate(); err != nil {
		r.ReportOrphans(ctx, uploaded, err)
		return PrimaryResult{}, err
	}

	span.SetAttributes(
		attribute.String("asset.next_mode", string(next.Mode)),
		attribute.Int("asset.to_delete", len(toDelete)),
	)
	return PrimaryResult{Next: next, ToDelete: toDelete}, nil
}
