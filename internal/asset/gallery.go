package asset

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// GalleryRule names the precedence rule that produced a gallery result.
type GalleryRule string

const (
	RuleClear     GalleryRule = "clear"
	RuleKeep      GalleryRule = "keep"
	RuleReplace   GalleryRule = "replace"
	RuleAppend    GalleryRule = "append"
	RuleDelete    GalleryRule = "delete"
	RuleUnchanged GalleryRule = "unchanged"
)

// GalleryInput carries the four independent gallery signals. A nil
// KeepExisting or ExplicitDeletes means the request did not carry the list;
// a non-nil empty slice means it did and the list is empty.
type GalleryInput struct {
	Current         []Reference
	NewlyUploaded   []StagedFile
	KeepExisting    []Reference
	ExplicitDeletes []Reference
	ReplaceAll      bool
	ClearAll        bool
	Folder          string
}

type GalleryResult struct {
	Next     []Reference
	ToDelete []Reference
	Rule     GalleryRule
}

// ReconcileGallery merges the gallery signals into the next ordered
// gallery. The first matching rule wins:
//
//	clear > keep list > replace with uploads > append uploads > explicit deletes > unchanged
//
// Any failed upload aborts the whole reconciliation and the current gallery
// stays as it was.
func (r *Reconciler) ReconcileGallery(ctx context.Context, in GalleryInput) (res GalleryResult, err error) {
	ctx, span := tracer.Start(ctx, "asset.ReconcileGallery")
	defer func() {
		span.SetAttributes(
			attribute.String("asset.gallery_rule", string(res.Rule)),
			attribute.Int("asset.to_delete", len(res.ToDelete)),
		)
		endSpan(span, err)
	}()

	current := slices.Clone(in.Current)

	switch {
	case in.ClearAll:
		return GalleryResult{Next: []Reference{}, ToDelete: current, Rule: RuleClear}, nil

	case in.KeepExisting != nil:
		uploaded, err := r.uploadAll(ctx, in.NewlyUploaded, in.Folder)
		if err != nil {
			return GalleryResult{}, err
		}
		keep := Distinct(in.KeepExisting)
		next := Distinct(append(slices.Clone(keep), uploaded...))
		return GalleryResult{Next: next, ToDelete: Without(current, keep), Rule: RuleKeep}, nil

	case len(in.NewlyUploaded) > 0 && in.ReplaceAll:
		uploaded, err := r.uploadAll(ctx, in.NewlyUploaded, in.Folder)
		if err != nil {
			return GalleryResult{}, err
		}
		return GalleryResult{Next: uploaded, ToDelete: current, Rule: RuleReplace}, nil

	case len(in.NewlyUploaded) > 0:
		uploaded, err := r.uploadAll(ctx, in.NewlyUploaded, in.Folder)
		if err != nil {
			return GalleryResult{}, err
		}
		return GalleryResult{Next: Distinct(append(current, uploaded...)), Rule: RuleAppend}, nil

	case in.ExplicitDeletes != nil:
		drop := Intersect(Distinct(in.ExplicitDeletes), current)
		return GalleryResult{Next: Without(current, drop), ToDelete: drop, Rule: RuleDelete}, nil

	default:
		return GalleryResult{Next: current, Rule: RuleUnchanged}, nil
	}
}
