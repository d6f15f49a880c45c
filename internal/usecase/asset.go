package usecase

import (
	"context"
	"path"

	"github.com/civicweb/cms/internal/asset"
)

// Store folder hints per entity type.
const (
	FolderMedia    = "media"
	FolderPrograms = "programs"
	FolderProjects = "projects"
	FolderTimeline = "timeline"
)

// Showcase is the asset state shared by programs, projects and timeline
// entries: an uploaded cover plus an ordered gallery.
type Showcase struct {
	Cover   asset.PrimarySlot
	Gallery []asset.Reference
}

// Owned enumerates every stored object the showcase references.
func (s Showcase) Owned() []asset.Reference {
	return asset.Distinct(append(s.Cover.Owned(), s.Gallery...))
}

// CoverImage is the explicit cover, else the first gallery image.
func (s Showcase) CoverImage() *asset.Reference {
	return asset.EffectiveCover(s.Cover, s.Gallery)
}

// GalleryUpdate is the asset part of a showcase create or update.
// KeepExisting and Deletes hold remote ids or URLs of current gallery
// images; nil means the request did not carry the list.
type GalleryUpdate struct {
	Cover        *asset.StagedFile
	Uploads      []asset.StagedFile
	KeepExisting []string
	Deletes      []string
	ReplaceAll   bool
	ClearAll     bool
}

// reconcileShowcase computes the next showcase. The cover is reconciled
// first; if the gallery then fails the fresh cover is reported as orphaned.
func (u Usecase) reconcileShowcase(ctx context.Context, current Showcase, upd GalleryUpdate, folder string) (Showcase, []asset.Reference, error) {
	next := current
	var toDelete []asset.Reference

	if upd.Cover != nil {
		res, err := u.reconciler.ReconcilePrimary(ctx, asset.PrimaryInput{
			Current: current.Cover,
			Change:  asset.UploadChange{File: upd.Cover},
			Folder:  path.Join(folder, "covers"),
		})
		if err != nil {
			return Showcase{}, nil, err
		}
		next.Cover = res.Next
		toDelete = append(toDelete, res.ToDelete...)
	}

	res, err := u.reconciler.ReconcileGallery(ctx, asset.GalleryInput{
		Current:         current.Gallery,
		NewlyUploaded:   upd.Uploads,
		KeepExisting:    lookup(current.Gallery, upd.KeepExisting),
		ExplicitDeletes: lookup(current.Gallery, upd.Deletes),
		ReplaceAll:      upd.ReplaceAll,
		ClearAll:        upd.ClearAll,
		Folder:          path.Join(folder, "gallery"),
	})
	if err != nil {
		u.reconciler.ReportOrphans(ctx, asset.Without(next.Cover.Owned(), current.Cover.Owned()), err)
		return Showcase{}, nil, err
	}
	next.Gallery = res.Next
	toDelete = append(toDelete, res.ToDelete...)

	u.log.DebugContext(ctx, "gallery reconciled",
		"rule", res.Rule,
		"next", len(res.Next),
		"to_delete", len(toDelete),
	)
	return next, toDelete, nil
}

// settle runs after the entity write. On success superseded objects are
// released; on failure every object uploaded for the write is orphaned.
func (u Usecase) settle(ctx context.Context, prev, next, toDelete []asset.Reference, err error) {
	if err != nil {
		u.reconciler.ReportOrphans(ctx, asset.Without(next, prev), err)
		return
	}
	u.cleaner.Release(ctx, asset.Without(toDelete, next)...)
}

func lookup(current []asset.Reference, tokens []string) []asset.Reference {
	if tokens == nil {
		return nil
	}
	return asset.Lookup(current, tokens)
}
