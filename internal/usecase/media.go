package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
)

type MediaItem struct {
	ID          uuid.UUID
	Title       string
	Description string
	Type        asset.Kind
	Primary     asset.PrimarySlot
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ListMediaItemsOption struct {
	Skip   int
	Limit  int
	SortBy string
	SortIn string

	Title string
	Type  asset.Kind
}

// MediaInput is a media item create or partial update. Nil scalar fields
// are left untouched on update; a nil Change leaves the primary asset as is.
type MediaInput struct {
	Title       *string
	Description *string
	Type        *asset.Kind

	Change    asset.PrimaryChange
	Thumbnail *asset.StagedFile
}

func (u Usecase) ListMediaItems(ctx context.Context, opt ListMediaItemsOption) ([]MediaItem, int, error) {
	return u.repo.ListMediaItems(ctx, opt)
}

func (u Usecase) GetMediaItemByID(ctx context.Context, id uuid.UUID) (MediaItem, error) {
	return u.repo.GetMediaItemByID(ctx, id)
}

func (u Usecase) CreateMediaItem(ctx context.Context, in MediaInput) (MediaItem, error) {
	var m MediaItem
	if err := applyMediaScalars(&m, in); err != nil {
		return MediaItem{}, err
	}
	if m.Title == "" {
		return MediaItem{}, invalid("title_required", "title is required")
	}
	if m.Type == "" {
		return MediaItem{}, invalid("type_required", "type is required")
	}
	if err := checkMediaAssets(m.Type, in); err != nil {
		return MediaItem{}, err
	}

	res, err := u.reconciler.ReconcilePrimary(ctx, asset.PrimaryInput{
		Change:    in.Change,
		Thumbnail: in.Thumbnail,
		Create:    true,
		Folder:    FolderMedia,
	})
	if err != nil {
		return MediaItem{}, err
	}
	m.Primary = res.Next

	created, err := u.repo.CreateMediaItem(ctx, m)
	u.settle(ctx, nil, m.Primary.Owned(), res.ToDelete, err)
	if err != nil {
		return MediaItem{}, err
	}
	return created, nil
}

func (u Usecase) UpdateMediaItem(ctx context.Context, id uuid.UUID, in MediaInput) (MediaItem, error) {
	current, err := u.repo.GetMediaItemByID(ctx, id)
	if err != nil {
		return MediaItem{}, err
	}

	m := current
	if err := applyMediaScalars(&m, in); err != nil {
		return MediaItem{}, err
	}
	if m.Title == "" {
		return MediaItem{}, invalid("title_required", "title is required")
	}
	if err := checkMediaAssets(m.Type, in); err != nil {
		return MediaItem{}, err
	}

	res, err := u.reconciler.ReconcilePrimary(ctx, asset.PrimaryInput{
		Current:   current.Primary,
		Change:    in.Change,
		Thumbnail: in.Thumbnail,
		Folder:    FolderMedia,
	})
	if err != nil {
		return MediaItem{}, err
	}
	m.Primary = res.Next
	toDelete := res.ToDelete

	// a thumbnail only belongs to a video
	if m.Type != asset.KindVideo && m.Primary.Thumbnail != nil {
		toDelete = append(toDelete, *m.Primary.Thumbnail)
		m.Primary.Thumbnail = nil
	}

	updated, err := u.repo.UpdateMediaItem(ctx, m)
	u.settle(ctx, current.Primary.Owned(), m.Primary.Owned(), toDelete, err)
	if err != nil {
		return MediaItem{}, err
	}
	return updated, nil
}

// DeleteMediaItem removes the item and releases its file and thumbnail.
func (u Usecase) DeleteMediaItem(ctx context.Context, id uuid.UUID) error {
	m, err := u.repo.GetMediaItemByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.DeleteMediaItem(ctx, id); err != nil {
		return err
	}
	u.cleaner.Release(ctx, m.Primary.Owned()...)
	return nil
}

func applyMediaScalars(m *MediaItem, in MediaInput) error {
	if in.Title != nil {
		m.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if in.Type != nil {
		k, err := asset.ParseKind(string(*in.Type))
		if err != nil {
			return invalid("invalid_type", err.Error())
		}
		m.Type = k
	}
	return nil
}

// checkMediaAssets rejects staged files that cannot belong to a media item
// of type t. It runs before anything is uploaded.
func checkMediaAssets(t asset.Kind, in MediaInput) error {
	if in.Thumbnail != nil && t != asset.KindVideo {
		return invalid("thumbnail_not_allowed", "thumbnail is only accepted for video")
	}
	if c, ok := in.Change.(asset.UploadChange); ok && c.File != nil && t != asset.KindDocument {
		if got := asset.KindFromContentType(c.File.ContentType); got != t {
			return invalid("type_mismatch", "file is "+string(got)+" but type is "+string(t))
		}
	}
	return nil
}
