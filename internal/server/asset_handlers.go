package server

import (
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/staging"
	"github.com/civicweb/cms/internal/usecase"
)

type Asset struct {
	URL      string   `json:"url"`
	RemoteID string   `json:"remote_id"`
	Kind     string   `json:"kind"`
	Palette  []string `json:"palette,omitempty"`
}

// Source is a primary slot as clients see it.
type Source struct {
	Mode        string `json:"mode,omitempty"`
	File        *Asset `json:"file,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	Thumbnail   *Asset `json:"thumbnail,omitempty"`
}

// Gallery is the asset part of programs, projects and timeline entries.
// Cover is the effective cover: the uploaded one, else the first image.
type Gallery struct {
	Cover       *Asset  `json:"cover,omitempty"`
	CoverIsOwn  bool    `json:"cover_is_own"`
	Images      []Asset `json:"gallery"`
	ImagesCount int     `json:"gallery_count"`
}

func toAsset(r *asset.Reference) *Asset {
	if r == nil {
		return nil
	}
	return &Asset{
		URL:      r.URL,
		RemoteID: r.RemoteID,
		Kind:     string(r.Kind),
		Palette:  r.Palette,
	}
}

func toSource(s asset.PrimarySlot) Source {
	return Source{
		Mode:        string(s.Mode),
		File:        toAsset(s.File),
		ExternalURL: s.ExternalURL,
		Thumbnail:   toAsset(s.Thumbnail),
	}
}

func toGallery(sc usecase.Showcase) Gallery {
	g := Gallery{
		Cover:       toAsset(sc.CoverImage()),
		CoverIsOwn:  sc.Cover.File != nil,
		Images:      make([]Asset, 0, len(sc.Gallery)),
		ImagesCount: len(sc.Gallery),
	}
	for i := range sc.Gallery {
		g.Images = append(g.Images, *toAsset(&sc.Gallery[i]))
	}
	return g
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// galleryUpdate stages the cover and gallery parts of a showcase request and
// reads its list fields.
func galleryUpdate(ctx echo.Context, batch *staging.Batch, values url.Values) (usecase.GalleryUpdate, error) {
	var upd usecase.GalleryUpdate

	if fh := formFile(ctx, "cover"); fh != nil {
		f, err := batch.Add(staging.RoleCover, fh)
		if err != nil {
			return upd, err
		}
		upd.Cover = &f
	}

	uploads, err := batch.AddAll(staging.RoleGallery, formFiles(ctx, "gallery"))
	if err != nil {
		return upd, err
	}
	upd.Uploads = uploads

	upd.KeepExisting, _ = formList(values, "keep_existing")
	upd.Deletes, _ = formList(values, "delete")
	upd.ReplaceAll = formBool(values, "replace_all")
	upd.ClearAll = formBool(values, "clear_all")
	return upd, nil
}
