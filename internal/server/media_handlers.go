package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/staging"
	"github.com/civicweb/cms/internal/usecase"
)

type MediaItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Source      Source `json:"source"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toMediaItem(m usecase.MediaItem) MediaItem {
	return MediaItem{
		ID:          m.ID.String(),
		Title:       m.Title,
		Description: m.Description,
		Type:        string(m.Type),
		Source:      toSource(m.Primary),
		CreatedAt:   timestamp(m.CreatedAt),
		UpdatedAt:   timestamp(m.UpdatedAt),
	}
}

type ListMediaItemsRequest struct {
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at title type"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`
	Title  string `query:"title"`
	Type   string `query:"type" validate:"omitempty,oneof=image video document"`
}

func (s *Server) ListMediaItems(ctx echo.Context) error {
	var req ListMediaItemsRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return unprocessable(ctx, err)
	}

	items, total, err := s.server.ListMediaItems(ctx.Request().Context(), usecase.ListMediaItemsOption{
		Skip:   req.Skip,
		Limit:  req.Limit,
		SortBy: req.SortBy,
		SortIn: req.SortIn,
		Title:  req.Title,
		Type:   asset.Kind(req.Type),
	})
	if err != nil {
		return s.writeError(ctx, err)
	}

	list := make([]MediaItem, 0, len(items))
	for _, m := range items {
		list = append(list, toMediaItem(m))
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

type IDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// bindID reads and checks the :id path parameter. When ok is false the
// error response has been written and err is the result of writing it.
func (s *Server) bindID(ctx echo.Context) (id uuid.UUID, ok bool, err error) {
	var req IDRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &req); err != nil {
		return uuid.Nil, false, badRequest(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return uuid.Nil, false, unprocessable(ctx, err)
	}
	id, _ = uuid.Parse(req.ID)
	return id, true, nil
}

func (s *Server) GetMediaItemByID(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}

	m, err := s.server.GetMediaItemByID(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toMediaItem(m)})
}

func (s *Server) CreateMediaItem(ctx echo.Context) error {
	values, err := formValues(ctx)
	if err != nil {
		return badRequest(ctx, err)
	}

	batch := s.stager.NewBatch()
	defer batch.Close()

	in, err := mediaInput(ctx, batch, values)
	if err != nil {
		return s.writeError(ctx, err)
	}

	m, err := s.server.CreateMediaItem(ctx.Request().Context(), in)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toMediaItem(m)})
}

func (s *Server) UpdateMediaItem(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	values, err := formValues(ctx)
	if err != nil {
		return badRequest(ctx, err)
	}

	batch := s.stager.NewBatch()
	defer batch.Close()

	in, err := mediaInput(ctx, batch, values)
	if err != nil {
		return s.writeError(ctx, err)
	}

	m, err := s.server.UpdateMediaItem(ctx.Request().Context(), id, in)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toMediaItem(m)})
}

func (s *Server) DeleteMediaItem(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}

	if err := s.server.DeleteMediaItem(ctx.Request().Context(), id); err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Message: "media item deleted"})
}

// mediaInput turns the form into a media create or update. The source mode
// decides the primary change: "link" always means a link, "upload" or a
// sent file means an upload, and neither leaves the primary untouched.
func mediaInput(ctx echo.Context, batch *staging.Batch, values url.Values) (usecase.MediaInput, error) {
	in := usecase.MediaInput{
		Title:       present(values, "title"),
		Description: present(values, "description"),
	}
	if t := present(values, "type"); t != nil {
		k := asset.Kind(strings.ToLower(*t))
		in.Type = &k
	}

	var mode asset.SourceMode
	if m := present(values, "source_mode"); m != nil && *m != "" {
		parsed, err := asset.ParseSourceMode(strings.ToLower(*m))
		if err != nil {
			return in, err
		}
		mode = parsed
	}

	var file *asset.StagedFile
	if fh := formFile(ctx, "file"); fh != nil {
		f, err := batch.Add(staging.RolePrimary, fh)
		if err != nil {
			return in, err
		}
		file = &f
	}

	switch {
	case mode == asset.ModeLink:
		in.Change = asset.LinkChange{URL: strings.TrimSpace(values.Get("external_url"))}
	case mode == asset.ModeUpload || file != nil:
		in.Change = asset.UploadChange{File: file}
	}

	if fh := formFile(ctx, "thumbnail"); fh != nil {
		f, err := batch.Add(staging.RoleThumbnail, fh)
		if err != nil {
			return in, err
		}
		in.Thumbnail = &f
	}
	return in, nil
}
