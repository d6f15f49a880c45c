package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/staging"
	"github.com/civicweb/cms/internal/usecase"
)

type Program struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Body    string `json:"body,omitempty"`
	Gallery
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Project struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Status  string `json:"status"`
	Gallery
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type TimelineEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OccurredOn  string `json:"occurred_on"`
	Gallery
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toProgram(p usecase.Program) Program {
	return Program{
		ID:        p.ID.String(),
		Title:     p.Title,
		Summary:   p.Summary,
		Body:      p.Body,
		Gallery:   toGallery(p.Showcase),
		CreatedAt: timestamp(p.CreatedAt),
		UpdatedAt: timestamp(p.UpdatedAt),
	}
}

func toProject(p usecase.Project) Project {
	return Project{
		ID:        p.ID.String(),
		Title:     p.Title,
		Summary:   p.Summary,
		Status:    p.Status,
		Gallery:   toGallery(p.Showcase),
		CreatedAt: timestamp(p.CreatedAt),
		UpdatedAt: timestamp(p.UpdatedAt),
	}
}

func toTimelineEntry(e usecase.TimelineEntry) TimelineEntry {
	return TimelineEntry{
		ID:          e.ID.String(),
		Title:       e.Title,
		Description: e.Description,
		OccurredOn:  e.OccurredOn.Format(time.DateOnly),
		Gallery:     toGallery(e.Showcase),
		CreatedAt:   timestamp(e.CreatedAt),
		UpdatedAt:   timestamp(e.UpdatedAt),
	}
}

type ListShowcasesRequest struct {
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at title occurred_on status"`
	SortIn string `query:"sort_in" validate:"omitempty,oneof=asc desc ASC DESC"`
	Title  string `query:"title"`
	Status string `query:"status" validate:"omitempty,oneof=planned active completed"`
}

func (s *Server) bindList(ctx echo.Context) (usecase.ListShowcasesOption, bool, error) {
	var req ListShowcasesRequest
	if err := ctx.Bind(&req); err != nil {
		return usecase.ListShowcasesOption{}, false, badRequest(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return usecase.ListShowcasesOption{}, false, unprocessable(ctx, err)
	}
	return usecase.ListShowcasesOption{
		Skip:   req.Skip,
		Limit:  req.Limit,
		SortBy: req.SortBy,
		SortIn: req.SortIn,
		Title:  req.Title,
		Status: req.Status,
	}, true, nil
}

func listRes[T any](data []T, total int, opt usecase.ListShowcasesOption) Res {
	return Res{
		Data: data,
		Meta: &Meta{
			Total: total,
			Skip:  opt.Skip,
			Limit: opt.Limit,
		},
	}
}

// showcaseRequest is the parsed form of a showcase create or update. Close
// removes the staged files.
type showcaseRequest struct {
	values  url.Values
	gallery usecase.GalleryUpdate
	batch   *staging.Batch
}

func (r showcaseRequest) Close() {
	_ = r.batch.Close()
}

// bindShowcase stages the asset parts of a showcase request. When ok is
// false the error response has been written and nothing stays staged.
func (s *Server) bindShowcase(ctx echo.Context) (req showcaseRequest, ok bool, err error) {
	values, err := formValues(ctx)
	if err != nil {
		return req, false, badRequest(ctx, err)
	}
	req = showcaseRequest{values: values, batch: s.stager.NewBatch()}

	req.gallery, err = galleryUpdate(ctx, req.batch, values)
	if err != nil {
		req.Close()
		return req, false, s.writeError(ctx, err)
	}
	return req, true, nil
}

// Programs

func (s *Server) ListPrograms(ctx echo.Context) error {
	opt, ok, err := s.bindList(ctx)
	if !ok {
		return err
	}
	opt.Status = ""

	programs, total, err := s.server.ListPrograms(ctx.Request().Context(), opt)
	if err != nil {
		return s.writeError(ctx, err)
	}
	list := make([]Program, 0, len(programs))
	for _, p := range programs {
		list = append(list, toProgram(p))
	}
	return ctx.JSON(http.StatusOK, listRes(list, total, opt))
}

func (s *Server) GetProgramByID(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	p, err := s.server.GetProgramByID(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toProgram(p)})
}

func programInput(values url.Values, upd usecase.GalleryUpdate) usecase.ProgramInput {
	return usecase.ProgramInput{
		Title:   present(values, "title"),
		Summary: present(values, "summary"),
		Body:    present(values, "body"),
		Gallery: upd,
	}
}

func (s *Server) CreateProgram(ctx echo.Context) error {
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	p, err := s.server.CreateProgram(ctx.Request().Context(), programInput(req.values, req.gallery))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toProgram(p)})
}

func (s *Server) UpdateProgram(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	p, err := s.server.UpdateProgram(ctx.Request().Context(), id, programInput(req.values, req.gallery))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toProgram(p)})
}

func (s *Server) DeleteProgram(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	if err := s.server.DeleteProgram(ctx.Request().Context(), id); err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Message: "program deleted"})
}

// Projects

func (s *Server) ListProjects(ctx echo.Context) error {
	opt, ok, err := s.bindList(ctx)
	if !ok {
		return err
	}

	projects, total, err := s.server.ListProjects(ctx.Request().Context(), opt)
	if err != nil {
		return s.writeError(ctx, err)
	}
	list := make([]Project, 0, len(projects))
	for _, p := range projects {
		list = append(list, toProject(p))
	}
	return ctx.JSON(http.StatusOK, listRes(list, total, opt))
}

func (s *Server) GetProjectByID(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	p, err := s.server.GetProjectByID(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toProject(p)})
}

func projectInput(values url.Values, upd usecase.GalleryUpdate) usecase.ProjectInput {
	return usecase.ProjectInput{
		Title:   present(values, "title"),
		Summary: present(values, "summary"),
		Status:  present(values, "status"),
		Gallery: upd,
	}
}

func (s *Server) CreateProject(ctx echo.Context) error {
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	p, err := s.server.CreateProject(ctx.Request().Context(), projectInput(req.values, req.gallery))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toProject(p)})
}

func (s *Server) UpdateProject(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	p, err := s.server.UpdateProject(ctx.Request().Context(), id, projectInput(req.values, req.gallery))
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toProject(p)})
}

func (s *Server) DeleteProject(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	if err := s.server.DeleteProject(ctx.Request().Context(), id); err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Message: "project deleted"})
}

// Timeline

func (s *Server) ListTimelineEntries(ctx echo.Context) error {
	opt, ok, err := s.bindList(ctx)
	if !ok {
		return err
	}
	opt.Status = ""

	entries, total, err := s.server.ListTimelineEntries(ctx.Request().Context(), opt)
	if err != nil {
		return s.writeError(ctx, err)
	}
	list := make([]TimelineEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, toTimelineEntry(e))
	}
	return ctx.JSON(http.StatusOK, listRes(list, total, opt))
}

func (s *Server) GetTimelineEntryByID(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	e, err := s.server.GetTimelineEntryByID(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toTimelineEntry(e)})
}

// timelineInput reads occurred_on as a date or an RFC 3339 timestamp.
func timelineInput(values url.Values, upd usecase.GalleryUpdate) (usecase.TimelineEntryInput, error) {
	in := usecase.TimelineEntryInput{
		Title:       present(values, "title"),
		Description: present(values, "description"),
		Gallery:     upd,
	}
	if v := present(values, "occurred_on"); v != nil && *v != "" {
		t, err := time.Parse(time.DateOnly, *v)
		if err != nil {
			if t, err = time.Parse(time.RFC3339, *v); err != nil {
				return in, asset.ValidationError{Code: "invalid_occurred_on", Message: "occurred_on must be a YYYY-MM-DD date"}
			}
		}
		in.OccurredOn = &t
	}
	return in, nil
}

func (s *Server) CreateTimelineEntry(ctx echo.Context) error {
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	in, err := timelineInput(req.values, req.gallery)
	if err != nil {
		return s.writeError(ctx, err)
	}
	e, err := s.server.CreateTimelineEntry(ctx.Request().Context(), in)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toTimelineEntry(e)})
}

func (s *Server) UpdateTimelineEntry(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	req, ok, err := s.bindShowcase(ctx)
	if !ok {
		return err
	}
	defer req.Close()

	in, err := timelineInput(req.values, req.gallery)
	if err != nil {
		return s.writeError(ctx, err)
	}
	e, err := s.server.UpdateTimelineEntry(ctx.Request().Context(), id, in)
	if err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toTimelineEntry(e)})
}

func (s *Server) DeleteTimelineEntry(ctx echo.Context) error {
	id, ok, err := s.bindID(ctx)
	if !ok {
		return err
	}
	if err := s.server.DeleteTimelineEntry(ctx.Request().Context(), id); err != nil {
		return s.writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Message: "timeline entry deleted"})
}
