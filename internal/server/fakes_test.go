package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/session"
	"github.com/civicweb/cms/internal/staging"
	"github.com/civicweb/cms/internal/usecase"
)

type fakeService struct {
	err error

	mediaInput    *usecase.MediaInput
	programInput  *usecase.ProgramInput
	timelineInput *usecase.TimelineEntryInput
	sweep         *usecase.SweepOption
	updatedID     uuid.UUID
	session       session.State

	// stagedExisted records whether each staged file was on disk when the
	// usecase saw it.
	stagedExisted map[string]bool
}

func (f *fakeService) seeStaged(files ...*asset.StagedFile) {
	if f.stagedExisted == nil {
		f.stagedExisted = map[string]bool{}
	}
	for _, sf := range files {
		if sf == nil {
			continue
		}
		_, err := os.Stat(sf.Path)
		f.stagedExisted[sf.Path] = err == nil
	}
}

func (f *fakeService) Health() map[string]string { return map[string]string{"status": "up"} }

func (f *fakeService) ListMediaItems(ctx context.Context, _ usecase.ListMediaItemsOption) ([]usecase.MediaItem, int, error) {
	f.session, _ = session.FromContext(ctx)
	return []usecase.MediaItem{{ID: uuid.New(), Title: "a", Type: asset.KindImage}}, 1, f.err
}

func (f *fakeService) GetMediaItemByID(_ context.Context, id uuid.UUID) (usecase.MediaItem, error) {
	return usecase.MediaItem{ID: id}, f.err
}

func (f *fakeService) CreateMediaItem(_ context.Context, in usecase.MediaInput) (usecase.MediaItem, error) {
	f.mediaInput = &in
	if c, ok := in.Change.(asset.UploadChange); ok {
		f.seeStaged(c.File)
	}
	f.seeStaged(in.Thumbnail)
	if f.err != nil {
		return usecase.MediaItem{}, f.err
	}
	m := usecase.MediaItem{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.Type != nil {
		m.Type = *in.Type
	}
	return m, nil
}

func (f *fakeService) UpdateMediaItem(_ context.Context, id uuid.UUID, in usecase.MediaInput) (usecase.MediaItem, error) {
	f.updatedID = id
	f.mediaInput = &in
	return usecase.MediaItem{ID: id}, f.err
}

func (f *fakeService) DeleteMediaItem(context.Context, uuid.UUID) error { return f.err }

func (f *fakeService) ListPrograms(context.Context, usecase.ListShowcasesOption) ([]usecase.Program, int, error) {
	return nil, 0, f.err
}

func (f *fakeService) GetProgramByID(_ context.Context, id uuid.UUID) (usecase.Program, error) {
	return usecase.Program{ID: id}, f.err
}

func (f *fakeService) CreateProgram(_ context.Context, in usecase.ProgramInput) (usecase.Program, error) {
	f.programInput = &in
	f.seeStaged(in.Gallery.Cover)
	for i := range in.Gallery.Uploads {
		f.seeStaged(&in.Gallery.Uploads[i])
	}
	return usecase.Program{ID: uuid.New()}, f.err
}

func (f *fakeService) UpdateProgram(_ context.Context, id uuid.UUID, in usecase.ProgramInput) (usecase.Program, error) {
	f.updatedID = id
	f.programInput = &in
	return usecase.Program{ID: id}, f.err
}

func (f *fakeService) DeleteProgram(context.Context, uuid.UUID) error { return f.err }

func (f *fakeService) ListProjects(context.Context, usecase.ListShowcasesOption) ([]usecase.Project, int, error) {
	return nil, 0, f.err
}

func (f *fakeService) GetProjectByID(_ context.Context, id uuid.UUID) (usecase.Project, error) {
	return usecase.Project{ID: id}, f.err
}

func (f *fakeService) CreateProject(context.Context, usecase.ProjectInput) (usecase.Project, error) {
	return usecase.Project{ID: uuid.New()}, f.err
}

func (f *fakeService) UpdateProject(_ context.Context, id uuid.UUID, _ usecase.ProjectInput) (usecase.Project, error) {
	return usecase.Project{ID: id}, f.err
}

func (f *fakeService) DeleteProject(context.Context, uuid.UUID) error { return f.err }

func (f *fakeService) ListTimelineEntries(context.Context, usecase.ListShowcasesOption) ([]usecase.TimelineEntry, int, error) {
	return nil, 0, f.err
}

func (f *fakeService) GetTimelineEntryByID(_ context.Context, id uuid.UUID) (usecase.TimelineEntry, error) {
	return usecase.TimelineEntry{ID: id}, f.err
}

func (f *fakeService) CreateTimelineEntry(_ context.Context, in usecase.TimelineEntryInput) (usecase.TimelineEntry, error) {
	f.timelineInput = &in
	e := usecase.TimelineEntry{ID: uuid.New()}
	if in.OccurredOn != nil {
		e.OccurredOn = *in.OccurredOn
	}
	return e, f.err
}

func (f *fakeService) UpdateTimelineEntry(_ context.Context, id uuid.UUID, in usecase.TimelineEntryInput) (usecase.TimelineEntry, error) {
	f.timelineInput = &in
	return usecase.TimelineEntry{ID: id}, f.err
}

func (f *fakeService) DeleteTimelineEntry(context.Context, uuid.UUID) error { return f.err }

func (f *fakeService) RequestSweep(_ context.Context, opt usecase.SweepOption) (usecase.Job, error) {
	f.sweep = &opt
	return usecase.Job{ID: uuid.New(), Type: config.TASK_TYPE_SWEEP_ORPHANS, Status: usecase.JobStatusPending, Payload: []byte(`{}`)}, f.err
}

func (f *fakeService) ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error) {
	return nil, 0, f.err
}

func (f *fakeService) GetJobByID(_ context.Context, id uuid.UUID) (usecase.Job, error) {
	return usecase.Job{ID: id}, f.err
}

type fakeVerifier map[string]session.State

func (v fakeVerifier) VerifyIDToken(_ context.Context, token string) (session.State, error) {
	st, ok := v[token]
	if !ok {
		return session.State{}, errors.New("token rejected")
	}
	return st, nil
}

const testClientID = "internal-client"

func newTestServer(t *testing.T) (*fakeService, http.Handler) {
	t.Helper()
	t.Setenv(config.ENV_KEY_CLIENT_ID, testClientID)
	t.Setenv(config.ENV_KEY_APP_ENV, "test")

	svc := &fakeService{}
	s := NewServer(svc, staging.New(nil, staging.WithDir(t.TempDir())), fakeVerifier{
		"good":    {UID: "editor", ExpiresAt: time.Now().Add(time.Hour)},
		"expired": {UID: "editor", ExpiresAt: time.Now().Add(-time.Minute)},
	}, nil)
	return svc, s.RegisterRoutes()
}

// do sends req as the internal client unless it already has credentials.
func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("Authorization") == "" && req.Header.Get(config.HEADER_KEY_X_UID) == "" {
		req.Header.Set(config.HEADER_KEY_X_CLIENT_ID, testClientID)
		req.Header.Set(config.HEADER_KEY_X_UID, "editor")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type part struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string][]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, p := range files {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
