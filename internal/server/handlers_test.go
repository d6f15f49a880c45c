package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/usecase"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCreateMediaItem_Upload(t *testing.T) {
	svc, h := newTestServer(t)

	rec := do(h, multipartRequest(t, http.MethodPost, "/api/v1/media",
		map[string][]string{"title": {" Festival "}, "type": {"image"}},
		part{field: "file", filename: "festival.png", content: pngBytes(t)},
	))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.mediaInput)
	assert.Equal(t, "Festival", *svc.mediaInput.Title)
	assert.Equal(t, asset.KindImage, *svc.mediaInput.Type)
	assert.Nil(t, svc.mediaInput.Description)

	change, ok := svc.mediaInput.Change.(asset.UploadChange)
	require.True(t, ok)
	require.NotNil(t, change.File)
	assert.Equal(t, "image/png", change.File.ContentType)
	assert.Equal(t, "festival.png", change.File.Filename)

	assert.True(t, svc.stagedExisted[change.File.Path], "staged file visible to the usecase")
	assert.NoFileExists(t, change.File.Path, "staged file removed after the request")
}

func TestCreateMediaItem_StagedFilesRemovedOnFailure(t *testing.T) {
	svc, h := newTestServer(t)
	svc.err = asset.UploadError{Filename: "festival.png", Err: errors.New("bucket unavailable")}

	rec := do(h, multipartRequest(t, http.MethodPost, "/api/v1/media",
		map[string][]string{"title": {"Festival"}, "type": {"image"}},
		part{field: "file", filename: "festival.png", content: pngBytes(t)},
	))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upload_failed", decode(t, rec)["error"])
	change := svc.mediaInput.Change.(asset.UploadChange)
	assert.NoFileExists(t, change.File.Path)
}

func TestMediaInput_SourceModes(t *testing.T) {
	id := uuid.New()

	t.Run("link", func(t *testing.T) {
		svc, h := newTestServer(t)
		rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/media/"+id.String(),
			map[string][]string{"source_mode": {"link"}, "external_url": {" https://video.example/1 "}}))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, id, svc.updatedID)
		assert.Equal(t, asset.LinkChange{URL: "https://video.example/1"}, svc.mediaInput.Change)
		assert.Nil(t, svc.mediaInput.Title)
	})

	t.Run("upload without a new file", func(t *testing.T) {
		svc, h := newTestServer(t)
		rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/media/"+id.String(),
			map[string][]string{"source_mode": {"upload"}}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, asset.UploadChange{}, svc.mediaInput.Change)
	})

	t.Run("scalars only", func(t *testing.T) {
		svc, h := newTestServer(t)
		rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/media/"+id.String(),
			map[string][]string{"title": {"Renamed"}}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, svc.mediaInput.Change)
		assert.Equal(t, "Renamed", *svc.mediaInput.Title)
	})

	t.Run("unknown mode", func(t *testing.T) {
		svc, h := newTestServer(t)
		rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/media/"+id.String(),
			map[string][]string{"source_mode": {"embed"}}))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_source_mode", decode(t, rec)["error"])
		assert.Nil(t, svc.mediaInput)
	})
}

func TestCreateProgram_RejectsNonImageGallery(t *testing.T) {
	svc, h := newTestServer(t)

	rec := do(h, multipartRequest(t, http.MethodPost, "/api/v1/programs",
		map[string][]string{"title": {"Youth"}},
		part{field: "gallery", filename: "a.png", content: pngBytes(t)},
		part{field: "gallery", filename: "notes.txt", content: []byte("plain text, not an image")},
	))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unsupported_type", decode(t, rec)["error"])
	assert.Nil(t, svc.programInput)
}

func TestCreateProgram_CoverAndGallery(t *testing.T) {
	svc, h := newTestServer(t)

	rec := do(h, multipartRequest(t, http.MethodPost, "/api/v1/programs",
		map[string][]string{"title": {"Youth"}, "summary": {"Weekly"}},
		part{field: "cover", filename: "cover.png", content: pngBytes(t)},
		part{field: "gallery", filename: "a.png", content: pngBytes(t)},
		part{field: "gallery", filename: "b.png", content: pngBytes(t)},
	))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	in := svc.programInput
	require.NotNil(t, in.Gallery.Cover)
	require.Len(t, in.Gallery.Uploads, 2)
	assert.Equal(t, "a.png", in.Gallery.Uploads[0].Filename)
	assert.Equal(t, "b.png", in.Gallery.Uploads[1].Filename)
	assert.Nil(t, in.Gallery.KeepExisting)
	assert.Nil(t, in.Gallery.Deletes)
	assert.Len(t, svc.stagedExisted, 3)
	for p, existed := range svc.stagedExisted {
		assert.True(t, existed)
		assert.NoFileExists(t, p)
	}
}

func TestUpdateProgram_ListFields(t *testing.T) {
	svc, h := newTestServer(t)
	id := uuid.New()

	rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/programs/"+id.String(),
		map[string][]string{
			"keep_existing": {`["programs/gallery/a.jpg","https://cdn.test/programs/gallery/b.jpg"]`},
			"delete":        {"programs/gallery/c.jpg,programs/gallery/d.jpg"},
			"replace_all":   {"true"},
		}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g := svc.programInput.Gallery
	assert.Equal(t, []string{"programs/gallery/a.jpg", "https://cdn.test/programs/gallery/b.jpg"}, g.KeepExisting)
	assert.Equal(t, []string{"programs/gallery/c.jpg", "programs/gallery/d.jpg"}, g.Deletes)
	assert.True(t, g.ReplaceAll)
	assert.False(t, g.ClearAll)
	assert.Nil(t, svc.programInput.Title)
}

func TestUpdateProgram_EmptyKeepListIsPresent(t *testing.T) {
	svc, h := newTestServer(t)

	rec := do(h, multipartRequest(t, http.MethodPut, "/api/v1/programs/"+uuid.New().String(),
		map[string][]string{"keep_existing": {""}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, svc.programInput.Gallery.KeepExisting)
	assert.Empty(t, svc.programInput.Gallery.KeepExisting)
}

func TestCreateTimelineEntry_OccurredOn(t *testing.T) {
	svc, h := newTestServer(t)

	rec := do(h, multipartRequest(t, http.MethodPost, "/api/v1/timeline",
		map[string][]string{"title": {"Founded"}, "occurred_on": {"1999-05-01"}}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.timelineInput.OccurredOn)
	assert.Equal(t, 1999, svc.timelineInput.OccurredOn.Year())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "1999-05-01", data["occurred_on"])

	rec = do(h, multipartRequest(t, http.MethodPost, "/api/v1/timeline",
		map[string][]string{"title": {"Founded"}, "occurred_on": {"May 1999"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_occurred_on", decode(t, rec)["error"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"validation", asset.ValidationError{Code: "link_required", Message: "external link required"}, http.StatusUnprocessableEntity, "link_required"},
		{"not found", usecase.ErrNotFound{Code: "media_not_found", Message: "media not found"}, http.StatusNotFound, "media_not_found"},
		{"upload", asset.UploadError{Filename: "a.jpg", Err: errors.New("denied")}, http.StatusBadGateway, "upload_failed"},
		{"other", errors.New("db down"), http.StatusInternalServerError, "db down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, h := newTestServer(t)
			svc.err = tt.err

			rec := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/media/"+uuid.New().String(), nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
}

func TestInvalidID(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodDelete, "/api/v1/projects/not-a-uuid", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListMediaItems(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/api/v1/media?limit=10&type=image", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/v1/media?type=audio", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestSweep(t *testing.T) {
	svc, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/sweep",
		strings.NewReader(`{"prefix":"/media/","grace_period":"48h","dry_run":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(h, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.NotNil(t, svc.sweep)
	assert.Equal(t, "media/", svc.sweep.Prefix)
	assert.Equal(t, "48h0m0s", svc.sweep.GracePeriod.String())
	assert.True(t, svc.sweep.DryRun)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, config.TASK_TYPE_SWEEP_ORPHANS, data["type"])
	assert.Equal(t, usecase.JobStatusPending, data["status"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/jobs/sweep", strings.NewReader(`{"grace_period":"two days"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(h, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_grace_period", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", decode(t, rec)["status"])
}
