package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/usecase"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cms.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s, err := New(db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ref(id string) asset.Reference {
	return asset.Reference{URL: "https://cdn.test/" + id, RemoteID: id, Kind: asset.KindImage}
}

func refp(id string) *asset.Reference {
	r := ref(id)
	return &r
}

func TestMediaItem_RoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	created, err := s.CreateMediaItem(ctx, usecase.MediaItem{
		Title: "Clip",
		Type:  asset.KindVideo,
		Primary: asset.PrimarySlot{
			Mode:      asset.ModeUpload,
			File:      &asset.Reference{URL: "https://cdn.test/media/v.mp4", RemoteID: "media/v.mp4", Kind: asset.KindVideo},
			Thumbnail: refp("media/thumbnails/t.jpg"),
		},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.NotNil(t, created.Primary.File)
	assert.Equal(t, "media/v.mp4", created.Primary.File.RemoteID)
	require.NotNil(t, created.Primary.Thumbnail)
	assert.Equal(t, "media/thumbnails/t.jpg", created.Primary.Thumbnail.RemoteID)

	created.Title = "Clip (linked)"
	created.Description = ""
	created.Primary.Mode = asset.ModeLink
	created.Primary.File = nil
	created.Primary.ExternalURL = "https://video.example/1"

	updated, err := s.UpdateMediaItem(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Clip (linked)", updated.Title)
	assert.Equal(t, asset.ModeLink, updated.Primary.Mode)
	assert.Nil(t, updated.Primary.File)
	assert.Equal(t, "https://video.example/1", updated.Primary.ExternalURL)
	assert.NotNil(t, updated.Primary.Thumbnail)
	assert.NoError(t, updated.Primary.Validate())
}

func TestMediaItem_RefusesIncompleteReference(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateMediaItem(context.Background(), usecase.MediaItem{
		Title:   "Broken",
		Type:    asset.KindImage,
		Primary: asset.PrimarySlot{Mode: asset.ModeUpload, File: &asset.Reference{RemoteID: "media/x.jpg"}},
	})

	require.Error(t, err)
	_, total, err := s.ListMediaItems(context.Background(), usecase.ListMediaItemsOption{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMediaItem_NotFound(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.GetMediaItemByID(ctx, uuid.New())
	assert.True(t, usecase.IsNotFound(err))

	_, err = s.UpdateMediaItem(ctx, usecase.MediaItem{ID: uuid.New(), Title: "x", Type: asset.KindImage})
	assert.True(t, usecase.IsNotFound(err))
}

func TestListMediaItems_Filters(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, m := range []usecase.MediaItem{
		{Title: "Annual Report", Type: asset.KindDocument, Primary: asset.PrimarySlot{Mode: asset.ModeLink, ExternalURL: "https://x.test/a"}},
		{Title: "Report card", Type: asset.KindImage, Primary: asset.PrimarySlot{Mode: asset.ModeUpload, File: refp("media/b.jpg")}},
		{Title: "Festival", Type: asset.KindImage, Primary: asset.PrimarySlot{Mode: asset.ModeUpload, File: refp("media/c.jpg")}},
	} {
		_, err := s.CreateMediaItem(ctx, m)
		require.NoError(t, err)
	}

	items, total, err := s.ListMediaItems(ctx, usecase.ListMediaItemsOption{Title: "report"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = s.ListMediaItems(ctx, usecase.ListMediaItemsOption{Type: asset.KindImage, SortBy: "title", SortIn: "ASC", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Festival", items[0].Title)
}

func TestProgram_GalleryOrderAndPalette(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	g := []asset.Reference{ref("programs/gallery/c.jpg"), ref("programs/gallery/a.jpg"), ref("programs/gallery/b.jpg")}
	g[0].Palette = []string{"#112233", "#445566"}

	p, err := s.CreateProgram(ctx, usecase.Program{
		Title: "Youth",
		Showcase: usecase.Showcase{
			Cover:   asset.PrimarySlot{Mode: asset.ModeUpload, File: refp("programs/covers/x.jpg")},
			Gallery: g,
		},
	})
	require.NoError(t, err)

	got, err := s.GetProgramByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"programs/gallery/c.jpg", "programs/gallery/a.jpg", "programs/gallery/b.jpg"}, ids(got.Gallery))
	assert.Equal(t, []string{"#112233", "#445566"}, got.Gallery[0].Palette)
	require.NotNil(t, got.Cover.File)
	assert.Equal(t, asset.ModeUpload, got.Cover.Mode)
	assert.Equal(t, "programs/covers/x.jpg", got.CoverImage().RemoteID)

	got.Gallery = []asset.Reference{g[2]}
	got.Cover = asset.PrimarySlot{}
	updated, err := s.UpdateProgram(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, []string{"programs/gallery/b.jpg"}, ids(updated.Gallery))
	assert.Nil(t, updated.Cover.File)
	assert.Equal(t, "programs/gallery/b.jpg", updated.CoverImage().RemoteID)
}

func TestProject_StatusFilter(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateProject(ctx, usecase.Project{Title: "Bridge", Status: usecase.ProjectStatusActive})
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, usecase.Project{Title: "Park", Status: usecase.ProjectStatusPlanned})
	require.NoError(t, err)

	projects, total, err := s.ListProjects(ctx, usecase.ListShowcasesOption{Status: usecase.ProjectStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, "Bridge", projects[0].Title)
}

func TestTimelineEntry_DeleteRemovesAssets(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	e, err := s.CreateTimelineEntry(ctx, usecase.TimelineEntry{
		Title:      "Founded",
		OccurredOn: time.Date(1999, 5, 1, 0, 0, 0, 0, time.UTC),
		Showcase:   usecase.Showcase{Gallery: []asset.Reference{ref("timeline/gallery/a.jpg")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1999, e.OccurredOn.Year())

	refs, err := s.ReferencedRemoteIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, refs, "timeline/gallery/a.jpg")

	require.NoError(t, s.DeleteTimelineEntry(ctx, e.ID))

	refs, err = s.ReferencedRemoteIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)
	_, err = s.GetTimelineEntryByID(ctx, e.ID)
	assert.True(t, usecase.IsNotFound(err))
}

func TestReferencedRemoteIDs_AcrossEntities(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateMediaItem(ctx, usecase.MediaItem{
		Title:   "Photo",
		Type:    asset.KindImage,
		Primary: asset.PrimarySlot{Mode: asset.ModeUpload, File: refp("media/a.jpg")},
	})
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, usecase.Project{
		Title:    "Bridge",
		Status:   usecase.ProjectStatusPlanned,
		Showcase: usecase.Showcase{Gallery: []asset.Reference{ref("projects/gallery/b.jpg"), ref("media/a.jpg")}},
	})
	require.NoError(t, err)

	refs, err := s.ReferencedRemoteIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Contains(t, refs, "media/a.jpg")
	assert.Contains(t, refs, "projects/gallery/b.jpg")
}

func TestJobs(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	j, err := s.CreateJob(ctx, usecase.Job{Type: "assets:sweep", Status: usecase.JobStatusPending, Payload: []byte(`{"dry_run":true}`)})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, j.ID)

	now := time.Now()
	j.Status = usecase.JobStatusCompleted
	j.Result = []byte(`{"scanned":3}`)
	j.StartedAt = &now
	j.FinishedAt = &now
	updated, err := s.UpdateJob(ctx, j)
	require.NoError(t, err)
	assert.Equal(t, usecase.JobStatusCompleted, updated.Status)
	assert.JSONEq(t, `{"scanned":3}`, string(updated.Result))
	assert.JSONEq(t, `{"dry_run":true}`, string(updated.Payload))
	assert.NotNil(t, updated.FinishedAt)

	jobs, total, err := s.ListJobs(ctx, usecase.ListJobsOption{Statuses: []string{usecase.JobStatusPending}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, jobs)

	_, err = s.GetJobByID(ctx, uuid.New())
	assert.True(t, usecase.IsNotFound(err))
}

func ids(refs []asset.Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.RemoteID)
	}
	return out
}
