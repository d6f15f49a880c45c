package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
)

type fakeStorage struct {
	mu      sync.Mutex
	seq     int
	objects map[string]asset.RemoteObject
	deletes []string
	failOn  map[string]error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects: map[string]asset.RemoteObject{},
		failOn:  map[string]error{},
	}
}

func (s *fakeStorage) Upload(_ context.Context, localPath, folder string) (asset.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := filepath.Base(localPath)
	if err, ok := s.failOn[name]; ok {
		return asset.Reference{}, err
	}
	s.seq++
	id := fmt.Sprintf("%s/%d-%s", folder, s.seq, name)
	s.objects[id] = asset.RemoteObject{RemoteID: id, Size: 1, LastModified: time.Now()}
	return asset.Reference{URL: "https://cdn.test/" + id, RemoteID: id, Kind: asset.KindFromExtension(name)}, nil
}

func (s *fakeStorage) Delete(_ context.Context, remoteID string, _ asset.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, remoteID)
	delete(s.objects, remoteID)
	return nil
}

func (s *fakeStorage) List(_ context.Context, prefix string, fn func(asset.RemoteObject) error) error {
	s.mu.Lock()
	objs := make([]asset.RemoteObject, 0, len(s.objects))
	for _, o := range s.objects {
		if strings.HasPrefix(o.RemoteID, prefix) {
			objs = append(objs, o)
		}
	}
	s.mu.Unlock()
	sort.Slice(objs, func(i, j int) bool { return objs[i].RemoteID < objs[j].RemoteID })
	for _, o := range objs {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStorage) put(id string, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = asset.RemoteObject{RemoteID: id, LastModified: time.Now().Add(-age)}
}

func (s *fakeStorage) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func (s *fakeStorage) uploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

var errDB = errors.New("database unavailable")

// fakeRepo keeps entities in memory. failWrites makes every create and
// update fail.
type fakeRepo struct {
	mu         sync.Mutex
	media      map[uuid.UUID]MediaItem
	programs   map[uuid.UUID]Program
	projects   map[uuid.UUID]Project
	timeline   map[uuid.UUID]TimelineEntry
	jobs       map[uuid.UUID]Job
	failWrites bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		media:    map[uuid.UUID]MediaItem{},
		programs: map[uuid.UUID]Program{},
		projects: map[uuid.UUID]Project{},
		timeline: map[uuid.UUID]TimelineEntry{},
		jobs:     map[uuid.UUID]Job{},
	}
}

func notFound(id uuid.UUID) error {
	return ErrNotFound{ID: id, Code: "not_found", Message: id.String() + " not found"}
}

func (r *fakeRepo) Health() map[string]string { return map[string]string{"status": "up"} }
func (r *fakeRepo) Close() error              { return nil }

func (r *fakeRepo) ListMediaItems(context.Context, ListMediaItemsOption) ([]MediaItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MediaItem
	for _, m := range r.media {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetMediaItemByID(_ context.Context, id uuid.UUID) (MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.media[id]
	if !ok {
		return MediaItem{}, notFound(id)
	}
	return m, nil
}

func (r *fakeRepo) CreateMediaItem(_ context.Context, m MediaItem) (MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return MediaItem{}, errDB
	}
	m.ID = uuid.New()
	r.media[m.ID] = m
	return m, nil
}

func (r *fakeRepo) UpdateMediaItem(_ context.Context, m MediaItem) (MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return MediaItem{}, errDB
	}
	r.media[m.ID] = m
	return m, nil
}

func (r *fakeRepo) DeleteMediaItem(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.media, id)
	return nil
}

func (r *fakeRepo) ListPrograms(context.Context, ListShowcasesOption) ([]Program, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) GetProgramByID(_ context.Context, id uuid.UUID) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.programs[id]
	if !ok {
		return Program{}, notFound(id)
	}
	return p, nil
}

func (r *fakeRepo) CreateProgram(_ context.Context, p Program) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return Program{}, errDB
	}
	p.ID = uuid.New()
	r.programs[p.ID] = p
	return p, nil
}

func (r *fakeRepo) UpdateProgram(_ context.Context, p Program) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return Program{}, errDB
	}
	r.programs[p.ID] = p
	return p, nil
}

func (r *fakeRepo) DeleteProgram(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.programs, id)
	return nil
}

func (r *fakeRepo) ListProjects(context.Context, ListShowcasesOption) ([]Project, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) GetProjectByID(_ context.Context, id uuid.UUID) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return Project{}, notFound(id)
	}
	return p, nil
}

func (r *fakeRepo) CreateProject(_ context.Context, p Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return Project{}, errDB
	}
	p.ID = uuid.New()
	r.projects[p.ID] = p
	return p, nil
}

func (r *fakeRepo) UpdateProject(_ context.Context, p Project) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return Project{}, errDB
	}
	r.projects[p.ID] = p
	return p, nil
}

func (r *fakeRepo) DeleteProject(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

func (r *fakeRepo) ListTimelineEntries(context.Context, ListShowcasesOption) ([]TimelineEntry, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) GetTimelineEntryByID(_ context.Context, id uuid.UUID) (TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.timeline[id]
	if !ok {
		return TimelineEntry{}, notFound(id)
	}
	return e, nil
}

func (r *fakeRepo) CreateTimelineEntry(_ context.Context, e TimelineEntry) (TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return TimelineEntry{}, errDB
	}
	e.ID = uuid.New()
	r.timeline[e.ID] = e
	return e, nil
}

func (r *fakeRepo) UpdateTimelineEntry(_ context.Context, e TimelineEntry) (TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return TimelineEntry{}, errDB
	}
	r.timeline[e.ID] = e
	return e, nil
}

func (r *fakeRepo) DeleteTimelineEntry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.timeline, id)
	return nil
}

func (r *fakeRepo) ReferencedRemoteIDs(context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]struct{}{}
	add := func(refs []asset.Reference) {
		for _, ref := range refs {
			out[ref.RemoteID] = struct{}{}
		}
	}
	for _, m := range r.media {
		add(m.Primary.Owned())
	}
	for _, p := range r.programs {
		add(p.Owned())
	}
	for _, p := range r.projects {
		add(p.Owned())
	}
	for _, e := range r.timeline {
		add(e.Owned())
	}
	return out, nil
}

func (r *fakeRepo) ListJobs(context.Context, ListJobsOption) ([]Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Job
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetJobByID(_ context.Context, id uuid.UUID) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, notFound(id)
	}
	return j, nil
}

func (r *fakeRepo) CreateJob(_ context.Context, j Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j.ID = uuid.New()
	j.CreatedAt = time.Now()
	r.jobs[j.ID] = j
	return j, nil
}

func (r *fakeRepo) UpdateJob(_ context.Context, j Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	return j, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *fakeMailer) SendEmail(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (q *fakeQueue) EnqueueJob(_ context.Context, id uuid.UUID, _ string, _ []byte) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, id)
	return nil
}

func staged(name, ct string) *asset.StagedFile {
	return &asset.StagedFile{Path: "/staging/" + name, Filename: name, ContentType: ct, Size: 1}
}

func ptr[T any](v T) *T {
	return &v
}

func remoteIDs(refs []asset.Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.RemoteID)
	}
	return out
}
