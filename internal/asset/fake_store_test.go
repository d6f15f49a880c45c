package asset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	objects  map[string]Reference
	uploads  []string
	deletes  []string
	failOn   map[string]error
	deleteFn func(remoteID string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string]Reference{},
		failOn:  map[string]error{},
	}
}

func (s *fakeStore) Upload(_ context.Context, localPath, folder string) (Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := filepath.Base(localPath)
	if err, ok := s.failOn[name]; ok {
		return Reference{}, err
	}
	s.seq++
	id := fmt.Sprintf("%s/%03d-%s", folder, s.seq, name)
	ref := Reference{
		URL:      "https://cdn.test/" + id,
		RemoteID: id,
		Kind:     KindFromExtension(name),
	}
	s.objects[id] = ref
	s.uploads = append(s.uploads, name)
	return ref, nil
}

func (s *fakeStore) Delete(_ context.Context, remoteID string, _ Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, remoteID)
	if s.deleteFn != nil {
		if err := s.deleteFn(remoteID); err != nil {
			return err
		}
	}
	delete(s.objects, remoteID)
	return nil
}

func (s *fakeStore) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

var errRemoteDown = errors.New("remote store unavailable")

func ref(id string) Reference {
	return Reference{URL: "https://cdn.test/" + id, RemoteID: id, Kind: KindImage}
}

func staged(name string) StagedFile {
	return StagedFile{Path: "/tmp/staging/" + name, Filename: name, ContentType: "image/jpeg", Size: 10}
}

func ids(refs []Reference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.RemoteID)
	}
	return out
}
