package asset

import (
	"context"
	"time"
)

// Store is the remote object store holding uploaded binaries.
type Store interface {
	// Upload stores the local file under folderHint and returns its
	// reference. Every call produces a fresh RemoteID, so retries never
	// collide.
	Upload(ctx context.Context, localPath, folderHint string) (Reference, error)
	// Delete removes an object. Deleting a missing object succeeds.
	Delete(ctx context.Context, remoteID string, kind Kind) error
}

// RemoteObject is one entry of a store listing.
type RemoteObject struct {
	RemoteID     string
	Size         int64
	LastModified time.Time
}

// Lister is implemented by stores able to enumerate their objects.
type Lister interface {
	List(ctx context.Context, prefix string, fn func(RemoteObject) error) error
}

// StagedFile is an incoming file part materialized on local disk.
type StagedFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
	Palette     []string
}
