package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/civicweb/cms/internal/asset"
)

// LocalStorage keeps objects under a directory on disk and serves them
// below baseURL. Used for development and tests.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      *slog.Logger
}

func NewLocalStorage(basePath, baseURL string, log *slog.Logger) (*LocalStorage, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("local storage path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSpace(baseURL),
		log:      log.With(slog.String("component", "local-storage")),
	}, nil
}

// Root is the directory objects are written to.
func (l *LocalStorage) Root() string {
	return l.basePath
}

func (l *LocalStorage) Upload(ctx context.Context, localPath, folderHint string) (asset.Reference, error) {
	if err := ctx.Err(); err != nil {
		return asset.Reference{}, err
	}
	key := objectKey("", folderHint, localPath)
	full := l.fullPath(key)
	_, kind := detect(localPath)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return asset.Reference{}, fmt.Errorf("create directory: %w", err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return asset.Reference{}, err
	}
	defer src.Close()

	dst, err := os.Create(full)
	if err != nil {
		return asset.Reference{}, fmt.Errorf("create object: %w", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return asset.Reference{}, fmt.Errorf("write object: %w", err)
	}

	l.log.DebugContext(ctx, "object stored", slog.String("key", key), slog.Int64("bytes", n))
	return asset.Reference{
		URL:      joinURL(l.baseURL, key),
		RemoteID: key,
		Kind:     kind,
	}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, remoteID string, _ asset.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(l.fullPath(remoteID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *LocalStorage) List(ctx context.Context, prefix string, fn func(asset.RemoteObject) error) error {
	want := prefixPath("", prefix)
	return filepath.WalkDir(l.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, want) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(asset.RemoteObject{
			RemoteID:     key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
	})
}

// fullPath maps a key into basePath. Keys cannot escape the root.
func (l *LocalStorage) fullPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(cleanFolder(key)))
}
