package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/civicweb/cms/internal/asset"
)

type GCSOptions struct {
	Bucket          string
	CredentialsPath string
	// CDNDomain, when set, serves public URLs from https://<CDNDomain>/<key>.
	CDNDomain string
}

type GCSStorage struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

func NewGCSStorage(ctx context.Context, opt GCSOptions, log *slog.Logger) (*GCSStorage, error) {
	if opt.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if opt.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(opt.CredentialsPath))
	} else {
		log.Warn("gcs credentials path not set, relying on application default credentials")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStorage{
		client:    client,
		bucket:    opt.Bucket,
		cdnDomain: opt.CDNDomain,
	}, nil
}

func (g *GCSStorage) Upload(ctx context.Context, localPath, folderHint string) (asset.Reference, error) {
	key := objectKey("", folderHint, localPath)
	ct, kind := detect(localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return asset.Reference{}, err
	}
	defer file.Close()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ct
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return asset.Reference{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return asset.Reference{}, fmt.Errorf("gcs close %s: %w", key, err)
	}
	return asset.Reference{
		URL:      g.publicURL(key),
		RemoteID: key,
		Kind:     kind,
	}, nil
}

func (g *GCSStorage) Delete(ctx context.Context, remoteID string, _ asset.Kind) error {
	err := g.client.Bucket(g.bucket).Object(remoteID).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSStorage) List(ctx context.Context, prefix string, fn func(asset.RemoteObject) error) error {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefixPath("", prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gcs list: %w", err)
		}
		if err := fn(asset.RemoteObject{
			RemoteID:     attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		}); err != nil {
			return err
		}
	}
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func (g *GCSStorage) publicURL(key string) string {
	if g.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", g.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}
