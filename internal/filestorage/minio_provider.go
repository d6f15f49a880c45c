package filestorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/civicweb/cms/internal/asset"
)

type MinIOOptions struct {
	Bucket     string
	PublicPath string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Secure     bool
}

func NewMinIOStorage(opt MinIOOptions) (*MinIOStorage, error) {
	if opt.Bucket == "" || opt.Endpoint == "" {
		return nil, errors.New("minio bucket and endpoint are required")
	}
	m, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIOStorage{
		client:     m,
		bucket:     opt.Bucket,
		publicPath: opt.PublicPath,
	}, nil
}

type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	publicPath string
}

func (f *MinIOStorage) Upload(ctx context.Context, localPath, folderHint string) (asset.Reference, error) {
	key := objectKey(f.publicPath, folderHint, localPath)
	ct, kind := detect(localPath)

	if _, err := f.client.FPutObject(ctx, f.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ct,
	}); err != nil {
		return asset.Reference{}, fmt.Errorf("minio put %s: %w", key, err)
	}
	return asset.Reference{
		URL:      fmt.Sprintf("%s/%s/%s", f.client.EndpointURL(), f.bucket, key),
		RemoteID: key,
		Kind:     kind,
	}, nil
}

// Delete removes the object. MinIO reports success for missing keys.
func (f *MinIOStorage) Delete(ctx context.Context, remoteID string, _ asset.Kind) error {
	err := f.client.RemoveObject(ctx, f.bucket, remoteID, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return err
}

func (f *MinIOStorage) List(ctx context.Context, prefix string, fn func(asset.RemoteObject) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefixPath(f.publicPath, prefix),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return obj.Err
		}
		if err := fn(asset.RemoteObject{
			RemoteID:     obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		}); err != nil {
			return err
		}
	}
	return nil
}
