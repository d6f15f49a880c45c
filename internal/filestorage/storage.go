package filestorage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/config"
)

// Storage is a remote store able to list its objects.
type Storage interface {
	asset.Store
	asset.Lister
}

var (
	_ Storage = (*MinIOStorage)(nil)
	_ Storage = (*S3Storage)(nil)
	_ Storage = (*GCSStorage)(nil)
	_ Storage = (*LocalStorage)(nil)
)

// NewFromEnv builds the backend named by STORAGE_BACKEND (minio, s3, gcs or
// local). Local is the default outside production.
func NewFromEnv(ctx context.Context, log *slog.Logger) (Storage, error) {
	backend := strings.ToLower(config.String(config.ENV_KEY_STORAGE_BACKEND, "local"))
	log.Info("storage backend selected", slog.String("backend", backend))

	switch backend {
	case "minio":
		return NewMinIOStorage(MinIOOptions{
			Bucket:     os.Getenv(config.ENV_KEY_MINIO_BUCKET),
			PublicPath: os.Getenv(config.ENV_KEY_MINIO_PUBLIC_PATH),
			Endpoint:   os.Getenv(config.ENV_KEY_MINIO_ENDPOINT),
			AccessKey:  os.Getenv(config.ENV_KEY_MINIO_ACCESS_KEY),
			SecretKey:  os.Getenv(config.ENV_KEY_MINIO_SECRET_KEY),
			Secure:     !config.IsLocal(),
		})
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Bucket:     os.Getenv(config.ENV_KEY_S3_BUCKET),
			Region:     os.Getenv(config.ENV_KEY_S3_REGION),
			PublicPath: os.Getenv(config.ENV_KEY_S3_PUBLIC_PATH),
			PublicURL:  os.Getenv(config.ENV_KEY_S3_PUBLIC_URL),
		})
	case "gcs":
		return NewGCSStorage(ctx, GCSOptions{
			Bucket:          os.Getenv(config.ENV_KEY_GCS_BUCKET),
			CredentialsPath: os.Getenv(config.ENV_KEY_GCS_CREDENTIALS_PATH),
			CDNDomain:       os.Getenv(config.ENV_KEY_CDN_DOMAIN),
		}, log)
	case "local":
		return NewLocalStorage(
			config.String(config.ENV_KEY_LOCAL_STORAGE_PATH, "./data/assets"),
			config.String(config.ENV_KEY_LOCAL_STORAGE_BASE_URL, "http://localhost:8080/assets"),
			log,
		)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// objectKey returns a fresh key of the form <prefix>/<folder>/<uuid><ext>.
func objectKey(prefix, folder, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	return path.Join(prefix, cleanFolder(folder), uuid.NewString()+ext)
}

// prefixPath is the listing prefix for a folder below base, ending in "/"
// unless it is empty.
func prefixPath(base, folder string) string {
	p := path.Join(base, cleanFolder(folder))
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

func cleanFolder(folder string) string {
	folder = path.Clean("/" + strings.ReplaceAll(folder, "\\", "/"))
	return strings.TrimPrefix(folder, "/")
}

// detect returns the content type and asset kind of a local file.
func detect(localPath string) (string, asset.Kind) {
	mt, err := mimetype.DetectFile(localPath)
	if err != nil {
		return "application/octet-stream", asset.KindFromExtension(localPath)
	}
	return mt.String(), asset.KindFromContentType(mt.String())
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
