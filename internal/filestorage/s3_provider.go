package filestorage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/civicweb/cms/internal/asset"
)

type S3Options struct {
	Bucket     string
	Region     string
	PublicPath string
	// PublicURL overrides the virtual-hosted bucket URL, e.g. a CDN origin.
	PublicURL string
}

type S3Storage struct {
	client     *s3.Client
	bucket     string
	publicPath string
	publicURL  string
}

func NewS3Storage(ctx context.Context, opt S3Options) (*S3Storage, error) {
	if opt.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*config.LoadOptions) error
	if opt.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opt.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	publicURL := opt.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opt.Bucket, cfg.Region)
	}
	return &S3Storage{
		client:     s3.NewFromConfig(cfg),
		bucket:     opt.Bucket,
		publicPath: opt.PublicPath,
		publicURL:  publicURL,
	}, nil
}

func (f *S3Storage) Upload(ctx context.Context, localPath, folderHint string) (asset.Reference, error) {
	key := objectKey(f.publicPath, folderHint, localPath)
	ct, kind := detect(localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return asset.Reference{}, err
	}
	defer file.Close()

	if _, err := f.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &f.bucket,
		Key:         &key,
		Body:        file,
		ContentType: &ct,
	}); err != nil {
		return asset.Reference{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return asset.Reference{
		URL:      joinURL(f.publicURL, key),
		RemoteID: key,
		Kind:     kind,
	}, nil
}

func (f *S3Storage) Delete(ctx context.Context, remoteID string, _ asset.Kind) error {
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &f.bucket,
		Key:    &remoteID,
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return nil
	}
	return err
}

func (f *S3Storage) List(ctx context.Context, prefix string, fn func(asset.RemoteObject) error) error {
	p := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: &f.bucket,
		Prefix: aws.String(prefixPath(f.publicPath, prefix)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			if err := fn(asset.RemoteObject{
				RemoteID:     aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
