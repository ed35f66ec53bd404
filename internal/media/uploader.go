package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	appconfig "go-user-auth/internal/config"
)

// Asset describes a file published by the media service.
type Asset struct {
	URL         string
	Key         string
	ContentType string
	Size        int64
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader publishes local files to an S3-compatible bucket.
type S3Uploader struct {
	client        putObjectAPI
	bucket        string
	keyPrefix     string
	publicBaseURL string
	now           func() time.Time
}

func NewS3Uploader(ctx context.Context, cfg appconfig.MediaConfig) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load media storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Uploader(client, cfg.Bucket, cfg.KeyPrefix, cfg.PublicBaseURL), nil
}

func newS3Uploader(client putObjectAPI, bucket string, keyPrefix string, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		keyPrefix:     strings.Trim(keyPrefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Upload publishes the file at localPath. When the upload fails the local
// file is removed before returning; on success the caller still owns it.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (asset Asset, err error) {
	if strings.TrimSpace(localPath) == "" {
		return Asset{}, errors.New("local path is required")
	}

	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("failed to remove local file after upload failure", "path", localPath, "error", rmErr)
		}
	}()

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Asset{}, fmt.Errorf("stat local file: %w", err)
	}

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return Asset{}, fmt.Errorf("detect content type: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return Asset{}, fmt.Errorf("rewind local file: %w", err)
	}

	key := u.objectKey(detected.Extension())
	contentType := detected.String()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("put object %q: %w", key, err)
	}

	asset = Asset{
		URL:         u.publicBaseURL + "/" + key,
		Key:         key,
		ContentType: contentType,
		Size:        info.Size(),
	}
	slog.Info("file uploaded to media storage", "key", key, "size", asset.Size, "content_type", contentType)

	return asset, nil
}

func (u *S3Uploader) objectKey(ext string) string {
	d := u.now().UTC()
	name := fmt.Sprintf("%04d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
	if u.keyPrefix == "" {
		return name
	}
	return path.Join(u.keyPrefix, name)
}
