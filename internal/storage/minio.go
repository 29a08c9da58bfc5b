package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements ObjectStore on an S3-compatible bucket.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, ttl: cfg.urlTTL()}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// already exists is fine
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// ResumableUpload hands the stream to PutObject, which switches to multipart
// for large objects. The progress hook is fed every chunk read from r.
func (s *MinIOStorage) ResumableUpload(ctx context.Context, path string, r io.Reader, size int64, contentType string, progress ProgressFunc) (Handle, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if progress != nil {
		opts.Progress = &progressHook{total: size, fn: progress}
	}
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, opts)
	if err != nil {
		return Handle{}, fmt.Errorf("minio put %s: %w", path, err)
	}
	return Handle{Path: path, ETag: info.ETag, Size: info.Size}, nil
}

// DownloadURL returns the object's path-style URL on the endpoint. The bucket
// is private, so clients fetch through PresignedURL.
func (s *MinIOStorage) DownloadURL(ctx context.Context, h Handle) (string, error) {
	if h.Path == "" {
		return "", fmt.Errorf("minio url: empty object path")
	}
	u := *s.client.EndpointURL()
	u.Path = "/" + s.bucket + "/" + h.Path
	return u.String(), nil
}

// PresignedURL signs a GET for path valid for the configured TTL.
func (s *MinIOStorage) PresignedURL(ctx context.Context, path string) (string, time.Duration, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, path, s.ttl, make(url.Values))
	if err != nil {
		return "", 0, fmt.Errorf("minio presign %s: %w", path, err)
	}
	return presigned.String(), s.ttl, nil
}

func (s *MinIOStorage) DeleteObject(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove %s: %w", path, err)
	}
	return nil
}

// Ping reports whether the bucket is reachable.
func (s *MinIOStorage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucket)
	}
	return nil
}

// progressHook is handed to minio as PutObjectOptions.Progress; minio calls
// Read with each chunk it has consumed from the source.
type progressHook struct {
	total int64
	sent  int64
	fn    ProgressFunc
}

func (p *progressHook) Read(b []byte) (int, error) {
	p.sent += int64(len(b))
	p.fn(p.sent, p.total)
	return len(b), nil
}
