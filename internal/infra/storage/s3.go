package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
)

// S3Storage reads uploaded photos from an S3 compatible bucket (R2, MinIO, S3).
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// S3Options configures NewS3Storage.
type S3Options struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// NewS3Storage constructs the storage adapter. A scheme on the endpoint wins
// over opts.UseSSL.
func NewS3Storage(opts S3Options, logger *slog.Logger) (*S3Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	secure := opts.UseSSL
	lower := strings.ToLower(strings.TrimSpace(opts.Endpoint))
	switch {
	case strings.HasPrefix(lower, "https://"):
		secure = true
	case strings.HasPrefix(lower, "http://"):
		secure = false
	}
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:       secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Storage{client: client, bucket: opts.Bucket, logger: logger.With("component", "storage.s3")}, nil
}

// Get opens the object for reading. Missing keys yield coach.ErrObjectNotFound.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, statErr := obj.Stat(); statErr != nil {
		_ = obj.Close()
		return nil, translateError(statErr)
	}
	return obj, nil
}

// Delete removes an object. Missing keys yield coach.ErrObjectNotFound.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return translateError(err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return translateError(err)
	}
	s.logger.Debug("object removed", "key", key)
	return nil
}

func translateError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %v", coach.ErrObjectNotFound, err)
	default:
		return err
	}
}

var _ coach.ObjectStorage = (*S3Storage)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
