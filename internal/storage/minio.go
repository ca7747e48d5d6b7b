package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"finetica/internal/models"
	"finetica/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinioStorage struct {
	client *minio.Client
	prefix string
	expiry time.Duration
	logger *zap.Logger
}

func NewMinioStorage(cfg *config.StorageConfig, logger *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	expiry := cfg.PresignedExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &MinioStorage{
		client: client,
		prefix: cfg.BucketPrefix,
		expiry: expiry,
		logger: logger,
	}, nil
}

// BucketName maps a family bucket onto the physical MinIO bucket.
func (s *MinioStorage) BucketName(bucket models.Bucket) string {
	return s.prefix + string(bucket)
}

func (s *MinioStorage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range models.Buckets {
		name := s.BucketName(bucket)
		exists, err := s.client.BucketExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		s.logger.Info("Bucket created", zap.String("bucket", name))
	}
	return nil
}

func (s *MinioStorage) Put(ctx context.Context, bucket models.Bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.BucketName(bucket), key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

func (s *MinioStorage) Get(ctx context.Context, bucket models.Bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.BucketName(bucket), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts reading.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

func (s *MinioStorage) URL(ctx context.Context, bucket models.Bucket, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.BucketName(bucket), key, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}
