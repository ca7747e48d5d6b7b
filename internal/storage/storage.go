package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"finetica/internal/models"
	"finetica/pkg/config"

	"go.uber.org/zap"
)

var ErrObjectNotFound = errors.New("object not found")

// Storage keeps uploaded PDFs, one bucket per document family.
type Storage interface {
	EnsureBuckets(ctx context.Context) error
	Put(ctx context.Context, bucket models.Bucket, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket models.Bucket, key string) (io.ReadCloser, error)
	URL(ctx context.Context, bucket models.Bucket, key string) (string, error)
}

// New picks the backend configured by STORAGE_DRIVER.
func New(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case "minio":
		s, err := NewMinioStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "local":
		s, err := NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
