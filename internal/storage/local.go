package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"finetica/internal/models"

	"go.uber.org/zap"
)

// LocalStorage writes objects under dir/<bucket>/<key>. Served by the API under PublicBaseURL.
type LocalStorage struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewLocalStorage(dir, baseURL string, logger *zap.Logger) (*LocalStorage, error) {
	if dir == "" {
		return nil, errors.New("local storage directory is empty")
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) path(bucket models.Bucket, key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.dir, string(bucket), clean), nil
}

func (s *LocalStorage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range models.Buckets {
		if err := os.MkdirAll(filepath.Join(s.dir, string(bucket)), 0o755); err != nil {
			return fmt.Errorf("failed to create bucket directory: %w", err)
		}
	}
	return nil
}

func (s *LocalStorage) Put(ctx context.Context, bucket models.Bucket, key string, r io.Reader, size int64, contentType string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	s.logger.Debug("Object stored",
		zap.String("bucket", string(bucket)),
		zap.String("key", key),
		zap.String("content_type", contentType),
	)
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, bucket models.Bucket, key string) (io.ReadCloser, error) {
	path, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) URL(ctx context.Context, bucket models.Bucket, key string) (string, error) {
	return s.baseURL + "/" + string(bucket) + "/" + url.PathEscape(key), nil
}
