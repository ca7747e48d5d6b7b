package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"finetica/internal/dto"
	"finetica/internal/metrics"
	"finetica/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore keeps the uploaded bytes.
type ObjectStore interface {
	Put(ctx context.Context, bucket models.Bucket, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, bucket models.Bucket, key string) (string, error)
}

// LogCreator records a new upload before processing starts.
type LogCreator interface {
	Create(ctx context.Context, entry *models.IngestionLogEntry) error
}

// Enqueuer hands an upload to the ingestion workers.
type Enqueuer interface {
	Enqueue(entry *models.IngestionLogEntry) error
}

type UploadInput struct {
	Bucket      string
	FileName    string
	ContentType string
	Size        int64
	Description string
	Body        io.Reader
}

type UploadService struct {
	objects  ObjectStore
	logs     LogCreator
	queue    Enqueuer
	maxBytes int64
	logger   *zap.Logger
}

func NewUploadService(objects ObjectStore, logs LogCreator, queue Enqueuer, maxBytes int64, logger *zap.Logger) *UploadService {
	return &UploadService{
		objects:  objects,
		logs:     logs,
		queue:    queue,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Upload stores the file, records an unprocessed ingestion log entry and queues it.
// Extraction outcome is not part of the result.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*dto.UploadResponse, error) {
	bucket, ok := models.ParseBucket(in.Bucket)
	if !ok {
		metrics.CaptureUpload(in.Bucket, "rejected")
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBucket, in.Bucket)
	}
	if in.Size <= 0 || in.Body == nil {
		metrics.CaptureUpload(string(bucket), "rejected")
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		metrics.CaptureUpload(string(bucket), "too_large")
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, in.Size, s.maxBytes)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	fileName := filepath.Base(in.FileName)
	key := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))

	if err := s.objects.Put(ctx, bucket, key, in.Body, in.Size, contentType); err != nil {
		metrics.CaptureUpload(string(bucket), "failed")
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	entry := &models.IngestionLogEntry{
		Type:        bucket.DocumentType(),
		Bucket:      bucket,
		Filename:    fileName,
		ObjectKey:   key,
		Description: in.Description,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		metrics.CaptureUpload(string(bucket), "failed")
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	processing := "queued"
	if err := s.queue.Enqueue(entry); err != nil {
		// the entry stays unprocessed and is picked up on the next start
		s.logger.Warn("Upload not queued", zap.Int64("log_id", entry.ID), zap.Error(err))
		processing = "deferred"
	}

	url, err := s.objects.URL(ctx, bucket, key)
	if err != nil {
		s.logger.Warn("Failed to resolve upload URL", zap.String("key", key), zap.Error(err))
	}

	metrics.CaptureUpload(string(bucket), "stored")
	s.logger.Info("File uploaded",
		zap.String("bucket", string(bucket)),
		zap.String("filename", fileName),
		zap.Int64("size", in.Size),
		zap.Int64("log_id", entry.ID),
	)

	return &dto.UploadResponse{
		Success:    true,
		URL:        url,
		FileName:   fileName,
		Bucket:     string(bucket),
		LogID:      entry.ID,
		Processing: processing,
	}, nil
}
