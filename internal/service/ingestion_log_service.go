package service

import (
	"context"
	"errors"
	"fmt"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/repository"

	"go.uber.org/zap"
)

// LogReader is the read side of the ingestion log.
type LogReader interface {
	GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.IngestionLogEntry, error)
	ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.IngestionLogEntry, int64, error)
}

// IngestionLogService serves the invalid-document registry. It never mutates entries.
type IngestionLogService struct {
	logs   LogReader
	logger *zap.Logger
}

func NewIngestionLogService(logs LogReader, logger *zap.Logger) *IngestionLogService {
	return &IngestionLogService{
		logs:   logs,
		logger: logger,
	}
}

func (s *IngestionLogService) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error) {
	if _, ok := docType.Bucket(); !ok {
		return nil, ErrNoIngestion
	}
	params = params.Normalize()
	if params.SortField != "" && !repository.InvalidLogSortable(params.SortField) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSortField, params.SortField)
	}

	entries, total, err := s.logs.ListInvalid(ctx, docType, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list invalid uploads: %w", err)
	}

	items := make([]dto.IngestionLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewIngestionLogResponse(entry))
	}

	return &dto.Page[dto.IngestionLogResponse]{
		Items:   items,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

func (s *IngestionLogService) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.IngestionLogResponse, error) {
	if _, ok := docType.Bucket(); !ok {
		return nil, ErrNoIngestion
	}
	entry, err := s.logs.GetByID(ctx, docType, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion log: %w", err)
	}
	resp := dto.NewIngestionLogResponse(entry)
	return &resp, nil
}
