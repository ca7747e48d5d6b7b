package service

import (
	"context"
	"errors"
	"fmt"

	"finetica/internal/dto"
	"finetica/internal/lock"
	"finetica/internal/metrics"
	"finetica/internal/models"
	"finetica/internal/repository"

	"go.uber.org/zap"
)

// DocumentStore is the persistence DocumentService needs.
type DocumentStore interface {
	GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.Document, error)
	List(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.Document, int64, error)
	UpdateFields(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*models.Document, error)
	Approve(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields, actor string) (*models.Document, error)
}

// URLResolver turns a stored object into a link the browser can open.
type URLResolver interface {
	URL(ctx context.Context, bucket models.Bucket, key string) (string, error)
}

var builtinSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"approved_at": true,
}

type DocumentService struct {
	docs   DocumentStore
	urls   URLResolver
	locker lock.Locker
	logger *zap.Logger
}

func NewDocumentService(docs DocumentStore, urls URLResolver, locker lock.Locker, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		docs:   docs,
		urls:   urls,
		locker: locker,
		logger: logger,
	}
}

func (s *DocumentService) List(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.DocumentResponse], error) {
	params = params.Normalize()
	if params.SortField != "" && !builtinSortFields[params.SortField] && !models.IsSortableKey(docType, params.SortField) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSortField, params.SortField)
	}

	docs, total, err := s.docs.List(ctx, docType, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, dto.NewDocumentResponse(doc, ""))
	}

	return &dto.Page[dto.DocumentResponse]{
		Items:   items,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.DocumentResponse, error) {
	doc, err := s.get(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, doc)
	return &resp, nil
}

// Update replaces the whole field set of an unapproved document.
func (s *DocumentService) Update(ctx context.Context, docType models.DocumentType, id int64, raw models.Fields) (*dto.DocumentResponse, error) {
	fields, err := models.NormalizeFields(docType, raw)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.get(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	if current.IsApproved() {
		return nil, &AlreadyApprovedError{Document: current}
	}

	doc, err := s.docs.UpdateFields(ctx, docType, id, fields)
	if err != nil {
		return nil, s.mapWriteError(ctx, docType, id, err)
	}

	s.logger.Info("Document fields saved",
		zap.String("family", string(docType)),
		zap.Int64("document_id", id),
	)

	resp := s.response(ctx, doc)
	return &resp, nil
}

// Approve stamps the document as approved by actor. Overrides are merged onto the
// stored fields and written in the same statement as the approval.
func (s *DocumentService) Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields, actor string) (*dto.DocumentResponse, error) {
	if actor == "" {
		return nil, ErrMissingActor
	}

	release, err := s.acquire(ctx, docType, id)
	if err != nil {
		metrics.CaptureApproval(string(docType), "locked")
		return nil, err
	}
	defer release()

	current, err := s.get(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	if current.IsApproved() {
		metrics.CaptureApproval(string(docType), "already_approved")
		return nil, &AlreadyApprovedError{Document: current}
	}

	merged := current.Fields.Clone()
	if merged == nil {
		merged = models.Fields{}
	}
	for key, value := range overrides {
		merged[key] = value
	}

	fields, err := models.NormalizeFields(docType, merged)
	if err != nil {
		metrics.CaptureApproval(string(docType), "invalid")
		return nil, err
	}
	if missing := models.MissingRequired(docType, fields); len(missing) > 0 {
		verr := &models.ValidationError{}
		for _, key := range missing {
			verr.Fields = append(verr.Fields, models.FieldError{Field: key, Message: "required"})
		}
		metrics.CaptureApproval(string(docType), "invalid")
		return nil, verr
	}

	doc, err := s.docs.Approve(ctx, docType, id, fields, actor)
	if err != nil {
		err = s.mapWriteError(ctx, docType, id, err)
		if errors.Is(err, ErrAlreadyApproved) {
			metrics.CaptureApproval(string(docType), "already_approved")
		}
		return nil, err
	}

	metrics.CaptureApproval(string(docType), "approved")
	s.logger.Info("Document approved",
		zap.String("family", string(docType)),
		zap.Int64("document_id", id),
		zap.String("approved_by", actor),
		zap.Int("overrides", len(overrides)),
	)

	resp := s.response(ctx, doc)
	return &resp, nil
}

func (s *DocumentService) acquire(ctx context.Context, docType models.DocumentType, id int64) (func(), error) {
	release, err := s.locker.Acquire(ctx, lock.Key(string(docType), id))
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrMutationInProgress
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (s *DocumentService) get(ctx context.Context, docType models.DocumentType, id int64) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docType, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) mapWriteError(ctx context.Context, docType models.DocumentType, id int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrAlreadyApproved):
		current, getErr := s.get(ctx, docType, id)
		if getErr != nil {
			return getErr
		}
		return &AlreadyApprovedError{Document: current}
	}
	return fmt.Errorf("failed to write document: %w", err)
}

func (s *DocumentService) response(ctx context.Context, doc *models.Document) dto.DocumentResponse {
	var pdfURL string
	if bucket, ok := models.ParseBucket(doc.Bucket); ok && doc.ObjectKey != "" && s.urls != nil {
		u, err := s.urls.URL(ctx, bucket, doc.ObjectKey)
		if err != nil {
			s.logger.Warn("Failed to resolve PDF URL", zap.Int64("document_id", doc.ID), zap.Error(err))
		} else {
			pdfURL = u
		}
	}
	return dto.NewDocumentResponse(doc, pdfURL)
}
