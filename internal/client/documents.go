package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"finetica/internal/dto"
	"finetica/internal/models"

	"go.uber.org/zap"
)

// Document is a record as the review core sees it. Fields always holds every schema key
// of Type.
type Document struct {
	Type       models.DocumentType
	ID         int64
	Fields     models.Fields
	PDFURL     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
	ApprovedBy *string
}

func (d *Document) IsApproved() bool {
	return d.ApprovedAt != nil
}

func documentFromResponse(resp dto.DocumentResponse) *Document {
	docType := models.DocumentType(resp.Type)
	return &Document{
		Type:       docType,
		ID:         resp.ID,
		Fields:     models.Conform(docType, resp.Fields),
		PDFURL:     resp.PDFURL,
		CreatedAt:  resp.CreatedAt,
		UpdatedAt:  resp.UpdatedAt,
		ApprovedAt: resp.ApprovedAt,
		ApprovedBy: resp.ApprovedBy,
	}
}

func documentPath(docType models.DocumentType, id int64) string {
	return fmt.Sprintf("/%s/%d", docType.Segment(), id)
}

func checkType(docType models.DocumentType) error {
	if !docType.Valid() {
		return &ValidationError{Message: fmt.Sprintf("unknown document type %q", docType)}
	}
	return nil
}

// LoadDocument fetches one record. The caller supplies the type; it is never inferred from
// the payload.
func (c *Client) LoadDocument(ctx context.Context, docType models.DocumentType, id int64) (*Document, error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var resp dto.DocumentResponse
	if err := c.doJSON(ctx, http.MethodGet, documentPath(docType, id), nil, nil, &resp); err != nil {
		return nil, err
	}
	resp.Type = string(docType)
	return documentFromResponse(resp), nil
}

// UpdateDocument replaces the whole field set of an unapproved record.
func (c *Client) UpdateDocument(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*Document, error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var resp dto.DocumentResponse
	body := dto.UpdateDocumentRequest{Fields: fields.Clone()}
	if err := c.doJSON(ctx, http.MethodPut, documentPath(docType, id), nil, body, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("Document saved", zap.String("family", string(docType)), zap.Int64("document_id", id))
	return documentFromResponse(resp), nil
}

// Approve commits the approval together with overrides, which may be nil. A document that
// was already approved yields a *ConflictError carrying the current record.
func (c *Client) Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields) (*Document, error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var body dto.ApproveDocumentRequest
	if len(overrides) > 0 {
		body.Fields = overrides.Clone()
	}

	var resp dto.DocumentResponse
	if err := c.doJSON(ctx, http.MethodPut, documentPath(docType, id)+"/approve", nil, body, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("Document approved", zap.String("family", string(docType)), zap.Int64("document_id", id))
	return documentFromResponse(resp), nil
}

func (c *Client) ListDocuments(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[Document], error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var resp dto.Page[dto.DocumentResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/"+docType.Segment(), listQuery(params), nil, &resp); err != nil {
		return nil, err
	}

	page := &dto.Page[Document]{
		Items:   make([]Document, 0, len(resp.Items)),
		Total:   resp.Total,
		Page:    resp.Page,
		PerPage: resp.PerPage,
	}
	for _, item := range resp.Items {
		item.Type = string(docType)
		page.Items = append(page.Items, *documentFromResponse(item))
	}
	return page, nil
}

// ListInvalid reads one page of the invalid-document registry of a family.
func (c *Client) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var resp dto.Page[dto.IngestionLogResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/"+docType.Segment()+"/logs/invalid", listQuery(params), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetInvalid(ctx context.Context, docType models.DocumentType, id int64) (*dto.IngestionLogResponse, error) {
	if err := checkType(docType); err != nil {
		return nil, err
	}

	var resp dto.IngestionLogResponse
	path := fmt.Sprintf("/%s/logs/%d", docType.Segment(), id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func listQuery(params dto.ListParams) url.Values {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(params.PerPage))
	}
	if params.SortField != "" {
		q.Set("sortField", params.SortField)
	}
	if params.SortOrder != "" {
		q.Set("sortOrder", string(params.SortOrder))
	}
	if params.Approved != nil {
		q.Set("approved", strconv.FormatBool(*params.Approved))
	}
	if params.From != nil {
		q.Set("from", params.From.Format(time.RFC3339))
	}
	if params.To != nil {
		q.Set("to", params.To.Format(time.RFC3339))
	}
	if params.Query != "" {
		q.Set("q", params.Query)
	}
	return q
}
