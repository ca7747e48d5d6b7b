package dto

import (
	"time"

	"finetica/internal/models"
)

type DocumentResponse struct {
	ID         int64         `json:"id"`
	Type       string        `json:"type"`
	Fields     models.Fields `json:"fields"`
	PDFURL     string        `json:"pdfUrl,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	ApprovedAt *time.Time    `json:"approvedAt"`
	ApprovedBy *string       `json:"approvedBy"`
}

// UpdateDocumentRequest replaces the whole field set of an unapproved document.
type UpdateDocumentRequest struct {
	Fields models.Fields `json:"fields"`
}

// ApproveDocumentRequest approves a document, optionally committing corrected fields
// in the same write.
type ApproveDocumentRequest struct {
	Fields models.Fields `json:"fields,omitempty"`
}

func NewDocumentResponse(doc *models.Document, pdfURL string) DocumentResponse {
	fields := doc.Fields
	if fields == nil {
		fields = models.Fields{}
	}
	return DocumentResponse{
		ID:         doc.ID,
		Type:       string(doc.Type),
		Fields:     fields,
		PDFURL:     pdfURL,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		ApprovedAt: doc.ApprovedAt,
		ApprovedBy: doc.ApprovedBy,
	}
}
