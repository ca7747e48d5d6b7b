package models

import (
	"time"
)

// Document is the structured, human-correctable record extracted from an upload.
// ApprovedAt and ApprovedBy are either both nil or both set.
type Document struct {
	ID             int64        `db:"id"`
	Type           DocumentType `db:"family"`
	Fields         Fields       `db:"fields"`
	Bucket         string       `db:"bucket"`
	ObjectKey      string       `db:"object_key"`
	IngestionLogID *int64       `db:"ingestion_log_id"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
	ApprovedAt     *time.Time   `db:"approved_at"`
	ApprovedBy     *string      `db:"approved_by"`
}

func (d *Document) IsApproved() bool {
	return d.ApprovedAt != nil
}
