package models

import "time"

// IngestionLogEntry records one attempt to turn a stored file into a Document.
// IsProcessed=false implies ProcessedAt=nil.
type IngestionLogEntry struct {
	ID          int64        `db:"id"`
	Type        DocumentType `db:"family"`
	Bucket      Bucket       `db:"bucket"`
	Filename    string       `db:"filename"`
	ObjectKey   string       `db:"object_key"`
	Description string       `db:"description"`
	Message     string       `db:"message"`
	IsValid     bool         `db:"is_valid"`
	IsProcessed bool         `db:"is_processed"`
	ProcessedAt *time.Time   `db:"processed_at"`
	DocumentID  *int64       `db:"document_id"`
	CreatedAt   time.Time    `db:"created_at"`
}
