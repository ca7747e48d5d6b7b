package dto

import (
	"time"

	"finetica/internal/models"
)

type IngestionLogResponse struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Bucket      string     `json:"bucket"`
	Filename    string     `json:"filename"`
	Description string     `json:"description,omitempty"`
	Message     string     `json:"message"`
	IsValid     bool       `json:"isValid"`
	IsProcessed bool       `json:"isProcessed"`
	ProcessedAt *time.Time `json:"processedAt"`
	DocumentID  *int64     `json:"documentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewIngestionLogResponse(entry *models.IngestionLogEntry) IngestionLogResponse {
	return IngestionLogResponse{
		ID:          entry.ID,
		Type:        string(entry.Type),
		Bucket:      string(entry.Bucket),
		Filename:    entry.Filename,
		Description: entry.Description,
		Message:     entry.Message,
		IsValid:     entry.IsValid,
		IsProcessed: entry.IsProcessed,
		ProcessedAt: entry.ProcessedAt,
		DocumentID:  entry.DocumentID,
		CreatedAt:   entry.CreatedAt,
	}
}

// UploadResponse is returned by POST /files/upload once the file is stored.
// Extraction runs afterwards; its outcome is recorded in the ingestion log.
type UploadResponse struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	Bucket     string `json:"bucketName"`
	LogID      int64  `json:"logId"`
	Processing string `json:"processing"`
}
