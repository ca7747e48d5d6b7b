package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finetica/internal/dto"
	"finetica/internal/models"

	"go.uber.org/zap"
)

func TestUpload(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		body    string
		full    bool
		wantErr error
		wantLog models.DocumentType
		wantRun string
	}{
		{name: "kif upload is queued", bucket: "kif", body: "%PDF-1.7", wantLog: models.DocumentTypeKIF, wantRun: "queued"},
		{name: "bank statements alias", bucket: "bank-transactions", body: "%PDF-1.7", wantLog: models.DocumentTypeBankTransactions, wantRun: "queued"},
		{name: "full queue defers processing", bucket: "contracts", body: "%PDF-1.7", full: true, wantLog: models.DocumentTypeContract, wantRun: "deferred"},
		{name: "unknown bucket", bucket: "invoices", body: "%PDF", wantErr: ErrUnsupportedBucket},
		{name: "empty file", bucket: "kuf", body: "", wantErr: ErrEmptyFile},
		{name: "too large", bucket: "kuf", body: strings.Repeat("x", 64), wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := &memoryObjects{}
			logs := &memoryLogs{}
			queue := &recordingQueue{full: tt.full}
			svc := NewUploadService(objects, logs, queue, 32, zap.NewNop())

			resp, err := svc.Upload(context.Background(), UploadInput{
				Bucket:      tt.bucket,
				FileName:    "Račun 17.PDF",
				Size:        int64(len(tt.body)),
				Description: "march",
				Body:        strings.NewReader(tt.body),
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(logs.entries) != 0 || len(objects.objects) != 0 {
					t.Error("rejected upload must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if !resp.Success || resp.FileName != "Račun 17.PDF" || resp.Processing != tt.wantRun {
				t.Errorf("unexpected response %+v", resp)
			}
			if len(logs.entries) != 1 {
				t.Fatalf("expected one log entry, got %d", len(logs.entries))
			}
			entry := logs.entries[0]
			if entry.Type != tt.wantLog || entry.IsProcessed || entry.ProcessedAt != nil {
				t.Errorf("unexpected log entry %+v", entry)
			}
			if !strings.HasSuffix(entry.ObjectKey, ".pdf") {
				t.Errorf("object key should keep the extension: %s", entry.ObjectKey)
			}
			if resp.LogID != entry.ID {
				t.Errorf("logId = %d, want %d", resp.LogID, entry.ID)
			}
			if !tt.full && len(queue.queued) != 1 {
				t.Error("entry was not queued")
			}
		})
	}
}

func TestUploadStorageFailure(t *testing.T) {
	objects := &memoryObjects{err: errors.New("minio down")}
	logs := &memoryLogs{}
	svc := NewUploadService(objects, logs, &recordingQueue{}, 0, zap.NewNop())

	_, err := svc.Upload(context.Background(), UploadInput{Bucket: "kif", FileName: "a.pdf", Size: 4, Body: strings.NewReader("%PDF")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(logs.entries) != 0 {
		t.Error("no log entry may be written when storage fails")
	}
}

func TestInvalidLogListing(t *testing.T) {
	logs := &memoryLogs{}
	ctx := context.Background()
	_ = logs.Create(ctx, &models.IngestionLogEntry{Type: models.DocumentTypeKIF, Filename: "broken.pdf", Message: "not a readable PDF", IsProcessed: true})
	_ = logs.Create(ctx, &models.IngestionLogEntry{Type: models.DocumentTypeKIF, Filename: "ok.pdf", IsValid: true, IsProcessed: true})
	_ = logs.Create(ctx, &models.IngestionLogEntry{Type: models.DocumentTypeKUF, Filename: "other.pdf", Message: "bad"})

	svc := NewIngestionLogService(logs, zap.NewNop())

	page, err := svc.ListInvalid(ctx, models.DocumentTypeKIF, dto.ListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Filename != "broken.pdf" || page.Items[0].IsValid {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := svc.ListInvalid(ctx, models.DocumentTypePartner, dto.ListParams{}); !errors.Is(err, ErrNoIngestion) {
		t.Errorf("expected ErrNoIngestion, got %v", err)
	}
	if _, err := svc.Get(ctx, models.DocumentTypeKIF, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("entry of another family must not be found, got %v", err)
	}
	entry, err := svc.Get(ctx, models.DocumentTypeKUF, 3)
	if err != nil || entry.Message != "bad" {
		t.Errorf("unexpected entry %+v, err %v", entry, err)
	}
}

func TestInvalidLogSortFields(t *testing.T) {
	svc := NewIngestionLogService(&memoryLogs{}, zap.NewNop())

	tests := []struct {
		field   string
		wantErr bool
	}{
		{field: ""},
		{field: "filename"},
		{field: "message"},
		{field: "created_at"},
		{field: "processed_at"},
		{field: "is_processed"},
		{field: "is_valid"},
		{field: "object_key", wantErr: true},
		{field: "net_total", wantErr: true},
	}
	for _, tt := range tests {
		t.Run("sort by "+tt.field, func(t *testing.T) {
			_, err := svc.ListInvalid(context.Background(), models.DocumentTypeKUF, dto.ListParams{SortField: tt.field})
			if tt.wantErr != errors.Is(err, ErrInvalidSortField) {
				t.Errorf("ListInvalid(sortField=%q) error = %v", tt.field, err)
			}
		})
	}
}
