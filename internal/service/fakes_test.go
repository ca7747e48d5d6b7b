package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/repository"
)

type memoryDocuments struct {
	mu            sync.Mutex
	docs          map[int64]*models.Document
	updateWrites  int
	approveWrites int
	now           time.Time
}

func newMemoryDocuments(docs ...*models.Document) *memoryDocuments {
	m := &memoryDocuments{
		docs: map[int64]*models.Document{},
		now:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	c.Fields = d.Fields.Clone()
	return &c
}

func (m *memoryDocuments) GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Type != docType {
		return nil, repository.ErrNotFound
	}
	return copyDocument(d), nil
}

func (m *memoryDocuments) List(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.Document, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if d.Type == docType {
			out = append(out, copyDocument(d))
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryDocuments) UpdateFields(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Type != docType {
		return nil, repository.ErrNotFound
	}
	if d.IsApproved() {
		return nil, repository.ErrAlreadyApproved
	}
	m.updateWrites++
	d.Fields = fields.Clone()
	d.UpdatedAt = m.now
	return copyDocument(d), nil
}

func (m *memoryDocuments) Approve(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields, actor string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Type != docType {
		return nil, repository.ErrNotFound
	}
	if d.IsApproved() {
		return nil, repository.ErrAlreadyApproved
	}
	m.approveWrites++
	m.now = m.now.Add(time.Minute)
	approvedAt := m.now
	d.Fields = fields.Clone()
	d.ApprovedAt = &approvedAt
	d.ApprovedBy = &actor
	d.UpdatedAt = approvedAt
	return copyDocument(d), nil
}

type staticURLs struct{}

func (staticURLs) URL(ctx context.Context, bucket models.Bucket, key string) (string, error) {
	return "https://files.test/" + string(bucket) + "/" + key, nil
}

type memoryObjects struct {
	objects map[string][]byte
	err     error
}

func (o *memoryObjects) Put(ctx context.Context, bucket models.Bucket, key string, r io.Reader, size int64, contentType string) error {
	if o.err != nil {
		return o.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if o.objects == nil {
		o.objects = map[string][]byte{}
	}
	o.objects[string(bucket)+"/"+key] = buf.Bytes()
	return nil
}

func (o *memoryObjects) URL(ctx context.Context, bucket models.Bucket, key string) (string, error) {
	return staticURLs{}.URL(ctx, bucket, key)
}

type memoryLogs struct {
	entries []*models.IngestionLogEntry
}

func (l *memoryLogs) Create(ctx context.Context, entry *models.IngestionLogEntry) error {
	entry.ID = int64(len(l.entries) + 1)
	entry.CreatedAt = time.Now()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryLogs) GetByID(ctx context.Context, docType models.DocumentType, id int64) (*models.IngestionLogEntry, error) {
	for _, e := range l.entries {
		if e.ID == id && e.Type == docType {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (l *memoryLogs) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) ([]*models.IngestionLogEntry, int64, error) {
	var out []*models.IngestionLogEntry
	for _, e := range l.entries {
		if e.Type == docType && e.Message != "" && !(e.IsValid && e.IsProcessed) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type recordingQueue struct {
	queued []*models.IngestionLogEntry
	full   bool
}

var errQueueFull = errors.New("queue full")

func (q *recordingQueue) Enqueue(entry *models.IngestionLogEntry) error {
	if q.full {
		return errQueueFull
	}
	q.queued = append(q.queued, entry)
	return nil
}
