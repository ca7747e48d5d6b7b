package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"finetica/internal/metrics"
	"finetica/internal/models"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("ingestion queue is full")
	ErrStopped   = errors.New("ingestion processor is stopped")
)

const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomePending = "pending"
	OutcomeFailed  = "failed"
)

// LogStore is the persistence the processor writes its outcomes to.
type LogStore interface {
	MarkInvalid(ctx context.Context, id int64, message string) error
	MarkPending(ctx context.Context, id int64, message string) error
	CompleteValid(ctx context.Context, entry *models.IngestionLogEntry, fields models.Fields) (*models.Document, error)
	ListQueued(ctx context.Context) ([]*models.IngestionLogEntry, error)
}

// ObjectSource reads stored uploads.
type ObjectSource interface {
	Get(ctx context.Context, bucket models.Bucket, key string) (io.ReadCloser, error)
}

type Options struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds one file, extraction included.
	JobTimeout time.Duration
	// RequeueInterval is how often uploads deferred by a full queue are picked up again.
	RequeueInterval time.Duration
}

// Processor turns stored uploads into documents on a bounded pool of workers.
type Processor struct {
	logs      LogStore
	objects   ObjectSource
	pdf       PDFReader
	extractor FieldExtractor
	opts      Options
	logger    *zap.Logger

	queue   chan *models.IngestionLogEntry
	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup

	// ids queued or running, so a requeue never doubles a job
	activeMu sync.Mutex
	active   map[int64]struct{}
}

func NewProcessor(logs LogStore, objects ObjectSource, pdf PDFReader, extractor FieldExtractor, opts Options, logger *zap.Logger) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	if opts.RequeueInterval <= 0 {
		opts.RequeueInterval = time.Minute
	}
	if extractor == nil {
		extractor = NoopExtractor{}
	}

	return &Processor{
		logs:      logs,
		objects:   objects,
		pdf:       pdf,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
		queue:     make(chan *models.IngestionLogEntry, opts.QueueSize),
		quit:      make(chan struct{}),
		active:    make(map[int64]struct{}),
	}
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.wg.Add(1)
	go p.requeueLoop(ctx)
	p.logger.Info("Ingestion workers started",
		zap.Int("workers", p.opts.Workers),
		zap.Duration("requeue_interval", p.opts.RequeueInterval),
	)
}

// Requeue enqueues entries that were accepted but never processed: left over by a
// previous run or deferred by a full queue. It stops quietly when the queue fills up;
// the rest is picked up by the next pass.
func (p *Processor) Requeue(ctx context.Context) error {
	entries, err := p.logs.ListQueued(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queued uploads: %w", err)
	}

	queued := 0
	for _, entry := range entries {
		err := p.Enqueue(entry)
		if errors.Is(err, ErrQueueFull) {
			p.logger.Info("Ingestion queue full, requeue continues later",
				zap.Int("queued", queued),
				zap.Int("remaining", len(entries)-queued),
			)
			break
		}
		if err != nil {
			return err
		}
		queued++
	}
	if queued > 0 {
		p.logger.Info("Requeued unprocessed uploads", zap.Int("count", queued))
	}
	return nil
}

func (p *Processor) requeueLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.RequeueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Requeue(ctx); err != nil && !errors.Is(err, ErrStopped) {
				p.logger.Warn("Periodic requeue failed", zap.Error(err))
			}
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Enqueue hands an entry to the workers without blocking. An entry that is already
// queued or running is accepted without being queued twice.
func (p *Processor) Enqueue(entry *models.IngestionLogEntry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	if _, ok := p.active[entry.ID]; ok {
		return nil
	}

	select {
	case p.queue <- entry:
		p.active[entry.ID] = struct{}{}
		metrics.IncrementQueueDepth()
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Processor) release(id int64) {
	p.activeMu.Lock()
	delete(p.active, id)
	p.activeMu.Unlock()
}

// Stop closes the queue and waits for the workers to drain it.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.quit)
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("Ingestion workers stopped")
}

func (p *Processor) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	for {
		select {
		case entry, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.DecrementQueueDepth()
			p.run(ctx, entry)
			p.release(entry.ID)
		case <-ctx.Done():
			p.logger.Debug("Ingestion worker exiting", zap.Int("worker", n))
			return
		}
	}
}

func (p *Processor) run(ctx context.Context, entry *models.IngestionLogEntry) {
	metrics.IncrementActiveWorkers()
	defer metrics.DecrementActiveWorkers()

	start := time.Now()
	outcome := OutcomeFailed
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Ingestion job panicked",
				zap.Int64("log_id", entry.ID),
				zap.Any("panic", r),
			)
			p.fail(entry, fmt.Sprintf("internal error while processing file: %v", r))
			outcome = OutcomeFailed
		}
		metrics.CaptureIngestion(string(entry.Type), outcome, time.Since(start))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, p.opts.JobTimeout)
	defer cancel()

	var err error
	outcome, err = p.Process(jobCtx, entry)
	if err != nil {
		p.logger.Error("Ingestion job failed",
			zap.Int64("log_id", entry.ID),
			zap.String("family", string(entry.Type)),
			zap.Error(err),
		)
		p.fail(entry, "processing failed: "+err.Error())
	}
}

// fail records a failure with a fresh context; the job context may be the reason.
func (p *Processor) fail(entry *models.IngestionLogEntry, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.logs.MarkInvalid(ctx, entry.ID, message); err != nil {
		p.logger.Error("Failed to record ingestion failure", zap.Int64("log_id", entry.ID), zap.Error(err))
	}
}

// Process handles one entry synchronously and reports its outcome. A returned error means
// the outcome could not be recorded.
func (p *Processor) Process(ctx context.Context, entry *models.IngestionLogEntry) (string, error) {
	logger := p.logger.With(
		zap.Int64("log_id", entry.ID),
		zap.String("family", string(entry.Type)),
		zap.String("filename", entry.Filename),
	)

	data, err := p.read(ctx, entry)
	if err != nil {
		return OutcomeFailed, err
	}

	pages, err := p.pdf.Validate(data)
	if err != nil {
		logger.Info("Upload rejected", zap.Error(err))
		return OutcomeInvalid, p.logs.MarkInvalid(ctx, entry.ID, err.Error())
	}

	text, err := p.pdf.Text(data)
	if err != nil {
		logger.Info("Upload has no usable text", zap.Int("pages", pages), zap.Error(err))
		return OutcomeInvalid, p.logs.MarkInvalid(ctx, entry.ID, "could not extract text: "+err.Error())
	}

	raw, err := p.extractor.Extract(ctx, entry.Type, text)
	if errors.Is(err, ErrExtractorDisabled) {
		return OutcomePending, p.logs.MarkPending(ctx, entry.ID, "automatic extraction is disabled, manual attention required")
	}
	if err != nil {
		logger.Warn("Field extraction failed", zap.Error(err))
		return OutcomePending, p.logs.MarkPending(ctx, entry.ID, "field extraction failed, manual attention required: "+err.Error())
	}

	fields, dropped := normalizeExtracted(entry.Type, raw)
	if len(dropped) > 0 {
		logger.Warn("Discarded unparsable extracted values", zap.Strings("fields", dropped))
	}

	if missing := models.MissingRequired(entry.Type, fields); len(missing) > 0 {
		return OutcomePending, p.logs.MarkPending(ctx, entry.ID,
			"manual attention required, missing: "+strings.Join(missing, ", "))
	}

	doc, err := p.logs.CompleteValid(ctx, entry, fields)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to store document: %w", err)
	}

	logger.Info("Upload processed", zap.Int64("document_id", doc.ID), zap.Int("pages", pages))
	return OutcomeValid, nil
}

func (p *Processor) read(ctx context.Context, entry *models.IngestionLogEntry) ([]byte, error) {
	rc, err := p.objects.Get(ctx, entry.Bucket, entry.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

// normalizeExtracted keeps schema keys only and nulls out values that do not parse,
// returning the keys it discarded.
func normalizeExtracted(docType models.DocumentType, raw models.Fields) (models.Fields, []string) {
	known := make(models.Fields, len(raw))
	for key, value := range raw {
		if _, ok := models.LookupField(docType, key); ok {
			known[key] = value
		}
	}

	fields, err := models.NormalizeFields(docType, known)
	if err == nil {
		return fields, nil
	}

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		return models.Fields{}, nil
	}

	var dropped []string
	for _, fe := range verr.Fields {
		delete(known, fe.Field)
		dropped = append(dropped, fe.Field)
	}

	fields, err = models.NormalizeFields(docType, known)
	if err != nil {
		return models.Fields{}, dropped
	}
	return fields, dropped
}
