package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"finetica/internal/dto"
	"finetica/internal/models"

	"go.uber.org/zap"
)

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

func (s UploadStatus) Terminal() bool {
	return s == UploadSucceeded || s == UploadFailed
}

// UploadEvent is a progress update or, when Status is terminal, the outcome.
type UploadEvent struct {
	Status   UploadStatus
	Progress int
	Result   *UploadResult
	Err      error
}

type UploadResult struct {
	StoredURL  string
	FileName   string
	LogID      int64
	Processing string
}

// UploadTask is one file selected for upload. A task runs at most one upload at a time.
type UploadTask struct {
	FileName    string
	Size        int64
	Bucket      string
	DisplayName string
	Description string

	open func() (io.ReadCloser, error)

	mu       sync.Mutex
	running  bool
	status   UploadStatus
	progress int
}

// NewFileTask prepares the file at path for upload into bucket.
func NewFileTask(path, bucket string) (*UploadTask, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &UploadTask{
		FileName: filepath.Base(path),
		Size:     info.Size(),
		Bucket:   bucket,
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
		status:   UploadPending,
	}, nil
}

// NewBytesTask prepares in-memory content for upload into bucket.
func NewBytesTask(fileName string, data []byte, bucket string) *UploadTask {
	return &UploadTask{
		FileName: fileName,
		Size:     int64(len(data)),
		Bucket:   bucket,
		open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
		status:   UploadPending,
	}
}

// State returns the last status and progress of the task.
func (t *UploadTask) State() (UploadStatus, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.progress
}

// uploadName is the name the stored artifact gets: the display name when it differs from
// the original, otherwise the original.
func (t *UploadTask) uploadName() string {
	name := strings.TrimSpace(t.DisplayName)
	if name == "" || name == t.FileName {
		return t.FileName
	}
	return name
}

// contentType follows the original file, so a rename never changes the MIME type.
func (t *UploadTask) contentType() string {
	ext := strings.ToLower(filepath.Ext(t.FileName))
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	switch ext {
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// emitter serialises events and guarantees a single terminal event.
type emitter struct {
	mu       sync.Mutex
	task     *UploadTask
	onEvent  func(UploadEvent)
	last     int
	finished bool
}

func (e *emitter) progress(percent int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	if percent > 99 {
		percent = 99
	}
	if percent < e.last {
		return
	}
	e.last = percent
	e.task.setState(UploadUploading, percent)
	e.send(UploadEvent{Status: UploadUploading, Progress: percent})
}

func (e *emitter) finish(result *UploadResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	e.finished = true

	event := UploadEvent{Status: UploadSucceeded, Progress: 100, Result: result}
	if err != nil {
		event = UploadEvent{Status: UploadFailed, Progress: e.last, Err: err}
	}
	if e.task != nil {
		e.task.setState(event.Status, event.Progress)
	}
	e.send(event)
}

func (e *emitter) send(event UploadEvent) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}

func (t *UploadTask) setState(status UploadStatus, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.progress = progress
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	emit  func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.emit(int(p.read * 100 / p.total))
	}
	return n, err
}

// Upload sends the task's file to its bucket. onEvent, which may be nil, receives
// non-decreasing progress below 100 and then exactly one terminal event. Failures are not
// retried.
func (c *Client) Upload(ctx context.Context, task *UploadTask, onEvent func(UploadEvent)) (*UploadResult, error) {
	if task == nil || task.open == nil || task.Size == 0 {
		e := &emitter{onEvent: onEvent}
		e.finish(nil, ErrNoFileSelected)
		return nil, ErrNoFileSelected
	}

	task.mu.Lock()
	if task.running {
		task.mu.Unlock()
		// reported on this call only; the running upload keeps its own events
		e := &emitter{onEvent: onEvent}
		e.finish(nil, ErrUploadInFlight)
		return nil, ErrUploadInFlight
	}
	task.running = true
	task.mu.Unlock()
	defer func() {
		task.mu.Lock()
		task.running = false
		task.mu.Unlock()
	}()

	e := &emitter{task: task, onEvent: onEvent}

	result, err := c.upload(ctx, task, e)
	if err != nil {
		e.finish(nil, err)
		return nil, err
	}
	e.finish(result, nil)
	return result, nil
}

func (c *Client) upload(ctx context.Context, task *UploadTask, e *emitter) (*UploadResult, error) {
	name := task.uploadName()
	failed := func(message string, err error) error {
		return &UploadFailedError{FileName: name, Message: message, Err: err}
	}

	bucket, ok := models.ParseBucket(task.Bucket)
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("unsupported bucket %q", task.Bucket)}
	}

	file, err := task.open()
	if err != nil {
		return nil, failed("could not read file", err)
	}
	defer file.Close()

	e.progress(0)

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	writeDone := make(chan error, 1)

	go func() {
		err := writeMultipart(writer, task, name, string(bucket), &progressReader{
			r:     file,
			total: task.Size,
			emit:  e.progress,
		})
		pw.CloseWithError(err)
		writeDone <- err
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/files/upload", nil, pr)
	if err != nil {
		pr.Close()
		<-writeDone
		return nil, failed("could not create request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.send(req)
	// the transport closes the body; wait for the writer so no progress follows the outcome
	pr.CloseWithError(io.ErrClosedPipe)
	<-writeDone
	if err != nil {
		return nil, failed("upload did not complete", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(req, resp)
		return nil, failed(serverMessage(apiErr), apiErr)
	}

	var body dto.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, failed("unexpected response from server", err)
	}
	if !body.Success {
		return nil, failed("server rejected the upload", nil)
	}

	c.logger.Info("File uploaded",
		zap.String("file", name),
		zap.String("bucket", string(bucket)),
		zap.Int64("log_id", body.LogID),
	)

	return &UploadResult{
		StoredURL:  body.URL,
		FileName:   body.FileName,
		LogID:      body.LogID,
		Processing: body.Processing,
	}, nil
}

func writeMultipart(writer *multipart.Writer, task *UploadTask, name, bucket string, body io.Reader) error {
	if err := writer.WriteField("bucketName", bucket); err != nil {
		return fmt.Errorf("failed to write bucket field: %w", err)
	}
	if task.Description != "" {
		if err := writer.WriteField("description", task.Description); err != nil {
			return fmt.Errorf("failed to write description field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": name,
	}))
	header.Set("Content-Type", task.contentType())

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return writer.Close()
}

func serverMessage(err error) string {
	switch e := err.(type) {
	case *ValidationError:
		return e.Message
	case *NotFoundError:
		return e.Message
	case *ConflictError:
		return e.Message
	case *TransportError:
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return err.Error()
}
