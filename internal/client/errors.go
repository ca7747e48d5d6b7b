package client

import (
	"errors"
	"fmt"
	"strings"

	"finetica/internal/dto"
	"finetica/internal/models"
)

const codeAlreadyApproved = "ALREADY_APPROVED"

// ValidationError is a rejected input. Local ones never reach the server; Remote ones
// carry the server's message verbatim.
type ValidationError struct {
	Message string
	Fields  []models.FieldError
	Remote  bool
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

var (
	ErrNoFileSelected = &ValidationError{Message: "No file selected"}
	ErrUploadInFlight = errors.New("upload already in progress for this file")
)

type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %s", e.Path, e.Message)
}

// ConflictError reports a state conflict such as an already approved document. Document
// holds the server's current record when it sent one.
type ConflictError struct {
	Code     string
	Message  string
	Document *Document
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

func (e *ConflictError) AlreadyApproved() bool {
	return e.Code == codeAlreadyApproved
}

// TransportError is a network or server failure. Retryable ones may be re-sent as is.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type UploadFailedError struct {
	FileName string
	Message  string
	Err      error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload of %s failed: %s", e.FileName, e.Message)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

// ProcessingError describes an upload the backend could not turn into a document. It is
// read from the ingestion log, never returned by Upload.
type ProcessingError struct {
	LogID    int64
	Filename string
	Message  string
	Pending  bool
}

func (e *ProcessingError) Error() string {
	if e.Pending {
		return fmt.Sprintf("%s needs manual attention: %s", e.Filename, e.Message)
	}
	return fmt.Sprintf("%s could not be processed: %s", e.Filename, e.Message)
}

// ProcessingErrorOf returns the failure recorded in entry, or nil when the entry
// completed successfully or is still queued.
func ProcessingErrorOf(entry dto.IngestionLogResponse) *ProcessingError {
	if entry.Message == "" || (entry.IsValid && entry.IsProcessed) {
		return nil
	}
	return &ProcessingError{
		LogID:    entry.ID,
		Filename: entry.Filename,
		Message:  entry.Message,
		Pending:  entry.IsValid && !entry.IsProcessed,
	}
}

// IsRetryable reports whether err may succeed when the same call is repeated.
func IsRetryable(err error) bool {
	var transport *TransportError
	return errors.As(err, &transport) && transport.Retryable
}
