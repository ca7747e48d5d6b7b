package service

import (
	"errors"

	"finetica/internal/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyApproved    = errors.New("document already approved")
	ErrMutationInProgress = errors.New("another change to this document is in progress")
	ErrInvalidSortField   = errors.New("invalid sort field")
	ErrMissingActor       = errors.New("approving user is unknown")
	ErrUnsupportedBucket  = errors.New("unsupported bucket")
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file is too large")
	ErrNoIngestion        = errors.New("document family has no uploads")
)

// AlreadyApprovedError carries the record as it stands, so callers can show the
// existing approval instead of a failure.
type AlreadyApprovedError struct {
	Document *models.Document
}

func (e *AlreadyApprovedError) Error() string {
	return ErrAlreadyApproved.Error()
}

func (e *AlreadyApprovedError) Unwrap() error {
	return ErrAlreadyApproved
}
