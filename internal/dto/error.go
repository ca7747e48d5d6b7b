package dto

import "finetica/internal/models"

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyApproved    = "ALREADY_APPROVED"
	CodeMutationInProgress = "MUTATION_IN_PROGRESS"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInternal           = "INTERNAL"
)

type ErrorResponse struct {
	Error    string              `json:"error"`
	Code     string              `json:"code,omitempty"`
	Fields   []models.FieldError `json:"fields,omitempty"`
	Document *DocumentResponse   `json:"document,omitempty"`
}
