package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondError maps service errors onto the API's status codes and error codes.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var verr *models.ValidationError
	var already *service.AlreadyApprovedError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error:  verr.Error(),
			Code:   dto.CodeValidationFailed,
			Fields: verr.Fields,
		})
	case errors.As(err, &already):
		resp := dto.NewDocumentResponse(already.Document, "")
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error:    "Document is already approved",
			Code:     dto.CodeAlreadyApproved,
			Document: &resp,
		})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoIngestion):
		return errorJSON(c, fiber.StatusNotFound, dto.CodeNotFound, "Not found")
	case errors.Is(err, service.ErrMutationInProgress):
		return errorJSON(c, fiber.StatusConflict, dto.CodeMutationInProgress, err.Error())
	case errors.Is(err, service.ErrMissingActor):
		return errorJSON(c, fiber.StatusUnauthorized, dto.CodeUnauthorized, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, dto.CodeFileTooLarge, err.Error())
	case errors.Is(err, service.ErrInvalidSortField),
		errors.Is(err, service.ErrUnsupportedBucket),
		errors.Is(err, service.ErrEmptyFile):
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	logger.Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return errorJSON(c, fiber.StatusInternalServerError, dto.CodeInternal, "Internal server error")
}

func familyParam(c *fiber.Ctx) (models.DocumentType, error) {
	docType, ok := models.DocumentTypeFromSegment(c.Params("family"))
	if !ok {
		return "", service.ErrNotFound
	}
	return docType, nil
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

func listParams(c *fiber.Ctx) (dto.ListParams, error) {
	params := dto.ListParams{
		Page:      c.QueryInt("page", 1),
		PerPage:   c.QueryInt("perPage", dto.DefaultPerPage),
		SortField: c.Query("sortField"),
		SortOrder: dto.SortOrder(strings.ToLower(c.Query("sortOrder", string(dto.SortDesc)))),
		Query:     strings.TrimSpace(c.Query("q")),
	}

	if raw := c.Query("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			return params, errors.New("approved must be true or false")
		}
		params.Approved = &approved
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &params.From}, {"to", &params.To}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			return params, errors.New(bound.name + " must be RFC3339 or YYYY-MM-DD")
		}
		*bound.dst = &t
	}

	return params.Normalize(), nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(models.DateLayout, raw)
}
