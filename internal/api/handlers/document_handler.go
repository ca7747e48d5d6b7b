package handlers

import (
	"context"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DocumentService interface {
	List(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.DocumentResponse], error)
	Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.DocumentResponse, error)
	Update(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*dto.DocumentResponse, error)
	Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields, actor string) (*dto.DocumentResponse, error)
}

type DocumentHandler struct {
	docService DocumentService
	logger     *zap.Logger
}

func NewDocumentHandler(docService DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// ListDocuments godoc
// @Summary List documents of a family
// @Tags documents
// @Produce json
// @Param family path string true "kif, kuf, contracts, bank-transactions or partners"
// @Param page query int false "Page, 1-based"
// @Param perPage query int false "Page size, max 100"
// @Param sortField query string false "Schema key or id, created_at, updated_at, approved_at"
// @Param sortOrder query string false "asc or desc"
// @Param approved query bool false "Only approved or only unapproved"
// @Param from query string false "Created at or after"
// @Param to query string false "Created at or before"
// @Param q query string false "Search in field values"
// @Security Bearer
// @Success 200 {object} dto.Page[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/{family} [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	params, err := listParams(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	page, err := h.docService.List(c.Context(), docType, params)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// GetDocument godoc
// @Summary Get one document with its PDF link
// @Tags documents
// @Produce json
// @Param family path string true "Document family"
// @Param id path int true "Document ID"
// @Security Bearer
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/{family}/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	doc, err := h.docService.Get(c.Context(), docType, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(doc)
}

// UpdateDocument godoc
// @Summary Replace the fields of an unapproved document
// @Tags documents
// @Accept json
// @Produce json
// @Param family path string true "Document family"
// @Param id path int true "Document ID"
// @Param request body dto.UpdateDocumentRequest true "Full field set"
// @Security Bearer
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/{family}/{id} [put]
func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	var req dto.UpdateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
	}
	if req.Fields == nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "fields are required")
	}

	doc, err := h.docService.Update(c.Context(), docType, id, req.Fields)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(doc)
}

// ApproveDocument godoc
// @Summary Approve a document, optionally with corrected fields
// @Description Overrides and the approval stamp are written together. A second approval returns 409 ALREADY_APPROVED with the current record.
// @Tags documents
// @Accept json
// @Produce json
// @Param family path string true "Document family"
// @Param id path int true "Document ID"
// @Param request body dto.ApproveDocumentRequest false "Field overrides"
// @Security Bearer
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/{family}/{id}/approve [put]
func (h *DocumentHandler) ApproveDocument(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	var req dto.ApproveDocumentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Invalid request body")
		}
	}

	doc, err := h.docService.Approve(c.Context(), docType, id, req.Fields, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(doc)
}
