package handlers

import (
	"context"
	"mime/multipart"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type IngestionLogService interface {
	ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error)
	Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.IngestionLogResponse, error)
}

type UploadService interface {
	Upload(ctx context.Context, in service.UploadInput) (*dto.UploadResponse, error)
}

type IngestionHandler struct {
	logService    IngestionLogService
	uploadService UploadService
	logger        *zap.Logger
}

func NewIngestionHandler(logService IngestionLogService, uploadService UploadService, logger *zap.Logger) *IngestionHandler {
	return &IngestionHandler{
		logService:    logService,
		uploadService: uploadService,
		logger:        logger,
	}
}

// UploadFile godoc
// @Summary Upload a PDF into a bucket
// @Description Stores the file and queues extraction. The extraction outcome appears in the ingestion log.
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Param bucketName formData string true "kif, kuf, transactions or contracts"
// @Param description formData string false "Free text description"
// @Security Bearer
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Router /api/v1/files/upload [post]
func (h *IngestionHandler) UploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "No file selected")
	}

	bucketName := c.FormValue("bucketName")
	if bucketName == "" {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "bucketName is required")
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, "Failed to open file")
	}
	defer src.Close()

	resp, err := h.uploadService.Upload(c.Context(), service.UploadInput{
		Bucket:      bucketName,
		FileName:    file.Filename,
		ContentType: contentType(file),
		Size:        file.Size,
		Description: c.FormValue("description"),
		Body:        src,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func contentType(file *multipart.FileHeader) string {
	if ct := file.Header.Get(fiber.HeaderContentType); ct != "" {
		return ct
	}
	return "application/pdf"
}

// ListInvalidLogs godoc
// @Summary List uploads that failed extraction or need manual attention
// @Tags ingestion
// @Produce json
// @Param family path string true "kif, kuf, contracts or bank-transactions"
// @Param page query int false "Page, 1-based"
// @Param perPage query int false "Page size, max 100"
// @Param sortField query string false "filename, message, created_at, processed_at or is_processed"
// @Param sortOrder query string false "asc or desc"
// @Security Bearer
// @Success 200 {object} dto.Page[dto.IngestionLogResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/{family}/logs/invalid [get]
func (h *IngestionHandler) ListInvalidLogs(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	params, err := listParams(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	page, err := h.logService.ListInvalid(c.Context(), docType, params)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(page)
}

// GetLog godoc
// @Summary Get one ingestion log entry
// @Tags ingestion
// @Produce json
// @Param family path string true "Document family"
// @Param logId path int true "Log entry ID"
// @Security Bearer
// @Success 200 {object} dto.IngestionLogResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/{family}/logs/{logId} [get]
func (h *IngestionHandler) GetLog(c *fiber.Ctx) error {
	docType, err := familyParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	id, err := idParam(c, "logId")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, dto.CodeBadRequest, err.Error())
	}

	entry, err := h.logService.Get(c.Context(), docType, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(entry)
}
