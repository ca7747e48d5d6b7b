package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/service"
	"finetica/pkg/auth"
	"finetica/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type stubDocuments struct {
	approveActor     string
	approveOverrides models.Fields
	approveErr       error
	listParams       dto.ListParams
	updated          models.Fields
}

func (s *stubDocuments) List(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.DocumentResponse], error) {
	s.listParams = params
	return &dto.Page[dto.DocumentResponse]{Items: []dto.DocumentResponse{}, Page: params.Page, PerPage: params.PerPage}, nil
}

func (s *stubDocuments) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.DocumentResponse, error) {
	if id != 42 {
		return nil, service.ErrNotFound
	}
	return &dto.DocumentResponse{ID: id, Type: string(docType), Fields: models.Fields{}}, nil
}

func (s *stubDocuments) Update(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*dto.DocumentResponse, error) {
	s.updated = fields
	return &dto.DocumentResponse{ID: id, Type: string(docType), Fields: fields}, nil
}

func (s *stubDocuments) Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields, actor string) (*dto.DocumentResponse, error) {
	s.approveActor = actor
	s.approveOverrides = overrides
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	now := time.Now()
	return &dto.DocumentResponse{ID: id, Type: string(docType), Fields: overrides, ApprovedAt: &now, ApprovedBy: &actor}, nil
}

type stubIngestion struct {
	upload service.UploadInput
	body   []byte
}

func (s *stubIngestion) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error) {
	if _, ok := docType.Bucket(); !ok {
		return nil, service.ErrNoIngestion
	}
	return &dto.Page[dto.IngestionLogResponse]{
		Items: []dto.IngestionLogResponse{{ID: 1, Type: string(docType), Filename: "broken.pdf", Message: "not a readable PDF"}},
		Total: 1, Page: 1, PerPage: 10,
	}, nil
}

func (s *stubIngestion) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.IngestionLogResponse, error) {
	return nil, service.ErrNotFound
}

func (s *stubIngestion) Upload(ctx context.Context, in service.UploadInput) (*dto.UploadResponse, error) {
	s.upload = in
	s.body, _ = io.ReadAll(in.Body)
	if in.Bucket == "invoices" {
		return nil, service.ErrUnsupportedBucket
	}
	return &dto.UploadResponse{Success: true, FileName: in.FileName, Bucket: in.Bucket, LogID: 5, Processing: "queued"}, nil
}

func setupApp(t *testing.T, docs *stubDocuments, ingestion *stubIngestion) (*fiber.App, string) {
	t.Helper()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateToken("u-1", "ana", "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}

	logger := zap.NewNop()
	docHandler := NewDocumentHandler(docs, logger)
	ingestionHandler := NewIngestionHandler(ingestion, ingestion, logger)

	app := fiber.New()
	api := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, logger))
	api.Post("/files/upload", ingestionHandler.UploadFile)
	api.Get("/:family/logs/invalid", ingestionHandler.ListInvalidLogs)
	api.Get("/:family/logs/:logId", ingestionHandler.GetLog)
	api.Get("/:family", docHandler.ListDocuments)
	api.Get("/:family/:id", docHandler.GetDocument)
	api.Put("/:family/:id", docHandler.UpdateDocument)
	api.Put("/:family/:id/approve", docHandler.ApproveDocument)

	return app, token
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestApproveDocument(t *testing.T) {
	docs := &stubDocuments{}
	app, token := setupApp(t, docs, &stubIngestion{})

	resp, body := doRequest(t, app, jsonRequest(http.MethodPut, "/api/v1/kuf/11/approve", map[string]any{
		"fields": map[string]any{"net_total": "3000.00"},
	}), token)

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if docs.approveActor != "ana" {
		t.Errorf("actor = %q, want ana", docs.approveActor)
	}
	if docs.approveOverrides["net_total"] != "3000.00" {
		t.Errorf("overrides not passed: %v", docs.approveOverrides)
	}
}

func TestApproveDocumentErrors(t *testing.T) {
	approvedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	approvedBy := "marko"

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		withBody bool
	}{
		{
			name: "already approved returns the current record",
			err: &service.AlreadyApprovedError{Document: &models.Document{
				ID: 42, Type: models.DocumentTypeContract, Fields: models.Fields{}, ApprovedAt: &approvedAt, ApprovedBy: &approvedBy,
			}},
			status:   fiber.StatusConflict,
			code:     dto.CodeAlreadyApproved,
			withBody: true,
		},
		{name: "locked", err: service.ErrMutationInProgress, status: fiber.StatusConflict, code: dto.CodeMutationInProgress},
		{name: "not found", err: service.ErrNotFound, status: fiber.StatusNotFound, code: dto.CodeNotFound},
		{
			name:   "validation",
			err:    &models.ValidationError{Fields: []models.FieldError{{Field: "net_total", Message: "expected amount"}}},
			status: fiber.StatusUnprocessableEntity,
			code:   dto.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, token := setupApp(t, &stubDocuments{approveErr: tt.err}, &stubIngestion{})
			resp, body := doRequest(t, app, jsonRequest(http.MethodPut, "/api/v1/contracts/42/approve", nil), token)

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var errResp dto.ErrorResponse
			if err := json.Unmarshal(body, &errResp); err != nil {
				t.Fatal(err)
			}
			if errResp.Code != tt.code || errResp.Error == "" {
				t.Errorf("unexpected error body %s", body)
			}
			if tt.withBody {
				if errResp.Document == nil || errResp.Document.ApprovedBy == nil || *errResp.Document.ApprovedBy != "marko" {
					t.Errorf("conflict must carry the current record: %s", body)
				}
			}
		})
	}
}

func TestAuthAndRouting(t *testing.T) {
	app, token := setupApp(t, &stubDocuments{}, &stubIngestion{})

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/kif/42", nil), "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("missing token: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/kif/42", nil), "not-a-token")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/42", nil), token)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("unknown family: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/contracts/42", nil), token)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("get: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/contracts/abc", nil), token)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad id: status = %d", resp.StatusCode)
	}
}

func TestListDocumentsParsesQuery(t *testing.T) {
	docs := &stubDocuments{}
	app, token := setupApp(t, docs, &stubIngestion{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contracts?page=3&perPage=25&sortField=start_date&sortOrder=ASC&approved=false&from=2024-01-01&q=acme", nil)
	resp, body := doRequest(t, app, req, token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	p := docs.listParams
	if p.Page != 3 || p.PerPage != 25 || p.SortField != "start_date" || p.SortOrder != dto.SortAsc || p.Query != "acme" {
		t.Errorf("unexpected params %+v", p)
	}
	if p.Approved == nil || *p.Approved {
		t.Error("approved=false not parsed")
	}
	if p.From == nil || p.From.Format(models.DateLayout) != "2024-01-01" {
		t.Error("from not parsed")
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/contracts?approved=maybe", nil), token)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad filter: status = %d", resp.StatusCode)
	}
}

func TestUpdateDocumentRequiresFields(t *testing.T) {
	docs := &stubDocuments{}
	app, token := setupApp(t, docs, &stubIngestion{})

	resp, _ := doRequest(t, app, jsonRequest(http.MethodPut, "/api/v1/kif/42", map[string]any{}), token)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, jsonRequest(http.MethodPut, "/api/v1/kif/42", map[string]any{
		"fields": map[string]any{"invoice_number": "KIF-1", "note": nil},
	}), token)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if docs.updated["invoice_number"] != "KIF-1" {
		t.Errorf("fields not passed: %v", docs.updated)
	}
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadFile(t *testing.T) {
	ingestion := &stubIngestion{}
	app, token := setupApp(t, &stubDocuments{}, ingestion)

	req := multipartUpload(t, map[string]string{"bucketName": "kif", "description": "march"}, "invoice.pdf", []byte("%PDF-1.7"))
	resp, body := doRequest(t, app, req, token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ingestion.upload.Bucket != "kif" || ingestion.upload.FileName != "invoice.pdf" || ingestion.upload.Description != "march" {
		t.Errorf("unexpected input %+v", ingestion.upload)
	}
	if string(ingestion.body) != "%PDF-1.7" || ingestion.upload.Size != 8 {
		t.Errorf("file content not passed through")
	}

	resp, _ = doRequest(t, app, multipartUpload(t, map[string]string{"bucketName": "kif"}, "", nil), token)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing file: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, multipartUpload(t, map[string]string{"bucketName": "invoices"}, "a.pdf", []byte("%PDF")), token)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("unknown bucket: status = %d", resp.StatusCode)
	}
}

func TestInvalidLogs(t *testing.T) {
	app, token := setupApp(t, &stubDocuments{}, &stubIngestion{})

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/kif/logs/invalid", nil), token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var page dto.Page[dto.IngestionLogResponse]
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Filename != "broken.pdf" {
		t.Errorf("unexpected page %s", body)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/partners/logs/invalid", nil), token)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("partners have no ingestion log: status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/kif/logs/9", nil), token)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("missing entry: status = %d", resp.StatusCode)
	}
}
