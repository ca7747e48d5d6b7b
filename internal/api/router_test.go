package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finetica/internal/api/handlers"
	"finetica/internal/dto"
	"finetica/internal/models"
	"finetica/internal/service"
	"finetica/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type nopDocuments struct{}

func (nopDocuments) List(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.DocumentResponse], error) {
	return &dto.Page[dto.DocumentResponse]{Items: []dto.DocumentResponse{}, Page: 1, PerPage: 10}, nil
}

func (nopDocuments) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.DocumentResponse, error) {
	return nil, service.ErrNotFound
}

func (nopDocuments) Update(ctx context.Context, docType models.DocumentType, id int64, fields models.Fields) (*dto.DocumentResponse, error) {
	return nil, service.ErrNotFound
}

func (nopDocuments) Approve(ctx context.Context, docType models.DocumentType, id int64, overrides models.Fields, actor string) (*dto.DocumentResponse, error) {
	return nil, service.ErrNotFound
}

type nopIngestion struct{}

func (nopIngestion) ListInvalid(ctx context.Context, docType models.DocumentType, params dto.ListParams) (*dto.Page[dto.IngestionLogResponse], error) {
	return &dto.Page[dto.IngestionLogResponse]{Items: []dto.IngestionLogResponse{}, Page: 1, PerPage: 10}, nil
}

func (nopIngestion) Get(ctx context.Context, docType models.DocumentType, id int64) (*dto.IngestionLogResponse, error) {
	return nil, service.ErrNotFound
}

func (nopIngestion) Upload(ctx context.Context, in service.UploadInput) (*dto.UploadResponse, error) {
	return &dto.UploadResponse{Success: true, FileName: in.FileName, Bucket: in.Bucket}, nil
}

func newTestRouter(t *testing.T, cfg RouterConfig) (*fiber.App, string) {
	t.Helper()
	jwtManager := auth.NewJWTManager("router-secret", time.Hour)
	token, err := jwtManager.GenerateToken("u-7", "marko", "marko@example.com")
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	app := SetupRouter(cfg,
		handlers.NewDocumentHandler(nopDocuments{}, logger),
		handlers.NewIngestionHandler(nopIngestion{}, nopIngestion{}, logger),
		jwtManager,
		logger,
	)
	return app, token
}

func send(t *testing.T, app *fiber.App, method, target, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	app, token := newTestRouter(t, RouterConfig{})

	tests := []struct {
		name   string
		method string
		target string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"list without token", http.MethodGet, "/api/v1/kif", "", http.StatusUnauthorized},
		{"list with token", http.MethodGet, "/api/v1/kif", token, http.StatusOK},
		{"unknown family", http.MethodGet, "/api/v1/receipts", token, http.StatusNotFound},
		{"missing document", http.MethodGet, "/api/v1/kuf/9", token, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := send(t, app, tt.method, tt.target, tt.token)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (%s)", status, tt.want, body)
			}
		})
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	app, token := newTestRouter(t, RouterConfig{})

	if status, _ := send(t, app, http.MethodGet, "/api/v1/contracts", token); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	status, body := send(t, app, http.MethodGet, "/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	if !strings.Contains(body, "finetica_http_requests_total") {
		t.Fatalf("metrics output lacks request counter:\n%s", body)
	}
}

func TestRouterLimitsUploads(t *testing.T) {
	app, token := newTestRouter(t, RouterConfig{UploadsPerMinute: 1})

	// the first request reaches the handler and fails there for lack of a file
	if status, body := send(t, app, http.MethodPost, "/api/v1/files/upload", token); status != http.StatusBadRequest {
		t.Fatalf("first upload status = %d (%s)", status, body)
	}
	status, body := send(t, app, http.MethodPost, "/api/v1/files/upload", token)
	if status != http.StatusTooManyRequests {
		t.Fatalf("second upload status = %d (%s)", status, body)
	}
	if !strings.Contains(body, "RATE_LIMITED") {
		t.Fatalf("body = %s", body)
	}
}
