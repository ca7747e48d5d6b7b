package api

import (
	"time"

	"finetica/docs"
	"finetica/internal/api/handlers"
	"finetica/internal/metrics"
	"finetica/pkg/auth"
	"finetica/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// FilesDir is served under /files when objects live on local disk.
	FilesDir string
	// UploadsPerMinute limits uploads per client IP; zero disables the limit.
	UploadsPerMinute int
}

func SetupRouter(
	cfg RouterConfig,
	docHandler *handlers.DocumentHandler,
	ingestionHandler *handlers.IngestionHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			errCode := "INTERNAL"
			switch code {
			case fiber.StatusRequestEntityTooLarge:
				errCode = "FILE_TOO_LARGE"
			case fiber.StatusNotFound:
				errCode = "NOT_FOUND"
			case fiber.StatusBadRequest:
				errCode = "BAD_REQUEST"
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
				"code":  errCode,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.FilesDir != "" {
		appLogger.Info("Serving stored files", zap.String("path", cfg.FilesDir))
		app.Static("/files", cfg.FilesDir)
	}

	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	uploadHandlers := []fiber.Handler{ingestionHandler.UploadFile}
	if cfg.UploadsPerMinute > 0 {
		uploadHandlers = append([]fiber.Handler{limiter.New(limiter.Config{
			Max:        cfg.UploadsPerMinute,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many uploads, try again later",
					"code":  "RATE_LIMITED",
				})
			},
		})}, uploadHandlers...)
	}
	protected.Post("/files/upload", uploadHandlers...)

	protected.Get("/:family/logs/invalid", ingestionHandler.ListInvalidLogs)
	protected.Get("/:family/logs/:logId", ingestionHandler.GetLog)

	protected.Get("/:family", docHandler.ListDocuments)
	protected.Get("/:family/:id", docHandler.GetDocument)
	protected.Put("/:family/:id", docHandler.UpdateDocument)
	protected.Patch("/:family/:id", docHandler.UpdateDocument)
	protected.Put("/:family/:id/approve", docHandler.ApproveDocument)

	return app
}
