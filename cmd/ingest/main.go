// Command ingest uploads every PDF in a directory into a bucket. Files already uploaded
// with the same content are skipped using a local MD5 cache.
package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"finetica/internal/client"
	"finetica/internal/events"
	"finetica/internal/models"
	"finetica/pkg/config"
	"finetica/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	dir := flag.String("dir", ".", "directory to scan for PDF files")
	bucket := flag.String("bucket", "", "target bucket: kif, kuf, transactions or contracts")
	description := flag.String("description", "", "description stored with every upload")
	concurrency := flag.Int("concurrency", 4, "parallel uploads")
	cacheFile := flag.String("cache", ".ingest_cache.json", "file that remembers uploaded files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if _, ok := models.ParseBucket(*bucket); !ok {
		appLogger.Fatal("Unknown bucket", zap.String("bucket", *bucket))
	}

	api, err := client.New(&cfg.Client, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create API client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := &uploader{
		api:         api,
		bucket:      *bucket,
		description: *description,
		concurrency: *concurrency,
		cacheFile:   *cacheFile,
		notifier:    events.NewLogNotifier(appLogger),
		logger:      appLogger,
	}
	summary, err := u.run(ctx, *dir)
	if err != nil {
		appLogger.Fatal("Ingestion run failed", zap.Error(err))
	}

	appLogger.Info("Ingestion run finished",
		zap.Int("uploaded", summary.uploaded),
		zap.Int("skipped", summary.skipped),
		zap.Int("failed", summary.failed),
	)
	if summary.failed > 0 {
		os.Exit(1)
	}
}

// UploadedFile is one cache entry.
type UploadedFile struct {
	FilePath   string    `json:"file_path"`
	FileHash   string    `json:"file_hash"`
	Bucket     string    `json:"bucket"`
	LogID      int64     `json:"log_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CacheData stores uploaded files keyed by path.
type CacheData struct {
	UploadedFiles map[string]UploadedFile `json:"uploaded_files"`
}

func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{
		UploadedFiles: make(map[string]UploadedFile),
	}

	data, err := os.ReadFile(cacheFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return cache, nil
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.UploadedFiles == nil {
		cache.UploadedFiles = make(map[string]UploadedFile)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// findPDFs lists PDF files under dir in walk order.
func findPDFs(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Uploader is the part of the API client the run needs.
type Uploader interface {
	Upload(ctx context.Context, task *client.UploadTask, onEvent func(client.UploadEvent)) (*client.UploadResult, error)
}

type uploader struct {
	api         Uploader
	bucket      string
	description string
	concurrency int
	cacheFile   string
	notifier    events.Notifier
	logger      *zap.Logger
}

type runSummary struct {
	uploaded int
	skipped  int
	failed   int
}

func (u *uploader) run(ctx context.Context, dir string) (runSummary, error) {
	var summary runSummary

	files, err := findPDFs(dir)
	if err != nil {
		return summary, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	cache, err := loadCache(u.cacheFile)
	if err != nil {
		u.logger.Warn("Failed to load cache, will upload all files", zap.Error(err))
		cache = &CacheData{UploadedFiles: make(map[string]UploadedFile)}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(u.concurrency, 1))

	for _, path := range files {
		hash, err := calculateFileHash(path)
		if err != nil {
			u.logger.Warn("Failed to calculate file hash, will upload anyway", zap.String("path", path), zap.Error(err))
		}

		mu.Lock()
		cached, exists := cache.UploadedFiles[path]
		skip := exists && hash != "" && cached.FileHash == hash && cached.Bucket == u.bucket
		if skip {
			summary.skipped++
		}
		mu.Unlock()
		if skip {
			u.logger.Info("File already uploaded, skipping",
				zap.String("path", path),
				zap.Time("uploaded_at", cached.UploadedAt),
			)
			continue
		}

		g.Go(func() error {
			result, err := u.uploadOne(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.failed++
				// a cancelled run stops scheduling; single failures do not
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			summary.uploaded++
			cache.UploadedFiles[path] = UploadedFile{
				FilePath:   path,
				FileHash:   hash,
				Bucket:     u.bucket,
				LogID:      result.LogID,
				UploadedAt: time.Now(),
			}
			return nil
		})
	}

	waitErr := g.Wait()

	if err := saveCache(u.cacheFile, cache); err != nil {
		u.logger.Warn("Failed to save cache", zap.Error(err))
	} else {
		u.logger.Info("Cache saved", zap.Int("uploaded_files", len(cache.UploadedFiles)))
	}

	return summary, waitErr
}

func (u *uploader) uploadOne(ctx context.Context, path string) (*client.UploadResult, error) {
	task, err := client.NewFileTask(path, u.bucket)
	if err != nil {
		u.notifier.Notify(events.Notification{Level: events.LevelError, Title: "Upload failed", Message: err.Error()})
		return nil, err
	}
	task.Description = u.description

	lastLogged := -1
	result, err := u.api.Upload(ctx, task, func(e client.UploadEvent) {
		if e.Status.Terminal() {
			return
		}
		// log every quarter
		if step := e.Progress / 25; step > lastLogged {
			lastLogged = step
			u.logger.Debug("Upload progress", zap.String("path", path), zap.Int("percent", e.Progress))
		}
	})
	if err != nil {
		u.notifier.Notify(events.Notification{
			Level:     events.LevelError,
			Title:     "Upload failed",
			Message:   err.Error(),
			Retryable: client.IsRetryable(err),
		})
		return nil, err
	}

	u.notifier.Notify(events.Notification{
		Level:   events.LevelSuccess,
		Title:   "Uploaded",
		Message: fmt.Sprintf("%s stored as %s, processing %s", filepath.Base(path), result.FileName, result.Processing),
	})
	return result, nil
}
