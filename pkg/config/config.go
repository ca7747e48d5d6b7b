package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Ingestion IngestionConfig
	GigaChat  GigaChatConfig
	Client    ClientConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level   string
	Format  string // json or console
	Service string
}

type ServerConfig struct {
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	BodyLimit        int
	UploadsPerMinute int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

type StorageConfig struct {
	Driver          string // minio or local
	Endpoint        string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
	BucketPrefix    string
	LocalDir        string
	PublicBaseURL   string
	PresignedExpiry time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type IngestionConfig struct {
	Workers         int
	QueueSize       int
	RequeueInterval time.Duration
	MaxUploadBytes  int64
	Extractor       string // gigachat or none
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for containers
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	presignedMinutes, _ := strconv.Atoi(getEnv("STORAGE_PRESIGNED_EXPIRY_MINUTES", "60"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lockSeconds, _ := strconv.Atoi(getEnv("REDIS_LOCK_TTL_SECONDS", "30"))
	workers, _ := strconv.Atoi(getEnv("INGESTION_WORKERS", "4"))
	queueSize, _ := strconv.Atoi(getEnv("INGESTION_QUEUE_SIZE", "128"))
	maxUploadMB, _ := strconv.Atoi(getEnv("INGESTION_MAX_UPLOAD_MB", "20"))
	clientTimeout, _ := strconv.Atoi(getEnv("FINETICA_CLIENT_TIMEOUT_SECONDS", "60"))
	uploadsPerMinute, _ := strconv.Atoi(getEnv("SERVER_UPLOADS_PER_MINUTE", "60"))
	requeueSeconds, _ := strconv.Atoi(getEnv("INGESTION_REQUEUE_SECONDS", "60"))

	maxUploadBytes := int64(maxUploadMB) * 1024 * 1024

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			// multipart overhead on top of the largest accepted file
			BodyLimit:        int(maxUploadBytes) + 1024*1024,
			UploadsPerMinute: uploadsPerMinute,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "finetica"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "minio"),
			Endpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:       getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:       getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:          getEnv("MINIO_USE_SSL", "false") == "true",
			BucketPrefix:    getEnv("MINIO_BUCKET_PREFIX", "finetica-"),
			LocalDir:        getEnv("STORAGE_LOCAL_DIR", "./uploads"),
			PublicBaseURL:   getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files"),
			PresignedExpiry: time.Duration(presignedMinutes) * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			LockTTL:  time.Duration(lockSeconds) * time.Second,
		},
		Ingestion: IngestionConfig{
			Workers:         workers,
			QueueSize:       queueSize,
			RequeueInterval: time.Duration(requeueSeconds) * time.Second,
			MaxUploadBytes:  maxUploadBytes,
			Extractor:       getEnv("INGESTION_EXTRACTOR", "gigachat"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true",
		},
		Client: ClientConfig{
			BaseURL: getEnv("FINETICA_API_BASE_URL", getEnv("VITE_API_BASE_URL", "http://localhost:8080/api/v1")),
			Token:   getEnv("FINETICA_API_TOKEN", ""),
			Timeout: time.Duration(clientTimeout) * time.Second,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("LOG_SERVICE", "finetica"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
