package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	LLM       LLMConfig
	Queue     QueueConfig
	Ingest    IngestConfig
	Redaction RedactionConfig
	Log       LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Provider      string // vision | tesseract | mock
	BaseURL       string
	APIKey        string
	AccessToken   string
	Timeout       time.Duration
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider          string // openai | mock
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerMinute int
	JSONMode          bool
}

// QueueConfig selects where processing jobs are sent.
type QueueConfig struct {
	Backend    string // memory | amqp
	Workers    int
	Size       int
	JobTimeout time.Duration
	AMQPURL    string
	AMQPQueue  string
}

// IngestConfig holds upload and watch-folder settings.
type IngestConfig struct {
	UploadDir   string
	WatchDir    string
	WatchUserID string
	Debounce    time.Duration
}

type RedactionConfig struct {
	Strict bool
}

type LogConfig struct {
	Level  string
	Format string // console | json
}

// LoadConfig loads configuration from environment variables, after a .env file
// in the working directory when there is one.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "read .env", err)
	}
	return configFromEnv(), nil
}

func configFromEnv() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", "file:warranty.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		OCR: OCRConfig{
			Provider:      strings.ToLower(getEnv("OCR_PROVIDER", "")),
			BaseURL:       getEnv("OCR_BASE_URL", ""),
			APIKey:        getEnv("OCR_API_KEY", ""),
			AccessToken:   getEnv("OCR_ACCESS_TOKEN", ""),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 15*time.Second),
			Pdftotext:     getEnv("PDFTOTEXT_BIN", ""),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", ""),
			Tesseract:     getEnv("TESSERACT_BIN", ""),
			TesseractLang: getEnv("TESSERACT_LANG", "kor+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(getEnv("LLM_PROVIDER", "")),
			BaseURL:           getEnv("LLM_BASE_URL", ""),
			APIKey:            getEnv("LLM_API_KEY", ""),
			Model:             getEnv("LLM_MODEL", "solar-pro"),
			Temperature:       getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 0),
			JSONMode:          getEnvAsBool("LLM_JSON_MODE", false),
		},
		Queue: QueueConfig{
			Backend:    strings.ToLower(getEnv("QUEUE_BACKEND", "memory")),
			Workers:    getEnvAsInt("QUEUE_WORKERS", 4),
			Size:       getEnvAsInt("QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("JOB_TIMEOUT", 2*time.Minute),
			AMQPURL:    getEnv("AMQP_URL", ""),
			AMQPQueue:  getEnv("AMQP_QUEUE", "document_jobs"),
		},
		Ingest: IngestConfig{
			UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
			WatchDir:    getEnv("WATCH_DIR", ""),
			WatchUserID: getEnv("WATCH_USER_ID", ""),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Redaction: RedactionConfig{
			Strict: redact.ParseStrict(os.Getenv("REDACTION_STRICT")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "console")),
		},
	}

	// a provider is real only when configured or when credentials are present
	if cfg.OCR.Provider == "" {
		cfg.OCR.Provider = "mock"
		if cfg.OCR.BaseURL != "" && (cfg.OCR.APIKey != "" || cfg.OCR.AccessToken != "") {
			cfg.OCR.Provider = "vision"
		}
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "mock"
		if cfg.LLM.BaseURL != "" && cfg.LLM.APIKey != "" {
			cfg.LLM.Provider = "openai"
		}
	}
	return cfg
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Provider {
	case "vision":
		if c.OCR.BaseURL == "" || (c.OCR.APIKey == "" && c.OCR.AccessToken == "") {
			return NewAppError("CONFIG_ERROR", "OCR_BASE_URL and OCR_API_KEY or OCR_ACCESS_TOKEN are required for vision", ErrInvalidInput)
		}
	case "tesseract", "mock":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_PROVIDER must be vision, tesseract or mock", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.BaseURL == "" || c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "LLM_BASE_URL and LLM_API_KEY are required for openai", ErrInvalidInput)
		}
	case "mock", "none":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai, mock or none", ErrInvalidInput)
	}
	switch c.Queue.Backend {
	case "memory":
	case "amqp":
		if c.Queue.AMQPURL == "" {
			return NewAppError("CONFIG_ERROR", "AMQP_URL is required for the amqp queue", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "QUEUE_BACKEND must be memory or amqp", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Ingest.WatchDir != "" && c.Ingest.WatchUserID == "" {
		return NewAppError("CONFIG_ERROR", "WATCH_USER_ID is required with WATCH_DIR", ErrInvalidInput)
	}
	return nil
}
