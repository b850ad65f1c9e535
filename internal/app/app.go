// Package app assembles the pipeline, persistence, queue and servers from Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/warranty-tracker/internal/async"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/export"
	"github.com/joseph-ayodele/warranty-tracker/internal/extract"
	"github.com/joseph-ayodele/warranty-tracker/internal/ingest"
	"github.com/joseph-ayodele/warranty-tracker/internal/llm"
	"github.com/joseph-ayodele/warranty-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/warranty-tracker/internal/ocr"
	"github.com/joseph-ayodele/warranty-tracker/internal/pipeline"
	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
	"github.com/joseph-ayodele/warranty-tracker/internal/server"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueAMQP   = "amqp"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Store     *repository.Store
	Processor *pipeline.Processor
	Queue     async.Queue
	AMQP      *async.AMQPQueue // set when Queue.Backend is amqp
	Ingest    *ingest.Service
	Export    *export.Service
	Service   *server.Service
}

// New opens the database, runs migrations when enabled and builds every service.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, DB: db}
	if err := a.init(ctx); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, a.DB); err != nil {
			return err
		}
	}
	a.Store = repository.NewStore(a.DB.DB, a.Logger)

	textExtractor, err := NewOCR(cfg.OCR, a.Logger)
	if err != nil {
		return err
	}
	fieldExtractor, err := NewLLM(cfg.LLM, a.Logger)
	if err != nil {
		return err
	}
	a.Processor = pipeline.NewProcessor(a.Store, textExtractor, fieldExtractor,
		pipeline.Options{Strict: cfg.Redaction.Strict}, a.Logger)

	switch cfg.Queue.Backend {
	case QueueMemory, "":
		a.Queue = async.NewProcessorQueue(a.Processor, a.Logger,
			async.WithWorkers(cfg.Queue.Workers),
			async.WithQueueSize(cfg.Queue.Size),
			async.WithProcessTimeout(cfg.Queue.JobTimeout),
		)
	case QueueAMQP:
		q, err := async.DialAMQP(async.AMQPConfig{
			URL:           cfg.Queue.AMQPURL,
			Queue:         cfg.Queue.AMQPQueue,
			Prefetch:      cfg.Queue.Workers,
			RetryAttempts: 5,
			RetryInterval: 2 * time.Second,
			JobTimeout:    cfg.Queue.JobTimeout,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.AMQP, a.Queue = q, q
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}

	a.Ingest = ingest.NewService(a.Store, a.Queue, cfg.Ingest.UploadDir, cfg.Redaction.Strict, a.Logger)
	a.Export = export.NewService(a.Store.Repos().Products, cfg.Redaction.Strict, a.Logger)
	a.Service = server.NewService(a.Store, a.Ingest, a.Export, a.Logger)
	return nil
}

// StartConsumers runs the AMQP consumer workers; it is a no-op for the in-memory queue.
func (a *App) StartConsumers(ctx context.Context, tag string) error {
	if a.AMQP == nil {
		return nil
	}
	return a.AMQP.Consume(ctx, tag, a.Config.Queue.Workers, a.Processor)
}

// Close drains the queue and closes the database.
func (a *App) Close(ctx context.Context) {
	if a.Queue != nil {
		a.Queue.Shutdown(ctx)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("app.db.close_failed", "err", err)
		}
	}
}

// NewOCR builds the configured OCR provider.
func NewOCR(cfg common.OCRConfig, logger *slog.Logger) (extract.TextExtractor, error) {
	return ocr.New(ocr.Settings{
		Provider: cfg.Provider,
		Vision: ocr.VisionConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			AccessToken: cfg.AccessToken,
			Timeout:     cfg.Timeout,
		},
		Tesseract: ocr.Config{
			Pdftotext:     cfg.Pdftotext,
			Pdftoppm:      cfg.Pdftoppm,
			Tesseract:     cfg.Tesseract,
			TesseractLang: cfg.TesseractLang,
			TessdataDir:   cfg.TessdataDir,
			DPI:           cfg.DPI,
		},
	}, logger)
}

// LLM provider names.
const (
	LLMOpenAI = "openai"
	LLMMock   = "mock"
	LLMNone   = "none"
)

// NewLLM builds the configured field extractor. "none" disables the fallback.
func NewLLM(cfg common.LLMConfig, logger *slog.Logger) (extract.FieldExtractor, error) {
	switch cfg.Provider {
	case LLMOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm provider openai requires LLM_API_KEY")
		}
		c, err := openai.NewClient(openai.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Temperature:       cfg.Temperature,
			Timeout:           cfg.Timeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
			JSONMode:          cfg.JSONMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case LLMMock, "":
		return llm.MockExtractor{}, nil
	case LLMNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
