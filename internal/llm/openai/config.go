package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/warranty-tracker/internal/llm"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey            string        // sent as a Bearer token
	BaseURL           string        // default https://api.openai.com/v1
	Model             string        // e.g., "gpt-4o-mini" or "solar-pro"
	Temperature       float32       // 0..2
	Timeout           time.Duration // http client timeout
	RequestsPerMinute int           // 0 disables pacing
	JSONMode          bool          // send response_format=json_object
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	schema  *jsonschema.Schema
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileSchema(llm.BuildFieldJSONSchema())
	if err != nil {
		return nil, err
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		schema:  schema,
		logger:  logger,
	}, nil
}
