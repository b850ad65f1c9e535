package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/llm"
	"github.com/joseph-ayodele/warranty-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/warranty-tracker/internal/ocr"
)

func testConfig(t *testing.T) *common.Config {
	return &common.Config{
		Database:  common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true},
		OCR:       common.OCRConfig{Provider: "mock"},
		LLM:       common.LLMConfig{Provider: LLMMock},
		Queue:     common.QueueConfig{Backend: QueueMemory, Workers: 2, Size: 8, JobTimeout: 10 * time.Second},
		Ingest:    common.IngestConfig{UploadDir: t.TempDir()},
		Redaction: common.RedactionConfig{Strict: true},
	}
}

func TestNewLLM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     common.LLMConfig
		check   func(t *testing.T, got any)
		wantErr bool
	}{
		{name: "mock", cfg: common.LLMConfig{Provider: LLMMock}, check: func(t *testing.T, got any) {
			assert.IsType(t, llm.MockExtractor{}, got)
		}},
		{name: "default is mock", cfg: common.LLMConfig{}, check: func(t *testing.T, got any) {
			assert.IsType(t, llm.MockExtractor{}, got)
		}},
		{name: "none", cfg: common.LLMConfig{Provider: LLMNone}, check: func(t *testing.T, got any) {
			assert.Nil(t, got)
		}},
		{name: "openai", cfg: common.LLMConfig{Provider: LLMOpenAI, APIKey: "sk-test"}, check: func(t *testing.T, got any) {
			assert.IsType(t, &openai.Client{}, got)
		}},
		{name: "openai without key", cfg: common.LLMConfig{Provider: LLMOpenAI}, wantErr: true},
		{name: "unknown", cfg: common.LLMConfig{Provider: "bard"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLLM(tt.cfg, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestNewOCR(t *testing.T) {
	got, err := NewOCR(common.OCRConfig{Provider: "mock"}, nil)
	require.NoError(t, err)
	assert.IsType(t, ocr.MockExtractor{}, got)

	_, err = NewOCR(common.OCRConfig{Provider: "carbon-paper"}, nil)
	require.Error(t, err)
}

func TestNew_UnknownQueue(t *testing.T) {
	cfg := testConfig(t)
	cfg.Queue.Backend = "kafka"
	_, err := New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown queue backend")
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	path := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))
	user := uuid.New()

	res, err := a.Ingest.Submit(ctx, user, path)
	require.NoError(t, err)

	jobs := a.Store.Repos().Jobs
	require.Eventually(t, func() bool {
		job, err := jobs.GetForUser(ctx, res.JobID, user)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 20*time.Millisecond)

	job, err := jobs.GetForUser(ctx, res.JobID, user)
	require.NoError(t, err)
	require.Equal(t, constants.JobStatusCompleted, job.Status, "error: %v", job.Error)
	require.NotNil(t, job.ProductID)

	product, err := a.Service.GetProduct(ctx, user, *job.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "테스트마트", product["store"])

	data, err := a.Service.ExportProducts(ctx, user, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
