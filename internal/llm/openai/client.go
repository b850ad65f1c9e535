package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/extract"
	"github.com/joseph-ayodele/warranty-tracker/internal/httpjson"
	"github.com/joseph-ayodele/warranty-tracker/internal/llm"
)

// ErrNoChoices is returned when the completion carries no message.
var ErrNoChoices = errors.New("no choices in completion response")

// ExtractFields implements extract.FieldExtractor. Every failure is logged and
// yields an empty Fields so the pipeline carries on with the rule result.
func (c *Client) ExtractFields(ctx context.Context, rawText string) extract.Fields {
	f, err := c.Extract(ctx, rawText)
	if err != nil {
		return extract.Fields{}
	}
	return f
}

// Extract calls chat/completions and returns the sanitized, schema-checked
// fields. Values are left for extract.NormalizeFields to type.
func (c *Client) Extract(ctx context.Context, rawText string) (extract.Fields, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(rawText),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("llm.extract.rate_wait_aborted", "req_id", rid, "error", err)
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": llm.SystemPrompt},
			{"role": "user", "content": llm.BuildUserPrompt(rawText)},
		},
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := httpjson.Send(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return nil, ErrNoChoices
	}

	parsed := llm.ParseJSONObject(strings.TrimSpace(cc.Choices[0].Message.Content))
	if len(parsed) == 0 {
		c.logger.Warn("llm.extract.no_json", "req_id", rid, "content_len", len(cc.Choices[0].Message.Content))
		return extract.Fields{}, nil
	}

	clean, notes := llm.SanitizeFields(parsed)
	if len(notes) > 0 {
		c.logger.Debug("llm.extract.sanitized", "req_id", rid, "notes", notes)
	}
	valid, dropped, err := llm.DropInvalid(c.schema, clean)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		c.logger.Warn("llm.extract.schema_dropped", "req_id", rid, "keys", dropped)
	}

	out := extract.Fields(valid)
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"keys", out.Keys(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
