package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/warranty-tracker/constants"
	"github.com/joseph-ayodele/warranty-tracker/internal/httpjson"
)

// ErrFileAnnotate is returned for a file-level Vision error. The provider's own
// message is not surfaced.
var ErrFileAnnotate = errors.New("VISION_FILE_ANNOTATE_ERROR")

// VisionConfig configures the Google Cloud Vision REST client.
type VisionConfig struct {
	BaseURL     string // e.g. https://vision.googleapis.com/v1/images:annotate
	APIKey      string // sent as the "key" query parameter
	AccessToken string // OAuth2 bearer token, used instead of APIKey when set
	Timeout     time.Duration
}

// VisionClient calls images:annotate for images and files:annotate for PDFs.
type VisionClient struct {
	cfg    VisionConfig
	http   *http.Client
	logger *slog.Logger
}

func NewVisionClient(cfg VisionConfig, logger *slog.Logger) (*VisionClient, error) {
	if cfg.BaseURL == "" || (cfg.APIKey == "" && cfg.AccessToken == "") {
		return nil, errors.New("vision: base url and api key or access token are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.AccessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}))
		hc.Timeout = cfg.Timeout
	}
	return &VisionClient{cfg: cfg, http: hc, logger: logger}, nil
}

// ExtractText implements extract.TextExtractor. pages is only sent for PDFs.
func (c *VisionClient) ExtractText(ctx context.Context, path string, pages []int) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	isPDF := constants.IsPDF(path)
	endpoint, err := c.requestURL(isPDF)
	if err != nil {
		return "", err
	}

	start := time.Now()
	body, err := httpjson.Send(ctx, c.http, endpoint, buildVisionPayload(raw, isPDF, pages), nil, c.logger)
	if err != nil {
		c.logger.Error("ocr.vision.request_failed", "pdf", isPDF, "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	text, err := parseVisionResponse(body)
	if err != nil {
		return "", err
	}
	c.logger.Info("ocr.vision.ok", "pdf", isPDF, "pages", len(pages), "text_len", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

func buildVisionPayload(raw []byte, isPDF bool, pages []int) map[string]any {
	encoded := base64.StdEncoding.EncodeToString(raw)
	if isPDF {
		req := map[string]any{
			"inputConfig": map[string]any{"content": encoded, "mimeType": "application/pdf"},
			"features":    []map[string]any{{"type": "DOCUMENT_TEXT_DETECTION"}},
		}
		if len(pages) > 0 {
			req["pages"] = pages
		}
		return map[string]any{"requests": []any{req}}
	}
	return map[string]any{"requests": []any{map[string]any{
		"image":    map[string]any{"content": encoded},
		"features": []map[string]any{{"type": "TEXT_DETECTION"}},
	}}}
}

// requestURL appends the API key unless the base URL already carries one, and
// switches images:annotate to files:annotate for PDFs.
func (c *VisionClient) requestURL(forPDF bool) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("vision: parse base url: %w", err)
	}
	q := u.Query()
	if c.cfg.AccessToken == "" && q.Get("key") == "" {
		q.Set("key", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	if forPDF {
		u.Path = strings.Replace(u.Path, "images:annotate", "files:annotate", 1)
		u.RawPath = ""
	}
	return u.String(), nil
}

type visionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type visionItem struct {
	// set only on files:annotate, one entry per requested page
	Responses          []visionItem `json:"responses"`
	Error              *visionError `json:"error"`
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	TextAnnotations []struct {
		Description string `json:"description"`
	} `json:"textAnnotations"`
}

func parseVisionResponse(body []byte) (string, error) {
	var resp struct {
		Responses []visionItem `json:"responses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("vision: decode response: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	items := resp.Responses
	if resp.Responses[0].Responses != nil {
		items = nil
		for _, file := range resp.Responses {
			if file.Error != nil {
				return "", ErrFileAnnotate
			}
			items = append(items, file.Responses...)
		}
	}

	var texts []string
	for _, it := range items {
		if it.Error != nil {
			msg := it.Error.Message
			if msg == "" {
				msg = "OCR error"
			}
			return "", errors.New(msg)
		}
		if it.FullTextAnnotation != nil && it.FullTextAnnotation.Text != "" {
			texts = append(texts, it.FullTextAnnotation.Text)
			continue
		}
		if len(it.TextAnnotations) > 0 {
			texts = append(texts, it.TextAnnotations[0].Description)
		}
	}
	return strings.Join(texts, "\n"), nil
}
