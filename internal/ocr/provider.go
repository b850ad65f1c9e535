package ocr

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/warranty-tracker/internal/extract"
)

// Provider names accepted by New.
const (
	ProviderVision    = "vision"
	ProviderTesseract = "tesseract"
	ProviderMock      = "mock"
)

// Settings selects and configures one OCR provider.
type Settings struct {
	Provider  string
	Vision    VisionConfig
	Tesseract Config
}

// New builds the configured OCR provider.
func New(s Settings, logger *slog.Logger) (extract.TextExtractor, error) {
	switch s.Provider {
	case ProviderVision:
		c, err := NewVisionClient(s.Vision, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderTesseract:
		return NewExtractor(s.Tesseract, logger), nil
	case ProviderMock, "":
		return MockExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", s.Provider)
	}
}
