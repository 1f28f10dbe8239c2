package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/cardscan/internal/ocr"
)

// OCRAdapter exposes an ocr.Engine as the Extractor's OCRBackend.
type OCRAdapter struct {
	e      ocr.Engine
	logger *slog.Logger
}

func NewOCRAdapter(e ocr.Engine, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Recognize(ctx context.Context, image []byte, mimeType string) (string, error) {
	r, err := a.e.Recognize(ctx, image, mimeType)
	if len(r.Warnings) > 0 {
		a.logger.Warn("extract.ocr.warnings", "method", r.Method, "warnings", r.Warnings)
	}
	if err != nil {
		return "", err
	}
	return r.Text, nil
}
