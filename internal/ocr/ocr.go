package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine names accepted by New.
const (
	EngineOCRSpace  = "ocrspace"
	EngineTesseract = "tesseract"
	EngineNone      = "none"
)

type Config struct {
	Engine string

	SpaceAPIKey string        // default "helloworld"
	SpaceURL    string        // default https://api.ocr.space/parse/imagebase64
	Timeout     time.Duration // http client timeout

	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g. 6 is good for a uniform block of text

	HeicConverter string // heif-convert | magick | sips
}

type Result struct {
	Text     string
	Method   string // "ocr-space" | "tesseract"
	Duration time.Duration
	Warnings []string
}

// Engine recognizes plain text in an image.
type Engine interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (Result, error)
}

// New returns the configured engine, or nil for EngineNone.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Engine {
	case "", EngineOCRSpace:
		return NewSpaceClient(cfg, logger), nil
	case EngineTesseract:
		return NewTesseract(cfg, ExecRunner{Logger: logger}, logger), nil
	case EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
