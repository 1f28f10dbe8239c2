package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Tesseract runs a local tesseract binary through a Runner.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, runner Runner, logger *slog.Logger) *Tesseract {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte, mimeType string) (Result, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "cardscan-ocr-*")
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	in := filepath.Join(tmpDir, "card"+extForMime(mimeType))
	if err := os.WriteFile(in, image, 0o600); err != nil {
		return Result{}, fmt.Errorf("write temp image: %w", err)
	}

	// tesseract <file> stdout -l <lang> --psm <n>
	args := []string{in, "stdout", "-l", t.cfg.TesseractLang, "--psm", fmt.Sprintf("%d", t.cfg.PSM)}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return Result{Warnings: []string{string(errb)}}, fmt.Errorf("tesseract: %w", err)
	}

	txt := reBoxNoise.ReplaceAllString(string(out), "")
	txt = Normalize(txt)
	t.logger.Info("ocr.tesseract.ok", "text_len", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	return Result{Text: txt, Method: "tesseract", Duration: time.Since(start)}, nil
}

func extForMime(m string) string {
	switch m {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
