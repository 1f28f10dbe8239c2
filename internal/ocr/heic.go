package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/cardscan/constants"
)

// HEICConverter turns HEIC/HEIF photos into PNG before extraction; other
// files pass through unchanged.
type HEICConverter struct {
	converter string // heif-convert | magick | sips
	runner    Runner
	logger    *slog.Logger
}

func NewHEICConverter(converter string, runner Runner, logger *slog.Logger) *HEICConverter {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if converter == "" {
		converter = "magick"
	}
	return &HEICConverter{converter: converter, runner: runner, logger: logger}
}

// Prepare returns (outPath, cleanup, err). cleanup removes the temporary PNG.
func (h *HEICConverter) Prepare(ctx context.Context, in string) (string, func(), error) {
	if !constants.IsHEICExt(filepath.Ext(in)) {
		return in, nil, nil
	}
	tmpDir, err := os.MkdirTemp("", "cardscan-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "card.png")

	var args []string
	switch h.converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := h.runner.Run(ctx, h.converter, args...); err != nil {
		return "", cleanup, fmt.Errorf("%s convert failed: %w: %s", h.converter, err, truncate(string(errb), 512))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	h.logger.Debug("ocr.heic.converted", "in", in, "out", out)
	return out, cleanup, nil
}
