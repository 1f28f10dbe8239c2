package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/llm"
)

const (
	passVision = "vision"
	passOCR    = "ocr"
	passText   = "text"
	passRegex  = "regex"
)

// Extractor turns a card image into a ContactRecord through an ordered
// fallback chain: vision, plain OCR, text parsing, regex.
type Extractor struct {
	cfg      Config
	backends Backends
	preparer Preparer
	logger   *slog.Logger
	metrics  *Metrics
	classify func(error) ErrorKind
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithPreparer converts inputs (e.g. HEIC photos) before they are read.
func WithPreparer(p Preparer) Option {
	return func(e *Extractor) { e.preparer = p }
}

// WithMetrics records attempts and results.
func WithMetrics(m *Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithClassifier replaces ClassifyError.
func WithClassifier(fn func(error) ErrorKind) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.classify = fn
		}
	}
}

func New(cfg Config, backends Backends, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Models) == 0 {
		cfg.Models = append([]string(nil), DefaultModels...)
	}
	e := &Extractor{
		cfg:      cfg,
		backends: backends,
		logger:   logger,
		classify: ClassifyError,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Extractor) visionEnabled() bool { return e.cfg.VisionEnabled && e.backends.Vision != nil }
func (e *Extractor) textEnabled() bool   { return e.cfg.TextEnabled && e.backends.Text != nil }
func (e *Extractor) ocrEnabled() bool    { return e.cfg.OCREnabled && e.backends.OCR != nil }

// Extract reads the image at path and runs the fallback chain. Ordinary failure
// yields SentinelRecord with a nil error; an error is returned only when the
// vision pass hits a credential or permission failure, or ctx ends.
func (e *Extractor) Extract(ctx context.Context, path string) (ContactRecord, error) {
	if e.preparer != nil {
		out, cleanup, err := e.preparer.Prepare(ctx, path)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			e.logger.Error("extract.prepare_failed", "path", path, "error", err)
			return ContactRecord{}, fmt.Errorf("prepare %s: %w", filepath.Base(path), err)
		}
		path = out
	}
	data, mimeType, err := llm.ReadImage(path)
	if err != nil {
		return ContactRecord{}, err
	}
	return e.ExtractBytes(ctx, data, mimeType)
}

// ExtractBytes runs the fallback chain on an in-memory image.
func (e *Extractor) ExtractBytes(ctx context.Context, image []byte, mimeType string) (ContactRecord, error) {
	rid := uuid.New().String()
	start := time.Now()
	logger := e.logger.With("req_id", rid)
	if mimeType == "" {
		mimeType = constants.MimeForExt("")
	}

	logger.Info("extract.start",
		"bytes", len(image),
		"mime", mimeType,
		"vision", e.visionEnabled(),
		"ocr", e.ocrEnabled(),
		"text", e.textEnabled(),
	)

	var (
		structured *llm.CardFields
		source     string
		raw        string
	)

	// 1) vision
	if e.visionEnabled() {
		prompt := llm.BuildVisionPrompt()
		out, err := runCandidates(ctx, passVision, e.cfg.Models,
			func(ctx context.Context, model string) (string, error) {
				return e.backends.Vision.ExtractFromImage(ctx, model, image, mimeType, prompt)
			}, e.classify, VisionPolicy, logger, e.metrics)
		if err != nil {
			logger.Error("extract.vision.fatal", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return ContactRecord{}, err
		}
		if out.Text != "" {
			fields, perr := llm.ParseCardFields(out.Text, logger)
			if perr != nil {
				logger.Warn("extract.vision.parse_failed", "model", out.Model, "error", perr, "response_bytes", len(out.Text))
			} else {
				structured = &fields
				source = passVision
				raw = fields.RawText
				if strings.TrimSpace(raw) == "" {
					raw = out.Text
				}
			}
		} else {
			logger.Warn("extract.vision.exhausted", "attempts", out.Attempts, "decision", out.Decision.String())
		}
	}

	// 2) plain OCR
	if strings.TrimSpace(raw) == "" {
		if !e.ocrEnabled() {
			logger.Error("extract.failed", "reason", "no raw text and ocr not configured", "elapsed_ms", time.Since(start).Milliseconds())
			e.metrics.observeResult("sentinel")
			return SentinelRecord(), nil
		}
		ocrStart := time.Now()
		text, err := e.backends.OCR.Recognize(ctx, image, mimeType)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ContactRecord{}, ctxErr
			}
			e.metrics.observeAttempt(passOCR, "error", time.Since(ocrStart))
			logger.Error("extract.failed", "reason", "ocr", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			e.metrics.observeResult("sentinel")
			return SentinelRecord(), nil
		}
		e.metrics.observeAttempt(passOCR, "ok", time.Since(ocrStart))
		raw = strings.TrimSpace(text)
		logger.Info("extract.ocr.ok", "text_len", len(raw), "elapsed_ms", time.Since(ocrStart).Milliseconds())
	}

	// 3) text parsing
	if raw != "" && structured == nil && e.textEnabled() {
		prompt := llm.BuildTextParsePrompt(raw)
		out, err := runCandidates(ctx, passText, e.cfg.Models,
			func(ctx context.Context, model string) (string, error) {
				return e.backends.Text.ParseText(ctx, model, prompt)
			}, e.classify, TextPolicy, logger, e.metrics)
		if err != nil {
			// TextPolicy never aborts, so only cancellation gets here
			return ContactRecord{}, err
		}
		if out.Text != "" {
			fields, perr := llm.ParseCardFields(out.Text, logger)
			if perr != nil {
				logger.Warn("extract.text.parse_failed", "model", out.Model, "error", perr)
			} else {
				structured = &fields
				source = passText
			}
		} else {
			logger.Warn("extract.text.skipped", "attempts", out.Attempts, "decision", out.Decision.String())
		}
	}

	// 4) regex, always
	rx := regexPass(raw)
	e.metrics.observeAttempt(passRegex, "ok", 0)

	rec := e.assemble(structured, rx, raw, logger)
	if source == "" {
		source = passRegex
	}
	e.metrics.observeResult(source)
	logger.Info("extract.done",
		"source", source,
		"company", rec.Company,
		"phones", len(rec.Phones),
		"has_email", rec.Email != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (e *Extractor) assemble(structured *llm.CardFields, rx regexResult, raw string, logger *slog.Logger) ContactRecord {
	rec := ContactRecord{Phones: []string{}, RawText: raw}
	if structured != nil {
		rec.Company = e.latin("company", structured.Company, logger)
		rec.PersonName = e.latin("name", structured.Name, logger)
		rec.Phones = mergePhones(structured.Phones)
		rec.Email = strings.TrimSpace(structured.Email)
		rec.Website = strings.TrimSpace(structured.Website)
		rec.Address = strings.TrimSpace(structured.Address)
	}
	if rec.Email == "" {
		rec.Email = rx.Email
	}
	if len(rec.Phones) == 0 {
		rec.Phones = rx.Phones
	}
	return rec
}

func (e *Extractor) latin(field, s string, logger *slog.Logger) string {
	out, rep := ToLatin(s)
	if rep.Transliterated {
		logger.Debug("extract.transliterated", "field", field, "result", out)
	}
	if rep.Dropped > 0 {
		logger.Warn("extract.transliteration_dropped", "field", field, "dropped_letters", rep.Dropped)
	}
	return out
}

// ExtractPair extracts the front and back of a card and merges them. Front
// fields win; empty ones are taken from the back.
func (e *Extractor) ExtractPair(ctx context.Context, frontPath, backPath string) (ContactRecord, error) {
	front, err := e.Extract(ctx, frontPath)
	if err != nil {
		return ContactRecord{}, fmt.Errorf("front: %w", err)
	}
	back, err := e.Extract(ctx, backPath)
	if err != nil {
		return ContactRecord{}, fmt.Errorf("back: %w", err)
	}
	return MergeSides(front, back), nil
}

// MergeSides combines two records of the same card.
func MergeSides(front, back ContactRecord) ContactRecord {
	frontFailed, backFailed := IsSentinel(front), IsSentinel(back)
	switch {
	case frontFailed && backFailed:
		return SentinelRecord()
	case frontFailed:
		return back
	case backFailed:
		return front
	}

	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	out := ContactRecord{
		Company:    pick(front.Company, back.Company),
		PersonName: pick(front.PersonName, back.PersonName),
		Phones:     mergePhones(front.Phones, back.Phones),
		Email:      pick(front.Email, back.Email),
		Website:    pick(front.Website, back.Website),
		Address:    pick(front.Address, back.Address),
	}
	switch {
	case front.RawText != "" && back.RawText != "":
		out.RawText = front.RawText + "\n\n--- BACK ---\n\n" + back.RawText
	default:
		out.RawText = pick(front.RawText, back.RawText)
	}
	return out
}
