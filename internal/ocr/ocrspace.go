package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/llm"
)

const (
	defaultSpaceURL = "https://api.ocr.space/parse/imagebase64"
	defaultSpaceKey = "helloworld"
	spaceExitOK     = 1
)

// ErrSpaceFailed reports a non-success OCRExitCode.
var ErrSpaceFailed = errors.New("ocr.space processing failed")

type spaceParsed struct {
	ParsedText string `json:"ParsedText"`
}

type spaceResponse struct {
	OCRExitCode           int           `json:"OCRExitCode"`
	IsErroredOnProcessing bool          `json:"IsErroredOnProcessing"`
	ErrorMessage          any           `json:"ErrorMessage"`
	ParsedResults         []spaceParsed `json:"ParsedResults"`
}

// SpaceClient calls the OCR.space parse API.
type SpaceClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewSpaceClient(cfg Config, logger *slog.Logger) *SpaceClient {
	if cfg.SpaceURL == "" {
		cfg.SpaceURL = defaultSpaceURL
	}
	if cfg.SpaceAPIKey == "" {
		cfg.SpaceAPIKey = defaultSpaceKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Recognize posts the image as a base64 data URL with English, orientation
// detection, rescaling and engine 2.
func (c *SpaceClient) Recognize(ctx context.Context, image []byte, mimeType string) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	form := url.Values{}
	form.Set("base64Image", llm.DataURL(image, mimeType))
	form.Set("language", "eng")
	form.Set("isOverlayRequired", "false")
	form.Set("detectOrientation", "true")
	form.Set("scale", "true")
	form.Set("OCREngine", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SpaceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", c.cfg.SpaceAPIKey)

	c.logger.Info("ocr.space.request", "req_id", rid, "bytes", len(image), "mime", mimeType)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.space.send_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, fmt.Errorf("ocr.space http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocr.space.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("ocr.space.read_error", "req_id", rid, "status", resp.StatusCode, "error", err)
		return Result{}, fmt.Errorf("read ocr.space response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		c.logger.Error("ocr.space.status", "req_id", rid, "status", resp.StatusCode, "body", truncate(string(raw), 512))
		return Result{}, fmt.Errorf("ocr.space status %d", resp.StatusCode)
	}

	var sr spaceResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		c.logger.Error("ocr.space.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return Result{}, fmt.Errorf("decode ocr.space response: %w", err)
	}
	if sr.OCRExitCode != spaceExitOK {
		c.logger.Error("ocr.space.exit_code", "req_id", rid, "exit_code", sr.OCRExitCode, "message", fmt.Sprint(sr.ErrorMessage))
		return Result{}, fmt.Errorf("%w: exit code %d: %v", ErrSpaceFailed, sr.OCRExitCode, sr.ErrorMessage)
	}

	blocks := make([]string, 0, len(sr.ParsedResults))
	for _, p := range sr.ParsedResults {
		blocks = append(blocks, p.ParsedText)
	}
	text := strings.TrimSpace(strings.Join(blocks, "\n"))

	c.logger.Info("ocr.space.ok", "req_id", rid, "blocks", len(blocks), "text_len", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return Result{Text: text, Method: "ocr-space", Duration: time.Since(start)}, nil
}
