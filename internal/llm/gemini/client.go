package gemini

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/llm"
)

var (
	_ extract.VisionBackend = (*Client)(nil)
	_ extract.TextBackend   = (*Client)(nil)
)

// ExtractFromImage sends the image inline together with the vision prompt.
func (c *Client) ExtractFromImage(ctx context.Context, model string, image []byte, mimeType, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, "vision", model, contents, len(image))
}

// ParseText asks the model to structure already-extracted card text.
func (c *Client) ParseText(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return c.generate(ctx, "text", model, contents, len(prompt))
}

func (c *Client) generate(ctx context.Context, kind, model string, contents []*genai.Content, inputBytes int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		c.logger.Debug("gemini.generate.error",
			"kind", kind, "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", mapError(model, err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		return "", &extract.BackendError{Kind: extract.KindUnknown, Model: model, Err: llm.ErrEmptyResponse}
	}
	c.logger.Debug("gemini.generate.ok",
		"kind", kind, "model", model,
		"input_bytes", inputBytes, "output_bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
