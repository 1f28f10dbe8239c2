package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyResponse is returned when a backend answered with no usable text.
var ErrEmptyResponse = errors.New("empty model response")

// ParseCardFields turns a raw model answer into CardFields. The answer may be
// fenced, may use any key casing, and is validated against the card schema with
// a lenient second attempt.
func ParseCardFields(text string, logger *slog.Logger) (CardFields, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body := StripCodeFences(text)
	if body == "" {
		return CardFields{}, ErrEmptyResponse
	}

	doc, _, err := NormalizeAndSanitizeJSON([]byte(body), logger)
	if err != nil {
		return CardFields{}, fmt.Errorf("parse card json: %w", err)
	}

	if err := ValidateCardJSON(doc); err != nil {
		cleaned, changed, sErr := SanitizeOptionalFields(doc)
		if sErr != nil {
			return CardFields{}, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := ValidateCardJSON(cleaned); vErr != nil {
			return CardFields{}, fmt.Errorf("schema validation failed: %w", vErr)
		}
		logger.Debug("llm.parse.lenient_sanitize_applied", "changed", changed, "strict_error", err.Error())
		doc = cleaned
	}

	var out CardFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return CardFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	if out.Phones == nil {
		out.Phones = []string{}
	}
	return out, nil
}
