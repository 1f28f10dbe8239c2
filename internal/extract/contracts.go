package extract

import (
	"context"
	"strings"
)

// FailureSentinel is the rawText of a record produced when every backend failed.
const FailureSentinel = "OCR extraction failed. Please check your API keys or try again later."

// ContactRecord is the normalized result of one extraction.
type ContactRecord struct {
	Company    string   `json:"company"`
	PersonName string   `json:"name"`
	Phones     []string `json:"phones"`
	Email      string   `json:"email"`
	Website    string   `json:"website"`
	Address    string   `json:"address"`
	RawText    string   `json:"rawText"`
}

// SentinelRecord returns the all-empty record reported on total failure.
func SentinelRecord() ContactRecord {
	return ContactRecord{Phones: []string{}, RawText: FailureSentinel}
}

// IsSentinel distinguishes "pipeline broken" from "nothing found on the card".
func IsSentinel(r ContactRecord) bool {
	return r.Company == "" && len(r.Phones) == 0 && strings.Contains(r.RawText, FailureSentinel)
}

// VisionBackend extracts card JSON from an image with the given model variant.
type VisionBackend interface {
	ExtractFromImage(ctx context.Context, model string, image []byte, mimeType, prompt string) (string, error)
}

// TextBackend structures already-extracted text with the given model variant.
type TextBackend interface {
	ParseText(ctx context.Context, model, prompt string) (string, error)
}

// OCRBackend returns the plain text found in an image.
type OCRBackend interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Preparer converts an input file into something the backends accept (e.g. HEIC to PNG).
// cleanup may be nil.
type Preparer interface {
	Prepare(ctx context.Context, path string) (out string, cleanup func(), err error)
}

// Backends groups the injected collaborators. A nil backend is treated as unconfigured.
type Backends struct {
	Vision VisionBackend
	Text   TextBackend
	OCR    OCRBackend
}

// Config is the explicit credential/presence configuration of an Extractor.
type Config struct {
	VisionEnabled bool
	TextEnabled   bool
	OCREnabled    bool
	Models        []string
}

// DefaultModels is the variant priority order used when Config.Models is empty.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash-exp"}
