package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/cardscan/constants"
)

// ReadImage loads an image and derives the MIME type from its extension.
func ReadImage(path string) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(b) == 0 {
		return nil, "", fmt.Errorf("read image: %s is empty", path)
	}
	return b, constants.MimeForExt(filepath.Ext(path)), nil
}

// DataURL encodes image bytes as a base64 data URL.
func DataURL(b []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}
