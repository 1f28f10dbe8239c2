package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/cardscan/internal/extract"
)

// mapError classifies a genai failure for the fallback loop.
func mapError(model string, err error) error {
	return &extract.BackendError{Kind: kindOf(err), Model: model, Err: err}
}

func kindOf(err error) extract.ErrorKind {
	apiErr, ok := asAPIError(err)
	if !ok {
		return extract.ClassifyError(err)
	}

	msg := strings.ToLower(apiErr.Message + " " + fmt.Sprint(apiErr.Details))
	switch {
	case apiErr.Code == http.StatusUnauthorized,
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api key expired"):
		return extract.KindInvalidCredential
	case apiErr.Code == http.StatusForbidden, apiErr.Status == "PERMISSION_DENIED":
		return extract.KindPermission
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED":
		return extract.KindQuota
	case apiErr.Code == http.StatusNotFound, apiErr.Status == "NOT_FOUND":
		return extract.KindNotFound
	}
	return extract.ClassifyError(err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
