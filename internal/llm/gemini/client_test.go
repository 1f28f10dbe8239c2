package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/llm"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: s}}},
	}}}
}

func testClient(m generator) *Client {
	return newClient(Config{Temperature: 0.1}, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractFromImage(t *testing.T) {
	m := &fakeModels{resp: textResponse(` {"company":"Acme","phones":[]} `)}
	out, err := testClient(m).ExtractFromImage(context.Background(), "gemini-2.5-flash", []byte{0xff, 0xd8}, "image/jpeg", "read the card")
	require.NoError(t, err)
	assert.Equal(t, `{"company":"Acme","phones":[]}`, out)

	assert.Equal(t, "gemini-2.5-flash", m.model)
	require.Len(t, m.contents, 1)
	parts := m.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, "read the card", parts[1].Text)
	assert.Equal(t, "application/json", m.config.ResponseMIMEType)
	require.NotNil(t, m.config.Temperature)
	assert.InDelta(t, 0.1, *m.config.Temperature, 1e-6)
}

func TestParseText_Empty(t *testing.T) {
	m := &fakeModels{resp: textResponse("  ")}
	_, err := testClient(m).ParseText(context.Background(), "m", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Equal(t, extract.KindUnknown, extract.ClassifyError(err))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want extract.ErrorKind
	}{
		{"invalid key", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."}, extract.KindInvalidCredential},
		{"invalid key in details", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "bad request", Details: []map[string]any{{"reason": "API_KEY_INVALID"}}}, extract.KindInvalidCredential},
		{"pointer", &genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "denied"}, extract.KindPermission},
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Resource has been exhausted"}, extract.KindQuota},
		{"model missing", genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "models/gemini-x is not found"}, extract.KindNotFound},
		{"server", genai.APIError{Code: 500, Status: "INTERNAL", Message: "internal"}, extract.KindUnknown},
		{"wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 429, Message: "slow down"}), extract.KindQuota},
		{"plain", errors.New("dial tcp: i/o timeout"), extract.KindUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := &fakeModels{err: c.err}
			_, err := testClient(m).ParseText(context.Background(), "gemini-2.5-pro", "p")
			require.Error(t, err)

			var be *extract.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, "gemini-2.5-pro", be.Model)
			assert.Equal(t, c.want, be.Kind)
			assert.Equal(t, c.want, extract.ClassifyError(err))
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewClient(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
