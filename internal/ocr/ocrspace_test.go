package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k-123", r.Header.Get("apikey"))
		assert.Equal(t, "eng", r.PostForm.Get("language"))
		assert.Equal(t, "false", r.PostForm.Get("isOverlayRequired"))
		assert.Equal(t, "true", r.PostForm.Get("detectOrientation"))
		assert.Equal(t, "true", r.PostForm.Get("scale"))
		assert.Equal(t, "2", r.PostForm.Get("OCREngine"))
		assert.True(t, strings.HasPrefix(r.PostForm.Get("base64Image"), "data:image/png;base64,"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"  ACME CORP\r\n"},{"ParsedText":"98295 50499  "}]}`))
	}))
	defer srv.Close()

	c := NewSpaceClient(Config{SpaceURL: srv.URL, SpaceAPIKey: "k-123"}, nil)
	res, err := c.Recognize(context.Background(), []byte{0x89, 0x50}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "ACME CORP\r\n\n98295 50499", res.Text)
	assert.Equal(t, "ocr-space", res.Method)
}

func TestSpaceClient_DefaultKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "helloworld", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[]}`))
	}))
	defer srv.Close()

	res, err := NewSpaceClient(Config{SpaceURL: srv.URL}, nil).Recognize(context.Background(), []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestSpaceClient_ExitCodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"OCRExitCode":3,"IsErroredOnProcessing":true,"ErrorMessage":["Unable to recognize the file type"]}`))
	}))
	defer srv.Close()

	_, err := NewSpaceClient(Config{SpaceURL: srv.URL}, nil).Recognize(context.Background(), []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpaceFailed)
}

func TestSpaceClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`The API key is invalid`))
	}))
	defer srv.Close()

	_, err := NewSpaceClient(Config{SpaceURL: srv.URL}, nil).Recognize(context.Background(), []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSpaceClient_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "500")
		_, _ = w.Write([]byte(`{"OCRExitCode":1,"Pars`))
	}))
	defer srv.Close()

	_, err := NewSpaceClient(Config{SpaceURL: srv.URL}, nil).Recognize(context.Background(), []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.ErrorContains(t, err, "read ocr.space response")
}
