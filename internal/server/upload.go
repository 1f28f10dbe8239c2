package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
)

// handleUpload accepts a card image in "image" (or "file") and an optional
// second side in "back". With mode=both the sides come in "frontFile" and
// "backFile" and both are required. Temp copies are always removed.
func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.opts.UploadMaxBytes+(1<<20))
	if err := r.ParseMultipartForm(s.opts.UploadMaxBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, common.NewAppError("INVALID_INPUT", "expected a multipart form", common.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	frontFields, backFields := []string{"image", "file"}, []string{"back"}
	both := r.FormValue("mode") == "both"
	if both {
		frontFields, backFields = []string{"frontFile", "image"}, []string{"backFile", "back"}
	}

	front, err := s.saveFirst(r, frontFields...)
	if front != "" {
		defer os.Remove(front)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	back, err := s.saveFirst(r, backFields...)
	if back != "" {
		defer os.Remove(back)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case both && (front == "" || back == ""):
		writeError(w, r, common.NewAppError("INVALID_INPUT", "both front and back files are required", common.ErrInvalidInput))
		return
	case front == "":
		writeError(w, r, common.NewAppError("INVALID_INPUT", "no image file provided", common.ErrInvalidInput))
		return
	}

	res, err := s.deps.Contacts.Upload(r.Context(), contacts.UploadRequest{
		UserID:    userFrom(r.Context()).ID,
		FrontPath: front,
		BackPath:  back,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// saveFirst saves the first of fields present in the form.
func (s *HTTPServer) saveFirst(r *http.Request, fields ...string) (string, error) {
	for _, f := range fields {
		path, err := s.saveUpload(r, f)
		if path != "" || err != nil {
			return path, err
		}
	}
	return "", nil
}

// saveUpload copies the form file in field to a temp file and returns its
// path, or "" when the field is absent.
func (s *HTTPServer) saveUpload(r *http.Request, field string) (string, error) {
	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", common.NewAppError("INVALID_INPUT", "read "+field, common.ErrInvalidInput)
	}
	defer file.Close()

	ext := filepath.Ext(hdr.Filename)
	if !constants.IsAllowedExt(ext) {
		return "", common.NewAppError("INVALID_INPUT", fmt.Sprintf("unsupported image type %q", ext), common.ErrInvalidInput)
	}
	if hdr.Size > s.opts.UploadMaxBytes {
		return "", common.NewAppError("INVALID_INPUT", field+" is larger than the upload limit", common.ErrInvalidInput)
	}

	tmp, err := os.CreateTemp(s.opts.UploadDir, "card-*."+constants.NormalizeExt(ext))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		return tmp.Name(), fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return tmp.Name(), fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}
