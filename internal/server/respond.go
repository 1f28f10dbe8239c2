package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
	"github.com/joseph-ayodele/cardscan/internal/extract"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrUnprocessable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrFatalBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var (
		appErr *common.AppError
		verrs  common.ValidationErrors
		dup    *contacts.DuplicateError
	)
	switch {
	case errors.As(err, &dup):
		writeJSON(w, status, map[string]any{
			"error":            dup.Error(),
			"code":             "DUPLICATE",
			"existing_contact": dup.Existing,
			"new_contact":      dup.Incoming,
		})
		return
	case errors.As(err, &verrs):
		body.Error = "validation failed"
		body.Code = "VALIDATION"
		for _, v := range verrs {
			body.Details = append(body.Details, v.Error())
		}
	case errors.As(err, &appErr):
		body.Error = appErr.Message
		body.Code = appErr.Code
	}

	logger := common.LoggerFromContext(r.Context(), nil)
	if status >= http.StatusInternalServerError {
		logger.Error("http.error", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	} else {
		logger.Debug("http.rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return common.NewAppError("INVALID_INPUT", "request body is empty", common.ErrInvalidInput)
		}
		return common.NewAppError("INVALID_INPUT", fmt.Sprintf("invalid JSON body: %v", err), common.ErrInvalidInput)
	}
	return nil
}
