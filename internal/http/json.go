// Package httpx provides rowboat's status and control HTTP API.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/rowboat-io/rowboat/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g. client disconnect) can't be recovered from here.
		return
	}
}

// WriteError maps an application error to a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			code = http.StatusNotFound
		case apperrors.ErrCodeConflict:
			code = http.StatusConflict
		case apperrors.ErrCodeValidation:
			code = http.StatusBadRequest
		case apperrors.ErrCodeTimeout:
			code = http.StatusGatewayTimeout
		default:
			code = http.StatusInternalServerError
		}
		WriteJSON(w, code, map[string]string{
			"error":   string(appErr.Code),
			"message": appErr.Message,
		})
		return
	}

	WriteJSON(w, code, map[string]string{
		"error":   "internal",
		"message": err.Error(),
	})
}
