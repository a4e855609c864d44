// Package httpjson writes JSON responses and the API error envelope.
package httpjson

import (
	"encoding/json"
	"net/http"

	"github.com/may5ra/server-stream-one/internal/log"
)

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Write encodes v as the response body.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("http")
		logger.Debug().Err(err).Msg("write json")
	}
}

// Error writes an APIError. 5xx errors are logged.
func Error(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		logger := log.WithComponent("http")
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	Write(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
