// Package api holds the JSON envelope shared by every scanner API handler:
// {"ok": true, "data": ...} on success, {"ok": false, "error": ...} on
// failure, with stable machine-readable error codes.
package api

import (
	"net/http"
	"strings"

	"github.com/wvscan/wvscan/pkg/jsonutil"
)

type Error struct {
	Code    string            `json:"code"`              // stable machine code
	Message string            `json:"message"`           // safe UI message
	Details map[string]string `json:"details,omitempty"` // optional per-field validation errors
}

type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

type APIError struct {
	Status int
	Err    Error
}

type Handler func(r *http.Request) (any, *APIError)

// Wrap adapts a Handler into an http.HandlerFunc that writes the envelope.
func Wrap(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		data, apiErr := h(r)
		if apiErr != nil {
			w.WriteHeader(apiErr.Status)
			_ = jsonutil.MarshalWrite(w, Response{OK: false, Error: &apiErr.Err})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = jsonutil.MarshalWrite(w, Response{OK: true, Data: data})
	}
}

// ReadJSON decodes the request body into dst, rejecting trailing garbage and
// oversized bodies with the right status codes.
func ReadJSON(r *http.Request, dst any) *APIError {
	if err := jsonutil.UnmarshalRead(r.Body, dst); err != nil {
		// http.MaxBytesReader error text starts with "http: request body too large"
		if strings.HasPrefix(err.Error(), "http: request body too large") {
			return &APIError{
				Status: http.StatusRequestEntityTooLarge,
				Err:    Error{Code: "payload_too_large", Message: "request body too large"},
			}
		}
		return &APIError{
			Status: http.StatusBadRequest,
			Err:    Error{Code: "bad_json", Message: "bad json"},
		}
	}
	return nil
}

// ValidationError is a 400 with per-field details.
func ValidationError(details map[string]string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Err: Error{
			Code:    "validation_error",
			Message: "invalid request",
			Details: details,
		},
	}
}

// NotFound is a 404 with a stable code.
func NotFound(message string) *APIError {
	return &APIError{
		Status: http.StatusNotFound,
		Err:    Error{Code: "not_found", Message: message},
	}
}
