package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// RequestIDHeader carries the id assigned by the request id middleware.
const RequestIDHeader = "X-Request-ID"

// maxRequestBody bounds JSON request bodies. The largest is a message body sent for
// link extraction.
const maxRequestBody = 128 * 1024

var errTrailingData = errors.New("unexpected data after JSON body")

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type DataResponse struct {
	Data any `json:"data"`
}

// RespondJSON writes body as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// RespondData wraps data in the success envelope.
func RespondData(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, DataResponse{Data: data})
}

// RespondError writes the error envelope, echoing the request id so clients can quote it.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func RespondValidationError(w http.ResponseWriter, details map[string]string) {
	RespondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:     "Validation error",
		Code:      "VALIDATION_ERROR",
		Details:   details,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

// DecodeJSON reads exactly one JSON object into v. Unknown fields and oversized bodies
// are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}
