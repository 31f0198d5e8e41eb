package httputil

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error types in API responses
const (
	TypeInvalidArgument = "invalid_argument"
	TypeUnauthorized    = "unauthorized"
	TypeNotFound        = "not_found"
	TypeConflict        = "conflict"
	TypeUnavailable     = "unavailable"
	TypeInternal        = "internal"
)

// ErrorResponse is the standard error body:
// {"detail": "Human readable message", "type": "machine_readable_type"}
type ErrorResponse struct {
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent; an encode failure here is unrecoverable.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an error response in the standard format.
func WriteError(w http.ResponseWriter, status int, errType string, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail, Type: errType})
}

// WriteInvalidArgument writes a 400 with type invalid_argument.
func WriteInvalidArgument(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, TypeInvalidArgument, detail)
}

// WriteUnauthorized writes a 401 with type unauthorized.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusUnauthorized, TypeUnauthorized, detail)
}

// WriteNotFound writes a 404 with type not_found.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, TypeNotFound, detail)
}

// WriteConflict writes a 409 with type conflict.
func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, TypeConflict, detail)
}

// WriteUnavailable writes a 503 with type unavailable.
func WriteUnavailable(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusServiceUnavailable, TypeUnavailable, detail)
}

// WriteInternalError writes a 500 with type internal.
func WriteInternalError(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusInternalServerError, TypeInternal, detail)
}
