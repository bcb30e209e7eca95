package api

import (
	"encoding/json"
	"net/http"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// WriteEngineError maps an engine error to its HTTP status and writes it
// as a JSON error response.
func WriteEngineError(w http.ResponseWriter, err error) {
	WriteJSONError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	kind, ok := domain.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domain.InvalidArgument, domain.InvalidQuery, domain.InvalidUpdate,
		domain.InvalidDocument, domain.ImmutableField:
		return http.StatusBadRequest
	case domain.NotFound:
		return http.StatusNotFound
	case domain.DuplicateKey, domain.Conflict:
		return http.StatusConflict
	case domain.LockTimeout, domain.BackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
