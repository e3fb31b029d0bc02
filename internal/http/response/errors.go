package response

import (
	"encoding/json"
	"net/http"

	"github.com/unionhall/pit-reservations/internal/domain"
	"github.com/unionhall/pit-reservations/pkg/logger"
)

// ErrorResponse is the structured JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotEligible   = "NOT_ELIGIBLE"
	CodeConflict      = "CONFLICT"
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidState  = "INVALID_STATE"
	CodeDuplicate     = "DUPLICATE"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// WriteDomainError maps the failure taxonomy onto HTTP statuses. Unknown
// errors are logged and reported as a generic internal error so internal
// faults never leak to callers.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		WriteError(w, http.StatusBadRequest, domain.MessageOf(err), CodeInvalidInput)
	case domain.KindEligibility:
		WriteError(w, http.StatusForbidden, domain.MessageOf(err), CodeNotEligible)
	case domain.KindConflict:
		WriteError(w, http.StatusConflict, domain.MessageOf(err), CodeConflict)
	case domain.KindNotFound:
		WriteError(w, http.StatusNotFound, domain.MessageOf(err), CodeNotFound)
	case domain.KindState:
		WriteError(w, http.StatusUnprocessableEntity, domain.MessageOf(err), CodeInvalidState)
	case domain.KindDuplicate:
		WriteError(w, http.StatusConflict, domain.MessageOf(err), CodeDuplicate)
	default:
		logger.Error("internal error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
