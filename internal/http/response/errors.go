package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/lawlink/lawlink-api/internal/domain"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUpstreamAuth  = "UPSTREAM_AUTH_FAILURE"
	CodeInternalError = "INTERNAL_ERROR"
)

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResp := ErrorResponse{
		Error: message,
		Code:  code,
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// WriteJSON writes any payload as a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// WriteDomainError maps a domain error onto its HTTP status and machine code.
// Unknown errors become a 500 with a generic body; the caller logs the detail.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		resp := ErrorResponse{Error: verr.Error(), Code: CodeInvalidInput, Field: verr.Field}
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			log.Printf("failed to encode error response: %v", encErr)
		}
		return
	}

	var upstream *domain.UpstreamAuthError
	if errors.As(err, &upstream) {
		WriteError(w, http.StatusBadGateway, upstream.Error(), CodeUpstreamAuth)
		return
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		WriteError(w, http.StatusNotFound, notFound.Error(), CodeNotFound)
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		WriteError(w, http.StatusConflict, conflict.Message, conflict.Code)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid credentials", CodeUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "you do not have access to this resource", CodeForbidden)
	default:
		WriteError(w, http.StatusInternalServerError, "something went wrong", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}
