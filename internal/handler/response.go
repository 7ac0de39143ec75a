package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondOutcome maps the orchestrator's outcome vocabulary to the wire.
// OK and ACCEPTED carry data in the success envelope; the rest become the
// error envelope with the outcome's message passed through verbatim.
func RespondOutcome(w http.ResponseWriter, oc outcome.Outcome, data any) {
	switch oc.Code {
	case outcome.CodeOK:
		RespondSuccess(w, http.StatusOK, data)
	case outcome.CodeAccepted:
		RespondSuccess(w, http.StatusAccepted, data)
	case outcome.CodeNotFound:
		RespondAppError(w, withMessage(ErrResourceNotFound, oc.Message), nil)
	case outcome.CodeForbidden:
		RespondAppError(w, &AppError{http.StatusForbidden, "FORBIDDEN", oc.Message}, nil)
	case outcome.CodeInternal:
		RespondAppError(w, withMessage(ErrInternalError, oc.Message), nil)
	case outcome.CodeNotImplemented:
		RespondAppError(w, &AppError{http.StatusNotImplemented, "NOT_IMPLEMENTED", "Operation is not supported by this deployment"}, nil)
	default:
		slog.Error("unhandled outcome code", "code", oc.Code)
		RespondAppError(w, ErrInternalError, nil)
	}
}

func withMessage(base *AppError, msg string) *AppError {
	if msg == "" {
		return base
	}
	return &AppError{Status: base.Status, Code: base.Code, Message: msg}
}
