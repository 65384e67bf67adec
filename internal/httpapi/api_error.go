package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/John-Robertt/submerge-go/internal/auth"
	"github.com/John-Robertt/submerge-go/internal/fetch"
	"github.com/John-Robertt/submerge-go/internal/group"
	"github.com/John-Robertt/submerge-go/internal/importer"
	"github.com/John-Robertt/submerge-go/internal/model"
	"github.com/John-Robertt/submerge-go/internal/store"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func requestError(code, message, hint string) error {
	return &APIError{Status: http.StatusBadRequest, AppError: model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
		Hint:    hint,
	}}
}

func writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ae *APIError
	if errors.As(err, &ae) {
		WriteError(w, ae.Status, ae.AppError)
		return
	}

	var aue *auth.AuthError
	if errors.As(err, &aue) {
		WriteError(w, aue.Status, aue.AppError)
		return
	}

	// Admin-side fetch validation errors keep their own status mapping.
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		WriteError(w, fe.Status, fe.AppError)
		return
	}

	// Import errors are user content errors => 422.
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		WriteError(w, http.StatusUnprocessableEntity, ie.AppError)
		return
	}

	var ge *group.Error
	if errors.As(err, &ge) {
		WriteError(w, groupErrorStatus(ge.AppError.Code), ge.AppError)
		return
	}

	var se *store.StoreError
	if errors.As(err, &se) {
		WriteError(w, http.StatusInternalServerError, se.AppError)
		return
	}

	// Fallback: internal bug.
	WriteError(w, http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	})
}

func groupErrorStatus(code string) int {
	switch code {
	case "GROUP_NOT_FOUND":
		return http.StatusNotFound
	case "NO_VALID_NODES":
		return http.StatusUnprocessableEntity
	case "INVALID_ARGUMENT":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
