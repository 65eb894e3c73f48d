package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/superconnector-backend/internal/domain/errs"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps the errs taxonomy onto an HTTP status and code.
func FromDomain(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrValidation):
		return New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, errs.ErrInvalidState):
		return New(http.StatusConflict, "invalid_state", err)
	case errors.Is(err, errs.ErrEmbeddingUnavailable):
		return New(http.StatusServiceUnavailable, "embedding_unavailable", err)
	case errors.Is(err, errs.ErrCompletionUnavailable):
		return New(http.StatusServiceUnavailable, "completion_unavailable", err)
	case errors.Is(err, errs.ErrDispatchFailure):
		return New(http.StatusBadGateway, "dispatch_failure", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
