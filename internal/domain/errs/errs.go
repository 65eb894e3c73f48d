// Package errs is the error taxonomy shared by repos, services and handlers.
// Callers match categories with errors.Is against the sentinels below.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation error")
	ErrInvalidState          = errors.New("invalid state")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrCompletionUnavailable = errors.New("completion unavailable")
	ErrDispatchFailure       = errors.New("dispatch failure")
)

// Error carries a category sentinel plus a message and optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NotFound(entity string, id any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %v", entity, id)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func EmbeddingUnavailable(cause error) error {
	return &Error{Kind: ErrEmbeddingUnavailable, Cause: cause}
}

func CompletionUnavailable(cause error) error {
	return &Error{Kind: ErrCompletionUnavailable, Cause: cause}
}

func DispatchFailure(channel string, cause error) error {
	return &Error{Kind: ErrDispatchFailure, Message: "channel " + channel, Cause: cause}
}
