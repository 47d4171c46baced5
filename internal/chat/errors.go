package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied indicates a role-policy or participation violation.
	ErrAccessDenied = errors.New("chat: access denied")
	// ErrEditWindowExpired indicates an edit attempted after the 1-hour window.
	ErrEditWindowExpired = errors.New("chat: edit window expired")
	// ErrNotAuthor indicates an edit or delete attempted by a non-author.
	ErrNotAuthor = errors.New("chat: not the message author")
	// ErrMessageNotFound indicates the addressed message does not exist.
	ErrMessageNotFound = errors.New("chat: message not found")
	// ErrEntryNotFound indicates the addressed inbox entry does not exist.
	ErrEntryNotFound = errors.New("chat: inbox entry not found")
)

// ServiceError wraps a storage failure with an operation-scoped code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation-scoped error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
