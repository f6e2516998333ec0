// Package apperr defines the error kinds surfaced to users.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/cogniscan/internal/model"
)

// ValidationError is a client-side rejection: file type, size or header.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// AuthenticationError means no usable session credential exists at call time.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required: %s: %v", e.Message, e.Err)
	}
	return "authentication required: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RemoteRequestError is a non-2xx backend response.
type RemoteRequestError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Status, e.Message)
}

// ParseError is a malformed CSV or an I/O failure while reading it.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PartialFailure means one of two concurrent operations in a submission failed
// while the other succeeded.
type PartialFailure struct {
	Operation string
	Errs      []error
}

func (e *PartialFailure) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s partially failed: %s", e.Operation, strings.Join(msgs, "; "))
}

func (e *PartialFailure) Unwrap() []error { return e.Errs }

func Validation(message string) error {
	return &ValidationError{Message: message}
}

func Authentication(message string, err error) error {
	return &AuthenticationError{Message: message, Err: err}
}

// UserMessage returns the text to show for err. Server-provided messages win.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		ae *AuthenticationError
		re *RemoteRequestError
		pe *ParseError
		pf *PartialFailure
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ae):
		return "Please sign in again: " + ae.Message
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &pe):
		return fmt.Sprintf("Could not read %s: %v", pe.File, pe.Err)
	case errors.As(err, &pf):
		return fmt.Sprintf("Some %s could not be generated.", pf.Operation)
	default:
		return "An unexpected error occurred."
	}
}

// Severity maps err onto a notice level. A partial failure is a warning.
func Severity(err error) model.NoticeLevel {
	if err == nil {
		return model.NoticeSuccess
	}
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return model.NoticeWarning
	}
	return model.NoticeError
}

// Notice builds the transient notification for err.
func Notice(title string, err error) model.Notice {
	return model.Notice{Level: Severity(err), Title: title, Text: UserMessage(err)}
}
