package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an experiment or variant id is unknown.
var ErrNotFound = errors.New("not found")

// InputCode classifies a user input error.
type InputCode string

const (
	CodeInsufficientVariants InputCode = "insufficient_variants"
	CodeMissingControl       InputCode = "missing_control"
	CodeMultipleControls     InputCode = "multiple_controls"
	CodeInvalidTransition    InputCode = "invalid_transition"
	CodeInvalidArgument      InputCode = "invalid_argument"
)

// InputError is a caller-displayable rejection of a malformed request.
type InputError struct {
	Code    InputCode
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// Is matches any InputError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *InputError) Is(target error) bool {
	t, ok := target.(*InputError)
	return ok && t.Code == e.Code
}

var (
	ErrInsufficientVariants = &InputError{Code: CodeInsufficientVariants, Message: "at least 2 variants are required"}
	ErrMissingControl       = &InputError{Code: CodeMissingControl, Message: "a control variant is required"}
	ErrMultipleControls     = &InputError{Code: CodeMultipleControls, Message: "experiment already has a control variant"}
	ErrInvalidTransition    = &InputError{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrInvalidArgument      = &InputError{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// NewInputError builds an InputError with a specific message.
func NewInputError(code InputCode, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// TransitionError reports a refused status transition.
func TransitionError(from, to Status) *InputError {
	return NewInputError(CodeInvalidTransition, "cannot move experiment from %s to %s", from, to)
}
