// Package apperrors defines the error taxonomy shared by every stage of
// question resolution.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the resolution loop can decide whether
// it is fatal, recoverable by repair, or handled locally.
type ErrorKind string

const (
	KindNone                     ErrorKind = ""
	KindUnknownPartition         ErrorKind = "UnknownPartition"
	KindUnknownSchemaElement     ErrorKind = "UnknownSchemaElement"
	KindNoQueryProduced          ErrorKind = "NoQueryProduced"
	KindClassificationParseError ErrorKind = "ClassificationParseError"
	KindQuerySyntaxError         ErrorKind = "QuerySyntaxError"
	KindExecutionError           ErrorKind = "ExecutionError"
	KindTimeout                  ErrorKind = "Timeout"
	KindProviderError            ErrorKind = "ProviderError"
	KindBudgetExhausted          ErrorKind = "BudgetExhausted"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrUnknownPartition         = &Error{Kind: KindUnknownPartition}
	ErrUnknownSchemaElement     = &Error{Kind: KindUnknownSchemaElement}
	ErrNoQueryProduced          = &Error{Kind: KindNoQueryProduced}
	ErrClassificationParseError = &Error{Kind: KindClassificationParseError}
	ErrQuerySyntaxError         = &Error{Kind: KindQuerySyntaxError}
	ErrExecutionError           = &Error{Kind: KindExecutionError}
	ErrTimeout                  = &Error{Kind: KindTimeout}
	ErrProviderError            = &Error{Kind: KindProviderError}
	ErrBudgetExhausted          = &Error{Kind: KindBudgetExhausted}
)

// Error is a classified failure with a human-readable detail.
type Error struct {
	Kind   ErrorKind `json:"error_class"`
	Detail string    `json:"error_detail,omitempty"`
	Cause  error     `json:"-"`
}

// New creates a classified error.
func New(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates a classified error with a formatted detail.
func Newf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind ErrorKind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, ErrTimeout) works
// regardless of detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the ErrorKind from an error chain.
// Returns KindExecutionError for unclassified non-nil errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecutionError
}

// IsFatal reports whether a kind terminates a session immediately instead
// of entering the repair loop.
func IsFatal(kind ErrorKind) bool {
	return kind == KindUnknownPartition || kind == KindProviderError
}
