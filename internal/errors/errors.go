// Package errors defines the error shape shared by the payment core and its
// adapters. Every failure that crosses a package boundary is a *DomainError
// carrying a kind, a stable reason code and a retryable flag.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError for propagation and transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindBusinessRule Kind = "business_rule"
	KindGateway      Kind = "gateway"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// DomainError is a typed, code-carrying error.
type DomainError struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches another DomainError with the same kind and code, so sentinels
// survive being re-created with a different message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e with err attached as the cause.
func (e *DomainError) Wrap(err error) *DomainError {
	cp := *e
	cp.Err = err
	return &cp
}

func Validation(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

func BusinessRule(code, message string) *DomainError {
	return &DomainError{Kind: KindBusinessRule, Code: code, Message: message}
}

func Gateway(code, message string, retryable bool) *DomainError {
	return &DomainError{Kind: KindGateway, Code: code, Message: message, Retryable: retryable}
}

func NotFound(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

func Forbidden(code, message string) *DomainError {
	return &DomainError{Kind: KindForbidden, Code: code, Message: message}
}

func Conflict(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message, Retryable: true}
}

// Internal wraps an unexpected fault. Internal errors are reported as
// SYSTEM_ERROR and are retryable.
func Internal(err error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: CodeSystemError, Message: "internal error", Retryable: true, Err: err}
}

// CodeSystemError is the reason code used for faults with no better mapping.
const CodeSystemError = "SYSTEM_ERROR"

// As extracts the first DomainError in err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Normalize converts any error into a DomainError. Errors that are already
// DomainErrors are returned as-is; anything else becomes Internal.
func Normalize(err error) *DomainError {
	if err == nil {
		return nil
	}
	if de, ok := As(err); ok {
		return de
	}
	return Internal(err)
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return Normalize(err).Kind
}

// CodeOf reports the reason code of err, or SYSTEM_ERROR for foreign errors.
func CodeOf(err error) string {
	return Normalize(err).Code
}
