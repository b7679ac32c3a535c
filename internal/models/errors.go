// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an expected business-rule failure.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindNotCancellable    ErrorKind = "NOT_CANCELLABLE"
	KindMissingReason     ErrorKind = "MISSING_REASON"
	KindLimitReached      ErrorKind = "LIMIT_REACHED"
	KindAlreadyPresent    ErrorKind = "ALREADY_PRESENT"
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindConflict          ErrorKind = "CONFLICT"
	KindPaymentDeclined   ErrorKind = "PAYMENT_DECLINED"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
)

// DomainError is returned for conditions the caller is expected to handle:
// it never wraps I/O failures. Key/Args select the user-facing message.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Key     string
	Args    []interface{}
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any DomainError of the same kind, so the sentinels below work
// with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound          = &DomainError{Kind: KindNotFound}
	ErrInvalidTransition = &DomainError{Kind: KindInvalidTransition}
	ErrNotCancellable    = &DomainError{Kind: KindNotCancellable}
	ErrMissingReason     = &DomainError{Kind: KindMissingReason}
	ErrLimitReached      = &DomainError{Kind: KindLimitReached}
	ErrAlreadyPresent    = &DomainError{Kind: KindAlreadyPresent}
	ErrValidation        = &DomainError{Kind: KindValidation}
	ErrConflict          = &DomainError{Kind: KindConflict}
	ErrPaymentDeclined   = &DomainError{Kind: KindPaymentDeclined}
	ErrUnauthorized      = &DomainError{Kind: KindUnauthorized}
)

func NewNotFound(resource, id string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Key:     resource + ".not_found",
	}
}

func NewValidationError(key, format string, args ...interface{}) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
		Key:     key,
		Args:    args,
	}
}

func NewDomainError(kind ErrorKind, key, message string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: message, Key: key, Args: args}
}

// AsDomainError unwraps err into a DomainError when it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CollaboratorError wraps a failure from the document store, payment
// provider, object storage or identity backend. It is passed through
// untouched; callers decide whether to retry.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// WrapCollaborator returns nil when err is nil. Domain errors pass through
// unwrapped so business conditions raised by a collaborator keep their kind.
func WrapCollaborator(collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsDomainError(err); ok {
		return err
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}

func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
