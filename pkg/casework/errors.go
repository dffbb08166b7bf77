package casework

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/tokens"
)

// Kind classifies a service failure. The HTTP layer maps kinds to status codes.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindMissingLocation   Kind = "missing_location"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindExpired           Kind = "expired"
	KindAlreadyUsed       Kind = "already_used"
	KindConflict          Kind = "conflict"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindStorage           Kind = "storage_failure"
	KindExternal          Kind = "external_service_failure"
)

// Error is the structured failure every service operation returns.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps offending input fields to a reason (validation only).
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, so errors.Is(err, ErrNotFound) works for any not-found
// failure. A missing location is also a validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindValidation && e.Kind == KindMissingLocation
}

// Sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrMissingLocation   = &Error{Kind: KindMissingLocation, Message: "gps location is required"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrExpired           = &Error{Kind: KindExpired, Message: "link expired"}
	ErrAlreadyUsed       = &Error{Kind: KindAlreadyUsed, Message: "link already used"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrStorage           = &Error{Kind: KindStorage, Message: "storage failure"}
	ErrExternal          = &Error{Kind: KindExternal, Message: "external service failure"}
)

// KindOf returns the kind of err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewError builds a service error of kind.
func NewError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func newError(kind Kind, msg string, err error) *Error {
	return NewError(kind, msg, err)
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// fieldErrors collects validation problems keyed by input field.
type fieldErrors map[string]string

func (f fieldErrors) add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return &Error{
		Kind:    KindValidation,
		Message: "invalid or missing: " + strings.Join(names, ", "),
		Fields:  f,
	}
}

// Validation reports one invalid input field.
func Validation(field, reason string) *Error {
	return validation(field, reason)
}

func validation(field, reason string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Fields:  map[string]string{field: reason},
	}
}

// FromStore classifies a persistence error.
func FromStore(op string, err error) error {
	return fromStore(op, err)
}

func fromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, op+": not found", nil)
	case errors.Is(err, store.ErrStale):
		return newError(KindConflict, op+": case was modified concurrently, reload and retry", nil)
	case errors.Is(err, store.ErrDuplicate):
		return newError(KindConflict, op+": already exists", err)
	}
	return newError(KindStorage, op, err)
}

// fromTransition classifies a lifecycle error.
func fromTransition(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrVendorRequired):
		return newError(KindValidation, "field officer does not belong to the case vendor", nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return newError(KindInvalidTransition, err.Error(), nil)
	}
	return newError(KindStorage, "apply transition", err)
}

// fromToken classifies a token validation failure.
func fromToken(reason error) error {
	switch {
	case errors.Is(reason, tokens.ErrAlreadyUsed):
		return &Error{Kind: KindAlreadyUsed, Message: "this link has already been used"}
	case errors.Is(reason, tokens.ErrExpired):
		return &Error{Kind: KindExpired, Message: "this link has expired"}
	}
	return &Error{Kind: KindNotFound, Message: "invalid link"}
}
