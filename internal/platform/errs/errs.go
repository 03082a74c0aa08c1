// Package errs defines the error taxonomy shared by the clinic core.
// Handlers translate these into HTTP status codes at the boundary;
// the domain packages never inspect HTTP concepts directly.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for boundary translation.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindTimeout
	KindInvalidStage
	KindIdentifierGeneration
)

// Error carries a kind, an optional offending field, and a message.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed input with field-level detail.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// NotFound reports an unresolved lookup id or foreign key.
func NotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %v not found", entity, id)}
}

// Conflict reports a uniqueness race that survived bounded retries.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Timeout reports a store operation that exceeded its deadline.
func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Msg: msg}
}

// InvalidStage reports an unrecognized workflow stage name.
func InvalidStage(name string) *Error {
	return &Error{Kind: KindInvalidStage, Field: "stage", Msg: fmt.Sprintf("invalid stage: %s", name)}
}

// IdentifierGeneration reports a prior patient identifier whose numeric
// suffix could not be parsed.
func IdentifierGeneration(msg string, err error) *Error {
	return &Error{Kind: KindIdentifierGeneration, Msg: msg, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInternal, false
}

func IsValidation(err error) bool { k, ok := kindOf(err); return ok && k == KindValidation }
func IsNotFound(err error) bool   { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool   { k, ok := kindOf(err); return ok && k == KindConflict }
func IsTimeout(err error) bool    { k, ok := kindOf(err); return ok && k == KindTimeout }
func IsInvalidStage(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidStage
}
func IsIdentifierGeneration(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindIdentifierGeneration
}

// FromStore normalizes a repository error. Context deadline expiry becomes
// a Timeout so callers see a 503-equivalent instead of a raw context error.
func FromStore(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Msg: fmt.Sprintf("%s: store timeout", op), Err: err}
	}
	return err
}

// HTTPStatus maps an error to the status code the boundary should return.
func HTTPStatus(err error) int {
	switch k, _ := kindOf(err); k {
	case KindValidation, KindInvalidStage, KindIdentifierGeneration:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
