package certerr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error so that callers can tell apart failures that need
// different remediation, e.g. a forged token from an unreachable extraction
// service.
type Kind int

// Constants for Kind
const (
	KindInternal Kind = iota
	KindConfiguration
	KindValidation
	KindConflict
	KindForgery
	KindNameMismatch
	KindTransient
	KindNotFound
	KindPartialIssuance
	KindIncompleteExtraction
	KindRejected
	KindUnauthorized
	KindForbidden
)

// String returns the canonical string representation for the kind; it is
// also used as the "error" member of JSON error responses.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration_error"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindForgery:
		return "forged"
	case KindNameMismatch:
		return "name_mismatch"
	case KindTransient:
		return "transient_error"
	case KindNotFound:
		return "not_found"
	case KindPartialIssuance:
		return "partial_issuance"
	case KindIncompleteExtraction:
		return "incomplete_extraction"
	case KindRejected:
		return "rejected"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "server_error"
	}
}

// Error is the error type used across certledger packages
type Error struct {
	Kind Kind
	// Step names the flow step that failed, e.g. "externally_submitted"
	Step string
	// Address is the ledger address the error relates to, if any
	Address string
	// Timeout is set for transient errors caused by an exceeded deadline
	Timeout bool
	Msg     string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step %s)", msg, e.Step)
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, certerr.Forgery) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels usable with errors.Is
var (
	Configuration        = &Error{Kind: KindConfiguration}
	Validation           = &Error{Kind: KindValidation}
	Conflict             = &Error{Kind: KindConflict}
	Forgery              = &Error{Kind: KindForgery}
	NameMismatch         = &Error{Kind: KindNameMismatch}
	Transient            = &Error{Kind: KindTransient}
	NotFound             = &Error{Kind: KindNotFound}
	PartialIssuance      = &Error{Kind: KindPartialIssuance}
	IncompleteExtraction = &Error{Kind: KindIncompleteExtraction}
	Rejected             = &Error{Kind: KindRejected}
	Unauthorized         = &Error{Kind: KindUnauthorized}
)

func newf(kind Kind, format string, params ...any) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, params...),
	}
}

// ConfigurationErrorf returns a configuration error
func ConfigurationErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindConfiguration, format, params...))
}

// ValidationErrorf returns a validation error naming the violated constraint
func ValidationErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindValidation, format, params...))
}

// ConflictErrorf returns a conflict error
func ConflictErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindConflict, format, params...))
}

// ForgeryError wraps the reason a token was rejected
func ForgeryError(err error) error {
	return errors.WithStack(
		&Error{
			Kind: KindForgery,
			Msg:  "token verification failed",
			Err:  err,
		},
	)
}

// NameMismatchErrorf returns a name mismatch error
func NameMismatchErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindNameMismatch, format, params...))
}

// NotFoundErrorf returns a not found error
func NotFoundErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindNotFound, format, params...))
}

// RejectedErrorf returns an error for input rejected by an upstream service
func RejectedErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindRejected, format, params...))
}

// UnauthorizedErrorf returns an authentication / authorization error
func UnauthorizedErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindUnauthorized, format, params...))
}

// ForbiddenErrorf returns an error for an authenticated caller acting on
// something it does not own
func ForbiddenErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindForbidden, format, params...))
}

// IncompleteExtractionErrorf returns an error for an extraction result that
// lacks a name or a token
func IncompleteExtractionErrorf(format string, params ...any) error {
	return errors.WithStack(newf(KindIncompleteExtraction, format, params...))
}

// TransientError wraps an infrastructure failure that is safe to retry
func TransientError(msg string, timeout bool, err error) error {
	return errors.WithStack(
		&Error{
			Kind:    KindTransient,
			Timeout: timeout,
			Msg:     msg,
			Err:     err,
		},
	)
}

// PartialIssuanceError signals that the external proof was recorded but the
// flow could not complete the named step
func PartialIssuanceError(step string, err error) error {
	return errors.WithStack(
		&Error{
			Kind: KindPartialIssuance,
			Step: step,
			Msg:  "certificate only partially issued",
			Err:  err,
		},
	)
}

// WithStep returns a copy of err's *Error with the step set; errors that are
// not an *Error are wrapped as internal errors.
func WithStep(err error, step string) error {
	return annotate(err, func(e *Error) { e.Step = step })
}

// WithAddress is like WithStep but sets the ledger address
func WithAddress(err error, address string) error {
	return annotate(err, func(e *Error) { e.Address = address })
}

func annotate(err error, set func(*Error)) error {
	if err == nil {
		return nil
	}
	var c Error
	var e *Error
	if errors.As(err, &e) {
		c = *e
	} else {
		c = Error{
			Kind: KindInternal,
			Err:  err,
		}
	}
	set(&c)
	return errors.WithStack(&c)
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err; errors not created by this package are
// KindInternal
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is of the passed Kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus returns the HTTP status code for errors of the passed kind.
// Transient errors map to 503; callers pick their own status for timeouts.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindForgery, KindRejected:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindNameMismatch:
		return http.StatusConflict
	case KindIncompleteExtraction:
		return http.StatusUnprocessableEntity
	case KindPartialIssuance:
		return http.StatusBadGateway
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
