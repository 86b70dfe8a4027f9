package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated      Kind = "unauthenticated"
	KindForbidden            Kind = "forbidden"
	KindValidation           Kind = "validation"
	KindResumeMissing        Kind = "resume_missing"
	KindJobInactive          Kind = "job_inactive"
	KindDuplicateApplication Kind = "duplicate_application"
	KindNotFound             Kind = "not_found"
	KindUpstreamUnavailable  Kind = "upstream_unavailable"
	KindUpstreamTimeout      Kind = "upstream_timeout"
	KindUpstreamError        Kind = "upstream_error"
	KindStore                Kind = "store"
)

// Error carries a Kind so callers can branch with errors.Is against the
// sentinel values below, whatever message or cause it holds.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Message: "not signed in"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "admin role required"}
	ErrValidation           = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrResumeMissing        = &Error{Kind: KindResumeMissing, Message: "upload a resume before applying"}
	ErrJobInactive          = &Error{Kind: KindJobInactive, Message: "job is not accepting applications"}
	ErrDuplicateApplication = &Error{Kind: KindDuplicateApplication, Message: "already applied to this job"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUpstreamUnavailable  = &Error{Kind: KindUpstreamUnavailable, Message: "scoring service unavailable"}
	ErrUpstreamTimeout      = &Error{Kind: KindUpstreamTimeout, Message: "scoring service timed out"}
	ErrUpstreamError        = &Error{Kind: KindUpstreamError, Message: "scoring service error"}
	ErrStore                = &Error{Kind: KindStore, Message: "store error"}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Store wraps a persistence failure. Errors that already carry a Kind are
// returned untouched so a NotFound from a repository stays a NotFound.
func Store(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(KindStore, err, format, args...)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamTimeout
	}
	return ""
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindResumeMissing, KindJobInactive:
		return http.StatusBadRequest
	case KindDuplicateApplication:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage turns any error into text that is safe to show to the person
// who triggered the action. Upstream failures get distinct messages.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUpstreamTimeout:
		return "Scoring is taking longer than expected. Your application is saved; check back later."
	case KindUpstreamUnavailable:
		return "The scoring service is unreachable right now. Your application is saved; try processing again later."
	case KindUpstreamError:
		return "The scoring service could not process this request. Your application is saved."
	case KindStore, "":
		return "Something went wrong while talking to the database. Please try again."
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
