package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure. Every error that crosses a service
// boundary is wrapped with exactly one Kind so callers can branch without
// string matching.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration: unsupported media kind, missing provider credentials.
	KindConfiguration
	// KindExternalService: download or provider-call failure, including
	// non-success upstream responses.
	KindExternalService
	// KindTimeout: a stage exceeded its ceiling.
	KindTimeout
	// KindParse: model output not parseable as the expected structure.
	KindParse
	// KindValidation: no content available, malformed request payload.
	KindValidation
	// KindNotFound: missing or not-owned resource.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindExternalService:
		return "external_service"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Configuration(format string, args ...any) *Error {
	return New(KindConfiguration, format, args...)
}

func ExternalService(err error, format string, args ...any) *Error {
	return Wrap(KindExternalService, err, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

func Parse(err error, format string, args ...any) *Error {
	return Wrap(KindParse, err, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a pipeline error onto the surfaced status codes:
// 400 for bad input, 404 for ownership/missing, 502 for upstream failures,
// 500 otherwise.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService, KindTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
