package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/valpere/perevoice/internal/translator"
)

// Failure classes. Every error returned by Service matches exactly one of
// them with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUpstream            = errors.New("upstream failure")
	ErrTimeout             = errors.New("upstream timeout")
)

// classError tags err with a failure class without changing its message,
// which is what callers of the API get to see.
type classError struct {
	class error
	err   error
}

func (e *classError) Error() string   { return e.err.Error() }
func (e *classError) Unwrap() []error { return []error{e.class, e.err} }

func withClass(class, err error) error {
	return &classError{class: class, err: err}
}

func invalid(format string, args ...any) error {
	return withClass(ErrInvalidInput, fmt.Errorf(format, args...))
}

func unsupported(lang string) error {
	return withClass(ErrUnsupportedLanguage, fmt.Errorf("invalid destination language: %s", lang))
}

// StatusFor maps an error from Service to the HTTP status that reports it.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// classify tags an orchestrator error with its failure class.
func classify(err error, targetLang string) error {
	switch {
	case errors.Is(err, translator.ErrUnsupportedLanguage):
		return unsupported(targetLang)
	case errors.Is(err, context.DeadlineExceeded):
		return withClass(ErrTimeout, err)
	default:
		return withClass(ErrUpstream, err)
	}
}
