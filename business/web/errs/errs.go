// Package errs provides types and support for mapping request failures
// into web responses.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/ledger/business/sys/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context. The message of a trusted error
// is safe to show to the caller.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// Build converts an error returned from a handler into the response and
// status code sent to the caller. Untrusted errors never leak their message.
func Build(err error) (Response, int) {
	switch {
	case validate.IsFieldErrors(err):
		fe := validate.GetFieldErrors(err)
		return Response{Error: "data validation error", Fields: fe.Fields()}, http.StatusBadRequest

	case IsTrusted(err):
		te := GetTrusted(err)
		return Response{Error: te.Err.Error()}, te.Status
	}

	return Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
}
