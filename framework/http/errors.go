package http

import (
	"errors"
	"net/http"
)

// ErrNextCalledMultipleTimes reports a middleware that called next twice.
// It is a programming error and is never retried.
var ErrNextCalledMultipleTimes = errors.New("next() called multiple times")

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with a status and a user-facing message.
//
//	// Laravel: abort(404, 'User not found')
//	return nil, http.NewHTTPError(404, "User not found")
type HTTPError struct {
	Code    int
	Message string
	Err     error // logged, never shown
}

// NewHTTPError creates an HTTPError. An empty message uses the status text.
func NewHTTPError(code int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &HTTPError{Code: code, Message: message}
}

// Wrap attaches the underlying cause.
func (e *HTTPError) Wrap(err error) *HTTPError {
	e.Err = err
	return e
}

func (e *HTTPError) Error() string   { return e.Message }
func (e *HTTPError) Unwrap() error   { return e.Err }
func (e *HTTPError) StatusCode() int { return e.Code }

// StatusOf returns the HTTP status for err: the first StatusCoder in its
// chain, otherwise 500.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Abort is shorthand for NewHTTPError.
func Abort(code int, message ...string) error {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}
	return NewHTTPError(code, msg)
}
