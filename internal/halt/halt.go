// Package halt provides the signal value a pipeline stage raises to
// terminate request processing with a specific HTTP outcome.
package halt

import (
	"errors"
	"fmt"
	"net/http"
)

// Signal is a typed error that short-circuits the remaining pipeline.
// A Signal with Outcome set represents a deliberate, well-formed HTTP
// response (404, 405, 304, ...); one without is an internal failure and
// is always surfaced as a 500-class response.
type Signal struct {
	// Status is the HTTP status code to respond with.
	Status int

	// Header holds response headers the signal carries (may be nil).
	Header http.Header

	// Body is the response body the signal carries (may be nil).
	Body []byte

	// Outcome marks the signal as an intended HTTP outcome rather than
	// an internal failure.
	Outcome bool

	// Debug is an optional diagnostic payload. It is substituted for the
	// body only when the triggering request asked for debug output.
	Debug any
}

// Error implements the error interface.
func (s *Signal) Error() string {
	if !s.Outcome {
		return fmt.Sprintf("internal failure (%d %s)", s.HTTPStatus(), http.StatusText(s.HTTPStatus()))
	}
	return fmt.Sprintf("%d %s", s.Status, http.StatusText(s.Status))
}

// HTTPStatus returns the status code to write, defaulting to 500 when
// none was set.
func (s *Signal) HTTPStatus() int {
	if s.Status != 0 {
		return s.Status
	}
	return http.StatusInternalServerError
}

// New creates a signal carrying an intended HTTP outcome.
func New(status int) *Signal {
	return &Signal{Status: status, Outcome: true}
}

// NewFailure creates a signal marking an internal failure. The message
// becomes the debug payload; the response stays a minimal 500 unless the
// request asked for debug output.
func NewFailure(message string) *Signal {
	return &Signal{Status: http.StatusInternalServerError, Debug: message}
}

// WithHeader adds a response header to the signal.
func (s *Signal) WithHeader(key, value string) *Signal {
	if s.Header == nil {
		s.Header = make(http.Header)
	}
	s.Header.Set(key, value)
	return s
}

// WithBody sets the response body the signal carries.
func (s *Signal) WithBody(body []byte) *Signal {
	s.Body = body
	return s
}

// WithDebug attaches a diagnostic payload to the signal.
func (s *Signal) WithDebug(v any) *Signal {
	s.Debug = v
	return s
}

// As unwraps err into a Signal, reporting whether one was found.
func As(err error) (*Signal, bool) {
	var s *Signal
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}

// Convenience constructors for the pipeline's outcome set

// BadRequest creates a 400 signal.
func BadRequest() *Signal { return New(http.StatusBadRequest) }

// Unauthorized creates a 401 signal.
func Unauthorized() *Signal { return New(http.StatusUnauthorized) }

// Forbidden creates a 403 signal.
func Forbidden() *Signal { return New(http.StatusForbidden) }

// NotFound creates a 404 signal.
func NotFound() *Signal { return New(http.StatusNotFound) }

// MethodNotAllowed creates a 405 signal.
func MethodNotAllowed() *Signal { return New(http.StatusMethodNotAllowed) }

// NotAcceptable creates a 406 signal.
func NotAcceptable() *Signal { return New(http.StatusNotAcceptable) }

// PreconditionFailed creates a 412 signal.
func PreconditionFailed() *Signal { return New(http.StatusPreconditionFailed) }

// URITooLong creates a 414 signal.
func URITooLong() *Signal { return New(http.StatusRequestURITooLong) }

// NotModified creates a 304 signal.
func NotModified() *Signal { return New(http.StatusNotModified) }

// NotImplemented creates a 501 signal.
func NotImplemented() *Signal { return New(http.StatusNotImplemented) }

// ServiceUnavailable creates a 503 signal.
func ServiceUnavailable() *Signal { return New(http.StatusServiceUnavailable) }
