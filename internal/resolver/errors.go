package resolver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// ErrUnresolved is the terminal outcome when every provider was tried and
// none produced a coordinate. It is not a server fault: callers
// distinguish "tried everything, found nothing" from unexpected failures.
var ErrUnresolved = eris.New("resolver: could not resolve destination")

// Class categorizes a resolution failure for the transport layer.
type Class int

const (
	// ClassBadRequest marks malformed input, fatal to the single request.
	ClassBadRequest Class = iota + 1
	// ClassBadGateway marks a non-2xx or malformed upstream response.
	ClassBadGateway
	// ClassRequestTimeout marks an upstream request timeout.
	ClassRequestTimeout
	// ClassServiceUnavailable marks network or DNS failure reaching an
	// upstream.
	ClassServiceUnavailable
	// ClassNotFound marks the terminal unresolved outcome.
	ClassNotFound
	// ClassInternal marks anything unexpected.
	ClassInternal
)

// String returns the wire name of the class.
func (c Class) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassBadGateway:
		return "bad_gateway"
	case ClassRequestTimeout:
		return "request_timeout"
	case ClassServiceUnavailable:
		return "service_unavailable"
	case ClassNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps the class to its HTTP status code.
func (c Class) HTTPStatus() int {
	switch c {
	case ClassBadRequest:
		return http.StatusBadRequest
	case ClassBadGateway:
		return http.StatusBadGateway
	case ClassRequestTimeout:
		return http.StatusRequestTimeout
	case ClassServiceUnavailable:
		return http.StatusServiceUnavailable
	case ClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error attaches a Class to an underlying cause.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a failure class.
func NewError(class Class, err error) *Error {
	return &Error{Class: class, Err: err}
}

// ClassOf extracts the failure class from an error chain. Unclassified
// errors are internal.
func ClassOf(err error) Class {
	if err == nil {
		return 0
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Class
	}
	if errors.Is(err, ErrUnresolved) {
		return ClassNotFound
	}
	return ClassInternal
}

// ClassifyTransport maps a transport-level error from an upstream fetch
// to its failure class: timeouts, then connection/DNS failures, else
// internal.
func ClassifyTransport(err error) Class {
	if err == nil {
		return 0
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRequestTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassRequestTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassServiceUnavailable
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return ClassServiceUnavailable
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"no such host",
		"connection refused",
		"connection reset by peer",
		"network is unreachable",
	} {
		if strings.Contains(msg, p) {
			return ClassServiceUnavailable
		}
	}

	return ClassInternal
}
