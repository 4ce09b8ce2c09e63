package fetch

import (
	"fmt"
	"net/url"

	"resource-fetch/application/http/semantic/status"

	"github.com/pkg/errors"
)

type ErrorClass int

const (
	ClassAuthentication ErrorClass = iota + 1
	ClassClientOrServer
	ClassRedirectLoop
	ClassRedirectLimitExceeded
	ClassTransientTransport
	ClassFatalTransport
)

func (c ErrorClass) String() string {
	switch c {
	case ClassAuthentication:
		return "authentication error"
	case ClassClientOrServer:
		return "client or server error"
	case ClassRedirectLoop:
		return "redirect loop"
	case ClassRedirectLimitExceeded:
		return "redirect limit exceeded"
	case ClassTransientTransport:
		return "transient transport error"
	case ClassFatalTransport:
		return "fatal transport error"
	default:
		return fmt.Sprintf("unknown error class %d", int(c))
	}
}

// Recoverable reports whether [RetryUntilSuccess] retries errors of class c.
func (c ErrorClass) Recoverable() bool {
	switch c {
	case ClassAuthentication, ClassClientOrServer, ClassTransientTransport:
		return true
	default:
		return false
	}
}

var (
	ErrRedirectLoop          = errors.New("URI visited twice")
	ErrRedirectLimitExceeded = errors.New("too many redirects")
)

// Error is a classified fetch failure. Trail holds every hop made before it.
type Error struct {
	Class      ErrorClass
	StatusCode uint
	URI        *url.URL
	Cause      error
	Trail      Trail
}

func (e *Error) Error() string {
	msg := "fetch: " + e.Class.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status: %d %s)", e.StatusCode, status.ReasonPhrase(e.StatusCode))
	}
	if e.URI != nil {
		msg += " at " + e.URI.String()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// IsClass reports whether err is an [*Error] of the given class.
func IsClass(err error, class ErrorClass) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Class == class
}

// TrailOf returns the trail attached to err.
func TrailOf(err error) (Trail, bool) {
	var fe *Error
	if !errors.As(err, &fe) {
		return Trail{}, false
	}
	return fe.Trail, true
}
