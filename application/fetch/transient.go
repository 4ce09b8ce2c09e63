package fetch

import (
	"context"
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// transientErrnos are the OS conditions a later attempt may not hit again.
var transientErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	syscall.EAGAIN,
	syscall.EWOULDBLOCK,
}

// IsTransient reports whether a transport error is a recognized transient condition.
// Cancellation is never transient, an expired deadline is a timeout like any other.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyTransport(err error) ErrorClass {
	if IsTransient(err) {
		return ClassTransientTransport
	}
	return ClassFatalTransport
}
