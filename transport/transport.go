// Package transport holds what connection-level code shares.
package transport

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"resource-fetch/application/http/semantic"

	"github.com/pkg/errors"
)

// Dialer opens a stream connection. [net.Dialer] satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

var ErrUnknownPort = errors.New("port is unknown for scheme")

// Addr returns the host:port to dial for uri, defaulting the port by scheme.
func Addr(uri *url.URL) (string, error) {
	port := uri.Port()
	if port == "" {
		defaultPort := semantic.DefaultPort(uri.Scheme)
		if defaultPort == 0 {
			return "", errors.Wrapf(ErrUnknownPort, "%q", uri.Scheme)
		}
		port = strconv.FormatUint(uint64(defaultPort), 10)
	}

	return net.JoinHostPort(uri.Hostname(), port), nil
}
