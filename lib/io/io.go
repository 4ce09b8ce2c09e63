package iolib

import (
	"io"

	"github.com/pkg/errors"
)

type readCloser struct {
	io.Reader
	closers []io.Closer
}

// ReadCloser reads from r and closes every closer in order on Close.
// The first close error is returned, after all closers ran.
func ReadCloser(r io.Reader, closers ...io.Closer) io.ReadCloser {
	return &readCloser{Reader: r, closers: closers}
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "closing")
		}
	}
	rc.closers = nil
	return first
}
