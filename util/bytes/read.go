package bytesutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrLimitExceeded = errors.New("read limit exceeded before delimiter")

// ReadUntil reads from r until delim. The output will include delim.
// EOF before delim is reported as [io.ErrUnexpectedEOF].
func ReadUntil(r *bufio.Reader, delim []byte) ([]byte, error) {
	return ReadUntilLimit(r, delim, 0)
}

// ReadUntilLimit is [ReadUntil] that stops with [ErrLimitExceeded]
// once more than limit bytes were consumed. Zero limit means no limit.
func ReadUntilLimit(r *bufio.Reader, delim []byte, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	last := delim[len(delim)-1]
	for {
		b, err := r.ReadSlice(last)
		buf.Write(b)

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrLimitExceeded
		}

		switch {
		case err == nil:
			if bytes.HasSuffix(buf.Bytes(), delim) {
				return buf.Bytes(), nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			// Keep reading, the line is longer than the reader's buffer.
		case errors.Is(err, io.EOF):
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
