package transfer

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Coding is a content coding name.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4.1
type Coding string

const (
	CodingIdentity Coding = "identity"
	CodingGzip     Coding = "gzip"
	CodingXGzip    Coding = "x-gzip"
	CodingDeflate  Coding = "deflate"
)

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// ParseCoding normalizes a coding name. Empty input is [CodingIdentity].
func ParseCoding(s string) Coding {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CodingIdentity
	}

	return Coding(s)
}

// Supported reports whether [Decompress] can decode c.
func (c Coding) Supported() bool {
	switch c {
	case CodingIdentity, CodingGzip, CodingXGzip, CodingDeflate:
		return true
	default:
		return false
	}
}

// Decompress wraps r with a decoder for coding.
// Closing the result releases the decoder only, never r.
// An empty r decodes to an empty stream whatever the coding.
func Decompress(r io.Reader, coding Coding) (io.ReadCloser, error) {
	if coding == CodingIdentity {
		return io.NopCloser(r), nil
	}
	if !coding.Supported() {
		return nil, errors.Wrapf(ErrUnsupportedCoding, "%q", coding)
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if len(head) == 0 {
		if errors.Is(err, io.EOF) {
			return io.NopCloser(br), nil
		}
		return nil, errors.Wrap(err, "peeking content")
	}

	switch coding {
	case CodingGzip, CodingXGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "creating gzip reader")
		}
		return zr, nil

	default:
		// "deflate" is zlib-wrapped, though some servers send raw deflate data.
		//
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4.1.2
		if isZlibHeader(head) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, errors.Wrap(err, "creating zlib reader")
			}
			return zr, nil
		}
		return flate.NewReader(br), nil
	}
}

// Reference: https://datatracker.ietf.org/doc/html/rfc1950#section-2.2
func isZlibHeader(head []byte) bool {
	if len(head) < 2 {
		return false
	}

	cmf, flg := uint(head[0]), uint(head[1])
	return cmf&0x0f == 8 && (cmf<<8|flg)%31 == 0
}
