package semantic

import (
	"strconv"

	"github.com/pkg/errors"
)

type FramingKind int

const (
	// FramingNone means the response has no content.
	FramingNone FramingKind = iota
	// FramingChunked means the content is chunked transfer-coded.
	FramingChunked
	// FramingLength means the content is exactly ContentLength octets.
	FramingLength
	// FramingClose means the content runs until the connection closes.
	FramingClose
)

// Framing describes where the content of a response ends.
type Framing struct {
	Kind          FramingKind
	ContentLength uint
}

var (
	ErrUnsupportedTransferCoding = errors.New("transfer coding is unsupported")
	ErrInvalidContentLength      = errors.New("content length is invalid")
)

// ResponseFraming determines the message body length of a response.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func ResponseFraming(h Headers, method Method, statusCode uint) (Framing, error) {
	if method == MethodHead ||
		(statusCode >= 100 && statusCode < 200) ||
		statusCode == 204 || statusCode == 304 {
		return Framing{Kind: FramingNone}, nil
	}

	if codings := h.Tokens("Transfer-Encoding"); len(codings) > 0 {
		for _, coding := range codings[:len(codings)-1] {
			if coding != "identity" {
				return Framing{}, errors.Wrapf(ErrUnsupportedTransferCoding, "%q", coding)
			}
		}

		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.1
		switch codings[len(codings)-1] {
		case "chunked":
			return Framing{Kind: FramingChunked}, nil
		case "identity":
			return Framing{Kind: FramingClose}, nil
		default:
			return Framing{}, errors.Wrapf(ErrUnsupportedTransferCoding, "%q", codings[len(codings)-1])
		}
	}

	length, ok, err := extractContentLength(h)
	if err != nil {
		return Framing{}, errors.Wrap(err, "extracting content length")
	}
	if ok {
		return Framing{Kind: FramingLength, ContentLength: length}, nil
	}

	return Framing{Kind: FramingClose}, nil
}

// extractContentLength extracts content length from headers.
// Repeated identical values are accepted.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-10
func extractContentLength(h Headers) (length uint, ok bool, err error) {
	values := h.Tokens("Content-Length")
	if len(values) == 0 {
		return 0, false, nil
	}

	for _, v := range values {
		if v != values[0] {
			return 0, false, errors.Wrapf(ErrInvalidContentLength, "conflicting values %q", values)
		}
	}

	len64, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(ErrInvalidContentLength, "%q", values[0])
	}

	return uint(len64), true, nil
}
