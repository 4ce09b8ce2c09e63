package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"resource-fetch/application/util/rule"
	bytesutil "resource-fetch/util/bytes"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies whether a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// LenientWhitespace replaces all [rule.Whitespaces] on the status line into [rule.SP].
	// And also trims preceding and trailing whitespace.
	// Field lines are never rewritten, so header parsing sees them as received.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
	LenientWhitespace bool

	// MaxFieldLineLength sets the limit of field line length on headers.
	MaxFieldLineLength uint

	// MaxFieldLines sets the limit of the number of field lines.
	MaxFieldLines uint

	// MaxStatusLineLength sets the limit of status line length.
	MaxStatusLineLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         true,
	LenientWhitespace:   true,
	MaxFieldLineLength:  16 << 10,
	MaxFieldLines:       256,
	MaxStatusLineLength: 8 << 10,
}

type StatusLine struct {
	Version      Version
	StatusCode   uint
	ReasonPhrase string
}

// Response is a response head as read from the wire.
// FieldLines are kept raw, without line terminators.
type Response struct {
	StatusLine
	FieldLines [][]byte
	Body       io.Reader
}

var (
	errLineTooLong         = errors.New("line length exceeds limit")
	ErrMissingCRBeforeLF   = errors.New("missing CR before LF")
	ErrFieldLineTooLong    = errors.New("field line length exceeds limit")
	ErrTooManyFieldLines   = errors.New("too many field lines")
	ErrStatusLineTooLong   = errors.New("status line length exceeds limit")
	ErrMalformedStatusLine = errors.New("status line is malformed")
)

type ResponseDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{br: bufio.NewReader(r), opts: opts}
}

// r MUST be a non-nil pointer.
// After Decode, r.Body reads whatever follows the head on the wire.
func (rd *ResponseDecoder) Decode(r *Response) error {
	for {
		if err := rd.decodeStatusLine(&r.StatusLine); err != nil {
			return errors.Wrap(err, "parsing status line")
		}

		lines, err := rd.decodeFieldLines()
		if err != nil {
			return errors.Wrap(err, "parsing field lines")
		}

		// Interim responses are skipped, except 101 which ends the exchange.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.2
		if r.StatusCode >= 100 && r.StatusCode < 200 && r.StatusCode != 101 {
			continue
		}

		r.FieldLines = lines
		r.Body = rd.br
		return nil
	}
}

func (rd *ResponseDecoder) readLine(limit uint) ([]byte, error) {
	b, err := bytesutil.ReadUntilLimit(rd.br, []byte{rule.LF}, limit)
	if err != nil {
		if errors.Is(err, bytesutil.ErrLimitExceeded) {
			return nil, errLineTooLong
		}
		return nil, err
	}

	b = b[:len(b)-1] // Remove LF.

	if len(b) > 0 && b[len(b)-1] == rule.CR {
		b = b[:len(b)-1] // Remove CR.
	} else if !rd.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	return bytes.ReplaceAll(b, []byte{rule.CR}, []byte{rule.SP}), nil
}

func (rd *ResponseDecoder) decodeFieldLines() ([][]byte, error) {
	lines := make([][]byte, 0)
	for {
		line, err := rd.readLine(rd.opts.MaxFieldLineLength)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return nil, ErrFieldLineTooLong
			}
			return nil, errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			// An empty line. This means that there are no more headers.
			return lines, nil
		}

		if rd.opts.MaxFieldLines > 0 && uint(len(lines)) >= rd.opts.MaxFieldLines {
			return nil, ErrTooManyFieldLines
		}

		lines = append(lines, line)
	}
}

func (rd *ResponseDecoder) decodeStatusLine(statLine *StatusLine) error {
	var line []byte
	for {
		b, err := rd.readLine(rd.opts.MaxStatusLineLength)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return ErrStatusLineTooLong
			}
			return errors.Wrap(err, "reading line")
		}

		if rd.opts.LenientWhitespace {
			for _, c := range rule.Whitespaces {
				b = bytes.ReplaceAll(b, []byte{c}, []byte{rule.SP})
			}
			b = bytes.Trim(b, string([]byte{rule.SP}))
		}

		// An empty line can be received before message.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(b) > 0 {
			line = b
			break
		}
	}

	parsed, err := parseStatusLine(line)
	if err != nil {
		return errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	*statLine = parsed

	return nil
}

func parseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{rule.SP}, 3)
	if len(parts) < 2 {
		return StatusLine{}, errors.New("status line is malformed")
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, errors.Wrap(err, "parsing version")
	}

	statusCodeStr := string(parts[1])
	statusCode, err := strconv.ParseUint(statusCodeStr, 10, 64)
	if err != nil || len(statusCodeStr) != 3 {
		return StatusLine{}, errors.Errorf("status code is malformed: %q", statusCodeStr)
	}

	// reason-phrase is optional.
	reasonPhrase := ""
	if len(parts) == 3 {
		reasonPhrase = string(parts[2])
	}

	return StatusLine{Version: ver, StatusCode: uint(statusCode), ReasonPhrase: reasonPhrase}, nil
}
