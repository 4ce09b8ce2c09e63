package http

import (
	"bufio"
	"bytes"
	"io"

	"resource-fetch/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF specifies whether a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

// RequestHead is everything of a request but its content.
type RequestHead struct {
	Method  string
	Target  string
	Version Version
	Fields  []Field
}

var ErrInvalidMethod = errors.New("method is not a valid token")

type RequestEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{bw: bufio.NewWriter(w), opts: opts}
}

// Encode writes the request head and flushes it.
func (re *RequestEncoder) Encode(head RequestHead) error {
	if !rule.IsValidToken(head.Method) {
		return errors.Wrapf(ErrInvalidMethod, "%q", head.Method)
	}

	if err := re.encodeRequestLine(head); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	if err := re.encodeFields(head.Fields); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request head")
	}

	return nil
}

func (re *RequestEncoder) writeLine(line []byte) error {
	if _, err := re.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	term := rule.CRLF
	if re.opts.UseSoleLF {
		term = term[1:]
	}

	if _, err := re.bw.Write(term); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *RequestEncoder) encodeRequestLine(head RequestHead) error {
	buf := bytes.NewBuffer(nil)

	buf.WriteString(head.Method)
	buf.WriteByte(rule.SP)
	buf.WriteString(head.Target)
	buf.WriteByte(rule.SP)
	buf.Write(head.Version.Text())

	return re.writeLine(buf.Bytes())
}

func (re *RequestEncoder) encodeFields(fields []Field) error {
	for _, field := range fields {
		if err := re.writeLine(field.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := re.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}
