package http

import (
	"bytes"
	"strconv"

	"resource-fetch/application/util/rule"

	"github.com/pkg/errors"
)

// [Major, Minor]
type Version [2]uint

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot separator not found on version: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertible to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (ver Version) Major() uint { return ver[0] }
func (ver Version) Minor() uint { return ver[1] }

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("HTTP/")
	buf.WriteString(strconv.FormatUint(uint64(ver[0]), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(ver[1]), 10))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

// Field is a single field line split into name and value.
type Field struct{ Name, Value []byte }

var (
	ErrMissingColon          = errors.New("colon separator not found")
	ErrInvalidFieldName      = errors.New("field name is not a valid token")
	ErrWhitespaceBeforeColon = errors.New("field name has trailing whitespace")
	ErrInvalidFieldValue     = errors.New("field value has invalid characters")
)

// ParseField parses a field line following the field-line grammar.
// Lines the grammar does not produce are rejected.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5
func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Wrapf(ErrMissingColon, "%q", fieldLine)
	}

	// No whitespace is allowed between field name and colon.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-2
	if len(name) > 0 && rule.IsOWS(rune(name[len(name)-1])) {
		return Field{}, errors.Wrapf(ErrWhitespaceBeforeColon, "%q", fieldLine)
	}

	if !rule.IsValidToken(string(name)) {
		return Field{}, errors.Wrapf(ErrInvalidFieldName, "%q", name)
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
	value = rule.TrimOWS(value)
	if !rule.IsValidFieldValue(value) {
		return Field{}, errors.Wrapf(ErrInvalidFieldValue, "%q", fieldLine)
	}

	return Field{Name: append([]byte{}, name...), Value: append([]byte{}, value...)}, nil
}

// ParseFieldLenient splits a field line on its first colon and trims whitespace
// around both halves. It never fails: a line without a colon becomes a field
// with an empty value.
func ParseFieldLenient(fieldLine []byte) Field {
	name, value, _ := bytes.Cut(fieldLine, []byte{':'})
	return Field{
		Name:  append([]byte{}, bytes.TrimFunc(name, rule.IsWhitespace)...),
		Value: append([]byte{}, bytes.TrimFunc(value, rule.IsWhitespace)...),
	}
}

func (f *Field) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(f.Name)
	buf.WriteString(": ")
	buf.Write(f.Value)
	return buf.Bytes()
}
