package semantic

import (
	"bytes"
	"sort"
	"strings"

	"resource-fetch/application/http"
	"resource-fetch/application/util/rule"

	"github.com/pkg/errors"
)

// Headers maps canonical field names to their values in arrival order.
// The zero value is an empty, usable Headers.
type Headers struct{ underlying map[string][]string }

func NewHeaders(initial map[string][]string) Headers {
	clone := make(map[string][]string, len(initial))
	for k, v := range initial {
		k = canonical(k)
		clone[k] = append(clone[k], v...)
	}

	return Headers{underlying: clone}
}

// HeadersFrom groups raw fields by name. Each field contributes exactly one value.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3-1
func HeadersFrom(fields []http.Field) Headers {
	h := Headers{underlying: make(map[string][]string, len(fields))}
	for _, field := range fields {
		h.Add(string(field.Name), string(field.Value))
	}

	return h
}

var ErrMalformedFieldLine = errors.New("field line is malformed")

// ParseHeaderLines parses raw field lines into Headers.
//
// With strict set, every line must match the field-line grammar and the first
// violation fails the whole block with [ErrMalformedFieldLine].
// Otherwise lines are split on their first colon and never rejected.
// Both modes produce identical results for well-formed lines.
func ParseHeaderLines(lines [][]byte, strict bool) (Headers, error) {
	fields := make([]http.Field, 0, len(lines))
	for idx, line := range lines {
		if !strict {
			field := http.ParseFieldLenient(line)
			if len(field.Name) == 0 {
				// Nothing to key the value on.
				continue
			}
			fields = append(fields, field)
			continue
		}

		field, err := http.ParseField(line)
		if err != nil {
			return Headers{}, errors.Wrapf(ErrMalformedFieldLine, "line %d: %s", idx, err.Error())
		}
		fields = append(fields, field)
	}

	return HeadersFrom(fields), nil
}

// Fields returns a copy of all the key-values in the header.
func (h Headers) Fields() map[string][]string {
	clone := make(map[string][]string, len(h.underlying))
	for k, v := range h.underlying {
		clone[k] = append([]string(nil), v...)
	}

	return clone
}

// Names returns the canonical field names in lexical order.
func (h Headers) Names() []string {
	names := make([]string, 0, len(h.underlying))
	for k := range h.underlying {
		names = append(names, k)
	}
	sort.Strings(names)

	return names
}

func (h Headers) Len() int { return len(h.underlying) }

func (h Headers) ToRawFields() []http.Field {
	fields := make([]http.Field, 0, len(h.underlying))
	for _, name := range h.Names() {
		for _, v := range h.underlying[name] {
			fields = append(fields, http.Field{Name: []byte(name), Value: []byte(v)})
		}
	}

	return fields
}

// Get assumes the field is a singleton field.
// Even if key has multiple values, it will only return the first element of values.
// For list-based field, use [Headers.Values] or [Headers.Tokens].
func (h Headers) Get(key string) (value string, ok bool) {
	v, ok := h.underlying[canonical(key)]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Values returns a copy of every value received for key.
func (h Headers) Values(key string) (values []string, ok bool) {
	values, ok = h.underlying[canonical(key)]
	return append([]string(nil), values...), ok
}

// Tokens splits every value of a list-based field on commas outside quotes,
// lower-cased and with empty elements dropped.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func (h Headers) Tokens(key string) []string {
	tokens := make([]string, 0)
	for _, v := range h.underlying[canonical(key)] {
		for _, token := range tokenizeFieldValues([]byte(v)) {
			tokens = append(tokens, strings.ToLower(token))
		}
	}

	return tokens
}

// Set assumes the field is a singleton field.
// It overwrites existing value instead of appending to it.
// For list-based field, use [Headers.Add].
func (h *Headers) Set(key, value string) {
	h.init()
	h.underlying[canonical(key)] = []string{value}
}

func (h *Headers) Add(key, value string) {
	h.init()
	key = canonical(key)
	h.underlying[key] = append(h.underlying[key], value)
}

func (h *Headers) Del(key string) {
	delete(h.underlying, canonical(key))
}

// Clone returns a deep copy.
func (h Headers) Clone() Headers {
	return Headers{underlying: h.Fields()}
}

func (h *Headers) init() {
	if h.underlying == nil {
		h.underlying = make(map[string][]string)
	}
}

func canonical(s string) string {
	if rule.IsValidToken(s) {
		s = toCanonicalFieldName(s)
	}
	return s
}

// This only works for valid token.
func toCanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}

func tokenizeFieldValues(fieldValue []byte) []string {
	tokens := make([]string, 0)
	buf := bytes.NewBuffer(nil)

	parts := bytes.Split(fieldValue, []byte{','})

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4-1
	quoted := false

	for _, part := range parts {
		if quoted {
			// Comma inside quote, let's write it again.
			buf.WriteByte(',')
		}

		for idx := 0; idx < len(part); idx++ {
			c := part[idx]
			if c == '"' {
				quoted = !quoted
			}

			buf.WriteByte(c)
		}

		if !quoted {
			tokens = addToken(tokens, buf.Bytes())
			buf.Reset()
		}
	}

	if buf.Len() > 0 {
		// Quote didn't end properly.
		// At least write the raw token.
		tokens = addToken(tokens, buf.Bytes())
	}

	return tokens
}

func addToken(tokens []string, token []byte) []string {
	token = bytes.TrimFunc(token, rule.IsWhitespace)
	token = rule.Unquote(token)
	if len(token) == 0 {
		return tokens
	}
	return append(tokens, string(token))
}
