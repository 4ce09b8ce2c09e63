package rule

import (
	"bytes"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if IsAlpha(c) || IsDigit(c) {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}

	return true
}

// IsValidFieldValue reports whether b matches field-value after OWS has been trimmed.
// Empty values are valid.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5-2
func IsValidFieldValue(b []byte) bool {
	for _, c := range b {
		if IsVChar(c) || IsObsText(c) || c == SP || c == HTAB {
			continue
		}
		return false
	}

	if len(b) > 0 && (IsOWS(rune(b[0])) || IsOWS(rune(b[len(b)-1]))) {
		// field-value must start and end with field-vchar.
		return false
	}

	return true
}

// TrimOWS trims leading and trailing SP / HTAB.
func TrimOWS(b []byte) []byte {
	return bytes.TrimFunc(b, IsOWS)
}

// Unquote unquotes token if it was quoted with double quotes.
// Escaped characters inside the quote are un-escaped.
func Unquote(token []byte) []byte {
	if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
		return bytes.Clone(token)
	}

	inner := token[1 : len(token)-1]
	buf := bytes.NewBuffer(make([]byte, 0, len(inner)))
	for idx := 0; idx < len(inner); idx++ {
		c := inner[idx]
		if c == '\\' && idx+1 < len(inner) {
			// quoted-pair: take the next octet as is.
			idx++
			c = inner[idx]
		}
		buf.WriteByte(c)
	}

	return buf.Bytes()
}
