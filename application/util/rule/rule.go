// Package rule holds the character classes of the HTTP grammar.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6
package rule

const (
	CR   byte = '\r'
	LF   byte = '\n'
	SP   byte = ' '
	HTAB byte = '\t'
	VT   byte = 0x0B
	FF   byte = 0x0C
	DEL  byte = 0x7F
)

var (
	OWS         = []byte{SP, HTAB}
	CRLF        = []byte{CR, LF}
	Whitespaces = []byte{SP, HTAB, VT, FF, CR}
)

func IsWhitespace(r rune) bool {
	for _, ws := range Whitespaces {
		if r == rune(ws) {
			return true
		}
	}
	return false
}

// IsOWS reports whether r is optional whitespace (SP / HTAB).
func IsOWS(r rune) bool { return r == rune(SP) || r == rune(HTAB) }

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }
func IsHex(r rune) bool { return IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F') }

// IsVChar reports whether c is a visible US-ASCII character.
func IsVChar(c byte) bool { return 0x21 <= c && c <= 0x7E }

// IsObsText reports whether c is obs-text, tolerated in field values.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func IsObsText(c byte) bool { return c >= 0x80 }
