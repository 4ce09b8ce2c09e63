package uri

import (
	"strings"

	"github.com/pkg/errors"
)

func hex(c byte) (h [2]byte) {
	const hexSet = "0123456789ABCDEF"
	h[0] = hexSet[c>>4]
	h[1] = hexSet[c&0xF]
	return
}

func unhex(h [2]byte) (c byte) {
	return (hexToNum(h[0]) << 4) | hexToNum(h[1])
}

func hexToNum(h byte) byte {
	switch {
	case '0' <= h && h <= '9':
		return h - '0'
	case 'a' <= h && h <= 'f':
		return h - 'a' + 10
	case 'A' <= h && h <= 'F':
		return h - 'A' + 10
	}
	return 0
}

// normalizePercent decodes percent-encoded unreserved characters
// and upper-cases the hex digits of every other percent-encoding.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.2.2
func normalizePercent(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c != '%' {
			b.WriteByte(c)
			continue
		}

		if idx+2 >= len(s) || !isPercentEncoded(s[idx:idx+3]) {
			bad := s[idx:min(len(s), idx+3)]
			return "", errors.Errorf("percent encoding not properly applied: %q", bad)
		}

		decoded := unhex([2]byte{s[idx+1], s[idx+2]})
		if isUnreserved(decoded) {
			b.WriteByte(decoded)
		} else {
			h := hex(decoded)
			b.Write([]byte{'%', h[0], h[1]})
		}
		idx += 2
	}

	return b.String(), nil
}
