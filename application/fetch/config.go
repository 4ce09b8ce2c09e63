package fetch

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"resource-fetch/application/http/semantic"
	"resource-fetch/application/http/transfer"
	urilib "resource-fetch/application/util/uri"
	"resource-fetch/application/util/rule"

	"github.com/pkg/errors"
)

// Limit is a non-negative bound that may be unbounded.
// The zero value is a limit of 0.
type Limit struct {
	n         uint
	unbounded bool
}

func Unbounded() Limit { return Limit{unbounded: true} }

func Limited(n uint) Limit { return Limit{n: n} }

func (l Limit) Bounded() bool { return !l.unbounded }

// Value returns the bound. It is meaningless when unbounded.
func (l Limit) Value() uint { return l.n }

// Exceeded reports whether count goes over the limit.
func (l Limit) Exceeded(count uint) bool {
	return !l.unbounded && count > l.n
}

func (l Limit) String() string {
	if l.unbounded {
		return "unbounded"
	}
	return strconv.FormatUint(uint64(l.n), 10)
}

// Compression is the decoding requested for response content.
type Compression string

const (
	CompressionNone    Compression = "none"
	CompressionDeflate Compression = "deflate"
	CompressionGzip    Compression = "gzip"
)

var ErrUnknownCompression = errors.New("unknown compression")

func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionDeflate, CompressionGzip:
		return c, nil
	default:
		return "", errors.Wrapf(ErrUnknownCompression, "%q", s)
	}
}

func (c Compression) coding() transfer.Coding {
	switch c {
	case CompressionDeflate:
		return transfer.CodingDeflate
	case CompressionGzip:
		return transfer.CodingGzip
	default:
		return transfer.CodingIdentity
	}
}

// Config is the per-call configuration of a fetch. It is never mutated by the fetcher.
type Config struct {
	MaxRedirects Limit
	MaxRetries   uint

	// ParseHeaders selects the grammar-based header parser instead of the lenient one.
	ParseHeaders bool
	Compression  Compression

	// BaseURI resolves relative input URIs. Without it they are rejected.
	BaseURI *url.URL

	Method    semantic.Method
	Header    semantic.Headers
	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		MaxRedirects: Limited(5),
		MaxRetries:   1,
		Compression:  CompressionNone,
		Method:       semantic.MethodGet,
	}
}

var (
	ErrInvalidURI        = errors.New("invalid URI")
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
)

// resolveURI turns raw into an absolute http(s) URI without fragment.
func resolveURI(raw string, base *url.URL) (*url.URL, error) {
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%q: %s", raw, err)
	}

	if !uri.IsAbs() {
		if base == nil {
			return nil, errors.Wrapf(ErrInvalidURI, "%q is relative and no base URI is set", raw)
		}
		if uri, err = resolveReference(base, uri); err != nil {
			return nil, err
		}
	}
	uri.Fragment, uri.RawFragment = "", ""

	return uri, checkURI(uri)
}

// resolveLocation resolves the Location field of a redirect against the URI that answered it.
func resolveLocation(current *url.URL, location string) (*url.URL, error) {
	// net/url is more forgiving than RFC 3986 and escapes what servers leave unescaped.
	ref, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%q: %s", location, err)
	}

	ref.Fragment, ref.RawFragment = "", ""
	ref.RawQuery = escapeQuery(ref.RawQuery)

	target, err := resolveReference(current, ref)
	if err != nil {
		return nil, err
	}
	target.Fragment, target.RawFragment = "", ""

	return target, checkURI(target)
}

// escapeQuery percent-encodes the bytes net/url lets through a query but RFC 3986 does not allow.
func escapeQuery(raw string) string {
	b := new(strings.Builder)
	for idx := 0; idx < len(raw); idx++ {
		c := raw[idx]
		switch {
		case c == '%' && idx+2 < len(raw) && rule.IsHex(rune(raw[idx+1])) && rule.IsHex(rune(raw[idx+2])):
		case c <= ' ' || c >= rule.DEL || strings.IndexByte("\"%<>[\\]^`{|}", c) >= 0:
			fmt.Fprintf(b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// resolveReference applies the reference resolution of RFC 3986 section 5.
func resolveReference(base, ref *url.URL) (*url.URL, error) {
	baseURI, err := urilib.Parse(base.String())
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "base %q: %s", base, err)
	}
	refURI, err := urilib.Parse(ref.String())
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%q: %s", ref, err)
	}

	resolver, err := urilib.NewRefResolver(baseURI)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "base %q: %s", base, err)
	}
	target := resolver.Resolve(refURI)

	out, err := url.Parse(target.String())
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%q: %s", target.String(), err)
	}
	return out, nil
}

func checkURI(uri *url.URL) error {
	switch strings.ToLower(uri.Scheme) {
	case "http", "https":
	default:
		return errors.Wrapf(ErrUnsupportedScheme, "%q", uri.Scheme)
	}

	if uri.Host == "" {
		return errors.Wrapf(ErrInvalidURI, "%q has no host", uri.String())
	}

	return nil
}
