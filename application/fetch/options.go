package fetch

import (
	"context"
	"io"
	"net/url"
	"strings"

	"resource-fetch/application/http"
	"resource-fetch/application/http/semantic"
	"resource-fetch/application/http/transfer"
)

// RequestOptions are handed to the [Opener] for one hop.
type RequestOptions struct {
	Method    semantic.Method
	Header    semantic.Headers
	UserAgent string

	// Authenticate is set once credentials were added to Header.
	Authenticate bool
	// InsecureSkipVerify accepts any server certificate.
	InsecureSkipVerify bool
	// FollowRedirects must stay false, the fetcher follows redirects itself.
	FollowRedirects bool
	// AcceptEncoding lists content codings the response may use.
	AcceptEncoding []transfer.Coding
}

// RawResponse is the outcome of one round trip.
// HeaderLines are raw, without line terminators.
type RawResponse struct {
	StatusCode  uint
	Version     http.Version
	HeaderLines [][]byte
	Body        io.ReadCloser
}

// Opener performs exactly one request/response round trip.
type Opener interface {
	Open(ctx context.Context, uri *url.URL, opts RequestOptions) (*RawResponse, error)
}

type OpenerFunc func(ctx context.Context, uri *url.URL, opts RequestOptions) (*RawResponse, error)

func (f OpenerFunc) Open(ctx context.Context, uri *url.URL, opts RequestOptions) (*RawResponse, error) {
	return f(ctx, uri, opts)
}

// AuthResolver answers a 401 challenge with revised options.
type AuthResolver interface {
	Resolve(ctx context.Context, hop Hop, opts RequestOptions) (RequestOptions, error)
}

type AuthResolverFunc func(ctx context.Context, hop Hop, opts RequestOptions) (RequestOptions, error)

func (f AuthResolverFunc) Resolve(ctx context.Context, hop Hop, opts RequestOptions) (RequestOptions, error) {
	return f(ctx, hop, opts)
}

func initialOptions(cfg Config) RequestOptions {
	method := cfg.Method
	if method == "" {
		method = semantic.MethodGet
	}

	opts := RequestOptions{
		Method:             method,
		Header:             cfg.Header.Clone(),
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: true,
	}

	if coding := cfg.Compression.coding(); coding != transfer.CodingIdentity {
		opts.AcceptEncoding = []transfer.Coding{coding}
	}

	return opts
}

// Clone returns a copy that shares nothing mutable with opts.
func (opts RequestOptions) Clone() RequestOptions {
	clone := opts
	clone.Header = opts.Header.Clone()
	clone.AcceptEncoding = append([]transfer.Coding(nil), opts.AcceptEncoding...)
	return clone
}

var contentHeaders = []string{"Content-Type", "Content-Length", "Content-Encoding", "Content-Language", "Content-Location"}

// redirectOptions derives the options of the hop following a redirect.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
func redirectOptions(opts RequestOptions, statusCode uint, from, to *url.URL) RequestOptions {
	next := opts.Clone()

	switch statusCode {
	case 301, 302:
		if next.Method == semantic.MethodPost {
			next.Method = semantic.MethodGet
		}
	case 303:
		if next.Method != semantic.MethodHead {
			next.Method = semantic.MethodGet
		}
	}

	// A rewrite to a safe method sends no content.
	if next.Method != opts.Method && next.Method.IsSafe() {
		for _, name := range contentHeaders {
			next.Header.Del(name)
		}
	}

	// Credentials stay with the origin they were issued for.
	if !sameOrigin(from, to) {
		next.Header.Del("Authorization")
		next.Authenticate = false
	}

	return next
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
