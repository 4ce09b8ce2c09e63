package fetch

import (
	"io"
	"net/url"
	"time"

	"resource-fetch/application/http"
	"resource-fetch/application/http/semantic"
	sliceutil "resource-fetch/lib/slice"
)

// Hop records one round trip.
type Hop struct {
	URI        *url.URL
	StatusCode uint
	Header     semantic.Headers
	Version    http.Version
	Elapsed    time.Duration

	// Body is set on the final hop of a successful fetch only.
	Body io.ReadCloser

	// HeaderErr is set when the header block was rejected.
	HeaderErr error
}

// Trail is every hop of one fetch, oldest first.
type Trail struct{ hops []Hop }

func (t Trail) Len() int { return len(t.hops) }

func (t Trail) Hops() []Hop {
	return append([]Hop(nil), t.hops...)
}

func (t Trail) Last() (Hop, bool) {
	if len(t.hops) == 0 {
		return Hop{}, false
	}
	return t.hops[len(t.hops)-1], true
}

func (t Trail) URIs() []string {
	return sliceutil.Map(t.hops, func(h Hop) string { return h.URI.String() })
}

// Result is an open stream and the trail that led to it.
type Result struct {
	Body  io.ReadCloser
	Trail Trail
	// URI is the final location.
	URI *url.URL
}
