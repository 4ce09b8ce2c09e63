package fetch

import (
	"net/url"
	"strings"

	"resource-fetch/application/http/semantic"
	urilib "resource-fetch/application/util/uri"
	"resource-fetch/lib/ds/stack"
	sliceutil "resource-fetch/lib/slice"
)

// state is the bookkeeping of one in-flight fetch. It is never shared.
type state struct {
	retries uint
	// visited holds the identity of every URI requested through redirects, most recent on top.
	visited   *stack.Stack[string]
	authTried map[string]bool
	trail     []Hop
}

func newState(uri *url.URL) *state {
	st := &state{
		visited:   stack.New[string](8),
		authTried: make(map[string]bool),
	}
	st.visited.Push(identity(uri))
	return st
}

// redirects is the number of redirects followed so far.
func (st *state) redirects() uint {
	return st.visited.Len() - 1
}

// visit records a redirect target.
func (st *state) visit(uri *url.URL) {
	st.visited.Push(identity(uri))
}

// visits counts how often uri was requested through redirects.
func (st *state) visits(uri *url.URL) int {
	target := identity(uri)
	return sliceutil.Count(st.visited.Items(), func(v string) bool { return v == target })
}

func (st *state) append(hop Hop) {
	st.trail = append(st.trail, hop)
}

// frozen returns a copy of the trail.
func (st *state) frozen() Trail {
	return Trail{hops: append([]Hop(nil), st.trail...)}
}

// identity is the form under which two URIs count as the same resource.
// It is the normalized URI without fragment and without the default port of its scheme.
func identity(uri *url.URL) string {
	parsed, err := urilib.Parse(uri.String())
	if err == nil {
		parsed, err = urilib.Normalize(parsed)
	}
	if err != nil {
		raw, _, _ := strings.Cut(uri.String(), "#")
		return raw
	}

	parsed = urilib.NormalizeScheme(parsed, semantic.DefaultPort(parsed.Scheme))
	parsed.Fragment = nil
	return parsed.String()
}
