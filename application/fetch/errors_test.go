package fetch

import (
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	uri, err := url.Parse("http://example.com/a")
	require.NoError(t, err)

	testcases := []struct {
		desc     string
		err      *Error
		contains []string
	}{
		{
			desc:     "status error",
			err:      &Error{Class: ClassClientOrServer, StatusCode: 404, URI: uri},
			contains: []string{"client or server error", "404 Not Found", "http://example.com/a"},
		},
		{
			desc:     "loop",
			err:      &Error{Class: ClassRedirectLoop, URI: uri, Cause: ErrRedirectLoop},
			contains: []string{"redirect loop", "URI visited twice"},
		},
		{
			desc:     "transport",
			err:      &Error{Class: ClassTransientTransport, Cause: errors.New("connection reset")},
			contains: []string{"transient transport error", "connection reset"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			for _, expected := range tc.contains {
				assert.Contains(t, tc.err.Error(), expected)
			}
		})
	}
}

func TestErrorIdentification(t *testing.T) {
	trail := Trail{hops: []Hop{{StatusCode: 500}}}
	err := errors.Wrap(&Error{Class: ClassClientOrServer, StatusCode: 500, Trail: trail}, "fetching")

	assert.True(t, IsClass(err, ClassClientOrServer))
	assert.False(t, IsClass(err, ClassRedirectLoop))
	assert.False(t, IsClass(errors.New("plain"), ClassClientOrServer))

	got, found := TrailOf(err)
	assert.True(t, found)
	assert.Equal(t, trail, got)

	_, found = TrailOf(errors.New("plain"))
	assert.False(t, found)

	cause := errors.New("cause")
	assert.ErrorIs(t, &Error{Class: ClassFatalTransport, Cause: cause}, cause)
}

func TestErrorClassRecoverable(t *testing.T) {
	recoverable := map[ErrorClass]bool{
		ClassAuthentication:        true,
		ClassClientOrServer:        true,
		ClassTransientTransport:    true,
		ClassRedirectLoop:          false,
		ClassRedirectLimitExceeded: false,
		ClassFatalTransport:        false,
	}
	for class, expected := range recoverable {
		assert.Equal(t, expected, class.Recoverable(), class.String())
	}
	assert.Contains(t, ErrorClass(0).String(), "unknown")
}

func TestTrail(t *testing.T) {
	a, _ := url.Parse("http://example.com/a")
	b, _ := url.Parse("http://example.com/b")

	trail := Trail{hops: []Hop{{URI: a, StatusCode: 302}, {URI: b, StatusCode: 200}}}

	assert.Equal(t, 2, trail.Len())
	assert.Equal(t, []string{"http://example.com/a", "http://example.com/b"}, trail.URIs())

	last, found := trail.Last()
	assert.True(t, found)
	assert.Equal(t, uint(200), last.StatusCode)

	hops := trail.Hops()
	hops[0].StatusCode = 500
	assert.Equal(t, uint(302), trail.hops[0].StatusCode)

	_, found = Trail{}.Last()
	assert.False(t, found)
}

func TestState(t *testing.T) {
	origin, _ := url.Parse("http://example.com/")
	a, _ := url.Parse("http://example.com/a")

	st := newState(origin)
	assert.Zero(t, st.redirects())
	assert.Equal(t, 1, st.visits(origin))

	st.visit(a)
	st.visit(origin)
	assert.Equal(t, uint(2), st.redirects())
	assert.Equal(t, 2, st.visits(origin))
	assert.Equal(t, 1, st.visits(a))
	assert.Equal(t, []string{"http://example.com/", "http://example.com/a", "http://example.com/"}, st.visited.Items())
}

func TestIdentity(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected string
	}{
		{desc: "already normal", input: "http://example.com/a?q=1", expected: "http://example.com/a?q=1"},
		{desc: "fragment dropped", input: "http://example.com/a#top", expected: "http://example.com/a"},
		{desc: "host lowercased", input: "http://EXAMPLE.com/a", expected: "http://example.com/a"},
		{desc: "http default port", input: "http://example.com:80/a", expected: "http://example.com/a"},
		{desc: "https default port", input: "https://example.com:443/a", expected: "https://example.com/a"},
		{desc: "other port kept", input: "https://example.com:80/a", expected: "https://example.com:80/a"},
		{desc: "empty path", input: "http://example.com", expected: "http://example.com/"},
		{desc: "unreserved decoded", input: "http://example.com/%7Euser", expected: "http://example.com/~user"},
		{desc: "reserved uppercased", input: "http://example.com/a%2fb", expected: "http://example.com/a%2Fb"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			u, err := url.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, identity(u))
		})
	}
}
