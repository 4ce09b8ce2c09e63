package uri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertValidScheme(t *testing.T) {
	testcases := []struct {
		input   string
		wantErr bool
	}{
		{input: "http"},
		{input: "svn+ssh"},
		{input: "a1.b-c"},
		{input: "", wantErr: true},
		{input: "1http", wantErr: true},
		{input: "ht_tp", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			err := assertValidScheme(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertValidHost(t *testing.T) {
	testcases := []struct {
		desc    string
		input   string
		wantErr bool
	}{
		{desc: "empty", input: ""},
		{desc: "reg-name", input: "example.com"},
		{desc: "encoded reg-name", input: "ex%41mple.com"},
		{desc: "ipv4", input: "192.0.2.1"},
		{desc: "ipv6", input: "[2001:db8::1]"},
		{desc: "ipvfuture", input: "[vF.0:1:32342442:1]"},
		{desc: "too long", input: strings.Repeat("a", 256), wantErr: true},
		{desc: "slash", input: "example/.com", wantErr: true},
		{desc: "ipv4 in brackets", input: "[192.0.2.1]", wantErr: true},
		{desc: "garbage literal", input: "[hey trust me]", wantErr: true},
		{desc: "unterminated literal", input: "[example.com", wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := assertValidHost(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsValidUserInfo(t *testing.T) {
	assert.True(t, isValidUserInfo("user:pass"))
	assert.True(t, isValidUserInfo("us%20er"))
	assert.False(t, isValidUserInfo("user@host"))
	assert.False(t, isValidUserInfo("us%2"))
}

func TestIsValidRegName(t *testing.T) {
	assert.True(t, isValidRegName("example.com"))
	assert.True(t, isValidRegName("100%25"))
	assert.False(t, isValidRegName("exa:mple"))
	assert.False(t, isValidRegName("100%"))
}

func TestIsIPvFuture(t *testing.T) {
	assert.True(t, isIPvFuture("v7.fe80::1"))
	assert.True(t, isIPvFuture("vA.x"))
	assert.False(t, isIPvFuture("v7."))
	assert.False(t, isIPvFuture("7v.abc"))
	assert.False(t, isIPvFuture("vG.abc"))
}

func TestAssertValidPath(t *testing.T) {
	testcases := []struct {
		desc         string
		path         string
		hasAuthority bool
		isRelative   bool
		wantErr      bool
	}{
		{desc: "absolute under authority", path: "/a/b", hasAuthority: true},
		{desc: "empty under authority", path: "", hasAuthority: true},
		{desc: "rootless under authority", path: "a/b", hasAuthority: true, wantErr: true},
		{desc: "double slash without authority", path: "//a", wantErr: true},
		{desc: "colon in first relative segment", path: "a:b/c", isRelative: true, wantErr: true},
		{desc: "colon in later relative segment", path: "a/b:c", isRelative: true},
		{desc: "colon in absolute rootless path", path: "a:b"},
		{desc: "space", path: "/a b", hasAuthority: true, wantErr: true},
		{desc: "encoded space", path: "/a%20b", hasAuthority: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			err := assertValidPath(tc.path, tc.hasAuthority, tc.isRelative)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
