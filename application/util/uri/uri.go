package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// URI holds every component in its percent-encoded form.
// Query and Fragment are nil when absent, which differs from present but empty.
type URI struct {
	Scheme    string
	Authority *Authority
	Path      string
	Query     *string
	Fragment  *string
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.2
func (u *URI) IsRelativeRef() bool {
	return u.Scheme == ""
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.3
func (u *URI) IsAbsoluteURI() bool {
	return u.Scheme != "" && u.Fragment == nil
}

func (u *URI) IsValid() error {
	if u.Scheme != "" {
		if err := assertValidScheme(u.Scheme); err != nil {
			return errors.Wrap(err, "scheme is not valid")
		}
	}

	if u.Authority != nil {
		if valid := isValidUserInfo(u.Authority.UserInfo); !valid {
			return errors.New("userinfo is not valid")
		}
		if err := assertValidHost(u.Authority.Host); err != nil {
			return errors.Wrap(err, "host is not valid")
		}
	}

	hasAuthority := u.Authority != nil
	if err := assertValidPath(u.Path, hasAuthority, u.IsRelativeRef()); err != nil {
		return errors.Wrap(err, "path is not valid")
	}

	if u.Query != nil && !isQueryFragValid(*u.Query) {
		return errors.New("query is not valid")
	}
	if u.Fragment != nil && !isQueryFragValid(*u.Fragment) {
		return errors.New("fragment is not valid")
	}

	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u *URI) String() string {
	b := new(strings.Builder)
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}

	if u.Authority != nil {
		b.WriteString("//")
		if u.Authority.UserInfo != "" {
			b.WriteString(u.Authority.UserInfo)
			b.WriteByte('@')
		}
		b.WriteString(u.Authority.Host)
		if u.Authority.Port != nil {
			b.WriteByte(':')
			b.WriteString(strconv.FormatUint(uint64(*u.Authority.Port), 10))
		}
	}

	b.WriteString(u.Path)

	if u.Query != nil {
		b.WriteByte('?')
		b.WriteString(*u.Query)
	}

	if u.Fragment != nil {
		b.WriteByte('#')
		b.WriteString(*u.Fragment)
	}

	return b.String()
}

type Authority struct {
	UserInfo string
	Host     string

	// NOTE: Port can be digits of any length, but practically it is in range of 0 ~ 65535.
	// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
	Port *uint16
}

// Normalize performs syntax-based normalization on given URI.
// The input is not modified.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.2
func Normalize(uri URI) (URI, error) {
	if err := uri.IsValid(); err != nil {
		return URI{}, errors.Wrap(err, "URI is not valid")
	}

	var err error

	uri.Scheme = strings.ToLower(uri.Scheme)
	if uri.Authority != nil {
		a := *uri.Authority
		if a.UserInfo, err = normalizePercent(a.UserInfo); err != nil {
			return URI{}, errors.Wrap(err, "normalizing userinfo")
		}
		if a.Host, err = normalizePercent(strings.ToLower(a.Host)); err != nil {
			return URI{}, errors.Wrap(err, "normalizing host")
		}
		uri.Authority = &a
	}

	if uri.Path, err = normalizePercent(uri.Path); err != nil {
		return URI{}, errors.Wrap(err, "normalizing path")
	}
	uri.Path = removeDotSegments(uri.Path)

	if uri.Query != nil {
		query, err := normalizePercent(*uri.Query)
		if err != nil {
			return URI{}, errors.Wrap(err, "normalizing query")
		}
		uri.Query = &query
	}
	if uri.Fragment != nil {
		frag, err := normalizePercent(*uri.Fragment)
		if err != nil {
			return URI{}, errors.Wrap(err, "normalizing fragment")
		}
		uri.Fragment = &frag
	}

	return uri, nil
}

// NormalizeScheme applies the normalization shared by http-like schemes:
// a port equal to defaultPort is dropped and an empty path under an authority becomes "/".
// The input is not modified.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.3
func NormalizeScheme(uri URI, defaultPort uint16) URI {
	if uri.Authority == nil {
		return uri
	}

	a := *uri.Authority
	if a.Port != nil && *a.Port == defaultPort {
		a.Port = nil
	}
	uri.Authority = &a

	if uri.Path == "" {
		uri.Path = "/"
	}

	return uri
}

func Parse(rawURL string) (URI, error) {
	if containsCTL(rawURL) {
		return URI{}, errors.New("URI should not contain CTL bytes")
	}

	var uri URI

	scheme, rest, err := cutScheme(rawURL)
	if err != nil {
		return URI{}, errors.Wrap(err, "getting scheme")
	}
	// Scheme is recommended to be lowercase.
	uri.Scheme = strings.ToLower(scheme)

	if strings.HasPrefix(rest, "//") {
		var authorityRaw string
		authorityRaw, rest = rest[2:], ""
		if i := strings.IndexAny(authorityRaw, "/?#"); i >= 0 {
			authorityRaw, rest = authorityRaw[:i], authorityRaw[i:]
		}

		authority, err := parseAuthority(authorityRaw)
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing authority")
		}

		uri.Authority = &authority
	}

	path, query, frag := splitPathQueryFrag(rest)

	hasAuthority := uri.Authority != nil
	if err := assertValidPath(path, hasAuthority, uri.IsRelativeRef()); err != nil {
		return URI{}, errors.Wrap(err, "path is not valid")
	}
	uri.Path = path

	if len(query) > 0 {
		// Strip '?' from query.
		query = query[1:]
		if !isQueryFragValid(query) {
			return URI{}, errors.New("query is not valid")
		}
		uri.Query = &query
	}

	if len(frag) > 0 {
		// Strip '#' from fragment.
		frag = frag[1:]
		if !isQueryFragValid(frag) {
			return URI{}, errors.New("fragment is not valid")
		}
		uri.Fragment = &frag
	}

	return uri, nil
}

// cutScheme cuts scheme from rawURL. If scheme is not valid, it returns an error.
// A colon after the first '/', '?' or '#' belongs to a relative reference.
func cutScheme(rawURL string) (scheme, rest string, err error) {
	before, after, found := strings.Cut(rawURL, ":")
	if !found || strings.ContainsAny(before, "/?#") {
		return "", rawURL, nil
	}

	scheme, rest = before, after
	if err := assertValidScheme(scheme); err != nil {
		return "", "", err
	}

	return scheme, rest, nil
}

func parseAuthority(raw string) (authority Authority, err error) {
	var userInfo, host string
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		userInfo, host = raw[:i], raw[i+1:]
	} else {
		host = raw
	}

	if userInfo != "" {
		if !isValidUserInfo(userInfo) {
			return Authority{}, errors.New("user information is not valid")
		}
		authority.UserInfo = userInfo
	}

	host, portPart, err := getHostPort(host)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing host")
	}

	port, hasPort, err := parsePort(portPart)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing port")
	}

	if hasPort {
		authority.Port = &port
	}
	authority.Host = host

	return authority, nil
}

func getHostPort(raw string) (host string, portPart string, err error) {
	if strings.HasPrefix(raw, "[") {
		// This is IP Literal.
		idx := strings.LastIndex(raw, "]")
		if idx < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}

		host = raw[:idx+1]
		portPart = raw[idx+1:]
	} else {
		// ipv4 or reg-name.
		host = raw
		if idx := strings.LastIndex(raw, ":"); idx >= 0 {
			host = raw[:idx]
			portPart = raw[idx:]
		}
	}

	if err := assertValidHost(host); err != nil {
		return "", "", errors.Wrap(err, "host is not valid")
	}

	return host, portPart, nil
}

// parsePort reads ":port". An empty port is the same as none.
// This is not the same rule as RFC. See [Authority].
func parsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" {
		return 0, false, nil
	}

	if s[0] != ':' {
		return 0, false, errors.New("colon delimiter not found on port")
	}

	s = s[1:]
	if s == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse uint")
	}

	if s[0] == '0' && !(n == 0 && len(s) == 1) {
		return 0, false, errors.New("port has leading zero")
	}

	return uint16(n), true, nil
}

func splitPathQueryFrag(raw string) (path, query, frag string) {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		frag = raw[idx:]
		raw = raw[:idx]
	}

	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		query = raw[idx:]
		raw = raw[:idx]
	}

	path = raw
	return
}
