// Package auth answers HTTP authentication challenges for the fetcher.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-11
package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"resource-fetch/application/fetch"
	"resource-fetch/application/http/semantic"
	"resource-fetch/application/util/rule"

	"github.com/pkg/errors"
)

var (
	ErrNoChallenge   = errors.New("no matching challenge")
	ErrNoCredentials = errors.New("no credentials configured")
	ErrNoResolver    = errors.New("no resolver answered the challenge")
)

// Challenge is one entry of WWW-Authenticate.
// It is lower-cased as a whole, parameter values included.
type Challenge struct {
	Scheme string
	Params map[string]string
}

// Challenges parses every challenge in the WWW-Authenticate fields of h.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-11.6.1
func Challenges(h semantic.Headers) []Challenge {
	challenges := make([]Challenge, 0)
	for _, element := range h.Tokens("WWW-Authenticate") {
		if name, _, found := strings.Cut(element, "="); !found || strings.ContainsAny(name, " \t") {
			// "scheme" or "scheme name=value" starts a new challenge.
			scheme, rest, _ := strings.Cut(element, " ")
			challenges = append(challenges, Challenge{Scheme: scheme, Params: make(map[string]string)})
			element = strings.TrimSpace(rest)
		}

		if len(challenges) == 0 {
			continue
		}

		name, value, found := strings.Cut(element, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}

		value = strings.TrimSpace(value)
		challenges[len(challenges)-1].Params[name] = string(rule.Unquote([]byte(value)))
	}

	return challenges
}

func findChallenge(hop fetch.Hop, scheme string) (Challenge, bool) {
	for _, c := range Challenges(hop.Header) {
		if c.Scheme == scheme {
			return c, true
		}
	}
	return Challenge{}, false
}

func withAuthorization(opts fetch.RequestOptions, credentials string) fetch.RequestOptions {
	opts = opts.Clone()
	opts.Header.Set("Authorization", credentials)
	opts.Authenticate = true
	return opts
}

// Basic answers a Basic challenge.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7617
type Basic struct {
	Username string
	Password string
}

var _ fetch.AuthResolver = Basic{}

func (b Basic) Resolve(_ context.Context, hop fetch.Hop, opts fetch.RequestOptions) (fetch.RequestOptions, error) {
	if b.Username == "" {
		return opts, ErrNoCredentials
	}
	if _, ok := findChallenge(hop, "basic"); !ok {
		return opts, errors.Wrap(ErrNoChallenge, "basic")
	}

	token := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	return withAuthorization(opts, "Basic "+token), nil
}

// Bearer answers a Bearer challenge.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6750#section-3
type Bearer struct {
	Token string
}

var _ fetch.AuthResolver = Bearer{}

func (b Bearer) Resolve(_ context.Context, hop fetch.Hop, opts fetch.RequestOptions) (fetch.RequestOptions, error) {
	if b.Token == "" {
		return opts, ErrNoCredentials
	}
	if _, ok := findChallenge(hop, "bearer"); !ok {
		return opts, errors.Wrap(ErrNoChallenge, "bearer")
	}

	return withAuthorization(opts, "Bearer "+b.Token), nil
}

// Chain asks each resolver in order and returns the first answer.
type Chain []fetch.AuthResolver

var _ fetch.AuthResolver = Chain(nil)

func (c Chain) Resolve(ctx context.Context, hop fetch.Hop, opts fetch.RequestOptions) (fetch.RequestOptions, error) {
	failures := make([]string, 0, len(c))
	for _, r := range c {
		revised, err := r.Resolve(ctx, hop, opts)
		if err == nil {
			return revised, nil
		}
		failures = append(failures, err.Error())
	}

	return opts, errors.Wrapf(ErrNoResolver, "[%s]", strings.Join(failures, "; "))
}
