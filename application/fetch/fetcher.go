package fetch

import (
	"context"
	"io"
	"strings"

	"resource-fetch/application/http/semantic"
	"resource-fetch/application/http/semantic/status"
	"resource-fetch/application/http/transfer"
	iolib "resource-fetch/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "resource-fetch/application/fetch"

// Fetcher resolves a URI into an open stream, following redirects,
// retrying error statuses and answering authentication challenges.
// A Fetcher holds no per-fetch state and is safe for concurrent use.
type Fetcher struct {
	opener Opener

	logger zerolog.Logger
	clock  clock.Clock

	auth    AuthResolver
	limiter *rate.Limiter
	tracer  trace.Tracer
}

type Option func(f *Fetcher)

// WithAuthResolver answers 401 responses with r.
func WithAuthResolver(r AuthResolver) Option {
	return func(f *Fetcher) { f.auth = r }
}

// WithRateLimiter makes every hop wait on l.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(f *Fetcher) { f.tracer = t }
}

func New(opener Opener, logger zerolog.Logger, clock clock.Clock, opts ...Option) *Fetcher {
	f := &Fetcher{
		opener: opener,
		logger: logger,
		clock:  clock,
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch opens rawURI. On success the caller owns Result.Body and must close it.
// Every failure other than an invalid rawURI is an [*Error] carrying the trail.
func (f *Fetcher) Fetch(ctx context.Context, rawURI string, cfg Config) (*Result, error) {
	uri, err := resolveURI(rawURI, cfg.BaseURI)
	if err != nil {
		return nil, errors.Wrap(err, "resolving URI")
	}

	logger := f.logger.With().Str("fetch_id", uuid.NewString()).Logger()

	ctx, span := f.tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("fetch.uri", uri.String()),
	))
	defer span.End()

	st := newState(uri)
	opts := initialOptions(cfg)

	fail := func(e *Error) error {
		e.Trail = st.frozen()

		logger.Warn().Err(e).
			Str("class", e.Class.String()).
			Int("hops", e.Trail.Len()).
			Msg("Fetch failed")

		span.SetAttributes(attribute.Int("fetch.hops", e.Trail.Len()))
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Class.String())
		return e
	}

	for {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fail(&Error{Class: ClassFatalTransport, URI: uri, Cause: errors.Wrap(err, "waiting for rate limiter")})
			}
		}

		start := f.clock.Now()
		raw, err := f.opener.Open(ctx, uri, opts)
		if err != nil {
			return nil, fail(&Error{Class: classifyTransport(err), URI: uri, Cause: err})
		}

		hop := Hop{
			URI:        uri,
			StatusCode: raw.StatusCode,
			Version:    raw.Version,
			Elapsed:    f.clock.Since(start),
		}
		hop.Header, hop.HeaderErr = semantic.ParseHeaderLines(raw.HeaderLines, cfg.ParseHeaders)
		st.append(hop)

		logger.Debug().
			Int("hop", len(st.trail)).
			Str("uri", uri.String()).
			Uint("status", hop.StatusCode).
			Dur("elapsed", hop.Elapsed).
			Msg("Hop completed")

		span.AddEvent("hop", trace.WithAttributes(
			attribute.String("uri", uri.String()),
			attribute.Int("status", int(hop.StatusCode)),
			attribute.Int64("elapsed_ms", hop.Elapsed.Milliseconds()),
		))

		if hop.HeaderErr != nil {
			f.closeBody(logger, raw.Body)
			return nil, fail(&Error{
				Class:      ClassFatalTransport,
				StatusCode: hop.StatusCode,
				URI:        uri,
				Cause:      errors.Wrap(hop.HeaderErr, "parsing headers"),
			})
		}

		class := status.Classify(hop.StatusCode)

		if hop.StatusCode == 401 && f.auth != nil && !st.authTried[identity(uri)] {
			f.closeBody(logger, raw.Body)
			st.authTried[identity(uri)] = true

			revised, err := f.auth.Resolve(ctx, hop, opts.Clone())
			if err == nil {
				logger.Debug().Str("uri", uri.String()).Msg("Retrying with credentials")
				opts = revised
				continue
			}

			// Falls through to the error status handling below.
			logger.Debug().Err(err).Str("uri", uri.String()).Msg("Authentication challenge not resolved")
			raw.Body = nil
		}

		location, hasLocation := hop.Header.Get("Location")
		hasLocation = hasLocation && strings.TrimSpace(location) != ""

		switch {
		case class.IsError():
			f.closeBody(logger, raw.Body)

			if st.retries >= cfg.MaxRetries {
				errClass := ClassClientOrServer
				if hop.StatusCode == 401 {
					errClass = ClassAuthentication
				}
				return nil, fail(&Error{Class: errClass, StatusCode: hop.StatusCode, URI: uri})
			}

			st.retries++
			logger.Debug().
				Str("uri", uri.String()).
				Uint("status", hop.StatusCode).
				Uint("retry", st.retries).
				Msg("Retrying after error status")

		case class == status.ClassRedirect && hop.StatusCode != 304 && hasLocation:
			f.closeBody(logger, raw.Body)

			next, err := resolveLocation(uri, location)
			if err != nil {
				return nil, fail(&Error{
					Class:      ClassFatalTransport,
					StatusCode: hop.StatusCode,
					URI:        uri,
					Cause:      errors.Wrapf(err, "resolving location %q", location),
				})
			}
			st.visit(next)
			if cfg.MaxRedirects.Exceeded(st.redirects()) {
				return nil, fail(&Error{
					Class:      ClassRedirectLimitExceeded,
					StatusCode: hop.StatusCode,
					URI:        next,
					Cause:      errors.Wrapf(ErrRedirectLimitExceeded, "limit is %s", cfg.MaxRedirects),
				})
			}
			if st.visits(next) >= 2 {
				return nil, fail(&Error{
					Class:      ClassRedirectLoop,
					StatusCode: hop.StatusCode,
					URI:        next,
					Cause:      errors.Wrapf(ErrRedirectLoop, "%s", next),
				})
			}

			opts = redirectOptions(opts, hop.StatusCode, uri, next)
			uri = next

		default:
			body, err := f.decodeBody(logger, hop.Header, raw.Body, cfg.Compression)
			if err != nil {
				f.closeBody(logger, raw.Body)
				return nil, fail(&Error{
					Class:      ClassFatalTransport,
					StatusCode: hop.StatusCode,
					URI:        uri,
					Cause:      errors.Wrap(err, "decoding content"),
				})
			}
			st.trail[len(st.trail)-1].Body = body

			trail := st.frozen()
			logger.Info().
				Str("uri", uri.String()).
				Uint("status", hop.StatusCode).
				Int("hops", trail.Len()).
				Msg("Fetch succeeded")

			span.SetAttributes(
				attribute.Int("fetch.hops", trail.Len()),
				attribute.Int("fetch.status", int(hop.StatusCode)),
			)

			return &Result{Body: body, Trail: trail, URI: uri}, nil
		}
	}
}

// decodeBody undoes the content codings of the response.
// Declared codings take precedence over the configured compression.
// A response with an unknown coding is passed through untouched.
func (f *Fetcher) decodeBody(
	logger zerolog.Logger, header semantic.Headers, body io.ReadCloser, compression Compression,
) (io.ReadCloser, error) {
	names := header.Tokens("Content-Encoding")
	if len(names) == 0 {
		names = []string{string(compression.coding())}
	}

	codings := make([]transfer.Coding, 0, len(names))
	for _, name := range names {
		coding := transfer.ParseCoding(name)
		if !coding.Supported() {
			logger.Warn().Str("coding", name).Msg("Unknown content coding, passing content through")
			return body, nil
		}
		if coding != transfer.CodingIdentity {
			codings = append(codings, coding)
		}
	}

	if len(codings) == 0 {
		return body, nil
	}

	r := io.Reader(body)
	closers := make([]io.Closer, 0, len(codings)+1)
	// Codings are listed in the order they were applied.
	for idx := len(codings) - 1; idx >= 0; idx-- {
		decoded, err := transfer.Decompress(r, codings[idx])
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, err
		}
		r = decoded
		closers = append([]io.Closer{decoded}, closers...)
	}

	return iolib.ReadCloser(r, append(closers, body)...), nil
}

func (f *Fetcher) closeBody(logger zerolog.Logger, body io.Closer) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		logger.Debug().Err(err).Msg("Closing body")
	}
}
