// Command fetch retrieves resources over HTTP(S), following redirects and retrying failures.
//
//	fetch [-config file] [-poll] [-o file] URI...
//
// Bodies are written to stdout (or -o) as fetches complete.
// Logs, the trail of every fetch included, go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"resource-fetch/application/fetch"
	"resource-fetch/application/fetch/pool"
	"resource-fetch/internal/config"
	"resource-fetch/internal/logging"
	"resource-fetch/transport/wire"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("fetch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "YAML configuration `file`")
	poll := flags.Bool("poll", false, "retry recoverable failures until the fetch succeeds")
	output := flags.String("o", "", "write bodies to `file` instead of stdout")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: fetch [-config file] [-poll] [-o file] URI...")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := logging.New(stderr, cfg.Log.Level, cfg.Log.Pretty)

	out := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create output file")
			return 1
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCommand(cfg, logger, out, *poll)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	if err := c.run(ctx, flags.Args()); err != nil {
		logger.Error().Err(err).Msg("Fetch failed")
		return 1
	}
	return 0
}

type command struct {
	fetcher  pool.Fetcher
	fetchCfg fetch.Config
	poolOpts pool.Options
	logger   zerolog.Logger
	out      io.Writer
}

func newCommand(cfg *config.Config, logger zerolog.Logger, out io.Writer, poll bool) (*command, error) {
	fetchCfg, err := cfg.FetchConfig()
	if err != nil {
		return nil, err
	}

	opener := wire.New(logger, wire.Options{Timeout: cfg.Fetch.Timeout})

	opts := make([]fetch.Option, 0, 2)
	if resolver := cfg.AuthResolver(); resolver != nil {
		opts = append(opts, fetch.WithAuthResolver(resolver))
	}
	if limiter := cfg.Limiter(); limiter != nil {
		opts = append(opts, fetch.WithRateLimiter(limiter))
	}

	var fetcher pool.Fetcher = fetch.New(opener, logger, clock.New(), opts...)
	if poll {
		fetcher = polling{
			fetcher: fetcher,
			opts: fetch.RetryOptions{
				Timeout: cfg.Retry.Timeout,
				Clock:   clock.New(),
				Logger:  logger,
			},
		}
	}

	return &command{
		fetcher:  fetcher,
		fetchCfg: fetchCfg,
		poolOpts: cfg.PoolOptions(),
		logger:   logger,
		out:      out,
	}, nil
}

// run fetches a single URI in place and several on the pool.
// Every URI is attempted; the first failure is returned.
func (c *command) run(ctx context.Context, uris []string) error {
	if len(uris) == 1 {
		res, err := c.fetcher.Fetch(ctx, uris[0], c.fetchCfg)
		return c.handle(pool.Outcome{URI: uris[0], Result: res, Err: err})
	}

	var first error
	err := pool.New(c.fetcher, c.logger, c.poolOpts).Run(ctx, uris, c.fetchCfg, func(o pool.Outcome) error {
		if err := c.handle(o); err != nil && first == nil {
			first = err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return first
}

func (c *command) handle(o pool.Outcome) error {
	logTrail(c.logger, o.URI, o.Trail())

	if o.Err != nil {
		return errors.Wrapf(o.Err, "fetching %s", o.URI)
	}
	defer o.Result.Body.Close()

	if _, err := io.Copy(c.out, o.Result.Body); err != nil {
		return errors.Wrapf(err, "reading %s", o.URI)
	}
	return nil
}

func logTrail(logger zerolog.Logger, uri string, trail fetch.Trail) {
	arr := zerolog.Arr()
	for _, hop := range trail.Hops() {
		arr = arr.Dict(zerolog.Dict().
			Str("uri", hop.URI.String()).
			Uint("status", hop.StatusCode).
			Dur("elapsed", hop.Elapsed))
	}

	logger.Info().
		Str("uri", uri).
		Int("hops", trail.Len()).
		Array("trail", arr).
		Msg("Trail")
}

// polling repeats recoverable failures of the wrapped fetcher.
type polling struct {
	fetcher pool.Fetcher
	opts    fetch.RetryOptions
}

func (p polling) Fetch(ctx context.Context, uri string, cfg fetch.Config) (*fetch.Result, error) {
	var res *fetch.Result
	err := fetch.RetryUntilSuccess(ctx, func(ctx context.Context) error {
		r, err := p.fetcher.Fetch(ctx, uri, cfg)
		if err != nil {
			return err
		}
		res = r
		return nil
	}, p.opts)

	return res, err
}
