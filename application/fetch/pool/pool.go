// Package pool runs many independent fetches on a fixed set of workers.
package pool

import (
	"context"
	"sync"

	"resource-fetch/application/fetch"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Fetcher interface {
	Fetch(ctx context.Context, uri string, cfg fetch.Config) (*fetch.Result, error)
}

type Options struct {
	// Workers is the number of concurrent fetches. Zero means one.
	Workers uint
	// QueueSize bounds the URIs waiting for a worker. Zero means Workers.
	QueueSize uint
}

// Outcome is the result of fetching one URI.
type Outcome struct {
	URI    string
	Result *fetch.Result
	Err    error
}

// Trail returns the hops of the fetch, whether it failed or not.
func (o Outcome) Trail() fetch.Trail {
	if o.Result != nil {
		return o.Result.Trail
	}
	trail, _ := fetch.TrailOf(o.Err)
	return trail
}

func (o Outcome) discard() {
	if o.Result != nil && o.Result.Body != nil {
		o.Result.Body.Close()
	}
}

type Pool struct {
	fetcher Fetcher
	logger  zerolog.Logger
	opts    Options
}

func New(fetcher Fetcher, logger zerolog.Logger, opts Options) *Pool {
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = opts.Workers
	}

	return &Pool{fetcher: fetcher, logger: logger, opts: opts}
}

// Run fetches every URI with cfg and hands each outcome to handle on the calling goroutine.
// handle owns the result body. When handle fails, the remaining work is cancelled,
// bodies not yet handed over are closed and the handle error is returned.
// Fetch failures are outcomes, not Run errors.
func (p *Pool) Run(ctx context.Context, uris []string, cfg fetch.Config, handle func(Outcome) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	queue := make(chan string, p.opts.QueueSize)
	outcomes := make(chan Outcome)

	g.Go(func() error {
		defer close(queue)
		for _, uri := range uris {
			select {
			case queue <- uri:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for id := range p.opts.Workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			return p.work(ctx, id, queue, outcomes, cfg)
		})
	}

	go func() {
		workers.Wait()
		close(outcomes)
	}()

	var handleErr error
	for outcome := range outcomes {
		if handleErr != nil {
			outcome.discard()
			continue
		}

		if err := handle(outcome); err != nil {
			handleErr = errors.Wrapf(err, "handling %s", outcome.URI)
			cancel()
		}
	}

	if err := g.Wait(); handleErr == nil && err != nil {
		return errors.Wrap(err, "running fetches")
	}

	return handleErr
}

func (p *Pool) work(ctx context.Context, id uint, queue <-chan string, outcomes chan<- Outcome, cfg fetch.Config) error {
	logger := p.logger.With().Uint("worker", id).Logger()

	for uri := range queue {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := p.fetcher.Fetch(ctx, uri, cfg)
		outcome := Outcome{URI: uri, Result: res, Err: err}

		logger.Debug().
			Str("uri", uri).
			Int("hops", outcome.Trail().Len()).
			Err(err).
			Msg("Fetch finished")

		select {
		case outcomes <- outcome:
		case <-ctx.Done():
			outcome.discard()
			return ctx.Err()
		}
	}

	return nil
}
