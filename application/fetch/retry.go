package fetch

import (
	"context"
	"time"

	"resource-fetch/application/http/semantic/status"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultRetryTimeout = 10 * time.Second

type RetryOptions struct {
	// Timeout is the pause between attempts. Zero means [DefaultRetryTimeout].
	Timeout time.Duration
	// Clock defaults to the wall clock.
	Clock  clock.Clock
	Logger zerolog.Logger
}

// RetryUntilSuccess runs op until it returns nil.
// Recoverable fetch errors (see [ErrorClass.Recoverable]) are logged and retried
// after a pause, forever. Any other error is returned as is.
// Cancelling ctx stops the loop with ctx.Err().
func RetryUntilSuccess(ctx context.Context, op func(ctx context.Context) error, opts RetryOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRetryTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var fe *Error
		if !errors.As(err, &fe) || !fe.Class.Recoverable() {
			return err
		}

		event := opts.Logger.Warn().
			Int("attempt", attempt).
			Str("class", fe.Class.String()).
			Dur("timeout", opts.Timeout)
		if fe.StatusCode != 0 {
			event = event.
				Uint("status", fe.StatusCode).
				Str("reason", status.ReasonPhrase(fe.StatusCode))
		} else {
			event = event.AnErr("cause", fe.Cause)
		}
		event.Msg("Recoverable fetch error, retrying")

		timer := opts.Clock.Timer(opts.Timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
