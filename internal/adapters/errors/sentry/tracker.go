package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"cryptosys/pkg/errors"
)

const defaultFlushTimeout = 2 * time.Second

// Tracker reports errors to Sentry. Each capture runs on a cloned hub so
// tags never leak between concurrent analyses.
type Tracker struct {
	hub *sentry.Hub
}

var _ errors.Tracker = (*Tracker)(nil)

// New initializes the Sentry SDK; release is the service version
func New(dsn, environment, release string) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "sentry init")
	}

	return &Tracker{hub: sentry.CurrentHub()}, nil
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	if err == nil {
		return nil
	}

	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if symbol, ok := errors.SymbolFrom(ctx); ok {
			scope.SetTag("symbol", symbol)
		}
	})

	if id := hub.CaptureException(err); id == nil {
		return errors.Wrap(errors.ErrExternal, "sentry dropped event")
	}
	return nil
}

// Flush waits for pending events until ctx's deadline, or 2s without one
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !sentry.Flush(timeout) {
		return errors.Wrap(errors.ErrTimeout, "sentry flush")
	}
	return nil
}
