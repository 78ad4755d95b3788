package noop

import (
	"context"

	"cryptosys/pkg/errors"
)

// Tracker drops every report; used when error tracking is off
type Tracker struct{}

var _ errors.Tracker = Tracker{}

func New() Tracker {
	return Tracker{}
}

func (Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (Tracker) Flush(context.Context) error { return nil }
