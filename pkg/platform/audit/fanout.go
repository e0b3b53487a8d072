package audit

import (
	"context"
	"errors"
)

type fanout []Sink

// Fanout delivers each event to every sink. All sinks are attempted; their
// errors are joined.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

func (f fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
