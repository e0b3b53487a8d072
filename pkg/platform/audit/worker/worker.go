package worker

import (
	"context"
	"log/slog"

	audit "waypoint/pkg/platform/audit"
)

// Worker drains queued audit events into a sink. It runs until the inbox is
// closed, so closing the channel is how callers flush it.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
	onFail func()
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger, onFail func()) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if onFail == nil {
		onFail = func() {}
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger, onFail: onFail}
}

// Run delivers events until the inbox closes. Sink failures are logged and
// the worker moves on; audit never blocks request handling.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.sink.Append(ctx, event); err != nil {
			w.onFail()
			w.logger.ErrorContext(ctx, "failed to deliver audit event",
				"error", err,
				"action", string(event.Action),
				"request_id", event.RequestID,
			)
		}
	}
}
