// Package logsink writes audit events to a structured logger.
package logsink

import (
	"context"
	"log/slog"

	audit "waypoint/pkg/platform/audit"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	attrs := []any{
		"audit_category", string(event.Category),
		"action", string(event.Action),
		"timestamp", event.Timestamp,
	}
	if !event.UserID.IsNil() {
		attrs = append(attrs, "user_id", event.UserID.String())
	}
	for _, kv := range [][2]string{
		{"actor_id", event.ActorID},
		{"email", event.Email},
		{"ip", event.IP},
		{"reason", event.Reason},
		{"request_id", event.RequestID},
	} {
		if kv[1] != "" {
			attrs = append(attrs, kv[0], kv[1])
		}
	}

	level := slog.LevelInfo
	if event.Category == audit.CategorySecurity {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "audit", attrs...)
	return nil
}
