// Package notify defines the notification sink that sweep summaries are
// delivered to. Delivery itself (email, chat webhooks) lives outside
// this module; callers plug their transport in behind the Notifier
// interface. Notification failures are logged by the caller and never
// fail the operation that produced them.
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Notifier delivers one notification. Implementations should honor ctx
// cancellation on slow transports.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, subject, body string) error

func (f Func) Notify(ctx context.Context, subject, body string) error {
	return f(ctx, subject, body)
}

// LogNotifier writes notifications to the structured log. It is the
// default sink when no delivery transport is configured, keeping sweep
// summaries visible in process output.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, subject, body string) error {
	slog.Info("notification", "subject", subject, "body_lines", strings.Count(body, "\n"))
	slog.Debug("notification body", "body", body)
	return nil
}
