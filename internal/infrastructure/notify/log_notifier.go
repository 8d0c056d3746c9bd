package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"referralhub/internal/bootstrap/logging"
	"referralhub/internal/ports"
)

// LogNotifier writes notifications to the log. Used when no transport is set up.
type LogNotifier struct{}

var _ ports.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, msg ports.Notification) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	to := recipients(msg.To)
	if len(to) == 0 {
		return errors.New("notification has no recipients")
	}

	logging.Info(ctx, "notification",
		slog.String("component", "notify.log"),
		slog.String("referral_id", msg.ReferralID),
		slog.String("to", strings.Join(to, ",")),
		slog.String("subject", msg.Subject),
	)
	return nil
}
