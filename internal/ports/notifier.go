package ports

import "context"

type Notification struct {
	ReferralID string
	To         []string
	Subject    string
	Body       string
}

// Notifier delivers a notification with a single attempt.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
