package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

const DefaultNATSSubject = "referrals.notifications"

// natsPayload is the wire shape published for downstream mailers.
type natsPayload struct {
	ReferralID string    `json:"referralId"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes notifications and leaves delivery to a subscriber.
type NATSNotifier struct {
	conn    publisher
	subject string
	now     func() time.Time
}

var _ ports.Notifier = (*NATSNotifier)(nil)

// DialNATS connects with a client name so the server can tell instances apart.
func DialNATS(url string) (*nats.Conn, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("referralhub"), nats.MaxReconnects(5))
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return conn, nil
}

func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return newNATSNotifier(conn, subject)
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSNotifier{conn: conn, subject: subject, now: time.Now}
}

func (n *NATSNotifier) Notify(ctx context.Context, msg ports.Notification) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	to := recipients(msg.To)
	if len(to) == 0 {
		return errors.New("notification has no recipients")
	}

	data, err := json.Marshal(natsPayload{
		ReferralID: msg.ReferralID,
		To:         to,
		Subject:    msg.Subject,
		Body:       msg.Body,
		SentAt:     n.now().UTC(),
	})
	if err != nil {
		return errs.Wrap(err, "marshal notification")
	}

	if err := n.conn.Publish(n.subject+"."+msg.ReferralID, data); err != nil {
		return errs.Wrapf(err, "publish notification for referral %s", msg.ReferralID)
	}
	return nil
}
