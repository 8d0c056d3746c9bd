package notify

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"

	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTPNotifier sends one plain-text mail per notification.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(m *gomail.Message) error
}

var _ ports.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.Sender) == "" {
		return nil, errors.New("smtp sender is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 465
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPNotifier{cfg: cfg, send: func(m *gomail.Message) error {
		return dialer.DialAndSend(m)
	}}, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg ports.Notification) error {
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

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.Sender)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := n.send(m); err != nil {
		return errs.Wrapf(err, "send mail for referral %s", msg.ReferralID)
	}
	return nil
}

func recipients(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, addr := range raw {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
