package referral

import (
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentUnderContract PaymentStatus = "under_contract"
	PaymentClosed        PaymentStatus = "closed"
	PaymentPaid          PaymentStatus = "paid"
	PaymentTerminated    PaymentStatus = "terminated"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case PaymentUnderContract, PaymentClosed, PaymentPaid, PaymentTerminated:
		return status, nil
	default:
		return "", fmt.Errorf("invalid payment status %q", raw)
	}
}

type Payment struct {
	ID                  string
	ReferralID          string
	Status              PaymentStatus
	ExpectedAmountCents int64
	ReceivedAmountCents int64
	InvoicedAt          *time.Time
	PaidAt              *time.Time
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PaymentSyncKind selects how payment rows follow a referral change.
type PaymentSyncKind int

const (
	// PaymentSyncNone leaves payment rows untouched.
	PaymentSyncNone PaymentSyncKind = iota
	// PaymentSyncUnderContract updates under_contract rows only.
	PaymentSyncUnderContract
	// PaymentSyncEnsureUnderContract updates or creates the single under_contract row.
	PaymentSyncEnsureUnderContract
	// PaymentSyncZeroAll zeroes every row regardless of status.
	PaymentSyncZeroAll
)

// PaymentSync describes the payment reconciliation required after a change.
type PaymentSync struct {
	Kind                PaymentSyncKind
	ExpectedAmountCents int64
}

func (p PaymentSync) String() string {
	switch p.Kind {
	case PaymentSyncUnderContract:
		return fmt.Sprintf("under_contract=%d", p.ExpectedAmountCents)
	case PaymentSyncEnsureUnderContract:
		return fmt.Sprintf("ensure_under_contract=%d", p.ExpectedAmountCents)
	case PaymentSyncZeroAll:
		return "zero_all"
	default:
		return "none"
	}
}
