package ports

import (
	"context"
	"errors"

	"referralhub/internal/domain/referral"
)

var (
	ErrReferralNotFound = errors.New("referral record not found")
	ErrPartyNotFound    = errors.New("directory record not found")
)

type ReferralFilter struct {
	Status         string
	AgentUserID    string
	LenderUserID   string
	IncludeDeleted bool
	Limit          int
}

// ReferralRepository stores referrals with agent/lender kept as ids.
// GetReferral returns soft-deleted rows too; callers decide visibility.
type ReferralRepository interface {
	CreateReferral(ctx context.Context, r referral.Referral) error
	GetReferral(ctx context.Context, referralID string) (referral.Referral, error)
	ListReferrals(ctx context.Context, filter ReferralFilter) ([]referral.Referral, error)
	SaveReferral(ctx context.Context, r referral.Referral) error
}

// AuditLog is append-only: entries get the next per-referral sequence.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry referral.AuditEntry) (referral.AuditEntry, error)
	ListAudit(ctx context.Context, referralID string) ([]referral.AuditEntry, error)
}

type ActivityLog interface {
	AppendActivity(ctx context.Context, entry referral.ActivityEntry) (referral.ActivityEntry, error)
	ListActivity(ctx context.Context, referralID string, limit int) ([]referral.ActivityEntry, error)
}

type NoteLog interface {
	AppendNote(ctx context.Context, note referral.Note) (referral.Note, error)
	ListNotes(ctx context.Context, referralID string) ([]referral.Note, error)
}

// PaymentRepository updates expected amounts with bulk writes filtered by
// referral and status.
type PaymentRepository interface {
	ListPayments(ctx context.Context, referralID string) ([]referral.Payment, error)
	CreatePayment(ctx context.Context, p referral.Payment) error
	CountByStatus(ctx context.Context, referralID string, status referral.PaymentStatus) (int64, error)
	UpdateExpectedByStatus(ctx context.Context, referralID string, status referral.PaymentStatus, expectedCents int64, updatedAt string) (int64, error)
	ZeroAllExpected(ctx context.Context, referralID string, updatedAt string) (int64, error)
}

// DirectoryRepository resolves agents and lenders. Directory CRUD lives elsewhere.
type DirectoryRepository interface {
	GetAgent(ctx context.Context, agentID string) (referral.Party, error)
	GetLender(ctx context.Context, lenderID string) (referral.Party, error)
	FindAgentByUserID(ctx context.Context, userID string) (referral.Party, error)
	UpsertAgent(ctx context.Context, p referral.Party) error
	UpsertLender(ctx context.Context, p referral.Party) error
}
