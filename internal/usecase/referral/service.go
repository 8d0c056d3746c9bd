package referral

import (
	"time"

	"github.com/google/uuid"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

const (
	componentName       = "usecase.referral"
	defaultLockTTL      = 30 * time.Second
	defaultNarrativeTTL = 24 * time.Hour
)

// Deps are the collaborators of Service. Locker, Cache, Notifier and
// Narrator are optional.
type Deps struct {
	Referrals ports.ReferralRepository
	Audit     ports.AuditLog
	Activity  ports.ActivityLog
	Notes     ports.NoteLog
	Payments  ports.PaymentRepository
	Directory ports.DirectoryRepository
	UoW       ports.UnitOfWork
	Locker    ports.Locker
	Cache     ports.Cache
	Notifier  ports.Notifier
	Narrator  ports.TextGenerator
}

// Settings carry the configurable business knobs.
type Settings struct {
	CommissionFallbackBps int64
	Policy                domainreferral.SLAPolicy
	NarrativeTTL          time.Duration
	LockTTL               time.Duration
	AdminEmails           []string
}

type Service struct {
	deps     Deps
	settings Settings
	now      func() time.Time
	newID    func() string
}

// NewService wires referral usecases. Zero settings fall back to defaults.
func NewService(deps Deps, settings Settings) *Service {
	if settings.CommissionFallbackBps <= 0 {
		settings.CommissionFallbackBps = domainreferral.DefaultCommissionBps
	}
	if settings.NarrativeTTL <= 0 {
		settings.NarrativeTTL = defaultNarrativeTTL
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = defaultLockTTL
	}
	return &Service{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type TransitionStatusInput struct {
	ReferralID      string
	Status          string
	ContractDetails *domainreferral.ContractDetails
	Actor           domainreferral.Actor
}

// StatusSnapshot is what callers see after a status or fee change.
type StatusSnapshot struct {
	ID                     string                          `json:"id"`
	Status                 domainreferral.Status           `json:"status"`
	ContractDetails        *domainreferral.ContractDetails `json:"contractDetails,omitempty"`
	PreApprovalAmountCents int64                           `json:"preApprovalAmountCents"`
	ReferralFeeDueCents    int64                           `json:"referralFeeDueCents"`
	ContractPriceCents     int64                           `json:"contractPriceCents"`
	StatusLastUpdated      time.Time                       `json:"statusLastUpdated"`
	DaysInStatus           int                             `json:"daysInStatus"`
}

type AssignInput struct {
	ReferralID string
	AssigneeID string
	Actor      domainreferral.Actor
}

type AssignResult struct {
	ID string `json:"id"`
}

// Email targets accepted by AddNote.
const (
	EmailTargetAgent = "agent"
	EmailTargetMC    = "mc"
	EmailTargetAdmin = "admin"
)

type AddNoteInput struct {
	ReferralID      string
	Content         string
	HiddenFromAgent bool
	HiddenFromMC    bool
	EmailTargets    []string
	Actor           domainreferral.Actor
}

type AddNoteResult struct {
	Note                  domainreferral.Note
	DeliveryFailed        bool
	DeliveryFailureReason string
}

type CreateReferralInput struct {
	Intake domainreferral.Intake
	Actor  domainreferral.Actor
}

type UpdatePreApprovalInput struct {
	ReferralID  string
	AmountCents int64
	Actor       domainreferral.Actor
}

type RecordContactInput struct {
	ReferralID string
	Channel    string
	Content    string
	Actor      domainreferral.Actor
}

type ListReferralsInput struct {
	Status string
	Limit  int
	Actor  domainreferral.Actor
}

type InsightsResult struct {
	ReferralID      string                          `json:"referralId"`
	Status          domainreferral.Status           `json:"status"`
	DaysInStatus    int                             `json:"daysInStatus"`
	GeneratedAt     time.Time                       `json:"generatedAt"`
	Recommendations []domainreferral.Recommendation `json:"recommendations"`
}
