package referral

import "time"

// Referral is the aggregate tracked from intake to payout. Audit entries,
// activity entries and notes live in their own append-only logs.
type Referral struct {
	ID string

	BorrowerFirstName string
	BorrowerLastName  string
	BorrowerEmail     string
	BorrowerPhone     string

	Status            Status
	StatusLastUpdated time.Time

	PreApprovalAmountCents int64
	EstPurchasePriceCents  int64
	CommissionBasisPoints  int64
	ReferralFeeBasisPoints int64
	ReferralFeeDueCents    int64

	Property Property

	AssignedAgent Reference[Party]
	Lender        Reference[Party]

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type Property struct {
	Address    string
	City       string
	State      string
	PostalCode string
}

func (p Property) IsZero() bool {
	return p == Property{}
}

func (r Referral) IsDeleted() bool {
	return r.DeletedAt != nil
}

func (r Referral) BorrowerName() string {
	switch {
	case r.BorrowerFirstName != "" && r.BorrowerLastName != "":
		return r.BorrowerFirstName + " " + r.BorrowerLastName
	case r.BorrowerFirstName != "":
		return r.BorrowerFirstName
	default:
		return r.BorrowerLastName
	}
}

// EffectiveCommissionBps falls back to fallback when no rate has been recorded.
func (r Referral) EffectiveCommissionBps(fallback int64) int64 {
	if r.CommissionBasisPoints > 0 {
		return r.CommissionBasisPoints
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultCommissionBps
}

// DaysInStatus counts UTC calendar days between the last status change and
// now, so a change at 23:00 reads as one day old at 01:00 the next day.
func DaysInStatus(statusLastUpdated time.Time, now time.Time) int {
	if statusLastUpdated.IsZero() || now.Before(statusLastUpdated) {
		return 0
	}
	return int(utcDay(now).Sub(utcDay(statusLastUpdated)) / (24 * time.Hour))
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
