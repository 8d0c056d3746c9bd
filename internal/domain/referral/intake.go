package referral

import (
	"strings"
	"time"
)

// Intake is the payload that opens a referral at New Lead.
type Intake struct {
	BorrowerFirstName      string `json:"borrowerFirstName" validate:"required_without=BorrowerLastName"`
	BorrowerLastName       string `json:"borrowerLastName" validate:"required_without=BorrowerFirstName"`
	BorrowerEmail          string `json:"borrowerEmail" validate:"omitempty,email"`
	BorrowerPhone          string `json:"borrowerPhone"`
	PreApprovalAmountCents int64  `json:"preApprovalAmountCents" validate:"gte=0"`
	AgentID                string `json:"agentId"`
	LenderID               string `json:"lenderId"`
}

func (in *Intake) Validate() error {
	if in == nil {
		return NewValidationError("referral", "is required")
	}

	in.BorrowerFirstName = strings.TrimSpace(in.BorrowerFirstName)
	in.BorrowerLastName = strings.TrimSpace(in.BorrowerLastName)
	in.BorrowerEmail = strings.TrimSpace(in.BorrowerEmail)
	in.BorrowerPhone = strings.TrimSpace(in.BorrowerPhone)
	in.AgentID = strings.TrimSpace(in.AgentID)
	in.LenderID = strings.TrimSpace(in.LenderID)

	return fieldErrors(structValidator().Struct(in), "", "referral")
}

// NewReferral opens a referral from a validated intake. The fee is derived
// from the pre-approval with the default tier.
func NewReferral(id string, in Intake, commissionFallbackBps int64, now time.Time) (Referral, error) {
	now = now.UTC()
	r := Referral{
		ID:                     id,
		BorrowerFirstName:      in.BorrowerFirstName,
		BorrowerLastName:       in.BorrowerLastName,
		BorrowerEmail:          in.BorrowerEmail,
		BorrowerPhone:          in.BorrowerPhone,
		Status:                 StatusNewLead,
		StatusLastUpdated:      now,
		PreApprovalAmountCents: in.PreApprovalAmountCents,
		AssignedAgent:          RefID[Party](in.AgentID),
		Lender:                 RefID[Party](in.LenderID),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	fee, err := FeeDue(r.PreApprovalAmountCents, r.EffectiveCommissionBps(commissionFallbackBps), 0)
	if err != nil {
		return Referral{}, err
	}
	r.ReferralFeeDueCents = fee
	return r, checkFinancials(r)
}
