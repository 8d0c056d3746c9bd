package referral

import (
	"fmt"
	"time"
)

// TransitionInput is a requested status change.
type TransitionInput struct {
	Target          Status
	ContractDetails *ContractDetails
	// CommissionFallbackBps applies when the referral has no commission rate.
	CommissionFallbackBps int64
	Now                   time.Time
}

// TransitionPlan is the result of applying a status change in memory.
type TransitionPlan struct {
	Referral Referral
	Previous Status
	Audit    AuditEntry
	Activity *ActivityEntry
	Payments PaymentSync
}

// PlanTransition applies target to r without touching storage. The actor is
// recorded on the audit and activity entries; authorization happens earlier.
func PlanTransition(r Referral, in TransitionInput, actor Actor) (TransitionPlan, error) {
	target, err := ParseStatus(string(in.Target))
	if err != nil {
		return TransitionPlan{}, NewValidationError(FieldStatus, err.Error())
	}

	now := in.Now.UTC()
	next := r
	previous := r.Status
	sync := PaymentSync{Kind: PaymentSyncNone}

	switch {
	case target == StatusUnderContract:
		if err := in.ContractDetails.Validate(); err != nil {
			return TransitionPlan{}, err
		}
		amounts, err := ComputeContractAmounts(
			in.ContractDetails.ContractPriceDollars,
			in.ContractDetails.AgentCommissionPercentage,
			in.ContractDetails.ReferralFeePercentage,
		)
		if err != nil {
			return TransitionPlan{}, err
		}
		next.Property = in.ContractDetails.Property()
		next.EstPurchasePriceCents = amounts.PurchasePriceCents
		next.CommissionBasisPoints = amounts.CommissionBps
		next.ReferralFeeBasisPoints = amounts.ReferralFeeBps
		next.ReferralFeeDueCents = amounts.ReferralFeeDueCents
		sync = PaymentSync{Kind: PaymentSyncEnsureUnderContract, ExpectedAmountCents: amounts.ReferralFeeDueCents}
	case target.ZeroesFinancials():
		next.EstPurchasePriceCents = 0
		next.ReferralFeeDueCents = 0
		sync = PaymentSync{Kind: PaymentSyncZeroAll}
	case target == StatusClosed:
		// Amounts were fixed when the contract was signed.
	default:
		fee, err := FeeDue(
			next.PreApprovalAmountCents,
			next.EffectiveCommissionBps(in.CommissionFallbackBps),
			next.ReferralFeeBasisPoints,
		)
		if err != nil {
			return TransitionPlan{}, err
		}
		next.ReferralFeeDueCents = fee
		sync = PaymentSync{Kind: PaymentSyncUnderContract, ExpectedAmountCents: fee}
	}

	if err := checkFinancials(next); err != nil {
		return TransitionPlan{}, err
	}

	next.Status = target
	next.StatusLastUpdated = now
	next.UpdatedAt = now

	plan := TransitionPlan{
		Referral: next,
		Previous: previous,
		Audit:    NewAuditEntry(r.ID, FieldStatus, string(previous), string(target), actor, now),
		Payments: sync,
	}
	if activity, changed := StatusChangeActivity(r.ID, previous, target, actor, now); changed {
		plan.Activity = &activity
	}
	return plan, nil
}

// RecomputeFee re-derives the fee after a pre-approval change. Contract and
// terminal stages keep their amounts.
func RecomputeFee(r Referral, commissionFallbackBps int64) (Referral, PaymentSync, error) {
	if !r.Status.IsPreContract() {
		return r, PaymentSync{Kind: PaymentSyncNone}, nil
	}

	fee, err := FeeDue(r.PreApprovalAmountCents, r.EffectiveCommissionBps(commissionFallbackBps), r.ReferralFeeBasisPoints)
	if err != nil {
		return Referral{}, PaymentSync{}, err
	}
	r.ReferralFeeDueCents = fee
	if err := checkFinancials(r); err != nil {
		return Referral{}, PaymentSync{}, err
	}
	return r, PaymentSync{Kind: PaymentSyncUnderContract, ExpectedAmountCents: fee}, nil
}

func checkFinancials(r Referral) error {
	checks := []struct {
		field string
		value int64
	}{
		{"preApprovalAmountCents", r.PreApprovalAmountCents},
		{"estPurchasePriceCents", r.EstPurchasePriceCents},
		{"commissionBasisPoints", r.CommissionBasisPoints},
		{"referralFeeBasisPoints", r.ReferralFeeBasisPoints},
		{"referralFeeDueCents", r.ReferralFeeDueCents},
	}
	for _, check := range checks {
		if check.value < 0 {
			return fmt.Errorf("%w: %s is negative (%d)", ErrComputationInvariant, check.field, check.value)
		}
	}
	return nil
}
