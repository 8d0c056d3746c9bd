package referral

import (
	"errors"
	"testing"
	"time"
)

var adminActor = Actor{ID: "admin-1", Role: RoleAdmin}

func baseReferral() Referral {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Referral{
		ID:                     "ref-1",
		BorrowerFirstName:      "Dana",
		BorrowerLastName:       "Reyes",
		Status:                 StatusNewLead,
		StatusLastUpdated:      created,
		PreApprovalAmountCents: 30_000_000,
		CreatedAt:              created,
		UpdatedAt:              created,
	}
}

func validContract() *ContractDetails {
	return &ContractDetails{
		PropertyAddress:           "12 Elm St",
		PropertyCity:              "Austin",
		PropertyState:             "TX",
		PropertyPostalCode:        "78701",
		ContractPriceDollars:      500_000,
		AgentCommissionPercentage: 3,
		ReferralFeePercentage:     40,
	}
}

func TestPlanTransitionUnderContractRequiresDetails(t *testing.T) {
	_, err := PlanTransition(baseReferral(), TransitionInput{Target: StatusUnderContract, Now: time.Now()}, adminActor)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("PlanTransition() error = %v, want ValidationError", err)
	}
	if _, ok := verr.Field(FieldContractDetails); !ok {
		t.Fatalf("ValidationError fields = %v, want contractDetails", verr.Fields)
	}
}

func TestPlanTransitionUnderContractNamesInvalidField(t *testing.T) {
	details := validContract()
	details.PropertyCity = "  "
	details.ReferralFeePercentage = 0

	_, err := PlanTransition(baseReferral(), TransitionInput{Target: StatusUnderContract, ContractDetails: details}, adminActor)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("PlanTransition() error = %v, want ValidationError", err)
	}
	if _, ok := verr.Field("contractDetails.propertyCity"); !ok {
		t.Fatalf("ValidationError fields = %v, want propertyCity", verr.Fields)
	}
	if _, ok := verr.Field("contractDetails.referralFeePercentage"); !ok {
		t.Fatalf("ValidationError fields = %v, want referralFeePercentage", verr.Fields)
	}
}

func TestPlanTransitionUnderContractSetsFinancials(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	plan, err := PlanTransition(baseReferral(), TransitionInput{
		Target:          StatusUnderContract,
		ContractDetails: validContract(),
		Now:             now,
	}, adminActor)
	if err != nil {
		t.Fatalf("PlanTransition() error = %v", err)
	}

	got := plan.Referral
	if got.EstPurchasePriceCents != 50_000_000 || got.CommissionBasisPoints != 300 || got.ReferralFeeBasisPoints != 4000 {
		t.Fatalf("financials = %+v", got)
	}
	if got.ReferralFeeDueCents != 600_000 {
		t.Fatalf("ReferralFeeDueCents = %d, want 600000", got.ReferralFeeDueCents)
	}
	if got.Property.City != "Austin" {
		t.Fatalf("Property = %+v", got.Property)
	}
	if !got.StatusLastUpdated.Equal(now) {
		t.Fatalf("StatusLastUpdated = %v, want %v", got.StatusLastUpdated, now)
	}
	if plan.Payments.Kind != PaymentSyncEnsureUnderContract || plan.Payments.ExpectedAmountCents != 600_000 {
		t.Fatalf("Payments = %v", plan.Payments)
	}
	if plan.Activity == nil || plan.Activity.Content != "Status changed from New Lead to Under Contract" {
		t.Fatalf("Activity = %+v", plan.Activity)
	}
}

func TestPlanTransitionTerminatedZeroesFinancials(t *testing.T) {
	r := baseReferral()
	r.Status = StatusUnderContract
	r.EstPurchasePriceCents = 50_000_000
	r.ReferralFeeDueCents = 6_000_000

	for _, target := range []Status{StatusTerminated, StatusLost} {
		plan, err := PlanTransition(r, TransitionInput{Target: target, Now: time.Now()}, adminActor)
		if err != nil {
			t.Fatalf("PlanTransition(%s) error = %v", target, err)
		}
		if plan.Referral.EstPurchasePriceCents != 0 || plan.Referral.ReferralFeeDueCents != 0 {
			t.Fatalf("PlanTransition(%s) financials = %+v", target, plan.Referral)
		}
		if plan.Payments.Kind != PaymentSyncZeroAll {
			t.Fatalf("PlanTransition(%s) payments = %v", target, plan.Payments)
		}
	}
}

func TestPlanTransitionClosedKeepsFinancials(t *testing.T) {
	r := baseReferral()
	r.Status = StatusUnderContract
	r.EstPurchasePriceCents = 50_000_000
	r.CommissionBasisPoints = 300
	r.ReferralFeeDueCents = 6_000_000

	plan, err := PlanTransition(r, TransitionInput{Target: StatusClosed, Now: time.Now()}, adminActor)
	if err != nil {
		t.Fatalf("PlanTransition() error = %v", err)
	}
	if plan.Referral.ReferralFeeDueCents != 6_000_000 || plan.Referral.EstPurchasePriceCents != 50_000_000 {
		t.Fatalf("financials changed on Closed: %+v", plan.Referral)
	}
	if plan.Payments.Kind != PaymentSyncNone {
		t.Fatalf("Payments = %v, want none", plan.Payments)
	}
}

func TestPlanTransitionPreContractRecomputesFromPreApproval(t *testing.T) {
	plan, err := PlanTransition(baseReferral(), TransitionInput{Target: "in_communication", CommissionFallbackBps: 300, Now: time.Now()}, adminActor)
	if err != nil {
		t.Fatalf("PlanTransition() error = %v", err)
	}
	// commission = 30,000,000 * 3% = 900,000; 25% tier = 225,000
	if plan.Referral.ReferralFeeDueCents != 225_000 {
		t.Fatalf("ReferralFeeDueCents = %d, want 225000", plan.Referral.ReferralFeeDueCents)
	}
	if plan.Referral.Status != StatusInCommunication {
		t.Fatalf("Status = %q", plan.Referral.Status)
	}
	if plan.Payments.Kind != PaymentSyncUnderContract || plan.Payments.ExpectedAmountCents != 225_000 {
		t.Fatalf("Payments = %v", plan.Payments)
	}
}

func TestPlanTransitionSameStatusAuditsWithoutActivity(t *testing.T) {
	plan, err := PlanTransition(baseReferral(), TransitionInput{Target: StatusNewLead, Now: time.Now()}, adminActor)
	if err != nil {
		t.Fatalf("PlanTransition() error = %v", err)
	}
	if plan.Activity != nil {
		t.Fatalf("Activity = %+v, want nil", plan.Activity)
	}
	if plan.Audit.Field != FieldStatus || plan.Audit.PreviousValue != plan.Audit.NewValue {
		t.Fatalf("Audit = %+v", plan.Audit)
	}
	if plan.Audit.ActorID != adminActor.ID || plan.Audit.ActorRole != RoleAdmin {
		t.Fatalf("Audit actor = %s/%s", plan.Audit.ActorID, plan.Audit.ActorRole)
	}
}

func TestPlanTransitionRejectsUnknownStatus(t *testing.T) {
	_, err := PlanTransition(baseReferral(), TransitionInput{Target: "Archived"}, adminActor)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("PlanTransition() error = %v, want ValidationError", err)
	}
}

func TestPlanTransitionRejectsNegativeAmounts(t *testing.T) {
	r := baseReferral()
	r.PreApprovalAmountCents = -5
	_, err := PlanTransition(r, TransitionInput{Target: StatusPaired}, adminActor)
	if !errors.Is(err, ErrComputationInvariant) {
		t.Fatalf("PlanTransition() error = %v, want ErrComputationInvariant", err)
	}
}

func TestPlanTransitionRejectsUnrepresentableContractPrice(t *testing.T) {
	details := validContract()
	details.ContractPriceDollars = 2e17

	_, err := PlanTransition(baseReferral(), TransitionInput{Target: StatusUnderContract, ContractDetails: details}, adminActor)
	if !errors.Is(err, ErrComputationInvariant) {
		t.Fatalf("PlanTransition() error = %v, want ErrComputationInvariant", err)
	}
}

func TestRecomputeFeeSkipsContractStages(t *testing.T) {
	r := baseReferral()
	r.Status = StatusUnderContract
	r.ReferralFeeDueCents = 123

	got, sync, err := RecomputeFee(r, 300)
	if err != nil {
		t.Fatalf("RecomputeFee() error = %v", err)
	}
	if got.ReferralFeeDueCents != 123 || sync.Kind != PaymentSyncNone {
		t.Fatalf("RecomputeFee() = %d, %v", got.ReferralFeeDueCents, sync)
	}
}

func TestDaysInStatus(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	lateEvening := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	offset := time.FixedZone("UTC-5", -5*60*60)

	cases := []struct {
		name string
		from time.Time
		now  time.Time
		want int
	}{
		{name: "same day", from: start, now: start.Add(13 * time.Hour), want: 0},
		{name: "across midnight", from: lateEvening, now: lateEvening.Add(2 * time.Hour), want: 1},
		{name: "calendar days", from: start, now: start.Add(71 * time.Hour), want: 3},
		{name: "non utc input", from: lateEvening, now: time.Date(2026, 1, 1, 20, 30, 0, 0, offset), want: 1},
		{name: "clock skew", from: start, now: start.Add(-time.Hour), want: 0},
		{name: "never changed", from: time.Time{}, now: start, want: 0},
	}
	for _, tc := range cases {
		if got := DaysInStatus(tc.from, tc.now); got != tc.want {
			t.Fatalf("%s: DaysInStatus() = %d, want %d", tc.name, got, tc.want)
		}
	}
}
