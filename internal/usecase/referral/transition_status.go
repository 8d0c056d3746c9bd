package referral

import (
	"context"
	"log/slog"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
)

// TransitionStatus moves a referral to a new pipeline status, recomputes its
// financials and reconciles payments. The referral, its audit entry and its
// activity entry commit together; payments follow in a separate step.
func (s *Service) TransitionStatus(ctx context.Context, input TransitionStatusInput) (StatusSnapshot, error) {
	ctx, err := s.begin(ctx, "transition_status", input.ReferralID, input.Actor)
	if err != nil {
		return StatusSnapshot{}, err
	}

	release, err := s.lock(ctx, input.ReferralID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	defer release()

	current, err := s.loadReferral(ctx, input.ReferralID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	if err := domainreferral.Authorize(input.Actor, current, true); err != nil {
		return StatusSnapshot{}, err
	}

	now := s.now().UTC()
	plan, err := domainreferral.PlanTransition(current, domainreferral.TransitionInput{
		Target:                domainreferral.Status(input.Status),
		ContractDetails:       input.ContractDetails,
		CommissionFallbackBps: s.settings.CommissionFallbackBps,
		Now:                   now,
	}, input.Actor)
	if err != nil {
		return StatusSnapshot{}, err
	}

	if err := s.commit(ctx, plan.Referral, &plan.Audit, plan.Activity); err != nil {
		return StatusSnapshot{}, err
	}

	if err := s.syncPayments(ctx, current.ID, plan.Payments, now); err != nil {
		logging.Error(ctx, "payment sync failed after status change",
			slog.String("payments", plan.Payments.String()),
			slog.Any("err", errs.Loggable(err)),
		)
		return StatusSnapshot{}, errs.Wrap(err, "sync payments")
	}

	logging.Info(ctx, "referral status changed",
		slog.String("from", string(plan.Previous)),
		slog.String("to", string(plan.Referral.Status)),
		slog.Int64("referral_fee_due_cents", plan.Referral.ReferralFeeDueCents),
		slog.String("payments", plan.Payments.String()),
	)
	return s.snapshot(plan.Referral), nil
}
