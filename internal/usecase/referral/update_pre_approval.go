package referral

import (
	"context"
	"log/slog"
	"strconv"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
)

// UpdatePreApproval records a new pre-approval amount. Referrals that have
// not reached a contract get their fee recomputed.
func (s *Service) UpdatePreApproval(ctx context.Context, input UpdatePreApprovalInput) (StatusSnapshot, error) {
	ctx, err := s.begin(ctx, "update_pre_approval", input.ReferralID, input.Actor)
	if err != nil {
		return StatusSnapshot{}, err
	}
	if input.AmountCents < 0 {
		return StatusSnapshot{}, domainreferral.NewValidationError(domainreferral.FieldPreApproval, "must not be negative")
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
	next := current
	next.PreApprovalAmountCents = input.AmountCents
	next.UpdatedAt = now

	next, sync, err := domainreferral.RecomputeFee(next, s.settings.CommissionFallbackBps)
	if err != nil {
		return StatusSnapshot{}, err
	}

	audit := domainreferral.NewAuditEntry(
		current.ID,
		domainreferral.FieldPreApproval,
		strconv.FormatInt(current.PreApprovalAmountCents, 10),
		strconv.FormatInt(next.PreApprovalAmountCents, 10),
		input.Actor,
		now,
	)
	if err := s.commit(ctx, next, &audit, nil); err != nil {
		return StatusSnapshot{}, err
	}
	if err := s.syncPayments(ctx, current.ID, sync, now); err != nil {
		return StatusSnapshot{}, errs.Wrap(err, "sync payments")
	}

	logging.Info(ctx, "pre-approval updated",
		slog.Int64("pre_approval_cents", next.PreApprovalAmountCents),
		slog.Int64("referral_fee_due_cents", next.ReferralFeeDueCents),
	)
	return s.snapshot(next), nil
}
