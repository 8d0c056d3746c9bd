package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

func (s *Service) requireStore() error {
	switch {
	case s.deps.Referrals == nil:
		return errors.New("referral repository is required")
	case s.deps.Audit == nil:
		return errors.New("audit log is required")
	case s.deps.Activity == nil:
		return errors.New("activity log is required")
	case s.deps.Notes == nil:
		return errors.New("note log is required")
	case s.deps.Payments == nil:
		return errors.New("payment repository is required")
	case s.deps.Directory == nil:
		return errors.New("directory repository is required")
	case s.deps.UoW == nil:
		return errors.New("unit of work is required")
	}
	return nil
}

// begin runs the shared preamble of every operation and returns a context
// carrying the log attrs for it.
func (s *Service) begin(ctx context.Context, op string, referralID string, actor domainreferral.Actor) (context.Context, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if !actor.Authenticated() {
		return nil, domainreferral.ErrUnauthenticated
	}

	attrs := []slog.Attr{
		slog.String("component", componentName),
		slog.String("op", op),
		slog.String("actor_id", actor.ID),
		slog.String("actor_role", string(actor.Role)),
	}
	if referralID != "" {
		attrs = append(attrs, slog.String("referral_id", referralID))
	}
	return logging.WithAttrs(ctx, attrs...), nil
}

// lock serializes writers of one referral when a locker is configured.
func (s *Service) lock(ctx context.Context, referralID string) (func(), error) {
	if s.deps.Locker == nil {
		return func() {}, nil
	}
	release, err := s.deps.Locker.Obtain(ctx, "referral:"+referralID, s.settings.LockTTL)
	if err != nil {
		return nil, errs.Wrapf(err, "lock referral %s", referralID)
	}
	return release, nil
}

// loadReferral returns a live referral with both references expanded.
func (s *Service) loadReferral(ctx context.Context, referralID string) (domainreferral.Referral, error) {
	referralID = strings.TrimSpace(referralID)
	if referralID == "" {
		return domainreferral.Referral{}, domainreferral.NewValidationError("id", "is required")
	}

	item, err := s.deps.Referrals.GetReferral(ctx, referralID)
	if err != nil {
		if errors.Is(err, ports.ErrReferralNotFound) {
			return domainreferral.Referral{}, notFound(referralID)
		}
		return domainreferral.Referral{}, err
	}
	if item.IsDeleted() {
		return domainreferral.Referral{}, notFound(referralID)
	}
	return s.expand(ctx, item)
}

// expand swaps raw references for directory records. Ids the directory does
// not know stay raw.
func (s *Service) expand(ctx context.Context, item domainreferral.Referral) (domainreferral.Referral, error) {
	if id := item.AssignedAgent.ID(); id != "" && !item.AssignedAgent.IsExpanded() {
		agent, err := s.deps.Directory.GetAgent(ctx, id)
		switch {
		case err == nil:
			item.AssignedAgent = domainreferral.RefExpanded(id, agent)
		case !errors.Is(err, ports.ErrPartyNotFound):
			return domainreferral.Referral{}, err
		}
	}
	if id := item.Lender.ID(); id != "" && !item.Lender.IsExpanded() {
		lender, err := s.deps.Directory.GetLender(ctx, id)
		switch {
		case err == nil:
			item.Lender = domainreferral.RefExpanded(id, lender)
		case !errors.Is(err, ports.ErrPartyNotFound):
			return domainreferral.Referral{}, err
		}
	}
	return item, nil
}

// syncPayments applies a payment reconciliation in its own transaction.
// Every branch is safe to repeat.
func (s *Service) syncPayments(ctx context.Context, referralID string, sync domainreferral.PaymentSync, now time.Time) error {
	updatedAt := now.UTC().Format(time.RFC3339Nano)

	switch sync.Kind {
	case domainreferral.PaymentSyncNone:
		return nil
	case domainreferral.PaymentSyncUnderContract:
		_, err := s.deps.Payments.UpdateExpectedByStatus(ctx, referralID, domainreferral.PaymentUnderContract, sync.ExpectedAmountCents, updatedAt)
		return err
	case domainreferral.PaymentSyncZeroAll:
		_, err := s.deps.Payments.ZeroAllExpected(ctx, referralID, updatedAt)
		return err
	case domainreferral.PaymentSyncEnsureUnderContract:
		return s.deps.UoW.WithTx(ctx, func(txCtx context.Context) error {
			count, err := s.deps.Payments.CountByStatus(txCtx, referralID, domainreferral.PaymentUnderContract)
			if err != nil {
				return err
			}
			if count > 0 {
				_, err := s.deps.Payments.UpdateExpectedByStatus(txCtx, referralID, domainreferral.PaymentUnderContract, sync.ExpectedAmountCents, updatedAt)
				return err
			}
			return s.deps.Payments.CreatePayment(txCtx, domainreferral.Payment{
				ID:                  s.newID(),
				ReferralID:          referralID,
				Status:              domainreferral.PaymentUnderContract,
				ExpectedAmountCents: sync.ExpectedAmountCents,
				CreatedAt:           now,
				UpdatedAt:           now,
			})
		})
	default:
		return fmt.Errorf("unknown payment sync kind %d", sync.Kind)
	}
}

// commit persists the referral together with its log entries.
func (s *Service) commit(ctx context.Context, item domainreferral.Referral, audit *domainreferral.AuditEntry, activity *domainreferral.ActivityEntry) error {
	return s.deps.UoW.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.deps.Referrals.SaveReferral(txCtx, item); err != nil {
			if errors.Is(err, ports.ErrReferralNotFound) {
				return notFound(item.ID)
			}
			return err
		}
		if audit != nil {
			if _, err := s.deps.Audit.AppendAudit(txCtx, *audit); err != nil {
				return err
			}
		}
		if activity != nil {
			if _, err := s.deps.Activity.AppendActivity(txCtx, *activity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) snapshot(item domainreferral.Referral) StatusSnapshot {
	return StatusSnapshot{
		ID:                     item.ID,
		Status:                 item.Status,
		ContractDetails:        contractDetailsOf(item),
		PreApprovalAmountCents: item.PreApprovalAmountCents,
		ReferralFeeDueCents:    item.ReferralFeeDueCents,
		ContractPriceCents:     item.EstPurchasePriceCents,
		StatusLastUpdated:      item.StatusLastUpdated,
		DaysInStatus:           domainreferral.DaysInStatus(item.StatusLastUpdated, s.now()),
	}
}

// contractDetailsOf echoes the recorded contract terms back in request units.
func contractDetailsOf(item domainreferral.Referral) *domainreferral.ContractDetails {
	if item.Status != domainreferral.StatusUnderContract && item.Status != domainreferral.StatusClosed {
		return nil
	}
	if item.Property.IsZero() && item.EstPurchasePriceCents == 0 {
		return nil
	}
	return &domainreferral.ContractDetails{
		PropertyAddress:           item.Property.Address,
		PropertyCity:              item.Property.City,
		PropertyState:             item.Property.State,
		PropertyPostalCode:        item.Property.PostalCode,
		ContractPriceDollars:      float64(item.EstPurchasePriceCents) / 100,
		AgentCommissionPercentage: float64(item.CommissionBasisPoints) / 100,
		ReferralFeePercentage:     float64(item.ReferralFeeBasisPoints) / 100,
	}
}

func notFound(referralID string) error {
	return fmt.Errorf("%w: %s", domainreferral.ErrNotFound, referralID)
}

func partyName(ref domainreferral.Reference[domainreferral.Party]) string {
	if party, ok := ref.Expanded(); ok {
		return party.DisplayName()
	}
	return ""
}
