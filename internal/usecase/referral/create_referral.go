package referral

import (
	"context"
	"errors"
	"log/slog"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

// CreateReferral opens a referral at New Lead. Agents may only open
// referrals for themselves; staff may pick the agent and lender.
func (s *Service) CreateReferral(ctx context.Context, input CreateReferralInput) (domainreferral.Referral, error) {
	ctx, err := s.begin(ctx, "create_referral", "", input.Actor)
	if err != nil {
		return domainreferral.Referral{}, err
	}

	switch input.Actor.Role {
	case domainreferral.RoleAdmin, domainreferral.RoleManager, domainreferral.RoleAgent:
	default:
		return domainreferral.Referral{}, domainreferral.ErrForbidden
	}

	intake := input.Intake
	if err := intake.Validate(); err != nil {
		return domainreferral.Referral{}, err
	}

	if input.Actor.Role == domainreferral.RoleAgent {
		agent, err := s.deps.Directory.FindAgentByUserID(ctx, input.Actor.ID)
		if err != nil {
			if errors.Is(err, ports.ErrPartyNotFound) {
				return domainreferral.Referral{}, domainreferral.NewValidationError(domainreferral.FieldAssignedAgent, "no agent record is linked to this user")
			}
			return domainreferral.Referral{}, err
		}
		intake.AgentID = agent.ID
	} else if intake.AgentID != "" {
		if _, err := s.lookupAgent(ctx, intake.AgentID); err != nil {
			return domainreferral.Referral{}, err
		}
	}
	if intake.LenderID != "" {
		if _, err := s.lookupLender(ctx, intake.LenderID); err != nil {
			return domainreferral.Referral{}, err
		}
	}

	now := s.now().UTC()
	item, err := domainreferral.NewReferral(s.newID(), intake, s.settings.CommissionFallbackBps, now)
	if err != nil {
		return domainreferral.Referral{}, err
	}

	if err := s.deps.UoW.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.deps.Referrals.CreateReferral(txCtx, item); err != nil {
			return err
		}
		_, err := s.deps.Activity.AppendActivity(txCtx, domainreferral.ActivityEntry{
			ReferralID: item.ID,
			Actor:      domainreferral.ActivityActorFor(input.Actor.Role),
			ActorID:    input.Actor.ID,
			Channel:    domainreferral.ChannelSystem,
			Content:    "Referral created",
			CreatedAt:  now,
		})
		return err
	}); err != nil {
		return domainreferral.Referral{}, err
	}

	ctx = logging.WithAttrs(ctx, slog.String("referral_id", item.ID))
	logging.Info(ctx, "referral created", slog.Int64("referral_fee_due_cents", item.ReferralFeeDueCents))
	return s.expand(ctx, item)
}
