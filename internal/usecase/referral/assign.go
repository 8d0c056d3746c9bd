package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

type partyRole struct {
	op     string
	field  string
	lookup func(ctx context.Context, id string) (domainreferral.Party, error)
	get    func(r domainreferral.Referral) domainreferral.Reference[domainreferral.Party]
	set    func(r *domainreferral.Referral, ref domainreferral.Reference[domainreferral.Party])
}

// AssignAgent points the referral at an agent directory record.
func (s *Service) AssignAgent(ctx context.Context, input AssignInput) (AssignResult, error) {
	return s.assign(ctx, input, partyRole{
		op:     "assign_agent",
		field:  domainreferral.FieldAssignedAgent,
		lookup: s.lookupAgent,
		get: func(r domainreferral.Referral) domainreferral.Reference[domainreferral.Party] {
			return r.AssignedAgent
		},
		set: func(r *domainreferral.Referral, ref domainreferral.Reference[domainreferral.Party]) {
			r.AssignedAgent = ref
		},
	})
}

// AssignLender points the referral at a lender directory record.
func (s *Service) AssignLender(ctx context.Context, input AssignInput) (AssignResult, error) {
	return s.assign(ctx, input, partyRole{
		op:     "assign_lender",
		field:  domainreferral.FieldLender,
		lookup: s.lookupLender,
		get: func(r domainreferral.Referral) domainreferral.Reference[domainreferral.Party] {
			return r.Lender
		},
		set: func(r *domainreferral.Referral, ref domainreferral.Reference[domainreferral.Party]) {
			r.Lender = ref
		},
	})
}

func (s *Service) assign(ctx context.Context, input AssignInput, role partyRole) (AssignResult, error) {
	ctx, err := s.begin(ctx, role.op, input.ReferralID, input.Actor)
	if err != nil {
		return AssignResult{}, err
	}

	assigneeID := strings.TrimSpace(input.AssigneeID)
	if assigneeID == "" {
		return AssignResult{}, domainreferral.NewValidationError(role.field, "is required")
	}

	release, err := s.lock(ctx, input.ReferralID)
	if err != nil {
		return AssignResult{}, err
	}
	defer release()

	current, err := s.loadReferral(ctx, input.ReferralID)
	if err != nil {
		return AssignResult{}, err
	}
	if err := domainreferral.Authorize(input.Actor, current, true); err != nil {
		return AssignResult{}, err
	}

	party, err := role.lookup(ctx, assigneeID)
	if err != nil {
		return AssignResult{}, err
	}

	previous := role.get(current)
	now := s.now().UTC()

	next := current
	role.set(&next, domainreferral.RefExpanded(party.ID, party))
	next.UpdatedAt = now

	audit := domainreferral.NewAuditEntry(current.ID, role.field, previous.ID(), party.ID, input.Actor, now)
	activity := domainreferral.ActivityEntry{
		ReferralID: current.ID,
		Actor:      domainreferral.ActivityActorFor(input.Actor.Role),
		ActorID:    input.Actor.ID,
		Channel:    domainreferral.ChannelSystem,
		Content:    domainreferral.AssignmentMessage(previous.ID(), partyName(previous), party.ID, party.DisplayName()),
		CreatedAt:  now,
	}

	if err := s.commit(ctx, next, &audit, &activity); err != nil {
		return AssignResult{}, err
	}

	logging.Info(ctx, "referral assignment changed",
		slog.String("field", role.field),
		slog.String("from", previous.ID()),
		slog.String("to", party.ID),
	)
	return AssignResult{ID: current.ID}, nil
}

func (s *Service) lookupAgent(ctx context.Context, id string) (domainreferral.Party, error) {
	party, err := s.deps.Directory.GetAgent(ctx, id)
	if errors.Is(err, ports.ErrPartyNotFound) {
		return domainreferral.Party{}, fmt.Errorf("%w: agent %s", domainreferral.ErrNotFound, id)
	}
	return party, err
}

func (s *Service) lookupLender(ctx context.Context, id string) (domainreferral.Party, error) {
	party, err := s.deps.Directory.GetLender(ctx, id)
	if errors.Is(err, ports.ErrPartyNotFound) {
		return domainreferral.Party{}, fmt.Errorf("%w: lender %s", domainreferral.ErrNotFound, id)
	}
	return party, err
}
