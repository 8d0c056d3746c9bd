package referral

import (
	"context"
	"strings"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

const defaultListLimit = 200

// GetReferral returns a live referral the actor may view.
func (s *Service) GetReferral(ctx context.Context, referralID string, actor domainreferral.Actor) (domainreferral.Referral, error) {
	ctx, err := s.begin(ctx, "get_referral", referralID, actor)
	if err != nil {
		return domainreferral.Referral{}, err
	}
	return s.viewable(ctx, referralID, actor)
}

// ListReferrals scopes the result to what the actor may view: agents see
// their own referrals, mortgage consultants their lender's.
func (s *Service) ListReferrals(ctx context.Context, input ListReferralsInput) ([]domainreferral.Referral, error) {
	ctx, err := s.begin(ctx, "list_referrals", "", input.Actor)
	if err != nil {
		return nil, err
	}

	filter := ports.ReferralFilter{Limit: input.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := domainreferral.ParseStatus(raw)
		if err != nil {
			return nil, domainreferral.NewValidationError(domainreferral.FieldStatus, err.Error())
		}
		filter.Status = string(status)
	}

	switch input.Actor.Role {
	case domainreferral.RoleAgent:
		filter.AgentUserID = input.Actor.ID
	case domainreferral.RoleMC:
		filter.LenderUserID = input.Actor.ID
	case domainreferral.RoleAdmin, domainreferral.RoleManager, domainreferral.RoleViewer:
	default:
		return nil, domainreferral.ErrForbidden
	}

	items, err := s.deps.Referrals.ListReferrals(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domainreferral.Referral, 0, len(items))
	for _, item := range items {
		expanded, err := s.expand(ctx, item)
		if err != nil {
			return nil, err
		}
		if domainreferral.CanViewReferral(input.Actor, expanded) {
			out = append(out, expanded)
		}
	}
	return out, nil
}

func (s *Service) ListAudit(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.AuditEntry, error) {
	ctx, err := s.begin(ctx, "list_audit", referralID, actor)
	if err != nil {
		return nil, err
	}
	item, err := s.viewable(ctx, referralID, actor)
	if err != nil {
		return nil, err
	}
	return s.deps.Audit.ListAudit(ctx, item.ID)
}

func (s *Service) ListActivity(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.ActivityEntry, error) {
	ctx, err := s.begin(ctx, "list_activity", referralID, actor)
	if err != nil {
		return nil, err
	}
	item, err := s.viewable(ctx, referralID, actor)
	if err != nil {
		return nil, err
	}
	return s.deps.Activity.ListActivity(ctx, item.ID, 0)
}

// ListNotes drops notes hidden from the actor's role.
func (s *Service) ListNotes(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.Note, error) {
	ctx, err := s.begin(ctx, "list_notes", referralID, actor)
	if err != nil {
		return nil, err
	}
	item, err := s.viewable(ctx, referralID, actor)
	if err != nil {
		return nil, err
	}

	notes, err := s.deps.Notes.ListNotes(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return visibleNotes(notes, actor.Role), nil
}

func (s *Service) ListPayments(ctx context.Context, referralID string, actor domainreferral.Actor) ([]domainreferral.Payment, error) {
	ctx, err := s.begin(ctx, "list_payments", referralID, actor)
	if err != nil {
		return nil, err
	}
	item, err := s.viewable(ctx, referralID, actor)
	if err != nil {
		return nil, err
	}
	return s.deps.Payments.ListPayments(ctx, item.ID)
}

func (s *Service) viewable(ctx context.Context, referralID string, actor domainreferral.Actor) (domainreferral.Referral, error) {
	item, err := s.loadReferral(ctx, referralID)
	if err != nil {
		return domainreferral.Referral{}, err
	}
	if err := domainreferral.Authorize(actor, item, false); err != nil {
		return domainreferral.Referral{}, err
	}
	return item, nil
}

func visibleNotes(notes []domainreferral.Note, role domainreferral.Role) []domainreferral.Note {
	out := make([]domainreferral.Note, 0, len(notes))
	for _, note := range notes {
		if note.VisibleTo(role) {
			out = append(out, note)
		}
	}
	return out
}
