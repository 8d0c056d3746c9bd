package referral

import (
	"context"
	"strings"

	domainreferral "referralhub/internal/domain/referral"
)

// RecordContact logs outreach (a call, email, text or meeting) on the timeline.
func (s *Service) RecordContact(ctx context.Context, input RecordContactInput) (domainreferral.ActivityEntry, error) {
	ctx, err := s.begin(ctx, "record_contact", input.ReferralID, input.Actor)
	if err != nil {
		return domainreferral.ActivityEntry{}, err
	}

	channel, err := domainreferral.ParseChannel(input.Channel)
	if err != nil {
		return domainreferral.ActivityEntry{}, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return domainreferral.ActivityEntry{}, domainreferral.NewValidationError("content", "is required")
	}

	current, err := s.loadReferral(ctx, input.ReferralID)
	if err != nil {
		return domainreferral.ActivityEntry{}, err
	}
	if err := domainreferral.Authorize(input.Actor, current, true); err != nil {
		return domainreferral.ActivityEntry{}, err
	}

	return s.deps.Activity.AppendActivity(ctx, domainreferral.ActivityEntry{
		ReferralID: current.ID,
		Actor:      domainreferral.ActivityActorFor(input.Actor.Role),
		ActorID:    input.Actor.ID,
		Channel:    channel,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	})
}
