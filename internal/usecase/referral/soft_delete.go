package referral

import (
	"context"
	"time"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
)

// SoftDeleteReferral hides a referral from every read path. Only staff may
// delete, and a deleted referral reads as not found afterwards.
func (s *Service) SoftDeleteReferral(ctx context.Context, referralID string, actor domainreferral.Actor) error {
	ctx, err := s.begin(ctx, "soft_delete_referral", referralID, actor)
	if err != nil {
		return err
	}

	release, err := s.lock(ctx, referralID)
	if err != nil {
		return err
	}
	defer release()

	current, err := s.loadReferral(ctx, referralID)
	if err != nil {
		return err
	}
	if !actor.IsStaff() {
		return domainreferral.ErrForbidden
	}

	now := s.now().UTC()
	next := current
	next.DeletedAt = &now
	next.UpdatedAt = now

	audit := domainreferral.NewAuditEntry(current.ID, domainreferral.FieldDeletedAt, "", now.Format(time.RFC3339Nano), actor, now)
	if err := s.commit(ctx, next, &audit, nil); err != nil {
		return err
	}

	logging.Info(ctx, "referral soft-deleted")
	return nil
}
