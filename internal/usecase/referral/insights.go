package referral

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

const narrativeInstructions = "You write short follow-up reminders for a real-estate referral team. " +
	"Rewrite the reminder in one or two friendly sentences. Keep every name, number and deadline. " +
	"Do not add facts."

// Insights computes follow-up recommendations for a referral. When a text
// generator is configured the messages are reworded, with the rewording
// cached per recommendation; otherwise the deterministic copy is returned.
func (s *Service) Insights(ctx context.Context, referralID string, actor domainreferral.Actor) (InsightsResult, error) {
	ctx, err := s.begin(ctx, "insights", referralID, actor)
	if err != nil {
		return InsightsResult{}, err
	}

	item, err := s.viewable(ctx, referralID, actor)
	if err != nil {
		return InsightsResult{}, err
	}

	activities, err := s.deps.Activity.ListActivity(ctx, item.ID, 0)
	if err != nil {
		return InsightsResult{}, err
	}
	notes, err := s.deps.Notes.ListNotes(ctx, item.ID)
	if err != nil {
		return InsightsResult{}, err
	}

	now := s.now().UTC()
	insights := domainreferral.ComputeSLAInsights(domainreferral.InsightInput{
		Referral:   item,
		Activities: activities,
		Notes:      notes,
		Now:        now,
		Policy:     s.settings.Policy,
	})

	recs := make([]domainreferral.Recommendation, len(insights.Recommendations))
	copy(recs, insights.Recommendations)
	for i := range recs {
		recs[i].Message = s.narrate(ctx, item, recs[i])
	}

	return InsightsResult{
		ReferralID:      item.ID,
		Status:          item.Status,
		DaysInStatus:    domainreferral.DaysInStatus(item.StatusLastUpdated, now),
		GeneratedAt:     now,
		Recommendations: recs,
	}, nil
}

func (s *Service) narrate(ctx context.Context, item domainreferral.Referral, rec domainreferral.Recommendation) string {
	if s.deps.Narrator == nil {
		return rec.Message
	}

	key := narrativeCacheKey(rec.ID)
	if s.deps.Cache != nil {
		cached, found, err := s.deps.Cache.Get(ctx, key)
		if err != nil {
			logging.Warn(ctx, "narrative cache read failed", slog.Any("err", errs.Loggable(err)))
		} else if found && strings.TrimSpace(cached) != "" {
			return cached
		}
	}

	input := fmt.Sprintf("Status: %s\nTitle: %s\nReminder: %s", item.Status, rec.Title, rec.Message)
	text, err := s.deps.Narrator.Generate(ctx, narrativeInstructions, input)
	if err != nil {
		if !errors.Is(err, ports.ErrTextGeneratorUnavailable) {
			logging.Warn(ctx, "narrative generation failed", slog.Any("err", errs.Loggable(err)))
		}
		return rec.Message
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, text, s.settings.NarrativeTTL); err != nil {
			logging.Warn(ctx, "narrative cache write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return text
}

// narrativeCacheKey hashes the task id so keys stay short.
func narrativeCacheKey(taskID string) string {
	sum := sha256.Sum256([]byte(taskID))
	return "narrative:" + hex.EncodeToString(sum[:])
}
