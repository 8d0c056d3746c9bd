package referral

import (
	"context"
	"testing"
	"time"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

func TestInsightsFlagsOverdueFirstContact(t *testing.T) {
	f := setupFixture(t)
	item := f.createReferral(t, 30_000_000)
	f.advance(30 * time.Hour)

	res, err := f.svc.Insights(context.Background(), item.ID, avery)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if len(res.Recommendations) == 0 {
		t.Fatalf("Insights() returned no recommendations")
	}
	first := res.Recommendations[0]
	if first.Priority != domainreferral.PriorityUrgent || first.Category != domainreferral.CategoryFirstContact {
		t.Fatalf("first recommendation = %+v", first)
	}
	if res.DaysInStatus != 1 {
		t.Fatalf("DaysInStatus = %d, want 1", res.DaysInStatus)
	}
}

func TestInsightsNarrationIsCached(t *testing.T) {
	f := setupFixture(t)
	f.svc.deps.Narrator = f.narrator
	f.narrator.text = "Please call Jo Park today."

	item := f.createReferral(t, 30_000_000)
	f.advance(30 * time.Hour)
	ctx := context.Background()

	first, err := f.svc.Insights(ctx, item.ID, admin)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if first.Recommendations[0].Message != "Please call Jo Park today." {
		t.Fatalf("message = %q", first.Recommendations[0].Message)
	}
	calls := f.narrator.calls

	second, err := f.svc.Insights(ctx, item.ID, admin)
	if err != nil {
		t.Fatalf("Insights(second) error = %v", err)
	}
	if f.narrator.calls != calls {
		t.Fatalf("narrator calls = %d, want %d (cached)", f.narrator.calls, calls)
	}
	if second.Recommendations[0].ID != first.Recommendations[0].ID {
		t.Fatalf("recommendation id changed: %q vs %q", first.Recommendations[0].ID, second.Recommendations[0].ID)
	}
}

func TestInsightsFallsBackWhenNarratorUnavailable(t *testing.T) {
	f := setupFixture(t)
	f.svc.deps.Narrator = f.narrator
	f.narrator.err = ports.ErrTextGeneratorUnavailable

	item := f.createReferral(t, 30_000_000)
	f.advance(30 * time.Hour)

	res, err := f.svc.Insights(context.Background(), item.ID, admin)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	want := "No contact has been logged with Jo Park since intake."
	if res.Recommendations[0].Message != want {
		t.Fatalf("message = %q, want %q", res.Recommendations[0].Message, want)
	}
	if len(f.cache.data) != 0 {
		t.Fatalf("fallback copy should not be cached: %v", f.cache.data)
	}
}

func TestInsightsClearAfterContact(t *testing.T) {
	f := setupFixture(t)
	item := f.createReferral(t, 30_000_000)
	ctx := context.Background()

	f.advance(2 * time.Hour)
	if _, err := f.svc.RecordContact(ctx, RecordContactInput{ReferralID: item.ID, Channel: "call", Content: "Intro call", Actor: avery}); err != nil {
		t.Fatalf("RecordContact() error = %v", err)
	}
	f.advance(30 * time.Hour)

	res, err := f.svc.Insights(ctx, item.ID, admin)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	for _, rec := range res.Recommendations {
		if rec.Category == domainreferral.CategoryFirstContact {
			t.Fatalf("unexpected first-contact recommendation: %+v", rec)
		}
	}
}
