package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"referralhub/internal/domain/referral"
	"referralhub/internal/infrastructure/persistence/sqlite/model"
	"referralhub/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "referrals.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newReferral(id string, agentID string, lenderID string) referral.Referral {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return referral.Referral{
		ID:                     id,
		BorrowerFirstName:      "Jo",
		BorrowerLastName:       "Park",
		Status:                 referral.StatusNewLead,
		StatusLastUpdated:      now,
		PreApprovalAmountCents: 25_000_000,
		AssignedAgent:          referral.RefID[referral.Party](agentID),
		Lender:                 referral.RefID[referral.Party](lenderID),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func TestReferralRoundTrip(t *testing.T) {
	repo := NewReferralRepository(setupDB(t))
	ctx := context.Background()

	in := newReferral("ref-1", "agent-1", "")
	if err := repo.CreateReferral(ctx, in); err != nil {
		t.Fatalf("CreateReferral() error = %v", err)
	}

	got, err := repo.GetReferral(ctx, "ref-1")
	if err != nil {
		t.Fatalf("GetReferral() error = %v", err)
	}
	if got.AssignedAgent.ID() != "agent-1" || !got.Lender.IsEmpty() {
		t.Fatalf("references = %q / %q", got.AssignedAgent.ID(), got.Lender.ID())
	}
	if !got.CreatedAt.Equal(in.CreatedAt) || got.Status != referral.StatusNewLead {
		t.Fatalf("GetReferral() = %+v", got)
	}

	got.Status = referral.StatusPaired
	got.ReferralFeeDueCents = 0
	got.Lender = referral.RefID[referral.Party]("lender-1")
	if err := repo.SaveReferral(ctx, got); err != nil {
		t.Fatalf("SaveReferral() error = %v", err)
	}

	saved, err := repo.GetReferral(ctx, "ref-1")
	if err != nil {
		t.Fatalf("GetReferral() error = %v", err)
	}
	if saved.Status != referral.StatusPaired || saved.Lender.ID() != "lender-1" {
		t.Fatalf("saved = %+v", saved)
	}
}

func TestGetReferralNotFound(t *testing.T) {
	repo := NewReferralRepository(setupDB(t))
	if _, err := repo.GetReferral(context.Background(), "missing"); !errors.Is(err, ports.ErrReferralNotFound) {
		t.Fatalf("GetReferral() error = %v, want ErrReferralNotFound", err)
	}
	if err := repo.SaveReferral(context.Background(), newReferral("missing", "", "")); !errors.Is(err, ports.ErrReferralNotFound) {
		t.Fatalf("SaveReferral() error = %v, want ErrReferralNotFound", err)
	}
}

func TestListReferralsFiltersByLinkedAgentAndDeleted(t *testing.T) {
	db := setupDB(t)
	repo := NewReferralRepository(db)
	dir := NewDirectoryRepository(db)
	ctx := context.Background()

	if err := dir.UpsertAgent(ctx, referral.Party{ID: "agent-1", UserID: "user-1", Name: "Avery"}); err != nil {
		t.Fatalf("UpsertAgent() error = %v", err)
	}

	deleted := newReferral("ref-3", "agent-1", "")
	deletedAt := deleted.CreatedAt.Add(time.Hour)
	deleted.DeletedAt = &deletedAt

	for _, item := range []referral.Referral{
		newReferral("ref-1", "agent-1", ""),
		newReferral("ref-2", "agent-2", ""),
		deleted,
	} {
		if err := repo.CreateReferral(ctx, item); err != nil {
			t.Fatalf("CreateReferral(%s) error = %v", item.ID, err)
		}
	}

	items, err := repo.ListReferrals(ctx, ports.ReferralFilter{AgentUserID: "user-1"})
	if err != nil {
		t.Fatalf("ListReferrals() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "ref-1" {
		t.Fatalf("ListReferrals() = %+v", items)
	}

	all, err := repo.ListReferrals(ctx, ports.ReferralFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListReferrals(include deleted) error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListReferrals(include deleted) len = %d", len(all))
	}
}

func TestAppendAuditAssignsSequence(t *testing.T) {
	repo := NewReferralRepository(setupDB(t))
	ctx := context.Background()
	actor := referral.Actor{ID: "admin-1", Role: referral.RoleAdmin}

	for i, next := range []string{"Paired", "In Communication", "In Communication"} {
		entry, err := repo.AppendAudit(ctx, referral.NewAuditEntry("ref-1", referral.FieldStatus, "x", next, actor, time.Now()))
		if err != nil {
			t.Fatalf("AppendAudit() error = %v", err)
		}
		if entry.Seq != uint64(i+1) {
			t.Fatalf("AppendAudit() seq = %d, want %d", entry.Seq, i+1)
		}
	}
	if _, err := repo.AppendAudit(ctx, referral.NewAuditEntry("ref-2", referral.FieldStatus, "", "Paired", actor, time.Now())); err != nil {
		t.Fatalf("AppendAudit(other referral) error = %v", err)
	}

	entries, err := repo.ListAudit(ctx, "ref-1")
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(entries) != 3 || entries[2].NewValue != "In Communication" || entries[0].ActorRole != referral.RoleAdmin {
		t.Fatalf("ListAudit() = %+v", entries)
	}
}

func TestNotesAndActivityKeepOrder(t *testing.T) {
	repo := NewReferralRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for _, content := range []string{"first", "second"} {
		if _, err := repo.AppendActivity(ctx, referral.ActivityEntry{
			ReferralID: "ref-1",
			Actor:      referral.ActivityActorAgent,
			ActorID:    "user-1",
			Channel:    referral.ChannelCall,
			Content:    content,
			CreatedAt:  now,
		}); err != nil {
			t.Fatalf("AppendActivity() error = %v", err)
		}
	}
	note, err := repo.AppendNote(ctx, referral.Note{ReferralID: "ref-1", AuthorID: "user-1", AuthorRole: referral.RoleAgent, Content: "hi", HiddenFromMC: true, CreatedAt: now})
	if err != nil {
		t.Fatalf("AppendNote() error = %v", err)
	}
	if note.ID == 0 {
		t.Fatalf("AppendNote() id = 0")
	}

	activity, err := repo.ListActivity(ctx, "ref-1", 0)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(activity) != 2 || activity[0].Content != "first" || activity[1].Content != "second" {
		t.Fatalf("ListActivity() = %+v", activity)
	}

	notes, err := repo.ListNotes(ctx, "ref-1")
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != 1 || !notes[0].HiddenFromMC || notes[0].HiddenFromAgent {
		t.Fatalf("ListNotes() = %+v", notes)
	}
}
