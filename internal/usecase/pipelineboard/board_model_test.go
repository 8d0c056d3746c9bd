package pipelineboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/usecase/referral"
)

type stubSource struct {
	items       []domainreferral.Referral
	insights    referral.InsightsResult
	transitions []referral.TransitionStatusInput
	err         error
}

func (s *stubSource) ListReferrals(context.Context, referral.ListReferralsInput) ([]domainreferral.Referral, error) {
	return s.items, nil
}

func (s *stubSource) Insights(_ context.Context, id string, _ domainreferral.Actor) (referral.InsightsResult, error) {
	out := s.insights
	out.ReferralID = id
	return out, nil
}

func (s *stubSource) TransitionStatus(_ context.Context, in referral.TransitionStatusInput) (referral.StatusSnapshot, error) {
	s.transitions = append(s.transitions, in)
	if s.err != nil {
		return referral.StatusSnapshot{}, s.err
	}
	return referral.StatusSnapshot{ID: in.ReferralID, Status: domainreferral.Status(in.Status)}, nil
}

var admin = domainreferral.Actor{ID: "user-admin", Role: domainreferral.RoleAdmin}

func newTestBoard(src *stubSource) *boardModel {
	m := NewBoardModel(context.Background(), src, Options{Actor: admin}).(*boardModel)
	m.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestSortForBoardOrdersByStageThenAge(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []domainreferral.Referral{
		{ID: "c", Status: domainreferral.StatusShowingHomes, StatusLastUpdated: base},
		{ID: "b", Status: domainreferral.StatusNewLead, StatusLastUpdated: base.Add(time.Hour)},
		{ID: "a", Status: domainreferral.StatusNewLead, StatusLastUpdated: base},
	}

	got := sortForBoard(items)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Fatalf("order = %v, want a,b,c", ids)
	}
	if items[0].ID != "c" {
		t.Fatalf("input slice was reordered")
	}
}

func TestNextStageStopsBeforeContract(t *testing.T) {
	cases := map[domainreferral.Status]string{
		domainreferral.StatusNewLead:         string(domainreferral.StatusPaired),
		domainreferral.StatusInCommunication: string(domainreferral.StatusShowingHomes),
		domainreferral.StatusShowingHomes:    "",
		domainreferral.StatusClosed:          "",
	}
	for current, want := range cases {
		next, ok := nextStage(current)
		if want == "" {
			if ok {
				t.Fatalf("nextStage(%q) = %q, want none", current, next)
			}
			continue
		}
		if !ok || string(next) != want {
			t.Fatalf("nextStage(%q) = %q, %v; want %q", current, next, ok, want)
		}
	}
}

func TestBoardAdvanceTransitionsSelectedReferral(t *testing.T) {
	src := &stubSource{}
	m := newTestBoard(src)
	m.Update(referralsLoadedMsg{items: []domainreferral.Referral{
		{ID: "r-1", BorrowerFirstName: "Dana", Status: domainreferral.StatusNewLead},
		{ID: "r-2", BorrowerFirstName: "Eli", Status: domainreferral.StatusPaired},
	}})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd == nil {
		t.Fatalf("advance returned no command")
	}
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("command message = %T, want actionDoneMsg", msg)
	}
	if done.err != nil || done.result != string(domainreferral.StatusInCommunication) {
		t.Fatalf("action result = %+v", done)
	}
	if len(src.transitions) != 1 || src.transitions[0].ReferralID != "r-2" || src.transitions[0].Actor != admin {
		t.Fatalf("transitions = %+v", src.transitions)
	}

	m.Update(done)
	if len(m.auditLogs) != 1 || !strings.Contains(m.auditLogs[0], "advance r-2 -> In Communication") {
		t.Fatalf("audit log = %v", m.auditLogs)
	}
}

func TestBoardReportsFailedAction(t *testing.T) {
	src := &stubSource{err: domainreferral.ErrForbidden}
	m := newTestBoard(src)
	m.Update(referralsLoadedMsg{items: []domainreferral.Referral{{ID: "r-1", Status: domainreferral.StatusPaired}}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	done := cmd().(actionDoneMsg)
	if !errors.Is(done.err, domainreferral.ErrForbidden) {
		t.Fatalf("action err = %v, want ErrForbidden", done.err)
	}
	m.Update(done)
	if !strings.HasPrefix(m.status, "lost failed") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBoardViewRendersInsights(t *testing.T) {
	src := &stubSource{insights: referral.InsightsResult{Recommendations: []domainreferral.Recommendation{
		{Title: "First contact overdue", Message: "Reach out to Dana", Priority: domainreferral.PriorityUrgent},
	}}}
	m := newTestBoard(src)
	_, cmd := m.Update(referralsLoadedMsg{items: []domainreferral.Referral{
		{ID: "r-1", BorrowerFirstName: "Dana", Status: domainreferral.StatusNewLead, ReferralFeeDueCents: 375_000},
	}})
	m.Update(cmd())

	view := m.View()
	for _, want := range []string{"Referral Pipeline", "Dana", "$3750.00", "First contact overdue", "New Lead=1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestValidateRequiresActor(t *testing.T) {
	if err := Validate(&stubSource{}, domainreferral.Actor{}); !errors.Is(err, domainreferral.ErrUnauthenticated) {
		t.Fatalf("Validate() = %v, want ErrUnauthenticated", err)
	}
	if err := Validate(nil, admin); err == nil {
		t.Fatalf("Validate(nil) expected error")
	}
}
