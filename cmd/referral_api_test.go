package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/infrastructure/identity"
	"referralhub/internal/usecase/referral"
)

type stubReferralAPI struct {
	err error

	calls      []string
	actor      domainreferral.Actor
	transition referral.TransitionStatusInput
	note       referral.AddNoteInput
	assign     referral.AssignInput
	list       referral.ListReferralsInput
	noteResult referral.AddNoteResult
	item       domainreferral.Referral
}

func (s *stubReferralAPI) record(name string, actor domainreferral.Actor) error {
	s.calls = append(s.calls, name)
	s.actor = actor
	if !actor.Authenticated() {
		return domainreferral.ErrUnauthenticated
	}
	return s.err
}

func (s *stubReferralAPI) CreateReferral(_ context.Context, in referral.CreateReferralInput) (domainreferral.Referral, error) {
	return s.item, s.record("create", in.Actor)
}

func (s *stubReferralAPI) GetReferral(_ context.Context, _ string, actor domainreferral.Actor) (domainreferral.Referral, error) {
	return s.item, s.record("get", actor)
}

func (s *stubReferralAPI) ListReferrals(_ context.Context, in referral.ListReferralsInput) ([]domainreferral.Referral, error) {
	s.list = in
	return []domainreferral.Referral{s.item}, s.record("list", in.Actor)
}

func (s *stubReferralAPI) SoftDeleteReferral(_ context.Context, _ string, actor domainreferral.Actor) error {
	return s.record("delete", actor)
}

func (s *stubReferralAPI) TransitionStatus(_ context.Context, in referral.TransitionStatusInput) (referral.StatusSnapshot, error) {
	s.transition = in
	return referral.StatusSnapshot{ID: in.ReferralID, Status: domainreferral.StatusUnderContract, ReferralFeeDueCents: 37_500_000}, s.record("status", in.Actor)
}

func (s *stubReferralAPI) AssignAgent(_ context.Context, in referral.AssignInput) (referral.AssignResult, error) {
	s.assign = in
	return referral.AssignResult{ID: in.ReferralID}, s.record("agent", in.Actor)
}

func (s *stubReferralAPI) AssignLender(_ context.Context, in referral.AssignInput) (referral.AssignResult, error) {
	s.assign = in
	return referral.AssignResult{ID: in.ReferralID}, s.record("lender", in.Actor)
}

func (s *stubReferralAPI) AddNote(_ context.Context, in referral.AddNoteInput) (referral.AddNoteResult, error) {
	s.note = in
	return s.noteResult, s.record("note", in.Actor)
}

func (s *stubReferralAPI) UpdatePreApproval(_ context.Context, in referral.UpdatePreApprovalInput) (referral.StatusSnapshot, error) {
	return referral.StatusSnapshot{ID: in.ReferralID, PreApprovalAmountCents: in.AmountCents}, s.record("pre-approval", in.Actor)
}

func (s *stubReferralAPI) RecordContact(_ context.Context, in referral.RecordContactInput) (domainreferral.ActivityEntry, error) {
	return domainreferral.ActivityEntry{ReferralID: in.ReferralID, Content: in.Content}, s.record("contact", in.Actor)
}

func (s *stubReferralAPI) ListAudit(_ context.Context, _ string, actor domainreferral.Actor) ([]domainreferral.AuditEntry, error) {
	return nil, s.record("audit", actor)
}

func (s *stubReferralAPI) ListActivity(_ context.Context, _ string, actor domainreferral.Actor) ([]domainreferral.ActivityEntry, error) {
	return nil, s.record("activity", actor)
}

func (s *stubReferralAPI) ListNotes(_ context.Context, _ string, actor domainreferral.Actor) ([]domainreferral.Note, error) {
	return nil, s.record("notes", actor)
}

func (s *stubReferralAPI) ListPayments(_ context.Context, _ string, actor domainreferral.Actor) ([]domainreferral.Payment, error) {
	return nil, s.record("payments", actor)
}

func (s *stubReferralAPI) Insights(_ context.Context, id string, actor domainreferral.Actor) (referral.InsightsResult, error) {
	return referral.InsightsResult{ReferralID: id}, s.record("insights", actor)
}

func serveAPI(t *testing.T, svc *stubReferralAPI, method string, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	handler := newReferralHTTPHandler(svc, identity.HeaderVerifier{})
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func asAdmin() map[string]string {
	return map[string]string{"X-Actor-Id": "user-admin", "X-Actor-Role": "admin"}
}

func TestReferralAPIStatusDecodesContractDetails(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{}
	body := `{"status":"Under Contract","contractDetails":{"propertyAddress":"1 Main St","propertyCity":"Austin","propertyState":"TX","propertyPostalCode":"78701","contractPriceDollars":500000,"agentCommissionPercentage":3,"referralFeePercentage":25}}`
	resp := serveAPI(t, svc, http.MethodPost, "/referrals/r-1/status", body, asAdmin())

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", resp.Code, resp.Body.String())
	}
	if svc.transition.ReferralID != "r-1" || svc.transition.Status != "Under Contract" {
		t.Fatalf("transition input = %+v", svc.transition)
	}
	if svc.transition.ContractDetails == nil || svc.transition.ContractDetails.ContractPriceDollars != 500000 {
		t.Fatalf("contract details = %+v", svc.transition.ContractDetails)
	}
	if svc.actor.ID != "user-admin" || svc.actor.Role != domainreferral.RoleAdmin {
		t.Fatalf("actor = %+v", svc.actor)
	}

	var snap referral.StatusSnapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.ReferralFeeDueCents != 37_500_000 {
		t.Fatalf("referralFeeDueCents = %d, want 37500000", snap.ReferralFeeDueCents)
	}
}

func TestReferralAPIMapsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "forbidden", err: errs.Wrap(domainreferral.ErrForbidden, "authorize"), want: http.StatusForbidden},
		{name: "not found", err: errs.Wrap(domainreferral.ErrNotFound, "load"), want: http.StatusNotFound},
		{name: "validation", err: domainreferral.NewValidationError("contractDetails", "is required"), want: http.StatusUnprocessableEntity},
		{name: "invariant", err: domainreferral.ErrComputationInvariant, want: http.StatusUnprocessableEntity},
		{name: "storage", err: errors.New("disk full"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubReferralAPI{err: tc.err}
			resp := serveAPI(t, svc, http.MethodPost, "/referrals/r-1/agent", `{"agentId":"agent-1"}`, asAdmin())
			if resp.Code != tc.want {
				t.Fatalf("status = %d, want %d; body=%s", resp.Code, tc.want, resp.Body.String())
			}
			if tc.want == http.StatusInternalServerError && strings.Contains(resp.Body.String(), "disk full") {
				t.Fatalf("internal error leaked: %s", resp.Body.String())
			}
		})
	}
}

func TestReferralAPIValidationErrorCarriesFields(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{err: domainreferral.NewValidationError("contractDetails", "required when status is Under Contract")}
	resp := serveAPI(t, svc, http.MethodPost, "/referrals/r-1/status", `{"status":"Under Contract"}`, asAdmin())

	var body apiErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if _, ok := body.Fields["contractDetails"]; !ok {
		t.Fatalf("fields = %v, want contractDetails", body.Fields)
	}
}

func TestReferralAPIAnonymousRequestIsUnauthorized(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{}
	resp := serveAPI(t, svc, http.MethodGet, "/referrals/r-1", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestReferralAPIRejectsBadCredentialBeforeService(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{}
	resp := serveAPI(t, svc, http.MethodGet, "/referrals/r-1", "", map[string]string{"X-Actor-Id": "u-1", "X-Actor-Role": "pirate"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service calls = %v, want none", svc.calls)
	}
}

func TestReferralAPIAddNoteReportsDeliveryFailure(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{noteResult: referral.AddNoteResult{
		Note:                  domainreferral.Note{ID: 7, Content: "call the borrower", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		DeliveryFailed:        true,
		DeliveryFailureReason: "agent has no email on file",
	}}
	body := `{"content":"call the borrower","hiddenFromMc":true,"emailTargets":["agent"]}`
	resp := serveAPI(t, svc, http.MethodPost, "/referrals/r-1/notes", body, asAdmin())

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", resp.Code, resp.Body.String())
	}
	if !svc.note.HiddenFromMC || svc.note.HiddenFromAgent || len(svc.note.EmailTargets) != 1 {
		t.Fatalf("note input = %+v", svc.note)
	}

	var out addNoteView
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.DeliveryFailed || out.DeliveryFailureReason != "agent has no email on file" || out.Note.ID != 7 {
		t.Fatalf("response = %+v", out)
	}
}

func TestReferralAPIPreApprovalRequiresAmount(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{}
	resp := serveAPI(t, svc, http.MethodPut, "/referrals/r-1/pre-approval", `{}`, asAdmin())
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service calls = %v, want none", svc.calls)
	}
}

func TestReferralAPIMalformedBodyNamesField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{name: "wrong type", body: `{"status":"Under Contract","contractDetails":{"contractPriceDollars":"abc"}}`, field: "contractDetails.contractPriceDollars"},
		{name: "truncated", body: `{"status":`, field: "body"},
		{name: "empty", body: ``, field: "body"},
		{name: "syntax", body: `{"status" "Paired"}`, field: "body"},
		{name: "unknown field", body: `{"status":"Paired","priority":1}`, field: "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubReferralAPI{}
			resp := serveAPI(t, svc, http.MethodPost, "/referrals/r-1/status", tc.body, asAdmin())
			if resp.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422; body=%s", resp.Code, resp.Body.String())
			}
			var body apiErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if _, ok := body.Fields[tc.field]; !ok {
				t.Fatalf("fields = %v, want %s", body.Fields, tc.field)
			}
			if len(svc.calls) != 0 {
				t.Fatalf("service calls = %v, want none", svc.calls)
			}
		})
	}
}

func TestReferralAPIListPassesFilters(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{item: domainreferral.Referral{
		ID:            "r-9",
		Status:        domainreferral.StatusPaired,
		AssignedAgent: domainreferral.RefExpanded("agent-1", domainreferral.Party{ID: "agent-1", UserID: "user-1", Name: "Avery"}),
	}}
	resp := serveAPI(t, svc, http.MethodGet, "/referrals?status=paired&limit=5", "", asAdmin())
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", resp.Code, resp.Body.String())
	}
	if svc.list.Status != "paired" || svc.list.Limit != 5 {
		t.Fatalf("list input = %+v", svc.list)
	}

	var out []referralView
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].AssignedAgent == nil || out[0].AssignedAgent.Name != "Avery" {
		t.Fatalf("list response = %+v", out)
	}

	resp = serveAPI(t, svc, http.MethodGet, "/referrals?limit=-1", "", asAdmin())
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative limit status = %d, want 422", resp.Code)
	}
}

func TestReferralAPIDeleteReturnsNoContent(t *testing.T) {
	t.Parallel()

	svc := &stubReferralAPI{}
	resp := serveAPI(t, svc, http.MethodDelete, "/referrals/r-1", "", asAdmin())
	if resp.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body=%s", resp.Code, resp.Body.String())
	}
}
