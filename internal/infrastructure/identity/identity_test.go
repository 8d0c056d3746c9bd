package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"referralhub/internal/domain/referral"
	"referralhub/internal/ports"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("s3cret", "referralhub")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	token, err := v.IssueToken(referral.Actor{ID: "user-7", Role: referral.RoleAgent}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	actor, err := v.Verify(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if actor.ID != "user-7" || actor.Role != referral.RoleAgent {
		t.Fatalf("Verify() = %+v", actor)
	}
}

func TestJWTVerifierRejectsBadTokens(t *testing.T) {
	v, _ := NewJWTVerifier("s3cret", "referralhub")
	other, _ := NewJWTVerifier("other", "referralhub")
	wrongIssuer, _ := NewJWTVerifier("s3cret", "someone-else")
	now := time.Now()
	actor := referral.Actor{ID: "user-7", Role: referral.RoleMC}

	forged, _ := other.IssueToken(actor, time.Hour, now)
	expired, _ := v.IssueToken(actor, time.Minute, now.Add(-time.Hour))
	foreign, _ := wrongIssuer.IssueToken(actor, time.Hour, now)

	cases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: forged},
		{name: "expired", token: expired},
		{name: "wrong issuer", token: foreign},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tc.token); !errors.Is(err, ports.ErrInvalidCredentials) {
				t.Fatalf("Verify() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestHeaderVerifier(t *testing.T) {
	actor, err := HeaderVerifier{}.Verify(context.Background(), HeaderCredential("Manager", "u-1"))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if actor.ID != "u-1" || actor.Role != referral.RoleManager {
		t.Fatalf("Verify() = %+v", actor)
	}

	for _, bad := range []string{"", "agent", "agent:", "pilot:u-1"} {
		if _, err := (HeaderVerifier{}).Verify(context.Background(), bad); !errors.Is(err, ports.ErrInvalidCredentials) {
			t.Fatalf("Verify(%q) error = %v", bad, err)
		}
	}
}
