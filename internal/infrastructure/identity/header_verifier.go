package identity

import (
	"context"
	"errors"
	"strings"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

// HeaderVerifier trusts an upstream gateway that already authenticated the
// caller. The credential has the form "<role>:<user id>".
type HeaderVerifier struct{}

var _ ports.IdentityVerifier = HeaderVerifier{}

func HeaderCredential(role string, userID string) string {
	return strings.TrimSpace(role) + ":" + strings.TrimSpace(userID)
}

func (HeaderVerifier) Verify(ctx context.Context, credential string) (referral.Actor, error) {
	if ctx == nil {
		return referral.Actor{}, errors.New("context is required")
	}

	rawRole, userID, ok := strings.Cut(strings.TrimSpace(credential), ":")
	userID = strings.TrimSpace(userID)
	if !ok || userID == "" {
		return referral.Actor{}, ports.ErrInvalidCredentials
	}

	role, err := referral.ParseRole(rawRole)
	if err != nil {
		return referral.Actor{}, errs.Wrap(errors.Join(ports.ErrInvalidCredentials, err), "header role")
	}
	return referral.Actor{ID: userID, Role: role}, nil
}
