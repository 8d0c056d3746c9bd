package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

// Claims carries the actor in the subject and a custom role claim.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

var _ ports.IdentityVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string, issuer string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, credential string) (referral.Actor, error) {
	if ctx == nil {
		return referral.Actor{}, errors.New("context is required")
	}

	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if raw == "" {
		return referral.Actor{}, ports.ErrInvalidCredentials
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return referral.Actor{}, errs.Wrap(errors.Join(ports.ErrInvalidCredentials, err), "parse token")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return referral.Actor{}, errs.Wrap(ports.ErrInvalidCredentials, "token issuer mismatch")
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return referral.Actor{}, errs.Wrap(ports.ErrInvalidCredentials, "token subject is empty")
	}
	role, err := referral.ParseRole(claims.Role)
	if err != nil {
		return referral.Actor{}, errs.Wrap(errors.Join(ports.ErrInvalidCredentials, err), "token role")
	}

	return referral.Actor{ID: subject, Role: role}, nil
}

// IssueToken signs a token for actor; used by tests and the CLI.
func (v *JWTVerifier) IssueToken(actor referral.Actor, ttl time.Duration, now time.Time) (string, error) {
	if !actor.Authenticated() {
		return "", errors.New("actor is required")
	}

	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  actor.ID,
			Issuer:   v.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", errs.Wrap(err, "sign token")
	}
	return signed, nil
}
