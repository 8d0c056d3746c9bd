package ports

import (
	"context"
	"errors"

	"referralhub/internal/domain/referral"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// IdentityVerifier turns a bearer credential into an actor.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (referral.Actor, error)
}

type actorKey struct{}

func WithActor(ctx context.Context, actor referral.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the zero actor when none is set.
func ActorFromContext(ctx context.Context) referral.Actor {
	if ctx == nil {
		return referral.Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(referral.Actor)
	return actor
}
