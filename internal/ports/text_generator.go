package ports

import (
	"context"
	"errors"
)

// ErrTextGeneratorUnavailable signals callers to use their deterministic copy.
var ErrTextGeneratorUnavailable = errors.New("text generator unavailable")

type TextGenerator interface {
	Generate(ctx context.Context, instructions string, input string) (string, error)
}
