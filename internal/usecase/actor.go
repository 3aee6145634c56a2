package usecase

import (
	"context"
	"strings"

	"github.com/danhlc/poslite/internal/domain"
)

type actorKey struct{}

// WithActor returns a context carrying the name of the acting user.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorFromContext returns the acting user, or domain.SystemActor when the
// request is unauthenticated.
func ActorFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	return domain.SystemActor
}
