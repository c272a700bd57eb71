package core

import "context"

type actorContextKey struct{}

// WithActor returns a context carrying the acting user's ID. Every service
// operation except Authenticate and RegisterCitizen resolves its actor from
// the context.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFrom returns the acting user ID stored in the context, if any.
func ActorFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorContextKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
