package principal

import "context"

// Actor is the authenticated principal performing the current
// operation, as established by the transport layer.
type Actor struct {
	ID       string
	Username string
}

type actorKey struct{}

// WithActor returns a context carrying the acting principal.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext extracts the acting principal from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
