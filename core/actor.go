package core

import "context"

// Actor is whoever is operating the site when a connection is changed
type Actor struct {
	Login          string `json:"login"`
	CanManageUsers bool   `json:"canManageUsers"`
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// ContextAuthorizer implements Authorizer from the actor carried in ctx.
// A context without an actor is anonymous and may not manage users.
type ContextAuthorizer struct{}

var _ Authorizer = ContextAuthorizer{}

func (ContextAuthorizer) CurrentActor(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Login
}

func (ContextAuthorizer) CanManageUsers(ctx context.Context) bool {
	actor, ok := ActorFromContext(ctx)
	return ok && actor.CanManageUsers
}
