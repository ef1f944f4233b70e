package context

import (
	"context"
)

// Actor identifies who triggered an administrative or allocation action.
// Authentication is handled outside this service; the value is taken as
// given from the caller and only recorded in audit entries and logs.
type Actor struct {
	ID     string
	Source string // http, worker, cli
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetActorID returns actor ID from context or "system".
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.ID != "" {
		return a.ID
	}
	return "system"
}
