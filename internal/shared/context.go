package shared

import "context"

// Actor identifies the acting user as supplied by the identity provider.
// The engine treats it as opaque metadata for created_by/closed_by fields.
type Actor struct {
	ID   int64
	Name string
}

type actorContextKey struct{}

type companyContextKey struct{}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// ContextWithCompany stores the tenant scope in context.
func ContextWithCompany(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, companyContextKey{}, companyID)
}

// CompanyFromContext extracts the tenant scope from context.
// Returns zero when no company is bound, which callers must treat as an error.
func CompanyFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(companyContextKey{}).(int64)
	return id
}
