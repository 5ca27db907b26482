package tenantctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/enums"
	"github.com/skarvik/fabops-backend/pkg/errors"
)

// TenantContext identifies the tenant and actor behind one operation. It is
// resolved once at the boundary, validated on construction, and never mutated
// afterwards. Business code receives it explicitly; it is never synthesized
// from persisted rows.
type TenantContext struct {
	tenantID uuid.UUID
	actorID  uuid.UUID
	role     enums.ActorRole
}

// New validates and builds an immutable TenantContext.
func New(tenantID, actorID uuid.UUID, role enums.ActorRole) (TenantContext, error) {
	if tenantID == uuid.Nil {
		return TenantContext{}, errors.New(errors.CodeInvariant, "tenant context requires a tenant id")
	}
	if actorID == uuid.Nil {
		return TenantContext{}, errors.New(errors.CodeInvariant, "tenant context requires an actor id")
	}
	if !role.IsValid() {
		return TenantContext{}, errors.New(errors.CodeInvariant, "tenant context requires a valid actor role")
	}
	return TenantContext{tenantID: tenantID, actorID: actorID, role: role}, nil
}

// TenantID returns the owning tenant.
func (t TenantContext) TenantID() uuid.UUID {
	return t.tenantID
}

// ActorID returns the acting user or service identity.
func (t TenantContext) ActorID() uuid.UUID {
	return t.actorID
}

// Role returns the actor role.
func (t TenantContext) Role() enums.ActorRole {
	return t.role
}

// IsZero reports whether the context was never resolved.
func (t TenantContext) IsZero() bool {
	return t.tenantID == uuid.Nil
}

type ctxKey struct{}

// Inject attaches a resolved TenantContext to the request context.
func Inject(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// From extracts the TenantContext resolved by the boundary middleware. A
// missing context is a programming error, not a client error.
func From(ctx context.Context) (TenantContext, error) {
	tc, ok := ctx.Value(ctxKey{}).(TenantContext)
	if !ok || tc.IsZero() {
		return TenantContext{}, errors.New(errors.CodeInvariant, "tenant context missing from request context")
	}
	return tc, nil
}
