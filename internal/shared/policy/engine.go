package policy

import (
	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Reason explains a denial. Distinct codes keep decisions testable and let
// the audit collaborator log why access was refused.
type Reason string

const (
	ReasonNoSuchPermission  Reason = "no_such_permission"
	ReasonOutOfJurisdiction Reason = "out_of_jurisdiction"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Scope and Predicate are set on allowed decisions. When no target
	// location was supplied the caller must apply Predicate as a filter
	// over its candidate set (list-type queries).
	Scope     auth.ScopeKind
	Predicate Predicate
}

// Allow builds an allowed decision.
func allow(scope auth.ScopeKind, pred Predicate) Decision {
	return Decision{Allowed: true, Scope: scope, Predicate: pred}
}

func deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason, Predicate: denyAll}
}

// Engine combines the permission catalog with geographic scope resolution.
// Authorize has no side effects; one engine is shared by all requests.
type Engine struct {
	catalog *Catalog
}

// NewEngine creates an engine over an immutable catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's permission table.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Authorize decides whether the principal may perform action on resource.
// When target is non-nil the decision covers that single entity location;
// when nil, the returned predicate scopes list queries.
func (e *Engine) Authorize(p *auth.Principal, resource auth.Resource, action auth.Action, target *types.Location) Decision {
	if p == nil {
		return deny(ReasonNoSuchPermission)
	}

	allowed, scope := e.catalog.Lookup(p.Role, resource, action)
	if !allowed {
		return deny(ReasonNoSuchPermission)
	}

	pred := ResolveScope(p, scope)
	if target != nil && !pred(*target) {
		return deny(ReasonOutOfJurisdiction)
	}

	return allow(scope, pred)
}
