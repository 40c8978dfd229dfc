package policy

import (
	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Predicate decides whether an entity at the given location is visible to
// a principal. List queries apply it as a filter over candidate sets.
type Predicate func(loc types.Location) bool

// allowAll is the predicate for unrestricted scopes.
func allowAll(types.Location) bool { return true }

// denyAll is the fail-closed predicate.
func denyAll(types.Location) bool { return false }

// ResolveScope computes the location predicate for a principal at the given
// scope kind. Precedence: admin, then all, then state/district/block, then
// ownership. A principal missing the assignment its scope requires can see
// nothing, and entities missing a level required for the match are hidden
// from narrowly-scoped roles.
func ResolveScope(p *auth.Principal, scope auth.ScopeKind) Predicate {
	if p == nil {
		return denyAll
	}
	if p.IsAdmin() {
		return allowAll
	}

	// A district without a state (or block without a district) is a
	// malformed assignment; treat it as no assignment at all.
	if !p.ValidHierarchy() {
		return denyAll
	}

	home := p.Location()

	switch scope {
	case auth.ScopeAll:
		return allowAll

	case auth.ScopeState:
		if !home.HasState() {
			return denyAll
		}
		return func(loc types.Location) bool {
			return home.SameState(loc)
		}

	case auth.ScopeDistrict:
		if !home.HasState() || !home.HasDistrict() {
			return denyAll
		}
		return func(loc types.Location) bool {
			return home.SameDistrict(loc)
		}

	case auth.ScopeBlock:
		if !home.HasState() || !home.HasDistrict() || !home.HasBlock() {
			return denyAll
		}
		return func(loc types.Location) bool {
			return home.SameBlock(loc)
		}

	case auth.ScopeOwn:
		owner := p.ID
		if owner.IsZero() {
			return denyAll
		}
		return func(loc types.Location) bool {
			return loc.OwnerID == owner
		}
	}

	return denyAll
}
