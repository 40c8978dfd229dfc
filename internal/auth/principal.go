package auth

import (
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Principal is the authenticated actor for a single request. It is built
// from already-verified token claims and never mutated afterwards.
type Principal struct {
	ID   types.ID `json:"id"`
	Role Role     `json:"role"`

	// Administrative assignment. Empty fields mean "no restriction at
	// this level" for broadly scoped roles, and "can see nothing" for
	// roles whose catalog scope requires that level (fail closed).
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Block    string `json:"block,omitempty"`
}

// Location returns the principal's assignment as a Location value.
func (p *Principal) Location() types.Location {
	return types.Location{
		State:    p.State,
		District: p.District,
		Block:    p.Block,
		OwnerID:  p.ID,
	}
}

// ValidHierarchy reports whether the location fields form a strict prefix
// of the administrative hierarchy: a district requires a state, and a
// block requires a district.
func (p *Principal) ValidHierarchy() bool {
	if p.District != "" && p.State == "" {
		return false
	}
	if p.Block != "" && p.District == "" {
		return false
	}
	return true
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
