package types

import "strings"

// Location identifies a point in the administrative hierarchy
// (state > district > block > village). Empty fields mean "not set" -
// scope evaluation treats them conservatively, never as wildcards.
type Location struct {
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Block    string `json:"block,omitempty"`
	Village  string `json:"village,omitempty"`

	// OwnerID is the principal that owns the entity at this location.
	// Used by ownership-scoped access checks, not by geography.
	OwnerID ID `json:"owner_id,omitempty"`
}

// HasState reports whether the state level is set.
func (l Location) HasState() bool { return l.State != "" }

// HasDistrict reports whether the district level is set.
func (l Location) HasDistrict() bool { return l.District != "" }

// HasBlock reports whether the block level is set.
func (l Location) HasBlock() bool { return l.Block != "" }

// sameName compares administrative names case-insensitively,
// ignoring surrounding whitespace.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SameState reports whether both locations name the same state.
func (l Location) SameState(other Location) bool {
	return l.HasState() && other.HasState() && sameName(l.State, other.State)
}

// SameDistrict reports whether both locations name the same state and district.
func (l Location) SameDistrict(other Location) bool {
	return l.SameState(other) &&
		l.HasDistrict() && other.HasDistrict() &&
		sameName(l.District, other.District)
}

// SameBlock reports whether both locations name the same state, district and block.
func (l Location) SameBlock(other Location) bool {
	return l.SameDistrict(other) &&
		l.HasBlock() && other.HasBlock() &&
		sameName(l.Block, other.Block)
}

// LocationCode derives a short uppercase code from an administrative name,
// e.g. "Odisha" -> "OD", "Mayurbhanj" -> "MAY". Used for claim numbers.
func LocationCode(name string, width int) string {
	cleaned := make([]rune, 0, width)
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		if r >= 'A' && r <= 'Z' {
			cleaned = append(cleaned, r)
		}
		if len(cleaned) == width {
			break
		}
	}
	for len(cleaned) < width {
		cleaned = append(cleaned, 'X')
	}
	return string(cleaned)
}
