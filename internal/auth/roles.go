// Package auth provides the role model and authenticated principal types.
package auth

// Role represents a user role in the system. The set is closed: the
// hierarchy runs from the national ministry down to individual claimants.
type Role string

const (
	RoleAdmin                 Role = "admin"                   // Full platform access
	RoleMoTATechnical         Role = "mota_technical"          // Ministry technical cell, national read/report access
	RoleStateAuthority        Role = "state_authority"         // State-level tribal welfare department
	RoleDistrictTribalWelfare Role = "district_tribal_welfare" // District welfare office, reviews and digitizes
	RoleBeneficiary           Role = "beneficiary"             // Citizen claimant
)

// Roles lists every valid role.
var Roles = []Role{
	RoleAdmin,
	RoleMoTATechnical,
	RoleStateAuthority,
	RoleDistrictTribalWelfare,
	RoleBeneficiary,
}

// Valid reports whether the role is part of the closed enumeration.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Resource names a protected resource class.
type Resource string

const (
	ResourceAll            Resource = "all" // admin wildcard
	ResourceOwnClaims      Resource = "own_claims"
	ResourceDistrictClaims Resource = "district_claims"
	ResourceStateClaims    Resource = "state_claims"
	ResourceLegacyRecords  Resource = "legacy_records"
	ResourceReports        Resource = "reports"
)

// Action names an operation on a resource.
type Action string

const (
	ActionCreate      Action = "create"
	ActionRead        Action = "read"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionApprove     Action = "approve"
	ActionDigitize    Action = "digitize"
	ActionGISValidate Action = "gis_validate"
)

// ScopeKind is the breadth of entities a permission rule applies to.
type ScopeKind string

const (
	ScopeOwn      ScopeKind = "own"      // entities owned by the principal
	ScopeBlock    ScopeKind = "block"    // principal's block
	ScopeDistrict ScopeKind = "district" // principal's district
	ScopeState    ScopeKind = "state"    // principal's state
	ScopeAll      ScopeKind = "all"      // no geographic restriction
)
