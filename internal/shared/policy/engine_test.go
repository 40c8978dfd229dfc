package policy

import (
	"testing"

	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/types"
)

func districtOfficer(state, district string) *auth.Principal {
	return &auth.Principal{
		ID:       types.NewID(),
		Role:     auth.RoleDistrictTribalWelfare,
		State:    state,
		District: district,
	}
}

// TestCatalogLookup tests the permission table defaults
func TestCatalogLookup(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		role     auth.Role
		resource auth.Resource
		action   auth.Action
		allowed  bool
		scope    auth.ScopeKind
	}{
		{"Beneficiary creates own claim", auth.RoleBeneficiary, auth.ResourceOwnClaims, auth.ActionCreate, true, auth.ScopeOwn},
		{"Beneficiary cannot update district claims", auth.RoleBeneficiary, auth.ResourceDistrictClaims, auth.ActionUpdate, false, ""},
		{"District officer updates district claims", auth.RoleDistrictTribalWelfare, auth.ResourceDistrictClaims, auth.ActionUpdate, true, auth.ScopeDistrict},
		{"District officer cannot gis_validate", auth.RoleDistrictTribalWelfare, auth.ResourceDistrictClaims, auth.ActionGISValidate, false, ""},
		{"State authority digitizes", auth.RoleStateAuthority, auth.ResourceDistrictClaims, auth.ActionDigitize, true, auth.ScopeState},
		{"Ministry reads everywhere", auth.RoleMoTATechnical, auth.ResourceDistrictClaims, auth.ActionRead, true, auth.ScopeAll},
		{"Ministry cannot update", auth.RoleMoTATechnical, auth.ResourceDistrictClaims, auth.ActionUpdate, false, ""},
		{"Unknown role denied", auth.Role("clerk"), auth.ResourceDistrictClaims, auth.ActionRead, false, ""},
		{"Missing entry denies", auth.RoleBeneficiary, auth.ResourceReports, auth.ActionRead, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, scope := catalog.Lookup(tt.role, tt.resource, tt.action)
			if allowed != tt.allowed {
				t.Errorf("Expected allowed=%v, got %v", tt.allowed, allowed)
			}
			if allowed && scope != tt.scope {
				t.Errorf("Expected scope %s, got %s", tt.scope, scope)
			}
		})
	}
}

// TestAdminShortCircuit tests that the admin wildcard grant covers every
// resource and action at unrestricted scope
func TestAdminShortCircuit(t *testing.T) {
	catalog := DefaultCatalog()
	admin := auth.RoleAdmin

	resources := []auth.Resource{
		auth.ResourceOwnClaims, auth.ResourceDistrictClaims,
		auth.ResourceStateClaims, auth.ResourceLegacyRecords, auth.ResourceReports,
	}
	actions := []auth.Action{
		auth.ActionCreate, auth.ActionRead, auth.ActionUpdate, auth.ActionDelete,
		auth.ActionApprove, auth.ActionDigitize, auth.ActionGISValidate,
	}

	for _, res := range resources {
		for _, act := range actions {
			allowed, scope := catalog.Lookup(admin, res, act)
			if !allowed {
				t.Errorf("Admin denied %s on %s", act, res)
			}
			if scope != auth.ScopeAll {
				t.Errorf("Admin scope for %s on %s: expected all, got %s", act, res, scope)
			}
		}
	}
}

// TestAuthorizeReasons tests that denial reasons are distinguishable
func TestAuthorizeReasons(t *testing.T) {
	engine := NewEngine(DefaultCatalog())

	officer := districtOfficer("Odisha", "Mayurbhanj")

	t.Run("No such permission", func(t *testing.T) {
		d := engine.Authorize(officer, auth.ResourceStateClaims, auth.ActionApprove, nil)
		if d.Allowed {
			t.Fatal("Expected denial")
		}
		if d.Reason != ReasonNoSuchPermission {
			t.Errorf("Expected reason %s, got %s", ReasonNoSuchPermission, d.Reason)
		}
	})

	t.Run("Out of jurisdiction", func(t *testing.T) {
		target := types.Location{State: "Odisha", District: "Khordha"}
		d := engine.Authorize(officer, auth.ResourceDistrictClaims, auth.ActionUpdate, &target)
		if d.Allowed {
			t.Fatal("Expected denial")
		}
		if d.Reason != ReasonOutOfJurisdiction {
			t.Errorf("Expected reason %s, got %s", ReasonOutOfJurisdiction, d.Reason)
		}
	})

	t.Run("In jurisdiction", func(t *testing.T) {
		target := types.Location{State: "Odisha", District: "Mayurbhanj"}
		d := engine.Authorize(officer, auth.ResourceDistrictClaims, auth.ActionUpdate, &target)
		if !d.Allowed {
			t.Fatalf("Expected allow, got reason %s", d.Reason)
		}
	})

	t.Run("Nil principal denied", func(t *testing.T) {
		d := engine.Authorize(nil, auth.ResourceDistrictClaims, auth.ActionRead, nil)
		if d.Allowed {
			t.Fatal("Expected denial for nil principal")
		}
	})
}

// TestAuthorizeListPredicate tests that list-type decisions return a usable
// filter predicate
func TestAuthorizeListPredicate(t *testing.T) {
	engine := NewEngine(DefaultCatalog())
	officer := districtOfficer("Odisha", "Mayurbhanj")

	d := engine.Authorize(officer, auth.ResourceDistrictClaims, auth.ActionRead, nil)
	if !d.Allowed {
		t.Fatalf("Expected allow, got reason %s", d.Reason)
	}

	if !d.Predicate(types.Location{State: "Odisha", District: "Mayurbhanj"}) {
		t.Error("Predicate should admit the officer's own district")
	}
	if d.Predicate(types.Location{State: "Odisha", District: "Khordha"}) {
		t.Error("Predicate should exclude other districts")
	}
	if d.Predicate(types.Location{State: "Tripura", District: "Mayurbhanj"}) {
		t.Error("Predicate should require the state to match too")
	}
}
