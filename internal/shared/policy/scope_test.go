package policy

import (
	"testing"

	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// TestResolveScopeFailClosed tests the conservative defaults: principals
// without the assignment their scope requires, and entities missing a
// required level, are both denied
func TestResolveScopeFailClosed(t *testing.T) {
	entity := types.Location{State: "Odisha", District: "Mayurbhanj", Block: "Baripada"}

	t.Run("State scope without assigned state sees nothing", func(t *testing.T) {
		p := &auth.Principal{ID: types.NewID(), Role: auth.RoleStateAuthority}
		pred := ResolveScope(p, auth.ScopeState)
		if pred(entity) {
			t.Error("Unassigned state authority should see nothing")
		}
	})

	t.Run("District scope hides entities with no district", func(t *testing.T) {
		p := districtOfficer("Odisha", "Mayurbhanj")
		pred := ResolveScope(p, auth.ScopeDistrict)
		if pred(types.Location{State: "Odisha"}) {
			t.Error("Ungeolocated entity should be hidden from district-scoped role")
		}
	})

	t.Run("Block scope requires full match", func(t *testing.T) {
		p := &auth.Principal{
			ID: types.NewID(), Role: auth.RoleDistrictTribalWelfare,
			State: "Odisha", District: "Mayurbhanj", Block: "Baripada",
		}
		pred := ResolveScope(p, auth.ScopeBlock)
		if !pred(entity) {
			t.Error("Matching block should be visible")
		}
		if pred(types.Location{State: "Odisha", District: "Mayurbhanj", Block: "Udala"}) {
			t.Error("Other block should be hidden")
		}
	})

	t.Run("District without state is malformed", func(t *testing.T) {
		p := &auth.Principal{ID: types.NewID(), Role: auth.RoleDistrictTribalWelfare, District: "Mayurbhanj"}
		pred := ResolveScope(p, auth.ScopeDistrict)
		if pred(entity) {
			t.Error("Principal with district but no state should see nothing")
		}
	})

	t.Run("Nil principal sees nothing", func(t *testing.T) {
		pred := ResolveScope(nil, auth.ScopeAll)
		if pred(entity) {
			t.Error("Nil principal should see nothing")
		}
	})
}

// TestResolveScopeOwnership tests the ownership scope
func TestResolveScopeOwnership(t *testing.T) {
	owner := types.NewID()
	p := &auth.Principal{ID: owner, Role: auth.RoleBeneficiary, State: "Odisha"}

	pred := ResolveScope(p, auth.ScopeOwn)

	if !pred(types.Location{State: "Tripura", OwnerID: owner}) {
		t.Error("Own entity should be visible regardless of geography")
	}
	if pred(types.Location{State: "Odisha", OwnerID: types.NewID()}) {
		t.Error("Another owner's entity should be hidden")
	}
}

// TestResolveScopeAdmin tests the admin override
func TestResolveScopeAdmin(t *testing.T) {
	p := &auth.Principal{ID: types.NewID(), Role: auth.RoleAdmin}

	for _, scope := range []auth.ScopeKind{auth.ScopeOwn, auth.ScopeBlock, auth.ScopeDistrict, auth.ScopeState, auth.ScopeAll} {
		pred := ResolveScope(p, scope)
		if !pred(types.Location{State: "Tripura", District: "Dhalai"}) {
			t.Errorf("Admin should see everything at scope %s", scope)
		}
	}
}

// TestScopeNameMatching tests case-insensitive administrative name matching
func TestScopeNameMatching(t *testing.T) {
	p := districtOfficer("Odisha", "Mayurbhanj")
	pred := ResolveScope(p, auth.ScopeDistrict)

	if !pred(types.Location{State: "odisha", District: "MAYURBHANJ"}) {
		t.Error("Name matching should ignore case")
	}
	if !pred(types.Location{State: " Odisha ", District: "Mayurbhanj"}) {
		t.Error("Name matching should ignore surrounding whitespace")
	}
}
