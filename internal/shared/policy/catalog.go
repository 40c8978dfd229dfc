// Package policy implements the authorization engine: a static permission
// catalog combined with geographic scope resolution. Decisions are pure -
// callers do their own persistence and audit logging.
package policy

import (
	"github.com/fra-atlas/platform/internal/auth"
)

// Rule grants a set of actions on one resource at a given scope.
type Rule struct {
	Resource auth.Resource
	Actions  []auth.Action
	Scope    auth.ScopeKind
}

type grant struct {
	actions map[auth.Action]bool
	scope   auth.ScopeKind
}

// Catalog is the immutable role -> resource -> actions permission table.
// It is built once at startup and never mutated mid-request; reconfiguration
// means building a new Catalog and swapping the reference.
type Catalog struct {
	grants map[auth.Role]map[auth.Resource]grant
}

// NewCatalog builds a catalog from per-role rules.
func NewCatalog(rules map[auth.Role][]Rule) *Catalog {
	c := &Catalog{grants: make(map[auth.Role]map[auth.Resource]grant)}
	for role, rr := range rules {
		byResource := make(map[auth.Resource]grant)
		for _, rule := range rr {
			g := grant{actions: make(map[auth.Action]bool), scope: rule.Scope}
			for _, a := range rule.Actions {
				g.actions[a] = true
			}
			byResource[rule.Resource] = g
		}
		c.grants[role] = byResource
	}
	return c
}

// allActions is the full action set, granted by the admin wildcard.
var allActions = []auth.Action{
	auth.ActionCreate, auth.ActionRead, auth.ActionUpdate, auth.ActionDelete,
	auth.ActionApprove, auth.ActionDigitize, auth.ActionGISValidate,
}

// Lookup returns whether (role, resource, action) is allowed and at which
// scope. Missing entries deny. A grant on the "all" resource short-circuits
// every other lookup for that role.
func (c *Catalog) Lookup(role auth.Role, resource auth.Resource, action auth.Action) (bool, auth.ScopeKind) {
	byResource, ok := c.grants[role]
	if !ok {
		return false, ""
	}

	if g, ok := byResource[auth.ResourceAll]; ok && g.actions[action] {
		return true, g.scope
	}

	g, ok := byResource[resource]
	if !ok || !g.actions[action] {
		return false, ""
	}
	return true, g.scope
}

// DefaultCatalog returns the built-in permission table.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[auth.Role][]Rule{
		auth.RoleAdmin: {
			{Resource: auth.ResourceAll, Actions: allActions, Scope: auth.ScopeAll},
		},
		auth.RoleMoTATechnical: {
			{Resource: auth.ResourceStateClaims, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeAll},
			{Resource: auth.ResourceDistrictClaims, Actions: []auth.Action{auth.ActionRead, auth.ActionGISValidate}, Scope: auth.ScopeAll},
			{Resource: auth.ResourceLegacyRecords, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeAll},
			{Resource: auth.ResourceReports, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeAll},
		},
		auth.RoleStateAuthority: {
			{Resource: auth.ResourceStateClaims, Actions: []auth.Action{auth.ActionRead, auth.ActionUpdate, auth.ActionApprove}, Scope: auth.ScopeState},
			{Resource: auth.ResourceDistrictClaims, Actions: []auth.Action{auth.ActionRead, auth.ActionUpdate, auth.ActionDigitize, auth.ActionGISValidate}, Scope: auth.ScopeState},
			{Resource: auth.ResourceLegacyRecords, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeState},
			{Resource: auth.ResourceReports, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeState},
		},
		auth.RoleDistrictTribalWelfare: {
			{Resource: auth.ResourceDistrictClaims, Actions: []auth.Action{auth.ActionCreate, auth.ActionRead, auth.ActionUpdate, auth.ActionDigitize}, Scope: auth.ScopeDistrict},
			{Resource: auth.ResourceLegacyRecords, Actions: []auth.Action{auth.ActionCreate, auth.ActionRead, auth.ActionUpdate}, Scope: auth.ScopeDistrict},
			{Resource: auth.ResourceReports, Actions: []auth.Action{auth.ActionRead}, Scope: auth.ScopeDistrict},
		},
		auth.RoleBeneficiary: {
			{Resource: auth.ResourceOwnClaims, Actions: []auth.Action{auth.ActionCreate, auth.ActionRead}, Scope: auth.ScopeOwn},
		},
	})
}
