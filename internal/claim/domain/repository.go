package domain

import (
	"context"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// ListFilter narrows claim queries. Geographic scoping is applied by the
// service via the authorization predicate, not here; the filter exists so
// the store can pre-narrow by indexed columns.
type ListFilter struct {
	State       string
	District    string
	Status      *ClaimStatus
	SubmittedBy *types.ID
	Limit       int
	Offset      int
}

// Repository is the persistence contract for claims.
type Repository interface {
	// Create stores a new claim. A duplicate claim number returns Conflict.
	Create(ctx context.Context, claim *Claim) error

	// FindByID returns a claim or NotFound
	FindByID(ctx context.Context, id types.ID) (*Claim, error)

	// FindByNumber returns a claim by its claim number or NotFound
	FindByNumber(ctx context.Context, claimNumber string) (*Claim, error)

	// List returns claims matching the filter, submission date descending.
	// Ties keep insertion order.
	List(ctx context.Context, filter ListFilter) ([]*Claim, error)

	// UpdateStatus persists a transition conditionally: the row is updated
	// only while its stored status still equals expected. A lost race
	// returns Conflict and the claim is left unchanged. New events on the
	// claim are appended in the same transaction.
	UpdateStatus(ctx context.Context, claim *Claim, expected ClaimStatus) error

	// ListEvents returns a claim's status history, oldest first
	ListEvents(ctx context.Context, claimID types.ID) ([]ClaimEvent, error)
}
