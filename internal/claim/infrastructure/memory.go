package infrastructure

import (
	"context"
	"sync"

	"github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// MemoryRepository is an in-memory claim store used in tests and when the
// platform runs in limited mode without PostgreSQL. Insertion order is
// preserved so list queries have a stable tie-break.
type MemoryRepository struct {
	mu       sync.RWMutex
	claims   []*domain.Claim
	byID     map[types.ID]*domain.Claim
	byNumber map[string]*domain.Claim
	events   map[types.ID][]domain.ClaimEvent
}

// NewMemoryRepository creates an empty in-memory claim repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[types.ID]*domain.Claim),
		byNumber: make(map[string]*domain.Claim),
		events:   make(map[types.ID][]domain.ClaimEvent),
	}
}

var _ domain.Repository = (*MemoryRepository)(nil)

// Create stores a new claim, enforcing claim number uniqueness
func (r *MemoryRepository) Create(ctx context.Context, claim *domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[claim.ClaimNumber]; exists {
		return errors.Conflict("claim number already exists")
	}

	stored := cloneClaim(claim)
	r.claims = append(r.claims, stored)
	r.byID[stored.ID] = stored
	r.byNumber[stored.ClaimNumber] = stored
	r.events[stored.ID] = append(r.events[stored.ID], stored.Events...)

	return nil
}

// FindByID returns a claim or NotFound
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.byID[id]
	if !ok {
		return nil, errors.NotFound("claim", id.String())
	}
	return cloneClaim(claim), nil
}

// FindByNumber returns a claim by claim number or NotFound
func (r *MemoryRepository) FindByNumber(ctx context.Context, claimNumber string) (*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.byNumber[claimNumber]
	if !ok {
		return nil, errors.NotFound("claim", claimNumber)
	}
	return cloneClaim(claim), nil
}

// List returns claims matching the filter in insertion order
func (r *MemoryRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Claim
	for _, claim := range r.claims {
		if filter.State != "" && claim.State != filter.State {
			continue
		}
		if filter.District != "" && claim.District != filter.District {
			continue
		}
		if filter.Status != nil && claim.Status != *filter.Status {
			continue
		}
		if filter.SubmittedBy != nil && claim.SubmittedBy != *filter.SubmittedBy {
			continue
		}
		result = append(result, cloneClaim(claim))
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateStatus applies a transition only while the stored status still
// equals expected, mirroring the conditional UPDATE of the SQL store
func (r *MemoryRepository) UpdateStatus(ctx context.Context, claim *domain.Claim, expected domain.ClaimStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[claim.ID]
	if !ok {
		return errors.NotFound("claim", claim.ID.String())
	}
	if stored.Status != expected {
		return errors.Conflict("claim was modified concurrently, retry with a fresh read")
	}

	stored.Status = claim.Status
	stored.ReviewedBy = claim.ReviewedBy
	stored.ApprovedBy = claim.ApprovedBy
	stored.GISValidated = claim.GISValidated
	stored.VerificationStatus = claim.VerificationStatus
	stored.LastUpdated = claim.LastUpdated

	for _, ev := range claim.Events {
		exists := false
		for _, have := range r.events[claim.ID] {
			if have.ID == ev.ID {
				exists = true
				break
			}
		}
		if !exists {
			r.events[claim.ID] = append(r.events[claim.ID], ev)
		}
	}
	stored.Events = append([]domain.ClaimEvent(nil), r.events[claim.ID]...)

	return nil
}

// ListEvents returns a claim's status history, oldest first
func (r *MemoryRepository) ListEvents(ctx context.Context, claimID types.ID) ([]domain.ClaimEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[claimID]
	out := make([]domain.ClaimEvent, len(events))
	copy(out, events)
	return out, nil
}

func cloneClaim(c *domain.Claim) *domain.Claim {
	clone := *c
	if c.ReviewedBy != nil {
		v := *c.ReviewedBy
		clone.ReviewedBy = &v
	}
	if c.ApprovedBy != nil {
		v := *c.ApprovedBy
		clone.ApprovedBy = &v
	}
	if c.LegacyRecordID != nil {
		v := *c.LegacyRecordID
		clone.LegacyRecordID = &v
	}
	clone.Documents = append([]domain.DocumentRef(nil), c.Documents...)
	clone.Events = append([]domain.ClaimEvent(nil), c.Events...)
	return &clone
}
