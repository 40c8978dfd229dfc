package audit

import (
	"context"
	"sync"

	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// MemoryRepository is an in-memory audit repository used in tests and
// when the platform runs without a KurrentDB connection.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  []*Entry
	lastHash string
	sequence int64
}

// NewMemoryRepository creates an empty in-memory audit repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Initialize is a no-op for the in-memory repository
func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash
	entry.Hash = entry.ComputeHash()

	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash

	return nil
}

// FindByID finds an audit entry by ID
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

// List lists audit entries with filters, most recent first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []*Entry
	total := 0

	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !matchesFilter(entry, filter) {
			continue
		}

		total++

		if filter.Offset > 0 && total <= filter.Offset {
			continue
		}
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, total, nil
}

// GetByResource gets audit entries for a specific resource
func (r *MemoryRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error) {
	filter := ListFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	}
	entries, _, err := r.List(ctx, filter)
	return entries, err
}

// VerifyChain verifies the integrity of the audit chain
func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	// Reverse chronological order, matching the KurrentDB read direction
	reversed := make([]*Entry, 0, n)
	for i := len(r.entries) - 1; i >= len(r.entries)-n; i-- {
		reversed = append(reversed, r.entries[i])
	}

	return verifyEntries(reversed, includeDetails), nil
}

// GetLastHash returns the last hash in the chain
func (r *MemoryRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// GetSequence returns the current sequence number
func (r *MemoryRepository) GetSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence
}
