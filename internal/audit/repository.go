package audit

import (
	"context"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// Repository defines the interface for audit storage operations.
// Allows swapping between KurrentDB and in-memory implementations.
type Repository interface {
	// Initialize loads initial state (last hash, sequence)
	Initialize(ctx context.Context) error

	// Append appends a new audit entry
	Append(ctx context.Context, entry *Entry) error

	// FindByID finds an audit entry by ID
	FindByID(ctx context.Context, id types.ID) (*Entry, error)

	// List lists audit entries with filters
	List(ctx context.Context, filter ListFilter) ([]*Entry, int, error)

	// GetByResource gets audit entries for a specific resource
	GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error)

	// VerifyChain verifies the integrity of the audit chain
	VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error)

	// GetLastHash returns the last hash in the chain
	GetLastHash() string

	// GetSequence returns the current sequence number
	GetSequence() int64
}

// VerifyResult summarizes a chain verification run
type VerifyResult struct {
	Valid          bool                `json:"valid"`
	Checked        int                 `json:"checked"`
	ContentValid   int                 `json:"content_valid"`
	ContentInvalid int                 `json:"content_invalid"`
	LinkageValid   int                 `json:"linkage_valid"`
	LinkageInvalid int                 `json:"linkage_invalid"`
	Violations     []string            `json:"violations,omitempty"`
	Entries        []VerifyEntryResult `json:"entries,omitempty"`
}

// VerifyEntryResult contains verification result for a single entry
type VerifyEntryResult struct {
	ID           types.ID `json:"id"`
	Sequence     int64    `json:"sequence"`
	Hash         string   `json:"hash"`
	ComputedHash string   `json:"computed_hash,omitempty"`
	PrevHash     string   `json:"prev_hash"`
	Valid        bool     `json:"valid"`
	ContentValid bool     `json:"content_valid"`
	LinkageValid bool     `json:"linkage_valid"`
	Action       string   `json:"action"`
}

var (
	_ Repository = (*KurrentDBRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
