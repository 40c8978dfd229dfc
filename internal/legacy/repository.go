package legacy

import (
	"context"
	"time"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// ListFilter narrows legacy record queries
type ListFilter struct {
	State    string
	District string
	Status   *ProcessingStatus
	Limit    int
	Offset   int
}

// Repository is the persistence contract for legacy records.
type Repository interface {
	// Create stores a new record
	Create(ctx context.Context, record *Record) error

	// FindByID returns a record or NotFound
	FindByID(ctx context.Context, id types.ID) (*Record, error)

	// List returns records matching the filter, upload date descending
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// UpdateProcessing moves a record between extraction states
	// conditionally on its current status; a lost race returns Conflict.
	UpdateProcessing(ctx context.Context, record *Record, expected ProcessingStatus) error

	// MarkDecided records the terminal decision conditionally on the
	// record being undecided. A second decision returns AlreadyDecided,
	// closing the window where two concurrent decisions both pass the
	// precondition check.
	MarkDecided(ctx context.Context, id types.ID, decidedBy types.ID, decidedAt time.Time, approved bool, status ProcessingStatus, spawnedClaimIDs []types.ID) error

	// AttachSpawnedClaims records the claims created by an approving
	// decision after the decision itself has been won.
	AttachSpawnedClaims(ctx context.Context, id types.ID, claimIDs []types.ID) error
}
