package legacy

import (
	"context"
	"sync"
	"time"

	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// MemoryRepository is an in-memory legacy record store used in tests and
// when the platform runs in limited mode without PostgreSQL.
type MemoryRepository struct {
	mu      sync.Mutex
	records []*Record
	byID    map[types.ID]*Record
}

// NewMemoryRepository creates an empty in-memory legacy repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[types.ID]*Record)}
}

var _ Repository = (*MemoryRepository)(nil)

// Create stores a new record
func (r *MemoryRepository) Create(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[record.ID]; exists {
		return errors.Conflict("legacy record already exists")
	}

	stored := cloneRecord(record)
	r.records = append(r.records, stored)
	r.byID[stored.ID] = stored
	return nil
}

// FindByID returns a record or NotFound
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byID[id]
	if !ok {
		return nil, errors.NotFound("legacy record", id.String())
	}
	return cloneRecord(record), nil
}

// List returns records matching the filter, newest uploads first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*Record
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if filter.State != "" && record.State != filter.State {
			continue
		}
		if filter.District != "" && record.District != filter.District {
			continue
		}
		if filter.Status != nil && record.ProcessingStatus != *filter.Status {
			continue
		}
		result = append(result, cloneRecord(record))
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

// UpdateProcessing moves a record between extraction states conditionally
func (r *MemoryRepository) UpdateProcessing(ctx context.Context, record *Record, expected ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[record.ID]
	if !ok {
		return errors.NotFound("legacy record", record.ID.String())
	}
	if stored.ProcessingStatus != expected {
		return errors.Conflict("legacy record was modified concurrently")
	}

	stored.ProcessingStatus = record.ProcessingStatus
	stored.ExtractionResult = record.ExtractionResult
	stored.FailureReason = record.FailureReason
	stored.UpdatedAt = record.UpdatedAt
	return nil
}

// MarkDecided records the terminal decision while the record is undecided
func (r *MemoryRepository) MarkDecided(ctx context.Context, id types.ID, decidedBy types.ID, decidedAt time.Time, approved bool, status ProcessingStatus, spawnedClaimIDs []types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return errors.NotFound("legacy record", id.String())
	}
	if stored.DecidedAt != nil {
		return errors.AlreadyDecided("legacy record has already been decided")
	}

	at := decidedAt
	by := decidedBy
	ap := approved
	stored.DecidedAt = &at
	stored.DecidedBy = &by
	stored.Approved = &ap
	stored.ProcessingStatus = status
	stored.SpawnedClaimIDs = append([]types.ID(nil), spawnedClaimIDs...)
	stored.UpdatedAt = at
	return nil
}

// AttachSpawnedClaims records the claims created by an approving decision
func (r *MemoryRepository) AttachSpawnedClaims(ctx context.Context, id types.ID, claimIDs []types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return errors.NotFound("legacy record", id.String())
	}
	stored.SpawnedClaimIDs = append(stored.SpawnedClaimIDs, claimIDs...)
	return nil
}

func cloneRecord(rec *Record) *Record {
	clone := *rec
	if rec.DecidedAt != nil {
		v := *rec.DecidedAt
		clone.DecidedAt = &v
	}
	if rec.DecidedBy != nil {
		v := *rec.DecidedBy
		clone.DecidedBy = &v
	}
	if rec.Approved != nil {
		v := *rec.Approved
		clone.Approved = &v
	}
	if rec.ExtractionResult != nil {
		v := *rec.ExtractionResult
		clone.ExtractionResult = &v
	}
	clone.SpawnedClaimIDs = append([]types.ID(nil), rec.SpawnedClaimIDs...)
	return &clone
}
