package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const recordColumns = `
	id, file_reference, uploaded_by,
	village, block, district, state,
	processing_status, extraction_result, failure_reason,
	decided_at, decided_by, approved, spawned_claim_ids,
	uploaded_at, updated_at`

// Create stores a new record
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	extractionJSON, err := marshalNullable(rec.ExtractionResult)
	if err != nil {
		return errors.Wrap(err, "failed to marshal extraction result")
	}
	spawnedJSON, err := json.Marshal(rec.SpawnedClaimIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal spawned claim ids")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO legacy.records (
			id, file_reference, uploaded_by,
			village, block, district, state,
			processing_status, extraction_result, failure_reason,
			decided_at, decided_by, approved, spawned_claim_ids,
			uploaded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.FileReference, rec.UploadedBy,
		rec.Village, rec.Block, rec.District, rec.State,
		rec.ProcessingStatus, extractionJSON, rec.FailureReason,
		rec.DecidedAt, rec.DecidedBy, rec.Approved, spawnedJSON,
		rec.UploadedAt, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save legacy record")
	}
	return nil
}

// FindByID returns a record or NotFound
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM legacy.records WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("legacy record", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find legacy record")
	}
	return rec, nil
}

// List returns records matching the filter, newest uploads first
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM legacy.records WHERE 1=1`
	args := []any{}

	addArg := func(column string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}

	if filter.State != "" {
		addArg("state", filter.State)
	}
	if filter.District != "" {
		addArg("district", filter.District)
	}
	if filter.Status != nil {
		addArg("processing_status", *filter.Status)
	}

	query += ` ORDER BY uploaded_at DESC, id`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list legacy records")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan legacy record")
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// UpdateProcessing moves a record between extraction states conditionally
func (r *PostgresRepository) UpdateProcessing(ctx context.Context, rec *Record, expected ProcessingStatus) error {
	extractionJSON, err := marshalNullable(rec.ExtractionResult)
	if err != nil {
		return errors.Wrap(err, "failed to marshal extraction result")
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE legacy.records SET
			processing_status = $3, extraction_result = $4,
			failure_reason = $5, updated_at = $6
		WHERE id = $1 AND processing_status = $2`,
		rec.ID, expected,
		rec.ProcessingStatus, extractionJSON,
		rec.FailureReason, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update legacy record")
	}
	if result.RowsAffected() == 0 {
		return errors.Conflict("legacy record was modified concurrently")
	}
	return nil
}

// MarkDecided records the terminal decision. The decided_at IS NULL guard
// makes the decision one-shot under concurrency: exactly one of two
// racing calls updates the row, the other sees AlreadyDecided.
func (r *PostgresRepository) MarkDecided(ctx context.Context, id types.ID, decidedBy types.ID, decidedAt time.Time, approved bool, status ProcessingStatus, spawnedClaimIDs []types.ID) error {
	spawnedJSON, err := json.Marshal(spawnedClaimIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal spawned claim ids")
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE legacy.records SET
			decided_at = $2, decided_by = $3, approved = $4,
			processing_status = $5, spawned_claim_ids = $6, updated_at = $2
		WHERE id = $1 AND decided_at IS NULL`,
		id, decidedAt, decidedBy, approved, status, spawnedJSON,
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark legacy record decided")
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM legacy.records WHERE id = $1)`, id).Scan(&exists); err == nil && !exists {
			return errors.NotFound("legacy record", id.String())
		}
		return errors.AlreadyDecided("legacy record has already been decided")
	}
	return nil
}

// AttachSpawnedClaims records the claims created by an approving decision
func (r *PostgresRepository) AttachSpawnedClaims(ctx context.Context, id types.ID, claimIDs []types.ID) error {
	spawnedJSON, err := json.Marshal(claimIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal spawned claim ids")
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE legacy.records
		SET spawned_claim_ids = spawned_claim_ids || $2::jsonb
		WHERE id = $1`,
		id, spawnedJSON,
	)
	if err != nil {
		return errors.Wrap(err, "failed to attach spawned claims")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("legacy record", id.String())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var extractionJSON, spawnedJSON []byte

	err := row.Scan(
		&rec.ID, &rec.FileReference, &rec.UploadedBy,
		&rec.Village, &rec.Block, &rec.District, &rec.State,
		&rec.ProcessingStatus, &extractionJSON, &rec.FailureReason,
		&rec.DecidedAt, &rec.DecidedBy, &rec.Approved, &spawnedJSON,
		&rec.UploadedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(extractionJSON) > 0 {
		if err := json.Unmarshal(extractionJSON, &rec.ExtractionResult); err != nil {
			rec.ExtractionResult = nil
		}
	}
	if len(spawnedJSON) > 0 {
		if err := json.Unmarshal(spawnedJSON, &rec.SpawnedClaimIDs); err != nil {
			rec.SpawnedClaimIDs = []types.ID{}
		}
	}

	return rec, nil
}

func marshalNullable(result *ExtractionResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}
