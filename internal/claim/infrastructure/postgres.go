package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ domain.Repository = (*PostgresRepository)(nil)

// Create stores a new claim. The unique index on claim_number turns
// duplicate numbers into Conflict for the caller to retry.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Claim) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	coordinatesJSON, err := marshalNullable(c.Coordinates)
	if err != nil {
		return errors.Wrap(err, "failed to marshal coordinates")
	}
	documentsJSON, err := json.Marshal(c.Documents)
	if err != nil {
		return errors.Wrap(err, "failed to marshal documents")
	}

	query := `
		INSERT INTO claims.claims (
			id, claim_number, claim_type, status,
			applicant_name, village, block, district, state, area,
			coordinates, documents,
			submitted_by, reviewed_by, approved_by,
			verification_status, ocr_processed, ner_processed, gis_validated,
			legacy_record_id,
			submitted_at, last_updated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.ClaimNumber, c.Type, c.Status,
		c.ApplicantName, c.Village, c.Block, c.District, c.State, c.Area,
		coordinatesJSON, documentsJSON,
		c.SubmittedBy, c.ReviewedBy, c.ApprovedBy,
		c.VerificationStatus, c.OCRProcessed, c.NERProcessed, c.GISValidated,
		c.LegacyRecordID,
		c.SubmittedAt, c.LastUpdated,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("claim with this number already exists")
		}
		return errors.Wrap(err, "failed to save claim")
	}

	for _, e := range c.Events {
		if err := r.saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

const claimColumns = `
	id, claim_number, claim_type, status,
	applicant_name, village, block, district, state, area,
	coordinates, documents,
	submitted_by, reviewed_by, approved_by,
	verification_status, ocr_processed, ner_processed, gis_validated,
	legacy_record_id,
	submitted_at, last_updated`

// FindByID finds a claim by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Claim, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims.claims WHERE id = $1`, id)

	c, err := scanClaim(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("claim", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find claim")
	}
	return c, nil
}

// FindByNumber finds a claim by claim number
func (r *PostgresRepository) FindByNumber(ctx context.Context, claimNumber string) (*domain.Claim, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claims.claims WHERE claim_number = $1`, claimNumber)

	c, err := scanClaim(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("claim", claimNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find claim by number")
	}
	return c, nil
}

// List returns claims matching the filter, newest submissions first.
// The secondary sort on id keeps ordering stable for equal timestamps.
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims.claims WHERE 1=1`
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
		addArg("status", *filter.Status)
	}
	if filter.SubmittedBy != nil {
		addArg("submitted_by", *filter.SubmittedBy)
	}

	query += ` ORDER BY submitted_at DESC, id`

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
		return nil, errors.Wrap(err, "failed to list claims")
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan claim")
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

// UpdateStatus applies a transition with a conditional update: the row
// changes only while its status still equals expected. A lost race
// returns Conflict so the caller can retry with a fresh read.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, c *domain.Claim, expected domain.ClaimStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE claims.claims SET
			status = $3, reviewed_by = $4, approved_by = $5,
			verification_status = $6, gis_validated = $7,
			last_updated = $8
		WHERE id = $1 AND status = $2`

	result, err := tx.Exec(ctx, query,
		c.ID, expected,
		c.Status, c.ReviewedBy, c.ApprovedBy,
		c.VerificationStatus, c.GISValidated,
		c.LastUpdated,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update claim status")
	}
	if result.RowsAffected() == 0 {
		return errors.Conflict("claim was modified concurrently, retry with a fresh read")
	}

	// Persist only events not yet stored
	for _, e := range c.Events {
		if err := r.saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// ListEvents returns a claim's status history, oldest first
func (r *PostgresRepository) ListEvents(ctx context.Context, claimID types.ID) ([]domain.ClaimEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, claim_id, from_status, to_status, actor_id, actor_role, comment, occurred_at
		FROM claims.claim_events
		WHERE claim_id = $1
		ORDER BY occurred_at, id`, claimID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list claim events")
	}
	defer rows.Close()

	var events []domain.ClaimEvent
	for rows.Next() {
		var e domain.ClaimEvent
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.FromStatus, &e.ToStatus,
			&e.ActorID, &e.ActorRole, &e.Comment, &e.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan claim event")
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *PostgresRepository) saveEvent(ctx context.Context, tx pgx.Tx, e *domain.ClaimEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO claims.claim_events (id, claim_id, from_status, to_status, actor_id, actor_role, comment, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.ClaimID, e.FromStatus, e.ToStatus, e.ActorID, e.ActorRole, e.Comment, e.OccurredAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save claim event")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*domain.Claim, error) {
	c := &domain.Claim{}
	var coordinatesJSON, documentsJSON []byte

	err := row.Scan(
		&c.ID, &c.ClaimNumber, &c.Type, &c.Status,
		&c.ApplicantName, &c.Village, &c.Block, &c.District, &c.State, &c.Area,
		&coordinatesJSON, &documentsJSON,
		&c.SubmittedBy, &c.ReviewedBy, &c.ApprovedBy,
		&c.VerificationStatus, &c.OCRProcessed, &c.NERProcessed, &c.GISValidated,
		&c.LegacyRecordID,
		&c.SubmittedAt, &c.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if len(coordinatesJSON) > 0 {
		if err := json.Unmarshal(coordinatesJSON, &c.Coordinates); err != nil {
			c.Coordinates = nil
		}
	}
	if len(documentsJSON) > 0 {
		if err := json.Unmarshal(documentsJSON, &c.Documents); err != nil {
			c.Documents = nil
		}
	}

	return c, nil
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if g, ok := v.(*domain.Geometry); ok && g == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
