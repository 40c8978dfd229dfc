package legacy

import (
	"context"
	"fmt"
	"time"

	"github.com/fra-atlas/platform/internal/audit"
	"github.com/fra-atlas/platform/internal/auth"
	claimdomain "github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/metrics"
	"github.com/fra-atlas/platform/internal/shared/policy"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Workflow owns the legacy digitization lifecycle. Extraction state moves
// are driven by the archive adapter; the terminal approve/reject decision
// is made exactly once by an authorized official.
type Workflow struct {
	engine  *policy.Engine
	repo    Repository
	claims  *claimdomain.Service
	auditor *audit.Service
	clock   func() time.Time
}

// NewWorkflow wires the digitization workflow. auditor may be nil; clock
// nil defaults to time.Now.
func NewWorkflow(engine *policy.Engine, repo Repository, claims *claimdomain.Service, auditor *audit.Service, clock func() time.Time) *Workflow {
	if clock == nil {
		clock = time.Now
	}
	return &Workflow{
		engine:  engine,
		repo:    repo,
		claims:  claims,
		auditor: auditor,
		clock:   clock,
	}
}

// Upload registers a scanned historical document for digitization
func (w *Workflow) Upload(ctx context.Context, p *auth.Principal, fileReference, state, district, block, village string) (*Record, error) {
	if fileReference == "" {
		return nil, errors.Validation("invalid legacy record", map[string]string{
			"file_reference": "is required",
		})
	}
	if state == "" || district == "" {
		return nil, errors.Validation("invalid legacy record", map[string]string{
			"location": "state and district are required",
		})
	}

	target := types.Location{State: state, District: district, Block: block, Village: village}
	decision := w.engine.Authorize(p, auth.ResourceLegacyRecords, auth.ActionCreate, &target)
	metrics.RecordAuthorizationDecision(string(auth.ResourceLegacyRecords), string(auth.ActionCreate), decisionLabel(decision))
	if !decision.Allowed {
		return nil, errors.Forbidden("not permitted to upload legacy records here")
	}

	record := NewRecord(fileReference, p.ID, state, district, block, village, w.clock())
	if err := w.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	w.auditor.Record(ctx, p, audit.ActionLegacyUploaded, "legacy_record", &record.ID, map[string]any{
		"file_reference": fileReference,
		"district":       district,
		"state":          state,
	})

	return record, nil
}

// Get returns a legacy record, masking out-of-jurisdiction records as
// NotFound the same way claim lookups do.
func (w *Workflow) Get(ctx context.Context, p *auth.Principal, id types.ID) (*Record, error) {
	record, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	loc := record.Location()
	if decision := w.engine.Authorize(p, auth.ResourceLegacyRecords, auth.ActionRead, &loc); !decision.Allowed {
		return nil, errors.NotFound("legacy record", id.String())
	}

	return record, nil
}

// List returns the legacy records inside the principal's jurisdiction
func (w *Workflow) List(ctx context.Context, p *auth.Principal, filter ListFilter) ([]*Record, error) {
	decision := w.engine.Authorize(p, auth.ResourceLegacyRecords, auth.ActionRead, nil)
	if !decision.Allowed {
		return nil, errors.Forbidden("not permitted to list legacy records")
	}

	records, err := w.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]*Record, 0, len(records))
	for _, record := range records {
		if decision.Predicate(record.Location()) {
			visible = append(visible, record)
		}
	}
	return visible, nil
}

// StartExtraction moves a record from uploaded to extracting. Driven by
// the extraction collaborator, not by user requests.
func (w *Workflow) StartExtraction(ctx context.Context, id types.ID) error {
	record, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.ProcessingStatus != StatusUploaded {
		return errors.InvalidTransition(string(record.ProcessingStatus), string(StatusExtracting))
	}

	record.ProcessingStatus = StatusExtracting
	record.UpdatedAt = w.clock()
	return w.repo.UpdateProcessing(ctx, record, StatusUploaded)
}

// CompleteExtraction stores the extraction result and moves the record to
// completed, making it eligible for a digitization decision.
func (w *Workflow) CompleteExtraction(ctx context.Context, id types.ID, result *ExtractionResult) error {
	record, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.ProcessingStatus != StatusExtracting {
		return errors.InvalidTransition(string(record.ProcessingStatus), string(StatusCompleted))
	}

	record.ProcessingStatus = StatusCompleted
	record.ExtractionResult = result
	record.UpdatedAt = w.clock()
	return w.repo.UpdateProcessing(ctx, record, StatusExtracting)
}

// FailExtraction marks extraction as failed with a reason
func (w *Workflow) FailExtraction(ctx context.Context, id types.ID, reason string) error {
	record, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if record.ProcessingStatus != StatusExtracting {
		return errors.InvalidTransition(string(record.ProcessingStatus), string(StatusFailed))
	}

	record.ProcessingStatus = StatusFailed
	record.FailureReason = reason
	record.UpdatedAt = w.clock()
	return w.repo.UpdateProcessing(ctx, record, StatusExtracting)
}

// Decide makes the one-shot digitization decision. Approval spawns a
// claim per draft (edited drafts take precedence over the raw extraction
// result); rejection marks the record failed. The conditional MarkDecided
// wins the decision atomically, so two racing calls can never both spawn
// claims.
func (w *Workflow) Decide(ctx context.Context, p *auth.Principal, id types.ID, approved bool, editedDrafts []claimdomain.Draft) (*Decision, error) {
	record, err := w.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	loc := record.Location()
	decision := w.engine.Authorize(p, auth.ResourceDistrictClaims, auth.ActionDigitize, &loc)
	metrics.RecordAuthorizationDecision(string(auth.ResourceDistrictClaims), string(auth.ActionDigitize), decisionLabel(decision))
	if !decision.Allowed {
		w.auditor.Record(ctx, p, audit.ActionAccessDenied, "legacy_record", &record.ID, map[string]any{
			"reason": string(decision.Reason),
			"action": string(auth.ActionDigitize),
		})
		return nil, errors.Forbidden("not permitted to digitize this record")
	}

	if record.Decided() {
		return nil, errors.AlreadyDecided("legacy record has already been decided")
	}
	if record.ProcessingStatus != StatusCompleted {
		return nil, errors.NotReady("extraction has not completed for this record")
	}

	now := w.clock()

	status := StatusCompleted
	var drafts []claimdomain.Draft
	if !approved {
		status = StatusFailed
	} else {
		drafts = editedDrafts
		if drafts == nil && record.ExtractionResult != nil {
			drafts = record.ExtractionResult.Drafts
		}

		// Every draft must be valid before the one-shot decision is
		// consumed; a malformed extraction must stay retryable with
		// corrected drafts.
		for i, draft := range drafts {
			if err := draft.Validate(); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("draft %d is invalid", i))
			}
		}
	}

	// Claim the decision first; exactly one concurrent caller wins
	if err := w.repo.MarkDecided(ctx, id, p.ID, now, approved, status, nil); err != nil {
		return nil, err
	}

	outcome := &Decision{RecordID: id, Approved: approved, ClaimsCreated: []*claimdomain.Claim{}}

	if approved {
		claimIDs := make([]types.ID, 0, len(drafts))
		for _, draft := range drafts {
			claim, err := w.claims.CreateFromDraft(ctx, draft, p.ID, id)
			if err != nil {
				return nil, errors.Wrap(err, "failed to create claim from draft")
			}
			outcome.ClaimsCreated = append(outcome.ClaimsCreated, claim)
			claimIDs = append(claimIDs, claim.ID)
		}

		if len(claimIDs) > 0 {
			if err := w.repo.AttachSpawnedClaims(ctx, id, claimIDs); err != nil {
				return nil, err
			}
		}
	}

	outcomeLabel := "rejected"
	if approved {
		outcomeLabel = "approved"
	}
	metrics.RecordDigitizationDecision(outcomeLabel)

	w.auditor.Record(ctx, p, audit.ActionLegacyDecided, "legacy_record", &record.ID, map[string]any{
		"approved":       approved,
		"claims_created": len(outcome.ClaimsCreated),
	})

	return outcome, nil
}

func decisionLabel(d policy.Decision) string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}
