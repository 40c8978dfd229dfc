package domain

import (
	"context"
	"sort"
	"time"

	"github.com/fra-atlas/platform/internal/audit"
	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/metrics"
	"github.com/fra-atlas/platform/internal/shared/policy"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Service orchestrates claim operations: every call authorizes the
// principal before touching the store, and denied calls never mutate.
type Service struct {
	engine  *policy.Engine
	repo    Repository
	numbers *NumberGenerator
	auditor *audit.Service
	clock   func() time.Time
}

// NewService wires a claim service. auditor may be nil; clock nil
// defaults to time.Now.
func NewService(engine *policy.Engine, repo Repository, numbers *NumberGenerator, auditor *audit.Service, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		engine:  engine,
		repo:    repo,
		numbers: numbers,
		auditor: auditor,
		clock:   clock,
	}
}

// readResourceFor maps a role to the claims resource it reads through.
// The catalog itself decides whether that read is granted.
func readResourceFor(role auth.Role) auth.Resource {
	switch role {
	case auth.RoleBeneficiary:
		return auth.ResourceOwnClaims
	case auth.RoleDistrictTribalWelfare:
		return auth.ResourceDistrictClaims
	case auth.RoleStateAuthority, auth.RoleMoTATechnical:
		return auth.ResourceStateClaims
	default:
		return auth.ResourceAll
	}
}

// updateResourceFor maps a role to the claims resource it mutates through
func updateResourceFor(role auth.Role) auth.Resource {
	switch role {
	case auth.RoleDistrictTribalWelfare:
		return auth.ResourceDistrictClaims
	case auth.RoleStateAuthority:
		return auth.ResourceStateClaims
	default:
		return auth.ResourceAll
	}
}

// Submit creates a new claim from a citizen draft. The claim number is
// derived from the draft's state, district and the submission timestamp;
// a collision surfaces as Conflict from the store and may be retried.
func (s *Service) Submit(ctx context.Context, p *auth.Principal, draft Draft) (*Claim, error) {
	decision := s.engine.Authorize(p, auth.ResourceOwnClaims, auth.ActionCreate, nil)
	metrics.RecordAuthorizationDecision(string(auth.ResourceOwnClaims), string(auth.ActionCreate), decisionLabel(decision))
	if !decision.Allowed {
		return nil, errors.Forbidden("not permitted to submit claims")
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	number := s.numbers.Generate(draft.State, draft.District)
	claim, err := NewClaim(draft, number, p.ID, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, err
	}

	metrics.RecordClaimSubmitted(string(claim.Type), claim.State)
	s.auditor.Record(ctx, p, audit.ActionClaimSubmitted, "claim", &claim.ID, map[string]any{
		"claim_number": claim.ClaimNumber,
		"claim_type":   claim.Type,
		"district":     claim.District,
		"state":        claim.State,
	})

	return claim, nil
}

// CreateFromDraft creates a claim on behalf of the digitization workflow.
// The workflow has already authorized the deciding principal; flags mark
// the claim as machine-extracted and link it back to its legacy record.
func (s *Service) CreateFromDraft(ctx context.Context, draft Draft, submittedBy types.ID, legacyRecordID types.ID) (*Claim, error) {
	number := s.numbers.Generate(draft.State, draft.District)
	claim, err := NewClaim(draft, number, submittedBy, s.clock())
	if err != nil {
		return nil, err
	}

	claim.OCRProcessed = true
	claim.NERProcessed = true
	claim.LegacyRecordID = &legacyRecordID

	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, err
	}

	metrics.RecordClaimSubmitted(string(claim.Type), claim.State)
	return claim, nil
}

// Track looks up a claim by number on behalf of a principal. Absent
// claims and claims outside the principal's jurisdiction are both
// reported as NotFound so callers cannot probe other jurisdictions.
func (s *Service) Track(ctx context.Context, p *auth.Principal, claimNumber string) (*Claim, error) {
	claim, err := s.repo.FindByNumber(ctx, claimNumber)
	if err != nil {
		return nil, err
	}

	resource := readResourceFor(p.Role)
	loc := claim.Location()
	decision := s.engine.Authorize(p, resource, auth.ActionRead, &loc)
	metrics.RecordAuthorizationDecision(string(resource), string(auth.ActionRead), decisionLabel(decision))
	if !decision.Allowed {
		s.auditor.Record(ctx, p, audit.ActionAccessDenied, "claim", &claim.ID, map[string]any{
			"reason": string(decision.Reason),
			"action": string(auth.ActionRead),
		})
		return nil, errors.NotFound("claim", claimNumber)
	}

	return claim, nil
}

// ListForReview returns the claims inside the principal's jurisdiction,
// submission date descending with stable ordering for ties. Inaccessible
// claims are omitted rather than erroring.
func (s *Service) ListForReview(ctx context.Context, p *auth.Principal, filter ListFilter) ([]*Claim, error) {
	resource := readResourceFor(p.Role)
	decision := s.engine.Authorize(p, resource, auth.ActionRead, nil)
	metrics.RecordAuthorizationDecision(string(resource), string(auth.ActionRead), decisionLabel(decision))
	if !decision.Allowed {
		return nil, errors.Forbidden("not permitted to list claims")
	}

	claims, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]*Claim, 0, len(claims))
	for _, claim := range claims {
		if decision.Predicate(claim.Location()) {
			visible = append(visible, claim)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].SubmittedAt.After(visible[j].SubmittedAt)
	})

	return visible, nil
}

// Transition moves a claim to a new status on behalf of a principal.
// Authorization failures return Forbidden without mutation; the state
// machine enforces terminal immutability even for admins. The store's
// conditional update serializes races on the same claim.
func (s *Service) Transition(ctx context.Context, p *auth.Principal, claimID types.ID, newStatus ClaimStatus, comment string) (*Claim, error) {
	if !newStatus.Valid() {
		return nil, errors.Validation("invalid claim status", map[string]string{
			"status": string(newStatus),
		})
	}

	claim, err := s.repo.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	resource := updateResourceFor(p.Role)
	loc := claim.Location()
	decision := s.engine.Authorize(p, resource, auth.ActionUpdate, &loc)
	metrics.RecordAuthorizationDecision(string(resource), string(auth.ActionUpdate), decisionLabel(decision))
	if !decision.Allowed {
		s.auditor.Record(ctx, p, audit.ActionAccessDenied, "claim", &claim.ID, map[string]any{
			"reason": string(decision.Reason),
			"action": string(auth.ActionUpdate),
		})
		return nil, errors.Forbidden("not permitted to update this claim")
	}

	// Approval additionally requires the gis_validate action (or admin);
	// district officers can review and digitize but never approve. The
	// catalog carries gis_validate on district_claims for validating roles.
	if newStatus == ClaimStatusApproved && !p.IsAdmin() {
		gisDecision := s.engine.Authorize(p, auth.ResourceDistrictClaims, auth.ActionGISValidate, &loc)
		if !gisDecision.Allowed {
			return nil, errors.Forbidden("approval requires GIS validation authority")
		}
	}

	expected := claim.Status
	if err := claim.Transition(newStatus, p.ID, string(p.Role), comment, s.clock()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, claim, expected); err != nil {
		return nil, err
	}

	metrics.RecordClaimStatusChange(string(expected), string(newStatus))

	action := audit.ActionClaimStatusChanged
	switch newStatus {
	case ClaimStatusApproved:
		action = audit.ActionClaimApproved
	case ClaimStatusRejected:
		action = audit.ActionClaimRejected
	}
	s.auditor.Record(ctx, p, action, "claim", &claim.ID, map[string]any{
		"from_status": string(expected),
		"to_status":   string(newStatus),
		"comment":     comment,
	})

	return claim, nil
}

// History returns a claim's status change history, applying the same
// NotFound masking as Track.
func (s *Service) History(ctx context.Context, p *auth.Principal, claimID types.ID) ([]ClaimEvent, error) {
	claim, err := s.repo.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	resource := readResourceFor(p.Role)
	loc := claim.Location()
	if decision := s.engine.Authorize(p, resource, auth.ActionRead, &loc); !decision.Allowed {
		return nil, errors.NotFound("claim", claimID.String())
	}

	return s.repo.ListEvents(ctx, claimID)
}

func decisionLabel(d policy.Decision) string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}
