package domain

import (
	"time"

	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// ClaimType defines the type of forest rights claim
type ClaimType string

const (
	ClaimTypeIFR ClaimType = "IFR" // Individual Forest Rights
	ClaimTypeCFR ClaimType = "CFR" // Community Forest Rights
	ClaimTypeCR  ClaimType = "CR"  // Community Rights
)

// ClaimTypes lists every valid claim type
var ClaimTypes = []ClaimType{ClaimTypeIFR, ClaimTypeCFR, ClaimTypeCR}

// Valid reports whether the claim type is part of the closed set
func (t ClaimType) Valid() bool {
	for _, known := range ClaimTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ClaimStatus defines the status of a claim
type ClaimStatus string

const (
	ClaimStatusSubmitted     ClaimStatus = "submitted"
	ClaimStatusUnderReview   ClaimStatus = "under_review"
	ClaimStatusDigitized     ClaimStatus = "digitized"
	ClaimStatusPendingGIS    ClaimStatus = "pending_gis_validation"
	ClaimStatusApproved      ClaimStatus = "approved"
	ClaimStatusRejected      ClaimStatus = "rejected"
)

// ClaimStatuses lists every valid status
var ClaimStatuses = []ClaimStatus{
	ClaimStatusSubmitted,
	ClaimStatusUnderReview,
	ClaimStatusDigitized,
	ClaimStatusPendingGIS,
	ClaimStatusApproved,
	ClaimStatusRejected,
}

// Valid reports whether the status is part of the closed set
func (s ClaimStatus) Valid() bool {
	for _, known := range ClaimStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further transitions
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// allowedTransitions maps each status to the statuses reachable from it.
// Rejection is reachable from every non-terminal state; approval only from
// review or GIS validation. Terminal states map to nothing.
var allowedTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusSubmitted:   {ClaimStatusUnderReview, ClaimStatusRejected},
	ClaimStatusUnderReview: {ClaimStatusDigitized, ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusDigitized:   {ClaimStatusPendingGIS, ClaimStatusRejected},
	ClaimStatusPendingGIS:  {ClaimStatusApproved, ClaimStatusRejected},
	ClaimStatusApproved:    {},
	ClaimStatusRejected:    {},
}

// CanTransition reports whether a claim in status s may move to target
func (s ClaimStatus) CanTransition(target ClaimStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Claim is the aggregate root for a forest rights claim
type Claim struct {
	ID          types.ID    `json:"id"`
	ClaimNumber string      `json:"claim_number"`
	Type        ClaimType   `json:"claim_type"`
	Status      ClaimStatus `json:"status"`

	ApplicantName string  `json:"applicant_name"`
	Village       string  `json:"village,omitempty"`
	Block         string  `json:"block,omitempty"`
	District      string  `json:"district"`
	State         string  `json:"state"`
	Area          float64 `json:"area"`

	Coordinates *Geometry     `json:"coordinates,omitempty"`
	Documents   []DocumentRef `json:"documents,omitempty"`

	SubmittedBy types.ID  `json:"submitted_by"`
	ReviewedBy  *types.ID `json:"reviewed_by,omitempty"`
	ApprovedBy  *types.ID `json:"approved_by,omitempty"`

	// Flags set by upstream collaborators, read as transition guards
	VerificationStatus string `json:"verification_status,omitempty"`
	OCRProcessed       bool   `json:"ocr_processed"`
	NERProcessed       bool   `json:"ner_processed"`
	GISValidated       bool   `json:"gis_validated"`

	// Set when the claim was spawned from a digitized legacy record
	LegacyRecordID *types.ID `json:"legacy_record_id,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	LastUpdated time.Time `json:"last_updated"`

	Events []ClaimEvent `json:"events,omitempty"`
}

// NewClaim creates a claim from a validated draft. The claim number must
// already have been generated by the caller.
func NewClaim(draft Draft, claimNumber string, submittedBy types.ID, now time.Time) (*Claim, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	return &Claim{
		ID:            types.NewID(),
		ClaimNumber:   claimNumber,
		Type:          draft.Type,
		Status:        ClaimStatusSubmitted,
		ApplicantName: draft.ApplicantName,
		Village:       draft.Village,
		Block:         draft.Block,
		District:      draft.District,
		State:         draft.State,
		Area:          draft.Area,
		Coordinates:   draft.Coordinates,
		Documents:     draft.Documents,
		SubmittedBy:   submittedBy,
		SubmittedAt:   now,
		LastUpdated:   now,
	}, nil
}

// Location returns the claim's position in the administrative hierarchy.
// OwnerID carries the submitter so ownership-scoped checks work.
func (c *Claim) Location() types.Location {
	return types.Location{
		State:    c.State,
		District: c.District,
		Block:    c.Block,
		Village:  c.Village,
		OwnerID:  c.SubmittedBy,
	}
}

// Transition moves the claim to a new status. Callers must authorize the
// actor first; this method enforces only the state machine itself.
// ReviewedBy, ApprovedBy and LastUpdated are updated together with the
// status so the change persists atomically or not at all.
func (c *Claim) Transition(newStatus ClaimStatus, actorID types.ID, actorRole string, comment string, now time.Time) error {
	if !newStatus.Valid() {
		return errors.Validation("invalid claim status", map[string]string{
			"status": string(newStatus),
		})
	}

	if c.Status.Terminal() {
		return errors.InvalidTransition(string(c.Status), string(newStatus))
	}
	if !c.Status.CanTransition(newStatus) {
		return errors.InvalidTransition(string(c.Status), string(newStatus))
	}

	oldStatus := c.Status
	c.Status = newStatus
	c.ReviewedBy = &actorID
	if newStatus == ClaimStatusApproved {
		c.ApprovedBy = &actorID
	}
	c.LastUpdated = now

	c.Events = append(c.Events, ClaimEvent{
		ID:         types.NewID(),
		ClaimID:    c.ID,
		FromStatus: oldStatus,
		ToStatus:   newStatus,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Comment:    comment,
		OccurredAt: now,
	})

	return nil
}
