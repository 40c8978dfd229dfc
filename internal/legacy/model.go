package legacy

import (
	"time"

	claimdomain "github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// ProcessingStatus tracks a legacy record through extraction
type ProcessingStatus string

const (
	StatusUploaded   ProcessingStatus = "uploaded"
	StatusExtracting ProcessingStatus = "extracting"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// ProcessingStatuses lists every valid processing status
var ProcessingStatuses = []ProcessingStatus{
	StatusUploaded, StatusExtracting, StatusCompleted, StatusFailed,
}

// Valid reports whether the status is part of the closed set
func (s ProcessingStatus) Valid() bool {
	for _, known := range ProcessingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ExtractionResult is the payload produced by the OCR/NER collaborator.
// The platform stores it opaquely apart from the candidate drafts.
type ExtractionResult struct {
	Text     string                `json:"text,omitempty"`
	Entities map[string]string     `json:"entities,omitempty"`
	Drafts   []claimdomain.Draft   `json:"candidate_claim_drafts,omitempty"`
}

// Record is an uploaded historical document pending extraction and a
// one-shot human digitization decision
type Record struct {
	ID            types.ID         `json:"id"`
	FileReference string           `json:"file_reference"`
	UploadedBy    types.ID         `json:"uploaded_by"`

	Village  string `json:"village,omitempty"`
	Block    string `json:"block,omitempty"`
	District string `json:"district"`
	State    string `json:"state"`

	ProcessingStatus ProcessingStatus  `json:"processing_status"`
	ExtractionResult *ExtractionResult `json:"extraction_result,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`

	// Decision fields. DecidedAt is the one-shot guard: once set, no
	// further decisions are accepted for this record.
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	DecidedBy *types.ID  `json:"decided_by,omitempty"`
	Approved  *bool      `json:"approved,omitempty"`

	// Claims spawned by an approving decision, recorded for audit.
	// The claims themselves are independent entities after creation.
	SpawnedClaimIDs []types.ID `json:"spawned_claim_ids"`

	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewRecord creates a legacy record in the uploaded state
func NewRecord(fileReference string, uploadedBy types.ID, state, district, block, village string, now time.Time) *Record {
	return &Record{
		ID:               types.NewID(),
		FileReference:    fileReference,
		UploadedBy:       uploadedBy,
		Village:          village,
		Block:            block,
		District:         district,
		State:            state,
		ProcessingStatus: StatusUploaded,
		SpawnedClaimIDs:  []types.ID{},
		UploadedAt:       now,
		UpdatedAt:        now,
	}
}

// Location returns the record's position in the administrative hierarchy
func (r *Record) Location() types.Location {
	return types.Location{
		State:    r.State,
		District: r.District,
		Block:    r.Block,
		Village:  r.Village,
		OwnerID:  r.UploadedBy,
	}
}

// Decided reports whether the terminal human decision has been made
func (r *Record) Decided() bool {
	return r.DecidedAt != nil
}

// Decision is the outcome of a digitization decision
type Decision struct {
	RecordID      types.ID              `json:"record_id"`
	Approved      bool                  `json:"approved"`
	ClaimsCreated []*claimdomain.Claim  `json:"claims_created"`
}
