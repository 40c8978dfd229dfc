package domain

import (
	"time"

	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Geometry holds claim boundary coordinates as GeoJSON-style data.
// The platform stores it opaquely; GIS validation happens upstream.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// DocumentRef points at a stored supporting document
type DocumentRef struct {
	ID          types.ID `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mime_type,omitempty"`
	StoragePath string   `json:"-"`
}

// ClaimEvent records a single status change in a claim's history
type ClaimEvent struct {
	ID         types.ID    `json:"id"`
	ClaimID    types.ID    `json:"claim_id"`
	FromStatus ClaimStatus `json:"from_status"`
	ToStatus   ClaimStatus `json:"to_status"`
	ActorID    types.ID    `json:"actor_id"`
	ActorRole  string      `json:"actor_role"`
	Comment    string      `json:"comment,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Draft is the input for creating a claim, either from a citizen
// submission or from an approved legacy record digitization
type Draft struct {
	Type          ClaimType     `json:"claim_type"`
	ApplicantName string        `json:"applicant_name"`
	Village       string        `json:"village,omitempty"`
	Block         string        `json:"block,omitempty"`
	District      string        `json:"district"`
	State         string        `json:"state"`
	Area          float64       `json:"area"`
	Coordinates   *Geometry     `json:"coordinates,omitempty"`
	Documents     []DocumentRef `json:"documents,omitempty"`
}

// Validate checks the draft's closed-set and range invariants
func (d Draft) Validate() error {
	details := make(map[string]string)

	if !d.Type.Valid() {
		details["claim_type"] = "must be one of IFR, CFR, CR"
	}
	if d.Area < 0 {
		details["area"] = "must be non-negative"
	}
	if d.ApplicantName == "" {
		details["applicant_name"] = "is required"
	}
	if d.State == "" {
		details["state"] = "is required"
	}
	if d.District == "" {
		details["district"] = "is required"
	}

	if len(details) > 0 {
		return errors.Validation("invalid claim draft", details)
	}
	return nil
}
