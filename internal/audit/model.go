package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// canonicalJSON produces deterministic JSON output with sorted map keys.
// Go maps have random iteration order, so keys must be sorted for
// consistent hashing across processes.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}

// Entry represents an immutable audit log entry
type Entry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	// Actor
	ActorID   types.ID `json:"actor_id"`
	ActorRole string   `json:"actor_role"`
	ActorIP   string   `json:"actor_ip,omitempty"`

	// Action
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   *types.ID `json:"resource_id,omitempty"`

	// Geographic context of the resource, when known
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`

	// Changes
	Changes map[string]any `json:"changes,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEntry creates a new audit entry. Sequence, PrevHash and Hash are
// assigned by the repository on append.
func NewEntry(actorID types.ID, actorRole, action, resourceType string, resourceID *types.ID, changes map[string]any) *Entry {
	return &Entry{
		ID:           types.NewID(),
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
	}
}

// WithLocation attaches the resource's geographic context
func (e *Entry) WithLocation(state, district string) *Entry {
	e.State = state
	e.District = district
	return e
}

// WithRequest adds request information to the entry
func (e *Entry) WithRequest(ip, correlationID string) *Entry {
	e.ActorIP = ip
	e.CorrelationID = correlationID
	return e
}

// ComputeHash calculates the SHA-256 hash of the entry using canonical JSON.
// Timestamps are normalized to UTC so verification is timezone-independent.
func (e *Entry) ComputeHash() string {
	data := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_hash":     e.PrevHash,
		"actor_id":      e.ActorID,
		"actor_role":    e.ActorRole,
		"action":        e.Action,
		"resource_type": e.ResourceType,
	}

	if e.ResourceID != nil {
		data["resource_id"] = e.ResourceID
	}
	if len(e.Changes) > 0 {
		data["changes"] = e.Changes
	}
	if e.State != "" {
		data["state"] = e.State
	}
	if e.District != "" {
		data["district"] = e.District
	}

	jsonData, _ := canonicalJSON(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// VerifyHash verifies the entry's hash
func (e *Entry) VerifyHash() bool {
	return e.Hash == e.ComputeHash()
}

// ListFilter defines filters for listing audit entries
type ListFilter struct {
	ActorID      *types.ID  `json:"actor_id,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   *types.ID  `json:"resource_id,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}

// Audit actions
const (
	// Claims
	ActionClaimSubmitted     = "claim.submitted"
	ActionClaimViewed        = "claim.viewed"
	ActionClaimStatusChanged = "claim.status_changed"
	ActionClaimApproved      = "claim.approved"
	ActionClaimRejected      = "claim.rejected"

	// Legacy records
	ActionLegacyUploaded = "legacy.uploaded"
	ActionLegacyDecided  = "legacy.decided"

	// Access control
	ActionAccessDenied = "access.denied"
)
