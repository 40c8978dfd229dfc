// Package archive integrates the state digitization centres' archive
// system, where the OCR/NER pipeline runs against uploaded scans. The
// adapter polls the archive database and drives legacy records through
// their extraction lifecycle.
package archive

import (
	"context"
	"time"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// JobStatus is the extraction job state as reported by the archive system
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one extraction job row in the archive database
type Job struct {
	ID            string    `json:"id"`
	RecordID      types.ID  `json:"record_id"`
	Status        JobStatus `json:"status"`
	ResultPayload []byte    `json:"result_payload,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	LastModified  time.Time `json:"last_modified"`
}

// Adapter is the contract for archive system integrations
type Adapter interface {
	// Start opens the connection and begins polling for job updates
	Start(ctx context.Context) error

	// Stop halts polling and closes the connection
	Stop(ctx context.Context) error

	// Health checks archive database connectivity
	Health(ctx context.Context) error

	// IsConnected reports connection status
	IsConnected() bool

	// SourceSystem returns the archive system name
	SourceSystem() string
}
