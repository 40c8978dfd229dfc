package audit

import (
	"context"
	"log"

	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/shared/metrics"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// Service records audit entries for platform operations
type Service struct {
	repo Repository
}

// NewService creates an audit service backed by the given repository
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an audit entry for an action taken by a principal.
// Audit failures are logged but never fail the originating operation.
func (s *Service) Record(ctx context.Context, p *auth.Principal, action, resourceType string, resourceID *types.ID, changes map[string]any) {
	if s == nil || s.repo == nil {
		return
	}

	var actorID types.ID
	var actorRole string
	if p != nil {
		actorID = p.ID
		actorRole = string(p.Role)
	}

	entry := NewEntry(actorID, actorRole, action, resourceType, resourceID, changes)

	if err := s.repo.Append(ctx, entry); err != nil {
		log.Printf("audit append failed for action %s: %v", action, err)
		return
	}

	metrics.RecordAuditEntry()
}

// Repository exposes the underlying repository for read endpoints
func (s *Service) Repository() Repository {
	return s.repo
}
