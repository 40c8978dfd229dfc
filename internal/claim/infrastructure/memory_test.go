package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/fra-atlas/platform/internal/claim/domain"
	apperrors "github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

func storedClaim(t *testing.T, repo *MemoryRepository, number string) *domain.Claim {
	t.Helper()

	claim, err := domain.NewClaim(domain.Draft{
		Type:          domain.ClaimTypeIFR,
		ApplicantName: "Lakshmi Hembram",
		District:      "Mayurbhanj",
		State:         "Odisha",
		Area:          0.8,
	}, number, types.NewID(), time.Now())
	if err != nil {
		t.Fatalf("NewClaim failed: %v", err)
	}
	if err := repo.Create(context.Background(), claim); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return claim
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	repo := NewMemoryRepository()
	storedClaim(t, repo, "FRA-ODMAY-1")

	dup, err := domain.NewClaim(domain.Draft{
		Type:          domain.ClaimTypeCFR,
		ApplicantName: "Gram Sabha Badampahar",
		District:      "Mayurbhanj",
		State:         "Odisha",
		Area:          40,
	}, "FRA-ODMAY-1", types.NewID(), time.Now())
	if err != nil {
		t.Fatalf("NewClaim failed: %v", err)
	}

	if err := repo.Create(context.Background(), dup); !apperrors.IsConflict(err) {
		t.Errorf("Expected Conflict for duplicate claim number, got %v", err)
	}
}

func TestUpdateStatusConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	claim := storedClaim(t, repo, "FRA-ODMAY-2")

	// Two racing readers both load status=submitted
	first, _ := repo.FindByID(ctx, claim.ID)
	second, _ := repo.FindByID(ctx, claim.ID)

	actor := types.NewID()
	now := time.Now()

	if err := first.Transition(domain.ClaimStatusUnderReview, actor, "district_tribal_welfare", "", now); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, first, domain.ClaimStatusSubmitted); err != nil {
		t.Fatalf("First UpdateStatus failed: %v", err)
	}

	// The second writer's guard was evaluated against a stale status
	if err := second.Transition(domain.ClaimStatusRejected, actor, "district_tribal_welfare", "", now); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	err := repo.UpdateStatus(ctx, second, domain.ClaimStatusSubmitted)
	if !apperrors.IsConflict(err) {
		t.Errorf("Expected Conflict for stale conditional update, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, claim.ID)
	if stored.Status != domain.ClaimStatusUnderReview {
		t.Errorf("Expected winning status under_review, got %s", stored.Status)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a := storedClaim(t, repo, "FRA-ODMAY-3")
	storedClaim(t, repo, "FRA-ODMAY-4")

	submitted := domain.ClaimStatusSubmitted
	tests := []struct {
		name     string
		filter   domain.ListFilter
		expected int
	}{
		{"all", domain.ListFilter{}, 2},
		{"by district", domain.ListFilter{District: "Mayurbhanj"}, 2},
		{"wrong district", domain.ListFilter{District: "Khordha"}, 0},
		{"by status", domain.ListFilter{Status: &submitted}, 2},
		{"by submitter", domain.ListFilter{SubmittedBy: &a.SubmittedBy}, 1},
		{"limit", domain.ListFilter{Limit: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("Expected %d claims, got %d", tt.expected, len(got))
			}
		})
	}
}
