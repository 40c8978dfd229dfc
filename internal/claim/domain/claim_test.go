package domain

import (
	"testing"
	"time"

	apperrors "github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

func testDraft() Draft {
	return Draft{
		Type:          ClaimTypeIFR,
		ApplicantName: "Sita Murmu",
		Village:       "Badampahar",
		Block:         "Bijatala",
		District:      "Mayurbhanj",
		State:         "Odisha",
		Area:          2.5,
	}
}

func TestDraftValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Draft)
		wantErr bool
	}{
		{"valid draft", func(d *Draft) {}, false},
		{"negative area", func(d *Draft) { d.Area = -1 }, true},
		{"unknown claim type", func(d *Draft) { d.Type = "GRAZING" }, true},
		{"missing applicant", func(d *Draft) { d.ApplicantName = "" }, true},
		{"missing state", func(d *Draft) { d.State = "" }, true},
		{"missing district", func(d *Draft) { d.District = "" }, true},
		{"zero area is fine", func(d *Draft) { d.Area = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := testDraft()
			tt.mutate(&draft)
			err := draft.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestTransitionRules(t *testing.T) {
	tests := []struct {
		name    string
		from    ClaimStatus
		to      ClaimStatus
		allowed bool
	}{
		{"submitted to under_review", ClaimStatusSubmitted, ClaimStatusUnderReview, true},
		{"submitted to rejected", ClaimStatusSubmitted, ClaimStatusRejected, true},
		{"submitted to approved skips review", ClaimStatusSubmitted, ClaimStatusApproved, false},
		{"under_review to digitized", ClaimStatusUnderReview, ClaimStatusDigitized, true},
		{"under_review to approved", ClaimStatusUnderReview, ClaimStatusApproved, true},
		{"digitized to pending_gis", ClaimStatusDigitized, ClaimStatusPendingGIS, true},
		{"digitized to approved skips gis", ClaimStatusDigitized, ClaimStatusApproved, false},
		{"pending_gis to approved", ClaimStatusPendingGIS, ClaimStatusApproved, true},
		{"pending_gis to rejected", ClaimStatusPendingGIS, ClaimStatusRejected, true},
		{"approved is terminal", ClaimStatusApproved, ClaimStatusUnderReview, false},
		{"rejected is terminal", ClaimStatusRejected, ClaimStatusSubmitted, false},
		{"backwards from review", ClaimStatusUnderReview, ClaimStatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.allowed {
				t.Errorf("Expected CanTransition(%s, %s) = %v, got %v", tt.from, tt.to, tt.allowed, got)
			}
		})
	}
}

func TestTransitionMutatesAtomically(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	actor := types.NewID()

	claim, err := NewClaim(testDraft(), "FRA-ODMAY-100", types.NewID(), now)
	if err != nil {
		t.Fatalf("NewClaim failed: %v", err)
	}

	later := now.Add(time.Hour)
	if err := claim.Transition(ClaimStatusUnderReview, actor, "district_tribal_welfare", "taking up", later); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	if claim.Status != ClaimStatusUnderReview {
		t.Errorf("Expected status under_review, got %s", claim.Status)
	}
	if claim.ReviewedBy == nil || *claim.ReviewedBy != actor {
		t.Error("Expected ReviewedBy to be set to the actor")
	}
	if claim.ApprovedBy != nil {
		t.Error("Expected ApprovedBy to remain unset for non-approval transitions")
	}
	if !claim.LastUpdated.Equal(later) {
		t.Errorf("Expected LastUpdated %v, got %v", later, claim.LastUpdated)
	}
	if len(claim.Events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(claim.Events))
	}
	ev := claim.Events[0]
	if ev.FromStatus != ClaimStatusSubmitted || ev.ToStatus != ClaimStatusUnderReview {
		t.Errorf("Expected event submitted->under_review, got %s->%s", ev.FromStatus, ev.ToStatus)
	}
}

func TestApprovalSetsApprovedBy(t *testing.T) {
	now := time.Now()
	actor := types.NewID()

	claim, err := NewClaim(testDraft(), "FRA-ODMAY-101", types.NewID(), now)
	if err != nil {
		t.Fatalf("NewClaim failed: %v", err)
	}
	claim.Status = ClaimStatusPendingGIS

	if err := claim.Transition(ClaimStatusApproved, actor, "state_authority", "validated", now); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if claim.ApprovedBy == nil || *claim.ApprovedBy != actor {
		t.Error("Expected ApprovedBy set on approval")
	}
}

func TestTerminalStatesImmutable(t *testing.T) {
	now := time.Now()
	actor := types.NewID()

	for _, terminal := range []ClaimStatus{ClaimStatusApproved, ClaimStatusRejected} {
		claim, err := NewClaim(testDraft(), "FRA-ODMAY-102", types.NewID(), now)
		if err != nil {
			t.Fatalf("NewClaim failed: %v", err)
		}
		claim.Status = terminal

		for _, target := range ClaimStatuses {
			err := claim.Transition(target, actor, "admin", "", now)
			if !apperrors.IsInvalidTransition(err) {
				t.Errorf("Expected InvalidTransition from %s to %s, got %v", terminal, target, err)
			}
			if claim.Status != terminal {
				t.Errorf("Expected status unchanged (%s), got %s", terminal, claim.Status)
			}
		}
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	now := time.Now()
	claim, err := NewClaim(testDraft(), "FRA-ODMAY-103", types.NewID(), now)
	if err != nil {
		t.Fatalf("NewClaim failed: %v", err)
	}

	err = claim.Transition("archived", types.NewID(), "admin", "", now)
	if !apperrors.IsValidation(err) {
		t.Errorf("Expected ValidationError for unknown status, got %v", err)
	}
	if claim.Status != ClaimStatusSubmitted {
		t.Errorf("Expected status unchanged, got %s", claim.Status)
	}
}
