package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/fra-atlas/platform/internal/auth"
	"github.com/fra-atlas/platform/internal/claim/domain"
	"github.com/fra-atlas/platform/internal/claim/infrastructure"
	apperrors "github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/policy"
	"github.com/fra-atlas/platform/internal/shared/types"
)

func newTestService(t *testing.T) (*domain.Service, *infrastructure.MemoryRepository) {
	t.Helper()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Millisecond)
	}

	repo := infrastructure.NewMemoryRepository()
	engine := policy.NewEngine(policy.DefaultCatalog())
	svc := domain.NewService(engine, repo, domain.NewNumberGenerator(clock), nil, clock)
	return svc, repo
}

func beneficiary() *auth.Principal {
	return &auth.Principal{ID: types.NewID(), Role: auth.RoleBeneficiary}
}

func districtOfficer(state, district string) *auth.Principal {
	return &auth.Principal{
		ID:       types.NewID(),
		Role:     auth.RoleDistrictTribalWelfare,
		State:    state,
		District: district,
	}
}

func stateAuthority(state string) *auth.Principal {
	return &auth.Principal{ID: types.NewID(), Role: auth.RoleStateAuthority, State: state}
}

func admin() *auth.Principal {
	return &auth.Principal{ID: types.NewID(), Role: auth.RoleAdmin}
}

func draftIn(state, district string) domain.Draft {
	return domain.Draft{
		Type:          domain.ClaimTypeIFR,
		ApplicantName: "Budhan Soren",
		District:      district,
		State:         state,
		Area:          1.2,
	}
}

func TestSubmitCreatesClaim(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p := beneficiary()

	claim, err := svc.Submit(ctx, p, draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if claim.Status != domain.ClaimStatusSubmitted {
		t.Errorf("Expected status submitted, got %s", claim.Status)
	}
	if claim.SubmittedBy != p.ID {
		t.Error("Expected SubmittedBy to be the submitting principal")
	}
	if claim.ClaimNumber == "" {
		t.Error("Expected a generated claim number")
	}
}

func TestSubmitRequiresPermission(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// mota_technical is read-only and cannot create own_claims
	p := &auth.Principal{ID: types.NewID(), Role: auth.RoleMoTATechnical}
	_, err := svc.Submit(ctx, p, draftIn("Odisha", "Mayurbhanj"))
	if !apperrors.IsForbidden(err) {
		t.Errorf("Expected Forbidden, got %v", err)
	}

	claims, _ := repo.List(ctx, domain.ListFilter{})
	if len(claims) != 0 {
		t.Errorf("Expected no claims after denied submit, got %d", len(claims))
	}
}

func TestSubmitValidatesDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	draft := draftIn("Odisha", "Mayurbhanj")
	draft.Area = -3
	_, err := svc.Submit(ctx, beneficiary(), draft)
	if !apperrors.IsValidation(err) {
		t.Errorf("Expected ValidationError for negative area, got %v", err)
	}
}

func TestDuplicateClaimNumberIsConflict(t *testing.T) {
	// Two service instances over one store model separate processes whose
	// generators cannot coordinate; the store's unique index on
	// claim_number surfaces the collision as Conflict.
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	frozen := func() time.Time { return base }

	repo := infrastructure.NewMemoryRepository()
	engine := policy.NewEngine(policy.DefaultCatalog())
	svcA := domain.NewService(engine, repo, domain.NewNumberGenerator(frozen), nil, frozen)
	svcB := domain.NewService(engine, repo, domain.NewNumberGenerator(frozen), nil, frozen)

	ctx := context.Background()
	if _, err := svcA.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj")); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	_, err := svcB.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if !apperrors.IsConflict(err) {
		t.Errorf("Expected Conflict for colliding claim number, got %v", err)
	}
}

func TestTrackMasksForbiddenAsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := beneficiary()
	claim, err := svc.Submit(ctx, owner, draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Another beneficiary probing someone else's claim number
	other := beneficiary()
	_, err = svc.Track(ctx, other, claim.ClaimNumber)
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected NotFound for foreign claim, got %v", err)
	}
	if apperrors.IsForbidden(err) {
		t.Error("Forbidden must never leak through Track")
	}

	// A genuinely absent number reads identically
	_, absentErr := svc.Track(ctx, other, "FRA-ODMAY-000")
	if !apperrors.IsNotFound(absentErr) {
		t.Errorf("Expected NotFound for absent claim, got %v", absentErr)
	}
}

func TestTrackOwnClaim(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := beneficiary()
	claim, err := svc.Submit(ctx, owner, draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got, err := svc.Track(ctx, owner, claim.ClaimNumber)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if got.ID != claim.ID {
		t.Error("Expected to track own claim")
	}
}

func TestListForReviewScopedToDistrict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Khordha")); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	officer := districtOfficer("Odisha", "Mayurbhanj")
	claims, err := svc.ListForReview(ctx, officer, domain.ListFilter{})
	if err != nil {
		t.Fatalf("ListForReview failed: %v", err)
	}

	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim in district, got %d", len(claims))
	}
	if claims[0].District != "Mayurbhanj" {
		t.Errorf("Expected only Mayurbhanj claims, got %s", claims[0].District)
	}
}

func TestListForReviewOrderedBySubmissionDesc(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	claims, err := svc.ListForReview(ctx, districtOfficer("Odisha", "Mayurbhanj"), domain.ListFilter{})
	if err != nil {
		t.Fatalf("ListForReview failed: %v", err)
	}

	if len(claims) != 2 {
		t.Fatalf("Expected 2 claims, got %d", len(claims))
	}
	if claims[0].ID != second.ID || claims[1].ID != first.ID {
		t.Error("Expected newest submission first")
	}
}

func TestTransitionByDistrictOfficer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	officer := districtOfficer("Odisha", "Mayurbhanj")
	updated, err := svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusUnderReview, "taking up for review")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	if updated.Status != domain.ClaimStatusUnderReview {
		t.Errorf("Expected under_review, got %s", updated.Status)
	}
	if updated.ReviewedBy == nil || *updated.ReviewedBy != officer.ID {
		t.Error("Expected ReviewedBy set to officer")
	}
}

func TestTransitionOutOfJurisdiction(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Khordha"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	officer := districtOfficer("Odisha", "Mayurbhanj")
	_, err = svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusUnderReview, "")
	if !apperrors.IsForbidden(err) {
		t.Errorf("Expected Forbidden for out-of-district transition, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, claim.ID)
	if stored.Status != domain.ClaimStatusSubmitted {
		t.Errorf("Expected no mutation after denial, got status %s", stored.Status)
	}
}

func TestDistrictOfficerCannotApprove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	officer := districtOfficer("Odisha", "Mayurbhanj")
	if _, err := svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusUnderReview, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	_, err = svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusApproved, "")
	if !apperrors.IsForbidden(err) {
		t.Errorf("Expected Forbidden, district officers lack GIS validation authority, got %v", err)
	}
}

func TestStateAuthorityApproves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	authority := stateAuthority("Odisha")
	steps := []domain.ClaimStatus{
		domain.ClaimStatusUnderReview,
		domain.ClaimStatusDigitized,
		domain.ClaimStatusPendingGIS,
		domain.ClaimStatusApproved,
	}
	for _, status := range steps {
		if _, err := svc.Transition(ctx, authority, claim.ID, status, ""); err != nil {
			t.Fatalf("Transition to %s failed: %v", status, err)
		}
	}

	final, err := svc.Track(ctx, authority, claim.ClaimNumber)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if final.Status != domain.ClaimStatusApproved {
		t.Errorf("Expected approved, got %s", final.Status)
	}
	if final.ApprovedBy == nil || *final.ApprovedBy != authority.ID {
		t.Error("Expected ApprovedBy set to the approving authority")
	}
}

func TestTerminalImmutableEvenForAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	root := admin()
	if _, err := svc.Transition(ctx, root, claim.ID, domain.ClaimStatusUnderReview, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := svc.Transition(ctx, root, claim.ID, domain.ClaimStatusApproved, ""); err != nil {
		t.Fatalf("Approval failed: %v", err)
	}

	_, err = svc.Transition(ctx, root, claim.ID, domain.ClaimStatusUnderReview, "reopen")
	if !apperrors.IsInvalidTransition(err) {
		t.Errorf("Expected InvalidTransition on terminal claim even for admin, got %v", err)
	}
}

func TestTransitionHistoryRecorded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, beneficiary(), draftIn("Odisha", "Mayurbhanj"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	officer := districtOfficer("Odisha", "Mayurbhanj")
	if _, err := svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusUnderReview, "first look"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := svc.Transition(ctx, officer, claim.ID, domain.ClaimStatusDigitized, "records entered"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	history, err := svc.History(ctx, officer, claim.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history events, got %d", len(history))
	}
	if history[0].ToStatus != domain.ClaimStatusUnderReview {
		t.Errorf("Expected first event to under_review, got %s", history[0].ToStatus)
	}
	if history[1].Comment != "records entered" {
		t.Errorf("Expected comment preserved, got %q", history[1].Comment)
	}
}
