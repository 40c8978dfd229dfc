package audit

import (
	"context"
	"testing"

	"github.com/fra-atlas/platform/internal/shared/types"
)

func TestEntryHashDeterministic(t *testing.T) {
	actorID := types.NewID()
	resourceID := types.NewID()

	entry := NewEntry(actorID, "district_tribal_welfare", ActionClaimSubmitted, "claim", &resourceID, map[string]any{
		"claim_type": "IFR",
		"district":   "Mayurbhanj",
	})
	entry.PrevHash = "abc123"

	first := entry.ComputeHash()
	second := entry.ComputeHash()

	if first != second {
		t.Errorf("Expected deterministic hash, got %s and %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64-char hex hash, got %d chars", len(first))
	}
}

func TestEntryHashChangesWithContent(t *testing.T) {
	actorID := types.NewID()

	entry := NewEntry(actorID, "beneficiary", ActionClaimViewed, "claim", nil, nil)
	entry.Hash = entry.ComputeHash()

	if !entry.VerifyHash() {
		t.Error("Expected untampered entry to verify")
	}

	entry.Action = ActionClaimApproved
	if entry.VerifyHash() {
		t.Error("Expected tampered entry to fail verification")
	}
}

func TestMemoryRepositoryChain(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	actorID := types.NewID()
	for i := 0; i < 5; i++ {
		entry := NewEntry(actorID, "state_authority", ActionClaimStatusChanged, "claim", nil, map[string]any{
			"index": i,
		})
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if repo.GetSequence() != 5 {
		t.Errorf("Expected sequence 5, got %d", repo.GetSequence())
	}

	result, err := repo.VerifyChain(ctx, 100, false)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected valid chain, got violations: %v", result.Violations)
	}
	if result.Checked != 5 {
		t.Errorf("Expected 5 entries checked, got %d", result.Checked)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	actorID := types.NewID()
	for i := 0; i < 3; i++ {
		entry := NewEntry(actorID, "admin", ActionLegacyDecided, "legacy_record", nil, nil)
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Tamper with the middle entry
	repo.entries[1].ActorRole = "beneficiary"

	result, err := repo.VerifyChain(ctx, 100, true)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if result.Valid {
		t.Error("Expected tampered chain to be invalid")
	}
	if result.ContentInvalid != 1 {
		t.Errorf("Expected 1 content violation, got %d", result.ContentInvalid)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	actor1 := types.NewID()
	actor2 := types.NewID()
	claimID := types.NewID()

	entries := []*Entry{
		NewEntry(actor1, "beneficiary", ActionClaimSubmitted, "claim", &claimID, nil),
		NewEntry(actor2, "state_authority", ActionClaimApproved, "claim", &claimID, nil),
		NewEntry(actor2, "state_authority", ActionLegacyDecided, "legacy_record", nil, nil),
	}
	for _, e := range entries {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		filter   ListFilter
		expected int
	}{
		{"by actor", ListFilter{ActorID: &actor2}, 2},
		{"by action", ListFilter{Action: ActionClaimSubmitted}, 1},
		{"by resource type", ListFilter{ResourceType: "claim"}, 2},
		{"by resource id", ListFilter{ResourceID: &claimID}, 2},
		{"no match", ListFilter{Action: ActionAccessDenied}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("Expected %d entries, got %d", tt.expected, len(got))
			}
			if total != tt.expected {
				t.Errorf("Expected total %d, got %d", tt.expected, total)
			}
		})
	}
}
