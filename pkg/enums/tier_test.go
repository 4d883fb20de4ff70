package enums

import "testing"

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Paid ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tier != TierPaid {
		t.Fatalf("expected paid, got %s", tier)
	}

	if _, err := ParseTier("premium"); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestTierIsValid(t *testing.T) {
	if !TierFree.IsValid() || !TierPaid.IsValid() {
		t.Fatalf("known tiers should be valid")
	}
	if Tier("gold").IsValid() {
		t.Fatalf("unknown tier should be invalid")
	}
}
