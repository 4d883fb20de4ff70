package enums

import (
	"fmt"
	"strings"
)

// Tier is the entitlement level gating quota enforcement.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPaid:
		return true
	}
	return false
}

func (t Tier) String() string {
	return string(t)
}

// ParseTier normalizes and validates a tier string.
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !tier.IsValid() {
		return "", fmt.Errorf("invalid tier %q", raw)
	}
	return tier, nil
}
