// Package accounts stores each user's subscription tier. Tiers are written by
// the billing collaborator and read once per batch start.
package accounts

import (
	"fmt"
	"time"
)

// Tier is a subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierFree, TierPremium:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

// Account is a user's subscription record. Users without a stored row are
// reported as free.
type Account struct {
	UserID    string    `json:"user_id"`
	Tier      Tier      `json:"tier"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetTierCommand carries a tier change from the billing webhook.
type SetTierCommand struct {
	Tier string `json:"tier"`
}
