package accounts

import "context"

// System defines the public contract for account operations.
type System interface {
	Handler(webhookSecret string) *Handler

	// Find returns the stored account, or a free account when none exists.
	Find(ctx context.Context, userID string) (*Account, error)
	SetTier(ctx context.Context, userID string, tier Tier) (*Account, error)
}
