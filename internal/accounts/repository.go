package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/microtravel/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New creates an account repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "accounts"),
		now:    time.Now,
	}
}

func (r *repo) Handler(webhookSecret string) *Handler {
	return NewHandler(r, r.logger, webhookSecret)
}

func (r *repo) Find(ctx context.Context, userID string) (*Account, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}

	a, err := repository.QueryOne(
		ctx, r.db,
		"SELECT user_id, tier, updated_at FROM accounts WHERE user_id = $1",
		[]any{userID},
		scanAccount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &Account{UserID: userID, Tier: TierFree, UpdatedAt: r.now().UTC()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (r *repo) SetTier(ctx context.Context, userID string, tier Tier) (*Account, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	if _, err := ParseTier(string(tier)); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO accounts(user_id, tier)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier, updated_at = now()
		RETURNING user_id, tier, updated_at`

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Account, error) {
		return repository.QueryOne(ctx, tx, q, []any{userID, string(tier)}, scanAccount)
	})
	if err != nil {
		return nil, fmt.Errorf("set tier: %w", err)
	}

	r.logger.Info("account tier updated", "user_id", userID, "tier", tier)
	return &a, nil
}

func scanAccount(s repository.Scanner) (Account, error) {
	var a Account
	var tier string
	if err := s.Scan(&a.UserID, &tier, &a.UpdatedAt); err != nil {
		return a, err
	}
	a.Tier = Tier(tier)
	return a, nil
}
