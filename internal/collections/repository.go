package collections

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/pkg/pagination"
	"github.com/JaimeStill/microtravel/pkg/query"
	"github.com/JaimeStill/microtravel/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a collection repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "collections"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResult[Collection], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("user_id", userID).
		WhereSearch(page.Search, "name")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count collections: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCollection)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, userID string, id uuid.UUID) (*Collection, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("id", id).
		WhereEquals("user_id", userID).
		BuildSingleOrNull()

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCollection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, userID string, cmd CreateCommand) (*Collection, error) {
	name, err := normalizeName(cmd.Name)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO collections(id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, name, created_at`

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Collection, error) {
		return repository.QueryOne(ctx, tx, q, []any{uuid.New(), userID, name}, scanCollection)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("collection created", "id", c.ID, "name", c.Name)
	return &c, nil
}

// Delete removes the collection. Member images become unassigned through the
// ON DELETE SET NULL foreign key.
func (r *repo) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM collections WHERE id = $1 AND user_id = $2",
			id, userID,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("collection deleted", "id", id)
	return nil
}
