package images

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/pkg/pagination"
	"github.com/JaimeStill/microtravel/pkg/query"
	"github.com/JaimeStill/microtravel/pkg/repository"
	"github.com/JaimeStill/microtravel/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an image repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "images"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	userID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Image], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("user_id", userID).
		WhereSearch(page.Search, "filename", "content_type")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanImage)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, userID string, id uuid.UUID) (*Image, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("id", id).
		WhereEquals("user_id", userID).
		BuildSingleOrNull()

	img, err := repository.QueryOne(ctx, r.db, q, args, scanImage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &img, nil
}

func (r *repo) Resolve(ctx context.Context, userID string, ids []string) ([]Image, error) {
	if len(ids) == 0 {
		return []Image{}, nil
	}

	canonical := make([]string, len(ids))
	for i, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, raw)
		}
		canonical[i] = id.String()
	}

	q, args := query.
		NewBuilder(projection).
		WhereEquals("user_id", userID).
		WhereAny("id", canonical).
		Build()

	found, err := repository.QueryMany(ctx, r.db, q, args, scanImage)
	if err != nil {
		return nil, fmt.Errorf("resolve images: %w", err)
	}

	byID := make(map[string]Image, len(found))
	for _, img := range found {
		byID[img.ID.String()] = img
	}

	ordered := make([]Image, len(canonical))
	for i, id := range canonical {
		img, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		ordered[i] = img
	}
	return ordered, nil
}

func (r *repo) Create(ctx context.Context, userID string, cmd CreateCommand) (*Image, error) {
	if len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}

	id := uuid.New()
	key := buildStorageKey(userID, id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload image blob: %w", err)
	}

	q := `
		INSERT INTO images(id, user_id, collection_id, filename, content_type, size_bytes, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + columns

	insertArgs := []any{
		id,
		userID,
		cmd.CollectionID,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		key,
	}

	img, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Image, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanImage)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		err = repository.MapForeignKey(err, ErrCollectionNotFound)
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("image created", "id", img.ID, "filename", img.Filename)
	return &img, nil
}

func (r *repo) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	img, err := r.Find(ctx, userID, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM images WHERE id = $1 AND user_id = $2",
			id, userID,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.removeBlob(ctx, img.StorageKey)

	r.logger.Info("image deleted", "id", id)
	return nil
}

func (r *repo) Fetch(ctx context.Context, userID string, key string) (*storage.Blob, error) {
	if !ownsKey(userID, key) {
		return nil, ErrForbiddenKey
	}

	blob, err := r.storage.Download(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch image blob: %w", err)
	}
	return blob, nil
}

func (r *repo) DeleteByKey(ctx context.Context, userID string, key string) error {
	if !ownsKey(userID, key) {
		return ErrForbiddenKey
	}

	n, err := repository.ExecAffected(
		ctx, r.db,
		"DELETE FROM images WHERE storage_key = $1 AND user_id = $2",
		key, userID,
	)
	if err != nil {
		return fmt.Errorf("delete image row: %w", err)
	}

	if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete image blob: %w", err)
	}

	if n == 0 {
		r.logger.Debug("image already deleted", "key", key)
		return nil
	}

	r.logger.Info("image deleted", "key", key)
	return nil
}

func (r *repo) Move(ctx context.Context, userID string, id uuid.UUID, destination string) (*Image, error) {
	collectionID, err := parseDestination(destination)
	if err != nil {
		return nil, err
	}

	q := `
		UPDATE images SET collection_id = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
		RETURNING ` + columns

	img, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Image, error) {
		if collectionID != nil {
			var exists bool
			err := tx.QueryRowContext(
				ctx,
				"SELECT EXISTS(SELECT 1 FROM collections WHERE id = $1 AND user_id = $2)",
				*collectionID, userID,
			).Scan(&exists)
			if err != nil {
				return Image{}, err
			}
			if !exists {
				return Image{}, ErrCollectionNotFound
			}
		}
		return repository.QueryOne(ctx, tx, q, []any{collectionID, id, userID}, scanImage)
	})
	if err != nil {
		err = repository.MapForeignKey(err, ErrCollectionNotFound)
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("image moved", "id", id, "destination", destination)
	return &img, nil
}

func (r *repo) Archive(ctx context.Context, userID string, id uuid.UUID) (*Image, error) {
	q := `
		UPDATE images SET archived_at = COALESCE(archived_at, now()), updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + columns

	img, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Image, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, userID}, scanImage)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("image archived", "id", id)
	return &img, nil
}

func (r *repo) removeBlob(ctx context.Context, key string) {
	if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("blob delete failed after DB delete", "key", key, "error", err)
	}
}
