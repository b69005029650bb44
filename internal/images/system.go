package images

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/pkg/pagination"
	"github.com/JaimeStill/microtravel/pkg/storage"
)

// System defines the public contract for image operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(ctx context.Context, userID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Image], error)
	Find(ctx context.Context, userID string, id uuid.UUID) (*Image, error)
	// Resolve returns the images for ids in the order given. Any id that is
	// malformed or not owned by userID fails the whole call with ErrNotFound.
	Resolve(ctx context.Context, userID string, ids []string) ([]Image, error)
	Create(ctx context.Context, userID string, cmd CreateCommand) (*Image, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error

	// Fetch opens the blob at key. The caller must close Body.
	Fetch(ctx context.Context, userID string, key string) (*storage.Blob, error)
	// DeleteByKey removes the image stored at key. Deleting an image that
	// is already gone succeeds.
	DeleteByKey(ctx context.Context, userID string, key string) error
	Move(ctx context.Context, userID string, id uuid.UUID, destination string) (*Image, error)
	Archive(ctx context.Context, userID string, id uuid.UUID) (*Image, error)
}
