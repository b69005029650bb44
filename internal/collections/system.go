package collections

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/pkg/pagination"
)

// System defines the public contract for collection operations. Every call
// is scoped to the owning user.
type System interface {
	Handler() *Handler

	List(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResult[Collection], error)
	Find(ctx context.Context, userID string, id uuid.UUID) (*Collection, error)
	Create(ctx context.Context, userID string, cmd CreateCommand) (*Collection, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}
