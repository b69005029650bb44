// Package collections manages the named groups that images can be moved into.
package collections

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a user-owned group of images.
type Collection struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommand carries the data needed to create a collection.
type CreateCommand struct {
	Name string `json:"name"`
}
