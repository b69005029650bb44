// Package images implements the image domain for MicroTravel. Image records
// live in Postgres and their bytes in blob storage; every operation is scoped
// to the owning user.
package images

import (
	"time"

	"github.com/google/uuid"
)

// Unassigned is the move destination that removes an image from its collection.
const Unassigned = "unassigned"

// Image is an uploaded image with its metadata and blob storage reference.
type Image struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"user_id"`
	CollectionID *uuid.UUID `json:"collection_id"`
	Filename     string     `json:"filename"`
	ContentType  string     `json:"content_type"`
	SizeBytes    int64      `json:"size_bytes"`
	StorageKey   string     `json:"storage_key"`
	ArchivedAt   *time.Time `json:"archived_at"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Archived reports whether the image carries the archived flag.
func (i Image) Archived() bool {
	return i.ArchivedAt != nil
}

// CreateCommand carries the data needed to upload and register a new image.
type CreateCommand struct {
	Data         []byte
	Filename     string
	ContentType  string
	CollectionID *uuid.UUID
}

// MoveCommand is the body of a collection reassignment request.
// DestinationID is a collection id or Unassigned.
type MoveCommand struct {
	DestinationID string `json:"destination_id"`
}
