package images

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/pkg/query"
	"github.com/JaimeStill/microtravel/pkg/repository"
)

const columns = "id, user_id, collection_id, filename, content_type, size_bytes, storage_key, archived_at, uploaded_at, updated_at"

var projection = query.
	NewProjectionMap("public", "images", "i").
	Project("id", "id").
	Project("user_id", "user_id").
	Project("collection_id", "collection_id").
	Project("filename", "filename").
	Project("content_type", "content_type").
	Project("size_bytes", "size_bytes").
	Project("storage_key", "storage_key").
	Project("archived_at", "archived_at").
	Project("uploaded_at", "uploaded_at").
	Project("updated_at", "updated_at")

var defaultSort = query.SortField{
	Field:      "uploaded_at",
	Descending: true,
}

// Filters contains optional filtering criteria for image queries.
// Collection accepts a collection id or Unassigned. Filename uses
// case-insensitive contains matching.
type Filters struct {
	Collection  *string `json:"collection,omitempty"`
	Archived    *bool   `json:"archived,omitempty"`
	Filename    *string `json:"filename,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.Collection != nil {
		if *f.Collection == Unassigned {
			b.WhereNullable("collection_id", nil)
		} else if id, err := uuid.Parse(*f.Collection); err == nil {
			b.WhereEquals("collection_id", id)
		}
	}

	return b.
		WherePresent("archived_at", f.Archived).
		WhereContains("filename", f.Filename).
		WhereEquals("content_type", f.ContentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("collection"); c != "" {
		f.Collection = &c
	}

	if a := values.Get("archived"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Archived = &v
		}
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

// keyPrefix is the storage namespace owned by userID.
func keyPrefix(userID string) string {
	return "images/" + url.PathEscape(userID) + "/"
}

func buildStorageKey(userID string, id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s%s/%s", keyPrefix(userID), id, filename)
}

func ownsKey(userID, key string) bool {
	return strings.HasPrefix(key, keyPrefix(userID)) && !strings.Contains(key, "..")
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return url.PathEscape(name)
}

// parseDestination maps a move destination to a nullable collection id.
func parseDestination(destination string) (*uuid.UUID, error) {
	destination = strings.TrimSpace(destination)
	if destination == Unassigned {
		return nil, nil
	}
	id, err := uuid.Parse(destination)
	if err != nil {
		return nil, ErrInvalidDestination
	}
	return &id, nil
}

func scanImage(s repository.Scanner) (Image, error) {
	var i Image
	err := s.Scan(
		&i.ID,
		&i.UserID,
		&i.CollectionID,
		&i.Filename,
		&i.ContentType,
		&i.SizeBytes,
		&i.StorageKey,
		&i.ArchivedAt,
		&i.UploadedAt,
		&i.UpdatedAt,
	)
	return i, err
}
