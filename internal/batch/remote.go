package batch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/internal/images"
	"github.com/JaimeStill/microtravel/pkg/storage"
)

type imageRemote struct {
	images images.System
	userID string
}

// NewImageRemote returns a Remote that applies operations to userID's images
// in-process.
func NewImageRemote(sys images.System, userID string) Remote {
	return &imageRemote{images: sys, userID: userID}
}

func (r *imageRemote) Fetch(ctx context.Context, ref ResourceRef) ([]byte, error) {
	blob, err := r.images.Fetch(ctx, r.userID, ref.StoragePath)
	if err != nil {
		return nil, mark(err)
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if blob.ContentLength > 0 && int64(len(data)) != blob.ContentLength {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrPayload, len(data), blob.ContentLength)
	}
	return data, nil
}

func (r *imageRemote) Delete(ctx context.Context, ref ResourceRef) error {
	return mark(r.images.DeleteByKey(ctx, r.userID, ref.StoragePath))
}

func (r *imageRemote) Move(ctx context.Context, ref ResourceRef, destinationID string) error {
	id, err := uuid.Parse(ref.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, images.ErrInvalidID)
	}
	_, err = r.images.Move(ctx, r.userID, id, destinationID)
	return mark(err)
}

func (r *imageRemote) Archive(ctx context.Context, ref ResourceRef) error {
	id, err := uuid.Parse(ref.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, images.ErrInvalidID)
	}
	_, err = r.images.Archive(ctx, r.userID, id)
	return mark(err)
}

// mark tags err with the failure kind the coordinator reports.
func mark(err error) error {
	switch {
	case err == nil:
		return nil
	case images.IsClientError(err), errors.Is(err, storage.ErrRejected):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// RefFromImage describes img as a batch resource.
func RefFromImage(img images.Image) ResourceRef {
	return ResourceRef{
		ID:          img.ID.String(),
		StoragePath: img.StorageKey,
		DisplayName: img.Filename,
		SizeBytes:   img.SizeBytes,
	}
}
