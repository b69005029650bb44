package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/internal/images"
)

var _ batch.Remote = (*Client)(nil)

// Fetch downloads the bytes stored at ref.StoragePath. A body shorter than
// the advertised length is a payload error.
func (c *Client) Fetch(ctx context.Context, ref batch.ResourceRef) ([]byte, error) {
	path := "/images/blob/" + escapeKey(ref.StoragePath)

	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", batch.ErrPayload, ref.StoragePath, err)
	}
	if resp.ContentLength > 0 && int64(len(data)) != resp.ContentLength {
		return nil, fmt.Errorf("%w: read %d of %d bytes", batch.ErrPayload, len(data), resp.ContentLength)
	}
	return data, nil
}

// Delete removes the resource stored at ref.StoragePath.
func (c *Client) Delete(ctx context.Context, ref batch.ResourceRef) error {
	return c.call(ctx, http.MethodDelete, "/images/blob/"+escapeKey(ref.StoragePath), nil, nil, nil)
}

// Move reassigns ref to the destination collection.
func (c *Client) Move(ctx context.Context, ref batch.ResourceRef, destinationID string) error {
	path := "/images/" + url.PathEscape(ref.ID) + "/collection"
	cmd := images.MoveCommand{DestinationID: destinationID}
	return c.call(ctx, http.MethodPut, path, nil, cmd, nil)
}

// Archive marks ref as archived.
func (c *Client) Archive(ctx context.Context, ref batch.ResourceRef) error {
	path := "/images/" + url.PathEscape(ref.ID) + "/archive"
	return c.call(ctx, http.MethodPost, path, nil, nil, nil)
}
