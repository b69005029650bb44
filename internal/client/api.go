package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/JaimeStill/microtravel/internal/accounts"
	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/internal/images"
	"github.com/JaimeStill/microtravel/pkg/archive"
	"github.com/JaimeStill/microtravel/pkg/pagination"
)

// Images lists the caller's images. query carries pagination and filter
// parameters as accepted by GET /images.
func (c *Client) Images(ctx context.Context, query url.Values) (*pagination.PageResult[images.Image], error) {
	var page pagination.PageResult[images.Image]
	if err := c.call(ctx, http.MethodGet, "/images", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Image fetches one image record.
func (c *Client) Image(ctx context.Context, id string) (*images.Image, error) {
	var img images.Image
	if err := c.call(ctx, http.MethodGet, "/images/"+url.PathEscape(id), nil, nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Resolve turns image ids into batch resources in the order given. An id the
// API does not return for the caller makes the whole selection invalid.
func (c *Client) Resolve(ctx context.Context, ids []string) ([]batch.ResourceRef, error) {
	refs := make([]batch.ResourceRef, 0, len(ids))
	for _, id := range ids {
		img, err := c.Image(ctx, id)
		if err != nil {
			if code := StatusCode(err); code == http.StatusNotFound || code == http.StatusBadRequest {
				return nil, fmt.Errorf("%w: %s: %w", batch.ErrInvalidSelection, id, err)
			}
			return nil, err
		}
		refs = append(refs, batch.RefFromImage(*img))
	}
	return refs, nil
}

// Account returns the caller's subscription record.
func (c *Client) Account(ctx context.Context) (*accounts.Account, error) {
	var acct accounts.Account
	if err := c.call(ctx, http.MethodGet, "/accounts/me", nil, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// StartBatch starts a server-side batch and returns its initial progress.
func (c *Client) StartBatch(ctx context.Context, cmd batch.StartCommand) (*batch.Progress, error) {
	var progress batch.Progress
	if err := c.call(ctx, http.MethodPost, "/batches", nil, cmd, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Batch returns the progress and, once finished, the report of a batch.
func (c *Client) Batch(ctx context.Context, id string) (*batch.Snapshot, error) {
	var snapshot batch.Snapshot
	if err := c.call(ctx, http.MethodGet, "/batches/"+url.PathEscape(id), nil, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Batches lists the caller's retained batches, newest first.
func (c *Client) Batches(ctx context.Context) ([]batch.Snapshot, error) {
	var snapshots []batch.Snapshot
	if err := c.call(ctx, http.MethodGet, "/batches", nil, nil, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CancelBatch asks a running batch to stop after its current item.
func (c *Client) CancelBatch(ctx context.Context, id string) (*batch.Progress, error) {
	var progress batch.Progress
	path := "/batches/" + url.PathEscape(id) + "/cancel"
	if err := c.call(ctx, http.MethodPost, path, nil, nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// BatchArchive downloads the zip produced by a finished download batch.
// The artifact name comes from Content-Disposition.
func (c *Client) BatchArchive(ctx context.Context, id string) (*archive.Artifact, error) {
	resp, err := c.do(ctx, http.MethodGet, "/batches/"+url.PathEscape(id)+"/archive", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %w", batch.ErrPayload, err)
	}

	name, err := attachmentName(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", batch.ErrPayload, err)
	}

	return &archive.Artifact{
		Name:      name,
		SizeBytes: int64(len(data)),
		Data:      data,
	}, nil
}

var errNoFilename = errors.New("response carries no attachment filename")

func attachmentName(disposition string) (string, error) {
	if disposition == "" {
		return "", errNoFilename
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", fmt.Errorf("parse content disposition: %w", err)
	}
	name := archive.EntryName(params["filename"])
	if name == "" {
		return "", errNoFilename
	}
	return name, nil
}
