package batch

import (
	"context"

	"github.com/JaimeStill/microtravel/pkg/archive"
)

// StartCommand is a request to run an operation over the caller's images.
// ImageIDs are resolved in order into ResourceRefs.
type StartCommand struct {
	Operation     string   `json:"operation"`
	ImageIDs      []string `json:"image_ids"`
	DestinationID string   `json:"destination_id,omitempty"`
	Confirm       bool     `json:"confirm"`
}

// Snapshot pairs live progress with the final report once the batch ends.
type Snapshot struct {
	Progress Progress `json:"progress"`
	Report   *Report  `json:"report,omitempty"`
}

// System runs batches server-side and keeps their results until retention
// expires. Every call is scoped to the owner that started the batch.
type System interface {
	Handler() *Handler

	// Start validates cmd, claims the owner's in-flight slot, and runs the
	// batch in the background. It returns the initial progress.
	Start(ctx context.Context, owner string, cmd StartCommand) (*Progress, error)
	Find(ctx context.Context, owner, id string) (*Snapshot, error)
	List(ctx context.Context, owner string) ([]Snapshot, error)
	// Subscribe delivers the current progress to fn and every transition
	// after it. The returned function ends the subscription.
	Subscribe(ctx context.Context, owner, id string, fn func(Progress)) (func(), error)
	Artifact(ctx context.Context, owner, id string) (*archive.Artifact, error)
	// Cancel asks a running batch to stop after its current item.
	// Cancelling a finished batch does nothing.
	Cancel(ctx context.Context, owner, id string) error
}
