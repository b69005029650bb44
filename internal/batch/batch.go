// Package batch applies one operation across an ordered selection of remote
// resources. Items are attempted one at a time in selection order, a failing
// item never stops the loop, and progress is published after every attempt.
// Download batches package the fetched payloads into a single zip artifact.
package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/microtravel/internal/accounts"
	"github.com/JaimeStill/microtravel/pkg/archive"
)

// Operation is the action applied to every item of a batch.
type Operation string

const (
	OpDownload Operation = "download"
	OpDelete   Operation = "delete"
	OpMove     Operation = "move"
	OpArchive  Operation = "archive"
)

// Operations lists every supported operation.
var Operations = []Operation{OpDownload, OpDelete, OpMove, OpArchive}

// ParseOperation normalizes s into a known Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
	return op, nil
}

// Valid reports whether o is one of the supported operations.
func (o Operation) Valid() bool {
	switch o {
	case OpDownload, OpDelete, OpMove, OpArchive:
		return true
	}
	return false
}

// Destructive reports whether o requires explicit confirmation.
func (o Operation) Destructive() bool {
	return o == OpDelete
}

// ResourceRef identifies one selected item. It is read-only to the batch.
type ResourceRef struct {
	ID          string `json:"id"`
	StoragePath string `json:"storage_path"`
	DisplayName string `json:"display_name"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Params carries operation-specific parameters.
type Params struct {
	DestinationID string `json:"destination_id,omitempty"`
}

// Request is everything needed to prepare one batch.
type Request struct {
	Operation Operation
	Refs      []ResourceRef
	Params    Params
	Confirmed bool
	Tier      accounts.Tier
}

// Status is the outcome of one item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// Outcome records what happened to one item. Kind and Reason are set for failures.
type Outcome struct {
	Ref    ResourceRef `json:"ref"`
	Status Status      `json:"status"`
	Kind   string      `json:"kind,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Progress is a point-in-time snapshot of a running batch. Current counts
// attempted items and only ever increases by one.
type Progress struct {
	BatchID   string    `json:"batch_id"`
	Operation Operation `json:"operation"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether no further transitions will follow.
func (p Progress) Terminal() bool {
	return p.Completed || p.Error != ""
}

// Report is the final account of a batch run. Outcomes follow selection order.
type Report struct {
	ID         string            `json:"id"`
	Operation  Operation         `json:"operation"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	TotalBytes int64             `json:"total_bytes"`
	TotalSize  string            `json:"total_size"`
	Completed  bool              `json:"completed"`
	Error      string            `json:"error,omitempty"`
	Outcomes   []Outcome         `json:"outcomes"`
	Artifact   *archive.Artifact `json:"artifact,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// FailedRefs returns the refs whose attempt failed, in selection order.
func (r *Report) FailedRefs() []ResourceRef {
	var refs []ResourceRef
	for _, o := range r.Outcomes {
		if o.Status == StatusFailure {
			refs = append(refs, o.Ref)
		}
	}
	return refs
}
