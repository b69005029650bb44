package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Precondition failures. These are returned before any remote call is made
// and before any progress exists.
var (
	ErrEmptySelection     = errors.New("selection is empty")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrMissingDestination = errors.New("move requires a destination")
	ErrInvalidSelection   = errors.New("selection contains an invalid resource")
	ErrDuplicateRef       = errors.New("selection contains a duplicate resource")
	ErrSelectionTooLarge  = errors.New("selection exceeds the batch size limit")
	ErrNotConfirmed       = errors.New("delete requires confirmation")
	ErrTierDenied         = errors.New("operation not permitted for access tier")
	ErrInProgress         = errors.New("a batch is already in progress")
)

// Registry and lifecycle errors.
var (
	ErrNotFound       = errors.New("batch not found")
	ErrNoArtifact     = errors.New("batch has no archive")
	ErrAlreadyStarted = errors.New("batch already started")
	ErrUnavailable    = errors.New("batch service is shutting down")
)

// Batch-level failures. They end the batch with a non-empty error.
var (
	ErrCancelled = errors.New("batch cancelled")
	ErrPackaging = errors.New("archive packaging failed")
)

// Item failure kinds.
var (
	ErrNetwork  = errors.New("network error")
	ErrRejected = errors.New("remote rejected request")
	ErrPayload  = errors.New("unreadable payload")
)

// ItemError is the failure of one item. Kind is ErrNetwork, ErrRejected,
// or ErrPayload. errors.Is matches both Kind and the underlying Err.
type ItemError struct {
	Kind error
	Ref  ResourceRef
	Err  error
}

func (e *ItemError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Ref.ID, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Ref.ID, e.Kind, e.Err)
}

func (e *ItemError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName returns the short label for an item failure kind.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrPayload):
		return "payload"
	case errors.Is(err, ErrRejected):
		return "rejected"
	}
	return ""
}

// classify wraps err as an ItemError for ref. Errors that already carry a
// kind keep it, deadlines become network failures, anything else counts as
// a rejection.
func classify(ref ResourceRef, err error) *ItemError {
	var ie *ItemError
	if errors.As(err, &ie) {
		return ie
	}

	kind := ErrRejected
	switch {
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		kind = ErrNetwork
	case errors.Is(err, ErrPayload):
		kind = ErrPayload
	}
	return &ItemError{Kind: kind, Ref: ref, Err: err}
}

// MapHTTPStatus maps batch errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrUnknownOperation),
		errors.Is(err, ErrMissingDestination),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrDuplicateRef),
		errors.Is(err, ErrSelectionTooLarge),
		errors.Is(err, ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, ErrTierDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrInProgress), errors.Is(err, ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoArtifact):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
