package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Remote performs single network operations against the resource API.
// Implementations mark failures with ErrNetwork, ErrRejected, or ErrPayload,
// and must return once ctx is done. Delete must treat an already-deleted
// resource as success.
type Remote interface {
	Fetch(ctx context.Context, ref ResourceRef) ([]byte, error)
	Delete(ctx context.Context, ref ResourceRef) error
	Move(ctx context.Context, ref ResourceRef, destinationID string) error
	Archive(ctx context.Context, ref ResourceRef) error
}

// Executor performs exactly one remote call per item with no retries.
type Executor struct {
	remote  Remote
	timeout time.Duration
}

// NewExecutor creates an Executor. A positive timeout bounds each call;
// a call that outlives it fails with ErrNetwork.
func NewExecutor(remote Remote, timeout time.Duration) *Executor {
	return &Executor{remote: remote, timeout: timeout}
}

// Execute applies op to ref. Download returns the fetched payload.
// Failures are always *ItemError. The call runs on the caller's goroutine,
// so a batch never has more calls in flight than it has workers.
func (e *Executor) Execute(ctx context.Context, op Operation, ref ResourceRef, params Params) ([]byte, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	data, err := e.call(callCtx, op, ref, params)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &ItemError{
				Kind: ErrNetwork,
				Ref:  ref,
				Err:  fmt.Errorf("no response within %s: %w", e.timeout, callCtx.Err()),
			}
		}
		return nil, classify(ref, err)
	}
	return data, nil
}

func (e *Executor) call(ctx context.Context, op Operation, ref ResourceRef, params Params) ([]byte, error) {
	switch op {
	case OpDownload:
		data, err := e.remote.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("%w: empty response", ErrPayload)
		}
		return data, nil
	case OpDelete:
		return nil, e.remote.Delete(ctx, ref)
	case OpMove:
		return nil, e.remote.Move(ctx, ref, params.DestinationID)
	case OpArchive:
		return nil, e.remote.Archive(ctx, ref)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}
