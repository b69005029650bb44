package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/microtravel/pkg/archive"
	"github.com/JaimeStill/microtravel/pkg/formatting"
)

// Options tunes a Coordinator.
type Options struct {
	// Workers > 1 attempts up to that many items at once. Outcomes keep
	// selection order but attempts may finish out of order.
	Workers int
	// ArchivePrefix names download artifacts "<prefix>_<YYYY-MM-DD>.zip".
	ArchivePrefix string
	// MaxSelection caps the number of refs per batch. Zero means no cap.
	MaxSelection int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Coordinator validates requests and prepares batches that drive an Executor.
type Coordinator struct {
	exec   *Executor
	opts   Options
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator over exec.
func NewCoordinator(exec *Executor, opts Options, logger *slog.Logger) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Coordinator{
		exec:   exec,
		opts:   opts,
		logger: logger.With("module", "batch"),
	}
}

// Prepare validates req and returns a Batch ready to run. On failure nothing
// is created and no remote call is made.
func (c *Coordinator) Prepare(id string, req Request) (*Batch, error) {
	if err := Validate(req, c.opts.MaxSelection); err != nil {
		return nil, err
	}

	refs := make([]ResourceRef, len(req.Refs))
	copy(refs, req.Refs)

	return &Batch{
		id:       id,
		op:       req.Operation,
		refs:     refs,
		params:   req.Params,
		coord:    c,
		reporter: NewReporter(id, req.Operation, len(refs)),
		logger:   c.logger.With("batch_id", id, "operation", req.Operation),
	}, nil
}

// Run prepares and runs req in one step.
func (c *Coordinator) Run(ctx context.Context, id string, req Request) (*Report, error) {
	b, err := c.Prepare(id, req)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx)
}

// Batch is one run of one operation across a fixed selection. It owns its
// Reporter and runs at most once.
type Batch struct {
	id       string
	op       Operation
	refs     []ResourceRef
	params   Params
	coord    *Coordinator
	reporter *Reporter
	logger   *slog.Logger
	started  atomic.Bool
	onFinish []func(*Report)
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// Reporter returns the batch's progress reporter.
func (b *Batch) Reporter() *Reporter {
	return b.reporter
}

// OnFinish registers fn to receive the final report before the terminal
// progress snapshot is published. Register before Run.
func (b *Batch) OnFinish(fn func(*Report)) {
	b.onFinish = append(b.onFinish, fn)
}

func (b *Batch) settle(report *Report) {
	for _, fn := range b.onFinish {
		fn(report)
	}
}

// Run attempts every item and returns the final report. Cancelling ctx stops
// the batch between items: the item in flight finishes, the rest are
// recorded as skipped, and Run returns ErrCancelled. A packaging failure
// returns ErrPackaging. In both cases the report is still returned.
func (b *Batch) Run(ctx context.Context) (*Report, error) {
	if !b.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	report := &Report{
		ID:        b.id,
		Operation: b.op,
		Total:     len(b.refs),
		StartedAt: b.coord.opts.Now(),
	}

	b.logger.Info("batch started", "total", len(b.refs), "workers", b.coord.opts.Workers)

	outcomes := make([]Outcome, len(b.refs))
	payloads := make([][]byte, len(b.refs))

	if b.coord.opts.Workers > 1 {
		b.runPool(ctx, outcomes, payloads)
	} else {
		for i, ref := range b.refs {
			if ctx.Err() != nil {
				break
			}
			outcomes[i], payloads[i] = b.attempt(ctx, ref)
		}
	}

	b.tally(report, outcomes)

	if report.Skipped > 0 {
		return b.fail(report, ErrCancelled)
	}

	if b.op == OpDownload && report.Succeeded > 0 {
		artifact, err := b.pack(payloads, report.StartedAt)
		if err != nil {
			return b.fail(report, fmt.Errorf("%w: %w", ErrPackaging, err))
		}
		report.Artifact = artifact
	}

	report.Completed = true
	report.FinishedAt = b.coord.opts.Now()
	b.settle(report)
	b.reporter.Complete()

	b.logger.Info(
		"batch completed",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"total_size", report.TotalSize,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (b *Batch) runPool(ctx context.Context, outcomes []Outcome, payloads [][]byte) {
	var g errgroup.Group
	g.SetLimit(b.coord.opts.Workers)

	for i, ref := range b.refs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i], payloads[i] = b.attempt(ctx, ref)
			return nil
		})
	}

	_ = g.Wait()
}

// attempt runs one item to completion regardless of batch cancellation.
func (b *Batch) attempt(ctx context.Context, ref ResourceRef) (Outcome, []byte) {
	data, err := b.coord.exec.Execute(context.WithoutCancel(ctx), b.op, ref, b.params)
	if err != nil {
		b.logger.Warn("item failed", "id", ref.ID, "kind", KindName(err), "error", err)
		b.reporter.Advance(true)

		var ie *ItemError
		reason := err.Error()
		if errors.As(err, &ie) && ie.Err != nil {
			reason = ie.Err.Error()
		}
		return Outcome{Ref: ref, Status: StatusFailure, Kind: KindName(err), Reason: reason}, nil
	}

	b.reporter.Advance(false)
	return Outcome{Ref: ref, Status: StatusSuccess}, data
}

func (b *Batch) tally(report *Report, outcomes []Outcome) {
	for i := range outcomes {
		if outcomes[i].Status == "" {
			outcomes[i] = Outcome{Ref: b.refs[i], Status: StatusSkipped}
		}

		switch outcomes[i].Status {
		case StatusSuccess:
			report.Succeeded++
			report.TotalBytes += outcomes[i].Ref.SizeBytes
		case StatusFailure:
			report.Failed++
		case StatusSkipped:
			report.Skipped++
		}
	}
	report.Outcomes = outcomes
	report.TotalSize = formatting.FormatBytes(report.TotalBytes, 1)
}

// pack adds payloads in selection order, so a later item with the same
// display name replaces an earlier one.
func (b *Batch) pack(payloads [][]byte, day time.Time) (*archive.Artifact, error) {
	builder := archive.NewBuilder()

	for i, data := range payloads {
		if data == nil {
			continue
		}
		ref := b.refs[i]
		name := ref.DisplayName
		if archive.EntryName(name) == "" {
			name = ref.ID
		}
		replaced, err := builder.Add(name, data)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", ref.ID, err)
		}
		if replaced {
			b.logger.Info("duplicate display name replaced", "id", ref.ID, "name", name)
		}
		payloads[i] = nil
	}

	return builder.Finalize(archive.ArtifactName(b.coord.opts.ArchivePrefix, day), b.coord.opts.Now())
}

func (b *Batch) fail(report *Report, err error) (*Report, error) {
	report.Error = err.Error()
	report.FinishedAt = b.coord.opts.Now()
	b.settle(report)
	b.reporter.Fail(report.Error)

	b.logger.Error(
		"batch failed",
		"error", err,
		"current", b.reporter.Snapshot().Current,
		"skipped", report.Skipped,
	)
	return report, err
}
