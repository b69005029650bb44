package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/microtravel/internal/accounts"
	"github.com/JaimeStill/microtravel/internal/images"
	"github.com/JaimeStill/microtravel/pkg/archive"
	"github.com/JaimeStill/microtravel/pkg/lifecycle"
)

type entry struct {
	owner     string
	batch     *Batch
	cancel    context.CancelFunc
	startedAt time.Time

	mu         sync.Mutex
	report     *Report
	finishedAt time.Time
}

func (e *entry) finish(report *Report, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report = report
	e.finishedAt = at
}

func (e *entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Progress: e.batch.Reporter().Snapshot(), Report: e.report}
}

func (e *entry) expired(now time.Time, retention time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.finishedAt.IsZero() && now.Sub(e.finishedAt) >= retention
}

type registry struct {
	images   images.System
	accounts accounts.System
	lc       *lifecycle.Coordinator
	cfg      Config
	guard    *Guard
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates the batch System. Batches and the retention sweeper run as
// lifecycle workers, so shutdown cancels in-flight batches and waits for them.
func New(
	imgs images.System,
	accts accounts.System,
	lc *lifecycle.Coordinator,
	cfg Config,
	logger *slog.Logger,
) System {
	r := &registry{
		images:   imgs,
		accounts: accts,
		lc:       lc,
		cfg:      cfg,
		guard:    NewGuard(),
		logger:   logger.With("system", "batches"),
		now:      time.Now,
		entries:  make(map[string]*entry),
	}

	lc.Go(r.sweep)
	return r
}

func (r *registry) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *registry) Start(ctx context.Context, owner string, cmd StartCommand) (*Progress, error) {
	if r.lc.Context().Err() != nil {
		return nil, ErrUnavailable
	}
	if len(cmd.ImageIDs) == 0 {
		return nil, ErrEmptySelection
	}
	op, err := ParseOperation(cmd.Operation)
	if err != nil {
		return nil, err
	}

	imgs, err := r.images.Resolve(ctx, owner, cmd.ImageIDs)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
		}
		return nil, fmt.Errorf("resolve selection: %w", err)
	}

	account, err := r.accounts.Find(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load access tier: %w", err)
	}

	refs := make([]ResourceRef, len(imgs))
	for i, img := range imgs {
		refs[i] = RefFromImage(img)
	}

	exec := NewExecutor(NewImageRemote(r.images, owner), r.cfg.ItemTimeoutDuration())
	coord := NewCoordinator(exec, r.cfg.Options(), r.logger)

	id := uuid.NewString()
	b, err := coord.Prepare(id, Request{
		Operation: op,
		Refs:      refs,
		Params:    Params{DestinationID: cmd.DestinationID},
		Confirmed: cmd.Confirm,
		Tier:      account.Tier,
	})
	if err != nil {
		return nil, err
	}

	if err := r.guard.Acquire(owner, id); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(r.lc.Context())
	e := &entry{
		owner:     owner,
		batch:     b,
		cancel:    cancel,
		startedAt: r.now(),
	}

	// Subscribers that react to the terminal event must already see the
	// stored report and a free guard.
	b.OnFinish(func(report *Report) {
		e.finish(report, r.now())
		r.guard.Release(owner, id)
	})

	progress := b.Reporter().Snapshot()

	err = r.lc.Go(func(context.Context) {
		defer cancel()
		defer r.guard.Release(owner, id)
		b.Run(runCtx)
	})
	if err != nil {
		cancel()
		r.guard.Release(owner, id)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()

	return &progress, nil
}

func (r *registry) Find(_ context.Context, owner, id string) (*Snapshot, error) {
	e, err := r.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	s := e.snapshot()
	return &s, nil
}

func (r *registry) List(_ context.Context, owner string) ([]Snapshot, error) {
	r.mu.RLock()
	owned := make([]*entry, 0)
	for _, e := range r.entries {
		if e.owner == owner {
			owned = append(owned, e)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(owned, func(a, b *entry) int {
		return b.startedAt.Compare(a.startedAt)
	})

	snapshots := make([]Snapshot, len(owned))
	for i, e := range owned {
		snapshots[i] = e.snapshot()
	}
	return snapshots, nil
}

func (r *registry) Subscribe(_ context.Context, owner, id string, fn func(Progress)) (func(), error) {
	e, err := r.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return e.batch.Reporter().Subscribe(fn), nil
}

func (r *registry) Artifact(_ context.Context, owner, id string) (*archive.Artifact, error) {
	e, err := r.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	s := e.snapshot()
	if s.Report == nil || s.Report.Artifact == nil {
		return nil, ErrNoArtifact
	}
	return s.Report.Artifact, nil
}

func (r *registry) Cancel(_ context.Context, owner, id string) error {
	e, err := r.lookup(owner, id)
	if err != nil {
		return err
	}

	e.cancel()
	r.logger.Info("batch cancel requested", "batch_id", id)
	return nil
}

func (r *registry) lookup(owner, id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.owner != owner {
		return nil, ErrNotFound
	}
	return e, nil
}

func (r *registry) sweep(ctx context.Context) {
	retention := r.cfg.RetentionDuration()
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(min(retention, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.prune(retention)
		}
	}
}

func (r *registry) prune(retention time.Duration) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		if e.expired(now, retention) {
			delete(r.entries, id)
			r.logger.Debug("batch pruned", "batch_id", id)
		}
	}
}
