package batch

import "sync"

type subscriber struct {
	id int
	fn func(Progress)
}

// Reporter owns the progress of one batch and publishes a snapshot to every
// subscriber after each transition. Publication is synchronous and ordered;
// subscriber callbacks must not call back into the Reporter.
type Reporter struct {
	mu       sync.Mutex
	progress Progress
	subs     []subscriber
	nextID   int
}

// NewReporter creates a Reporter at (0, total).
func NewReporter(batchID string, op Operation, total int) *Reporter {
	return &Reporter{
		progress: Progress{
			BatchID:   batchID,
			Operation: op,
			Total:     total,
		},
	}
}

// Snapshot returns the current progress.
func (r *Reporter) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Subscribe registers fn and immediately delivers the current snapshot to it.
// The returned function removes the subscription.
func (r *Reporter) Subscribe(fn func(Progress)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	fn(r.progress)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

// Advance records one attempted item. It is a no-op once every item has
// been counted or the batch is terminal.
func (r *Reporter) Advance(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress.Terminal() || r.progress.Current >= r.progress.Total {
		return
	}
	r.progress.Current++
	if failed {
		r.progress.Failed++
	}
	r.publish()
}

// Complete marks the batch completed.
func (r *Reporter) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress.Terminal() {
		return
	}
	r.progress.Completed = true
	r.publish()
}

// Fail ends the batch with a batch-level error message.
func (r *Reporter) Fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress.Terminal() {
		return
	}
	if msg == "" {
		msg = "batch failed"
	}
	r.progress.Error = msg
	r.publish()
}

func (r *Reporter) publish() {
	for _, s := range r.subs {
		s.fn(r.progress)
	}
}
