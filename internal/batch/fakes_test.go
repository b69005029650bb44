package batch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/JaimeStill/microtravel/internal/batch"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type call struct {
	op          string
	id          string
	destination string
}

// fakeRemote records every call in order. Items listed in fail return that
// error. When gate is set, every call blocks until it is closed.
type fakeRemote struct {
	mu       sync.Mutex
	calls    []call
	payloads map[string][]byte
	fail     map[string]error
	gate     chan struct{}
	started  chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		payloads: make(map[string][]byte),
		fail:     make(map[string]error),
	}
}

func (f *fakeRemote) record(op string, ref batch.ResourceRef, destination string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, id: ref.ID, destination: destination})
	err := f.fail[ref.ID]
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- ref.ID
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeRemote) Fetch(_ context.Context, ref batch.ResourceRef) ([]byte, error) {
	if err := f.record("fetch", ref, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.payloads[ref.ID]; ok {
		return data, nil
	}
	return []byte("payload-" + ref.ID), nil
}

func (f *fakeRemote) Delete(_ context.Context, ref batch.ResourceRef) error {
	return f.record("delete", ref, "")
}

func (f *fakeRemote) Move(_ context.Context, ref batch.ResourceRef, destinationID string) error {
	return f.record("move", ref, destinationID)
}

func (f *fakeRemote) Archive(_ context.Context, ref batch.ResourceRef) error {
	return f.record("archive", ref, "")
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemote) CalledIDs() []string {
	var ids []string
	for _, c := range f.Calls() {
		ids = append(ids, c.id)
	}
	return ids
}

func refs(n int) []batch.ResourceRef {
	out := make([]batch.ResourceRef, n)
	for i := range out {
		id := fmt.Sprintf("img-%d", i+1)
		out[i] = batch.ResourceRef{
			ID:          id,
			StoragePath: "images/user-1/" + id + "/photo.jpg",
			DisplayName: id + ".jpg",
			SizeBytes:   int64(1000 * (i + 1)),
		}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []batch.Progress
}

func (r *recorder) observe(p batch.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recorder) Events() []batch.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]batch.Progress, len(r.events))
	copy(out, r.events)
	return out
}
