package batch_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microtravel/internal/accounts"
	"github.com/JaimeStill/microtravel/internal/batch"
)

var fixedNow = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func newCoordinator(remote batch.Remote, workers int) *batch.Coordinator {
	return batch.NewCoordinator(
		batch.NewExecutor(remote, time.Second),
		batch.Options{
			Workers:       workers,
			ArchivePrefix: batch.DefaultArchivePrefix,
			Now:           func() time.Time { return fixedNow },
		},
		discard(),
	)
}

func deleteRequest(selection []batch.ResourceRef) batch.Request {
	return batch.Request{
		Operation: batch.OpDelete,
		Refs:      selection,
		Confirmed: true,
		Tier:      accounts.TierFree,
	}
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(body)
	}
	return entries
}

func TestDeleteProgressSequence(t *testing.T) {
	remote := newFakeRemote()
	selection := []batch.ResourceRef{
		{ID: "a", StoragePath: "images/u/a/a.jpg", DisplayName: "a.jpg", SizeBytes: 1000},
		{ID: "b", StoragePath: "images/u/b/b.jpg", DisplayName: "b.jpg", SizeBytes: 2000},
		{ID: "c", StoragePath: "images/u/c/c.jpg", DisplayName: "c.jpg", SizeBytes: 3000},
	}

	b, err := newCoordinator(remote, 1).Prepare("batch-1", deleteRequest(selection))
	require.NoError(t, err)

	var rec recorder
	b.Reporter().Subscribe(rec.observe)

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	events := rec.Events()
	require.Len(t, events, 5)

	assert.Equal(t, 0, events[0].Current)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, events[i+1].Current)
		assert.Equal(t, 3, events[i+1].Total)
		assert.False(t, events[i+1].Completed)
	}

	final := events[4]
	assert.True(t, final.Completed)
	assert.Equal(t, 3, final.Current)
	assert.Empty(t, final.Error)

	assert.True(t, report.Completed)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, int64(6000), report.TotalBytes)
	assert.Equal(t, "5.9 KB", report.TotalSize)
	assert.Nil(t, report.Artifact)
}

func TestCurrentEqualsTotalForEveryOperation(t *testing.T) {
	for _, op := range batch.Operations {
		t.Run(string(op), func(t *testing.T) {
			remote := newFakeRemote()
			remote.fail["img-2"] = fmt.Errorf("%w: 500", batch.ErrRejected)

			req := batch.Request{
				Operation: op,
				Refs:      refs(4),
				Params:    batch.Params{DestinationID: "unassigned"},
				Confirmed: true,
				Tier:      accounts.TierPremium,
			}

			b, err := newCoordinator(remote, 1).Prepare("batch-"+string(op), req)
			require.NoError(t, err)

			var rec recorder
			b.Reporter().Subscribe(rec.observe)

			_, err = b.Run(context.Background())
			require.NoError(t, err)

			snap := b.Reporter().Snapshot()
			assert.Equal(t, snap.Total, snap.Current)
			assert.True(t, snap.Completed)
			assert.Equal(t, 1, snap.Failed)

			prev := -1
			for _, p := range rec.Events() {
				assert.True(t, p.Current == prev || p.Current == prev+1, "progress jumped from %d to %d", prev, p.Current)
				prev = p.Current
			}
		})
	}
}

func TestPreconditionsMakeNoCalls(t *testing.T) {
	tests := []struct {
		name string
		req  batch.Request
		want error
	}{
		{
			name: "empty selection",
			req:  batch.Request{Operation: batch.OpDelete, Confirmed: true},
			want: batch.ErrEmptySelection,
		},
		{
			name: "move without destination",
			req:  batch.Request{Operation: batch.OpMove, Refs: refs(3), Tier: accounts.TierPremium},
			want: batch.ErrMissingDestination,
		},
		{
			name: "delete without confirmation",
			req:  batch.Request{Operation: batch.OpDelete, Refs: refs(3)},
			want: batch.ErrNotConfirmed,
		},
		{
			name: "free tier download",
			req:  batch.Request{Operation: batch.OpDownload, Refs: refs(3), Tier: accounts.TierFree},
			want: batch.ErrTierDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-x", tt.req)

			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, report)
			assert.Empty(t, remote.Calls())
		})
	}
}

func TestItemsAttemptedInInputOrder(t *testing.T) {
	remote := newFakeRemote()
	selection := refs(8)

	_, err := newCoordinator(remote, 1).Run(context.Background(), "batch-order", deleteRequest(selection))
	require.NoError(t, err)

	want := make([]string, len(selection))
	for i, r := range selection {
		want[i] = r.ID
	}
	assert.Equal(t, want, remote.CalledIDs())
}

func TestDeleteCallsEachItemOnce(t *testing.T) {
	remote := newFakeRemote()
	selection := refs(6)

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-n", deleteRequest(selection))
	require.NoError(t, err)

	calls := remote.Calls()
	require.Len(t, calls, len(selection))

	seen := make(map[string]int)
	for _, c := range calls {
		assert.Equal(t, "delete", c.op)
		seen[c.id]++
	}
	for _, r := range selection {
		assert.Equal(t, 1, seen[r.ID], "item %s", r.ID)
	}
	assert.Equal(t, len(selection), report.Succeeded)
}

func TestFailureDoesNotStopLaterItems(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["img-3"] = fmt.Errorf("%w: connection reset", batch.ErrNetwork)

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-3of5", deleteRequest(refs(5)))
	require.NoError(t, err)

	assert.Equal(t, []string{"img-1", "img-2", "img-3", "img-4", "img-5"}, remote.CalledIDs())
	assert.True(t, report.Completed)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	failed := report.Outcomes[2]
	assert.Equal(t, batch.StatusFailure, failed.Status)
	assert.Equal(t, "network", failed.Kind)
	assert.Contains(t, failed.Reason, "connection reset")
	assert.Equal(t, []batch.ResourceRef{failed.Ref}, report.FailedRefs())

	assert.Equal(t, batch.StatusSuccess, report.Outcomes[3].Status)
	assert.Equal(t, batch.StatusSuccess, report.Outcomes[4].Status)
}

func TestDownloadPackagesEveryItem(t *testing.T) {
	remote := newFakeRemote()
	selection := refs(3)

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-dl", batch.Request{
		Operation: batch.OpDownload,
		Refs:      selection,
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)
	require.NotNil(t, report.Artifact)

	assert.Equal(t, "microtravel-images_2026-05-02.zip", report.Artifact.Name)
	assert.Equal(t, []string{"img-1.jpg", "img-2.jpg", "img-3.jpg"}, report.Artifact.Entries)

	entries := unzip(t, report.Artifact.Data)
	require.Len(t, entries, 3)
	for _, r := range selection {
		assert.Equal(t, "payload-"+r.ID, entries[r.DisplayName])
	}
}

func TestDownloadDuplicateNameLastWriteWins(t *testing.T) {
	remote := newFakeRemote()
	remote.payloads["first"] = []byte("first bytes")
	remote.payloads["middle"] = []byte("middle bytes")
	remote.payloads["last"] = []byte("last bytes")

	selection := []batch.ResourceRef{
		{ID: "first", StoragePath: "images/u/1/beach.jpg", DisplayName: "beach.jpg"},
		{ID: "middle", StoragePath: "images/u/2/dunes.jpg", DisplayName: "dunes.jpg"},
		{ID: "last", StoragePath: "images/u/3/beach.jpg", DisplayName: "beach.jpg"},
	}

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-dup", batch.Request{
		Operation: batch.OpDownload,
		Refs:      selection,
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)

	entries := unzip(t, report.Artifact.Data)
	assert.Len(t, entries, 2)
	assert.Equal(t, "last bytes", entries["beach.jpg"])
	assert.Equal(t, "middle bytes", entries["dunes.jpg"])
	assert.Equal(t, 3, report.Succeeded)
}

func TestDownloadSkipsFailedPayloads(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["img-2"] = fmt.Errorf("%w: 404", batch.ErrRejected)

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-partial", batch.Request{
		Operation: batch.OpDownload,
		Refs:      refs(3),
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"img-1.jpg", "img-3.jpg"}, report.Artifact.Entries)
	assert.Equal(t, 1, report.Failed)
}

func TestDownloadWithNoSuccessProducesNoArtifact(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["img-1"] = fmt.Errorf("%w: 403", batch.ErrRejected)

	report, err := newCoordinator(remote, 1).Run(context.Background(), "batch-none", batch.Request{
		Operation: batch.OpDownload,
		Refs:      refs(1),
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)

	assert.True(t, report.Completed)
	assert.Nil(t, report.Artifact)
}

func TestMovePassesDestination(t *testing.T) {
	remote := newFakeRemote()

	_, err := newCoordinator(remote, 1).Run(context.Background(), "batch-move", batch.Request{
		Operation: batch.OpMove,
		Refs:      refs(2),
		Params:    batch.Params{DestinationID: "9b2c0f3e-55a1-4d8e-9a64-1f1f4d0e7c21"},
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)

	for _, c := range remote.Calls() {
		assert.Equal(t, "move", c.op)
		assert.Equal(t, "9b2c0f3e-55a1-4d8e-9a64-1f1f4d0e7c21", c.destination)
	}
}

func TestCancellationBetweenItems(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	remote.started = make(chan string, 5)

	b, err := newCoordinator(remote, 1).Prepare("batch-cancel", batch.Request{
		Operation: batch.OpDownload,
		Refs:      refs(5),
		Tier:      accounts.TierPremium,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		report *batch.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := b.Run(ctx)
		done <- result{report, err}
	}()

	assert.Equal(t, "img-1", <-remote.started)
	cancel()
	close(remote.gate)

	res := <-done
	require.ErrorIs(t, res.err, batch.ErrCancelled)

	report := res.report
	assert.Equal(t, "batch cancelled", report.Error)
	assert.False(t, report.Completed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 4, report.Skipped)
	assert.Nil(t, report.Artifact)
	assert.Equal(t, batch.StatusSuccess, report.Outcomes[0].Status)
	for _, o := range report.Outcomes[1:] {
		assert.Equal(t, batch.StatusSkipped, o.Status)
	}

	snap := b.Reporter().Snapshot()
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, "batch cancelled", snap.Error)
	assert.True(t, snap.Terminal())
	assert.Len(t, remote.Calls(), 1)
}

func TestBatchRunsOnce(t *testing.T) {
	b, err := newCoordinator(newFakeRemote(), 1).Prepare("batch-once", deleteRequest(refs(2)))
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	require.NoError(t, err)

	_, err = b.Run(context.Background())
	assert.ErrorIs(t, err, batch.ErrAlreadyStarted)
}

func TestWorkerPoolKeepsOutcomeOrder(t *testing.T) {
	remote := newFakeRemote()
	remote.fail["img-4"] = fmt.Errorf("%w: 409", batch.ErrRejected)
	selection := refs(10)

	b, err := newCoordinator(remote, 4).Prepare("batch-pool", deleteRequest(selection))
	require.NoError(t, err)

	var rec recorder
	b.Reporter().Subscribe(rec.observe)

	report, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, remote.Calls(), len(selection))
	assert.ElementsMatch(t, remote.CalledIDs(), []string{
		"img-1", "img-2", "img-3", "img-4", "img-5",
		"img-6", "img-7", "img-8", "img-9", "img-10",
	})

	for i, o := range report.Outcomes {
		assert.Equal(t, selection[i].ID, o.Ref.ID)
	}
	assert.Equal(t, batch.StatusFailure, report.Outcomes[3].Status)
	assert.Equal(t, 9, report.Succeeded)

	events := rec.Events()
	for i := 1; i < len(events)-1; i++ {
		assert.Equal(t, events[i-1].Current+1, events[i].Current)
	}
	assert.True(t, events[len(events)-1].Completed)
}
