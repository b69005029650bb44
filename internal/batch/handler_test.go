package batch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microtravel/internal/auth"
	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/pkg/archive"
	"github.com/JaimeStill/microtravel/pkg/routes"
)

type mockSystem struct {
	startFn     func(ctx context.Context, owner string, cmd batch.StartCommand) (*batch.Progress, error)
	findFn      func(ctx context.Context, owner, id string) (*batch.Snapshot, error)
	listFn      func(ctx context.Context, owner string) ([]batch.Snapshot, error)
	subscribeFn func(ctx context.Context, owner, id string, fn func(batch.Progress)) (func(), error)
	artifactFn  func(ctx context.Context, owner, id string) (*archive.Artifact, error)
	cancelFn    func(ctx context.Context, owner, id string) error
}

func (m *mockSystem) Handler() *batch.Handler { return batch.NewHandler(m, discard()) }

func (m *mockSystem) Start(ctx context.Context, owner string, cmd batch.StartCommand) (*batch.Progress, error) {
	return m.startFn(ctx, owner, cmd)
}

func (m *mockSystem) Find(ctx context.Context, owner, id string) (*batch.Snapshot, error) {
	return m.findFn(ctx, owner, id)
}

func (m *mockSystem) List(ctx context.Context, owner string) ([]batch.Snapshot, error) {
	return m.listFn(ctx, owner)
}

func (m *mockSystem) Subscribe(ctx context.Context, owner, id string, fn func(batch.Progress)) (func(), error) {
	return m.subscribeFn(ctx, owner, id, fn)
}

func (m *mockSystem) Artifact(ctx context.Context, owner, id string) (*archive.Artifact, error) {
	return m.artifactFn(ctx, owner, id)
}

func (m *mockSystem) Cancel(ctx context.Context, owner, id string) error {
	return m.cancelFn(ctx, owner, id)
}

func serve(sys *mockSystem, method, path, body, owner string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, routes.Group{Prefix: "/api", Children: []routes.Group{sys.Handler().Routes()}})

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req = req.WithContext(auth.WithUser(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerStart(t *testing.T) {
	sys := &mockSystem{
		startFn: func(_ context.Context, owner string, cmd batch.StartCommand) (*batch.Progress, error) {
			switch cmd.Operation {
			case "download":
				return nil, batch.ErrTierDenied
			case "delete":
				if !cmd.Confirm {
					return nil, batch.ErrNotConfirmed
				}
			}
			return &batch.Progress{BatchID: "b-1", Operation: batch.OpDelete, Total: len(cmd.ImageIDs)}, nil
		},
	}

	rec := serve(sys, "POST", "/api/batches", `{"operation":"delete","image_ids":["a","b"],"confirm":true}`, "user-1")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/batches/b-1", rec.Header().Get("Location"))

	var progress batch.Progress
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&progress))
	assert.Equal(t, 2, progress.Total)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unconfirmed", `{"operation":"delete","image_ids":["a"]}`, http.StatusBadRequest},
		{"tier denied", `{"operation":"download","image_ids":["a"]}`, http.StatusForbidden},
		{"bad json", `operation=delete`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(sys, "POST", "/api/batches", tt.body, "user-1")
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec = serve(sys, "POST", "/api/batches", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerStartInProgress(t *testing.T) {
	sys := &mockSystem{
		startFn: func(context.Context, string, batch.StartCommand) (*batch.Progress, error) {
			return nil, batch.ErrInProgress
		},
	}

	rec := serve(sys, "POST", "/api/batches", `{"operation":"delete","image_ids":["a"],"confirm":true}`, "user-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerFindAndList(t *testing.T) {
	snap := batch.Snapshot{
		Progress: batch.Progress{BatchID: "b-1", Current: 2, Total: 2, Completed: true},
		Report:   &batch.Report{ID: "b-1", Succeeded: 2, Completed: true},
	}
	sys := &mockSystem{
		findFn: func(_ context.Context, _ string, id string) (*batch.Snapshot, error) {
			if id != "b-1" {
				return nil, batch.ErrNotFound
			}
			return &snap, nil
		},
		listFn: func(context.Context, string) ([]batch.Snapshot, error) {
			return []batch.Snapshot{snap}, nil
		},
	}

	rec := serve(sys, "GET", "/api/batches/b-1", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got batch.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 2, got.Report.Succeeded)

	rec = serve(sys, "GET", "/api/batches/b-9", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(sys, "GET", "/api/batches", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []batch.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestHandlerEvents(t *testing.T) {
	sequence := []batch.Progress{
		{BatchID: "b-1", Operation: batch.OpDelete, Current: 0, Total: 2},
		{BatchID: "b-1", Operation: batch.OpDelete, Current: 1, Total: 2},
		{BatchID: "b-1", Operation: batch.OpDelete, Current: 2, Total: 2},
		{BatchID: "b-1", Operation: batch.OpDelete, Current: 2, Total: 2, Completed: true},
	}

	unsubscribed := false
	sys := &mockSystem{
		findFn: func(context.Context, string, string) (*batch.Snapshot, error) {
			return &batch.Snapshot{Progress: sequence[0]}, nil
		},
		subscribeFn: func(_ context.Context, _ string, _ string, fn func(batch.Progress)) (func(), error) {
			for _, p := range sequence {
				fn(p)
			}
			return func() { unsubscribed = true }, nil
		},
	}

	rec := serve(sys, "GET", "/api/batches/b-1/events", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, unsubscribed)

	var currents []int
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var p batch.Progress
		require.NoError(t, json.Unmarshal([]byte(data), &p))
		currents = append(currents, p.Current)
	}
	assert.Equal(t, []int{0, 1, 2, 2}, currents)
	assert.Equal(t, 4, strings.Count(rec.Body.String(), "event: progress"))
}

func TestHandlerArchive(t *testing.T) {
	artifact := &archive.Artifact{Name: "microtravel-images_2026-05-02.zip", Data: []byte("PK\x05\x06zip")}
	sys := &mockSystem{
		artifactFn: func(_ context.Context, _ string, id string) (*archive.Artifact, error) {
			if id == "running" {
				return nil, batch.ErrNoArtifact
			}
			return artifact, nil
		},
	}

	rec := serve(sys, "GET", "/api/batches/b-1/archive", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, archive.ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=microtravel-images_2026-05-02.zip`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, artifact.Data, rec.Body.Bytes())

	rec = serve(sys, "GET", "/api/batches/running/archive", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCancel(t *testing.T) {
	var cancelled string
	sys := &mockSystem{
		cancelFn: func(_ context.Context, _ string, id string) error {
			if id != "b-1" {
				return batch.ErrNotFound
			}
			cancelled = id
			return nil
		},
		findFn: func(context.Context, string, string) (*batch.Snapshot, error) {
			return &batch.Snapshot{Progress: batch.Progress{BatchID: "b-1", Current: 1, Total: 3}}, nil
		},
	}

	rec := serve(sys, "POST", "/api/batches/b-1/cancel", "", "user-1")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "b-1", cancelled)

	rec = serve(sys, "POST", "/api/batches/b-2/cancel", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
