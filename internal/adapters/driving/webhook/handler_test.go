package webhook

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// recordingDispatcher captures submissions.
type recordingDispatcher struct {
	mu      sync.Mutex
	jobs    []domain.IndexJob
	deletes []domain.DeleteJob
	err     error
}

func (d *recordingDispatcher) Submit(job domain.IndexJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return d.err
}

func (d *recordingDispatcher) SubmitDelete(job domain.DeleteJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes = append(d.deletes, job)
	return d.err
}

func (d *recordingDispatcher) Stats() driving.DispatcherStats {
	return driving.DispatcherStats{Queued: 3, Workers: 2, Completed: 10}
}

// recordingRefresher captures refresh requests.
type recordingRefresher struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRefresher) Refresh(_ context.Context, teamID int64, entityType, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, entityType+":"+entityID)
	return nil
}

func (r *recordingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, EventsPath, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestNewHandler_RequiresDispatcher(t *testing.T) {
	_, err := NewHandler(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandler_PageUpdateSubmitsJob(t *testing.T) {
	d := &recordingDispatcher{}
	h, err := NewHandler(d)
	require.NoError(t, err)

	rec, resp := post(t, h, `{
		"type": "page.content_updated",
		"team_id": 42,
		"entity": {"id": "page-1", "type": "page"},
		"data": {"object": "page", "id": "page-1"}
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, actionIndex, resp.Action)

	require.Len(t, d.jobs, 1)
	job := d.jobs[0]
	assert.Equal(t, domain.SourceNotionPage, job.SourceType)
	assert.Equal(t, int64(42), job.TeamID)
	assert.Equal(t, "pages.retrieve", job.APIPath)
	assert.Equal(t, "page-1", job.ResourceID)
	assert.Equal(t, "page", job.Payload["object"])
}

func TestHandler_SourceTypeMapping(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		override   string
		want       domain.SourceType
	}{
		{"page", "page", "", domain.SourceNotionPage},
		{"database", "database", "", domain.SourceNotionDatabase},
		{"block", "block", "", domain.SourceNotionBlockChildren},
		{"override", "database", "notion_database_query", domain.SourceNotionDatabaseQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Event{
				Entity:     Entity{ID: "x", Type: tt.entityType},
				SourceType: tt.override,
			}
			got, err := event.sourceType()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&Event{Entity: Entity{Type: "comment"}}).sourceType()
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestHandler_DeletionSubmitsDelete(t *testing.T) {
	for _, eventType := range []string{"page.deleted", "database.deleted"} {
		t.Run(eventType, func(t *testing.T) {
			d := &recordingDispatcher{}
			h, err := NewHandler(d)
			require.NoError(t, err)

			rec, resp := post(t, h, `{"type":"`+eventType+`","team_id":5,"entity":{"id":"res-1","type":"page"},"data":{"id":"res-1"}}`)

			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, actionDelete, resp.Action)
			assert.Empty(t, d.jobs)
			require.Len(t, d.deletes, 1)
			assert.Equal(t, domain.DeleteJob{TeamID: 5, ResourceID: "res-1"}, d.deletes[0])
		})
	}
}

func TestHandler_AcceptsWhenDispatcherRejects(t *testing.T) {
	d := &recordingDispatcher{err: domain.ErrQueueFull}
	h, err := NewHandler(d)
	require.NoError(t, err)

	rec, resp := post(t, h, `{"type":"page.created","team_id":1,"entity":{"id":"p","type":"page"},"data":{"id":"p"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", resp.Status)
}

func TestHandler_UnknownEntityIsIgnored(t *testing.T) {
	d := &recordingDispatcher{}
	h, err := NewHandler(d)
	require.NoError(t, err)

	rec, resp := post(t, h, `{"type":"comment.created","team_id":1,"entity":{"id":"c","type":"comment"},"data":{"id":"c"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, actionIgnore, resp.Action)
	assert.Empty(t, d.jobs)
}

func TestHandler_NoPayload(t *testing.T) {
	t.Run("without refresher", func(t *testing.T) {
		d := &recordingDispatcher{}
		h, err := NewHandler(d)
		require.NoError(t, err)

		rec, resp := post(t, h, `{"type":"page.properties_updated","team_id":1,"entity":{"id":"p","type":"page"}}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, actionIgnore, resp.Action)
	})

	t.Run("with refresher", func(t *testing.T) {
		d := &recordingDispatcher{}
		r := &recordingRefresher{}
		h, err := NewHandler(d, WithRefresher(r), WithRefreshTimeout(time.Second))
		require.NoError(t, err)

		rec, resp := post(t, h, `{"type":"page.properties_updated","team_id":1,"entity":{"id":"p","type":"page"}}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, actionRefresh, resp.Action)

		require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
		r.mu.Lock()
		assert.Equal(t, []string{"page:p"}, r.calls)
		r.mu.Unlock()
	})
}

func TestHandler_BadRequests(t *testing.T) {
	d := &recordingDispatcher{}
	h, err := NewHandler(d)
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"not an object", `[1,2]`},
		{"missing team", `{"type":"page.created","entity":{"id":"p","type":"page"}}`},
		{"missing entity id", `{"type":"page.created","team_id":1,"entity":{"type":"page"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Empty(t, d.jobs)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, err := NewHandler(&recordingDispatcher{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, EventsPath, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestServer_Routes(t *testing.T) {
	d := &recordingDispatcher{}
	h, err := NewHandler(d)
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer("127.0.0.1:0", h).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+EventsPath, "application/json",
		strings.NewReader(`{"type":"page.created","team_id":3,"entity":{"id":"p","type":"page"},"data":{"id":"p"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.Queued)
	assert.Equal(t, int64(10), health.Completed)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	h, err := NewHandler(&recordingDispatcher{})
	require.NoError(t, err)
	s := NewServer("127.0.0.1:0", h)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunListenError(t *testing.T) {
	h, err := NewHandler(&recordingDispatcher{})
	require.NoError(t, err)

	err = NewServer("256.0.0.1:bad", h).Run(context.Background())
	assert.Error(t, err)
}
