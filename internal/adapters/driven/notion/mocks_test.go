package notion

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// fakeAPI serves canned wire-form objects. List endpoints page through
// their results pageSize at a time.
type fakeAPI struct {
	mu        sync.Mutex
	pageSize  int
	search    []map[string]any
	pages     map[string]map[string]any
	databases map[string]map[string]any
	rows      map[string][]map[string]any
	children  map[string][]map[string]any
	failing   map[string]error
	calls     map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pageSize:  2,
		pages:     make(map[string]map[string]any),
		databases: make(map[string]map[string]any),
		rows:      make(map[string][]map[string]any),
		children:  make(map[string][]map[string]any),
		failing:   make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeAPI) record(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op+":"+id]++
	return f.failing[op+":"+id]
}

func (f *fakeAPI) paginate(items []map[string]any, cursor string) *ResultPage {
	start := 0
	if cursor != "" {
		_, _ = fmt.Sscanf(cursor, "c%d", &start)
	}
	end := start + f.pageSize
	if end >= len(items) {
		return &ResultPage{Results: clone(items[start:])}
	}
	return &ResultPage{Results: clone(items[start:end]), HasMore: true, NextCursor: fmt.Sprintf("c%d", end)}
}

func clone(items []map[string]any) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		cp := make(map[string]any, len(item))
		for k, v := range item {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

func (f *fakeAPI) Search(_ context.Context, cursor string) (*ResultPage, error) {
	if err := f.record("search", cursor); err != nil {
		return nil, err
	}
	return f.paginate(f.search, cursor), nil
}

func (f *fakeAPI) RetrievePage(_ context.Context, id string) (map[string]any, error) {
	if err := f.record("page", id); err != nil {
		return nil, err
	}
	page, ok := f.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone([]map[string]any{page})[0], nil
}

func (f *fakeAPI) RetrieveDatabase(_ context.Context, id string) (map[string]any, error) {
	if err := f.record("database", id); err != nil {
		return nil, err
	}
	db, ok := f.databases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone([]map[string]any{db})[0], nil
}

func (f *fakeAPI) QueryDatabase(_ context.Context, id, cursor string) (*ResultPage, error) {
	if err := f.record("query", id); err != nil {
		return nil, err
	}
	return f.paginate(f.rows[id], cursor), nil
}

func (f *fakeAPI) BlockChildren(_ context.Context, id, cursor string) (*ResultPage, error) {
	if err := f.record("children", id); err != nil {
		return nil, err
	}
	return f.paginate(f.children[id], cursor), nil
}

func (f *fakeAPI) callCount(op, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+id]
}

// recordingDispatcher captures submitted jobs.
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []domain.IndexJob
	err  error
}

func (d *recordingDispatcher) Submit(job domain.IndexJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) SubmitDelete(domain.DeleteJob) error { return nil }

func (d *recordingDispatcher) Stats() driving.DispatcherStats { return driving.DispatcherStats{} }

func (d *recordingDispatcher) submitted() []domain.IndexJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.IndexJob(nil), d.jobs...)
}

func block(id, typ string, hasChildren bool) map[string]any {
	return map[string]any{
		"object":       "block",
		"id":           id,
		"type":         typ,
		"has_children": hasChildren,
		typ: map[string]any{
			"rich_text": []any{map[string]any{"plain_text": "text of " + id}},
		},
	}
}
