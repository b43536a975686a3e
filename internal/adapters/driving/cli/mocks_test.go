package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

type mockIndexer struct {
	mu   sync.Mutex
	jobs []domain.IndexJob
	err  error
}

func (m *mockIndexer) Index(_ context.Context, job domain.IndexJob) (*driving.IndexResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.jobs = append(m.jobs, job)
	return &driving.IndexResult{
		SourceKey:  job.SourceType.String() + "|key",
		Outcome:    driving.OutcomeIndexed,
		ChunkCount: 2,
		Added:      2,
	}, nil
}

func (m *mockIndexer) Delete(_ context.Context, _ domain.DeleteJob) (int, error) {
	return 0, nil
}

type mockDispatcher struct {
	mu      sync.Mutex
	started bool
	stopped bool
	jobs    []domain.IndexJob
}

func (m *mockDispatcher) Submit(job domain.IndexJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockDispatcher) SubmitDelete(domain.DeleteJob) error { return nil }

func (m *mockDispatcher) Stats() driving.DispatcherStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return driving.DispatcherStats{Submitted: int64(len(m.jobs)), Completed: int64(len(m.jobs))}
}

func (m *mockDispatcher) Start(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

func (m *mockDispatcher) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

type mockSearch struct {
	lastOpts domain.QueryOptions
	lastTeam int64
	results  []domain.ScoredRecord
	states   []domain.IndexingState
	err      error
}

func (m *mockSearch) Query(_ context.Context, opts domain.QueryOptions) ([]domain.ScoredRecord, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearch) States(_ context.Context, teamID int64) ([]domain.IndexingState, error) {
	m.lastTeam = teamID
	return m.states, m.err
}

type mockRepairer struct {
	report *driving.RepairReport
	err    error
}

func (m *mockRepairer) Sweep(context.Context) (*driving.RepairReport, error) {
	return m.report, m.err
}

type mockLoader struct {
	dispatcher *mockDispatcher
	team       int64
	all        bool
	err        error
}

func (m *mockLoader) LoadTeam(_ context.Context, teamID int64) (int, error) {
	m.team = teamID
	if m.err != nil {
		return 0, m.err
	}
	_ = m.dispatcher.Submit(domain.IndexJob{SourceType: domain.SourceNotionPage, TeamID: teamID})
	return 1, nil
}

func (m *mockLoader) LoadAll(ctx context.Context) (int, error) {
	m.all = true
	total := 0
	for _, team := range []int64{1, 2} {
		n, err := m.LoadTeam(ctx, team)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	indexer    *mockIndexer
	dispatcher *mockDispatcher
	search     *mockSearch
	repairer   *mockRepairer
	loader     *mockLoader
}

var errBoom = errors.New("boom")

func sampleResults() []domain.ScoredRecord {
	return []domain.ScoredRecord{
		{
			Record: domain.VectorRecord{
				ID:   "abc-0",
				Text: "Roadmap\n  quarterly   goals",
				Metadata: map[string]string{
					domain.MetaTitle:      "Roadmap",
					domain.MetaSourceType: "notion_page",
					domain.MetaPosition:   "0",
					domain.MetaChunkCount: "3",
				},
			},
			Score: 0.91,
		},
	}
}

func sampleStates() []domain.IndexingState {
	return []domain.IndexingState{
		{
			SourceKey:      "notion_page|42|pages.retrieve|page-1",
			SourceType:     domain.SourceNotionPage,
			TeamID:         42,
			APIPath:        "pages.retrieve",
			ResourceID:     "page-1",
			DocumentPrefix: "0123456789abcdef0123456789abcdef",
			ContentHash:    "ffeeddccbbaa99887766554433221100",
			ChunkCount:     4,
			UpdatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

// setupTestServices installs mocks as the wired application and resets
// flag variables afterwards.
func setupTestServices() (*testServices, func()) {
	dispatcher := &mockDispatcher{}
	ts := &testServices{
		indexer:    &mockIndexer{},
		dispatcher: dispatcher,
		search:     &mockSearch{results: sampleResults(), states: sampleStates()},
		repairer:   &mockRepairer{report: &driving.RepairReport{Checked: 5, StatesReset: 1, OrphansRemoved: 2}},
		loader:     &mockLoader{dispatcher: dispatcher},
	}

	oldApp, oldBuilder := app, builder
	app = &Services{
		Indexer:    ts.indexer,
		Dispatcher: ts.dispatcher,
		Search:     ts.search,
		Repairer:   ts.repairer,
		Loader:     ts.loader,
	}

	return ts, func() {
		app, builder = oldApp, oldBuilder
		resetFlags()
		rootCmd.SetArgs(nil)
	}
}

func resetFlags() {
	verbose, dataDir, configDir = false, "", ""
	indexSourceType, indexTeamID, indexAPIPath, indexResourceID = "", 0, "", ""
	loadTeamID = 0
	queryLimit, queryJSON, queryTeamID = 0, false, 0
	querySourceType, queryAPIPath, queryPageID, queryParentID, queryAfter = "", "", "", "", ""
	stateTeamID, stateJSON = 0, false
	serveAddr, serveSpoolDir, serveNoScheduler = "", "", false
}
