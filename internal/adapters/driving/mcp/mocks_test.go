package mcp

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.ContextSearch.
type mockSearchService struct {
	results  []domain.ScoredRecord
	states   []domain.IndexingState
	err      error
	lastOpts domain.QueryOptions
	lastTeam int64
}

func (m *mockSearchService) Query(_ context.Context, opts domain.QueryOptions) ([]domain.ScoredRecord, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) States(_ context.Context, teamID int64) ([]domain.IndexingState, error) {
	m.lastTeam = teamID
	return m.states, m.err
}

// mockRepairer is a mock implementation of driving.Repairer.
type mockRepairer struct {
	report *driving.RepairReport
	err    error
}

func (m *mockRepairer) Sweep(_ context.Context) (*driving.RepairReport, error) {
	return m.report, m.err
}

// mockDispatcher is a mock implementation of driving.Dispatcher.
type mockDispatcher struct {
	stats driving.DispatcherStats
}

func (m *mockDispatcher) Submit(domain.IndexJob) error        { return nil }
func (m *mockDispatcher) SubmitDelete(domain.DeleteJob) error { return nil }
func (m *mockDispatcher) Stats() driving.DispatcherStats      { return m.stats }
