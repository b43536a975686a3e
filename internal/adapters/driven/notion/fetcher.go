package notion

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Fetcher reads single resources on demand and feeds each successful read
// to the dispatcher. Indexing never affects the read's result.
type Fetcher struct {
	workspaces Workspaces
	dispatcher driving.Dispatcher
	maxDepth   int
}

// NewFetcher creates a fetcher.
func NewFetcher(workspaces Workspaces, dispatcher driving.Dispatcher, maxDepth int) *Fetcher {
	return &Fetcher{
		workspaces: workspaces,
		dispatcher: dispatcher,
		maxDepth:   maxDepth,
	}
}

// FetchPage reads a page with its block tree.
func (f *Fetcher) FetchPage(ctx context.Context, teamID int64, pageID string) (map[string]any, error) {
	api, err := f.workspaces.Get(teamID)
	if err != nil {
		return nil, err
	}
	page, err := newReader(api, f.maxDepth).page(ctx, pageID)
	if err != nil {
		return nil, err
	}
	f.AfterRead(teamID, domain.SourceNotionPage, pageID, page)
	return page, nil
}

// FetchDatabase reads a database object.
func (f *Fetcher) FetchDatabase(ctx context.Context, teamID int64, databaseID string) (map[string]any, error) {
	api, err := f.workspaces.Get(teamID)
	if err != nil {
		return nil, err
	}
	db, err := api.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	f.AfterRead(teamID, domain.SourceNotionDatabase, databaseID, db)
	return db, nil
}

// QueryDatabase reads a database's rows.
func (f *Fetcher) QueryDatabase(ctx context.Context, teamID int64, databaseID string) (map[string]any, error) {
	api, err := f.workspaces.Get(teamID)
	if err != nil {
		return nil, err
	}
	rows, err := newReader(api, f.maxDepth).rows(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	f.AfterRead(teamID, domain.SourceNotionDatabaseQuery, databaseID, rows)
	return rows, nil
}

// Refresh re-reads an entity named by a change event ("page" or "database").
func (f *Fetcher) Refresh(ctx context.Context, teamID int64, entityType, entityID string) error {
	switch entityType {
	case "page":
		_, err := f.FetchPage(ctx, teamID, entityID)
		return err
	case "database":
		if _, err := f.FetchDatabase(ctx, teamID, entityID); err != nil {
			return err
		}
		_, err := f.QueryDatabase(ctx, teamID, entityID)
		return err
	default:
		return fmt.Errorf("%w: entity type %q", domain.ErrUnsupportedType, entityType)
	}
}

// AfterRead submits a job for a successful read. Submission failures are
// logged and never reach the reader.
func (f *Fetcher) AfterRead(teamID int64, sourceType domain.SourceType, resourceID string, payload map[string]any) {
	if f.dispatcher == nil {
		return
	}
	err := f.dispatcher.Submit(newJob(sourceType, teamID, resourceID, payload))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPipelineDisabled):
		logger.Debug("indexing disabled, %s %s not submitted", sourceType, resourceID)
	default:
		logger.Warn("submit %s %s: %v", sourceType, resourceID, err)
	}
}
