package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure LoaderService implements the interface.
var _ driving.WorkspaceLoader = (*LoaderService)(nil)

// LoaderService feeds enumerated workspace resources into the dispatcher.
type LoaderService struct {
	enumerator driven.Enumerator
	dispatcher driving.Dispatcher
	teams      []int64
}

// NewLoaderService creates a loader for the given teams.
func NewLoaderService(enumerator driven.Enumerator, dispatcher driving.Dispatcher, teams []int64) *LoaderService {
	return &LoaderService{
		enumerator: enumerator,
		dispatcher: dispatcher,
		teams:      teams,
	}
}

// LoadTeam enumerates one team's workspace and submits every job.
// Jobs rejected because the queue is full are counted and skipped.
func (l *LoaderService) LoadTeam(ctx context.Context, teamID int64) (int, error) {
	if l.enumerator == nil {
		return 0, fmt.Errorf("%w: no workspace enumerator configured", domain.ErrInvalidInput)
	}

	jobs, errs := l.enumerator.Enumerate(ctx, teamID)

	submitted, dropped := 0, 0
	for job := range jobs {
		err := l.dispatcher.Submit(job)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, domain.ErrQueueFull):
			dropped++
		default:
			// Drain so the enumerator goroutine can exit.
			for range jobs {
			}
			return submitted, fmt.Errorf("submit: %w", err)
		}
	}

	if dropped > 0 {
		logger.Warn("team %d: %d jobs dropped, queue full", teamID, dropped)
	}

	if err := <-errs; err != nil {
		return submitted, fmt.Errorf("enumerate team %d: %w", teamID, err)
	}

	logger.Info("team %d: submitted %d jobs", teamID, submitted)
	return submitted, nil
}

// LoadAll loads every configured team. It continues past failing teams and
// returns the first error.
func (l *LoaderService) LoadAll(ctx context.Context) (int, error) {
	total := 0
	var firstErr error
	for _, teamID := range l.teams {
		n, err := l.LoadTeam(ctx, teamID)
		total += n
		if err != nil {
			logger.Warn("load team %d: %v", teamID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}
