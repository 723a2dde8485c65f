package store

import (
	"context"
	"errors"

	"internhub-engine/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence boundary of the pipeline and the HTTP API.
type Store interface {
	Migrate(ctx context.Context) error

	// ReplaceSnapshot swaps the whole internships table for postings in a
	// single transaction.
	ReplaceSnapshot(ctx context.Context, postings []domain.PersistedPosting) error
	ListActive(ctx context.Context) ([]domain.PersistedPosting, error)
	CountActive(ctx context.Context) (int, error)

	InsertRun(ctx context.Context, run domain.ScrapeRun) error
	// FinishRun writes the final state of run, inserting it if missing.
	FinishRun(ctx context.Context, run domain.ScrapeRun) error
	// LatestRun returns the most recently started run with status, or any
	// status when status is "". ErrNotFound when there is none.
	LatestRun(ctx context.Context, status domain.RunStatus) (domain.ScrapeRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error)

	Close() error
}

var _ Store = (*DB)(nil)
