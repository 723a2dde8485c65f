package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/config"
	"internhub-engine/internal/domain"
	"internhub-engine/internal/events"
	"internhub-engine/internal/pipeline"
)

// Runner is the pipeline surface the trigger and status handlers need.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
	Running() bool
	State() pipeline.State
}

// Reader is the read side of the store.
type Reader interface {
	ListActive(ctx context.Context) ([]domain.PersistedPosting, error)
	LatestRun(ctx context.Context, status domain.RunStatus) (domain.ScrapeRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error)
}

type Deps struct {
	Runner Runner
	Store  Reader
	Hub    *events.Hub
	Cfg    *config.Live

	// Secret resolves the trigger bearer secret on every request so a key
	// rotated in the keychain applies without a restart.
	Secret func() (string, error)

	Logger *zap.Logger
	Now    func() time.Time
}
