package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx ends. Ticks
// that arrive while a run is still going are dropped.
func Every(ctx context.Context, interval time.Duration, name string, task Task, logger *zap.Logger) {
	log := logging.OrNop(logger).Named("scheduler").With(zap.String("task", name))

	run := func() {
		start := time.Now()
		if err := task(ctx); err != nil {
			log.Warn("task failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			return
		}
		log.Debug("task done", zap.Duration("took", time.Since(start)))
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	log.Info("scheduled", zap.Duration("interval", interval))
	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
