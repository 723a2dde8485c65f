package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"internhub-engine/internal/config"
	"internhub-engine/internal/events"
	"internhub-engine/internal/httpapi"
	"internhub-engine/internal/pipeline"
	"internhub-engine/internal/scheduler"
	"internhub-engine/internal/scrape"
	"internhub-engine/internal/secrets"
)

var scheduleInProcess bool

func init() {
	serveCmd.Flags().BoolVar(&scheduleInProcess, "schedule", false, "also run the pipeline every trigger.interval inside this process")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the trigger, status and listing API. The config file is watched
and source changes apply to the next run.

Examples:
  engine serve
  engine serve --schedule`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, path, load, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	logWarnings(cfg, log)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hub := events.NewHub()
	pubs := events.Fanout{hub}
	np, err := natsPublisher(cfg, log)
	if err != nil {
		log.Warn("nats unavailable, events stay local", zap.Error(err))
	} else if np != nil {
		defer np.Close()
		pubs = append(pubs, np)
	}

	eng, err := buildEngine(ctx, cfg, db, pubs, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	live := config.NewLive(cfg)
	go func() {
		err := config.Watch(ctx, path, load, live, func(next config.Config) {
			sources, err := scrape.BuildSources(next, eng.hc, log)
			if err != nil {
				log.Warn("reloaded sources rejected", zap.Error(err))
				return
			}
			eng.runner.SetSources(sources)
			log.Info("sources updated", zap.Int("count", len(sources)))
		}, log)
		if err != nil {
			log.Warn("config watch stopped", zap.Error(err))
		}
	}()

	secret := func() (string, error) { return secrets.TriggerSecret(live.Get().Trigger) }
	if _, err := secret(); err != nil {
		log.Warn("no trigger secret; /api/scrape will refuse every request", zap.Error(err))
	}

	if scheduleInProcess {
		go scheduler.Every(ctx, cfg.Trigger.Interval, "scrape", func(ctx context.Context) error {
			_, err := eng.runner.Run(ctx)
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return nil
			}
			return err
		}, log)
	}

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.App.Host, strconv.Itoa(cfg.App.Port)),
		Handler: httpapi.Handler(httpapi.Deps{
			Runner: eng.runner,
			Store:  db,
			Hub:    hub,
			Cfg:    live,
			Secret: secret,
			Logger: log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("engine listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
