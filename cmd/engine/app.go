package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/cache"
	rediscache "internhub-engine/internal/cache/redis"
	"internhub-engine/internal/config"
	"internhub-engine/internal/events"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/pipeline"
	"internhub-engine/internal/probe"
	"internhub-engine/internal/scrape"
	"internhub-engine/internal/scrape/util"
	"internhub-engine/internal/store"
)

const defaultConfigTemplate = "config/config.yml"

// resolvePaths fills the config and overlay paths from --data-dir, creating
// the user config on first start.
func resolvePaths() (string, string, error) {
	path := cfgPath
	if path == "" {
		p, err := config.EnsureUserConfig(dataDir, defaultConfigTemplate)
		if err != nil {
			return "", "", fmt.Errorf("config bootstrap: %w", err)
		}
		path = p
	}
	overlay := sourcesPath
	if overlay == "" {
		overlay = filepath.Join(dataDir, "sources.yml")
	}
	return path, overlay, nil
}

func loader(path, overlay string) func() (config.Config, error) {
	return func() (config.Config, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		if err := config.OverlaySources(&cfg, overlay); err != nil {
			return config.Config{}, fmt.Errorf("sources overlay %s: %w", overlay, err)
		}
		if strings.TrimSpace(cfg.App.DataDir) == "" || cfg.App.DataDir == "." {
			cfg.App.DataDir = dataDir
		}
		return cfg, nil
	}
}

// loadConfig returns the validated config and the loader used to reload it.
func loadConfig() (config.Config, string, func() (config.Config, error), error) {
	path, overlay, err := resolvePaths()
	if err != nil {
		return config.Config{}, "", nil, err
	}
	load := loader(path, overlay)
	cfg, err := load()
	if err != nil {
		return config.Config{}, "", nil, fmt.Errorf("config load (%s): %w", path, err)
	}
	cfg, vr := config.NormalizeAndValidate(cfg)
	if err := vr.Err(); err != nil {
		return config.Config{}, "", nil, err
	}
	return cfg, path, load, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

func logWarnings(cfg config.Config, log *zap.Logger) {
	_, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Warn("config warning", zap.String("warning", w))
	}
}

// openStore opens and migrates the configured store. An empty sqlite DSN
// means <data dir>/internhub.db.
func openStore(ctx context.Context, cfg config.Config) (*store.DB, error) {
	dsn := cfg.Store.DSN
	if store.Driver(cfg.Store.Driver) == store.DriverSQLite && dsn == "" {
		dsn = filepath.Join(cfg.App.DataDir, "internhub.db")
	}
	db, err := store.Open(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func fetchClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Fetch.Timeout}
}

// probeCache prefers redis when configured and reachable.
func probeCache(ctx context.Context, cfg config.Config, log *zap.Logger) cache.Cache {
	opts := cache.Options{
		DefaultTTL:    cfg.Probe.CacheTTL,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
	}
	if opts.RedisAddr == "" {
		return cache.NewMemory(opts)
	}
	rc := rediscache.New(opts, "internhub:probe:")
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		log.Warn("redis unreachable, probe cache is in-memory", zap.String("addr", opts.RedisAddr), zap.Error(err))
		_ = rc.Close()
		return cache.NewMemory(opts)
	}
	log.Info("probe cache on redis", zap.String("addr", opts.RedisAddr))
	return rc
}

// natsPublisher returns nil when no NATS url is configured.
func natsPublisher(cfg config.Config, log *zap.Logger) (*events.NATSPublisher, error) {
	if cfg.Events.NATSURL == "" {
		return nil, nil
	}
	return events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, 5*time.Second, log)
}

type engine struct {
	runner *pipeline.Runner
	hc     *http.Client
	cache  cache.Cache
}

func (e *engine) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// buildEngine wires sources, the prober and the pipeline runner.
func buildEngine(ctx context.Context, cfg config.Config, st pipeline.Store, pub events.Publisher, log *zap.Logger) (*engine, error) {
	hc := fetchClient(cfg)
	sources, err := scrape.BuildSources(cfg, hc, log)
	if err != nil {
		return nil, err
	}

	e := &engine{hc: hc}
	opts := pipeline.Options{
		Sources:      sources,
		Store:        st,
		Publisher:    pub,
		Logger:       log,
		LockPath:     filepath.Join(cfg.App.DataDir, "scrape.lock"),
		FetchTimeout: cfg.Fetch.Timeout,
	}
	if cfg.Probe.Enabled {
		e.cache = probeCache(ctx, cfg, log)
		opts.Prober = probe.New(probe.Config{
			BatchSize:     cfg.Probe.BatchSize,
			Stagger:       cfg.Probe.Stagger,
			Timeout:       cfg.Probe.Timeout,
			UserAgent:     cfg.Probe.UserAgent,
			MaxBodyBytes:  cfg.Probe.MaxBodyBytes,
			ClosedPhrases: cfg.Probe.ClosedPhrases,
			CacheTTL:      cfg.Probe.CacheTTL,
		}, &http.Client{},
			probe.WithLimiter(util.NewHostLimiter(cfg.Probe.PerHostRPS, cfg.Probe.PerHostBurst)),
			probe.WithCache(e.cache),
			probe.WithLogger(log),
		)
	}
	e.runner = pipeline.New(opts)
	return e, nil
}
