package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Live holds the current configuration and swaps it on reload.
type Live struct {
	v atomic.Value // Config
}

func NewLive(cfg Config) *Live {
	l := &Live{}
	l.v.Store(cfg)
	return l
}

func (l *Live) Get() Config  { return l.v.Load().(Config) }
func (l *Live) Set(c Config) { l.v.Store(c) }

// Watch reloads path whenever it changes and stores valid results in live.
// Invalid edits are logged and the previous config stays active. The parent
// directory is watched because editors usually replace the file.
// load defaults to Load(path). Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, load func() (Config, error), live *Live, onChange func(Config), logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if load == nil {
		load = func() (Config, error) { return Load(abs) }
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := load()
			if err != nil {
				logger.Warn("config reload failed", zap.String("path", abs), zap.Error(err))
				continue
			}
			cfg, res := NormalizeAndValidate(cfg)
			if !res.OK() {
				logger.Warn("config reload rejected", zap.String("path", abs), zap.Strings("errors", res.Errors))
				continue
			}
			live.Set(cfg)
			logger.Info("config reloaded", zap.String("path", abs), zap.Int("warnings", len(res.Warnings)))
			if onChange != nil {
				onChange(cfg)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
