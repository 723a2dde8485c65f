package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"internhub-engine/internal/scheduler"
	"internhub-engine/internal/secrets"
	"internhub-engine/internal/trigger"
)

var (
	cronTarget string
	cronOnce   bool
)

func init() {
	cronCmd.Flags().StringVar(&cronTarget, "target", "", "trigger endpoint (default cron.target_url)")
	cronCmd.Flags().BoolVar(&cronOnce, "once", false, "fire a single trigger and exit")
}

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Fire the scrape trigger of a running engine on a schedule",
	Long: `Call POST /api/scrape on a running engine every cron.interval using the
trigger secret. A run that is already in progress is skipped, not retried.

Examples:
  engine cron
  engine cron --target https://internhub.example.com/api/scrape --once`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, _, _, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		secret, err := secrets.TriggerSecret(cfg.Trigger)
		if err != nil {
			return err
		}
		target := cronTarget
		if target == "" {
			target = cfg.Cron.TargetURL
		}

		client := trigger.New(target, secret, nil, log)
		fire := func(ctx context.Context) error {
			_, err := client.Fire(ctx)
			if errors.Is(err, trigger.ErrSkipped) {
				return nil
			}
			return err
		}

		if cronOnce {
			return fire(ctx)
		}
		scheduler.Every(ctx, cfg.Cron.Interval, "cron-trigger", fire, log)
		return nil
	},
}
