package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"internhub-engine/internal/events"
	"internhub-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass and print the summary",
	Long: `Run the pipeline once against the configured store and print the result
as JSON. Exits non-zero when the run fails or another run holds the lock.`,
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
		logWarnings(cfg, log)

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		var pubs events.Fanout
		if np, err := natsPublisher(cfg, log); err != nil {
			log.Warn("nats unavailable", zap.Error(err))
		} else if np != nil {
			defer np.Close()
			pubs = append(pubs, np)
		}

		eng, err := buildEngine(ctx, cfg, db, pubs, log)
		if err != nil {
			return err
		}
		defer eng.Close()

		res, runErr := eng.runner.Run(ctx)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary{
			Success:  runErr == nil,
			Error:    errString(runErr),
			Duration: res.DurationString(),
			Result:   res,
		})
		return runErr
	},
}

type runSummary struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
	pipeline.Result
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
