package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/alert"
	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/console"
	"github.com/hazz-dev/shipcheck/internal/probe"
	"github.com/hazz-dev/shipcheck/internal/report"
	"github.com/hazz-dev/shipcheck/internal/storage"
	"github.com/hazz-dev/shipcheck/internal/verify"
)

var noHistory bool

type runStore interface {
	InsertRun(ctx context.Context, r *report.Report) (string, error)
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Probe every configured endpoint and print a summary",
		RunE:  runVerify,
	}
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var store runStore
	if !noHistory {
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			// History is optional; the verification itself still runs.
			slog.Warn("run history unavailable", "path", cfg.Storage.Path, "error", err)
		} else {
			defer db.Close()
			store = db
		}
	}

	return executeVerify(cmd, cfg, probe.FromConfig(cfg.Verify), store)
}

func executeVerify(cmd *cobra.Command, cfg *config.Config, prober verify.Prober, store runStore) error {
	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)
	logger := slog.Default()

	console.Fprint(out, console.Plain, "Verifying %d endpoint(s)...", len(cfg.Verify.Endpoints))

	var mu sync.Mutex
	runner := verify.New(cfg.Verify, prober, logger)
	runner.SetOnResult(func(r probe.Result) {
		mu.Lock()
		defer mu.Unlock()
		if r.Success {
			console.Fprint(out, console.Success, "  %-10s %-10s PASS", r.Endpoint, r.Probe)
		} else {
			console.Fprint(out, console.Error, "  %-10s %-10s FAIL (%s)", r.Endpoint, r.Probe, r.Error)
		}
	})

	rep := runner.Run(ctx)
	if err := report.Render(out, rep); err != nil {
		return err
	}

	var runID string
	if store != nil {
		id, err := store.InsertRun(ctx, rep)
		if err != nil {
			logger.Warn("recording run", "error", err)
			console.Fprint(out, console.Warning, "Could not record this run in the history database: %v", err)
		} else {
			runID = id
			logger.Debug("run recorded", "run", id)
		}
	}

	if _, err := alert.New(cfg.Alerts.Webhook, logger).Notify(ctx, runID, rep); err != nil {
		console.Fprint(out, console.Warning, "Could not deliver the webhook alert: %v", err)
	}

	if !rep.Passed() {
		return fmt.Errorf("primary endpoint %q failed its functional probe", rep.Primary)
	}
	return nil
}
