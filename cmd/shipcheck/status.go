package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/console"
	"github.com/hazz-dev/shipcheck/internal/storage"
)

type statusStore interface {
	LatestRun(ctx context.Context) (*storage.Run, error)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest recorded verification run",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd, db)
}

func executeStatus(cmd *cobra.Command, db statusStore) error {
	out := cmd.OutOrStdout()
	run, err := db.LatestRun(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if run == nil {
		fmt.Fprintln(out, "No verification history. Run 'shipcheck verify' first.")
		return nil
	}

	verdict, kind := "passed", console.Success
	if !run.Passed {
		verdict, kind = "failed", console.Error
	}
	console.Fprint(out, kind, "Run %s %s (primary %q)", run.ID, verdict, run.Primary)
	console.Fprint(out, console.Plain, "Finished %s", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))

	return printProbes(out, run.Probes)
}

func printProbes(w io.Writer, probes []storage.Probe) error {
	data := make([][]string, 0, len(probes))
	for _, p := range probes {
		result := "FAIL"
		if p.Success {
			result = "PASS"
		}
		code := "-"
		if p.StatusCode > 0 {
			code = strconv.Itoa(p.StatusCode)
		}
		detail := p.Snippet
		if !p.Success {
			detail = p.ErrorKind
			if p.Detail != "" {
				detail += ": " + p.Detail
			}
		}
		data = append(data, []string{
			p.Endpoint,
			p.Probe,
			result,
			code,
			(time.Duration(p.ResponseMs) * time.Millisecond).String(),
			detail,
		})
	}

	table, err := console.Table([]string{"ENDPOINT", "PROBE", "RESULT", "STATUS", "RESPONSE", "DETAIL"}, data)
	if err != nil {
		return fmt.Errorf("rendering status: %w", err)
	}
	io.WriteString(w, table) // nolint:errcheck
	return nil
}
