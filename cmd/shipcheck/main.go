package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/console"
	"github.com/hazz-dev/shipcheck/internal/version"
)

const defaultConfigFile = "shipcheck.yml"

var (
	cfgFile string
	noColor bool
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shipcheck",
		Short:         "Deploy a chatbot backend and verify its endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			console.InitColors(noColor)
			setupLogging(verbose)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress details to stderr")

	root.AddCommand(versionCmd())
	root.AddCommand(deployCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(serveCmd())

	return root
}

// reportError prints the error that ended a command.
func reportError(w io.Writer, err error) {
	console.Fprint(w, console.Error, "Error: %v", err)
}

// setupLogging keeps structured logs on stderr, out of the operator console.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shipcheck %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// loadConfig reads the config file. A missing file at the default path falls
// back to the built-in configuration; an explicitly requested file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using built-in defaults", "path", cfgFile)
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
