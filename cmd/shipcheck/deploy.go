package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/console"
	"github.com/hazz-dev/shipcheck/internal/deploy"
)

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the backend with the configured CLI and record its URL",
		RunE:  runDeploy,
	}
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tool := deploy.NewCLITool(cfg.Deploy, deploy.NewOSExecutor())
	return executeDeploy(cmd, cfg, tool)
}

func executeDeploy(cmd *cobra.Command, cfg *config.Config, tool deploy.Tool) error {
	out := cmd.OutOrStdout()
	console.Fprint(out, console.Plain, "Deploying to %s...", cfg.Deploy.Platform)

	orch := deploy.New(cfg.Deploy, tool, out, slog.Default())
	res, err := orch.Run(commandContext(cmd))
	if err != nil {
		if errors.Is(err, deploy.ErrDeployFailed) {
			printTroubleshooting(out, cfg.Deploy)
		}
		return err
	}

	if !res.URLFound {
		console.Fprint(out, console.Warning, "Deployment completed, but the URL could not be found in the output.")
		console.Fprint(out, console.Warning, "Check the %s dashboard for the deployment URL.", cfg.Deploy.Platform)
		return nil
	}

	console.Fprint(out, console.Success, "Deployment successful!")
	console.Fprint(out, console.Success, "URL: %s", res.URL)
	console.Fprint(out, console.Plain, "Deployment info saved to %s", res.RecordPath)
	printNextSteps(out, res.URL)
	return nil
}

func printNextSteps(w io.Writer, url string) {
	console.Heading(w, "NEXT STEPS")
	console.Fprint(w, console.Plain, "1. Update the client base URL constant to:")
	console.Fprint(w, console.Plain, "   %s", url)
	console.Fprint(w, console.Plain, "2. Refresh the client dependencies")
	console.Fprint(w, console.Plain, "3. Re-test the chatbot, e.g. with 'shipcheck verify'")
}

func printTroubleshooting(w io.Writer, cfg config.DeployConfig) {
	console.Heading(w, "TROUBLESHOOTING")
	console.Fprint(w, console.Plain, "1. Check your internet connection")
	console.Fprint(w, console.Plain, "2. Verify your %s account is active", cfg.Platform)
	console.Fprint(w, console.Plain, "3. Try deploying manually: cd %s && %s", cfg.Dir, manualCommand(cfg))
}

func manualCommand(cfg config.DeployConfig) string {
	line := cfg.Tool
	for _, a := range cfg.Args {
		if a == "--yes" {
			continue
		}
		line += " " + a
	}
	return line
}
