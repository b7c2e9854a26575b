package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazz-dev/shipcheck/internal/config"
)

// Outcome is the result of a capability call on the deploy tool.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "failed"
}

// Tool is the external deploy CLI.
type Tool interface {
	Version(ctx context.Context) Outcome
	Install(ctx context.Context) Outcome
	WhoAmI(ctx context.Context) Outcome
	Login(ctx context.Context) Outcome
	// Deploy publishes dir and returns the tool's combined output.
	Deploy(ctx context.Context, dir string) (string, error)
}

// CLITool drives a deploy CLI such as vercel through a CommandExecutor.
type CLITool struct {
	bin     string
	install []string
	args    []string
	exec    CommandExecutor
}

// NewCLITool creates a CLITool from the deploy configuration.
func NewCLITool(cfg config.DeployConfig, exec CommandExecutor) *CLITool {
	return &CLITool{
		bin:     cfg.Tool,
		install: cfg.Install,
		args:    cfg.Args,
		exec:    exec,
	}
}

func (t *CLITool) Version(ctx context.Context) Outcome {
	_, _, err := t.exec.Run(ctx, "", t.bin, "--version")
	return outcome(err)
}

func (t *CLITool) Install(ctx context.Context) Outcome {
	if len(t.install) == 0 {
		return OutcomeFailed
	}
	return outcome(t.exec.Interactive(ctx, t.install[0], t.install[1:]...))
}

func (t *CLITool) WhoAmI(ctx context.Context) Outcome {
	_, _, err := t.exec.Run(ctx, "", t.bin, "whoami")
	return outcome(err)
}

func (t *CLITool) Login(ctx context.Context) Outcome {
	return outcome(t.exec.Interactive(ctx, t.bin, "login"))
}

func (t *CLITool) Deploy(ctx context.Context, dir string) (string, error) {
	stdout, stderr, err := t.exec.Run(ctx, dir, t.bin, t.args...)
	output := string(stdout) + string(stderr)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return output, fmt.Errorf("%s %s: %w: %s", t.bin, strings.Join(t.args, " "), err, msg)
		}
		return output, fmt.Errorf("%s %s: %w", t.bin, strings.Join(t.args, " "), err)
	}
	return output, nil
}

func outcome(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}

var _ Tool = (*CLITool)(nil)
