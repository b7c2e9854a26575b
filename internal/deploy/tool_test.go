package deploy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/deploy"
)

// mockExecutor implements deploy.CommandExecutor for testing.
type mockExecutor struct {
	runs         []string
	interactives []string
	dirs         []string

	stdout, stderr []byte
	runErr         error
	failRun        map[string]bool
	interactiveErr error
}

func (m *mockExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	m.runs = append(m.runs, line)
	m.dirs = append(m.dirs, dir)
	if m.failRun[line] {
		return nil, []byte("command failed"), errors.New("exit status 1")
	}
	return m.stdout, m.stderr, m.runErr
}

func (m *mockExecutor) Interactive(ctx context.Context, name string, args ...string) error {
	m.interactives = append(m.interactives, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return m.interactiveErr
}

func TestCLITool_Commands(t *testing.T) {
	exec := &mockExecutor{}
	tool := deploy.NewCLITool(config.Default().Deploy, exec)
	ctx := context.Background()

	assert.Equal(t, deploy.OutcomeOK, tool.Version(ctx))
	assert.Equal(t, deploy.OutcomeOK, tool.WhoAmI(ctx))
	assert.Equal(t, deploy.OutcomeOK, tool.Install(ctx))
	assert.Equal(t, deploy.OutcomeOK, tool.Login(ctx))

	assert.Equal(t, []string{"vercel --version", "vercel whoami"}, exec.runs)
	assert.Equal(t, []string{"npm install -g vercel", "vercel login"}, exec.interactives)
}

func TestCLITool_FailedOutcomes(t *testing.T) {
	exec := &mockExecutor{
		failRun:        map[string]bool{"vercel --version": true, "vercel whoami": true},
		interactiveErr: errors.New("exit status 1"),
	}
	tool := deploy.NewCLITool(config.Default().Deploy, exec)
	ctx := context.Background()

	assert.Equal(t, deploy.OutcomeFailed, tool.Version(ctx))
	assert.Equal(t, deploy.OutcomeFailed, tool.WhoAmI(ctx))
	assert.Equal(t, deploy.OutcomeFailed, tool.Install(ctx))
	assert.Equal(t, deploy.OutcomeFailed, tool.Login(ctx))
	assert.Equal(t, "failed", deploy.OutcomeFailed.String())
}

func TestCLITool_Deploy(t *testing.T) {
	exec := &mockExecutor{
		stdout: []byte("Production: https://chatbot.vercel.app\n"),
		stderr: []byte("Vercel CLI 33.0.0\n"),
	}
	cfg := config.Default().Deploy
	cfg.Dir = "lib/ChatBot/Server"
	tool := deploy.NewCLITool(cfg, exec)

	out, err := tool.Deploy(context.Background(), cfg.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "https://chatbot.vercel.app")
	assert.Contains(t, out, "Vercel CLI 33.0.0")
	assert.Equal(t, []string{"vercel --prod --yes"}, exec.runs)
	assert.Equal(t, []string{"lib/ChatBot/Server"}, exec.dirs)
}

func TestCLITool_DeployErrorCarriesStderr(t *testing.T) {
	exec := &mockExecutor{
		stderr: []byte("Error: No existing credentials found.\n"),
		runErr: errors.New("exit status 1"),
	}
	tool := deploy.NewCLITool(config.Default().Deploy, exec)

	out, err := tool.Deploy(context.Background(), ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: No existing credentials found.")
	assert.Contains(t, out, "No existing credentials found")
}

func TestCLITool_InstallWithoutCommand(t *testing.T) {
	cfg := config.Default().Deploy
	cfg.Install = nil
	exec := &mockExecutor{}
	tool := deploy.NewCLITool(cfg, exec)

	assert.Equal(t, deploy.OutcomeFailed, tool.Install(context.Background()))
	assert.Empty(t, exec.interactives)
}

func TestOSExecutor_Run(t *testing.T) {
	exec := deploy.NewOSExecutor()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o644))

	stdout, _, err := exec.Run(context.Background(), dir, "ls")
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "marker.txt")

	_, _, err = exec.Run(context.Background(), "", "false")
	assert.Error(t, err)
}
