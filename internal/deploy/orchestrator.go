// Package deploy drives an external deploy CLI: it makes sure the tool is
// installed and logged in, bootstraps the deployment configuration, deploys,
// and records the public URL found in the tool's output.
package deploy

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/console"
)

// Result describes a completed deployment run.
type Result struct {
	ConfigPath    string
	ConfigCreated bool
	Output        string
	URL           string
	URLFound      bool
	Record        *Record
	RecordPath    string
}

// Orchestrator runs one deployment: preflight, config bootstrap, auth check,
// deploy, URL extraction and record persistence, in that order.
type Orchestrator struct {
	cfg    config.DeployConfig
	tool   Tool
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator. Progress messages go to out; pass nil logger
// to use the default logger.
func New(cfg config.DeployConfig, tool Tool, out io.Writer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{
		cfg:    cfg,
		tool:   tool,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock used to timestamp deployment records.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Run performs the deployment. Fatal failures are returned as *Error; a
// missing URL is not an error and leaves Result.URLFound false.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if err := o.preflight(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		ConfigPath: filepath.Join(o.cfg.Dir, o.cfg.ConfigFile),
		RecordPath: o.cfg.RecordFile,
	}

	console.Fprint(o.out, console.Plain, "Working in directory: %s", o.cfg.Dir)
	info, err := os.Stat(o.cfg.Dir)
	if err != nil || !info.IsDir() {
		return nil, newError(ErrConfigWriteFailed, "target directory not found: "+o.cfg.Dir, err)
	}

	created, err := EnsureConfig(res.ConfigPath, DefaultConfig(o.cfg))
	if err != nil {
		return nil, newError(ErrConfigWriteFailed, "bootstrapping deployment config", err)
	}
	res.ConfigCreated = created
	if created {
		o.logger.Info("deployment config created", "path", res.ConfigPath)
		console.Fprint(o.out, console.Success, "Created %s", res.ConfigPath)
	} else {
		o.logger.Info("deployment config present", "path", res.ConfigPath)
	}

	if err := o.authenticate(ctx); err != nil {
		return nil, err
	}

	console.Fprint(o.out, console.Plain, "Deploying with %s, this may take a few minutes...", o.cfg.Tool)
	deployCtx := ctx
	if o.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		deployCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout.Duration)
		defer cancel()
	}
	output, err := o.tool.Deploy(deployCtx, o.cfg.Dir)
	res.Output = output
	if err != nil {
		o.logger.Error("deploy failed", "tool", o.cfg.Tool, "error", err)
		e := newError(ErrDeployFailed, "deploy command failed", err)
		e.Output = output
		return nil, e
	}

	url, found := ExtractURL(output, o.cfg.Domain)
	if !found {
		o.logger.Warn("deployment URL not found in output", "domain", o.cfg.Domain)
		return res, nil
	}
	res.URL = url
	res.URLFound = true

	rec := Record{URL: url, DeployedAt: o.now().UTC(), Platform: o.cfg.Platform}
	if err := SaveRecord(res.RecordPath, rec); err != nil {
		return nil, newError(ErrRecordWriteFailed, "saving deployment record", err)
	}
	res.Record = &rec
	o.logger.Info("deployment recorded", "url", url, "path", res.RecordPath)
	return res, nil
}

// preflight makes sure the deploy tool can be invoked, installing it once if not.
func (o *Orchestrator) preflight(ctx context.Context) error {
	if o.tool.Version(ctx) == OutcomeOK {
		console.Fprint(o.out, console.Success, "%s CLI is installed", o.cfg.Tool)
		return nil
	}

	console.Fprint(o.out, console.Warning, "%s CLI not found. Installing...", o.cfg.Tool)
	if o.tool.Install(ctx) != OutcomeOK {
		o.logger.Error("installing deploy tool failed", "tool", o.cfg.Tool)
		return newError(ErrToolNotFound, o.cfg.Tool+" CLI is not installed and installing it failed", nil)
	}
	console.Fprint(o.out, console.Success, "%s CLI installed successfully", o.cfg.Tool)
	return nil
}

// authenticate checks the current identity and falls back to one interactive login.
func (o *Orchestrator) authenticate(ctx context.Context) error {
	console.Fprint(o.out, console.Plain, "Checking %s login status...", o.cfg.Tool)
	if o.tool.WhoAmI(ctx) == OutcomeOK {
		console.Fprint(o.out, console.Success, "Already logged in to %s", o.cfg.Platform)
		return nil
	}

	console.Fprint(o.out, console.Warning, "Please log in to %s:", o.cfg.Platform)
	if o.tool.Login(ctx) != OutcomeOK {
		o.logger.Error("login failed", "tool", o.cfg.Tool)
		return newError(ErrAuthRequired, "logging in to "+o.cfg.Platform+" failed", nil)
	}
	console.Fprint(o.out, console.Success, "Logged in successfully")
	return nil
}
