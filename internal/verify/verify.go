// Package verify runs the health and functional probes for every configured
// endpoint and collects the results into a report.
package verify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/probe"
	"github.com/hazz-dev/shipcheck/internal/report"
)

// Prober performs the two probe kinds against one endpoint.
type Prober interface {
	Health(ctx context.Context, ep config.Endpoint) probe.Result
	Functional(ctx context.Context, ep config.Endpoint) probe.Result
}

type probeFunc func(ctx context.Context, ep config.Endpoint) probe.Result

// Runner executes one verification pass.
type Runner struct {
	endpoints []config.Endpoint
	primary   string
	parallel  bool
	prober    Prober
	onResult  func(probe.Result)
	logger    *slog.Logger
}

// New creates a Runner. Pass nil logger to use the default logger.
func New(cfg config.VerifyConfig, prober Prober, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		endpoints: cfg.Endpoints,
		primary:   cfg.Primary,
		parallel:  cfg.Parallel,
		prober:    prober,
		logger:    logger,
	}
}

// SetOnResult sets the callback invoked as each probe settles.
// In parallel mode it may be called from several goroutines at once.
func (r *Runner) SetOnResult(fn func(probe.Result)) {
	r.onResult = fn
}

// Run probes every endpoint: all health probes first, then all functional
// probes. A failing endpoint never prevents the others from being probed.
func (r *Runner) Run(ctx context.Context) *report.Report {
	started := time.Now()

	health := r.phase(ctx, probe.KindHealth, r.prober.Health)
	functional := r.phase(ctx, probe.KindFunctional, r.prober.Functional)

	outcomes := make([]report.Outcome, len(r.endpoints))
	for i, ep := range r.endpoints {
		outcomes[i] = report.Outcome{
			Endpoint:   ep,
			Health:     health[i],
			Functional: functional[i],
		}
	}
	return report.Build(outcomes, r.primary, started)
}

func (r *Runner) phase(ctx context.Context, kind probe.Kind, fn probeFunc) []probe.Result {
	results := make([]probe.Result, len(r.endpoints))

	if !r.parallel {
		for i, ep := range r.endpoints {
			results[i] = r.runProbe(ctx, kind, ep, fn)
		}
		return results
	}

	// Probes never return errors; the group is only used to wait.
	var g errgroup.Group
	for i, ep := range r.endpoints {
		i, ep := i, ep
		g.Go(func() error {
			results[i] = r.runProbe(ctx, kind, ep, fn)
			return nil
		})
	}
	g.Wait()
	return results
}

func (r *Runner) runProbe(ctx context.Context, kind probe.Kind, ep config.Endpoint, fn probeFunc) probe.Result {
	result := fn(ctx, ep)

	if result.Success {
		r.logger.Info("probe passed",
			"endpoint", ep.Name,
			"probe", kind,
			"status", result.StatusCode,
			"duration", result.Duration,
		)
	} else {
		r.logger.Warn("probe failed",
			"endpoint", ep.Name,
			"probe", kind,
			"error", result.Error,
			"status", result.StatusCode,
			"detail", result.Detail,
		)
	}

	if r.onResult != nil {
		r.onResult(result)
	}
	return result
}
