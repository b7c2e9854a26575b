package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/report"
)

// Alerter posts a webhook summary after a verification run.
type Alerter struct {
	webhookURL string
	always     bool
	client     *http.Client
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(cfg config.WebhookConfig, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: cfg.URL,
		always:     cfg.Always,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type endpointSummary struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Health     string `json:"health"`
	Functional string `json:"functional"`
	Error      string `json:"error,omitempty"`
}

type webhookPayload struct {
	RunID      string            `json:"run_id,omitempty"`
	Status     string            `json:"status"`
	Primary    string            `json:"primary"`
	Passed     int               `json:"passed"`
	Failed     int               `json:"failed"`
	Endpoints  []endpointSummary `json:"endpoints"`
	FinishedAt string            `json:"finished_at"`
	Source     string            `json:"source"`
}

// Notify sends the run summary when the run failed, or on every run when the
// webhook is configured with always. It reports whether a webhook was sent.
// runID may be empty when the run was not persisted.
func (a *Alerter) Notify(ctx context.Context, runID string, r *report.Report) (bool, error) {
	if a.webhookURL == "" {
		return false, nil
	}
	if r.Passed() && !a.always {
		return false, nil
	}

	if err := a.send(ctx, buildPayload(runID, r)); err != nil {
		a.logger.Error("sending webhook", "url", a.webhookURL, "error", err)
		return false, err
	}
	a.logger.Info("webhook sent", "url", a.webhookURL, "passed", r.Passed())
	return true, nil
}

func buildPayload(runID string, r *report.Report) webhookPayload {
	passed, failed := r.Counts()
	status := "failed"
	if r.Passed() {
		status = "passed"
	}

	endpoints := make([]endpointSummary, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		s := endpointSummary{
			Name:       o.Endpoint.Name,
			Kind:       o.Endpoint.Kind,
			Health:     o.Health.Status(),
			Functional: o.Functional.Status(),
		}
		switch {
		case !o.Functional.Success:
			s.Error = string(o.Functional.Error)
		case !o.Health.Success:
			s.Error = string(o.Health.Error)
		}
		endpoints = append(endpoints, s)
	}

	return webhookPayload{
		RunID:      runID,
		Status:     status,
		Primary:    r.Primary,
		Passed:     passed,
		Failed:     failed,
		Endpoints:  endpoints,
		FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
		Source:     "shipcheck",
	}
}

func (a *Alerter) send(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
