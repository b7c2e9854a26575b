// Package probe sends the health and functional requests used to verify a
// deployed service endpoint and classifies how each one settled.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazz-dev/shipcheck/internal/config"
)

const (
	healthPath     = "/health"
	functionalPath = "/chat"

	snippetLen = 100

	// Non-200 bodies are only kept for diagnostics.
	maxErrorBody = 64 << 10
)

// ChatRequest is the body of the functional probe.
type ChatRequest struct {
	Message     string `json:"message"`
	UserContext string `json:"userContext"`
}

type chatResponse struct {
	Text *string `json:"text"`
}

// Options configures a Prober.
type Options struct {
	HealthTimeout     time.Duration
	FunctionalTimeout time.Duration
	Message           string
	UserContext       string
}

// Prober runs health and functional probes. It holds no per-probe state and
// is safe for concurrent use.
type Prober struct {
	opts   Options
	client *http.Client
}

// New creates a Prober. Every request opens and closes its own connection.
func New(opts Options) *Prober {
	return &Prober{
		opts: opts,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		},
	}
}

// FromConfig builds a Prober from the verify section of the configuration.
func FromConfig(cfg config.VerifyConfig) *Prober {
	return New(Options{
		HealthTimeout:     cfg.HealthTimeout.Duration,
		FunctionalTimeout: cfg.FunctionalTimeout.Duration,
		Message:           cfg.Message,
		UserContext:       cfg.UserContext,
	})
}

// Resolve parses base and makes the port explicit: 443 for https, 80 otherwise.
func Resolve(base string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", base, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url %q has no host", base)
	}
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	return u, nil
}

func endpointURL(base, path string) (string, error) {
	u, err := Resolve(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	return u.String(), nil
}

// Health sends GET {base}/health. Only a 200 status counts as success.
func (p *Prober) Health(ctx context.Context, ep config.Endpoint) Result {
	start := time.Now()
	result := Result{Endpoint: ep.Name, Probe: KindHealth, CheckedAt: start}

	target, err := endpointURL(ep.URL, healthPath)
	if err != nil {
		return fail(result, ErrNetwork, err.Error(), start)
	}

	ctx, cancel := withTimeout(ctx, p.opts.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fail(result, ErrNetwork, fmt.Sprintf("creating request: %v", err), start)
	}

	status, body, err := p.do(req)
	if err != nil {
		return fail(result, classify(ctx, err), err.Error(), start)
	}
	result.StatusCode = status
	if status != http.StatusOK {
		result.Body = string(body)
		return fail(result, ErrHTTP, fmt.Sprintf("expected status 200, got %d", status), start)
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// Functional sends POST {base}/chat with the configured test message and
// expects a JSON body with a string "text" field.
func (p *Prober) Functional(ctx context.Context, ep config.Endpoint) Result {
	start := time.Now()
	result := Result{Endpoint: ep.Name, Probe: KindFunctional, CheckedAt: start}

	target, err := endpointURL(ep.URL, functionalPath)
	if err != nil {
		return fail(result, ErrNetwork, err.Error(), start)
	}

	payload, err := json.Marshal(ChatRequest{Message: p.opts.Message, UserContext: p.opts.UserContext})
	if err != nil {
		return fail(result, ErrNetwork, fmt.Sprintf("encoding request: %v", err), start)
	}

	ctx, cancel := withTimeout(ctx, p.opts.FunctionalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fail(result, ErrNetwork, fmt.Sprintf("creating request: %v", err), start)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := p.do(req)
	if err != nil {
		return fail(result, classify(ctx, err), err.Error(), start)
	}
	result.StatusCode = status
	if status != http.StatusOK {
		result.Body = string(body)
		return fail(result, ErrHTTP, fmt.Sprintf("expected status 200, got %d", status), start)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		result.Body = string(clip(body))
		return fail(result, ErrParse, fmt.Sprintf("invalid JSON response: %v", err), start)
	}
	if resp.Text == nil {
		result.Body = string(clip(body))
		return fail(result, ErrParse, `response has no "text" field`, start)
	}

	result.Success = true
	result.Snippet = truncate(*resp.Text, snippetLen)
	result.Duration = time.Since(start)
	return result
}

// do sends req and reads the body so that a deadline expiring mid-body still
// settles as an error. A 200 body is read in full; any other body is capped
// at maxErrorBody.
func (p *Prober) do(req *http.Request) (int, []byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.StatusCode != http.StatusOK {
		r = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func classify(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}

func fail(r Result, kind ErrorKind, detail string, start time.Time) Result {
	r.Success = false
	r.Error = kind
	r.Detail = detail
	r.Duration = time.Since(start)
	return r
}

func clip(body []byte) []byte {
	if len(body) > maxErrorBody {
		return body[:maxErrorBody]
	}
	return body
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
