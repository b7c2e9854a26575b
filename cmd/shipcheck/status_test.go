package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/shipcheck/internal/storage"
)

type mockStatusStore struct {
	run *storage.Run
	err error
}

func (m *mockStatusStore) LatestRun(_ context.Context) (*storage.Run, error) {
	return m.run, m.err
}

func TestExecuteStatus_EmptyDB(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	err := executeStatus(cmd, &mockStatusStore{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No verification history") {
		t.Errorf("expected 'No verification history' message, got:\n%s", output)
	}
}

func TestExecuteStatus_WithRun(t *testing.T) {
	now := time.Now()
	run := &storage.Run{
		ID:         "5f0c2a",
		Primary:    "cloud",
		Passed:     true,
		StartedAt:  now.Add(-time.Second),
		FinishedAt: now,
		Probes: []storage.Probe{
			{Endpoint: "cloud", Probe: "health", Success: true, StatusCode: 200, ResponseMs: 42, CheckedAt: now},
			{Endpoint: "cloud", Probe: "functional", Success: true, StatusCode: 200, Snippet: "Salah is", ResponseMs: 310, CheckedAt: now},
			{Endpoint: "local", Probe: "health", Success: false, ErrorKind: "NetworkError", Detail: "connection refused", CheckedAt: now},
			{Endpoint: "local", Probe: "functional", Success: false, ErrorKind: "Timeout", CheckedAt: now},
		},
	}

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := executeStatus(cmd, &mockStatusStore{run: run}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"5f0c2a", "passed", "ENDPOINT", "PASS", "FAIL", "NetworkError: connection refused", "Timeout", "42ms", "Salah is"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestExecuteStatus_StoreError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := executeStatus(cmd, &mockStatusStore{err: errors.New("db locked")})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "querying status") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
