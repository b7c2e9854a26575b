package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/hazz-dev/shipcheck/internal/config"
	"github.com/hazz-dev/shipcheck/internal/probe"
	"github.com/hazz-dev/shipcheck/internal/report"
	"github.com/hazz-dev/shipcheck/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(endpoint string, kind probe.Kind, ok bool) probe.Result {
	r := probe.Result{
		Endpoint:  endpoint,
		Probe:     kind,
		Success:   ok,
		Duration:  42 * time.Millisecond,
		CheckedAt: time.Now().UTC(),
	}
	if ok {
		r.StatusCode = 200
		if kind == probe.KindFunctional {
			r.Snippet = "Salah is the second pillar of Islam."
		}
	} else {
		r.Error = probe.ErrNetwork
		r.Detail = "connect: connection refused"
	}
	return r
}

// makeReport builds a two-endpoint report: cloud always passes, local passes iff localOK.
func makeReport(localOK bool) *report.Report {
	return report.Build([]report.Outcome{
		{
			Endpoint:   config.Endpoint{Name: "cloud", URL: "https://example.com", Kind: config.KindCloud},
			Health:     makeResult("cloud", probe.KindHealth, true),
			Functional: makeResult("cloud", probe.KindFunctional, true),
		},
		{
			Endpoint:   config.Endpoint{Name: "local", URL: "http://localhost:3000", Kind: config.KindLocal},
			Health:     makeResult("local", probe.KindHealth, localOK),
			Functional: makeResult("local", probe.KindFunctional, localOK),
		},
	}, "cloud", time.Now().Add(-time.Second))
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)
	// If we can insert, schema is correct.
	if _, err := db.InsertRun(context.Background(), makeReport(true)); err != nil {
		t.Fatalf("InsertRun after Open: %v", err)
	}
}

func TestInsertRun_And_LatestRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertRun(ctx, makeReport(false))
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run ID")
	}

	got, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got == nil {
		t.Fatal("expected a run, got nil")
	}
	if got.ID != id {
		t.Errorf("expected run %q, got %q", id, got.ID)
	}
	if !got.Passed {
		t.Error("expected run to be stored as passed (primary cloud succeeded)")
	}
	if got.Primary != "cloud" {
		t.Errorf("expected primary 'cloud', got %q", got.Primary)
	}
	if len(got.Probes) != 4 {
		t.Fatalf("expected 4 probes, got %d", len(got.Probes))
	}

	want := []struct {
		endpoint, probe string
		success         bool
	}{
		{"cloud", "health", true},
		{"cloud", "functional", true},
		{"local", "health", false},
		{"local", "functional", false},
	}
	for i, w := range want {
		p := got.Probes[i]
		if p.Endpoint != w.endpoint || p.Probe != w.probe || p.Success != w.success {
			t.Errorf("probe %d: expected %s/%s success=%v, got %s/%s success=%v",
				i, w.endpoint, w.probe, w.success, p.Endpoint, p.Probe, p.Success)
		}
	}
	if got.Probes[1].Snippet == "" {
		t.Error("expected functional snippet to be stored")
	}
	if got.Probes[2].ErrorKind != "NetworkError" {
		t.Errorf("expected error kind NetworkError, got %q", got.Probes[2].ErrorKind)
	}
	if got.Probes[3].Kind != "local" {
		t.Errorf("expected endpoint kind 'local', got %q", got.Probes[3].Kind)
	}
	if got.Probes[0].ResponseMs != 42 {
		t.Errorf("expected 42ms, got %d", got.Probes[0].ResponseMs)
	}
}

func TestLatestRun_ReturnsNilWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty DB, got %+v", got)
	}
}

func TestLatestRun_ReturnsMostRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.InsertRun(ctx, makeReport(true)); err != nil {
		t.Fatal(err)
	}
	second, err := db.InsertRun(ctx, makeReport(false))
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second {
		t.Errorf("expected latest run %q, got %q", second, got.ID)
	}
}

func TestGetRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertRun(ctx, makeReport(true))
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("expected run %q, got %+v", id, got)
	}
	if len(got.Probes) != 4 {
		t.Errorf("expected 4 probes, got %d", len(got.Probes))
	}

	missing, err := db.GetRun(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetRun unknown: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown run, got %+v", missing)
	}
}

func TestRecentRuns_Pagination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := db.InsertRun(ctx, makeReport(i%2 == 0)); err != nil {
			t.Fatal(err)
		}
	}

	runs, total, err := db.RecentRuns(ctx, 5, 0)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if total != 10 {
		t.Errorf("expected total 10, got %d", total)
	}
	if len(runs) != 5 {
		t.Errorf("expected 5 results, got %d", len(runs))
	}

	// Second page
	runs2, total2, err := db.RecentRuns(ctx, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if total2 != 10 {
		t.Errorf("expected total 10 on page 2, got %d", total2)
	}
	if len(runs2) != 5 {
		t.Errorf("expected 5 results on page 2, got %d", len(runs2))
	}
	if runs[0].ID == runs2[0].ID {
		t.Error("pages should not overlap")
	}
}

func TestRecentRuns_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	runs, total, err := db.RecentRuns(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if total != 0 {
		t.Errorf("expected total 0, got %d", total)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 results, got %d", len(runs))
	}
}

func TestPassRate_AllPass(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := db.InsertRun(ctx, makeReport(false)); err != nil {
			t.Fatal(err)
		}
	}

	pct, err := db.PassRate(ctx, "cloud", "functional", 10)
	if err != nil {
		t.Fatalf("PassRate: %v", err)
	}
	if pct != 100.0 {
		t.Errorf("expected 100%%, got %.2f", pct)
	}
}

func TestPassRate_HalfPass(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := db.InsertRun(ctx, makeReport(true)); err != nil {
			t.Fatal(err)
		}
		if _, err := db.InsertRun(ctx, makeReport(false)); err != nil {
			t.Fatal(err)
		}
	}

	pct, err := db.PassRate(ctx, "local", "health", 10)
	if err != nil {
		t.Fatalf("PassRate: %v", err)
	}
	if pct != 50.0 {
		t.Errorf("expected 50%%, got %.2f", pct)
	}
}

func TestPassRate_EmptyDB(t *testing.T) {
	db := openTestDB(t)
	pct, err := db.PassRate(context.Background(), "cloud", "health", 100)
	if err != nil {
		t.Fatalf("PassRate: %v", err)
	}
	if pct != 0.0 {
		t.Errorf("expected 0%%, got %.2f", pct)
	}
}

func TestClose(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
