package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"phylo/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Millisecond)

	run := &models.Run{InputPath: "/data/a.fasta", InputBytes: 42, StartedAt: started}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(run.ID, RunIDPrefix+"-") {
		t.Fatalf("expected generated run id, got %q", run.ID)
	}
	if run.State != models.StateIdle {
		t.Fatalf("expected idle state, got %q", run.State)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.InputPath != "/data/a.fasta" || got.InputBytes != 42 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("expected started_at %v, got %v", started, got.StartedAt)
	}
	if got.FinishedAt != nil {
		t.Fatalf("expected no finished_at, got %v", got.FinishedAt)
	}

	exists, err := st.RunExists(run.ID)
	if err != nil || !exists {
		t.Fatalf("expected run to exist, got %v, %v", exists, err)
	}
}

func TestGetRunMissing(t *testing.T) {
	st := testStore(t)
	got, err := st.GetRun(context.Background(), "run-nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCreateRunRequiresInputPath(t *testing.T) {
	st := testStore(t)
	if err := st.CreateRun(context.Background(), &models.Run{}); err == nil {
		t.Fatal("expected error for missing input path")
	}
}

func TestUpdateRun(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run := &models.Run{ID: "run-abc123", InputPath: "a.fasta"}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}

	finished := time.Now().UTC().Truncate(time.Millisecond)
	run.State = models.StateRendered
	run.UploadedPath = "/uploads/a.fasta"
	run.AlignedPath = "/aligned/a.fasta"
	run.TreePath = "/results/r1/tree.json"
	run.RequestID = "r1"
	run.NodeCount = 3
	run.FinishedAt = &finished
	if err := st.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != models.StateRendered {
		t.Fatalf("expected rendered, got %q", got.State)
	}
	if got.TreePath != "/results/r1/tree.json" || got.RequestID != "r1" || got.NodeCount != 3 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Fatalf("expected finished_at %v, got %v", finished, got.FinishedAt)
	}
}

func TestUpdateRunErrors(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.UpdateRun(ctx, &models.Run{ID: "run-missing", State: models.StateFailed}); err == nil {
		t.Fatal("expected not found error")
	}
	if err := st.UpdateRun(ctx, &models.Run{ID: "run-x", State: "bogus"}); err == nil {
		t.Fatal("expected invalid state error")
	}
	if err := st.UpdateRun(ctx, nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestListRunsAndLatestRendered(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []*models.Run{
		{ID: "run-000001", InputPath: "a.fasta", State: models.StateRendered, StartedAt: base},
		{ID: "run-000002", InputPath: "b.fasta", State: models.StateRendered, StartedAt: base.Add(time.Minute)},
		{ID: "run-000003", InputPath: "c.fasta", State: models.StateFailed, StartedAt: base.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatalf("create %s: %v", run.ID, err)
		}
	}

	listed, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(listed))
	}
	if listed[0].ID != "run-000003" || listed[1].ID != "run-000002" {
		t.Fatalf("expected newest first, got %s, %s", listed[0].ID, listed[1].ID)
	}

	all, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs with default limit, got %d", len(all))
	}

	latest, err := st.LatestRendered(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != "run-000002" {
		t.Fatalf("expected run-000002, got %+v", latest)
	}
}

func TestLatestRenderedEmpty(t *testing.T) {
	st := testStore(t)
	latest, err := st.LatestRendered(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil, got %+v", latest)
	}
}

func TestRecordExport(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run := &models.Run{ID: "run-exp001", InputPath: "a.fasta", State: models.StateRendered}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.RecordExport(ctx, run.ID, "results/r1/tree.svg", "/tmp/phylogenetic_tree.svg"); err != nil {
		t.Fatalf("record export: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExportedSVGPath != "results/r1/tree.svg" || got.ExportedSVGLocal != "/tmp/phylogenetic_tree.svg" {
		t.Fatalf("unexpected export fields: %+v", got)
	}

	if err := st.RecordExport(ctx, "run-missing", "x", "y"); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestSchemaVersion(t *testing.T) {
	st := testStore(t)
	version, err := st.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), version)
	}
}

func TestDigest(t *testing.T) {
	a, n, err := Digest(strings.NewReader(">s1\nACGT\n"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if n != 9 {
		t.Fatalf("expected 9 bytes, got %d", n)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}

	b, _, err := Digest(strings.NewReader(">s1\nACGT\n"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	c, _, err := Digest(strings.NewReader(">s1\nACGA\n"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if a != b {
		t.Fatal("expected identical input to hash identically")
	}
	if a == c {
		t.Fatal("expected different input to hash differently")
	}
}
