package store

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
)

func testRawDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	u := url.URL{Scheme: "file", Path: path}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrationsFreshDB(t *testing.T) {
	db := testRawDB(t)

	if err := runMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	version, err := currentVersion(db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&count); err != nil {
		t.Fatalf("check runs: %v", err)
	}
	if count != 1 {
		t.Fatal("runs table not created")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := testRawDB(t)

	if err := runMigrations(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := runMigrations(db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	version, err := currentVersion(db)
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
}

func TestMigration002AddsExportColumns(t *testing.T) {
	db := testRawDB(t)
	if err := runMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	_, err := db.Exec(`INSERT INTO runs (id, input_path, state, started_at, exported_svg_path, exported_svg_local)
		VALUES ('run-1', 'a.fasta', 'rendered', datetime('now'), 'results/r1/tree.svg', '/tmp/phylogenetic_tree.svg')`)
	if err != nil {
		t.Fatalf("insert with export columns: %v", err)
	}

	var svgPath string
	if err := db.QueryRow("SELECT exported_svg_path FROM runs WHERE id = 'run-1'").Scan(&svgPath); err != nil {
		t.Fatalf("query export column: %v", err)
	}
	if svgPath != "results/r1/tree.svg" {
		t.Fatalf("expected svg path, got %q", svgPath)
	}
}
