package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var fixedStart = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); !errors.Is(err, ErrHistoryPathRequired) {
		t.Fatalf("expected ErrHistoryPathRequired, got %v", err)
	}
}

func TestOpenCreatesHistoryDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "phylo", "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	if st.Path() != path {
		t.Fatalf("expected path %s, got %s", path, st.Path())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected history file: %v", err)
	}
	version, err := st.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
}

func TestOpenErrorNamesHistoryPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	path := filepath.Join(blocker, "history.db")

	_, err := Open(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "history_path "+path) {
		t.Fatalf("expected error to name %s, got %v", path, err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := st.GenerateRunID(fixedStart)
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	if _, err := st.db.Exec(`INSERT INTO runs (id, input_path, state, started_at) VALUES (?, 'a.fasta', 'idle', ?)`, id, formatTime(fixedStart)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	exists, err := st.RunExists(id)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected %s after reopen", id)
	}
}
