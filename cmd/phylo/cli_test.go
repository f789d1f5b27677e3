package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phylo/internal/api"
	"phylo/internal/config"
	"phylo/internal/export"
	"phylo/internal/models"
	"phylo/internal/pipelinetest"
)

const sampleFASTA = ">A\nACGTACGT\n>B\nACGTTCGT\n"

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.APIURL = apiURL
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")
	cfg.DownloadDir = t.TempDir()
	return &cfg
}

func executeCLI(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	cmd := newRootCmd(cfg)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunHistoryExportFlow(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	input := writeFile(t, "a.fasta", sampleFASTA)

	out, _, err := executeCLI(t, cfg, "run", "--json", "--quiet", input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run output %q: %v", out, err)
	}
	if summary.Run.State != models.StateRendered || summary.Run.NodeCount != 3 || summary.Records != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if strings.Join(summary.Leaves, ",") != "A,B" {
		t.Fatalf("expected leaves A,B, got %v", summary.Leaves)
	}

	out, _, err = executeCLI(t, cfg, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []models.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history %q: %v", out, err)
	}
	if len(runs) != 1 || runs[0].ID != summary.Run.ID {
		t.Fatalf("expected the recorded run, got %+v", runs)
	}

	out, _, err = executeCLI(t, cfg, "export", "--json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var res export.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode export %q: %v", out, err)
	}
	if res.RequestID != "r1" || res.LocalPath != filepath.Join(cfg.DownloadDir, export.SuggestedFilename) {
		t.Fatalf("unexpected export result: %+v", res)
	}
	data, err := os.ReadFile(res.LocalPath)
	if err != nil {
		t.Fatalf("read downloaded svg: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Fatalf("expected svg content, got %q", data)
	}
	if saves := srv.SaveRequests(); len(saves) != 1 || saves[0].RequestID != "r1" {
		t.Fatalf("expected one save for r1, got %+v", saves)
	}

	prefix := summary.Run.ID[:len(summary.Run.ID)-2]
	out, _, err = executeCLI(t, cfg, "history", "show", prefix)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(out, "downloaded_svg: "+res.LocalPath) {
		t.Fatalf("expected export recorded in history, got %q", out)
	}
}

func TestRunFailureIsReportedOnce(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{AlignError: "Alignment failed"})
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	input := writeFile(t, "a.fasta", sampleFASTA)

	_, errOut, err := executeCLI(t, cfg, "run", input)
	if err == nil {
		t.Fatal("expected failure")
	}
	var reported reportedError
	if !errors.As(err, &reported) {
		t.Fatalf("expected reported error, got %T", err)
	}
	if step, _ := api.StepOf(err); step != api.StepAlign {
		t.Fatalf("expected align step, got %q", step)
	}
	if !strings.Contains(errOut, "Alignment failed: Alignment failed") {
		t.Fatalf("expected failure notice on stderr, got %q", errOut)
	}
	if !strings.Contains(errOut, "File uploaded. Processing...") {
		t.Fatalf("expected progress before the failure, got %q", errOut)
	}
}

func TestExportWithoutHistoryRun(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	cfg := testConfig(t, srv.URL)

	_, _, err := executeCLI(t, cfg, "export")
	if err == nil || !strings.Contains(err.Error(), "no rendered run") {
		t.Fatalf("expected no rendered run error, got %v", err)
	}
	if calls := srv.Calls(); len(calls) != 0 {
		t.Fatalf("expected no network calls, got %v", calls)
	}
}

func TestRenderCommand(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	input := writeFile(t, "tree.yaml", "name: root\nchildren:\n  - name: A\n  - name: B\n    children:\n      - name: C\n")
	output := filepath.Join(t.TempDir(), "tree.svg")

	out, _, err := executeCLI(t, cfg, "render", input, "-o", output, "--yaml")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "nodes: 4") || !strings.Contains(out, "links: 3") {
		t.Fatalf("unexpected summary %q", out)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if got := strings.Count(string(data), "<circle"); got != 4 {
		t.Fatalf("expected 4 circles, got %d", got)
	}

	out, _, err = executeCLI(t, cfg, "render", input)
	if err != nil {
		t.Fatalf("render to stdout: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "<?xml") && !strings.Contains(out, "<svg") {
		t.Fatalf("expected svg on stdout, got %q", out)
	}

	if _, _, err := executeCLI(t, cfg, "render", input, "--json"); err == nil {
		t.Fatal("expected --json without --output to fail")
	}
}

func TestConfigGetCommand(t *testing.T) {
	cfg := testConfig(t, "http://svc:5000")
	out, _, err := executeCLI(t, cfg, "config", "get", "api_url")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "http://svc:5000" {
		t.Fatalf("expected api url, got %q", out)
	}
	if _, _, err := executeCLI(t, cfg, "config", "get", "nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestConfigListCommand(t *testing.T) {
	cfg := testConfig(t, "http://svc:5000")

	out, _, err := executeCLI(t, cfg, "config", "list", "--json")
	if err != nil {
		t.Fatalf("config list: %v", err)
	}
	var entries []configEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v (%q)", err, out)
	}
	if len(entries) != len(config.AllowedKeys()) {
		t.Fatalf("expected %d entries, got %d", len(config.AllowedKeys()), len(entries))
	}
	got := map[string]string{}
	for _, e := range entries {
		got[e.Key] = e.Value
	}
	if got["api_url"] != "http://svc:5000" || got["history_path"] != cfg.HistoryPath || got["render.width"] != "1200" {
		t.Fatalf("unexpected entries: %v", got)
	}

	out, _, err = executeCLI(t, cfg, "config", "list")
	if err != nil {
		t.Fatalf("config list plain: %v", err)
	}
	if !strings.Contains(out, "render.height  500") {
		t.Fatalf("expected aligned plain listing, got %q", out)
	}
}

func TestConfigSetCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PHYLO_CONFIG_DIR", dir)
	cfg := testConfig(t, "http://svc:5000")

	_, errOut, err := executeCLI(t, cfg, "config", "set", "render.width", "900")
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	path := filepath.Join(dir, ".phylo.toml")
	if !strings.Contains(errOut, "render.width = 900 ("+path+")") {
		t.Fatalf("expected confirmation naming %s, got %q", path, errOut)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "width = 900") {
		t.Fatalf("expected width in config, got %q", data)
	}

	_, _, err = executeCLI(t, cfg, "config", "set", "colour", "red")
	if err == nil || !strings.Contains(err.Error(), "allowed: api_url") {
		t.Fatalf("expected unknown key error listing allowed keys, got %v", err)
	}
}
