package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phylo/internal/api"
	"phylo/internal/pipelinetest"
	"phylo/internal/render"
	"phylo/internal/tree"
)

func renderedContainer(t *testing.T, treePath string) *render.Container {
	t.Helper()
	c := render.NewContainer()
	c.SetTreePath(treePath)
	root := &tree.Node{Name: "root", Children: []*tree.Node{{Name: "A"}, {Name: "B"}}}
	if _, err := render.NewRenderer(render.Options{}, nil, nil).Render(root, c); err != nil {
		t.Fatalf("render: %v", err)
	}
	return c
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/results/r1/tree.json", want: "r1"},
		{path: "results/0f3a9c/tree.json", want: "0f3a9c"},
		{path: "http://host:5000/results/abc/tree.json", want: "abc"},
		{path: "results/tree.json", wantErr: true},
		{path: "/results/r1/tree.nwk", wantErr: true},
		{path: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := RequestID(tt.path)
		if tt.wantErr {
			if !errors.Is(err, api.ErrMissingIdentifier) {
				t.Fatalf("%q: expected ErrMissingIdentifier, got %v", tt.path, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.path, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestExportSVG(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	dir := t.TempDir()
	ctrl := NewController(api.NewClient(srv.URL), dir, nil)
	c := renderedContainer(t, "/results/r1/tree.json")

	res, err := ctrl.ExportSVG(context.Background(), c)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.RequestID != "r1" || res.DownloadURL != "/results/r1/tree.svg" || res.SavedPath != "/results/r1/tree.svg" {
		t.Fatalf("unexpected result: %+v", res)
	}

	saves := srv.SaveRequests()
	if len(saves) != 1 || saves[0].RequestID != "r1" {
		t.Fatalf("unexpected save requests: %+v", saves)
	}
	if !strings.Contains(saves[0].SVG, `xmlns="http://www.w3.org/2000/svg"`) || !strings.Contains(saves[0].SVG, `version="1.1"`) {
		t.Fatal("expected standalone svg in save request")
	}

	calls := srv.Calls()
	if calls[len(calls)-1] != "GET /results/r1/tree.svg" {
		t.Fatalf("expected download of published svg, got %v", calls)
	}
	if res.LocalPath != filepath.Join(dir, SuggestedFilename) {
		t.Fatalf("unexpected local path %q", res.LocalPath)
	}
	data, err := os.ReadFile(res.LocalPath)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != saves[0].SVG || res.Bytes != int64(len(data)) {
		t.Fatal("downloaded file does not match saved svg")
	}
	if last, ok := ctrl.Last(); !ok || last.LocalPath != res.LocalPath {
		t.Fatal("expected last export to be recorded")
	}
}

func TestExportWithoutDiagramMakesNoCalls(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	ctrl := NewController(api.NewClient(srv.URL), t.TempDir(), nil)
	c := render.NewContainer()
	c.SetTreePath("/results/r1/tree.json")

	_, err := ctrl.ExportSVG(context.Background(), c)
	if !errors.Is(err, api.ErrNoRenderedTree) {
		t.Fatalf("expected ErrNoRenderedTree, got %v", err)
	}
	if calls := srv.Calls(); len(calls) != 0 {
		t.Fatalf("expected no network calls, got %v", calls)
	}
}

func TestExportMalformedPathMakesNoCalls(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	ctrl := NewController(api.NewClient(srv.URL), t.TempDir(), nil)

	for _, path := range []string{"", "/results/tree.json", "/uploads/a.fasta"} {
		_, err := ctrl.ExportSVG(context.Background(), renderedContainer(t, path))
		if !errors.Is(err, api.ErrMissingIdentifier) {
			t.Fatalf("%q: expected ErrMissingIdentifier, got %v", path, err)
		}
	}
	if calls := srv.Calls(); len(calls) != 0 {
		t.Fatalf("expected no network calls, got %v", calls)
	}
}

func TestExportSaveError(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{SaveError: "Invalid request ID"})
	defer srv.Close()
	dir := t.TempDir()
	ctrl := NewController(api.NewClient(srv.URL), dir, nil)

	_, err := ctrl.ExportSVG(context.Background(), renderedContainer(t, "/results/r1/tree.json"))
	var stepErr *api.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != api.StepSave || stepErr.Message != "Invalid request ID" {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, SuggestedFilename)); !os.IsNotExist(statErr) {
		t.Fatal("expected no download after a failed save")
	}
	if _, ok := ctrl.Last(); ok {
		t.Fatal("expected no recorded export")
	}
}

func TestExportThroughRenderedControl(t *testing.T) {
	srv := pipelinetest.NewServer(pipelinetest.Config{})
	defer srv.Close()
	ctrl := NewController(api.NewClient(srv.URL), t.TempDir(), nil)

	c := render.NewContainer()
	c.SetTreePath("/results/r1/tree.json")
	r := render.NewRenderer(render.Options{}, ctrl.Trigger, nil)
	if _, err := r.Render(&tree.Node{Name: "solo"}, c); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := c.Control().Trigger(context.Background()); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if len(srv.SaveRequests()) != 1 {
		t.Fatal("expected one save request")
	}
}
