// Package export publishes the rendered diagram to the service and
// downloads the resulting SVG.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"phylo/internal/api"
	"phylo/internal/render"
)

// SuggestedFilename is the name the downloaded SVG is saved under.
const SuggestedFilename = "phylogenetic_tree.svg"

var treePathPattern = regexp.MustCompile(`results/([^/]+)/tree\.json`)

// Service is the part of the API client export needs.
type Service interface {
	SaveTree(ctx context.Context, req api.SaveTreeRequest) (string, error)
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// Result describes one completed export.
type Result struct {
	RequestID   string `json:"request_id"`
	SavedPath   string `json:"saved_path"`
	DownloadURL string `json:"download_url"`
	LocalPath   string `json:"local_path"`
	Bytes       int64  `json:"bytes"`
}

// Controller exports diagrams held by a render.Container.
type Controller struct {
	service Service
	destDir string
	logger  *slog.Logger
	last    *Result
}

// NewController creates a controller that saves downloads under destDir.
func NewController(service Service, destDir string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{service: service, destDir: destDir, logger: logger}
}

// RequestID extracts the correlation identifier from a results path of the
// form ".../results/<id>/tree.json".
func RequestID(treePath string) (string, error) {
	m := treePathPattern.FindStringSubmatch(treePath)
	if m == nil {
		return "", fmt.Errorf("%w from %q", api.ErrMissingIdentifier, treePath)
	}
	return m[1], nil
}

// SVGPath is where the service publishes the exported SVG of a run.
func SVGPath(requestID string) string {
	return "/results/" + requestID + "/tree.svg"
}

// ExportSVG saves the container's diagram on the service and downloads the
// published copy. Nothing is sent when there is no diagram or no request id.
func (c *Controller) ExportSVG(ctx context.Context, container *render.Container) (Result, error) {
	var res Result
	diagram := container.Diagram()
	if diagram == nil {
		return res, api.ErrNoRenderedTree
	}
	requestID, err := RequestID(container.TreePath())
	if err != nil {
		return res, err
	}
	res.RequestID = requestID

	c.logger.Info("saving tree", "request_id", requestID)
	saved, err := c.service.SaveTree(ctx, api.SaveTreeRequest{SVG: diagram.Serialize(), RequestID: requestID})
	if err != nil {
		return res, err
	}
	res.SavedPath = saved
	res.DownloadURL = SVGPath(requestID)

	local, n, err := c.download(ctx, res.DownloadURL)
	if err != nil {
		return res, err
	}
	res.LocalPath = local
	res.Bytes = n
	c.last = &res
	c.logger.Info("tree exported", "request_id", requestID, "path", local, "bytes", n)
	return res, nil
}

// Trigger adapts ExportSVG to render.ExportFunc.
func (c *Controller) Trigger(ctx context.Context, container *render.Container) error {
	_, err := c.ExportSVG(ctx, container)
	return err
}

// Last returns the most recent successful export, if any.
func (c *Controller) Last() (Result, bool) {
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// download writes the artifact to a temp file next to the destination and
// renames it into place so a partial download never shows up.
func (c *Controller) download(ctx context.Context, remote string) (string, int64, error) {
	dir := strings.TrimSpace(c.destDir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := c.service.Download(ctx, remote, tmp)
	if err != nil {
		cleanup()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", 0, err
	}
	dst := filepath.Join(dir, SuggestedFilename)
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, err
	}
	return dst, n, nil
}
