package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"phylo/internal/api"
	"phylo/internal/config"
	"phylo/internal/export"
	"phylo/internal/pipeline"
	"phylo/internal/render"
	"phylo/internal/status"
	"phylo/internal/store"
)

const httpTimeoutEnvKey = "PHYLO_HTTP_TIMEOUT"

func newClient(cfg *config.Config) *api.Client {
	opts := []api.Option{api.WithLogger(slog.Default())}
	// PHYLO_HTTP_TIMEOUT is read by the client itself and wins over the file.
	if strings.TrimSpace(cfg.HTTPTimeout) != "" && strings.TrimSpace(os.Getenv(httpTimeoutEnvKey)) == "" {
		opts = append(opts, api.WithTimeout(cfg.Timeout()))
	}
	return api.NewClient(cfg.APIURL, opts...)
}

// withHistory opens the run history for fn. When required is false an
// unavailable history is logged and fn runs with a nil store.
func withHistory(cfg *config.Config, required bool, fn func(*store.Store) error) error {
	if strings.TrimSpace(cfg.HistoryPath) == "" {
		if required {
			return errHistoryDisabled
		}
		return fn(nil)
	}
	st, err := store.Open(cfg.HistoryPath)
	if err != nil {
		if required {
			return err
		}
		slog.Warn("run history unavailable", "path", cfg.HistoryPath, "error", err)
		return fn(nil)
	}
	defer st.Close()
	return fn(st)
}

type sessionOptions struct {
	quiet       bool
	downloadDir string
	stderr      io.Writer
}

// session wires one client, container and exporter for a command.
type session struct {
	client    *api.Client
	reporter  status.Reporter
	terminal  *status.Terminal
	container *render.Container
	renderer  *render.Renderer
	exporter  *export.Controller
	orch      *pipeline.Orchestrator
}

func newSession(cfg *config.Config, hist *store.Store, opts sessionOptions) *session {
	s := &session{
		client:    newClient(cfg),
		container: render.NewContainer(),
	}
	dest := opts.downloadDir
	if dest == "" {
		dest = cfg.DownloadDir
	}
	s.exporter = export.NewController(s.client, dest, slog.Default())
	s.renderer = render.NewRenderer(renderOptions(cfg), s.exporter.Trigger, slog.Default())

	pipelineOpts := []pipeline.Option{pipeline.WithLogger(slog.Default())}
	if opts.quiet {
		s.reporter = &status.Recorder{}
	} else {
		s.terminal = status.NewTerminal(opts.stderr)
		s.reporter = s.terminal
		pipelineOpts = append(pipelineOpts, pipeline.WithNotifier(s.terminal))
	}
	if hist != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithHistory(hist))
	}
	s.orch = pipeline.New(s.client, s.reporter, s.renderer, s.container, pipelineOpts...)
	return s
}

// notified reports whether failures reach the user before the command returns.
func (s *session) notified() bool {
	return s.terminal != nil
}

func (s *session) close() {
	if s.terminal != nil {
		s.terminal.Close()
	}
}

func renderOptions(cfg *config.Config) render.Options {
	return render.Options{Width: cfg.Render.Width, Height: cfg.Render.Height}
}
