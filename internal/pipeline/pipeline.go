// Package pipeline sequences a run through upload, alignment, tree building
// and tree retrieval, then renders the result.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"phylo/internal/api"
	"phylo/internal/export"
	"phylo/internal/fasta"
	"phylo/internal/models"
	"phylo/internal/render"
	"phylo/internal/status"
	"phylo/internal/store"
	"phylo/internal/tree"
)

// Client is the part of the API client a run needs.
type Client interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
	Align(ctx context.Context, filepath string) (string, error)
	BuildTree(ctx context.Context, alignedFilepath string) (api.BuildTreeResponse, error)
	FetchTreeData(ctx context.Context, jsonPath string) (*tree.Node, error)
}

// Notifier delivers a failure to the user. It returns once the user has
// been told.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

// History records runs. *store.Store satisfies it.
type History interface {
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
}

var _ History = (*store.Store)(nil)

// Outcome is the result of one Run.
type Outcome struct {
	Run     models.Run
	Input   fasta.Summary
	Tree    *tree.Node
	Diagram *render.Diagram
}

// Orchestrator drives runs against one service and one render container.
type Orchestrator struct {
	client    Client
	reporter  status.Reporter
	renderer  *render.Renderer
	container *render.Container
	notifier  Notifier
	history   History
	logger    *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where failures are reported.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithHistory records every run in h.
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator.
func New(client Client, reporter status.Reporter, renderer *render.Renderer, container *render.Container, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		reporter:  reporter,
		renderer:  renderer,
		container: container,
		notifier:  NotifierFunc(func(string) {}),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Container returns the container runs render into.
func (o *Orchestrator) Container() *render.Container {
	return o.container
}

// Run executes the pipeline for the FASTA file at path. Each step starts only
// after the previous one succeeded; the first failure ends the run.
func (o *Orchestrator) Run(ctx context.Context, path string) (Outcome, error) {
	out := Outcome{Run: models.Run{InputPath: path, State: models.StateIdle, StartedAt: time.Now().UTC()}}
	run := &out.Run

	o.container.Clear()
	o.reporter.ShowLoading()
	o.record(ctx, run, true)

	o.advance(run)
	summary, err := fasta.Inspect(path)
	if err != nil {
		return out, o.fail(ctx, run, &api.StepError{Step: api.StepUpload, Message: err.Error(), Err: err})
	}
	out.Input = summary

	uploaded, err := o.upload(ctx, run, path)
	if err != nil {
		return out, o.fail(ctx, run, err)
	}
	run.UploadedPath = uploaded
	o.reporter.SetStatus(status.MsgUploaded)

	o.advance(run)
	aligned, err := o.client.Align(ctx, uploaded)
	if err != nil {
		return out, o.fail(ctx, run, err)
	}
	run.AlignedPath = aligned
	o.reporter.SetStatus(status.MsgAligned)

	o.advance(run)
	built, err := o.client.BuildTree(ctx, aligned)
	if err != nil {
		return out, o.fail(ctx, run, err)
	}
	run.TreePath = built.JSONTreeFilepath
	o.reporter.SetStatus(status.MsgTreeBuilt)

	o.advance(run)
	root, err := o.client.FetchTreeData(ctx, built.JSONTreeFilepath)
	if err != nil {
		return out, o.fail(ctx, run, err)
	}
	out.Tree = root

	o.container.SetTreePath(built.JSONTreeFilepath)
	if id, err := export.RequestID(built.JSONTreeFilepath); err == nil {
		run.RequestID = id
	}
	diagram, err := o.renderer.Render(root, o.container)
	if err != nil {
		return out, o.fail(ctx, run, api.FetchError(err))
	}
	out.Diagram = diagram
	run.NodeCount = len(diagram.Nodes)

	o.reporter.SetStatus(status.MsgRendered)
	o.reporter.HideLoading()
	o.advance(run)
	o.finish(ctx, run)
	return out, nil
}

func (o *Orchestrator) upload(ctx context.Context, run *models.Run, path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", &api.StepError{Step: api.StepUpload, Message: err.Error(), Err: err}
	}
	defer fh.Close()

	digest, n, err := store.Digest(fh)
	if err != nil {
		return "", &api.StepError{Step: api.StepUpload, Message: err.Error(), Err: err}
	}
	run.InputDigest = digest
	run.InputBytes = n
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return "", &api.StepError{Step: api.StepUpload, Message: err.Error(), Err: err}
	}
	return o.client.Upload(ctx, filepath.Base(path), fh)
}

func (o *Orchestrator) advance(run *models.Run) {
	next, ok := models.NextRunState(run.State)
	if !ok {
		return
	}
	o.logger.Info("pipeline state", "run_id", run.ID, "from", run.State, "to", next)
	run.State = next
}

// fail ends the run. The busy indicator stays up only when the service
// reported another run in progress.
func (o *Orchestrator) fail(ctx context.Context, run *models.Run, err error) error {
	step, _ := api.StepOf(err)
	o.logger.Warn("pipeline failed", "run_id", run.ID, "state", run.State, "step", step, "error", err)

	run.State = models.StateFailed
	run.FailedStep = string(step)
	run.Reason = err.Error()

	o.notifier.Notify(err.Error())
	if !api.IsInProgress(err) {
		o.reporter.HideLoading()
	}
	o.finish(ctx, run)
	return err
}

func (o *Orchestrator) finish(ctx context.Context, run *models.Run) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	o.record(ctx, run, false)
}

// record persists run. History failures are logged and never fail the run.
func (o *Orchestrator) record(ctx context.Context, run *models.Run, create bool) {
	if o.history == nil {
		return
	}
	var err error
	if create {
		err = o.history.CreateRun(ctx, run)
	} else {
		err = o.history.UpdateRun(ctx, run)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("record run", "run_id", run.ID, "error", err)
	}
}
