package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"workbench/internal/history"
	"workbench/internal/logging"
	"workbench/internal/packager"
	"workbench/internal/services"
	"workbench/internal/workspace"
)

// pruneEvery controls how often Run trims the history table.
const pruneEvery = 100

// InputGroup is a named set of uploads persisted before the transformation.
type InputGroup struct {
	Name   string
	Prefix string
	// FallbackExt is used when a client filename has no usable extension.
	FallbackExt string
	Uploads     []workspace.Upload
}

// Inputs maps group names to the persisted uploads, in upload order.
type Inputs map[string][]workspace.Input

// First returns the first input of group, if any.
func (in Inputs) First(group string) (workspace.Input, bool) {
	list := in[group]
	if len(list) == 0 {
		return workspace.Input{}, false
	}
	return list[0], true
}

// Paths returns the workspace paths of group in order.
func (in Inputs) Paths(group string) []string {
	list := in[group]
	paths := make([]string, len(list))
	for i, input := range list {
		paths[i] = input.Path
	}
	return paths
}

// TransformFunc runs one transformation inside ws and returns its outputs in
// the order they should be delivered.
type TransformFunc func(ctx context.Context, ws *workspace.Workspace, inputs Inputs) ([]packager.Artifact, error)

// Job describes one file-processing request.
type Job struct {
	// Route names the endpoint for logs and history (image_resize, pdf_merge, ...).
	Route string
	// Tag prefixes the workspace directory name.
	Tag       string
	Inputs    []InputGroup
	Transform TransformFunc
	Package   packager.Options
	// Respond streams the packaged result. It runs before the workspace is
	// destroyed.
	Respond func(result packager.Result) error
}

// Recorder stores run outcomes.
type Recorder interface {
	Record(ctx context.Context, run history.Run) (int64, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Runner executes jobs inside request workspaces.
type Runner struct {
	workspaces *workspace.Manager
	recorder   Recorder
	retain     int
	logger     *slog.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithRecorder records every run. retain bounds how many runs are kept.
func WithRecorder(recorder Recorder, retain int) Option {
	return func(r *Runner) {
		r.recorder = recorder
		r.retain = retain
	}
}

// NewRunner returns a Runner allocating workspaces from manager.
func NewRunner(manager *workspace.Manager, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		workspaces: manager,
		logger:     logging.NewComponentLogger(logger, "processing"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	inputs      int
	inputBytes  int64
	outputs     int
	outputBytes int64
}

// Run allocates a workspace, persists job inputs, invokes the transformation
// once, packages its outputs and hands them to job.Respond. The workspace is
// destroyed before Run returns on every path. Returned errors carry a
// services marker and a client-facing message.
func (r *Runner) Run(ctx context.Context, job Job) error {
	if job.Transform == nil || job.Respond == nil {
		return services.Wrap(services.ErrTransformation, "processing", job.Route, "job is missing transform or respond", nil)
	}
	ctx = services.WithRoute(ctx, job.Route)
	tag := job.Tag
	if tag == "" {
		tag = job.Route
	}

	started := time.Now()
	var result outcome
	err := r.workspaces.With(tag, func(ws *workspace.Workspace) error {
		wsCtx := services.WithWorkspace(ctx, ws.Name)

		inputs, err := persist(ws, job.Inputs, &result)
		if err != nil {
			return err
		}

		artifacts, err := job.Transform(wsCtx, ws, inputs)
		if err != nil {
			return err
		}
		result.outputs = len(artifacts)

		packaged, err := packager.Package(ws, artifacts, job.Package)
		if err != nil {
			return err
		}
		result.outputBytes = packaged.Size

		if err := job.Respond(packaged); err != nil {
			return services.Fail(services.ErrFilesystem, "Could not send result", err)
		}
		return nil
	})
	err = classify(err)
	elapsed := time.Since(started)

	r.log(ctx, job, result, elapsed, err)
	r.record(ctx, job, tag, result, elapsed, err)
	return err
}

func persist(ws *workspace.Workspace, groups []InputGroup, result *outcome) (Inputs, error) {
	inputs := make(Inputs, len(groups))
	for _, group := range groups {
		prefix := group.Prefix
		if prefix == "" {
			prefix = group.Name
		}
		saved := make([]workspace.Input, 0, len(group.Uploads))
		for _, upload := range group.Uploads {
			input, err := ws.SaveAs(upload, prefix, group.FallbackExt)
			if err != nil {
				return nil, err
			}
			saved = append(saved, input)
			result.inputs++
			result.inputBytes += input.Size
		}
		inputs[group.Name] = saved
	}
	return inputs, nil
}

// classify gives unmarked errors the transformation marker so every failure
// maps to a status code and a message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var failure *services.Failure
	if errors.As(err, &failure) {
		return err
	}
	for _, marker := range []error{
		services.ErrValidation, services.ErrTransformation, services.ErrFilesystem,
		services.ErrExternalTool, services.ErrNotFound, services.ErrConflict, services.ErrTimeout,
	} {
		if errors.Is(err, marker) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Fail(services.ErrTimeout, "Request was cancelled", err)
	}
	return services.Fail(services.ErrTransformation, err.Error(), err)
}

func (r *Runner) log(ctx context.Context, job Job, result outcome, elapsed time.Duration, err error) {
	logger := logging.WithContext(ctx, r.logger)
	attrs := []logging.Attr{
		logging.Int("inputs", result.inputs),
		logging.Int64("input_bytes", result.inputBytes),
		logging.Int("outputs", result.outputs),
		logging.Int64("output_bytes", result.outputBytes),
		logging.Duration("duration", elapsed),
	}
	if err == nil {
		attrs = append(attrs, logging.String(logging.FieldEventType, "request_processed"))
		logger.Info(fmt.Sprintf("%s completed", job.Route), logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.String("reason", services.Message(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "see reason; the client received the same message"),
		logging.String(logging.FieldImpact, "request failed; workspace removed"),
	)
	logging.WarnWithContext(logger, fmt.Sprintf("%s failed", job.Route), "request_failed", attrs...)
}

func (r *Runner) record(ctx context.Context, job Job, tag string, result outcome, elapsed time.Duration, err error) {
	if r.recorder == nil {
		return
	}
	run := history.Run{
		Route:       job.Route,
		Tag:         tag,
		Status:      history.StatusSucceeded,
		Inputs:      result.inputs,
		Outputs:     result.outputs,
		InputBytes:  result.inputBytes,
		OutputBytes: result.outputBytes,
		Duration:    elapsed,
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		run.RequestID = rid
	}
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = services.Message(err)
	}

	// Recording outlives a cancelled request context.
	recordCtx := context.WithoutCancel(ctx)
	id, recErr := r.recorder.Record(recordCtx, run)
	if recErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history record failed", "history_record_failed",
			logging.Error(recErr),
			logging.String(logging.FieldErrorHint, "check the data_dir history.db file"),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
		return
	}
	if r.retain > 0 && id%pruneEvery == 0 {
		if _, pruneErr := r.recorder.Prune(recordCtx, r.retain); pruneErr != nil {
			logging.WarnWithContext(r.logger, "history prune failed", "history_prune_failed",
				logging.Error(pruneErr),
				logging.String(logging.FieldImpact, "history table keeps growing until the next prune"),
			)
		}
	}
}
