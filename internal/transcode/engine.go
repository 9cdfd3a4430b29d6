package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"clipper/internal/capture"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// ProgressFunc receives integer completion percentages. Informational only.
type ProgressFunc func(percent int)

// Options tunes an Engine.
type Options struct {
	Preset string
	Logger *slog.Logger
}

// Engine wraps one lazily loaded Runtime and runs at most one trim at a time.
// Concurrent Trim calls queue on a single slot; waiting honors the caller's
// context, but a trim that has started runs to completion or failure.
type Engine struct {
	factory RuntimeFactory
	preset  string
	logger  *slog.Logger

	slot chan struct{}

	loadMu   sync.Mutex
	runtime  Runtime
	progress ProgressFunc
}

// NewEngine returns an unloaded engine.
func NewEngine(factory RuntimeFactory, opts Options) *Engine {
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	return &Engine{
		factory: factory,
		preset:  preset,
		logger:  logging.NewComponentLogger(opts.Logger, "transcode"),
		slot:    make(chan struct{}, 1),
	}
}

// Load initializes the runtime once. Later calls are no-ops apart from
// replacing the progress callback when onProgress is non-nil. A failed load
// leaves the engine unloaded so the caller can retry.
func (e *Engine) Load(ctx context.Context, onProgress ProgressFunc) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if onProgress != nil {
		e.progress = onProgress
	}
	if e.runtime != nil {
		return nil
	}
	if e.factory == nil {
		return services.Wrap(services.ErrEngineLoad, "transcode", "load", "no runtime configured", nil)
	}
	rt := e.factory()
	if err := rt.Load(ctx); err != nil {
		_ = rt.Close()
		return services.Wrap(services.ErrEngineLoad, "transcode", "load", "runtime failed to initialize", err)
	}
	e.runtime = rt
	e.logger.Info("transcode engine loaded", logging.String(logging.FieldEventType, "engine_loaded"))
	return nil
}

// Loaded reports whether a runtime is ready.
func (e *Engine) Loaded() bool {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.runtime != nil
}

// Trim re-encodes [start, end) seconds of clip into format. The engine loads
// on first use. Scratch files are removed before Trim returns, on success and
// on failure.
func (e *Engine) Trim(ctx context.Context, clip capture.Clip, start, end float64, format Format) (capture.Clip, error) {
	if err := validateRange(clip, start, end); err != nil {
		return capture.Clip{}, err
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return capture.Clip{}, err
	}

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return capture.Clip{}, fmt.Errorf("wait for transcode engine: %w", ctx.Err())
	}
	defer func() { <-e.slot }()

	if err := e.Load(ctx, nil); err != nil {
		return capture.Clip{}, err
	}
	e.loadMu.Lock()
	rt := e.runtime
	progress := e.progress
	e.loadMu.Unlock()

	ctx = services.WithSessionID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger).With(
		logging.Float64("start", start),
		logging.Float64("end", end),
		logging.String("format", string(format)),
	)
	return e.run(ctx, rt, clip, start, end, format, progress, logger)
}

func (e *Engine) run(ctx context.Context, rt Runtime, clip capture.Clip, start, end float64, format Format, progress ProgressFunc, logger *slog.Logger) (out capture.Clip, err error) {
	output := format.OutputName()
	written := false
	defer func() {
		cleanup := []string{output}
		if written {
			cleanup = append([]string{InputName}, cleanup...)
		}
		for _, name := range cleanup {
			if delErr := rt.DeleteFile(name); delErr != nil && !errors.Is(delErr, ErrNoSuchFile) {
				logger.Warn("transcode scratch cleanup failed",
					logging.String("file", name),
					logging.Error(delErr),
					logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "remove stale files from paths.scratch_dir"),
				)
			}
		}
	}()

	if err := rt.WriteFile(InputName, clip.Data); err != nil {
		return capture.Clip{}, services.Wrap(services.ErrTranscode, "transcode", "write input", InputName, err)
	}
	written = true

	duration := end - start
	sampler := logging.NewProgressSampler(25)
	req := ExecRequest{
		Args:     TrimArgs(start, end, format, e.preset),
		Duration: duration,
		OnProgress: func(ratio float64) {
			percent := ratioToPercent(ratio)
			if sampler.ShouldLog(percent) {
				logger.Debug("trim progress", logging.Int("percent", percent))
			}
			if progress != nil {
				progress(percent)
			}
		},
	}
	logger.Info("trim started", logging.String(logging.FieldEventType, "trim_started"))
	if err := rt.Exec(ctx, req); err != nil {
		return capture.Clip{}, services.Wrap(services.ErrTranscode, "transcode", "exec", "ffmpeg trim failed", err)
	}

	if prober, ok := rt.(Prober); ok {
		if measured, probeErr := prober.Probe(ctx, output); probeErr == nil && measured > 0 {
			duration = measured
		} else if probeErr != nil {
			logger.Debug("output probe failed; using requested duration", logging.Error(probeErr))
		}
	}

	data, err := rt.ReadFile(output)
	if err != nil {
		return capture.Clip{}, services.Wrap(services.ErrTranscode, "transcode", "read output", output, err)
	}
	if len(data) == 0 {
		return capture.Clip{}, services.Wrap(services.ErrTranscode, "transcode", "read output", "ffmpeg produced an empty file", nil)
	}

	logger.Info("trim complete",
		logging.Int("bytes", len(data)),
		logging.Float64("duration", duration),
		logging.String(logging.FieldEventType, "trim_complete"),
	)
	return capture.Clip{Data: data, MIMEType: format.MIMEType(), Duration: duration}, nil
}

// Dispose waits for any running trim, then releases the runtime and its
// scratch directory. A later Load or Trim re-initializes.
func (e *Engine) Dispose() error {
	e.slot <- struct{}{}
	defer func() { <-e.slot }()

	e.loadMu.Lock()
	rt := e.runtime
	e.runtime = nil
	e.loadMu.Unlock()
	if rt == nil {
		return nil
	}
	if err := rt.Close(); err != nil {
		return fmt.Errorf("close transcode runtime: %w", err)
	}
	e.logger.Info("transcode engine disposed")
	return nil
}

// rangeTolerance absorbs float noise in reported clip durations.
const rangeTolerance = 1e-6

func validateRange(clip capture.Clip, start, end float64) error {
	switch {
	case len(clip.Data) == 0:
		return services.Wrap(services.ErrTranscode, "transcode", "validate", "source clip is empty", nil)
	case math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0):
		return services.Wrap(services.ErrValidation, "transcode", "validate", "start and end must be finite", nil)
	case start < 0:
		return services.Wrap(services.ErrValidation, "transcode", "validate", fmt.Sprintf("start %.3f is negative", start), nil)
	case start >= end:
		return services.Wrap(services.ErrValidation, "transcode", "validate", fmt.Sprintf("start %.3f must be before end %.3f", start, end), nil)
	case clip.Duration > 0 && end > clip.Duration+rangeTolerance:
		return services.Wrap(services.ErrValidation, "transcode", "validate", fmt.Sprintf("end %.3f exceeds clip duration %.3f", end, clip.Duration), nil)
	}
	return nil
}

func ratioToPercent(ratio float64) int {
	if math.IsNaN(ratio) || ratio < 0 {
		return 0
	}
	percent := int(math.Round(ratio * 100))
	if percent > 100 {
		return 100
	}
	return percent
}

var (
	sharedMu sync.Mutex
	shared   *Engine
)

// Shared returns the process-wide engine, creating it with newEngine on first
// use. Later calls ignore newEngine.
func Shared(newEngine func() *Engine) *Engine {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil && newEngine != nil {
		shared = newEngine()
	}
	return shared
}
