package transcode

import (
	"log/slog"

	"clipper/internal/config"
)

// NewFromConfig builds an ffmpeg-backed engine from the transcode settings.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Engine {
	factory := FFmpegFactory(cfg.Transcode.FFmpegBinary, cfg.Transcode.FFprobeBinary, cfg.Paths.ScratchDir, logger)
	return NewEngine(factory, Options{Preset: cfg.Transcode.Preset, Logger: logger})
}

// SharedFromConfig returns the process-wide engine, building it from cfg on
// first use.
func SharedFromConfig(cfg *config.Config, logger *slog.Logger) *Engine {
	return Shared(func() *Engine { return NewFromConfig(cfg, logger) })
}
