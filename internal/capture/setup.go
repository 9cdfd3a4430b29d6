package capture

import (
	"log/slog"

	"clipper/internal/config"
)

// NewFFmpegSession wires a Session to ffmpeg devices and recorders using the
// capture configuration.
func NewFFmpegSession(cfg *config.Config, logger *slog.Logger) *Session {
	devices := NewFFmpegDevices(cfg.Capture, logger)
	composer := NewComposer(devices,
		VideoConstraints{Width: cfg.Capture.Width, Height: cfg.Capture.Height, FrameRate: cfg.Capture.FrameRate},
		DefaultAudioConstraints(),
		logger,
	)
	return NewSession(composer, NewFFmpegRecorders(cfg.Capture.FFmpegBinary, logger), Options{
		VideoBitsPerSecond: cfg.Capture.VideoBitrate,
		ChunkInterval:      cfg.ChunkInterval(),
		TickInterval:       cfg.TickInterval(),
		Logger:             logger,
	})
}
