package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clipper/internal/capture"
	"clipper/internal/logging"
	"clipper/internal/media/ffprobe"
)

// probeClip is swapped in tests.
var probeClip = ffprobe.Inspect

var extensionMIMETypes = map[string]string{
	".webm": "video/webm",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
}

func mimeTypeForPath(path string) string {
	if mimeType, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// readClip loads a clip from disk. The duration comes from ffprobe; when the
// probe fails the clip keeps a zero (unknown) duration.
func readClip(ctx context.Context, ffprobeBinary, path string, logger *slog.Logger) (capture.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.Clip{}, fmt.Errorf("read clip: %w", err)
	}
	clip := capture.Clip{Data: data, MIMEType: mimeTypeForPath(path)}
	result, err := probeClip(ctx, ffprobeBinary, path)
	if err != nil {
		logging.WarnWithHint(logger, "could not read clip duration", "clip_probe_failed", "install ffprobe or pass --duration",
			logging.String("path", path),
			logging.Error(err),
		)
		return clip, nil
	}
	clip.Duration = result.DurationSeconds()
	return clip, nil
}
