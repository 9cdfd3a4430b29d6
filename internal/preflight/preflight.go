package preflight

import (
	"context"

	"clipper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options selects the checks RunAll performs.
type Options struct {
	// Daemon also checks that clipperd answers at the analytics endpoint.
	Daemon bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results,
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	)
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir))
	}

	results = append(results, CheckBinaries(ctx, []Requirement{
		{Name: "FFmpeg (capture)", Command: cfg.Capture.FFmpegBinary, Description: "Required for screen and microphone capture"},
		{Name: "FFmpeg (trim)", Command: cfg.Transcode.FFmpegBinary, Description: "Required for trimming clips"},
		{Name: "FFprobe", Command: cfg.Transcode.FFprobeBinary, Description: "Reads clip durations", Optional: true},
	})...)
	results = append(results, CheckEncoders(ctx, cfg.Transcode.FFmpegBinary)...)

	if opts.Daemon {
		results = append(results, CheckDaemon(ctx, cfg.Analytics.Endpoint))
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
