package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"clipper/internal/capture"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/transcode"
)

// trimmer is the part of transcode.Engine the trim command drives.
type trimmer interface {
	Load(ctx context.Context, onProgress transcode.ProgressFunc) error
	Trim(ctx context.Context, clip capture.Clip, start, end float64, format transcode.Format) (capture.Clip, error)
	Dispose() error
}

type trimOptions struct {
	start  float64
	end    float64
	format string
	output string
	now    func() time.Time
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	opts := trimOptions{now: time.Now, end: -1}

	cmd := &cobra.Command{
		Use:   "trim <clip>",
		Short: "Cut a clip to [start, end) seconds",
		Long: `Re-encode the segment between --start and --end seconds.

webm output uses VP9 and Opus, mp4 uses H.264 and AAC. --end defaults to the
clip duration. The result is written to --output: a file path, or a directory
in which trimmed-<unix ms>.<format> is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.format == "" {
				opts.format = cfg.Transcode.DefaultFormat
			}
			logger := ctx.loggerFor(cfg)
			clip, err := readClip(cmd.Context(), cfg.Transcode.FFprobeBinary, args[0], logger)
			if err != nil {
				return err
			}
			engine := transcode.SharedFromConfig(cfg, logger)
			defer engine.Dispose() //nolint:errcheck
			return runTrim(cmd.Context(), cmd.OutOrStdout(), engine, clip, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.start, "start", 0, "Start of the kept range in seconds")
	cmd.Flags().Float64Var(&opts.end, "end", -1, "End of the kept range in seconds (default: clip duration)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output container: webm or mp4 (default: transcode.default_format)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "Destination file or directory")
	return cmd
}

func runTrim(ctx context.Context, out io.Writer, engine trimmer, clip capture.Clip, opts trimOptions) error {
	format, err := transcode.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	end := opts.end
	if end < 0 {
		if clip.Duration <= 0 {
			return services.Wrap(services.ErrValidation, "cli", "trim", "clip duration is unknown; pass --end", nil)
		}
		end = clip.Duration
	}

	sampler := logging.NewProgressSampler(25)
	if err := engine.Load(ctx, func(percent int) {
		if sampler.ShouldLog(percent) {
			fmt.Fprintf(out, "Trimming... %d%%\n", percent)
		}
	}); err != nil {
		return err
	}

	trimmed, err := engine.Trim(ctx, clip, opts.start, end, format)
	if err != nil {
		return err
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	path, err := trimmed.WriteFile(opts.output, "trimmed", now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s (%s, %s)\n", path, capture.FormatDuration(trimmed.Duration), formatBytes(trimmed.Size()))
	return nil
}
