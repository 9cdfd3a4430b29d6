package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipper/internal/analytics"
	"clipper/internal/workerpool"
)

type watchOptions struct {
	videoID  int64
	progress []float64
	interval time.Duration
	workers  int
	queue    int
	timeout  time.Duration
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <video-id> <percent>...",
		Short: "Replay a viewer session against clipperd",
		Long: `Report one view and then each playback position in order, the way the
share page player does. A watch event is sent each time playback reaches a new
10% milestone, so "watch 4 3 11 19 21 35 99" reports 10, 20, 30 and 90.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			progress := make([]float64, 0, len(args)-1)
			for _, arg := range args[1:] {
				pct, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid playback position %q", arg)
				}
				progress = append(progress, pct)
			}
			cfg, client, err := ctx.configAndClient()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cmd.OutOrStdout(), client, ctx.loggerFor(cfg), watchOptions{
				videoID:  id,
				progress: progress,
				interval: interval,
				workers:  cfg.Analytics.Workers,
				queue:    cfg.Analytics.QueueSize,
				timeout:  cfg.ReportTimeout(),
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between playback positions")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, reporter analytics.Reporter, logger *slog.Logger, opts watchOptions) error {
	pool := workerpool.New(opts.workers, opts.queue, logger)
	session := analytics.NewPlaybackSession(opts.videoID, reporter, pool, analytics.SessionOptions{
		Timeout: opts.timeout,
		Logger:  logger,
	})
	fmt.Fprintf(out, "Viewer session %s for video %d\n", session.ID(), opts.videoID)
	session.ReportView(ctx)

	for i, pct := range opts.progress {
		if i > 0 && opts.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.interval):
			}
		}
		if milestone, ok := session.ReportProgress(ctx, pct); ok {
			fmt.Fprintf(out, "  %6.2f%% -> milestone %d%% reported\n", pct, milestone)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.timeout+time.Second)
	defer cancel()
	pool.Drain(drainCtx)
	return nil
}
