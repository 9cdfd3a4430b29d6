package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipper/internal/capture"
)

// recordingSession is the part of capture.Session the record command drives.
type recordingSession interface {
	Start(ctx context.Context, includeAudio bool) error
	Stop() bool
	State() capture.State
	Subscribe(fn func(capture.Event)) func()
	Clip() (capture.Clip, bool)
	Err() error
	IncludeAudio() bool
}

type recordOptions struct {
	output   string
	audio    bool
	duration time.Duration
	now      func() time.Time
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	opts := recordOptions{now: time.Now}
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen and microphone to a clip",
		Long: `Record the display and, unless --no-audio is set, the microphone.

Recording stops on Ctrl+C, after --duration, or when the shared display goes
away. The clip is written to --output: a file path, or a directory in which
recording-<unix ms>.webm is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts.audio = !noAudio
			session := capture.NewFFmpegSession(cfg, ctx.loggerFor(cfg))
			defer session.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRecording(runCtx, cmd.OutOrStdout(), cmd.ErrOrStderr(), session, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "Destination file or directory")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Record the display only")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stop automatically after this long")
	return cmd
}

func runRecording(ctx context.Context, out, errOut io.Writer, session recordingSession, opts recordOptions) error {
	live := shouldColorize(out)
	ended := make(chan struct{}, 1)
	unsubscribe := session.Subscribe(func(ev capture.Event) {
		switch {
		case ev.Kind == capture.EventTick && live:
			fmt.Fprintf(out, "\r%s● REC%s %s", ansiRed, ansiReset, capture.FormatDuration(ev.Elapsed.Seconds()))
		case ev.Kind == capture.EventState && (ev.State == capture.StateReady || ev.State == capture.StateError):
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := session.Start(ctx, opts.audio); err != nil {
		return err
	}
	if opts.audio && !session.IncludeAudio() {
		fmt.Fprintln(errOut, "Microphone unavailable; recording the display only")
	}
	fmt.Fprintln(out, "Recording... press Ctrl+C to stop")

	var timeout <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	case <-ended:
	}
	if !session.Stop() && session.State().Active() {
		// The display went away first and the recorder is still flushing.
		<-ended
	}
	if live {
		fmt.Fprintln(out)
	}

	clip, ok := session.Clip()
	if !ok {
		if err := session.Err(); err != nil {
			return err
		}
		return errors.New("recording produced no clip")
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	path, err := clip.WriteFile(opts.output, "recording", now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s (%s, %s)\n", path, capture.FormatDuration(clip.Duration), formatBytes(clip.Size()))
	return nil
}
