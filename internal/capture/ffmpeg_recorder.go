package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"clipper/internal/logging"
)

const recorderStopTimeout = 10 * time.Second

// FFmpegRecorders encodes ffmpeg-backed streams into WebM chunks.
type FFmpegRecorders struct {
	binary string
	logger *slog.Logger

	encodersOnce sync.Once
	encoders     string
}

// NewFFmpegRecorders returns a recorder factory using binary.
func NewFFmpegRecorders(binary string, logger *slog.Logger) *FFmpegRecorders {
	return &FFmpegRecorders{binary: binary, logger: logging.NewComponentLogger(logger, "capture.recorder")}
}

// IsTypeSupported checks the encoders compiled into ffmpeg.
func (f *FFmpegRecorders) IsTypeSupported(mimeType string) bool {
	if BaseMIMEType(strings.ToLower(mimeType)) != MIMETypeWebM {
		return false
	}
	f.encodersOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
		defer cancel()
		out, err := commandContext(ctx, f.binary, "-hide_banner", "-encoders").Output()
		if err != nil {
			f.logger.Debug("ffmpeg encoder listing failed", logging.Error(err))
			return
		}
		f.encoders = string(out)
	})
	if strings.Contains(strings.ToLower(mimeType), "vp9") {
		return strings.Contains(f.encoders, "libvpx-vp9")
	}
	return strings.Contains(f.encoders, "libvpx")
}

// NewRecorder builds a recorder for a stream composed of ffmpeg tracks.
func (f *FFmpegRecorders) NewRecorder(stream *CombinedStream, opts RecorderOptions) (Recorder, error) {
	var video, audio *ffmpegTrack
	for _, track := range stream.Tracks() {
		ft, ok := track.(*ffmpegTrack)
		if !ok {
			return nil, fmt.Errorf("ffmpeg recorder: unsupported track %q", track.Label())
		}
		switch ft.kind {
		case TrackVideo:
			if video == nil {
				video = ft
			}
		case TrackAudio:
			if audio == nil {
				audio = ft
			}
		}
	}
	if video == nil {
		return nil, errors.New("ffmpeg recorder: stream has no video track")
	}
	return &ffmpegRecorder{
		binary: f.binary,
		args:   recordArgs(video, audio, opts),
		video:  video,
		opts:   opts,
		logger: f.logger,
	}, nil
}

func recordArgs(video, audio *ffmpegTrack, opts RecorderOptions) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, video.inputArgs...)
	if audio != nil {
		args = append(args, audio.inputArgs...)
	}
	args = append(args, "-map", "0:v:0")
	if audio != nil {
		args = append(args, "-map", "1:a:0")
	}

	videoCodec := "libvpx"
	if strings.Contains(strings.ToLower(opts.MIMEType), "vp9") {
		videoCodec = "libvpx-vp9"
	}
	args = append(args, "-c:v", videoCodec, "-deadline", "realtime", "-cpu-used", "8")
	if opts.VideoBitsPerSecond > 0 {
		args = append(args, "-b:v", strconv.Itoa(opts.VideoBitsPerSecond))
	}
	if audio != nil {
		args = append(args, "-c:a", "libopus")
		if len(audio.filters) > 0 {
			args = append(args, "-af", strings.Join(audio.filters, ","))
		}
	}
	return append(args, "-f", "webm", "pipe:1")
}

// ffmpegRecorder reads the WebM byte stream from ffmpeg's stdout and hands it
// out as one chunk per timeslice.
type ffmpegRecorder struct {
	binary string
	args   []string
	video  *ffmpegTrack
	opts   RecorderOptions
	logger *slog.Logger

	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   bytes.Buffer
	stopping atomic.Bool

	mu      sync.Mutex
	pending bytes.Buffer

	exited  chan struct{}
	flushed chan struct{}
	waitErr error
}

func (r *ffmpegRecorder) Start(timeslice time.Duration) error {
	if timeslice <= 0 {
		timeslice = DefaultChunkInterval
	}
	cmd := commandContext(context.Background(), r.binary, r.args...)
	cmd.Stderr = &r.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	r.cmd = cmd
	r.stdin = stdin
	r.exited = make(chan struct{})
	r.flushed = make(chan struct{})

	go r.read(stdout)
	go r.emit(timeslice)
	return nil
}

func (r *ffmpegRecorder) read(stdout io.Reader) {
	buf := make([]byte, 64*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.pending.Write(buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			break
		}
	}
	r.waitErr = r.cmd.Wait()
	if !r.stopping.Load() {
		if r.waitErr != nil {
			if r.opts.OnError != nil {
				r.opts.OnError(fmt.Errorf("ffmpeg exited: %w: %s", r.waitErr, strings.TrimSpace(r.stderr.String())))
			}
		} else {
			r.video.markEnded()
		}
	}
	close(r.exited)
}

func (r *ffmpegRecorder) emit(timeslice time.Duration) {
	defer close(r.flushed)
	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.deliver()
		case <-r.exited:
			r.deliver()
			return
		}
	}
}

func (r *ffmpegRecorder) deliver() {
	r.mu.Lock()
	if r.pending.Len() == 0 {
		r.mu.Unlock()
		return
	}
	chunk := append([]byte(nil), r.pending.Bytes()...)
	r.pending.Reset()
	r.mu.Unlock()
	if r.opts.OnChunk != nil {
		r.opts.OnChunk(chunk)
	}
}

// Stop asks ffmpeg to finish the file, waits for the trailing bytes, and
// kills the process if it does not exit in time.
func (r *ffmpegRecorder) Stop() error {
	if r.cmd == nil {
		return nil
	}
	if r.stopping.Swap(true) {
		<-r.flushed
		return nil
	}
	_, _ = io.WriteString(r.stdin, "q")
	_ = r.stdin.Close()

	select {
	case <-r.flushed:
	case <-time.After(recorderStopTimeout):
		r.logger.Warn("ffmpeg did not exit after quit request; killing",
			logging.String(logging.FieldEventType, "recorder_kill"),
			logging.String(logging.FieldErrorHint, "check the capture device for hangs"),
		)
		_ = r.cmd.Process.Kill()
		<-r.flushed
	}
	if r.waitErr != nil {
		return fmt.Errorf("ffmpeg exited: %w: %s", r.waitErr, strings.TrimSpace(r.stderr.String()))
	}
	return nil
}
