package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

const defaultProbeTimeout = 5 * time.Second

// FFmpegDevices grants display and microphone tracks backed by ffmpeg input
// devices (x11grab, avfoundation, gdigrab, pulse, alsa, ...). Each request
// runs a short probe so permission and availability problems surface at
// acquisition time rather than mid-recording.
type FFmpegDevices struct {
	binary        string
	displayInput  string
	displayDevice string
	audioInput    string
	audioDevice   string
	probeTimeout  time.Duration
	logger        *slog.Logger
}

// NewFFmpegDevices builds devices from the capture configuration.
func NewFFmpegDevices(cfg config.Capture, logger *slog.Logger) *FFmpegDevices {
	return &FFmpegDevices{
		binary:        cfg.FFmpegBinary,
		displayInput:  cfg.DisplayInput,
		displayDevice: cfg.DisplayDevice,
		audioInput:    cfg.AudioInput,
		audioDevice:   cfg.AudioDevice,
		probeTimeout:  defaultProbeTimeout,
		logger:        logging.NewComponentLogger(logger, "capture.ffmpeg"),
	}
}

// RequestDisplay probes the display input and returns a video track.
func (d *FFmpegDevices) RequestDisplay(ctx context.Context, constraints VideoConstraints) (Track, error) {
	args := []string{"-f", d.displayInput}
	if constraints.Width > 0 && constraints.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", constraints.Width, constraints.Height))
	}
	if constraints.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(constraints.FrameRate))
	}
	args = append(args, "-i", d.displayDevice)

	if err := d.probe(ctx, args, "-frames:v", "1"); err != nil {
		return nil, classifyDeviceError("display", d.displayInput+" "+d.displayDevice, err)
	}
	return newFFmpegTrack(TrackVideo, d.displayInput+":"+d.displayDevice, args, nil), nil
}

// RequestMicrophone probes the audio input and returns an audio track.
// Echo cancellation is left to the audio server; noise suppression maps to
// ffmpeg's afftdn filter.
func (d *FFmpegDevices) RequestMicrophone(ctx context.Context, constraints AudioConstraints) (Track, error) {
	args := []string{"-f", d.audioInput}
	if constraints.SampleRate > 0 && (d.audioInput == "pulse" || d.audioInput == "alsa") {
		args = append(args, "-sample_rate", strconv.Itoa(constraints.SampleRate))
	}
	args = append(args, "-i", d.audioDevice)

	if err := d.probe(ctx, args, "-t", "0.1"); err != nil {
		return nil, classifyDeviceError("microphone", d.audioInput+" "+d.audioDevice, err)
	}
	var filters []string
	if constraints.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	return newFFmpegTrack(TrackAudio, d.audioInput+":"+d.audioDevice, args, filters), nil
}

type probeError struct {
	err    error
	stderr string
}

func (e *probeError) Error() string {
	if e.stderr == "" {
		return e.err.Error()
	}
	return e.err.Error() + ": " + e.stderr
}

func (e *probeError) Unwrap() error { return e.err }

func (d *FFmpegDevices) probe(ctx context.Context, input []string, limit ...string) error {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	args := append([]string{"-hide_banner", "-loglevel", "error", "-nostdin"}, input...)
	args = append(args, limit...)
	args = append(args, "-f", "null", "-")

	cmd := commandContext(ctx, d.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		d.logger.Debug("ffmpeg device probe failed",
			logging.String("args", strings.Join(args, " ")),
			logging.Error(err),
		)
		return &probeError{err: err, stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}

var permissionHints = []string{
	"permission denied",
	"operation not permitted",
	"not authorized",
	"access denied",
	"cannot open display",
}

func classifyDeviceError(kind, device string, err error) error {
	marker := services.ErrDeviceUnavailable
	var pe *probeError
	if errors.As(err, &pe) {
		lower := strings.ToLower(pe.stderr)
		for _, hint := range permissionHints {
			if strings.Contains(lower, hint) {
				marker = services.ErrPermissionDenied
				break
			}
		}
	}
	return services.Wrap(marker, "capture", "request "+kind, device, err)
}

// ffmpegTrack is a handle on an ffmpeg input. The recorder process owns the
// device while recording; Stop marks the handle released.
type ffmpegTrack struct {
	kind      TrackKind
	label     string
	inputArgs []string
	filters   []string

	ended    chan struct{}
	endOnce  sync.Once
	stopped  chan struct{}
	stopOnce sync.Once
}

func newFFmpegTrack(kind TrackKind, label string, inputArgs, filters []string) *ffmpegTrack {
	return &ffmpegTrack{
		kind:      kind,
		label:     label,
		inputArgs: inputArgs,
		filters:   filters,
		ended:     make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (t *ffmpegTrack) Kind() TrackKind        { return t.kind }
func (t *ffmpegTrack) Label() string          { return t.label }
func (t *ffmpegTrack) Ended() <-chan struct{} { return t.ended }

func (t *ffmpegTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *ffmpegTrack) markEnded() {
	select {
	case <-t.stopped:
		return
	default:
	}
	t.endOnce.Do(func() { close(t.ended) })
}
