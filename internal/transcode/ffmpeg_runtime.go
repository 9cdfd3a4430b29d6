package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"clipper/internal/logging"
)

// FFmpegRuntime runs the ffmpeg binary inside a private scratch directory.
// The directory is guarded by a file lock so a second clipper process cannot
// share it.
type FFmpegRuntime struct {
	binary  string
	ffprobe string
	root    string
	logger  *slog.Logger

	dir  string
	lock *flock.Flock
}

// NewFFmpegRuntime returns an unloaded runtime rooted under scratchRoot.
func NewFFmpegRuntime(binary, ffprobeBinary, scratchRoot string, logger *slog.Logger) *FFmpegRuntime {
	return &FFmpegRuntime{
		binary:  binary,
		ffprobe: ffprobeBinary,
		root:    scratchRoot,
		logger:  logging.NewComponentLogger(logger, "transcode.ffmpeg"),
	}
}

// FFmpegFactory adapts NewFFmpegRuntime to a RuntimeFactory.
func FFmpegFactory(binary, ffprobeBinary, scratchRoot string, logger *slog.Logger) RuntimeFactory {
	return func() Runtime {
		return NewFFmpegRuntime(binary, ffprobeBinary, scratchRoot, logger)
	}
}

// Load verifies the binary runs, takes the scratch lock and prepares an empty
// scratch directory.
func (r *FFmpegRuntime) Load(ctx context.Context) error {
	out, err := commandContext(ctx, r.binary, "-hide_banner", "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s -version: %w: %s", r.binary, err, strings.TrimSpace(string(out)))
	}
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("create scratch root: %w", err)
	}

	lock := flock.New(filepath.Join(r.root, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock scratch directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("scratch directory %s is in use by another clipper process", r.root)
	}

	dir := filepath.Join(r.root, "engine")
	if err := os.RemoveAll(dir); err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("clear stale scratch files: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("create scratch directory: %w", err)
	}
	r.dir = dir
	r.lock = lock

	version, _, _ := strings.Cut(string(out), "\n")
	r.logger.Debug("ffmpeg runtime ready", logging.String("version", strings.TrimSpace(version)), logging.String("dir", dir))
	return nil
}

func (r *FFmpegRuntime) path(name string) (string, error) {
	if r.dir == "" {
		return "", errors.New("ffmpeg runtime not loaded")
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid scratch file name %q", name)
	}
	return filepath.Join(r.dir, name), nil
}

func (r *FFmpegRuntime) WriteFile(name string, data []byte) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *FFmpegRuntime) ReadFile(name string) ([]byte, error) {
	path, err := r.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchFile, name)
	}
	return data, err
}

func (r *FFmpegRuntime) DeleteFile(name string) error {
	path, err := r.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoSuchFile, name)
	}
	return err
}

// Exec runs ffmpeg with req.Args in the scratch directory, reading progress
// from -progress pipe:1.
func (r *FFmpegRuntime) Exec(ctx context.Context, req ExecRequest) error {
	if r.dir == "" {
		return errors.New("ffmpeg runtime not loaded")
	}
	args := append([]string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-progress", "pipe:1", "-nostats"}, req.Args...)
	cmd := commandContext(ctx, r.binary, args...)
	cmd.Dir = r.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	readProgress(stdout, req.Duration, req.OnProgress)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// readProgress parses ffmpeg's key=value progress blocks.
func readProgress(r io.Reader, duration float64, onProgress func(float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || onProgress == nil {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// out_time_ms is microseconds too; ffmpeg kept the name for compatibility
			micros, err := strconv.ParseInt(value, 10, 64)
			if err != nil || duration <= 0 {
				continue
			}
			onProgress(float64(micros) / 1e6 / duration)
		case "progress":
			if value == "end" {
				onProgress(1)
			}
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// Probe measures a scratch file with ffprobe.
func (r *FFmpegRuntime) Probe(ctx context.Context, name string) (float64, error) {
	path, err := r.path(name)
	if err != nil {
		return 0, err
	}
	result, err := probe(ctx, r.ffprobe, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// Close releases the scratch directory and its lock.
func (r *FFmpegRuntime) Close() error {
	var errs []error
	if r.dir != "" {
		if err := os.RemoveAll(r.dir); err != nil {
			errs = append(errs, fmt.Errorf("remove scratch directory: %w", err))
		}
		r.dir = ""
	}
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("unlock scratch directory: %w", err))
		}
		r.lock = nil
	}
	return errors.Join(errs...)
}

var _ Prober = (*FFmpegRuntime)(nil)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext
