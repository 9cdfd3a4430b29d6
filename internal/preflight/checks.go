package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipper/internal/api"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Requirement defines an external binary clipper relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinaries resolves each requirement on PATH and records its version line.
// Requirements sharing a command are checked once.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Result {
	results := make([]Result, 0, len(requirements))
	versions := make(map[string]Result)
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		result := Result{Name: req.Name, Optional: req.Optional}
		if cmd == "" {
			result.Detail = "command not configured"
			results = append(results, result)
			continue
		}
		cached, ok := versions[cmd]
		if !ok {
			cached = probeBinary(ctx, cmd)
			versions[cmd] = cached
		}
		result.Passed = cached.Passed
		result.Detail = cached.Detail
		if !result.Passed && req.Description != "" {
			result.Detail += "; " + strings.ToLower(req.Description[:1]) + req.Description[1:]
		}
		results = append(results, result)
	}
	return results
}

func probeBinary(ctx context.Context, cmd string) Result {
	path, err := exec.LookPath(cmd)
	if err != nil {
		return Result{Detail: fmt.Sprintf("binary %q not found", cmd)}
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := commandContext(probeCtx, path, "-hide_banner", "-version").Output()
	if err != nil {
		return Result{Detail: fmt.Sprintf("%s did not run (%v)", path, err)}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		line = path
	}
	return Result{Passed: true, Detail: line}
}

// clipEncoders are the encoders trimming and capture use, by output format.
var clipEncoders = []struct {
	name     string
	encoder  string
	optional bool
}{
	{"VP9 encoder", "libvpx-vp9", false},
	{"Opus encoder", "libopus", false},
	{"H.264 encoder", "libx264", true},
	{"AAC encoder", "aac", true},
}

// CheckEncoders verifies the encoders used for webm and mp4 output.
func CheckEncoders(ctx context.Context, ffmpeg string) []Result {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := commandContext(probeCtx, ffmpeg, "-hide_banner", "-encoders").Output()
	results := make([]Result, 0, len(clipEncoders))
	for _, enc := range clipEncoders {
		result := Result{Name: enc.name, Optional: enc.optional}
		switch {
		case err != nil:
			result.Detail = fmt.Sprintf("could not list encoders (%v)", err)
		case hasEncoder(string(out), enc.encoder):
			result.Passed = true
			result.Detail = enc.encoder
		default:
			result.Detail = fmt.Sprintf("%s not compiled into %s", enc.encoder, ffmpeg)
		}
		results = append(results, result)
	}
	return results
}

func hasEncoder(listing, encoder string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == encoder {
			return true
		}
	}
	return false
}

// CheckDaemon verifies that clipperd answers /health at baseURL.
// It uses a 5-second timeout and a single attempt.
func CheckDaemon(ctx context.Context, baseURL string) Result {
	const name = "clipperd"
	if strings.TrimSpace(baseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := api.NewClient(baseURL, api.ClientOptions{Retry: api.RetryConfig{MaxRetries: 0, BackoffFactor: 1}})
	health, err := client.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeDaemonError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (storage: %s, videos: %d)", health.Status, health.Storage, health.Videos)}
}

func summarizeDaemonError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "not reachable (is clipperd running?)"
	}
	return err.Error()
}
