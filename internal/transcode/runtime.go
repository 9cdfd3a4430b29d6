package transcode

import (
	"context"
	"errors"
)

// ErrNoSuchFile is returned by DeleteFile and ReadFile for missing scratch files.
var ErrNoSuchFile = errors.New("no such scratch file")

// ExecRequest is one transcoder invocation.
type ExecRequest struct {
	Args []string
	// Duration is the expected output length in seconds, used to turn the
	// engine's timestamps into a completion ratio.
	Duration float64
	// OnProgress receives ratios in [0,1]. Values are not guaranteed to be
	// monotonic.
	OnProgress func(ratio float64)
}

// Runtime is a transcoder with a private scratch filesystem. File names are
// bare names inside that filesystem. A Runtime is not safe for concurrent use;
// the Engine serializes access.
type Runtime interface {
	Load(ctx context.Context) error
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
	Exec(ctx context.Context, req ExecRequest) error
	Close() error
}

// Prober is implemented by runtimes that can measure a scratch file's duration.
type Prober interface {
	Probe(ctx context.Context, name string) (float64, error)
}

// RuntimeFactory creates an unloaded runtime.
type RuntimeFactory func() Runtime
