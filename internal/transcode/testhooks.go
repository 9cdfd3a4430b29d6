package transcode

import (
	"context"

	"clipper/internal/media/ffprobe"
)

// probe is the ffprobe function used by the runtime. It is a package-level
// variable so tests can override it.
var probe = ffprobe.Inspect

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := probe
	probe = fn
	return func() {
		probe = previous
	}
}
