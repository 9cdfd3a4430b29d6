package capture

import (
	"strings"
	"time"
)

const (
	// MIMETypeVP9 is preferred when the recorder can produce it.
	MIMETypeVP9 = "video/webm;codecs=vp9"
	// MIMETypeWebM is the baseline fallback.
	MIMETypeWebM = "video/webm"

	// DefaultVideoBitsPerSecond matches the capture.video_bitrate default.
	DefaultVideoBitsPerSecond = 2500000
)

// RecorderOptions configures a recorder for one capture run.
type RecorderOptions struct {
	MIMEType           string
	VideoBitsPerSecond int
	// OnChunk receives each encoded fragment in order. The recorder must not
	// retain or modify the slice after the call returns.
	OnChunk func([]byte)
	// OnError reports a failure after Start succeeded.
	OnError func(error)
}

// Recorder encodes a CombinedStream into chunks.
type Recorder interface {
	// Start begins encoding, emitting a chunk roughly every timeslice.
	Start(timeslice time.Duration) error
	// Stop flushes the final chunk and returns once no further OnChunk calls
	// will be made.
	Stop() error
}

// RecorderFactory creates recorders and advertises supported container types.
type RecorderFactory interface {
	IsTypeSupported(mimeType string) bool
	NewRecorder(stream *CombinedStream, opts RecorderOptions) (Recorder, error)
}

// SelectMIMEType prefers VP9 in WebM and falls back to plain WebM.
func SelectMIMEType(factory RecorderFactory) string {
	if factory != nil && factory.IsTypeSupported(MIMETypeVP9) {
		return MIMETypeVP9
	}
	return MIMETypeWebM
}

// BaseMIMEType strips codec parameters from a MIME type.
func BaseMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}
