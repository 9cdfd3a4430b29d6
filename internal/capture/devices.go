package capture

import "context"

// TrackKind distinguishes video from audio tracks.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// VideoConstraints is an ideal display capture hint; devices may deliver less.
type VideoConstraints struct {
	Width     int
	Height    int
	FrameRate int
}

// AudioConstraints describes the requested microphone processing.
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultVideoConstraints is 1920x1080 at 30fps.
func DefaultVideoConstraints() VideoConstraints {
	return VideoConstraints{Width: 1920, Height: 1080, FrameRate: 30}
}

// DefaultAudioConstraints enables echo cancellation and noise suppression at 44.1kHz.
func DefaultAudioConstraints() AudioConstraints {
	return AudioConstraints{EchoCancellation: true, NoiseSuppression: true, SampleRate: 44100}
}

// Track is a live capture source. Stop releases the underlying device and is
// safe to call more than once. Ended is closed only when the source goes away
// on its own (for example the user closes the shared display), never by Stop.
type Track interface {
	Kind() TrackKind
	Label() string
	Ended() <-chan struct{}
	Stop()
}

// Devices grants access to the display and microphone. Implementations return
// errors marked with services.ErrPermissionDenied or services.ErrDeviceUnavailable.
type Devices interface {
	RequestDisplay(ctx context.Context, constraints VideoConstraints) (Track, error)
	RequestMicrophone(ctx context.Context, constraints AudioConstraints) (Track, error)
}
