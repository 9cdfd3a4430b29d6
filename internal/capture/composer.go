package capture

import (
	"context"
	"log/slog"
	"sync"

	"clipper/internal/logging"
)

// Composer acquires display and microphone tracks and merges them into one stream.
type Composer struct {
	devices Devices
	video   VideoConstraints
	audio   AudioConstraints
	logger  *slog.Logger
}

// NewComposer builds a composer over devices. Zero constraints fall back to the defaults.
func NewComposer(devices Devices, video VideoConstraints, audio AudioConstraints, logger *slog.Logger) *Composer {
	if video == (VideoConstraints{}) {
		video = DefaultVideoConstraints()
	}
	if audio == (AudioConstraints{}) {
		audio = DefaultAudioConstraints()
	}
	return &Composer{
		devices: devices,
		video:   video,
		audio:   audio,
		logger:  logging.NewComponentLogger(logger, "capture.composer"),
	}
}

// Acquire requests the display and, when includeAudio is set, the microphone.
// A failed microphone request degrades to a video-only stream; callers check
// CombinedStream.AudioIncluded to learn the outcome. A failed display request
// is returned as is.
func (c *Composer) Acquire(ctx context.Context, includeAudio bool) (*CombinedStream, error) {
	logger := logging.WithContext(ctx, c.logger)

	video, err := c.devices.RequestDisplay(ctx, c.video)
	if err != nil {
		return nil, err
	}
	tracks := []Track{video}

	if includeAudio {
		mic, err := c.devices.RequestMicrophone(ctx, c.audio)
		if err != nil {
			logging.WarnWithHint(logger, "microphone unavailable; recording without audio",
				"capture_audio_fallback",
				"grant microphone access or check capture.audio_device",
				logging.Error(err),
			)
		} else {
			tracks = append(tracks, mic)
		}
	}

	stream := newCombinedStream(tracks)
	logger.Debug("capture stream acquired",
		logging.String("video", video.Label()),
		logging.Bool("audio", stream.AudioIncluded()),
	)
	return stream, nil
}

// CombinedStream is the merged set of tracks handed to the recorder.
type CombinedStream struct {
	tracks   []Track
	released chan struct{}
	stopOnce sync.Once
}

func newCombinedStream(tracks []Track) *CombinedStream {
	return &CombinedStream{tracks: tracks, released: make(chan struct{})}
}

// Tracks returns the merged tracks, primary video first.
func (s *CombinedStream) Tracks() []Track {
	return append([]Track(nil), s.tracks...)
}

// Video returns the primary video track.
func (s *CombinedStream) Video() Track {
	for _, track := range s.tracks {
		if track.Kind() == TrackVideo {
			return track
		}
	}
	return nil
}

// AudioIncluded reports whether a microphone track made it into the stream.
func (s *CombinedStream) AudioIncluded() bool {
	for _, track := range s.tracks {
		if track.Kind() == TrackAudio {
			return true
		}
	}
	return false
}

// OnVideoEnded invokes fn once if the primary video track ends before the
// stream is stopped.
func (s *CombinedStream) OnVideoEnded(fn func()) {
	video := s.Video()
	if video == nil || fn == nil {
		return
	}
	go func() {
		select {
		case <-video.Ended():
			fn()
		case <-s.released:
		}
	}()
}

// Stop releases every track. Safe to call more than once.
func (s *CombinedStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.released)
		for _, track := range s.tracks {
			track.Stop()
		}
	})
}

