package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"clipper/internal/services"
)

// Format is a trim output container.
type Format string

const (
	FormatWebM Format = "webm"
	FormatMP4  Format = "mp4"
)

// InputName is the fixed scratch name the source clip is written under.
const InputName = "input.webm"

// DefaultPreset trades size for speed; trims are interactive.
const DefaultPreset = "ultrafast"

// ParseFormat accepts "webm" or "mp4" in any case.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatWebM:
		return FormatWebM, nil
	case FormatMP4:
		return FormatMP4, nil
	default:
		return "", services.Wrap(services.ErrValidation, "transcode", "parse format", fmt.Sprintf("unsupported output format %q (want webm or mp4)", value), nil)
	}
}

// Codecs returns the video and audio encoders for the container.
func (f Format) Codecs() (video, audio string) {
	if f == FormatMP4 {
		return "libx264", "aac"
	}
	return "libvpx-vp9", "libopus"
}

// MIMEType returns the content type of trimmed output.
func (f Format) MIMEType() string {
	if f == FormatMP4 {
		return "video/mp4"
	}
	return "video/webm"
}

// OutputName is the scratch name the runtime writes the result to.
func (f Format) OutputName() string {
	return "output." + string(f)
}

// TrimArgs builds the ffmpeg argument list for one trim.
func TrimArgs(start, end float64, format Format, preset string) []string {
	if preset == "" {
		preset = DefaultPreset
	}
	videoCodec, audioCodec := format.Codecs()
	return []string{
		"-i", InputName,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-c:v", videoCodec,
		"-c:a", audioCodec,
		"-preset", preset,
		format.OutputName(),
	}
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
