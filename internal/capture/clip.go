package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Clip is an immutable encoded video produced by capture or trimming.
type Clip struct {
	Data     []byte
	MIMEType string
	// Duration is in seconds.
	Duration float64
}

// Size returns the clip length in bytes.
func (c Clip) Size() int64 {
	return int64(len(c.Data))
}

// Extension returns the file extension implied by the MIME type.
func (c Clip) Extension() string {
	switch BaseMIMEType(strings.ToLower(c.MIMEType)) {
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	default:
		return "webm"
	}
}

// FileName returns "<prefix>-<unix ms>.<ext>" for downloads.
func (c Clip) FileName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%d.%s", prefix, at.UnixMilli(), c.Extension())
}

// WriteFile stores the clip at path, or inside path with a generated name
// when path is an existing directory. It returns the written location.
func (c Clip) WriteFile(path, prefix string, at time.Time) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, c.FileName(prefix, at))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create clip directory: %w", err)
		}
	}
	if err := os.WriteFile(path, c.Data, 0o644); err != nil {
		return "", fmt.Errorf("write clip: %w", err)
	}
	return path, nil
}

// FormatDuration renders seconds as mm:ss for the live recorder display.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
