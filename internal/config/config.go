package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	UploadDir  string `toml:"upload_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Server contains the HTTP API settings used by clipperd and by CLI clients.
type Server struct {
	Bind           string   `toml:"bind"`
	BaseURL        string   `toml:"base_url"`
	AllowedOrigins []string `toml:"allowed_origins"`
	// APIToken, when set, is required as a bearer token for uploads and deletes.
	APIToken string `toml:"api_token"`
}

// Capture contains screen and microphone capture settings.
type Capture struct {
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	DisplayInput    string `toml:"display_input"`
	DisplayDevice   string `toml:"display_device"`
	AudioInput      string `toml:"audio_input"`
	AudioDevice     string `toml:"audio_device"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	FrameRate       int    `toml:"frame_rate"`
	VideoBitrate    int    `toml:"video_bitrate"`
	ChunkIntervalMS int    `toml:"chunk_interval_ms"`
	TickIntervalMS  int    `toml:"tick_interval_ms"`
}

// Transcode contains trim engine settings.
type Transcode struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	DefaultFormat string `toml:"default_format"`
	Preset        string `toml:"preset"`
}

// Analytics contains viewer-side reporting settings.
type Analytics struct {
	Endpoint   string `toml:"endpoint"`
	Workers    int    `toml:"workers"`
	QueueSize  int    `toml:"queue_size"`
	MaxRetries int    `toml:"max_retries"`
	TimeoutMS  int    `toml:"timeout_ms"`
}

// Storage selects where uploaded clips are written.
type Storage struct {
	Backend    string `toml:"backend"`
	S3Bucket   string `toml:"s3_bucket"`
	S3Region   string `toml:"s3_region"`
	S3Prefix   string `toml:"s3_prefix"`
	S3Endpoint string `toml:"s3_endpoint"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipper.
//
// Configuration sections by subsystem:
//   - Paths: data, upload, scratch and log directories
//   - Server: API bind address, public base URL and CORS origins
//   - Capture: ffmpeg capture inputs, resolution hints and timer intervals
//   - Transcode: trim engine binaries and default output format
//   - Analytics: viewer report endpoint and worker pool sizing
//   - Storage: local disk or S3 clip storage
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Capture   Capture   `toml:"capture"`
	Transcode Transcode `toml:"transcode"`
	Analytics Analytics `toml:"analytics"`
	Storage   Storage   `toml:"storage"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for CLI and daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ScratchDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Paths.UploadDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "clipper.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "clipperd.lock")
}

// ChunkInterval returns the recorder timeslice as a duration.
func (c *Config) ChunkInterval() time.Duration {
	return time.Duration(c.Capture.ChunkIntervalMS) * time.Millisecond
}

// TickInterval returns the elapsed-time refresh interval as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Capture.TickIntervalMS) * time.Millisecond
}

// ReportTimeout returns the per-request timeout for analytics reports.
func (c *Config) ReportTimeout() time.Duration {
	return time.Duration(c.Analytics.TimeoutMS) * time.Millisecond
}

// WatchURL builds the public watch page URL for a share token.
func (c *Config) WatchURL(token string) string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/watch/" + token
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
