package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeCapture()
	c.normalizeTranscode()
	c.normalizeAnalytics()
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if value, ok := os.LookupEnv("CLIPPER_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Server.BaseURL = value
	}
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	if value, ok := os.LookupEnv("CLIPPER_API_TOKEN"); ok && strings.TrimSpace(c.Server.APIToken) == "" {
		c.Server.APIToken = value
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.AllowedOrigins = origins
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	c.Capture.DisplayInput = strings.ToLower(strings.TrimSpace(c.Capture.DisplayInput))
	if c.Capture.DisplayInput == "" {
		c.Capture.DisplayInput = defaultDisplayInput
	}
	if value, ok := os.LookupEnv("DISPLAY"); ok && strings.TrimSpace(c.Capture.DisplayDevice) == "" {
		c.Capture.DisplayDevice = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Capture.DisplayDevice) == "" {
		c.Capture.DisplayDevice = defaultDisplayDevice
	}
	c.Capture.AudioInput = strings.ToLower(strings.TrimSpace(c.Capture.AudioInput))
	if c.Capture.AudioInput == "" {
		c.Capture.AudioInput = defaultAudioInput
	}
	if strings.TrimSpace(c.Capture.AudioDevice) == "" {
		c.Capture.AudioDevice = defaultAudioDevice
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = c.Capture.FFmpegBinary
	}
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
	if c.Transcode.FFprobeBinary == "" {
		c.Transcode.FFprobeBinary = defaultFFprobeBinary
	}
	c.Transcode.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Transcode.DefaultFormat))
	if c.Transcode.DefaultFormat == "" {
		c.Transcode.DefaultFormat = defaultTrimFormat
	}
	c.Transcode.Preset = strings.TrimSpace(c.Transcode.Preset)
	if c.Transcode.Preset == "" {
		c.Transcode.Preset = defaultTrimPreset
	}
}

func (c *Config) normalizeAnalytics() {
	c.Analytics.Endpoint = strings.TrimRight(strings.TrimSpace(c.Analytics.Endpoint), "/")
	if c.Analytics.Endpoint == "" {
		c.Analytics.Endpoint = c.Server.BaseURL
	}
	if c.Analytics.Workers <= 0 {
		c.Analytics.Workers = defaultReportWorkers
	}
	if c.Analytics.QueueSize <= 0 {
		c.Analytics.QueueSize = defaultReportQueueSize
	}
	if c.Analytics.MaxRetries < 0 {
		c.Analytics.MaxRetries = 0
	}
	if c.Analytics.TimeoutMS <= 0 {
		c.Analytics.TimeoutMS = defaultReportTimeoutMS
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if c.Storage.S3Bucket == "" {
		if value, ok := os.LookupEnv("AWS_BUCKET"); ok {
			c.Storage.S3Bucket = value
		}
	}
	if c.Storage.S3Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.Storage.S3Region = value
		}
	}
	c.Storage.S3Bucket = strings.TrimSpace(c.Storage.S3Bucket)
	c.Storage.S3Region = strings.TrimSpace(c.Storage.S3Region)
	c.Storage.S3Prefix = strings.Trim(strings.TrimSpace(c.Storage.S3Prefix), "/")
	c.Storage.S3Endpoint = strings.TrimSpace(c.Storage.S3Endpoint)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
