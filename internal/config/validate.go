package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL, got %q", c.Server.BaseURL)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.width":             c.Capture.Width,
		"capture.height":            c.Capture.Height,
		"capture.frame_rate":        c.Capture.FrameRate,
		"capture.video_bitrate":     c.Capture.VideoBitrate,
		"capture.chunk_interval_ms": c.Capture.ChunkIntervalMS,
		"capture.tick_interval_ms":  c.Capture.TickIntervalMS,
	}); err != nil {
		return err
	}
	if c.Capture.TickIntervalMS > c.Capture.ChunkIntervalMS {
		return errors.New("capture.tick_interval_ms must not exceed capture.chunk_interval_ms")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	switch c.Transcode.DefaultFormat {
	case "webm", "mp4":
		return nil
	default:
		return fmt.Errorf("transcode.default_format must be webm or mp4, got %q", c.Transcode.DefaultFormat)
	}
}

func (c *Config) validateAnalytics() error {
	parsed, err := url.Parse(c.Analytics.Endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("analytics.endpoint must be an absolute URL, got %q", c.Analytics.Endpoint)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		return nil
	case StorageS3:
		if strings.TrimSpace(c.Storage.S3Bucket) == "" {
			return errors.New("storage.s3_bucket must be set when storage.backend is s3 (or export AWS_BUCKET)")
		}
		if strings.TrimSpace(c.Storage.S3Region) == "" {
			return errors.New("storage.s3_region must be set when storage.backend is s3 (or export AWS_REGION)")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageLocal, StorageS3, c.Storage.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
