package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipper/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CLIPPER_BASE_URL", "")
	t.Setenv("CLIPPER_API_TOKEN", "")
	t.Setenv("AWS_BUCKET", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("DISPLAY", "")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantUploads := filepath.Join(home, ".local", "share", "clipper", "uploads")
	if cfg.Paths.UploadDir != wantUploads {
		t.Fatalf("unexpected upload dir: got %q want %q", cfg.Paths.UploadDir, wantUploads)
	}
	if cfg.Paths.ScratchDir != filepath.Join(home, ".cache", "clipper", "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.Server.Bind != "127.0.0.1:7491" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Analytics.Endpoint != cfg.Server.BaseURL {
		t.Fatalf("expected analytics endpoint to default to base url, got %q", cfg.Analytics.Endpoint)
	}
	if cfg.Capture.DisplayDevice != ":0.0" {
		t.Fatalf("expected display fallback :0.0, got %q", cfg.Capture.DisplayDevice)
	}
	if cfg.Capture.Width != 1920 || cfg.Capture.Height != 1080 || cfg.Capture.FrameRate != 30 {
		t.Fatalf("unexpected capture hint %dx%d@%d", cfg.Capture.Width, cfg.Capture.Height, cfg.Capture.FrameRate)
	}
	if cfg.ChunkInterval().Milliseconds() != 1000 {
		t.Fatalf("unexpected chunk interval %s", cfg.ChunkInterval())
	}
	if cfg.TickInterval().Milliseconds() != 100 {
		t.Fatalf("unexpected tick interval %s", cfg.TickInterval())
	}
	if cfg.Transcode.DefaultFormat != "webm" {
		t.Fatalf("unexpected default format %q", cfg.Transcode.DefaultFormat)
	}
	if cfg.Storage.Backend != config.StorageLocal {
		t.Fatalf("unexpected storage backend %q", cfg.Storage.Backend)
	}
	if cfg.DatabasePath() != filepath.Join(home, ".local", "share", "clipper", "clipper.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	home := isolateEnv(t)
	configPath := filepath.Join(home, "clipper.toml")

	cfg := config.Default()
	cfg.Paths.UploadDir = "~/clips"
	cfg.Server.BaseURL = "https://clips.example.com/"
	cfg.Transcode.DefaultFormat = "MP4"
	cfg.Logging.Level = "DEBUG"
	cfg.Analytics.Workers = 0

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if loaded.Paths.UploadDir != filepath.Join(home, "clips") {
		t.Fatalf("unexpected upload dir %q", loaded.Paths.UploadDir)
	}
	if loaded.Server.BaseURL != "https://clips.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", loaded.Server.BaseURL)
	}
	if got := loaded.WatchURL("AbCdEfGhIj"); got != "https://clips.example.com/watch/AbCdEfGhIj" {
		t.Fatalf("unexpected watch url %q", got)
	}
	if loaded.Transcode.DefaultFormat != "mp4" {
		t.Fatalf("expected lowercased format, got %q", loaded.Transcode.DefaultFormat)
	}
	if loaded.Logging.Level != "debug" {
		t.Fatalf("expected lowercased level, got %q", loaded.Logging.Level)
	}
	if loaded.Analytics.Workers != 2 {
		t.Fatalf("expected default workers restored, got %d", loaded.Analytics.Workers)
	}
}

func TestLoadHonoursBaseURLEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("CLIPPER_BASE_URL", "https://share.example.org/")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.BaseURL != "https://share.example.org" {
		t.Fatalf("unexpected base url %q", cfg.Server.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Transcode.DefaultFormat = "avi" }, "transcode.default_format"},
		{"backend", func(c *config.Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"s3 bucket", func(c *config.Config) {
			c.Storage.Backend = config.StorageS3
			c.Storage.S3Region = "us-east-1"
		}, "storage.s3_bucket"},
		{"width", func(c *config.Config) { c.Capture.Width = 0 }, "capture.width"},
		{"tick", func(c *config.Config) { c.Capture.TickIntervalMS = 5000 }, "capture.tick_interval_ms"},
		{"base url", func(c *config.Config) { c.Server.BaseURL = "localhost" }, "server.base_url"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Analytics.Endpoint = cfg.Server.BaseURL
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesSkipsUploadDirForS3(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Storage.Backend = config.StorageS3

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.Paths.UploadDir); !os.IsNotExist(err) {
		t.Fatalf("expected upload dir to be skipped for s3, got %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	home := isolateEnv(t)
	path := filepath.Join(home, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
