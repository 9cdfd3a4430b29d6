package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipper/internal/api"
	"clipper/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "clipper", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	env := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"--config", env.configPath, "config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestUploadWatchAnalyticsDeleteFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	stubProbe(t, "4.000000")

	clipPath := testsupport.WriteClip(t, t.TempDir(), "team_demo.webm", 2048)

	out, _, err := env.run(t, "upload", clipPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Uploaded team_demo.webm as video 1")
	requireContains(t, out, "Share link: http://clipper.test/watch/")

	out, _, err = env.run(t, "videos")
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	requireContains(t, out, "Team Demo")
	requireContains(t, out, "00:04")

	out, _, err = env.run(t, "videos", "--json")
	if err != nil {
		t.Fatalf("videos json: %v", err)
	}
	var list api.VideoList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode videos: %v", err)
	}
	if len(list.Videos) != 1 || list.Videos[0].Size != 2048 || list.Videos[0].MIMEType != "video/webm" {
		t.Fatalf("unexpected video list %+v", list.Videos)
	}

	out, _, err = env.run(t, "watch", "1", "3", "11", "19", "21", "35", "99")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	for _, want := range []string{"milestone 10% reported", "milestone 20% reported", "milestone 30% reported", "milestone 90% reported"} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, "milestone 0%") {
		t.Fatalf("unexpected sub-10%% milestone in %q", out)
	}

	out, _, err = env.run(t, "analytics", "1", "--json")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	var stats api.Analytics
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode analytics: %v (%s)", err, out)
	}
	if stats.Views != 1 || len(stats.WatchEvents) != 4 {
		t.Fatalf("expected 1 view and 4 events, got %+v", stats)
	}
	if stats.AvgCompletion != 41.5 {
		t.Fatalf("expected avg completion 41.5, got %v", stats.AvgCompletion)
	}

	out, _, err = env.run(t, "analytics", "1")
	if err != nil {
		t.Fatalf("analytics table: %v", err)
	}
	requireContains(t, out, "Avg completion: 41.50%")
	requireContains(t, out, "90%")

	if _, _, err := env.run(t, "videos", "delete", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, _, err = env.run(t, "videos")
	if err != nil {
		t.Fatalf("videos after delete: %v", err)
	}
	requireContains(t, out, "No clips uploaded yet")
}

func TestAnalyticsUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "analytics", "42")
	if err == nil {
		t.Fatal("expected error for unknown video")
	}
	requireContains(t, err.Error(), "Analytics not found")

	if _, _, err := env.run(t, "analytics", "abc"); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestUploadRequiresToken(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIToken("s3cret"))
	stubProbe(t, "1.5")
	clipPath := testsupport.WriteClip(t, t.TempDir(), "clip.webm", 64)

	if _, _, err := env.run(t, "--token", "wrong", "upload", clipPath); err == nil {
		t.Fatal("expected upload with wrong token to fail")
	}
	out, _, err := env.run(t, "--token", "s3cret", "upload", "--json", clipPath)
	if err != nil {
		t.Fatalf("upload with token: %v", err)
	}
	var resp api.UploadResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !resp.Success || resp.VideoID != 1 || len(resp.ShareToken) != 10 {
		t.Fatalf("unexpected upload response %+v", resp)
	}
}

func TestDoctorReportsMissingEncoders(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, _, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail with stub ffmpeg lacking encoders")
	}
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "[ERROR] libvpx-vp9 not compiled into")
	requireContains(t, out, "[WARN]")
}

func TestDoctorChecksDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, _ := env.run(t, "doctor", "--daemon")
	requireContains(t, out, "clipperd:")
	requireContains(t, out, "[OK] ok (storage: local, videos: 0)")
}

func TestLogsCommandFiltersLines(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "clipper.log")
	content := "INFO capture started\nWARN report failed event_type=report_failed\nINFO capture finalized\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := env.run(t, "logs", "--grep", "capture", "-n", "10")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 || strings.Contains(out, "report failed") {
		t.Fatalf("unexpected filtered output %q", out)
	}
}
