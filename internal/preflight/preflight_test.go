package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipper/internal/testsupport"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const fakeFFmpeg = `case "$2" in
  -version) echo "ffmpeg version 7.1-test Copyright (c)"; echo "built with gcc";;
  -encoders) echo " V....D libvpx-vp9           libvpx VP9"; echo " A....D libopus              libopus Opus";;
esac
exit 0
`

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinariesReportsVersion(t *testing.T) {
	ffmpeg := writeScript(t, t.TempDir(), "ffmpeg", fakeFFmpeg)
	results := CheckBinaries(context.Background(), []Requirement{
		{Name: "FFmpeg", Command: ffmpeg},
		{Name: "Again", Command: ffmpeg},
		{Name: "Missing", Command: "clearly-not-present-binary", Description: "Required for trimming"},
		{Name: "Empty", Command: " "},
	})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !results[0].Passed || results[0].Detail != "ffmpeg version 7.1-test Copyright (c)" {
		t.Fatalf("unexpected ffmpeg result %+v", results[0])
	}
	if results[1] != (Result{Name: "Again", Passed: true, Detail: results[0].Detail}) {
		t.Fatalf("expected cached result, got %+v", results[1])
	}
	if results[2].Passed || results[2].Detail != `binary "clearly-not-present-binary" not found; required for trimming` {
		t.Fatalf("unexpected missing result %+v", results[2])
	}
	if results[3].Passed || results[3].Detail != "command not configured" {
		t.Fatalf("unexpected empty result %+v", results[3])
	}
}

func TestCheckEncoders(t *testing.T) {
	ffmpeg := writeScript(t, t.TempDir(), "ffmpeg", fakeFFmpeg)
	results := CheckEncoders(context.Background(), ffmpeg)
	want := map[string]bool{"VP9 encoder": true, "Opus encoder": true, "H.264 encoder": false, "AAC encoder": false}
	for _, r := range results {
		if r.Passed != want[r.Name] {
			t.Fatalf("%s: expected passed=%v, got %+v", r.Name, want[r.Name], r)
		}
	}
	if Failed(results) {
		t.Fatal("missing optional mp4 encoders must not fail the run")
	}
}

func TestHasEncoderMatchesWholeName(t *testing.T) {
	listing := " V....D libvpx               libvpx VP8\n"
	if hasEncoder(listing, "libvpx-vp9") {
		t.Fatal("libvpx must not satisfy libvpx-vp9")
	}
	if !hasEncoder(listing, "libvpx") {
		t.Fatal("expected libvpx match")
	}
}

func TestCheckDaemon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","storage":"local","videos":3}`))
	}))
	defer srv.Close()

	result := CheckDaemon(context.Background(), srv.URL)
	if !result.Passed || result.Detail != "ok (storage: local, videos: 3)" {
		t.Fatalf("unexpected result %+v", result)
	}
	if CheckDaemon(context.Background(), "").Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := t.TempDir()
	ffmpeg := writeScript(t, binDir, "ffmpeg", fakeFFmpeg)
	ffprobe := writeScript(t, binDir, "ffprobe", `echo "ffprobe version 7.1-test"; exit 0`+"\n")
	cfg.Capture.FFmpegBinary = ffmpeg
	cfg.Transcode.FFmpegBinary = ffmpeg
	cfg.Transcode.FFprobeBinary = ffprobe

	results := RunAll(context.Background(), cfg, Options{})
	// 4 directories + 3 binaries + 4 encoders
	if len(results) != 11 {
		t.Fatalf("expected 11 results, got %d", len(results))
	}
	if Failed(results) {
		for _, r := range results {
			t.Logf("%s passed=%v %s", r.Name, r.Passed, r.Detail)
		}
		t.Fatal("expected required checks to pass")
	}
}
