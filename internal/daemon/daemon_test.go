package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"clipper/internal/analytics"
	"clipper/internal/api"
	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/storage"
	"clipper/internal/testsupport"
	"clipper/internal/workerpool"
)

type harness struct {
	daemon *Daemon
	server *httptest.Server
	client *api.Client
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	backend, err := storage.NewLocal(cfg.Paths.UploadDir, cfg.Server.BaseURL)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	d, err := New(cfg, st, backend, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.api.server.Handler)
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, api.ClientOptions{
		Retry:  api.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
		Logger: logging.NewNop(),
		Token:  cfg.Server.APIToken,
	})
	return &harness{daemon: d, server: server, client: client}
}

func (h *harness) upload(t *testing.T, name, contentType, body string) *api.UploadResponse {
	t.Helper()
	resp, err := h.client.Upload(context.Background(), name, contentType, []byte(body), 0)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return resp
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUploadThenWatchFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	uploaded := h.upload(t, "demo.webm", "video/webm", "webm-bytes")
	if !uploaded.Success || uploaded.VideoID == 0 || len(uploaded.ShareToken) != storage.TokenLength {
		t.Fatalf("unexpected upload response %+v", uploaded)
	}
	if uploaded.ShareURL != "http://clipper.test/watch/"+uploaded.ShareToken {
		t.Fatalf("unexpected share url %q", uploaded.ShareURL)
	}
	if !strings.HasPrefix(uploaded.Filename, uploaded.ShareToken+"-") || !strings.HasSuffix(uploaded.Filename, ".webm") {
		t.Fatalf("unexpected filename %q", uploaded.Filename)
	}

	video, err := h.client.VideoByToken(ctx, uploaded.ShareToken)
	if err != nil {
		t.Fatalf("VideoByToken: %v", err)
	}
	if video.ID != uploaded.VideoID || video.Size != int64(len("webm-bytes")) || video.Title != "Demo" {
		t.Fatalf("unexpected video %+v", video)
	}

	pool := workerpool.New(1, 16, logging.NewNop())
	session := analytics.NewPlaybackSession(video.ID, h.client, pool, analytics.SessionOptions{Logger: logging.NewNop()})
	session.ReportView(ctx)
	session.ReportView(ctx)
	for _, pct := range []float64{3, 11, 19, 21, 35} {
		session.ReportProgress(ctx, pct)
	}
	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool.Drain(drainCtx)

	summary, err := h.client.Analytics(ctx, video.ID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if summary.Views != 1 {
		t.Fatalf("expected one view, got %d", summary.Views)
	}
	if len(summary.WatchEvents) != 3 {
		t.Fatalf("expected 3 watch events, got %+v", summary.WatchEvents)
	}
	if summary.AvgCompletion != 22.33 {
		t.Fatalf("expected avg 22.33 of [11,21,35], got %v", summary.AvgCompletion)
	}
	if summary.LastViewed == nil {
		t.Fatal("expected last viewed timestamp")
	}

	if video.VideoURL != "http://clipper.test/uploads/"+uploaded.Filename {
		t.Fatalf("unexpected video url %q", video.VideoURL)
	}
	served, err := http.Get(h.server.URL + "/uploads/" + uploaded.Filename)
	if err != nil {
		t.Fatalf("GET upload: %v", err)
	}
	defer served.Body.Close()
	data, _ := io.ReadAll(served.Body)
	if served.StatusCode != http.StatusOK || string(data) != "webm-bytes" {
		t.Fatalf("unexpected served clip %d %q", served.StatusCode, data)
	}
	if served.Header.Get("Content-Type") != "video/webm" {
		t.Fatalf("unexpected content type %q", served.Header.Get("Content-Type"))
	}
}

func TestUploadRejectsNonVideo(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Upload(context.Background(), "notes.txt", "text/plain", []byte("hi"), 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadRequiresVideoField(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="other"; filename="a.webm"`)
	header.Set("Content-Type", "video/webm")
	part, _ := writer.CreatePart(header)
	_, _ = part.Write([]byte("x"))
	_ = writer.Close()

	resp, err := http.Post(h.server.URL+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyticsValidation(t *testing.T) {
	h := newHarness(t)
	uploaded := h.upload(t, "a.webm", "video/webm", "x")

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"view missing id", "/api/analytics/view", `{}`, http.StatusBadRequest},
		{"view malformed", "/api/analytics/view", `{`, http.StatusBadRequest},
		{"progress missing percentage", "/api/analytics/progress", `{"videoId":1}`, http.StatusBadRequest},
		{"progress missing id", "/api/analytics/progress", `{"percentage":20}`, http.StatusBadRequest},
		{"progress out of range", "/api/analytics/progress", `{"videoId":1,"percentage":140}`, http.StatusBadRequest},
		{"view unknown video", "/api/analytics/view", `{"videoId":999}`, http.StatusNotFound},
		{"progress zero percentage", "/api/analytics/progress", `{"videoId":1,"percentage":0}`, http.StatusOK},
	}
	if uploaded.VideoID != 1 {
		t.Fatalf("expected first video id 1, got %d", uploaded.VideoID)
	}
	for _, tc := range cases {
		resp := postJSON(t, h.server.URL+tc.path, tc.body)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, resp.StatusCode)
		}
	}
}

func TestAnalyticsLookupErrors(t *testing.T) {
	h := newHarness(t)
	for path, status := range map[string]int{
		"/api/analytics/abc": http.StatusBadRequest,
		"/api/analytics/42":  http.StatusNotFound,
		"/api/videos/nope":   http.StatusNotFound,
	} {
		resp, err := http.Get(h.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != status || body.Error == "" {
			t.Fatalf("%s: expected %d with error body, got %d %+v", path, status, resp.StatusCode, body)
		}
	}
}

func TestListAndDeleteVideos(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.upload(t, "one.webm", "video/webm", "1")
	second := h.upload(t, "two.mp4", "video/mp4", "22")

	videos, err := h.client.Videos(ctx)
	if err != nil {
		t.Fatalf("Videos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != second.VideoID || videos[1].ID != first.VideoID {
		t.Fatalf("expected newest first, got %+v", videos)
	}

	if err := h.client.DeleteVideo(ctx, first.VideoID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if _, err := h.client.Analytics(ctx, first.VideoID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected analytics removed, got %v", err)
	}
	resp, err := http.Get(h.server.URL + "/uploads/" + first.Filename)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected clip removed, got %d", resp.StatusCode)
	}
	if err := h.client.DeleteVideo(ctx, first.VideoID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAPITokenGuardsMutations(t *testing.T) {
	withToken := newHarness(t, testsupport.WithAPIToken("s3cret"))
	uploaded := withToken.upload(t, "a.webm", "video/webm", "x")

	anonymous := api.NewClient(withToken.server.URL, api.ClientOptions{Logger: logging.NewNop(),
		Retry: api.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}})
	if _, err := anonymous.Upload(context.Background(), "b.webm", "video/webm", []byte("y"), 0); !errors.Is(err, services.ErrPermissionDenied) {
		t.Fatalf("expected anonymous upload to be rejected, got %v", err)
	}
	if err := anonymous.DeleteVideo(context.Background(), uploaded.VideoID); err == nil {
		t.Fatal("expected anonymous delete to be rejected")
	}
	if err := anonymous.ReportView(context.Background(), uploaded.VideoID); err != nil {
		t.Fatalf("viewer reports stay public: %v", err)
	}

	req, err := http.NewRequest(http.MethodDelete, withToken.server.URL+"/api/videos/1", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Basic czNjcmV0")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected 401 with challenge, got %d %q", resp.StatusCode, resp.Header.Get("WWW-Authenticate"))
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	h := newHarness(t)
	health, err := h.client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" || health.Storage != config.StorageLocal {
		t.Fatalf("unexpected health %+v", health)
	}
	resp, err := http.Get(h.server.URL + "/api/nothing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("expected running daemon with address, got %+v", status)
	}

	client := api.NewClient("http://"+status.Address, api.ClientOptions{Logger: logging.NewNop()})
	if _, err := client.Health(ctx); err != nil {
		t.Fatalf("Health over real listener: %v", err)
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	h.daemon.Stop()
	if h.daemon.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	backend, err := storage.NewLocal(cfg.Paths.UploadDir, cfg.Server.BaseURL)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	first, _ := New(cfg, st, backend, logging.NewNop())
	second, _ := New(cfg, st, backend, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}
