package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipper/internal/analytics"
	"clipper/internal/logging"
	"clipper/internal/services"
)

var _ analytics.Reporter = (*Client)(nil)

// ClientOptions tunes a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Retry      RetryConfig
	Logger     *slog.Logger
	// Token is sent as a bearer token when set.
	Token string
}

// Client talks to the clipperd HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	token   string
	logger  *slog.Logger
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retry := opts.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		retry:   retry,
		token:   opts.Token,
		logger:  logging.NewComponentLogger(opts.Logger, "api.client"),
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ReportView records one view of videoID. It is sent exactly once: the server
// may have counted the view before a failed reply, and a resend would count it
// again.
func (c *Client) ReportView(ctx context.Context, videoID int64) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/analytics/view", ViewRequest{VideoID: &videoID}, c.once(), &SuccessResponse{})
}

// ReportProgress records a watch event at percentage. Like views, progress
// reports append a row per request and are not retried.
func (c *Client) ReportProgress(ctx context.Context, videoID int64, percentage float64) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/analytics/progress",
		ProgressRequest{VideoID: &videoID, Percentage: &percentage}, c.once(), &SuccessResponse{})
}

// Analytics fetches the analytics summary for videoID.
func (c *Client) Analytics(ctx context.Context, videoID int64) (*Analytics, error) {
	var out Analytics
	if err := c.doJSON(ctx, http.MethodGet, "/api/analytics/"+strconv.FormatInt(videoID, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Videos lists uploaded videos newest first.
func (c *Client) Videos(ctx context.Context) ([]Video, error) {
	var out VideoList
	if err := c.doJSON(ctx, http.MethodGet, "/api/videos", nil, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// VideoByToken looks up a video by share token.
func (c *Client) VideoByToken(ctx context.Context, token string) (*Video, error) {
	var out Video
	if err := c.doJSON(ctx, http.MethodGet, "/api/videos/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVideo removes a video and its analytics.
func (c *Client) DeleteVideo(ctx context.Context, videoID int64) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/videos/"+strconv.FormatInt(videoID, 10), nil, &SuccessResponse{})
}

// Health reports daemon status.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends a clip as multipart field "video". Uploads are not retried
// since the server may have stored the clip before failing.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte, duration float64) (*UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart part: %w", err)
	}
	if duration > 0 {
		if err := writer.WriteField("duration", strconv.FormatFloat(duration, 'f', 3, 64)); err != nil {
			return nil, fmt.Errorf("write duration field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", writer.FormDataContentType())

	var out UploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/upload", buf.Bytes(), headers, c.once(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// once is the retry config for requests that are not safe to repeat.
func (c *Client) once() RetryConfig {
	retry := c.retry
	retry.MaxRetries = 0
	return retry
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	return c.sendJSON(ctx, method, path, in, c.retry, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in any, retry RetryConfig, out any) error {
	var body []byte
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = encoded
		headers.Set("Content-Type", "application/json")
	}
	return c.do(ctx, method, path, body, headers, retry, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers http.Header, retry RetryConfig, out any) error {
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := doWithRetry(ctx, c.http, method, c.baseURL+path, body, headers, retry, c.logger)
	if err != nil {
		return services.Wrap(services.ErrTransient, "api", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "api", method+" "+path, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		message := strings.TrimSpace(string(payload))
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return services.Wrap(markerForStatus(resp.StatusCode), "api", method+" "+path,
			fmt.Sprintf("status %d: %s", resp.StatusCode, message), nil)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func markerForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return services.ErrValidation
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.ErrPermissionDenied
	case status == http.StatusUnprocessableEntity:
		return services.ErrTranscode
	case status == http.StatusTooManyRequests || status >= 500:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}
