package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/storage"
	"clipper/internal/store"
)

// VideoStore records uploaded videos.
type VideoStore interface {
	CreateVideo(ctx context.Context, input store.NewVideo) (*store.Video, error)
}

// Request is one incoming clip.
type Request struct {
	OriginalName string
	ContentType  string
	// Duration in seconds when the client knows it; 0 otherwise.
	Duration float64
	Body     io.Reader
}

// Result describes a stored clip.
type Result struct {
	Video    *store.Video
	ShareURL string
	Title    string
}

// Service validates, stores and records uploaded clips.
type Service struct {
	backend storage.Backend
	videos  VideoStore
	baseURL string
	now     func() time.Time
	token   func() (string, error)
	logger  *slog.Logger
}

// NewService wires the upload collaborator.
func NewService(backend storage.Backend, videos VideoStore, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		videos:  videos,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		token:   storage.NewShareToken,
		logger:  logging.NewComponentLogger(logger, "upload"),
	}
}

// ShareURL returns the watch page for token.
func (s *Service) ShareURL(token string) string {
	return s.baseURL + "/watch/" + token
}

// Upload stores req and creates its video and analytics rows. The stored
// object is removed again when the database insert fails.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if req.Body == nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "validate", "no video file provided", nil)
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !strings.HasPrefix(contentType, "video/") {
		return nil, services.Wrap(services.ErrValidation, "upload", "validate",
			fmt.Sprintf("invalid file type %q, please upload a video file", req.ContentType), nil)
	}

	token, err := s.token()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}
	filename := storage.FileName(token, req.OriginalName, s.now())
	originalName := strings.TrimSpace(req.OriginalName)
	if originalName == "" {
		originalName = filename
	}

	counter := &countingReader{r: req.Body}
	if err := s.backend.Put(ctx, filename, contentType, counter, -1); err != nil {
		return nil, services.Wrap(services.ErrTransient, "upload", "store clip", filename, err)
	}

	video, err := s.videos.CreateVideo(ctx, store.NewVideo{
		Filename:         filename,
		OriginalFilename: originalName,
		ShareToken:       token,
		Duration:         req.Duration,
		Size:             counter.n,
		MIMEType:         contentType,
	})
	if err != nil {
		if delErr := s.backend.Delete(context.WithoutCancel(ctx), filename); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload",
				logging.String("filename", filename),
				logging.Error(delErr),
				logging.String(logging.FieldEventType, "upload_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the file from the upload directory manually"),
			)
		}
		return nil, err
	}

	logging.WithContext(services.WithVideoID(ctx, video.ID), s.logger).Info("clip uploaded",
		logging.String("filename", filename),
		logging.Int64("size_bytes", video.Size),
		logging.String("backend", s.backend.Kind()),
	)
	return &Result{
		Video:    video,
		ShareURL: s.ShareURL(token),
		Title:    DisplayTitle(originalName),
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
