package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipper/internal/services"
)

// DefaultListLimit caps ListVideos when the caller passes no limit.
const DefaultListLimit = 50

// Video is one uploaded clip.
type Video struct {
	ID               int64
	Filename         string
	OriginalFilename string
	ShareToken       string
	// Duration in seconds; 0 when unknown.
	Duration  float64
	Size      int64
	MIMEType  string
	CreatedAt time.Time
}

// NewVideo describes a clip about to be recorded.
type NewVideo struct {
	Filename         string
	OriginalFilename string
	ShareToken       string
	Duration         float64
	Size             int64
	MIMEType         string
}

const videoColumns = `id, filename, original_filename, share_token, duration, size, mime_type, created_at`

// CreateVideo inserts a video together with its empty analytics row.
func (s *Store) CreateVideo(ctx context.Context, input NewVideo) (*Video, error) {
	if strings.TrimSpace(input.Filename) == "" || strings.TrimSpace(input.ShareToken) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create video", "filename and share token are required", nil)
	}
	ctx = ensureContext(ctx)
	createdAt := time.Now().UTC()
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO videos (filename, original_filename, share_token, duration, size, mime_type, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			input.Filename,
			input.OriginalFilename,
			input.ShareToken,
			nullableDuration(input.Duration),
			input.Size,
			input.MIMEType,
			createdAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert video: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analytics (video_id, views, watch_events) VALUES (?, 0, '[]')`, id,
		); err != nil {
			return fmt.Errorf("insert analytics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetVideo(ctx, id)
}

// GetVideo returns the video with id.
func (s *Store) GetVideo(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get video", fmt.Sprintf("video %d", id), nil)
	}
	return video, err
}

// GetVideoByToken returns the video shared under token.
func (s *Store) GetVideoByToken(ctx context.Context, token string) (*Video, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+videoColumns+` FROM videos WHERE share_token = ?`, token)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get video", fmt.Sprintf("share token %q", token), nil)
	}
	return video, err
}

// ListVideos returns videos newest first.
func (s *Store) ListVideos(ctx context.Context, limit int) ([]*Video, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+videoColumns+` FROM videos ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// DeleteVideo removes a video; its analytics row goes with it.
func (s *Store) DeleteVideo(ctx context.Context, id int64) (*Video, error) {
	video, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.execWithRetry(ctx, `DELETE FROM videos WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete video: %w", err)
	}
	return video, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*Video, error) {
	var (
		video     Video
		duration  sql.NullFloat64
		createdAt string
	)
	if err := row.Scan(
		&video.ID,
		&video.Filename,
		&video.OriginalFilename,
		&video.ShareToken,
		&duration,
		&video.Size,
		&video.MIMEType,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan video: %w", err)
	}
	if duration.Valid {
		video.Duration = duration.Float64
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	video.CreatedAt = parsed
	return &video, nil
}

func nullableDuration(seconds float64) any {
	if seconds <= 0 {
		return nil
	}
	return seconds
}
