package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clipper/internal/analytics"
	"clipper/internal/services"
)

var _ analytics.Store = (*Store)(nil)

// IncrementView adds one view and stamps last_viewed.
func (s *Store) IncrementView(ctx context.Context, videoID int64, at time.Time) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE analytics SET views = views + 1, last_viewed = ? WHERE video_id = ?`,
		at.UTC().Format(time.RFC3339Nano), videoID,
	)
	if err != nil {
		return fmt.Errorf("increment view: %w", err)
	}
	return requireRow(res, "increment view", videoID)
}

// AppendWatchEvent appends event to the video's watch_events JSON array.
func (s *Store) AppendWatchEvent(ctx context.Context, videoID int64, event analytics.WatchEvent) error {
	ctx = ensureContext(ctx)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT watch_events FROM analytics WHERE video_id = ?`, videoID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return analyticsNotFound("append watch event", videoID)
		}
		if err != nil {
			return fmt.Errorf("read watch events: %w", err)
		}
		events, err := decodeEvents(raw)
		if err != nil {
			return err
		}
		events = append(events, event)
		encoded, err := json.Marshal(events)
		if err != nil {
			return fmt.Errorf("encode watch events: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE analytics SET watch_events = ? WHERE video_id = ?`, string(encoded), videoID,
		); err != nil {
			return fmt.Errorf("write watch events: %w", err)
		}
		return nil
	})
}

// AnalyticsRecord returns the analytics row for videoID.
func (s *Store) AnalyticsRecord(ctx context.Context, videoID int64) (analytics.Record, error) {
	var (
		views      int
		raw        string
		lastViewed sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT views, watch_events, last_viewed FROM analytics WHERE video_id = ?`, videoID,
	).Scan(&views, &raw, &lastViewed)
	if errors.Is(err, sql.ErrNoRows) {
		return analytics.Record{}, analyticsNotFound("read analytics", videoID)
	}
	if err != nil {
		return analytics.Record{}, fmt.Errorf("read analytics: %w", err)
	}
	events, err := decodeEvents(raw)
	if err != nil {
		return analytics.Record{}, err
	}
	record := analytics.Record{VideoID: videoID, Views: views, WatchEvents: events}
	if lastViewed.Valid && lastViewed.String != "" {
		parsed, err := time.Parse(time.RFC3339Nano, lastViewed.String)
		if err != nil {
			return analytics.Record{}, fmt.Errorf("parse last_viewed %q: %w", lastViewed.String, err)
		}
		record.LastViewed = &parsed
	}
	return record, nil
}

func decodeEvents(raw string) ([]analytics.WatchEvent, error) {
	events := []analytics.WatchEvent{}
	if raw == "" {
		return events, nil
	}
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, fmt.Errorf("decode watch events: %w", err)
	}
	return events, nil
}

func requireRow(res sql.Result, op string, videoID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return analyticsNotFound(op, videoID)
	}
	return nil
}

func analyticsNotFound(op string, videoID int64) error {
	return services.Wrap(services.ErrNotFound, "store", op, fmt.Sprintf("no analytics for video %d", videoID), nil)
}
