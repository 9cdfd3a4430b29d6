package store_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clipper/internal/analytics"
	"clipper/internal/services"
	"clipper/internal/store"
	"clipper/internal/testsupport"
)

func TestCreateVideoInitializesAnalytics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	video := testsupport.NewVideo(t, st, "abcDEF123_")
	if video.ID == 0 {
		t.Fatal("expected video id to be assigned")
	}
	if video.Duration != 12.5 || video.Size != 2048 || video.MIMEType != "video/webm" {
		t.Fatalf("unexpected video %+v", video)
	}
	if video.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	record, err := st.AnalyticsRecord(ctx, video.ID)
	if err != nil {
		t.Fatalf("AnalyticsRecord: %v", err)
	}
	if record.Views != 0 || record.LastViewed != nil || len(record.WatchEvents) != 0 {
		t.Fatalf("expected empty analytics, got %+v", record)
	}
	if record.WatchEvents == nil {
		t.Fatal("expected non-nil empty watch events")
	}
}

func TestCreateVideoRejectsDuplicateToken(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.NewVideo(t, st, "dup-token1")
	_, err := st.CreateVideo(context.Background(), store.NewVideo{
		Filename:   "other.webm",
		ShareToken: "dup-token1",
		MIMEType:   "video/webm",
	})
	if err == nil {
		t.Fatal("expected unique constraint failure")
	}
}

func TestCreateVideoRequiresToken(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := st.CreateVideo(context.Background(), store.NewVideo{Filename: "x.webm"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLookupAndList(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	first := testsupport.NewVideo(t, st, "token00001")
	second := testsupport.NewVideo(t, st, "token00002")

	byToken, err := st.GetVideoByToken(ctx, "token00002")
	if err != nil {
		t.Fatalf("GetVideoByToken: %v", err)
	}
	if byToken.ID != second.ID {
		t.Fatalf("expected id %d, got %d", second.ID, byToken.ID)
	}
	if _, err := st.GetVideoByToken(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	videos, err := st.ListVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != second.ID || videos[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", videos)
	}
	limited, err := st.ListVideos(ctx, 1)
	if err != nil {
		t.Fatalf("ListVideos(1): %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 video, got %d", len(limited))
	}
}

func TestViewsAndWatchEvents(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, st, "viewtoken1")

	viewedAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := st.IncrementView(ctx, video.ID, viewedAt); err != nil {
			t.Fatalf("IncrementView: %v", err)
		}
	}
	events := []analytics.WatchEvent{
		{Timestamp: 1, Percentage: 20},
		{Timestamp: 2, Percentage: 50},
		{Timestamp: 3, Percentage: 50},
	}
	for _, event := range events {
		if err := st.AppendWatchEvent(ctx, video.ID, event); err != nil {
			t.Fatalf("AppendWatchEvent: %v", err)
		}
	}

	record, err := st.AnalyticsRecord(ctx, video.ID)
	if err != nil {
		t.Fatalf("AnalyticsRecord: %v", err)
	}
	if record.Views != 2 {
		t.Fatalf("expected 2 views, got %d", record.Views)
	}
	if record.LastViewed == nil || !record.LastViewed.Equal(viewedAt) {
		t.Fatalf("unexpected last viewed %v", record.LastViewed)
	}
	if len(record.WatchEvents) != 3 || record.WatchEvents[2] != events[2] {
		t.Fatalf("expected ordered duplicates kept, got %+v", record.WatchEvents)
	}
}

func TestAnalyticsMissingVideo(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := st.IncrementView(ctx, 404, time.Now()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("IncrementView: expected not found, got %v", err)
	}
	if err := st.AppendWatchEvent(ctx, 404, analytics.WatchEvent{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("AppendWatchEvent: expected not found, got %v", err)
	}
	if _, err := st.AnalyticsRecord(ctx, 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("AnalyticsRecord: expected not found, got %v", err)
	}
}

func TestDeleteVideoCascadesAnalytics(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, st, "deltoken01")

	deleted, err := st.DeleteVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if deleted.Filename != video.Filename {
		t.Fatalf("expected deleted video returned, got %+v", deleted)
	}
	if _, err := st.AnalyticsRecord(ctx, video.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected analytics removed, got %v", err)
	}
	if _, err := st.DeleteVideo(ctx, video.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	video := testsupport.NewVideo(t, st, "concurrent")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := st.AppendWatchEvent(ctx, video.ID, analytics.WatchEvent{Timestamp: int64(i), Percentage: 10}); err != nil {
				t.Errorf("AppendWatchEvent: %v", err)
			}
		}(i)
	}
	wg.Wait()

	record, err := st.AnalyticsRecord(ctx, video.ID)
	if err != nil {
		t.Fatalf("AnalyticsRecord: %v", err)
	}
	if len(record.WatchEvents) != writers {
		t.Fatalf("expected %d events, got %d", writers, len(record.WatchEvents))
	}
}

func TestReopenChecksSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.NewVideo(t, st, "persisted1")
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.GetVideoByToken(context.Background(), "persisted1"); err != nil {
		t.Fatalf("expected persisted video, got %v", err)
	}
	_ = reopened.Close()

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
