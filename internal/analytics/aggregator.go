package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"clipper/internal/logging"
	"clipper/internal/services"
)

// Store persists analytics records. Implementations return errors marked
// with services.ErrNotFound when no record exists for a video.
type Store interface {
	IncrementView(ctx context.Context, videoID int64, at time.Time) error
	AppendWatchEvent(ctx context.Context, videoID int64, event WatchEvent) error
	AnalyticsRecord(ctx context.Context, videoID int64) (Record, error)
}

// Aggregator applies viewer reports to the store and reads summaries back.
type Aggregator struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator wraps store.
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "analytics"),
	}
}

// IncrementView adds one view and stamps the last-viewed time.
func (a *Aggregator) IncrementView(ctx context.Context, videoID int64) error {
	if err := validateVideoID(videoID); err != nil {
		return err
	}
	if err := a.store.IncrementView(ctx, videoID, a.now().UTC()); err != nil {
		return err
	}
	logging.WithContext(services.WithVideoID(ctx, videoID), a.logger).Debug("view recorded")
	return nil
}

// AddWatchEvent appends a progress sample rounded to two decimals.
func (a *Aggregator) AddWatchEvent(ctx context.Context, videoID int64, percentage float64) error {
	if err := validateVideoID(videoID); err != nil {
		return err
	}
	if math.IsNaN(percentage) || percentage < 0 || percentage > 100 {
		return services.Wrap(services.ErrValidation, "analytics", "add watch event", fmt.Sprintf("percentage %v outside [0,100]", percentage), nil)
	}
	event := WatchEvent{Timestamp: a.now().UnixMilli(), Percentage: Round2(percentage)}
	if err := a.store.AppendWatchEvent(ctx, videoID, event); err != nil {
		return err
	}
	logging.WithContext(services.WithVideoID(ctx, videoID), a.logger).Debug("watch event recorded",
		logging.Float64("percentage", event.Percentage),
	)
	return nil
}

// Summary returns the record with its derived average completion.
func (a *Aggregator) Summary(ctx context.Context, videoID int64) (Summary, error) {
	if err := validateVideoID(videoID); err != nil {
		return Summary{}, err
	}
	record, err := a.store.AnalyticsRecord(ctx, videoID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(record), nil
}

func validateVideoID(videoID int64) error {
	if videoID <= 0 {
		return services.Wrap(services.ErrValidation, "analytics", "validate", fmt.Sprintf("invalid video id %d", videoID), nil)
	}
	return nil
}
