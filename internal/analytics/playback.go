package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/workerpool"
)

// Reporter delivers viewer reports to the analytics collaborator.
type Reporter interface {
	ReportView(ctx context.Context, videoID int64) error
	ReportProgress(ctx context.Context, videoID int64, percentage float64) error
}

// DefaultReportTimeout bounds one background report.
const DefaultReportTimeout = 5 * time.Second

// PlaybackSession is the viewer side of one playback of one video. It reports
// the view at most once and progress only at milestone crossings. Reports run
// on the pool; failures are logged and dropped so playback never waits on them.
type PlaybackSession struct {
	id       string
	videoID  int64
	reporter Reporter
	pool     *workerpool.Pool
	timeout  time.Duration
	logger   *slog.Logger

	viewOnce sync.Once

	mu      sync.Mutex
	tracker MilestoneTracker
}

// SessionOptions tunes a PlaybackSession.
type SessionOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewPlaybackSession starts a session for videoID.
func NewPlaybackSession(videoID int64, reporter Reporter, pool *workerpool.Pool, opts SessionOptions) *PlaybackSession {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	id := uuid.NewString()
	ctx := services.WithSessionID(services.WithVideoID(context.Background(), videoID), id)
	return &PlaybackSession{
		id:       id,
		videoID:  videoID,
		reporter: reporter,
		pool:     pool,
		timeout:  timeout,
		logger:   logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "analytics.viewer")),
	}
}

// ID returns the session identifier.
func (p *PlaybackSession) ID() string {
	return p.id
}

// ReportView submits the view report the first time it is called and reports
// whether this call did so.
func (p *PlaybackSession) ReportView(ctx context.Context) bool {
	submitted := false
	p.viewOnce.Do(func() {
		submitted = true
		p.submit(ctx, "view", func(ctx context.Context) error {
			return p.reporter.ReportView(ctx, p.videoID)
		})
	})
	return submitted
}

// ReportProgress records a playback position and submits a progress report
// when it crosses a new milestone. It returns the milestone and whether a
// report was submitted.
func (p *PlaybackSession) ReportProgress(ctx context.Context, percentage float64) (int, bool) {
	p.mu.Lock()
	milestone, emit := p.tracker.Observe(percentage)
	p.mu.Unlock()
	if !emit {
		return 0, false
	}
	p.submit(ctx, "progress", func(ctx context.Context) error {
		return p.reporter.ReportProgress(ctx, p.videoID, percentage)
	})
	return milestone, true
}

func (p *PlaybackSession) submit(ctx context.Context, kind string, send func(context.Context) error) {
	// Reports outlive the caller's request; keep values but drop cancellation.
	base := context.WithoutCancel(ctx)
	task := func() {
		ctx, cancel := context.WithTimeout(base, p.timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			err = services.Wrap(services.ErrReporting, "analytics", "report "+kind, "", err)
			p.logger.Warn("analytics report failed",
				logging.String("report", kind),
				logging.Error(err),
				logging.String(logging.FieldEventType, "report_failed"),
				logging.String(logging.FieldErrorHint, "check that clipperd is reachable at analytics.endpoint"),
			)
		}
	}
	if p.pool == nil {
		go task()
		return
	}
	if !p.pool.Submit(task) {
		p.logger.Warn("analytics report dropped",
			logging.String("report", kind),
			logging.String(logging.FieldEventType, "report_dropped"),
			logging.String(logging.FieldErrorHint, "reporting queue is full or shutting down"),
		)
	}
}
