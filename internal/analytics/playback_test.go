package analytics

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"clipper/internal/logging"
	"clipper/internal/workerpool"
)

type recordingReporter struct {
	mu       sync.Mutex
	views    int
	progress []float64
	err      error
}

func (r *recordingReporter) ReportView(context.Context, int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views++
	return r.err
}

func (r *recordingReporter) ReportProgress(_ context.Context, _ int64, pct float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, pct)
	return r.err
}

func (r *recordingReporter) snapshot() (int, []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views, append([]float64(nil), r.progress...)
}

func drain(t *testing.T, pool *workerpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Drain(ctx)
}

func TestPlaybackReportsViewOnce(t *testing.T) {
	reporter := &recordingReporter{}
	pool := workerpool.New(2, 16, logging.NewNop())
	session := NewPlaybackSession(3, reporter, pool, SessionOptions{Logger: logging.NewNop()})

	if !session.ReportView(context.Background()) {
		t.Fatal("expected first view to be submitted")
	}
	if session.ReportView(context.Background()) {
		t.Fatal("expected second view to be ignored")
	}
	drain(t, pool)
	if views, _ := reporter.snapshot(); views != 1 {
		t.Fatalf("expected one view report, got %d", views)
	}
}

func TestPlaybackSendsActualPercentageAtMilestones(t *testing.T) {
	reporter := &recordingReporter{}
	pool := workerpool.New(1, 16, logging.NewNop())
	session := NewPlaybackSession(3, reporter, pool, SessionOptions{Logger: logging.NewNop()})

	var milestones []int
	for _, pct := range []float64{3, 11, 19, 21, 35, 99} {
		if m, ok := session.ReportProgress(context.Background(), pct); ok {
			milestones = append(milestones, m)
		}
	}
	drain(t, pool)

	if want := []int{10, 20, 30, 90}; !reflect.DeepEqual(milestones, want) {
		t.Fatalf("milestones %v, want %v", milestones, want)
	}
	// Single worker keeps submission order.
	if _, progress := reporter.snapshot(); !reflect.DeepEqual(progress, []float64{11, 21, 35, 99}) {
		t.Fatalf("unexpected progress reports %v", progress)
	}
}

func TestPlaybackFailuresDoNotPropagate(t *testing.T) {
	reporter := &recordingReporter{err: errors.New("offline")}
	pool := workerpool.New(1, 4, logging.NewNop())
	session := NewPlaybackSession(3, reporter, pool, SessionOptions{Logger: logging.NewNop(), Timeout: time.Second})

	session.ReportView(context.Background())
	if _, ok := session.ReportProgress(context.Background(), 42); !ok {
		t.Fatal("expected progress submission despite reporter failures")
	}
	drain(t, pool)
	views, progress := reporter.snapshot()
	if views != 1 || len(progress) != 1 {
		t.Fatalf("expected attempts to be made, got views=%d progress=%v", views, progress)
	}
}

func TestPlaybackSessionIDsAreUnique(t *testing.T) {
	a := NewPlaybackSession(1, &recordingReporter{}, nil, SessionOptions{})
	b := NewPlaybackSession(1, &recordingReporter{}, nil, SessionOptions{})
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct session ids, got %q and %q", a.ID(), b.ID())
	}
}
