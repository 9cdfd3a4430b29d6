package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeTrack struct {
	kind    TrackKind
	label   string
	ended   chan struct{}
	endOnce sync.Once

	mu    sync.Mutex
	stops int
}

func newFakeTrack(kind TrackKind) *fakeTrack {
	return &fakeTrack{kind: kind, label: string(kind), ended: make(chan struct{})}
}

func (t *fakeTrack) Kind() TrackKind        { return t.kind }
func (t *fakeTrack) Label() string          { return t.label }
func (t *fakeTrack) Ended() <-chan struct{} { return t.ended }

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()
}

func (t *fakeTrack) end() {
	t.endOnce.Do(func() { close(t.ended) })
}

func (t *fakeTrack) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops > 0
}

type fakeDevices struct {
	displayErr error
	micErr     error

	mu        sync.Mutex
	video     []*fakeTrack
	audio     []*fakeTrack
	micCalls  int
	lastVideo VideoConstraints
	lastAudio AudioConstraints
}

func (d *fakeDevices) RequestDisplay(_ context.Context, c VideoConstraints) (Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastVideo = c
	if d.displayErr != nil {
		return nil, d.displayErr
	}
	track := newFakeTrack(TrackVideo)
	d.video = append(d.video, track)
	return track, nil
}

func (d *fakeDevices) RequestMicrophone(_ context.Context, c AudioConstraints) (Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.micCalls++
	d.lastAudio = c
	if d.micErr != nil {
		return nil, d.micErr
	}
	track := newFakeTrack(TrackAudio)
	d.audio = append(d.audio, track)
	return track, nil
}

func (d *fakeDevices) lastVideoTrack() *fakeTrack {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.video[len(d.video)-1]
}

type fakeRecorders struct {
	vp9      bool
	newErr   error
	startErr error
	stopErr  error

	mu        sync.Mutex
	recorders []*fakeRecorder
}

func (f *fakeRecorders) IsTypeSupported(mimeType string) bool {
	if mimeType == MIMETypeVP9 {
		return f.vp9
	}
	return mimeType == MIMETypeWebM
}

func (f *fakeRecorders) NewRecorder(_ *CombinedStream, opts RecorderOptions) (Recorder, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	rec := &fakeRecorder{opts: opts, startErr: f.startErr, stopErr: f.stopErr}
	f.mu.Lock()
	f.recorders = append(f.recorders, rec)
	f.mu.Unlock()
	return rec, nil
}

func (f *fakeRecorders) last() *fakeRecorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorders[len(f.recorders)-1]
}

// fakeRecorder emits "chunk-N" on demand and "final" on Stop.
type fakeRecorder struct {
	opts     RecorderOptions
	startErr error
	stopErr  error

	mu        sync.Mutex
	timeslice time.Duration
	stops     int
}

func (r *fakeRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	r.timeslice = timeslice
	r.mu.Unlock()
	return r.startErr
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	r.stops++
	r.mu.Unlock()
	if r.stopErr != nil {
		return r.stopErr
	}
	r.opts.OnChunk([]byte("final"))
	return nil
}

func (r *fakeRecorder) chunk(data string) {
	r.opts.OnChunk([]byte(data))
}

func (r *fakeRecorder) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errDenied = errors.New("denied by user")
