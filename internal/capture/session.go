package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipper/internal/logging"
	"clipper/internal/services"
)

const (
	DefaultChunkInterval = time.Second
	DefaultTickInterval  = 100 * time.Millisecond
)

// Clock supplies wall time; tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// EventKind distinguishes state changes from elapsed-time ticks.
type EventKind int

const (
	EventState EventKind = iota
	EventTick
)

// Event is delivered to subscribers on every state change and tick.
type Event struct {
	Kind    EventKind
	State   State
	Elapsed time.Duration
	Err     error

	seq uint64
}

// Options tunes a Session. Zero values take the package defaults.
type Options struct {
	VideoBitsPerSecond int
	ChunkInterval      time.Duration
	TickInterval       time.Duration
	Clock              Clock
	Logger             *slog.Logger
}

// run is one Requesting..Ready/Error pass. once makes the stop and failure
// paths converge so a run ends exactly one time.
type run struct {
	id       string
	once     sync.Once
	tickStop chan struct{}
}

// Session is the capture state machine. It owns the recorder, the chunk
// buffer and the final clip for the current run.
type Session struct {
	composer  *Composer
	recorders RecorderFactory
	opts      Options
	clock     Clock
	logger    *slog.Logger

	mu           sync.Mutex
	state        State
	current      *run
	stream       *CombinedStream
	recorder     Recorder
	chunks       [][]byte
	startedAt    time.Time
	elapsed      time.Duration
	includeAudio bool
	mimeType     string
	clip         *Clip
	err          error
	// seq counts transitions; events carry the value current when they were
	// produced so a late event from an older state is never delivered.
	seq uint64

	deliverMu sync.Mutex
	delivered uint64

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

// NewSession returns an Idle session.
func NewSession(composer *Composer, recorders RecorderFactory, opts Options) *Session {
	if opts.VideoBitsPerSecond <= 0 {
		opts.VideoBitsPerSecond = DefaultVideoBitsPerSecond
	}
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = DefaultChunkInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Session{
		composer:  composer,
		recorders: recorders,
		opts:      opts,
		clock:     clock,
		logger:    logging.NewComponentLogger(opts.Logger, "capture"),
		state:     StateIdle,
		observers: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for state and tick events and returns a function that
// removes it. fn runs on the goroutine that caused the event. It must not block
// or call back into the session.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) emit(event Event) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if event.seq < s.delivered {
		return
	}
	s.delivered = event.seq

	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}

// transitionLocked moves to next when the table allows it. Callers hold s.mu.
func (s *Session) transitionLocked(next State) bool {
	if !CanTransition(s.state, next) {
		return false
	}
	s.state = next
	s.seq++
	return true
}

// Start acquires the capture stream and begins recording. From Ready or Error
// the previous clip is discarded. includeAudio requests the microphone; check
// IncludeAudio afterwards since a denied microphone degrades to video only.
func (s *Session) Start(ctx context.Context, includeAudio bool) error {
	s.mu.Lock()
	if !s.transitionLocked(StateRequesting) {
		state := s.state
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, "capture", "start", fmt.Sprintf("session is %s", state), nil)
	}
	r := &run{id: uuid.NewString(), tickStop: make(chan struct{})}
	s.current = r
	s.chunks = nil
	s.clip = nil
	s.err = nil
	s.elapsed = 0
	s.startedAt = time.Time{}
	s.includeAudio = includeAudio
	s.mimeType = ""
	requesting := Event{Kind: EventState, State: StateRequesting, seq: s.seq}
	s.mu.Unlock()
	s.emit(requesting)

	ctx = services.WithSessionID(ctx, r.id)
	logger := logging.WithContext(ctx, s.logger)

	stream, err := s.composer.Acquire(ctx, includeAudio)
	if err != nil {
		s.finish(r, err)
		return err
	}

	mimeType := SelectMIMEType(s.recorders)
	recorder, err := s.recorders.NewRecorder(stream, RecorderOptions{
		MIMEType:           mimeType,
		VideoBitsPerSecond: s.opts.VideoBitsPerSecond,
		OnChunk:            func(chunk []byte) { s.appendChunk(r, chunk) },
		OnError:            func(err error) { go s.finish(r, err) },
	})
	if err != nil {
		stream.Stop()
		err = services.Wrap(services.ErrDeviceUnavailable, "capture", "create recorder", mimeType, err)
		s.finish(r, err)
		return err
	}

	s.mu.Lock()
	s.stream = stream
	s.recorder = recorder
	s.includeAudio = stream.AudioIncluded()
	s.mimeType = mimeType
	s.mu.Unlock()

	if err := recorder.Start(s.opts.ChunkInterval); err != nil {
		err = services.Wrap(services.ErrDeviceUnavailable, "capture", "start recorder", mimeType, err)
		s.finish(r, err)
		return err
	}

	s.mu.Lock()
	if s.current != r || s.state != StateRequesting {
		// the recorder failed between Start and here
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.startedAt = s.clock.Now()
	s.transitionLocked(StateRecording)
	recording := Event{Kind: EventState, State: StateRecording, seq: s.seq}
	audio := s.includeAudio
	s.mu.Unlock()

	go s.tick(r)
	stream.OnVideoEnded(func() {
		logger.Info("shared display ended; finalizing capture")
		s.finish(r, nil)
	})

	logger.Info("capture started",
		logging.String("mime_type", mimeType),
		logging.Bool("audio", audio),
		logging.String(logging.FieldEventType, "capture_started"),
	)
	s.emit(recording)
	return nil
}

// Stop finalizes the recording. It reports false when the session is not
// recording, which makes repeated calls harmless.
func (s *Session) Stop() bool {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return false
	}
	r := s.current
	s.mu.Unlock()
	return s.finish(r, nil)
}

// Close stops an active recording and releases any held tracks.
func (s *Session) Close() {
	if s.Stop() {
		return
	}
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

func (s *Session) appendChunk(r *run, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || !s.state.Active() {
		return
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
}

func (s *Session) tick(r *run) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.tickStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.current != r || s.state != StateRecording {
				s.mu.Unlock()
				return
			}
			s.elapsed = s.clock.Now().Sub(s.startedAt)
			event := Event{Kind: EventTick, State: StateRecording, Elapsed: s.elapsed, seq: s.seq}
			s.mu.Unlock()
			s.emit(event)
		}
	}
}

// finish ends run r. A nil cause is the stop path (explicit stop or display
// end); a non-nil cause moves the session to Error. Tracks and timers are
// released on both paths. It reports whether this call performed the stop.
func (s *Session) finish(r *run, cause error) bool {
	done := false
	r.once.Do(func() {
		done = s.end(r, cause)
	})
	return done
}

func (s *Session) end(r *run, cause error) bool {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		return false
	}
	if cause == nil && !s.transitionLocked(StateStopping) {
		s.mu.Unlock()
		return false
	}
	stoppedAt := s.clock.Now()
	stopping := Event{Kind: EventState, State: StateStopping, seq: s.seq}
	close(r.tickStop)
	recorder := s.recorder
	stream := s.stream
	s.recorder = nil
	s.stream = nil
	logger := logging.WithContext(services.WithSessionID(context.Background(), r.id), s.logger)
	s.mu.Unlock()

	if cause == nil {
		s.emit(stopping)
	}

	var stopErr error
	if recorder != nil {
		stopErr = recorder.Stop()
	}
	if stream != nil {
		stream.Stop()
	}

	if cause == nil && stopErr != nil {
		cause = services.Wrap(services.ErrDeviceUnavailable, "capture", "flush recorder", "", stopErr)
	}

	s.mu.Lock()
	if cause != nil {
		s.transitionLocked(StateError)
		s.err = cause
		s.chunks = nil
		failed := Event{Kind: EventState, State: StateError, Err: cause, seq: s.seq}
		s.mu.Unlock()
		logger.Error("capture failed",
			logging.Error(cause),
			logging.String(logging.FieldEventType, "capture_failed"),
			logging.String(logging.FieldErrorHint, "check screen sharing and microphone permissions, then start again"),
		)
		s.emit(failed)
		return false
	}

	elapsed := stoppedAt.Sub(s.startedAt)
	s.elapsed = elapsed
	s.clip = &Clip{
		Data:     bytes.Join(s.chunks, nil),
		MIMEType: s.mimeType,
		Duration: elapsed.Seconds(),
	}
	s.chunks = nil
	s.transitionLocked(StateReady)
	ready := Event{Kind: EventState, State: StateReady, Elapsed: elapsed, seq: s.seq}
	size := s.clip.Size()
	s.mu.Unlock()

	logger.Info("capture finalized",
		logging.Duration("elapsed", elapsed),
		logging.Int64("bytes", size),
		logging.String(logging.FieldEventType, "capture_ready"),
	)
	s.emit(ready)
	return true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IncludeAudio reports whether the current or last run carries microphone audio.
func (s *Session) IncludeAudio() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.includeAudio
}

// MIMEType returns the container type chosen at start.
func (s *Session) MIMEType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mimeType
}

// Elapsed returns the live elapsed time while recording, or the final
// duration once stopped.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording {
		return s.clock.Now().Sub(s.startedAt)
	}
	return s.elapsed
}

// Err returns the failure that moved the session to Error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Clip returns the finalized clip when the session is Ready.
func (s *Session) Clip() (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.clip == nil {
		return Clip{}, false
	}
	return *s.clip, true
}
