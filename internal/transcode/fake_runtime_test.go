package transcode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeRuntime keeps scratch files in memory and "transcodes" by copying the
// input with a prefix.
type fakeRuntime struct {
	mu       sync.Mutex
	files    map[string][]byte
	loadErr  error
	execErr  error
	execHook func()
	ratios   []float64
	execs    [][]string
	loads    int
	closed   bool
	active   int
	maxSeen  int
	probeDur float64
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{files: map[string][]byte{}}
}

func (r *fakeRuntime) Load(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	return r.loadErr
}

func (r *fakeRuntime) WriteFile(name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.files[name]; exists {
		return fmt.Errorf("collision on %s", name)
	}
	r.files[name] = append([]byte(nil), data...)
	return nil
}

func (r *fakeRuntime) ReadFile(name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[name]
	if !ok {
		return nil, ErrNoSuchFile
	}
	return append([]byte(nil), data...), nil
}

func (r *fakeRuntime) DeleteFile(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[name]; !ok {
		return ErrNoSuchFile
	}
	delete(r.files, name)
	return nil
}

func (r *fakeRuntime) Exec(_ context.Context, req ExecRequest) error {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.execs = append(r.execs, req.Args)
	hook := r.execHook
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if hook != nil {
		hook()
	}
	for _, ratio := range r.ratios {
		req.OnProgress(ratio)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	output := req.Args[len(req.Args)-1]
	if _, exists := r.files[output]; exists {
		return fmt.Errorf("output %s already present", output)
	}
	if r.execErr != nil {
		// partial output left behind by a failed encode
		r.files[output] = []byte("partial")
		return r.execErr
	}
	input, ok := r.files[InputName]
	if !ok {
		return errors.New("input missing")
	}
	r.files[output] = append([]byte("trimmed:"+strings.Join(req.Args[2:6], " ")+":"), input...)
	return nil
}

func (r *fakeRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRuntime) fileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// probingRuntime adds Prober.
type probingRuntime struct {
	*fakeRuntime
}

func (r probingRuntime) Probe(context.Context, string) (float64, error) {
	return r.probeDur, nil
}

type factoryCounter struct {
	mu       sync.Mutex
	calls    int
	runtimes []*fakeRuntime
	prepare  func(*fakeRuntime, int)
}

func (f *factoryCounter) factory() Runtime {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	rt := newFakeRuntime()
	if f.prepare != nil {
		f.prepare(rt, f.calls)
	}
	f.runtimes = append(f.runtimes, rt)
	return rt
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
