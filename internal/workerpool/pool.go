package workerpool

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"clipper/internal/logging"
)

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a bounded goroutine pool with a fixed-size task queue. Submit never
// blocks; a full queue rejects the task.
type Pool struct {
	queue     chan Task
	wg        sync.WaitGroup
	accepting atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
	stopChan  chan struct{}
	logger    *slog.Logger
}

// New creates a pool with workers goroutines and a queue of queueSize.
func New(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		queue:    make(chan Task, queueSize),
		stopChan: make(chan struct{}),
		logger:   logging.NewComponentLogger(logger, "workerpool"),
	}
	p.accepting.Store(true)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	p.logger.Debug("worker pool started", logging.Int("workers", workers), logging.Int("queue_size", queueSize))
	return p
}

// Submit enqueues a task. Returns false if the pool is stopped or the queue is full.
// wg.Add happens before the enqueue so Drain cannot miss the task.
func (p *Pool) Submit(task Task) bool {
	if !p.accepting.Load() {
		return false
	}
	p.wg.Add(1)
	select {
	case p.queue <- task:
		return true
	default:
		p.wg.Done()
		p.logger.Warn("worker pool queue full, task rejected",
			logging.String(logging.FieldEventType, "task_rejected"),
			logging.String(logging.FieldErrorHint, "raise analytics.queue_size or analytics.workers"),
		)
		return false
	}
}

// StopAccepting prevents new tasks from being submitted.
func (p *Pool) StopAccepting() {
	p.accepting.Store(false)
}

// Drain waits for queued and in-flight tasks, bounded by ctx, then releases
// the workers. Submit returns false afterwards.
func (p *Pool) Drain(ctx context.Context) {
	p.StopAccepting()
	p.stopOnce.Do(func() { close(p.stopChan) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("worker pool drained")
	case <-ctx.Done():
		p.logger.Warn("worker pool drain timed out",
			logging.String(logging.FieldEventType, "drain_timeout"),
			logging.String(logging.FieldErrorHint, "pending analytics reports were dropped"),
		)
	}
	p.closeOnce.Do(func() { close(p.queue) })
}

func (p *Pool) worker() {
	for {
		select {
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(task)
		case <-p.stopChan:
			for {
				select {
				case task, ok := <-p.queue:
					if !ok {
						return
					}
					p.run(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(task Task) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", logging.Any("panic", r), logging.String("stack", string(debug.Stack())))
		}
	}()
	task()
}
