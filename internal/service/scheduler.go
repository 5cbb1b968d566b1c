package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("reply queue full")

// ReplyTask is a deferred automated reply. Text is the human message that
// triggered it.
type ReplyTask struct {
	UserID    string    `json:"user_id"`
	MessageID uint      `json:"message_id"`
	Text      string    `json:"text"`
	RunAt     time.Time `json:"run_at"`
}

type ReplyHandler func(ctx context.Context, t *ReplyTask) error

// ReplyScheduler runs ReplyTasks no earlier than their RunAt. Delivery is best
// effort: there's no ordering between tasks and no retry.
type ReplyScheduler interface {
	Start(h ReplyHandler) error
	Enqueue(ctx context.Context, t *ReplyTask) error
	// Shutdown stops accepting work. Tasks still waiting are dropped and logged.
	Shutdown()
}

// TaskQueue is the in-process ReplyScheduler. Each task waits on its own timer
// and is handed to the worker pool once RunAt passes, so a long delay never
// holds up a shorter one. Tasks are lost if the process exits before they run.
type TaskQueue struct {
	ready   chan *ReplyTask
	workers int
	size    int
	pending atomic.Int32

	mu     sync.Mutex
	timers map[*ReplyTask]*time.Timer

	handler ReplyHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

var _ ReplyScheduler = (*TaskQueue)(nil)

// NewTaskQueue creates a queue holding at most size waiting tasks
func NewTaskQueue(workers, size int) *TaskQueue {
	ctx, cancel := context.WithCancel(context.Background())

	zap.L().Debug("Initializing reply queue", zap.Int("workers", workers), zap.Int("size", size))

	return &TaskQueue{
		ready:   make(chan *ReplyTask),
		workers: workers,
		size:    size,
		timers:  map[*ReplyTask]*time.Timer{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (q *TaskQueue) Start(h ReplyHandler) error {
	if h == nil {
		return errors.New("no reply handler provided")
	}

	q.handler = h

	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}

	return nil
}

// Pending returns the number of tasks accepted but not finished yet
func (q *TaskQueue) Pending() int {
	return int(q.pending.Load())
}

func (q *TaskQueue) Enqueue(_ context.Context, t *ReplyTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx.Err() != nil {
		return errors.New("reply queue stopped")
	}

	if int(q.pending.Load()) >= q.size {
		return ErrQueueFull
	}

	q.pending.Add(1)
	q.wg.Add(1)
	q.timers[t] = time.AfterFunc(time.Until(t.RunAt), func() { q.fire(t) })

	return nil
}

// fire hands a due task to the workers
func (q *TaskQueue) fire(t *ReplyTask) {
	defer q.wg.Done()

	q.mu.Lock()
	delete(q.timers, t)
	q.mu.Unlock()

	select {
	case <-q.ctx.Done():
		q.drop(t)
	case q.ready <- t:
	}
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.ready:
			q.run(t)
		}
	}
}

func (q *TaskQueue) run(t *ReplyTask) {
	defer q.pending.Add(-1)

	if err := q.handler(q.ctx, t); err != nil {
		repliesTotal.WithLabelValues("failed").Inc()
		zap.L().Error("Automated reply failed", zap.String("user_id", t.UserID), zap.Uint("message_id", t.MessageID), zap.Error(err))
		return
	}

	repliesTotal.WithLabelValues("delivered").Inc()
}

func (q *TaskQueue) drop(t *ReplyTask) {
	q.pending.Add(-1)
	repliesTotal.WithLabelValues("dropped").Inc()
	zap.L().Warn("Dropping automated reply on shutdown", zap.String("user_id", t.UserID), zap.Uint("message_id", t.MessageID))
}

func (q *TaskQueue) Shutdown() {
	q.once.Do(func() {
		q.mu.Lock()
		q.cancel()

		// Timers that already fired drop their task themselves
		for t, timer := range q.timers {
			if timer.Stop() {
				q.drop(t)
				q.wg.Done()
			}
		}
		clear(q.timers)
		q.mu.Unlock()

		q.wg.Wait()
	})
}
