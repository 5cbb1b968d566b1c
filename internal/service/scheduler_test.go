package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueueRunsAfterRunAt(t *testing.T) {
	q := NewTaskQueue(1, 4)

	ran := make(chan time.Time, 1)
	require.NoError(t, q.Start(func(_ context.Context, _ *ReplyTask) error {
		ran <- time.Now()
		return nil
	}))
	defer q.Shutdown()

	runAt := time.Now().Add(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{UserID: "u1", RunAt: runAt}))

	select {
	case at := <-ran:
		assert.False(t, at.Before(runAt))
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	assert.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTaskQueueFull(t *testing.T) {
	q := NewTaskQueue(1, 1)

	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), &ReplyTask{}), ErrQueueFull)
	assert.Equal(t, 1, q.Pending())

	q.Shutdown()
	assert.Zero(t, q.Pending())
	assert.Error(t, q.Enqueue(context.Background(), &ReplyTask{}))
}

func TestTaskQueueShutdownDropsWaitingTasks(t *testing.T) {
	q := NewTaskQueue(2, 8)

	var calls atomic.Int32
	require.NoError(t, q.Start(func(_ context.Context, _ *ReplyTask) error {
		calls.Add(1)
		return nil
	}))

	for range 5 {
		require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: time.Now().Add(time.Hour)}))
	}

	done := make(chan struct{})
	go func() {
		q.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked on waiting tasks")
	}

	assert.Zero(t, calls.Load())
	assert.Zero(t, q.Pending())

	// Safe to call twice
	q.Shutdown()
}

func TestTaskQueueKeepsGoingAfterFailure(t *testing.T) {
	q := NewTaskQueue(1, 4)

	var (
		mu   sync.Mutex
		seen []string
	)
	require.NoError(t, q.Start(func(_ context.Context, task *ReplyTask) error {
		mu.Lock()
		seen = append(seen, task.UserID)
		mu.Unlock()

		if task.UserID == "bad" {
			return errors.New("insert failed")
		}
		return nil
	}))
	defer q.Shutdown()

	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{UserID: "bad", RunAt: time.Now()}))
	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{UserID: "good", RunAt: time.Now()}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTaskQueueStartNeedsHandler(t *testing.T) {
	q := NewTaskQueue(1, 1)
	defer q.Shutdown()

	assert.Error(t, q.Start(nil))
}

func TestTaskQueueLongDelaysDontBlockShortOnes(t *testing.T) {
	const workers = 2
	q := NewTaskQueue(workers, 16)

	var (
		mu       sync.Mutex
		lateness []time.Duration
	)
	require.NoError(t, q.Start(func(_ context.Context, task *ReplyTask) error {
		mu.Lock()
		lateness = append(lateness, time.Since(task.RunAt))
		mu.Unlock()
		return nil
	}))
	defer q.Shutdown()

	now := time.Now()
	for range workers * 2 {
		require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: now.Add(900 * time.Millisecond)}))
	}
	for range workers * 2 {
		require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: now.Add(100 * time.Millisecond)}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lateness) == workers*4
	}, 3*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, l := range lateness {
		assert.GreaterOrEqual(t, l, time.Duration(0))
		assert.Less(t, l, 200*time.Millisecond)
	}
}

func TestTaskQueueFullCountsWaitingTasks(t *testing.T) {
	q := NewTaskQueue(4, 2)
	require.NoError(t, q.Start(func(context.Context, *ReplyTask) error { return nil }))
	defer q.Shutdown()

	later := time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: later}))
	require.NoError(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: later}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), &ReplyTask{RunAt: later}), ErrQueueFull)
}
