package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWorkerQueue_ProcessesAndCounts(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	h := HandlerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.Path)
		mu.Unlock()
		if job.Path == "bad.jpg" {
			return errors.New("boom")
		}
		if job.Path == "panic.jpg" {
			panic("kaboom")
		}
		return nil
	})
	q := NewWorkerQueue(h, discard(), WithWorkers(3), WithQueueSize(1))

	ctx := context.Background()
	for _, p := range []string{"a.jpg", "b.jpg", "bad.jpg", "panic.jpg", "c.jpg"} {
		require.NoError(t, q.Enqueue(ctx, Job{Path: p}))
	}
	q.Shutdown(ctx)

	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg", "bad.jpg", "panic.jpg", "c.jpg"}, seen)
	assert.Equal(t, Stats{Succeeded: 3, Failed: 2}, q.Stats())

	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "late.jpg"}), ErrQueueClosed)
	q.Shutdown(ctx) // idempotent
}

func TestWorkerQueue_FillsJobDefaults(t *testing.T) {
	got := make(chan Job, 1)
	q := NewWorkerQueue(HandlerFunc(func(_ context.Context, job Job) error {
		got <- job
		return nil
	}), discard())
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.jpg"}))
	q.Shutdown(context.Background())

	job := <-got
	assert.NotEmpty(t, job.TraceID)
	assert.False(t, job.SubmittedAt.IsZero())
}

func TestWorkerQueue_EnqueueRespectsContext(t *testing.T) {
	release := make(chan struct{})
	q := NewWorkerQueue(HandlerFunc(func(context.Context, Job) error {
		<-release
		return nil
	}), discard(), WithWorkers(1), WithQueueSize(1))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Path: "running.jpg"}))
	// wait until the worker holds the first job so the buffer is empty
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, Job{Path: "buffered.jpg"}))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(short, Job{Path: "blocked.jpg"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(ctx)
	assert.Equal(t, int64(2), q.Stats().Succeeded)
}

func TestWorkerQueue_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := NewWorkerQueue(HandlerFunc(func(context.Context, Job) error {
		<-release
		return nil
	}), discard(), WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.jpg"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	q.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)
}
