package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = errors.New("import queue is shutting down")

// Job is one card image to import for a user. BackPath is optional.
type Job struct {
	UserID      uuid.UUID
	Path        string
	BackPath    string
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes one job.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Stats counts finished jobs.
type Stats struct {
	Succeeded int64
	Failed    int64
}
