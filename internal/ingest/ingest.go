package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	TraceID      string
	Deduplicated bool
	HashHex      string
	FileExt      string
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Queued       uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor discovers card images and hands them to the import queue.
type Ingestor interface {
	// IngestPath queues a single file.
	IngestPath(ctx context.Context, userID uuid.UUID, path string) (Result, error)
	// IngestDirectory queues all matching files under root.
	IngestDirectory(ctx context.Context, userID uuid.UUID, root string, skipHidden bool) ([]Result, DirStats, error)
}
