package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/async"
)

// FSIngestor reads card images from the local filesystem and queues them.
// A file whose content was already queued by this ingestor is skipped.
type FSIngestor struct {
	Queue    async.Queue
	MaxBytes int64
	Logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(q async.Queue, maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytesDefault
	}
	return &FSIngestor{Queue: q, MaxBytes: maxBytes, Logger: logger, seen: map[string]struct{}{}}
}

var _ Ingestor = (*FSIngestor)(nil)

func (i *FSIngestor) IngestPath(ctx context.Context, userID uuid.UUID, path string) (Result, error) {
	var out Result

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	switch {
	case !info.Mode().IsRegular():
		return out, fmt.Errorf("%s is not a regular file", abs)
	case info.Size() == 0:
		return out, fmt.Errorf("%s is empty", abs)
	case info.Size() > i.MaxBytes:
		return out, fmt.Errorf("%s is larger than %d bytes", abs, i.MaxBytes)
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out = Result{
		SourcePath: abs,
		HashHex:    hex.EncodeToString(sum),
		FileExt:    ext,
	}

	i.mu.Lock()
	_, dup := i.seen[out.HashHex]
	if !dup {
		i.seen[out.HashHex] = struct{}{}
	}
	i.mu.Unlock()
	if dup {
		out.Deduplicated = true
		i.Logger.Debug("skipping already queued card", "path", abs)
		return out, nil
	}

	job := async.Job{UserID: userID, Path: abs, SubmittedAt: time.Now().UTC(), TraceID: uuid.NewString()}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		i.mu.Lock()
		delete(i.seen, out.HashHex)
		i.mu.Unlock()
		return out, fmt.Errorf("enqueue: %w", err)
	}
	out.TraceID = job.TraceID
	out.QueuedAt = job.SubmittedAt
	return out, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each image. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	userID uuid.UUID,
	root string,
	skipHidden bool,
) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, userID, path)
		if err != nil {
			i.Logger.Warn("ingest failed", "path", path, "error", err)
			results = append(results, Result{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		if r.Deduplicated {
			stats.Deduplicated++
		} else {
			stats.Queued++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("directory ingested",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", stats.Queued,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
