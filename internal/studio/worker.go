// Package studio runs background work for the studio server,
// currently album builds queued through the SQLite job queue.
package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bananafashion/studio/internal/album"
	"github.com/bananafashion/studio/internal/portfolio"
)

// JobTypeAlbumBuild is the queue type for album builds.
const JobTypeAlbumBuild = "album_build"

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*portfolio.Job, error)
	CompleteJob(id, resultJSON string) error
	FailJob(id string, errMsg string) error
	UpdateJobProgress(id, stage string, percent int) error
}

// AlbumBuilder produces the finished PDF for one request.
type AlbumBuilder interface {
	Build(ctx context.Context, req album.Request, progress album.ProgressFunc) ([]byte, error)
}

// ProgressNotifier receives live progress updates, typically a
// websocket hub. Notifications are best-effort.
type ProgressNotifier interface {
	Notify(jobID, stage string, percent int)
}

// AlbumResult is the completed job's result payload.
type AlbumResult struct {
	Path string `json:"path"`
}

// NewAlbumJob wraps an album request into a queueable job.
func NewAlbumJob(req album.Request) (portfolio.Job, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return portfolio.Job{}, fmt.Errorf("encoding album request: %w", err)
	}
	return portfolio.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeAlbumBuild,
		PayloadJSON: string(payload),
	}, nil
}

// Worker processes album_build jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	builder  AlbumBuilder
	notifier ProgressNotifier
	outDir   string
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker writing finished albums into outDir.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, builder AlbumBuilder, notifier ProgressNotifier, outDir string, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		builder:  builder,
		notifier: notifier,
		outDir:   outDir,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single album_build job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeAlbumBuild})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	result, err := w.processJob(ctx, job)
	if err != nil {
		w.logger.Warn("album build failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID, result); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	w.notify(job.ID, "done", 100)
	return true, nil
}

func (w *Worker) notify(jobID, stage string, percent int) {
	if w.notifier != nil {
		w.notifier.Notify(jobID, stage, percent)
	}
}

func (w *Worker) processJob(ctx context.Context, job *portfolio.Job) (string, error) {
	var req album.Request
	if err := json.Unmarshal([]byte(job.PayloadJSON), &req); err != nil {
		return "", fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.builder.Build(ctx, req, func(p album.Progress) {
		if err := w.store.UpdateJobProgress(job.ID, p.Stage, p.Percent); err != nil {
			w.logger.Warn("recording progress failed", "job_id", job.ID, "error", err)
		}
		w.notify(job.ID, p.Stage, p.Percent)
	})
	if err != nil {
		return "", fmt.Errorf("building album: %w", err)
	}

	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating album directory: %w", err)
	}
	path := filepath.Join(w.outDir, job.ID+".pdf")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("writing album: %w", err)
	}

	result, err := json.Marshal(AlbumResult{Path: path})
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(result), nil
}
