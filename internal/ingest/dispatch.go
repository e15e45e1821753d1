package ingest

import (
	"context"
	"log/slog"
	"time"
)

// Job identifies a repository ingestion request.
type Job struct {
	RepoURL   string
	ContextID string
}

// Dispatcher routes ingestion jobs to an executor. The API server calls
// IngestRepository for request-scoped ingests and ScheduleResync for
// webhook-triggered ones, which must outlive the triggering request.
type Dispatcher interface {
	// IngestRepository runs the job and returns when indexing finishes.
	IngestRepository(ctx context.Context, job Job) error
	// ScheduleResync starts the job in the background and returns
	// immediately. Failures are retried a bounded number of times.
	ScheduleResync(ctx context.Context, job Job) error
}

// RepositoryIngestor is the part of Service a dispatcher needs.
type RepositoryIngestor interface {
	IngestRepository(ctx context.Context, repoURL, contextID string) error
}

// LocalDispatcher executes jobs in-process. ScheduleResync retries with
// exponential backoff on a detached context so a dropped webhook
// connection cannot cancel the re-index.
type LocalDispatcher struct {
	service     RepositoryIngestor
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewLocalDispatcher returns a dispatcher that runs jobs on the given
// service. maxAttempts <= 0 defaults to 3.
func NewLocalDispatcher(service RepositoryIngestor, maxAttempts int, logger *slog.Logger) *LocalDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalDispatcher{
		service:     service,
		maxAttempts: maxAttempts,
		baseDelay:   5 * time.Second,
		logger:      logger,
	}
}

func (d *LocalDispatcher) IngestRepository(ctx context.Context, job Job) error {
	return d.service.IngestRepository(ctx, job.RepoURL, job.ContextID)
}

func (d *LocalDispatcher) ScheduleResync(_ context.Context, job Job) error {
	go d.runWithRetry(job)
	return nil
}

func (d *LocalDispatcher) runWithRetry(job Job) {
	ctx := context.Background()
	delay := d.baseDelay
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.service.IngestRepository(ctx, job.RepoURL, job.ContextID)
		if err == nil {
			return
		}
		d.logger.Warn("resync attempt failed",
			"repo_url", job.RepoURL, "context_id", job.ContextID,
			"attempt", attempt, "max_attempts", d.maxAttempts, "error", err)
		if attempt < d.maxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	d.logger.Error("resync abandoned after retries",
		"repo_url", job.RepoURL, "context_id", job.ContextID, "attempts", d.maxAttempts)
}
