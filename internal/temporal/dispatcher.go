package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/ingest"
)

// Dispatcher routes ingestion jobs through Temporal workflows. Request
// ingests wait for the workflow result; webhook resyncs only start it.
type Dispatcher struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewDispatcher wraps an existing Temporal client.
func NewDispatcher(c client.Client, taskQueue string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: c, taskQueue: taskQueue, logger: logger}
}

func (d *Dispatcher) IngestRepository(ctx context.Context, job ingest.Job) error {
	run, err := d.start(ctx, job)
	if err != nil {
		return err
	}
	if err := run.Get(ctx, nil); err != nil {
		return apperr.Wrap(apperr.KindIngest, "ingest workflow failed", err)
	}
	return nil
}

func (d *Dispatcher) ScheduleResync(ctx context.Context, job ingest.Job) error {
	run, err := d.start(ctx, job)
	if err != nil {
		return err
	}
	d.logger.Info("resync workflow started",
		"workflow_id", run.GetID(), "run_id", run.GetRunID(), "context_id", job.ContextID)
	return nil
}

func (d *Dispatcher) start(ctx context.Context, job ingest.Job) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("ingest-%s-%s", job.ContextID, uuid.NewString()),
		TaskQueue: d.taskQueue,
	}
	run, err := d.client.ExecuteWorkflow(ctx, opts, IngestWorkflow, IngestInput{
		RepoURL:   job.RepoURL,
		ContextID: job.ContextID,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "starting ingest workflow", err)
	}
	return run, nil
}
