// Package temporal runs repository ingestion as durable workflows.
// Webhook-triggered re-ingestion in particular must survive process
// restarts and retry transient failures, which the in-process fallback
// dispatcher cannot guarantee.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IngestInput holds the workflow parameters.
type IngestInput struct {
	RepoURL   string
	ContextID string
}

// IngestWorkflow runs a single repository ingestion with a bounded retry
// policy. Clone failures on a dead remote should not retry forever.
func IngestWorkflow(ctx workflow.Context, input IngestInput) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	return workflow.ExecuteActivity(ctx, IngestRepositoryActivity, input).Get(ctx, nil)
}
