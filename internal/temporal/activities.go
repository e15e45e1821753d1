package temporal

import (
	"context"

	"github.com/cortexhq/cortex/internal/ingest"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Ingest ingest.RepositoryIngestor
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// IngestRepositoryActivity clones and indexes one repository. The heavy
// lifting lives in the ingest service; the activity only adapts it to
// Temporal's serialized input.
func IngestRepositoryActivity(ctx context.Context, input IngestInput) error {
	return deps.Ingest.IngestRepository(ctx, input.RepoURL, input.ContextID)
}
