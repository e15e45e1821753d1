package temporal

import (
	"context"
	"errors"
	"testing"
)

type recordingIngestor struct {
	repoURL   string
	contextID string
	err       error
}

func (r *recordingIngestor) IngestRepository(ctx context.Context, repoURL, contextID string) error {
	r.repoURL = repoURL
	r.contextID = contextID
	return r.err
}

func TestSetDependencies(t *testing.T) {
	ing := &recordingIngestor{}
	SetDependencies(&Dependencies{Ingest: ing})

	if deps == nil || deps.Ingest != ing {
		t.Fatal("dependencies not set")
	}
}

func TestIngestRepositoryActivity(t *testing.T) {
	ing := &recordingIngestor{}
	SetDependencies(&Dependencies{Ingest: ing})

	input := IngestInput{RepoURL: "https://example.com/r.git", ContextID: "proj"}
	if err := IngestRepositoryActivity(context.Background(), input); err != nil {
		t.Fatalf("activity: %v", err)
	}
	if ing.repoURL != input.RepoURL || ing.contextID != input.ContextID {
		t.Errorf("ingestor called with (%q, %q)", ing.repoURL, ing.contextID)
	}
}

func TestIngestRepositoryActivityPropagatesError(t *testing.T) {
	want := errors.New("clone failed")
	SetDependencies(&Dependencies{Ingest: &recordingIngestor{err: want}})

	err := IngestRepositoryActivity(context.Background(), IngestInput{RepoURL: "u", ContextID: "c"})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}
