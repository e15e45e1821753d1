// Package ingest implements the indexing pipeline: clone or receive
// sources, chunk them, embed the chunks, and write them into the vector
// store.
package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/metrics"
	"github.com/cortexhq/cortex/internal/observability"
	"github.com/cortexhq/cortex/internal/registry"
	"github.com/cortexhq/cortex/internal/source"
	"github.com/cortexhq/cortex/internal/vector"
	"github.com/cortexhq/cortex/internal/workspace"
)

const tracerName = "github.com/cortexhq/cortex/internal/ingest"

// Mode selects how indexing treats an existing collection.
type Mode int

const (
	// ModeReplace drops and rebuilds the context's collection. Used for
	// repository ingestion: a full rebuild is the only way to remove
	// stale vectors, there is no incremental diffing.
	ModeReplace Mode = iota
	// ModeAppend writes into the existing collection without deletion.
	// Used for single-file uploads.
	ModeAppend
)

func (m Mode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "replace"
}

// Invalidator evicts cached chat sessions after a context's data changes.
type Invalidator interface {
	Invalidate(contextID string)
}

// Options configure a Service.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	CloneTimeout   time.Duration
}

// Service runs ingestions. Ingestions for the same context are serialized;
// different contexts may ingest concurrently, each in its own scratch
// directory.
type Service struct {
	workspaces *workspace.Manager
	loader     *source.Loader
	store      vector.Store
	provider   llm.Provider
	registry   *registry.Registry
	sessions   Invalidator
	metrics    *metrics.Metrics
	chunker    *Chunker
	opts       Options
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the pipeline. sessions and m may be nil (CLI and worker
// processes have no session cache).
func NewService(
	workspaces *workspace.Manager,
	loader *source.Loader,
	store vector.Store,
	provider llm.Provider,
	reg *registry.Registry,
	sessions Invalidator,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 32
	}
	if opts.CloneTimeout <= 0 {
		opts.CloneTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		workspaces: workspaces,
		loader:     loader,
		store:      store,
		provider:   provider,
		registry:   reg,
		sessions:   sessions,
		metrics:    m,
		chunker:    NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		opts:       opts,
		logger:     logger,
	}
}

// IngestRepository clones repoURL, indexes every matching file under a
// rebuilt collection for contextID, and records the URL in the registry.
// The registry and session cache are touched only after indexing fully
// succeeds.
func (s *Service) IngestRepository(ctx context.Context, repoURL, contextID string) error {
	unlock := s.lockContext(contextID)
	defer unlock()

	ctx, span := observability.StartIngestSpan(ctx, contextID, repoURL)
	defer span.End()

	start := time.Now()
	s.logger.Info("starting repository ingest", "repo_url", repoURL, "context_id", contextID)

	dir, err := s.workspaces.Acquire()
	if err != nil {
		return s.finish(span, ModeReplace, start, err)
	}
	defer dir.Cleanup()

	cloneCtx, cancel := context.WithTimeout(ctx, s.opts.CloneTimeout)
	err = dir.Clone(cloneCtx, repoURL)
	cancel()
	if err != nil {
		return s.finish(span, ModeReplace, start, err)
	}

	docs, err := s.loader.Load(dir.Path(), map[string]string{
		source.MetaSourceType: source.SourceGitRepo,
		source.MetaRepoURL:    repoURL,
		source.MetaCollection: contextID,
	})
	if err != nil {
		return s.finish(span, ModeReplace, start, err)
	}
	relativizePaths(docs, dir.Path())

	chunks, err := s.index(ctx, contextID, docs, ModeReplace)
	if err != nil {
		return s.finish(span, ModeReplace, start, err)
	}
	observability.RecordIngestResult(span, len(docs), chunks)

	if err := s.registry.Save(repoURL, contextID); err != nil {
		return s.finish(span, ModeReplace, start, err)
	}
	s.invalidate(contextID)

	s.logger.Info("repository ingest complete",
		"context_id", contextID, "documents", len(docs), "elapsed", time.Since(start))
	return s.finish(span, ModeReplace, start, nil)
}

// IngestUpload appends one uploaded file to contextID's collection,
// creating the collection when the context is new.
func (s *Service) IngestUpload(ctx context.Context, contextID, filename string, content []byte) error {
	unlock := s.lockContext(contextID)
	defer unlock()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.upload")
	span.SetAttributes(attribute.String("context_id", contextID))
	defer span.End()

	start := time.Now()

	doc := source.Document{
		Text: string(content),
		Path: filename,
		Metadata: map[string]string{
			source.MetaSourceType: source.SourceFileUpload,
			source.MetaFilename:   filename,
			source.MetaCollection: contextID,
		},
	}

	chunks, err := s.index(ctx, contextID, []source.Document{doc}, ModeAppend)
	if err != nil {
		return s.finish(span, ModeAppend, start, err)
	}
	observability.RecordIngestResult(span, 1, chunks)
	s.invalidate(contextID)

	s.logger.Info("file upload ingested", "context_id", contextID, "filename", filename)
	return s.finish(span, ModeAppend, start, nil)
}

// index prepares the collection for the given mode, then embeds and
// upserts every chunk in batches. The first embedding or storage failure
// aborts the whole batch.
func (s *Service) index(ctx context.Context, contextID string, docs []source.Document, mode Mode) (int, error) {
	if mode == ModeReplace {
		if err := s.store.DeleteCollection(ctx, contextID); err != nil {
			return 0, apperr.Wrap(apperr.KindIngest, "dropping stale collection", err)
		}
	}
	if err := s.store.EnsureCollection(ctx, contextID); err != nil {
		return 0, apperr.Wrap(apperr.KindIngest, "creating collection", err)
	}

	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.chunker.Split(doc)...)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	for offset := 0; offset < len(chunks); offset += s.opts.EmbedBatchSize {
		end := offset + s.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.provider.Embed(ctx, texts)
		if err != nil {
			return 0, apperr.Wrap(apperr.KindIngest, "embedding batch", err)
		}
		if len(vectors) != len(texts) {
			return 0, apperr.Newf(apperr.KindIngest, "embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}

		points := make([]vector.Document, len(batch))
		for i, c := range batch {
			points[i] = vector.Document{
				ID:       uuid.NewString(),
				Content:  c.Text,
				Vector:   vectors[i],
				Metadata: c.Metadata,
			}
		}
		if err := s.store.Upsert(ctx, contextID, points); err != nil {
			return 0, apperr.Wrap(apperr.KindIngest, "storing embedded chunks", err)
		}
	}

	if s.metrics != nil {
		s.metrics.DocumentsIndexed.Add(float64(len(docs)))
		s.metrics.ChunksEmbedded.Add(float64(len(chunks)))
	}
	return len(chunks), nil
}

// lockContext serializes ingestions per context id.
func (s *Service) lockContext(contextID string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := s.locks[contextID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[contextID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *Service) invalidate(contextID string) {
	if s.sessions != nil {
		s.sessions.Invalidate(contextID)
	}
}

func (s *Service) finish(span trace.Span, mode Mode, start time.Time, err error) error {
	observability.RecordError(span, err)
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.IngestsTotal.WithLabelValues(mode.String(), outcome).Inc()
		s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}
	return err
}

// relativizePaths rewrites each document's recorded path to be relative to
// the scratch root, so stored metadata never leaks scratch directory names.
func relativizePaths(docs []source.Document, root string) {
	for i := range docs {
		rel, err := filepath.Rel(root, docs[i].Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		docs[i].Path = rel
		docs[i].Metadata[source.MetaFilePath] = rel
	}
}
