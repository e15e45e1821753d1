// Package chat serves retrieval-augmented conversations over ingested
// contexts.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/observability"
	"github.com/cortexhq/cortex/internal/source"
	"github.com/cortexhq/cortex/internal/vector"
)

const tracerName = "github.com/cortexhq/cortex/internal/chat"

// defaultMaxHistory bounds the number of past messages (user and
// assistant combined) replayed into each completion.
const defaultMaxHistory = 20

// Session is a per-context conversation. Each turn embeds the question,
// retrieves the most similar chunks from the context's collection, and
// asks the provider to answer from them. History is kept in memory and
// bounded; a session is discarded whenever its context is re-ingested.
type Session struct {
	contextID  string
	provider   llm.Provider
	store      vector.Store
	topK       int
	maxHistory int

	mu      sync.Mutex
	history []llm.Message
}

// Ask runs one conversation turn. Safe for concurrent use; turns within
// one session are serialized so history stays ordered.
func (s *Session) Ask(ctx context.Context, message string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "chat.ask")
	span.SetAttributes(attribute.String("context_id", s.contextID))
	defer span.End()

	vecs, err := s.provider.Embed(ctx, []string{message})
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "embedding question", err)
	}
	if len(vecs) == 0 {
		return "", apperr.New(apperr.KindInternal, "embedding question: empty result")
	}

	results, err := s.store.Search(ctx, s.contextID, vecs[0], s.topK)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "searching context", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := &llm.Prompt{
		SystemPrompt: s.systemPrompt(results),
		Messages:     append(append([]llm.Message(nil), s.history...), llm.Message{Role: llm.RoleUser, Content: message}),
	}

	llmCtx, llmSpan := observability.StartLLMSpan(ctx, s.provider.Name(), "")
	turnStart := time.Now()
	resp, err := s.provider.Complete(llmCtx, prompt, nil)
	if err != nil {
		observability.RecordError(llmSpan, err)
		llmSpan.End()
		return "", apperr.Wrap(apperr.KindInternal, "generating answer", err)
	}
	observability.RecordLLMMetrics(llmSpan, resp.InputTokens, resp.OutputTokens, time.Since(turnStart))
	llmSpan.End()
	answer := strings.TrimSpace(llm.StripThinkingTags(resp.Content))

	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	return answer, nil
}

// systemPrompt names the codebase and inlines the retrieved chunks. The
// model is told to answer only from that material.
func (s *Session) systemPrompt(results []vector.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a specialized code assistant for the codebase %q. ", s.contextID)
	b.WriteString("Answer questions using only the code context below. ")
	b.WriteString("If the answer is not in the code, say so.\n")
	if len(results) == 0 {
		b.WriteString("\nNo relevant code was found for this question.\n")
		return b.String()
	}
	b.WriteString("\nCode context:\n")
	for _, r := range results {
		path := r.Metadata[source.MetaFilePath]
		if path == "" {
			path = r.Metadata[source.MetaFilename]
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", path, r.Content)
	}
	return b.String()
}
