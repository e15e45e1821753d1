package chat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/source"
	"github.com/cortexhq/cortex/internal/vector"
)

type scriptedProvider struct {
	mu         sync.Mutex
	answers    []string
	turn       int
	lastPrompt *llm.Prompt
}

func (p *scriptedProvider) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPrompt = prompt
	answer := "answer"
	if p.turn < len(p.answers) {
		answer = p.answers[p.turn]
	}
	p.turn++
	return &llm.Response{Content: answer}, nil
}

func (p *scriptedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

type memStore struct {
	collections map[string][]vector.SearchResult
}

func (s *memStore) EnsureCollection(ctx context.Context, name string) error { return nil }
func (s *memStore) DeleteCollection(ctx context.Context, name string) error { return nil }

func (s *memStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := s.collections[name]
	return ok, nil
}

func (s *memStore) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }

func (s *memStore) Upsert(ctx context.Context, collection string, docs []vector.Document) error {
	return nil
}

func (s *memStore) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.SearchResult, error) {
	results := s.collections[collection]
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *memStore) ListSourcePaths(ctx context.Context, collection string) ([]string, error) {
	return nil, nil
}

func (s *memStore) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCache(store *memStore, provider llm.Provider) *Cache {
	return NewCache(provider, store, Options{TopK: 3, MaxHistory: 4}, testLogger())
}

func TestCacheGetUnknownContext(t *testing.T) {
	cache := testCache(&memStore{collections: map[string][]vector.SearchResult{}}, &scriptedProvider{})

	_, err := cache.Get(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want KindNotFound", apperr.KindOf(err))
	}
}

func TestCacheGetReusesSession(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{"proj": nil}}
	cache := testCache(store, &scriptedProvider{})

	a, err := cache.Get(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Get(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the same session instance")
	}
}

func TestCacheInvalidate(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{"proj": nil}}
	cache := testCache(store, &scriptedProvider{})

	a, _ := cache.Get(context.Background(), "proj")
	cache.Invalidate("proj")
	b, _ := cache.Get(context.Background(), "proj")
	if a == b {
		t.Error("expected a fresh session after invalidation")
	}
	// Invalidating an absent session must be a no-op.
	cache.Invalidate("ghost")
}

func TestSessionAskInjectsRetrievedContext(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{
		"proj": {
			{Content: "func Add(a, b int) int { return a + b }", Metadata: map[string]string{source.MetaFilePath: "math/add.go"}},
			{Content: "# usage notes", Metadata: map[string]string{source.MetaFilename: "README.md"}},
		},
	}}
	provider := &scriptedProvider{answers: []string{"Add sums two ints."}}
	cache := testCache(store, provider)

	session, err := cache.Get(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	answer, err := session.Ask(context.Background(), "what does Add do?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Add sums two ints." {
		t.Errorf("answer = %q", answer)
	}

	sys := provider.lastPrompt.SystemPrompt
	for _, want := range []string{`"proj"`, "math/add.go", "func Add", "README.md"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if got := len(provider.lastPrompt.Messages); got != 1 {
		t.Errorf("first turn carried %d messages, want 1", got)
	}
}

func TestSessionAskCarriesBoundedHistory(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{"proj": nil}}
	provider := &scriptedProvider{}
	cache := testCache(store, provider) // MaxHistory: 4

	session, err := cache.Get(context.Background(), "proj")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := session.Ask(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	// 4 retained messages plus the in-flight question.
	if got := len(provider.lastPrompt.Messages); got != 5 {
		t.Errorf("prompt carried %d messages, want 5", got)
	}
	first := provider.lastPrompt.Messages[0]
	if strings.Contains(first.Content, "question 0") || strings.Contains(first.Content, "question 1") {
		t.Errorf("oldest turns not evicted, first message = %q", first.Content)
	}
}

func TestSessionAskStripsThinking(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{"proj": nil}}
	provider := &scriptedProvider{answers: []string{"<think>hm</think>  plain answer"}}
	cache := testCache(store, provider)

	session, _ := cache.Get(context.Background(), "proj")
	answer, err := session.Ask(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "plain answer" {
		t.Errorf("answer = %q", answer)
	}
}

func TestSessionAskEmptyRetrieval(t *testing.T) {
	store := &memStore{collections: map[string][]vector.SearchResult{"proj": nil}}
	provider := &scriptedProvider{}
	cache := testCache(store, provider)

	session, _ := cache.Get(context.Background(), "proj")
	if _, err := session.Ask(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(provider.lastPrompt.SystemPrompt, "No relevant code") {
		t.Errorf("system prompt = %q", provider.lastPrompt.SystemPrompt)
	}
}
