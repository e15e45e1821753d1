package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cortexhq/cortex/internal/apperr"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/vector"
)

// Options configure sessions built by a Cache.
type Options struct {
	TopK       int
	MaxHistory int
}

// Cache lazily builds one Session per context and evicts it when the
// context's data changes. Building a session checks that the context's
// collection actually exists, so chatting with an unknown context fails
// with a not-found error instead of querying an empty collection.
type Cache struct {
	provider llm.Provider
	store    vector.Store
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewCache returns an empty session cache.
func NewCache(provider llm.Provider, store vector.Store, opts Options, logger *slog.Logger) *Cache {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		provider: provider,
		store:    store,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for contextID, building it on first use.
func (c *Cache) Get(ctx context.Context, contextID string) (*Session, error) {
	c.mu.Lock()
	if s, ok := c.sessions[contextID]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	// Existence check runs outside the lock so a slow store does not
	// block other contexts. Two racing callers may both build a session;
	// the later store wins and both are valid.
	exists, err := c.store.CollectionExists(ctx, contextID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "checking context", err)
	}
	if !exists {
		return nil, apperr.Newf(apperr.KindNotFound, "context %q has not been ingested", contextID)
	}

	s := &Session{
		contextID:  contextID,
		provider:   c.provider,
		store:      c.store,
		topK:       c.opts.TopK,
		maxHistory: c.opts.MaxHistory,
	}
	c.mu.Lock()
	c.sessions[contextID] = s
	c.mu.Unlock()
	c.logger.Debug("chat session created", "context_id", contextID)
	return s, nil
}

// Invalidate drops the cached session for contextID, if any. The next
// Get rebuilds it against the refreshed collection.
func (c *Cache) Invalidate(contextID string) {
	c.mu.Lock()
	if _, ok := c.sessions[contextID]; ok {
		delete(c.sessions, contextID)
		c.logger.Debug("chat session evicted", "context_id", contextID)
	}
	c.mu.Unlock()
}
