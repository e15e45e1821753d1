// Package vector defines the collection-oriented vector storage contract.
package vector

import (
	"context"
	"sort"
	"strings"
)

// Document represents an embedded chunk of text with its metadata.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Store provides named persistent collections of embedded documents.
// One collection backs one context.
type Store interface {
	// EnsureCollection creates the collection if absent. Idempotent.
	EnsureCollection(ctx context.Context, name string) error
	// DeleteCollection removes a collection. Deleting a collection that
	// does not exist is success, not an error.
	DeleteCollection(ctx context.Context, name string) error
	// CollectionExists reports whether the collection is persisted.
	CollectionExists(ctx context.Context, name string) (bool, error)
	// ListCollections returns all persisted collection names.
	ListCollections(ctx context.Context) ([]string, error)
	// Upsert inserts or updates documents in a collection.
	Upsert(ctx context.Context, collection string, docs []Document) error
	// Search finds the top-k most similar documents in a collection.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	// ListSourcePaths returns the distinct source paths recorded in the
	// collection's metadata, normalized for display.
	ListSourcePaths(ctx context.Context, collection string) ([]string, error)
	// Close releases resources.
	Close() error
}

// NormalizePaths dedupes and sorts raw source paths from chunk metadata,
// converting backslashes to forward slashes.
func NormalizePaths(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.ReplaceAll(p, `\`, "/")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
