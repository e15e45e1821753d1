package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cortexhq/cortex/internal/apperr"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "registry.json"))
}

func TestSaveAndLookup_AllURLForms(t *testing.T) {
	tests := []struct {
		name  string
		saved string
	}{
		{"without_suffix", "https://github.com/acme/widgets"},
		{"with_suffix", "https://github.com/acme/widgets.git"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			if err := r.Save(tt.saved, "widgets"); err != nil {
				t.Fatalf("Save: %v", err)
			}
			for _, lookup := range []string{
				"https://github.com/acme/widgets",
				"https://github.com/acme/widgets.git",
			} {
				id, err := r.Lookup(lookup)
				if err != nil {
					t.Errorf("Lookup(%q): %v", lookup, err)
					continue
				}
				if id != "widgets" {
					t.Errorf("Lookup(%q) = %q, want widgets", lookup, id)
				}
			}
		})
	}
}

func TestLookup_NotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Lookup("https://github.com/acme/unknown")
	if !apperr.IsNotFound(err) {
		t.Errorf("want not-found, got %v", err)
	}
}

func TestSave_MergesExistingEntries(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Save("https://example.com/a", "ctx-a"); err != nil {
		t.Fatal(err)
	}
	if err := r.Save("https://example.com/b", "ctx-b"); err != nil {
		t.Fatal(err)
	}

	entries, err := r.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want both mappings", entries)
	}
}

func TestSave_LastWriteWins(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Save("https://example.com/a", "old"); err != nil {
		t.Fatal(err)
	}
	if err := r.Save("https://example.com/a", "new"); err != nil {
		t.Fatal(err)
	}
	id, err := r.Lookup("https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	if id != "new" {
		t.Errorf("Lookup = %q, want new", id)
	}
}

func TestSave_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := New(path).Save("https://example.com/a", "ctx-a"); err != nil {
		t.Fatal(err)
	}

	id, err := New(path).Lookup("https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	if id != "ctx-a" {
		t.Errorf("Lookup after reopen = %q", id)
	}
}

func TestLookup_TrailingSlash(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Save("https://example.com/a", "ctx-a"); err != nil {
		t.Fatal(err)
	}
	id, err := r.Lookup("https://example.com/a/")
	if err != nil {
		t.Fatalf("Lookup with trailing slash: %v", err)
	}
	if id != "ctx-a" {
		t.Errorf("id = %q", id)
	}
}

func TestRead_CorruptFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path).Lookup("https://example.com/a"); err == nil {
		t.Fatal("corrupt registry should surface an error")
	} else if apperr.IsNotFound(err) {
		t.Fatal("corrupt registry must not masquerade as not-found")
	}
}
