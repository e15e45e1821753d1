// Package source walks a directory tree and turns the files worth indexing
// into document records.
package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cortexhq/cortex/internal/apperr"
)

// Metadata keys recognized downstream.
const (
	MetaSourceType = "source_type"
	MetaRepoURL    = "repo_url"
	MetaCollection = "collection"
	MetaFilePath   = "file_path"
	MetaFilename   = "filename"
	MetaChunkIndex = "chunk_index"
)

// Source types.
const (
	SourceGitRepo    = "git_repo"
	SourceFileUpload = "file_upload"
)

// Document is one readable file with its metadata, ready for chunking and
// embedding. Immutable once produced.
type Document struct {
	Text     string
	Path     string
	Metadata map[string]string
}

// DefaultExtensions is the allow-list of file extensions considered
// indexable source, markup, config, or text.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".tsx", ".jsx", ".go", ".rs",
	".html", ".css", ".java", ".c", ".h", ".cpp",
	".md", ".json", ".yaml", ".yml", ".toml", ".txt", ".sh",
}

// DefaultExcludes are path patterns that never get indexed: version-control
// metadata, dependency and cache directories, and lock files.
var DefaultExcludes = []string{
	".git", ".hg", ".svn",
	"node_modules", "__pycache__", "vendor", "dist", "build",
	".venv", "venv", "target", ".cache", ".idea", ".vscode",
	"*.lock", "package-lock.json", "yarn.lock", "go.sum",
}

// maxFileSize guards against embedding generated blobs. Files over this
// size are skipped, not failed.
const maxFileSize = 1 << 20 // 1 MiB

// Loader enumerates indexable files under a root directory.
type Loader struct {
	extensions map[string]bool
	excludes   []string
}

// NewLoader creates a Loader using the defaults plus any extra allowed
// extensions or exclusion patterns.
func NewLoader(extraExtensions, extraExcludes []string) *Loader {
	exts := make(map[string]bool, len(DefaultExtensions)+len(extraExtensions))
	for _, e := range DefaultExtensions {
		exts[strings.ToLower(e)] = true
	}
	for _, e := range extraExtensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = true
	}
	return &Loader{
		extensions: exts,
		excludes:   append(append([]string{}, DefaultExcludes...), extraExcludes...),
	}
}

// Load walks root recursively and returns one Document per surviving file,
// each carrying a copy of baseMeta. Fails with a load error when root does
// not exist or yields zero matching files.
func (l *Loader) Load(root string, baseMeta map[string]string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLoad, "source root not readable", err)
	}
	if !info.IsDir() {
		return nil, apperr.Newf(apperr.KindLoad, "source root %s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != root && l.excludedName(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.accepts(name) {
			return nil
		}
		if fi, err := entry.Info(); err != nil || fi.Size() > maxFileSize {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable file, skip
		}
		if !utf8.Valid(data) {
			return nil
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return nil
		}

		meta := make(map[string]string, len(baseMeta)+1)
		for k, v := range baseMeta {
			meta[k] = v
		}
		meta[MetaFilePath] = path

		docs = append(docs, Document{Text: text, Path: path, Metadata: meta})
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindLoad, "walking source tree", err)
	}
	if len(docs) == 0 {
		return nil, apperr.Newf(apperr.KindLoad, "no indexable documents under %s", root)
	}
	return docs, nil
}

// accepts reports whether a file name passes the extension allow-list and
// the exclusion patterns.
func (l *Loader) accepts(name string) bool {
	if l.excludedName(name) {
		return false
	}
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

func (l *Loader) excludedName(name string) bool {
	for _, pattern := range l.excludes {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
		} else if name == pattern {
			return true
		}
	}
	return false
}
