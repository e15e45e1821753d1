// Package workspace manages scratch directories for repository clones.
//
// Every ingestion acquires its own directory, so concurrent ingestions never
// share scratch state. Cleanup is best-effort: a clone that indexed
// successfully is not failed because a leftover file could not be removed.
package workspace

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cortexhq/cortex/internal/apperr"
)

// Manager hands out scratch directories under a common root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates a Manager. An empty root falls back to the system
// temp directory.
func NewManager(root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{root: root, logger: logger}
}

// Acquire creates a fresh, empty scratch directory for one ingestion.
func (m *Manager) Acquire() (*Dir, error) {
	if m.root != "" {
		if err := os.MkdirAll(m.root, 0o755); err != nil {
			return nil, apperr.Wrap(apperr.KindWorkspace, "creating scratch root", err)
		}
	}
	path, err := os.MkdirTemp(m.root, "cortex-clone-")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindWorkspace, "creating scratch directory", err)
	}
	return &Dir{path: path, logger: m.logger}, nil
}

// Dir is a single acquired scratch directory.
type Dir struct {
	path   string
	logger *slog.Logger
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Clone runs git clone into the scratch directory. The caller controls the
// timeout through ctx; clone talks to a remote and must never hang forever.
func (d *Dir) Clone(ctx context.Context, repoURL string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repoURL, d.path)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return apperr.Wrap(apperr.KindWorkspace, "git clone timed out or canceled", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return apperr.Newf(apperr.KindWorkspace, "git clone failed: %s", msg)
		}
		return apperr.Wrap(apperr.KindWorkspace, "git clone failed", err)
	}
	return nil
}

// Cleanup removes the scratch directory. Git object files are written
// read-only, so permissions are forced writable before removal. Failure is
// logged as a warning and never propagated.
func (d *Dir) Cleanup() {
	if err := removeAllForced(d.path); err != nil {
		d.logger.Warn("could not clean up scratch directory", "path", d.path, "error", err)
	}
}

func removeAllForced(path string) error {
	if err := os.RemoveAll(path); err == nil {
		return nil
	}

	// Make everything writable and retry once.
	_ = filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			_ = os.Chmod(p, 0o700)
		} else {
			_ = os.Chmod(p, 0o600)
		}
		return nil
	})
	return os.RemoveAll(path)
}
