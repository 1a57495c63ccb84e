package batch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"hevc-shrink/internal/filesystem"
	"hevc-shrink/internal/logging"
)

// walker expands directories. It remembers every directory it has listed,
// by resolved path, for the lifetime of one batch.
type walker struct {
	retry   filesystem.RetryConfig
	visited map[string]struct{}
}

func newWalker(retry filesystem.RetryConfig) *walker {
	return &walker{retry: retry, visited: make(map[string]struct{})}
}

type node struct {
	path  string
	isDir bool
}

// walk calls file for every non-directory under root, in depth-first
// lexical order, and fail for every directory that could not be listed.
// root itself is passed to file when it is not a directory. walk stops
// early when ctx is cancelled or a callback returns false, and reports
// whether the whole tree was visited.
func (w *walker) walk(ctx context.Context, root string, file func(path string) bool, fail func(path string, err error) bool) bool {
	info, err := filesystem.Stat(root, w.retry)
	if err != nil || !info.IsDir() {
		// Missing roots are reported by the converter's own stat.
		return file(root)
	}

	stack := []node{{path: root, isDir: true}}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return false
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !n.isDir {
			if !file(n.path) {
				return false
			}
			continue
		}

		children, err := w.list(n.path)
		if err != nil {
			if !fail(n.path, err) {
				return false
			}
			continue
		}
		// Reverse so the lexically first child is popped first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return true
}

// list returns the children of dir, or nil when dir was already visited.
func (w *walker) list(dir string) ([]node, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}
	if _, seen := w.visited[resolved]; seen {
		logging.Warn("Skipping %s: directory %s was already visited", dir, resolved)
		return nil, nil
	}
	w.visited[resolved] = struct{}{}

	entries, err := filesystem.ReadDir(dir, w.retry)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	nodes := make([]node, 0, len(entries))
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			// Follow links to directories. Dangling links are passed on as files
			// and skipped by the processor as not regular.
			if info, err := filesystem.Stat(p, w.retry); err == nil {
				isDir = info.IsDir()
			}
		}
		nodes = append(nodes, node{path: p, isDir: isDir})
	}
	return nodes, nil
}
