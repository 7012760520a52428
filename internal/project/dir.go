package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"vbscope/internal/diag"
	"vbscope/internal/source"
)

// DirProvider reads exported modules from a project directory.
type DirProvider struct {
	manifest *Manifest
	exclude  []glob.Glob

	mu      sync.Mutex
	paths   map[source.ModuleID]string
	diags   []diag.Diagnostic
	changes chan Change
	watcher *Watcher
}

// NewDirProvider prepares a provider for the manifest's directory.
func NewDirProvider(m *Manifest) (*DirProvider, error) {
	exclude, err := compileGlobs(m.Exclude)
	if err != nil {
		return nil, err
	}
	return &DirProvider{
		manifest: m,
		exclude:  exclude,
		paths:    make(map[source.ModuleID]string),
		changes:  make(chan Change, 256),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Project returns the manifest's project name.
func (p *DirProvider) Project() string { return p.manifest.Name }

// Manifest returns the manifest the provider was built from.
func (p *DirProvider) Manifest() *Manifest { return p.manifest }

// Matches reports whether a path relative to the root, with '/' separators,
// names a module of the project.
func (p *DirProvider) Matches(rel string) bool {
	if _, ok := source.KindFromPath(rel); !ok {
		return false
	}
	for _, g := range p.exclude {
		if g.Match(rel) {
			return false
		}
	}
	for _, pattern := range p.manifest.Include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ListModules scans the directory. When two files export the same module
// name the first path in lexical order wins and a diagnostic is recorded.
func (p *DirProvider) ListModules(ctx context.Context) ([]source.ModuleID, error) {
	fsys := os.DirFS(p.manifest.Root)
	seen := make(map[string]struct{})
	var rels []string
	for _, pattern := range p.manifest.Include {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if _, dup := seen[rel]; dup || !p.Matches(rel) {
				continue
			}
			seen[rel] = struct{}{}
			rels = append(rels, rel)
		}
	}
	sort.Strings(rels)

	paths := make(map[source.ModuleID]string, len(rels))
	folded := make(map[string]source.ModuleID, len(rels))
	var diags []diag.Diagnostic
	for _, rel := range rels {
		id := source.ModuleNameFromPath(rel)
		abs := filepath.Join(p.manifest.Root, filepath.FromSlash(rel))
		if first, dup := folded[source.Fold(string(id))]; dup {
			d := diag.NewWarning(diag.ProjDuplicateModule, source.Span{Module: id},
				fmt.Sprintf("module %s in %s ignored, already defined by %s", id, rel, paths[first]))
			diags = append(diags, d)
			continue
		}
		folded[source.Fold(string(id))] = id
		paths[id] = abs
	}

	p.mu.Lock()
	p.paths = paths
	p.diags = diags
	p.mu.Unlock()

	ids := make([]source.ModuleID, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	source.SortModules(ids)
	return ids, nil
}

// Snapshot reads the module from disk.
func (p *DirProvider) Snapshot(ctx context.Context, id source.ModuleID) (*source.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	path, ok := p.paths[id]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return source.LoadSnapshot(p.manifest.Name, path)
}

// Diagnostics returns the problems found by the last scan and by the watcher.
func (p *DirProvider) Diagnostics() []diag.Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]diag.Diagnostic(nil), p.diags...)
}

// Changes delivers module events while Watch runs.
func (p *DirProvider) Changes() <-chan Change { return p.changes }

// Watch starts reporting changes until ctx is done.
func (p *DirProvider) Watch(ctx context.Context) error {
	p.mu.Lock()
	if p.watcher != nil {
		p.mu.Unlock()
		return errors.New("already watching")
	}
	p.mu.Unlock()

	w, err := NewWatcher(p.manifest.Root, p.manifest.Pipeline.Debounce, p.exclude, p.onChange, p.onError)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.watcher = w
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = w.Close()
		p.mu.Lock()
		p.watcher = nil
		p.mu.Unlock()
	}()
	return nil
}

func (p *DirProvider) onError(err error) {
	d := diag.NewWarning(diag.IOWatchError, source.Span{}, err.Error())
	p.mu.Lock()
	p.diags = append(p.diags, d)
	p.mu.Unlock()
}

// onChange turns a batch of file paths into module events.
func (p *DirProvider) onChange(paths []string) {
	sort.Strings(paths)
	for _, path := range paths {
		rel, err := filepath.Rel(p.manifest.Root, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !p.Matches(rel) {
			continue
		}
		id := source.ModuleNameFromPath(rel)
		_, statErr := os.Stat(path)
		exists := statErr == nil

		p.mu.Lock()
		known, ok := p.paths[id]
		var c Change
		switch {
		case exists && !ok:
			p.paths[id] = path
			c = Change{Module: id, Op: OpAdded, Path: path}
		case exists && known == path:
			c = Change{Module: id, Op: OpEdited, Path: path}
		case !exists && ok && known == path:
			delete(p.paths, id)
			c = Change{Module: id, Op: OpRemoved, Path: path}
		}
		p.mu.Unlock()

		if c.Op == 0 {
			continue
		}
		select {
		case p.changes <- c:
		default:
			p.onError(fmt.Errorf("change buffer full, %s %s dropped", c.Op, c.Module))
		}
	}
}

var _ Provider = (*DirProvider)(nil)
var _ Provider = (*MemoryProvider)(nil)

// IsNotExist reports whether err means a module file vanished.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrUnknownModule)
}
