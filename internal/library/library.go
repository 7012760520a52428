// Package library loads the type libraries a project references and turns
// them into read-only declaration sets.
package library

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vbscope/internal/symbols"
)

//go:embed builtin/*.toml
var builtinFS embed.FS

// ErrNotFound reports a reference no definition exists for.
var ErrNotFound = errors.New("library not found")

// Library is one loaded reference.
type Library struct {
	Ref   Reference
	Name  string
	Decls *symbols.LibraryDecls
}

// as returns the library as loaded through ref. The declarations are shared.
func (l *Library) as(ref Reference) *Library {
	if l.Ref == ref {
		return l
	}
	return &Library{Ref: ref, Name: l.Name, Decls: l.Decls}
}

// BuiltinFS returns the definitions compiled into the binary.
func BuiltinFS() fs.FS { return builtinFS }

// Builtins lists the names of the built-in libraries.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		data, err := fs.ReadFile(builtinFS, path.Join("builtin", e.Name()))
		if err != nil {
			continue
		}
		def, err := decode(data, strings.TrimSuffix(e.Name(), ".toml"))
		if err != nil {
			continue
		}
		names = append(names, def.Name)
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names
}

// Loader produces a library for a reference.
type Loader interface {
	Load(ctx context.Context, ref Reference) (*Library, error)
}

// Provider loads references and keeps them: a library is built once and
// shared by every generation after that.
type Provider struct {
	// Dir resolves relative reference paths.
	Dir string

	mu    sync.Mutex
	cache map[string]*Library
}

// NewProvider returns a provider resolving relative paths against dir.
func NewProvider(dir string) *Provider {
	return &Provider{Dir: dir, cache: make(map[string]*Library)}
}

// Load returns the library for ref, building it on first use.
func (p *Provider) Load(ctx context.Context, ref Reference) (*Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := ref.Key()
	if !ref.BuiltIn {
		key = "file:" + p.resolve(ref.Path)
	}
	p.mu.Lock()
	if p.cache == nil {
		p.cache = make(map[string]*Library)
	}
	if lib, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return lib.as(ref), nil
	}
	p.mu.Unlock()

	data, fallback, err := p.read(ref)
	if err != nil {
		return nil, err
	}
	def, err := decode(data, fallback)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", ref, err)
	}
	decls, err := def.build()
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", ref, err)
	}
	lib := &Library{Ref: ref, Name: def.Name, Decls: decls}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.cache[key]; ok {
		return prev.as(ref), nil
	}
	p.cache[key] = lib
	return lib, nil
}

// Forget drops a cached external definition so the next Load rereads it.
func (p *Provider) Forget(ref Reference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ref.BuiltIn {
		delete(p.cache, ref.Key())
		return
	}
	delete(p.cache, "file:"+p.resolve(ref.Path))
}

func (p *Provider) resolve(file string) string {
	if file == "" || filepath.IsAbs(file) || p.Dir == "" {
		return file
	}
	return filepath.Join(p.Dir, file)
}

func (p *Provider) read(ref Reference) (data []byte, fallback string, err error) {
	if ref.BuiltIn || ref.Path == "" {
		entries, err := fs.ReadDir(builtinFS, "builtin")
		if err != nil {
			return nil, "", err
		}
		for _, e := range entries {
			base := strings.TrimSuffix(e.Name(), ".toml")
			if strings.EqualFold(base, ref.Name) {
				data, err := fs.ReadFile(builtinFS, path.Join("builtin", e.Name()))
				return data, ref.Name, err
			}
		}
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
	}
	data, err = os.ReadFile(p.resolve(ref.Path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return data, ref.Name, err
}
