package project

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"vbscope/internal/library"
)

// ManifestName is the file that marks a project directory.
const ManifestName = "vbscope.toml"

var (
	// ErrProjectSectionMissing indicates that [project] is missing in a manifest.
	ErrProjectSectionMissing = errors.New("missing [project]")
	// ErrProjectNameMissing indicates that [project].name is empty.
	ErrProjectNameMissing = errors.New("missing [project].name")
)

// Manifest is a parsed vbscope.toml.
type Manifest struct {
	// Path is the manifest file, Root the directory holding it.
	Path       string
	Root       string
	Name       string
	Include    []string
	Exclude    []string
	References []library.Reference
	Pipeline   Pipeline
	Settings   Settings
}

// Pipeline tunes the resolution pipeline.
type Pipeline struct {
	Jobs           int
	MaxDiagnostics int
	Debounce       time.Duration
}

// Settings carries display preferences.
type Settings struct {
	Delimiter       string
	MinimumLogLevel string
}

type manifestFile struct {
	Project struct {
		Name    string   `toml:"name"`
		Include []string `toml:"include"`
		Exclude []string `toml:"exclude"`
	} `toml:"project"`
	Reference []library.Reference `toml:"reference"`
	Pipeline  struct {
		Jobs           int    `toml:"jobs,omitempty"`
		MaxDiagnostics int    `toml:"max_diagnostics"`
		Debounce       string `toml:"debounce"`
	} `toml:"pipeline"`
	Settings struct {
		Delimiter       string `toml:"delimiter,omitempty"`
		MinimumLogLevel string `toml:"minimum_log_level,omitempty"`
	} `toml:"settings"`
}

// Defaults for settings a manifest leaves out.
var (
	DefaultInclude        = []string{"**/*.bas", "**/*.cls", "**/*.frm", "**/*.doccls"}
	DefaultExclude        = []string{"**/~*"}
	DefaultMaxDiagnostics = 200
	DefaultDebounce       = 150 * time.Millisecond
)

// DefaultManifest describes a directory without a manifest: every module
// under root, the VBA and stdole references.
func DefaultManifest(root, name string) *Manifest {
	if name == "" {
		name = "VBAProject"
	}
	return &Manifest{
		Root:       root,
		Name:       name,
		Include:    append([]string(nil), DefaultInclude...),
		Exclude:    append([]string(nil), DefaultExclude...),
		References: library.DefaultReferences(),
		Pipeline: Pipeline{
			Jobs:           runtime.GOMAXPROCS(0),
			MaxDiagnostics: DefaultMaxDiagnostics,
			Debounce:       DefaultDebounce,
		},
		Settings: Settings{Delimiter: ".", MinimumLogLevel: "phase"},
	}
}

// LoadManifest parses a vbscope.toml and fills in defaults.
func LoadManifest(path string) (*Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	name := strings.TrimSpace(cfg.Project.Name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrProjectNameMissing)
	}
	m := DefaultManifest(filepath.Dir(path), name)
	m.Path = path

	if meta.IsDefined("project", "include") {
		m.Include = cfg.Project.Include
	}
	if meta.IsDefined("project", "exclude") {
		m.Exclude = cfg.Project.Exclude
	}
	for _, pattern := range m.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%s: invalid include pattern %q", path, pattern)
		}
	}
	for _, pattern := range m.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return nil, fmt.Errorf("%s: invalid exclude pattern %q: %w", path, pattern, err)
		}
	}

	if meta.IsDefined("reference") {
		m.References = nil
		for i, ref := range cfg.Reference {
			ref.Name = strings.TrimSpace(ref.Name)
			if ref.Name == "" {
				return nil, fmt.Errorf("%s: reference %d has no name", path, i+1)
			}
			if !ref.BuiltIn && ref.Path == "" {
				return nil, fmt.Errorf("%s: reference %s needs builtin = true or a path", path, ref.Name)
			}
			m.References = append(m.References, ref)
		}
	}

	if meta.IsDefined("pipeline", "jobs") && cfg.Pipeline.Jobs > 0 {
		m.Pipeline.Jobs = cfg.Pipeline.Jobs
	}
	if meta.IsDefined("pipeline", "max_diagnostics") {
		if cfg.Pipeline.MaxDiagnostics < 0 {
			return nil, fmt.Errorf("%s: max_diagnostics must not be negative", path)
		}
		m.Pipeline.MaxDiagnostics = cfg.Pipeline.MaxDiagnostics
	}
	if meta.IsDefined("pipeline", "debounce") {
		d, err := time.ParseDuration(cfg.Pipeline.Debounce)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid debounce: %w", path, err)
		}
		m.Pipeline.Debounce = d
	}
	if meta.IsDefined("settings", "delimiter") && cfg.Settings.Delimiter != "" {
		m.Settings.Delimiter = cfg.Settings.Delimiter
	}
	if meta.IsDefined("settings", "minimum_log_level") {
		m.Settings.MinimumLogLevel = cfg.Settings.MinimumLogLevel
	}
	return m, nil
}

// WriteManifest encodes m as vbscope.toml. Jobs is written only when it
// differs from the machine default.
func WriteManifest(w io.Writer, m *Manifest) error {
	var cfg manifestFile
	cfg.Project.Name = m.Name
	cfg.Project.Include = m.Include
	cfg.Project.Exclude = m.Exclude
	cfg.Reference = m.References
	if m.Pipeline.Jobs != runtime.GOMAXPROCS(0) {
		cfg.Pipeline.Jobs = m.Pipeline.Jobs
	}
	cfg.Pipeline.MaxDiagnostics = m.Pipeline.MaxDiagnostics
	cfg.Pipeline.Debounce = m.Pipeline.Debounce.String()
	cfg.Settings.Delimiter = m.Settings.Delimiter
	cfg.Settings.MinimumLogLevel = m.Settings.MinimumLogLevel
	return toml.NewEncoder(w).Encode(cfg)
}

// FindManifest walks up from startDir to locate vbscope.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Open loads the manifest governing dir, or a default one when none exists.
func Open(dir string) (*Manifest, error) {
	path, ok, err := FindManifest(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		return DefaultManifest(abs, ""), nil
	}
	return LoadManifest(path)
}
