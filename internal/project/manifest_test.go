package project_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vbscope/internal/library"
	"vbscope/internal/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, project.ManifestName)
	writeFile(t, path, `
[project]
name = "Budget"
include = ["src/**/*.bas", "src/**/*.cls"]
exclude = ["**/~*", "src/old/**"]

[[reference]]
name = "VBA"
builtin = true

[[reference]]
name = "Excel"
builtin = true

[[reference]]
name = "Scripting"
path = "libs/scrrun.toml"
priority = 2

[pipeline]
jobs = 3
max_diagnostics = 50
debounce = "40ms"

[settings]
minimum_log_level = "detail"
`)
	m, err := project.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "Budget", m.Name)
	assert.Equal(t, dir, m.Root)
	assert.Equal(t, []string{"src/**/*.bas", "src/**/*.cls"}, m.Include)
	assert.Equal(t, []string{"**/~*", "src/old/**"}, m.Exclude)
	assert.Equal(t, []library.Reference{
		{Name: "VBA", BuiltIn: true},
		{Name: "Excel", BuiltIn: true},
		{Name: "Scripting", Path: "libs/scrrun.toml", Priority: 2},
	}, m.References)
	assert.Equal(t, 3, m.Pipeline.Jobs)
	assert.Equal(t, 50, m.Pipeline.MaxDiagnostics)
	assert.Equal(t, 40*time.Millisecond, m.Pipeline.Debounce)
	assert.Equal(t, ".", m.Settings.Delimiter)
	assert.Equal(t, "detail", m.Settings.MinimumLogLevel)
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, project.ManifestName)
	writeFile(t, path, "[project]\nname = \"P\"\n")

	m, err := project.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, project.DefaultInclude, m.Include)
	assert.Equal(t, library.DefaultReferences(), m.References)
	assert.Equal(t, project.DefaultDebounce, m.Pipeline.Debounce)
	assert.Equal(t, project.DefaultMaxDiagnostics, m.Pipeline.MaxDiagnostics)
	assert.Positive(t, m.Pipeline.Jobs)
}

func TestLoadManifestErrors(t *testing.T) {
	cases := map[string]struct {
		content string
		want    error
		text    string
	}{
		"no project":     {content: "[pipeline]\njobs = 1\n", want: project.ErrProjectSectionMissing},
		"no name":        {content: "[project]\nname = \"  \"\n", want: project.ErrProjectNameMissing},
		"bad debounce":   {content: "[project]\nname = \"P\"\n[pipeline]\ndebounce = \"soon\"\n", text: "debounce"},
		"bad reference":  {content: "[project]\nname = \"P\"\n[[reference]]\nname = \"X\"\n", text: "needs builtin"},
		"unnamed ref":    {content: "[project]\nname = \"P\"\n[[reference]]\nbuiltin = true\n", text: "no name"},
		"bad exclude":    {content: "[project]\nname = \"P\"\nexclude = [\"[\"]\n", text: "exclude"},
		"negative limit": {content: "[project]\nname = \"P\"\n[pipeline]\nmax_diagnostics = -1\n", text: "max_diagnostics"},
		"syntax":         {content: "[project\n", text: "failed to parse TOML"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), project.ManifestName)
			writeFile(t, path, tc.content)
			_, err := project.LoadManifest(path)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			if tc.text != "" {
				assert.Contains(t, err.Error(), tc.text)
			}
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "[project]\nname = \"P\"\n")
	nested := filepath.Join(dir, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok, err := project.FindManifest(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, project.ManifestName), path)

	m, err := project.Open(nested)
	require.NoError(t, err)
	assert.Equal(t, "P", m.Name)
}

func TestOpenWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := project.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "VBAProject", m.Name)
	assert.Equal(t, dir, m.Root)
}

func TestWriteManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := project.DefaultManifest(dir, "Ledger")
	m.References = append(m.References, library.Reference{Name: "Scripting", Path: "libs/scrrun.toml", Priority: 3})
	m.Pipeline.Debounce = 75 * time.Millisecond

	path := filepath.Join(dir, project.ManifestName)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, project.WriteManifest(f, m))
	require.NoError(t, f.Close())

	back, err := project.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "Ledger", back.Name)
	assert.Equal(t, m.Include, back.Include)
	assert.Equal(t, m.Exclude, back.Exclude)
	assert.Equal(t, m.References, back.References)
	assert.Equal(t, 75*time.Millisecond, back.Pipeline.Debounce)
	assert.Equal(t, m.Pipeline.Jobs, back.Pipeline.Jobs)
}
