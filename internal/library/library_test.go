package library_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vbscope/internal/library"
	"vbscope/internal/symbols"
)

func load(t *testing.T, p *library.Provider, ref library.Reference) *library.Library {
	t.Helper()
	lib, err := p.Load(context.Background(), ref)
	require.NoError(t, err)
	return lib
}

func TestBuiltinsListed(t *testing.T) {
	assert.Equal(t, []string{"Excel", "stdole", "VBA"}, library.Builtins())
}

func TestLoadBuiltinVBA(t *testing.T) {
	p := library.NewProvider("")
	lib := load(t, p, library.Reference{Name: "vba", BuiltIn: true})
	assert.Equal(t, "VBA", lib.Name)

	msgbox := lib.Decls.Global("msgbox")
	require.Len(t, msgbox, 1)
	assert.Equal(t, symbols.KindFunction, msgbox[0].Kind)
	assert.Equal(t, "VbMsgBoxResult", msgbox[0].TypeName)

	coll := lib.Decls.Global("Collection")
	require.Len(t, coll, 1)
	assert.Equal(t, symbols.KindLibraryClass, coll[0].Kind)
	assert.Len(t, lib.Decls.Children(coll[0].ID, "Add"), 1)
	// class members need qualification
	assert.Empty(t, lib.Decls.Global("Remove"))

	ok := lib.Decls.Global("vbOK")
	require.Len(t, ok, 1)
	assert.Equal(t, symbols.KindEnumerationMember, ok[0].Kind)
}

func TestLoadIsCached(t *testing.T) {
	p := library.NewProvider("")
	a := load(t, p, library.Reference{Name: "Excel", BuiltIn: true})
	b := load(t, p, library.Reference{Name: "EXCEL", BuiltIn: true})
	assert.Same(t, a.Decls, b.Decls)
	assert.Same(t, a, load(t, p, library.Reference{Name: "Excel", BuiltIn: true}))

	p.Forget(library.Reference{Name: "Excel", BuiltIn: true})
	c := load(t, p, library.Reference{Name: "Excel", BuiltIn: true})
	assert.NotSame(t, a.Decls, c.Decls)
}

func TestExcelGlobalsPreferAccessorOverClass(t *testing.T) {
	lib := load(t, library.NewProvider(""), library.Reference{Name: "Excel", BuiltIn: true})
	rng := lib.Decls.Global("Range")
	require.Len(t, rng, 2)
	assert.Equal(t, symbols.KindPropertyGet, rng[0].Kind)
	assert.Equal(t, symbols.KindLibraryClass, rng[1].Kind)
}

func TestLoadUnknownBuiltin(t *testing.T) {
	_, err := library.NewProvider("").Load(context.Background(), library.Reference{Name: "Outlook", BuiltIn: true})
	assert.True(t, errors.Is(err, library.ErrNotFound))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	def := `
name = "Scripting"

[[class]]
name = "Dictionary"
members = [
  { name = "Add", kind = "sub" },
  { name = "Exists", kind = "function", type = "Boolean" },
  { name = "Count", kind = "property", type = "Long" },
]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scrrun.toml"), []byte(def), 0o644))

	p := library.NewProvider(dir)
	lib := load(t, p, library.Reference{Name: "Scripting", Path: "scrrun.toml"})
	assert.Equal(t, "Scripting", lib.Name)
	dict := lib.Decls.Global("dictionary")
	require.Len(t, dict, 1)
	count := lib.Decls.Children(dict[0].ID, "count")
	require.Len(t, count, 1)
	assert.Equal(t, symbols.KindPropertyGet, count[0].Kind)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	p := library.NewProvider(dir)

	_, err := p.Load(context.Background(), library.Reference{Name: "Gone", Path: "gone.toml"})
	assert.ErrorIs(t, err, library.ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("name = \"Bad\"\nbogus = 1\n"), 0o644))
	_, err = p.Load(context.Background(), library.Reference{Name: "Bad", Path: "bad.toml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	kind := "name = \"K\"\n[[module]]\nname = \"M\"\nmembers = [{ name = \"X\", kind = \"widget\" }]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kind.toml"), []byte(kind), 0o644))
	_, err = p.Load(context.Background(), library.Reference{Name: "K", Path: "kind.toml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget")
}

func TestLoadHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := library.NewProvider("").Load(ctx, library.Reference{Name: "VBA", BuiltIn: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetOrder(t *testing.T) {
	p := library.NewProvider("")
	excel := load(t, p, library.Reference{Name: "Excel", BuiltIn: true})
	vba := load(t, p, library.Reference{Name: "VBA", BuiltIn: true})

	s := library.NewSet(vba, excel)
	assert.Equal(t, []string{"VBA", "Excel"}, s.Names())
	require.Len(t, s.Decls(), 2)
	assert.Same(t, vba.Decls, s.Decls()[0])

	swapped := library.NewSet(excel, vba)
	assert.Equal(t, []string{"Excel", "VBA"}, swapped.Names())
	assert.NotEqual(t, s.Fingerprint(), swapped.Fingerprint())
	assert.Equal(t, s.Fingerprint(), library.NewSet(vba, excel).Fingerprint())
}

func TestSetPriorityOverridesDeclaredOrder(t *testing.T) {
	p := library.NewProvider("")
	vba := load(t, p, library.Reference{Name: "VBA", BuiltIn: true, Priority: 1})
	excel := load(t, p, library.Reference{Name: "Excel", BuiltIn: true})
	assert.Equal(t, []string{"Excel", "VBA"}, library.NewSet(vba, excel).Names())
}

func TestNilSet(t *testing.T) {
	var s *library.Set
	assert.Zero(t, s.Len())
	assert.Nil(t, s.Names())
	assert.NotEmpty(t, s.Fingerprint())
}
