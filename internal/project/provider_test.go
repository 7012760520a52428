package project_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vbscope/internal/diag"
	"vbscope/internal/project"
	"vbscope/internal/source"
)

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	p := project.NewMemoryProvider("VBAProject")
	p.Put("Module2", source.KindStandard, "Sub Bar(): End Sub")
	p.Put("module1", source.KindStandard, "Sub Foo(): End Sub")
	p.Put("Module2", source.KindStandard, "Sub Bar(): Foo: End Sub")

	ids, err := p.ListModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"module1", "Module2"}, ids)

	snap, err := p.Snapshot(ctx, "Module2")
	require.NoError(t, err)
	assert.Equal(t, "Sub Bar(): Foo: End Sub", string(snap.Content))
	assert.Equal(t, "VBAProject", snap.Project)

	assert.True(t, p.Remove("module1"))
	assert.False(t, p.Remove("module1"))
	_, err = p.Snapshot(ctx, "module1")
	assert.ErrorIs(t, err, project.ErrUnknownModule)

	var ops []project.Op
	for len(ops) < 4 {
		ops = append(ops, (<-p.Changes()).Op)
	}
	assert.Equal(t, []project.Op{project.OpAdded, project.OpAdded, project.OpEdited, project.OpRemoved}, ops)
	assert.Zero(t, p.Dropped())

	all, err := project.Snapshots(ctx, p)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, source.ModuleID("Module2"), all[0].Module)
}

func newDirProject(t *testing.T, files map[string]string) *project.DirProvider {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	m := project.DefaultManifest(dir, "P")
	m.Pipeline.Debounce = 20 * time.Millisecond
	p, err := project.NewDirProvider(m)
	require.NoError(t, err)
	return p
}

func TestDirProviderListsModules(t *testing.T) {
	p := newDirProject(t, map[string]string{
		"src/Module1.bas":     "Sub Foo(): End Sub\n",
		"src/Classes/Acc.cls": "Public Balance As Currency\n",
		"src/~Temp.bas":       "Sub X(): End Sub\n",
		"src/notes.txt":       "hello\n",
		"other/module1.bas":   "Sub Dup(): End Sub\n",
	})
	ids, err := p.ListModules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Acc", "module1"}, ids)

	diags := p.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diag.ProjDuplicateModule, diags[0].Code)
	assert.Contains(t, diags[0].Message, "src/Module1.bas")

	snap, err := p.Snapshot(context.Background(), "Acc")
	require.NoError(t, err)
	assert.Equal(t, source.KindClass, snap.Kind)
	assert.Equal(t, "P", snap.Project)

	_, err = p.Snapshot(context.Background(), "Nope")
	assert.True(t, project.IsNotExist(err))
}

func TestDirProviderMatches(t *testing.T) {
	p := newDirProject(t, nil)
	assert.True(t, p.Matches("a/b/Module.bas"))
	assert.True(t, p.Matches("Form1.frm"))
	assert.False(t, p.Matches("a/~lock.bas"))
	assert.False(t, p.Matches("readme.md"))
}

func TestDirProviderWatch(t *testing.T) {
	p := newDirProject(t, map[string]string{"Module1.bas": "Sub Foo(): End Sub\n"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := p.ListModules(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Watch(ctx))

	root := p.Manifest().Root
	writeFile(t, filepath.Join(root, "Module2.bas"), "Sub Bar(): End Sub\n")

	select {
	case c := <-p.Changes():
		assert.Equal(t, source.ModuleID("Module2"), c.Module)
		assert.Equal(t, project.OpAdded, c.Op)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	ids, err := p.ListModules(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
