package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vbscope/internal/diag"
	"vbscope/internal/parser"
	"vbscope/internal/source"
	"vbscope/internal/symbols"
)

const project = "VBAProject"

type mod struct {
	name string
	kind source.ModuleKind
	text string
}

func std(name, text string) mod   { return mod{name: name, kind: source.KindStandard, text: text} }
func class(name, text string) mod { return mod{name: name, kind: source.KindClass, text: text} }

func collect(t *testing.T, m mod) *symbols.ModuleDecls {
	t.Helper()
	snap := source.NewSnapshot(project, source.ModuleID(m.name), m.kind, []byte(m.text))
	file, _ := parser.Parse(snap, 0)
	return symbols.Collect(project, snap, file)
}

func build(t *testing.T, libs []*symbols.LibraryDecls, mods ...mod) *symbols.Graph {
	t.Helper()
	decls := make([]*symbols.ModuleDecls, 0, len(mods))
	for _, m := range mods {
		decls = append(decls, collect(t, m))
	}
	ix := symbols.NewIndex(project, decls, libs)
	entries := make([]*symbols.ModuleEntry, 0, len(decls))
	for _, d := range decls {
		entries = append(entries, &symbols.ModuleEntry{Snapshot: d.Snap, Decls: d, Binding: ix.Bind(d)})
	}
	return symbols.NewGraph(1, ix, entries)
}

func mustLookup(t *testing.T, g *symbols.Graph, name string) *symbols.Declaration {
	t.Helper()
	d, ok := g.Lookup(name)
	require.True(t, ok, "lookup %s", name)
	return d
}

func hasCode(diags []diag.Diagnostic, code diag.Code) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCrossModuleCallBindsToPublicSub(t *testing.T) {
	g := build(t, nil,
		std("Module1", "Public Sub Foo(): End Sub"),
		std("Module2", "Sub Bar(): Foo : End Sub"),
	)
	assert.Empty(t, g.Unbound())

	foo := mustLookup(t, g, "Module1.Foo")
	assert.Equal(t, symbols.KindProcedure, foo.Kind)

	refs := g.References("Module2")
	require.Len(t, refs, 1)
	assert.Equal(t, foo.ID, refs[0].Target)
	assert.Equal(t, "Foo", refs[0].Name)

	to := g.ReferencesTo(foo.ID)
	require.Len(t, to, 1)
	assert.Equal(t, source.ModuleID("Module2"), to[0].Module)
}

func TestUnknownNameIsKeptAsUnbound(t *testing.T) {
	g := build(t, nil, std("Module1", "Sub Foo(): Baz : End Sub"))
	unbound := g.Unbound()
	require.Len(t, unbound, 1)
	assert.Equal(t, "Baz", unbound[0].Name)
	assert.False(t, unbound[0].IsBound())
	assert.Empty(t, g.Diagnostics("Module1"), "unbound references are not errors without Option Explicit")
}

func TestOptionExplicitReportsUnboundAsInfo(t *testing.T) {
	g := build(t, nil, std("Module1", "Option Explicit\nSub Foo()\n    Baz\nEnd Sub\n"))
	diags := g.Diagnostics("Module1")
	require.True(t, hasCode(diags, diag.ResUnboundReference))
	for _, d := range diags {
		assert.Equal(t, diag.SevInfo, d.Severity)
	}
}

func TestLocalShadowsModuleMember(t *testing.T) {
	g := build(t, nil, std("Module1", `Private x As Long
Sub A()
    Dim x As String
    x = "a"
End Sub
Sub B()
    x = 1
End Sub
`))
	local := mustLookup(t, g, "Module1.A.x")
	field := mustLookup(t, g, "Module1.x")
	require.NotEqual(t, local.ID, field.ID)

	localRefs := g.ReferencesTo(local.ID)
	require.Len(t, localRefs, 1)
	assert.True(t, localRefs[0].IsAssignment)
	assert.Equal(t, mustLookup(t, g, "Module1.A").ID, localRefs[0].Enclosing)

	fieldRefs := g.ReferencesTo(field.ID)
	require.Len(t, fieldRefs, 1)
	assert.Equal(t, mustLookup(t, g, "Module1.B").ID, fieldRefs[0].Enclosing)
}

func TestPrivateMembersStayInTheirModule(t *testing.T) {
	g := build(t, nil,
		std("Module1", "Private Sub Hidden(): End Sub\nDim counter As Long\n"),
		std("Module2", "Sub B()\n    Hidden\n    counter = 1\n    Module1.Hidden\nEnd Sub\n"),
	)
	names := map[string]bool{}
	for _, r := range g.Unbound() {
		names[r.Name] = true
	}
	assert.True(t, names["Hidden"])
	assert.True(t, names["counter"])
	assert.True(t, hasCode(g.Diagnostics("Module2"), diag.ResUnknownMember))
}

func TestAmbiguousPublicNamePicksFirstModule(t *testing.T) {
	g := build(t, nil,
		std("Beta", "Public Sub Dup(): End Sub"),
		std("alpha", "Public Sub Dup(): End Sub"),
		std("Caller", "Sub C(): Dup : End Sub"),
	)
	refs := g.References("Caller")
	require.Len(t, refs, 1)
	assert.Equal(t, mustLookup(t, g, "alpha.Dup").ID, refs[0].Target)
	assert.True(t, hasCode(g.Diagnostics("Caller"), diag.ResAmbiguousName))
}

func TestOwnModuleWinsOverOtherModules(t *testing.T) {
	g := build(t, nil,
		std("Module1", "Public Sub Dup(): End Sub"),
		std("Module2", "Sub Dup(): End Sub\nSub C(): Dup : End Sub"),
	)
	refs := g.References("Module2")
	require.Len(t, refs, 1)
	assert.Equal(t, mustLookup(t, g, "Module2.Dup").ID, refs[0].Target)
	assert.False(t, hasCode(g.Diagnostics("Module2"), diag.ResAmbiguousName))
}

func TestMemberAccessThroughClassType(t *testing.T) {
	g := build(t, nil,
		class("Class1", "Public Sub Go(): End Sub\nPrivate Sub Secret(): End Sub\n"),
		std("Module1", `Sub T()
    Dim c As New Class1
    c.Go
    c.Secret
    With c
        .Go
    End With
    Set c = New Class1
End Sub
`),
	)
	c := mustLookup(t, g, "Module1.T.c")
	assert.True(t, c.IsSelfAssigned)
	assert.True(t, c.TypeSpecified)

	cls := mustLookup(t, g, "Class1")
	typ, ok := g.AsType(c.ID)
	require.True(t, ok)
	assert.Equal(t, cls.ID, typ.ID)

	goRefs := g.ReferencesTo(mustLookup(t, g, "Class1.Go").ID)
	require.Len(t, goRefs, 2)
	for _, r := range goRefs {
		assert.True(t, r.HasExplicitBinding)
	}
	assert.Equal(t, "c", goRefs[0].Qualifier)

	var secret *symbols.Reference
	for _, r := range g.Unbound() {
		if r.Name == "Secret" {
			secret = r
		}
	}
	require.NotNil(t, secret)

	var set bool
	for _, r := range g.ReferencesTo(c.ID) {
		if r.IsSetAssignment {
			set = true
			assert.True(t, r.IsAssignment)
		}
	}
	assert.True(t, set, "Set c = ... marks a set assignment")
	assert.Len(t, g.ReferencesTo(cls.ID), 2, "As New Class1 and New Class1 are type references")
}

func TestUnknownBaseTypeRecordsNoMemberReference(t *testing.T) {
	g := build(t, nil, std("Module1", "Sub T(v)\n    v.Anything\nEnd Sub\n"))
	refs := g.References("Module1")
	require.Len(t, refs, 1)
	assert.Equal(t, "v", refs[0].Name)
	assert.True(t, refs[0].IsBound())
}

func TestTypeReferenceToNonTypeIsAnError(t *testing.T) {
	g := build(t, nil, std("Module1", "Sub Foo(): End Sub\nSub T()\n    Dim x As Foo\nEnd Sub\n"))
	diags := g.Diagnostics("Module1")
	require.True(t, hasCode(diags, diag.ResNotAType))
	x := mustLookup(t, g, "Module1.T.x")
	_, ok := g.AsType(x.ID)
	assert.False(t, ok)
}

func TestIntrinsicTypesProduceNoReference(t *testing.T) {
	g := build(t, nil, std("Module1", "Dim a As Long, b As String * 10, c As Variant\n"))
	assert.Empty(t, g.References("Module1"))
}

func TestUnknownTypeIsUnboundTypeReference(t *testing.T) {
	g := build(t, nil, std("Module1", "Dim a As Widget\n"))
	unbound := g.Unbound()
	require.Len(t, unbound, 1)
	assert.True(t, unbound[0].IsTypeReference)
	assert.Equal(t, "Widget", unbound[0].Name)
}

func TestCircularUserTypeIsAnError(t *testing.T) {
	g := build(t, nil, std("Module1", `Type A
    inner As B
End Type
Type B
    outer As A
End Type
Type Node
    children() As Node
End Type
`))
	var circular []string
	for _, d := range g.Diagnostics("Module1") {
		if d.Code == diag.ResCircularType {
			circular = append(circular, d.Message)
		}
	}
	assert.Len(t, circular, 2, "A and B each contain themselves; Node only through an array")
}

func TestUserTypeFieldAccess(t *testing.T) {
	g := build(t, nil,
		std("Types", "Public Type Point\n    X As Long\n    Y As Long\nEnd Type\n"),
		std("Module1", "Sub T()\n    Dim p As Point\n    p.X = 1\nEnd Sub\n"),
	)
	x := mustLookup(t, g, "Types.Point.X")
	refs := g.ReferencesTo(x.ID)
	require.Len(t, refs, 1)
	assert.True(t, refs[0].IsAssignment)
	assert.Equal(t, "p", refs[0].Qualifier)
}

func TestEnumMembersResolveUnqualified(t *testing.T) {
	g := build(t, nil,
		std("Enums", "Public Enum Color\n    Red\n    Green = 2\nEnd Enum\n"),
		std("Module1", "Sub T()\n    Dim c As Color\n    c = Red\n    c = Color.Green\nEnd Sub\n"),
	)
	assert.Empty(t, g.Unbound())
	assert.Len(t, g.ReferencesTo(mustLookup(t, g, "Enums.Red").ID), 1)
	assert.Len(t, g.ReferencesTo(mustLookup(t, g, "Color.Green").ID), 1)
}

func TestFunctionReturnAssignmentBindsToFunction(t *testing.T) {
	g := build(t, nil, std("Module1", "Function Answer() As Long\n    Answer = 42\nEnd Function\n"))
	fn := mustLookup(t, g, "Module1.Answer")
	refs := g.ReferencesTo(fn.ID)
	require.Len(t, refs, 1)
	assert.True(t, refs[0].IsAssignment)
}

func TestPropertyAccessorsShareAName(t *testing.T) {
	g := build(t, nil,
		class("Account", `Private m As Long
Public Property Get Balance() As Long
    Balance = m
End Property
Public Property Let Balance(ByVal v As Long)
    m = v
End Property
`),
		std("Module1", "Sub T(a As Account)\n    a.Balance = a.Balance + 1\nEnd Sub\n"),
	)
	assert.Empty(t, g.Diagnostics("Account"))
	all := g.LookupAll("Account.Balance")
	require.Len(t, all, 2)

	var get, let *symbols.Declaration
	for _, d := range all {
		switch d.Kind {
		case symbols.KindPropertyGet:
			get = d
		case symbols.KindPropertyLet:
			let = d
		}
	}
	require.NotNil(t, get)
	require.NotNil(t, let)
	assert.NotEqual(t, get.ID, let.ID)

	letRefs := g.ReferencesTo(let.ID)
	require.Len(t, letRefs, 1)
	assert.True(t, letRefs[0].IsAssignment)
	assert.NotEmpty(t, g.ReferencesTo(get.ID))
}

func TestLabelsBindWithinProcedure(t *testing.T) {
	g := build(t, nil, std("Module1", `Sub T()
    On Error GoTo Fail
    Exit Sub
Fail:
    Resume Next
End Sub
`))
	label := mustLookup(t, g, "Module1.T.Fail")
	assert.Equal(t, symbols.KindLineLabel, label.Kind)
	assert.Len(t, g.ReferencesTo(label.ID), 1)
}

func TestNamedArgumentsBindToParameters(t *testing.T) {
	g := build(t, nil, std("Module1", `Sub Greet(Optional who As String)
End Sub
Sub T()
    Greet who:="x"
End Sub
`))
	param := mustLookup(t, g, "Module1.Greet.who")
	refs := g.ReferencesTo(param.ID)
	require.Len(t, refs, 1)
	assert.True(t, refs[0].HasExplicitBinding)
}

func TestDuplicateDeclarationGetsDistinctIdentity(t *testing.T) {
	g := build(t, nil, std("Module1", "Dim a As Long\nDim a As String\n"))
	assert.True(t, hasCode(g.Diagnostics("Module1"), diag.ResDuplicateDeclaration))
	all := g.LookupAll("Module1.a")
	require.Len(t, all, 2)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.Contains(t, string(all[1].ID), "~2")
}

func TestImplicitTypeDetection(t *testing.T) {
	g := build(t, nil, std("Module1", "Dim v\nDim s$\nDim n As Integer, arr() As Long\n"))
	v := mustLookup(t, g, "Module1.v")
	assert.False(t, v.TypeSpecified)
	assert.Empty(t, v.TypeName)

	s := mustLookup(t, g, "Module1.s")
	assert.True(t, s.TypeSpecified)
	assert.Equal(t, "String", s.TypeName)

	arr := mustLookup(t, g, "Module1.arr")
	assert.True(t, arr.IsArray)
	assert.Equal(t, symbols.AccImplicit, arr.Accessibility)
	assert.False(t, arr.IsExported())
}

func TestArrayAccessFlag(t *testing.T) {
	g := build(t, nil, std("Module1", "Sub T()\n    Dim arr(3) As Long\n    arr(1) = 2\n    Debug.Print arr(1)\nEnd Sub\n"))
	arr := mustLookup(t, g, "Module1.T.arr")
	refs := g.ReferencesTo(arr.ID)
	require.Len(t, refs, 2)
	for _, r := range refs {
		assert.True(t, r.IsArrayAccess)
	}
	assert.True(t, refs[0].IsAssignment)
	assert.False(t, refs[1].IsAssignment)
}

func TestAnnotationsAttach(t *testing.T) {
	g := build(t, nil, std("Module1", `'@Folder("Utilities")
'@IgnoreModule ProcedureNotUsed
Option Explicit

'@Ignore VariableNotUsed
Private unused As Long

Sub T()
    '@Ignore UnassignedVariableUsage
    Debug.Print unused
End Sub
`))
	mod := mustLookup(t, g, "Module1")
	_, ok := mod.Annotation("Folder")
	assert.True(t, ok)

	unused := mustLookup(t, g, "Module1.unused")
	assert.True(t, unused.IsIgnoring("VariableNotUsed"))
	assert.False(t, unused.IsIgnoring("Other"))

	proc := mustLookup(t, g, "Module1.T")
	assert.True(t, g.IsIgnoring(proc.ID, "ProcedureNotUsed"), "module annotation covers members")

	refs := g.ReferencesTo(unused.ID)
	require.Len(t, refs, 1)
	assert.True(t, refs[0].IsIgnoring("UnassignedVariableUsage"))
}

func libraries() []*symbols.LibraryDecls {
	vba := symbols.NewLibraryDecls("VBA")
	interaction := vba.Add(nil, "Interaction", symbols.KindLibraryModule, "")
	vba.Add(interaction, "MsgBox", symbols.KindFunction, "VbMsgBoxResult")
	vba.Add(interaction, "Beep", symbols.KindProcedure, "")
	collection := vba.Add(nil, "Collection", symbols.KindLibraryClass, "")
	vba.Add(collection, "Add", symbols.KindProcedure, "")
	vba.Add(collection, "Count", symbols.KindPropertyGet, "Long")

	excel := symbols.NewLibraryDecls("Excel")
	global := excel.Add(nil, "Global", symbols.KindLibraryModule, "")
	excel.Add(global, "Beep", symbols.KindProcedure, "")
	excel.Add(global, "MsgBox", symbols.KindFunction, "")
	return []*symbols.LibraryDecls{vba, excel}
}

func TestLibraryTieBreakFollowsReferenceOrder(t *testing.T) {
	libs := libraries()
	g := build(t, libs, std("Module1", "Sub T()\n    Beep\n    Excel.Beep\nEnd Sub\n"))
	refs := g.References("Module1")
	require.Len(t, refs, 3)
	assert.Equal(t, "VBA", mustDecl(t, g, refs[0].Target).Library)
	assert.Equal(t, "Excel", mustDecl(t, g, refs[1].Target).Library, "Excel qualifier")
	assert.Equal(t, "Excel", mustDecl(t, g, refs[2].Target).Library)

	reversed := []*symbols.LibraryDecls{libs[1], libs[0]}
	g = build(t, reversed, std("Module1", "Sub T()\n    Beep\nEnd Sub\n"))
	refs = g.References("Module1")
	require.Len(t, refs, 1)
	assert.Equal(t, "Excel", mustDecl(t, g, refs[0].Target).Library)
}

func TestProjectMemberWinsOverLibrary(t *testing.T) {
	g := build(t, libraries(),
		std("Module1", "Public Sub MsgBox(): End Sub"),
		std("Module2", "Sub T(): MsgBox : End Sub"),
	)
	refs := g.References("Module2")
	require.Len(t, refs, 1)
	assert.True(t, mustDecl(t, g, refs[0].Target).IsUserDefined())
}

func TestLibraryClassMembers(t *testing.T) {
	g := build(t, libraries(), std("Module1", `Sub T()
    Dim items As New Collection
    items.Add 1
    Debug.Print items.Count
    items.Missing
End Sub
`))
	items := mustLookup(t, g, "Module1.T.items")
	typ, ok := g.AsType(items.ID)
	require.True(t, ok)
	assert.Equal(t, symbols.KindLibraryClass, typ.Kind)

	add, ok := g.Lookup("VBA.Collection.Add")
	require.True(t, ok)
	assert.Len(t, g.ReferencesTo(add.ID), 1)
	for _, r := range g.Unbound() {
		assert.NotEqual(t, "Missing", r.Name, "partial library definitions do not produce unbound members")
	}
}

func mustDecl(t *testing.T, g *symbols.Graph, id symbols.DeclID) *symbols.Declaration {
	t.Helper()
	d, ok := g.Decl(id)
	require.True(t, ok, "decl %s", id)
	return d
}

func TestLookupForms(t *testing.T) {
	g := build(t, nil, std("Module1", "Public Sub Foo()\n    Dim local As Long\nEnd Sub\n"))
	foo := mustLookup(t, g, "Module1.Foo")
	for _, q := range []string{"foo", "MODULE1.FOO", "VBAProject.Module1.Foo"} {
		d, ok := g.Lookup(q)
		require.True(t, ok, q)
		assert.Equal(t, foo.ID, d.ID, q)
	}
	local := mustLookup(t, g, "Module1.Foo.local")
	assert.Equal(t, foo.ID, local.Parent)
	_, ok := g.Lookup("Module1.Nope")
	assert.False(t, ok)
}

func TestPositionQueries(t *testing.T) {
	g := build(t, nil, std("Module1", "Sub Foo()\n    Dim x As Long\n    x = 1\nEnd Sub\n"))
	foo := mustLookup(t, g, "Module1.Foo")
	x := mustLookup(t, g, "Module1.Foo.x")

	at, ok := g.AtPosition("Module1", 2, 5)
	require.True(t, ok)
	assert.Equal(t, foo.ID, at.ID)

	at, ok = g.AtPosition("Module1", 2, 9)
	require.True(t, ok)
	assert.Equal(t, x.ID, at.ID)

	// the x in "x = 1" is a reference; the cursor resolves to its target
	at, ok = g.DeclarationAt("Module1", 3, 5)
	require.True(t, ok)
	assert.Equal(t, x.ID, at.ID)

	at, ok = g.DeclarationAt("Module1", 1, 6)
	require.True(t, ok)
	assert.Equal(t, foo.ID, at.ID)

	_, ok = g.AtPosition("Nope", 1, 1)
	assert.False(t, ok)
}

func TestSurfaceDiffTracksExportedNames(t *testing.T) {
	before := collect(t, std("Module1", "Public Sub Foo(): End Sub\nPrivate Sub Hidden(): End Sub\n"))
	hiddenChanged := collect(t, std("Module1", "Public Sub Foo(): End Sub\nPrivate Function Hidden() As Long: End Function\n"))
	assert.Empty(t, symbols.SurfaceDiff(before.Surface(), hiddenChanged.Surface()))

	added := collect(t, std("Module1", "Public Sub Foo(): End Sub\nPublic Sub Bar(): End Sub\n"))
	assert.Equal(t, []string{"bar"}, symbols.SurfaceDiff(before.Surface(), added.Surface()))

	retyped := collect(t, std("Module1", "Public Function Foo() As Long: End Function\n"))
	assert.Equal(t, []string{"foo"}, symbols.SurfaceDiff(before.Surface(), retyped.Surface()))

	assert.Contains(t, symbols.SurfaceDiff(nil, before.Surface()), "module1")

	exported := added.Exported()
	require.Len(t, exported, 2)
	assert.Equal(t, "Foo", exported[0].Name)
	assert.Equal(t, "Bar", exported[1].Name)
}

func TestDeclarationsAreReusedAcrossGraphs(t *testing.T) {
	m1 := collect(t, std("Module1", "Public Sub Foo(): End Sub"))
	m2 := collect(t, std("Module2", "Sub Bar(): Foo : End Sub"))
	ix := symbols.NewIndex(project, []*symbols.ModuleDecls{m1, m2}, nil)
	b1, b2 := ix.Bind(m1), ix.Bind(m2)
	g1 := symbols.NewGraph(1, ix, []*symbols.ModuleEntry{
		{Snapshot: m1.Snap, Decls: m1, Binding: b1},
		{Snapshot: m2.Snap, Decls: m2, Binding: b2},
	})

	m2b := collect(t, std("Module2", "Sub Bar()\n    Foo\n    Foo\nEnd Sub\n"))
	ix2 := symbols.NewIndex(project, []*symbols.ModuleDecls{m1, m2b}, nil)
	g2 := symbols.NewGraph(2, ix2, []*symbols.ModuleEntry{
		{Snapshot: m1.Snap, Decls: m1, Binding: b1},
		{Snapshot: m2b.Snap, Decls: m2b, Binding: ix2.Bind(m2b)},
	})

	foo1 := mustLookup(t, g1, "Module1.Foo")
	foo2 := mustLookup(t, g2, "Module1.Foo")
	assert.Same(t, foo1, foo2)
	assert.Len(t, g1.ReferencesTo(foo1.ID), 1)
	assert.Len(t, g2.ReferencesTo(foo2.ID), 2)
	assert.Equal(t, uint64(2), g2.Generation())
}

func TestEmptyGraph(t *testing.T) {
	g := symbols.Empty(project)
	assert.Equal(t, uint64(0), g.Generation())
	assert.Empty(t, g.Modules())
	assert.Equal(t, symbols.KindProject, g.Project().Kind)
	assert.Equal(t, symbols.Stats{}, g.Stats())
}
