package parser

import (
	"fmt"
	"strings"
	"testing"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

func parseSource(t *testing.T, src string) (*ast.File, *diag.Bag) {
	t.Helper()
	return parseModule(t, "Module1", source.KindStandard, src)
}

func parseModule(t *testing.T, name string, kind source.ModuleKind, src string) (*ast.File, *diag.Bag) {
	t.Helper()
	snap := source.NewSnapshot("Project", source.ModuleID(name), kind, []byte(src))
	return Parse(snap, 0)
}

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func mustNoErrors(t *testing.T, bag *diag.Bag) {
	t.Helper()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
}

func onlyProc(t *testing.T, file *ast.File) *ast.Procedure {
	t.Helper()
	if len(file.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(file.Members))
	}
	proc, ok := file.Members[0].(*ast.Procedure)
	if !ok {
		t.Fatalf("expected *ast.Procedure, got %T", file.Members[0])
	}
	return proc
}

func TestParse_PublicSub(t *testing.T) {
	src := "Attribute VB_Name = \"Module1\"\r\nPublic Sub Foo()\r\nEnd Sub\r\n"
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)

	if len(file.Attributes) != 1 || file.Attributes[0].Name != "VB_Name" || file.Attributes[0].Value != "Module1" {
		t.Fatalf("unexpected attributes: %+v", file.Attributes)
	}
	proc := onlyProc(t, file)
	if proc.Name.Name != "Foo" || proc.Kind != ast.ProcSub || proc.Vis != ast.VisPublic {
		t.Fatalf("unexpected procedure: %+v", proc)
	}
	if got := file.Module; got != "Module1" {
		t.Fatalf("module = %q", got)
	}
}

func TestParse_ClassHeader(t *testing.T) {
	src := strings.Join([]string{
		"VERSION 1.0 CLASS",
		"BEGIN",
		"  MultiUse = -1  'True",
		"END",
		`Attribute VB_Name = "Class1"`,
		"Option Explicit",
		"Private mValue As Long",
		"Public Property Get Value() As Long",
		"    Value = mValue",
		"End Property",
		"",
	}, "\n")
	file, bag := parseModule(t, "Class1", source.KindClass, src)
	mustNoErrors(t, bag)

	if file.Header.Version != "1.0 CLASS" {
		t.Fatalf("version = %q", file.Header.Version)
	}
	if !file.Opts.Explicit {
		t.Fatalf("Option Explicit not recorded")
	}
	if len(file.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(file.Members))
	}
	prop, ok := file.Members[1].(*ast.Procedure)
	if !ok || prop.Kind != ast.ProcPropertyGet || prop.Result.Name() != "Long" {
		t.Fatalf("unexpected property: %#v", file.Members[1])
	}
}

func TestParse_FormControls(t *testing.T) {
	src := strings.Join([]string{
		"VERSION 5.00",
		"Begin VB.Form Form1",
		`   Caption = "Form1"`,
		"   BeginProperty Font",
		`      Name = "Tahoma"`,
		"   EndProperty",
		"   Begin VB.CommandButton cmdOK",
		`      Caption = "OK"`,
		"   End",
		"End",
		`Attribute VB_Name = "Form1"`,
		"Private Sub cmdOK_Click()",
		"End Sub",
		"",
	}, "\n")
	file, bag := parseModule(t, "Form1", source.KindForm, src)
	mustNoErrors(t, bag)

	if len(file.Header.Controls) != 1 {
		t.Fatalf("expected 1 control, got %d", len(file.Header.Controls))
	}
	ctl := file.Header.Controls[0]
	if ctl.Name != "cmdOK" || ctl.TypeName != "VB.CommandButton" {
		t.Fatalf("unexpected control %+v", ctl)
	}
	onlyProc(t, file)
}

func TestParse_UnterminatedHeader(t *testing.T) {
	_, bag := parseModule(t, "Class1", source.KindClass, "VERSION 1.0 CLASS\nBEGIN\n  MultiUse = -1\n")
	if !hasCode(bag, diag.SynBadHeader) {
		t.Fatalf("expected SynBadHeader, got %s", diagnosticsSummary(bag))
	}
}

func TestParse_BlockStatements(t *testing.T) {
	src := strings.Join([]string{
		"Sub Main()",
		"    Dim i As Long, items As New Collection",
		"    If i > 0 Then",
		"        i = 1",
		"    ElseIf i < 0 Then",
		"        i = 2",
		"    Else",
		"        i = 3",
		"    End If",
		"    For i = 1 To 10 Step 2",
		"        Debug.Print i; \"x\"",
		"    Next i",
		"    For Each v In items",
		"    Next",
		"    Do",
		"        i = i + 1",
		"    Loop Until i > 5",
		"    While i > 0",
		"        i = i - 1",
		"    Wend",
		"    Select Case i",
		"        Case 1, 2 To 4, Is > 10",
		"            i = 0",
		"        Case Else",
		"    End Select",
		"    With items",
		"        .Add 1",
		"    End With",
		"    If i = 0 Then Exit Sub Else i = 1",
		"End Sub",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	proc := onlyProc(t, file)

	want := []string{"*ast.DimStmt", "*ast.IfStmt", "*ast.ForStmt", "*ast.ForEachStmt", "*ast.DoStmt",
		"*ast.WhileStmt", "*ast.SelectStmt", "*ast.WithStmt", "*ast.IfStmt"}
	if len(proc.Body) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(proc.Body))
	}
	for i, s := range proc.Body {
		if got := fmt.Sprintf("%T", s); got != want[i] {
			t.Errorf("stmt %d: got %s, want %s", i, got, want[i])
		}
	}

	ifs := proc.Body[1].(*ast.IfStmt)
	if len(ifs.ElseIfs) != 1 || len(ifs.Else) != 1 {
		t.Fatalf("unexpected If shape: %d elseifs, %d else", len(ifs.ElseIfs), len(ifs.Else))
	}
	do := proc.Body[4].(*ast.DoStmt)
	if !do.Until || !do.CondAtEnd {
		t.Fatalf("Do loop condition not recorded at end")
	}
	sel := proc.Body[6].(*ast.SelectStmt)
	if len(sel.Cases) != 2 || len(sel.Cases[0].Tests) != 3 || !sel.Cases[1].Else {
		t.Fatalf("unexpected Select shape")
	}
	if _, ok := sel.Cases[0].Tests[1].(*ast.RangeExpr); !ok {
		t.Fatalf("expected range test, got %T", sel.Cases[0].Tests[1])
	}
	with := proc.Body[7].(*ast.WithStmt)
	call, ok := with.Body[0].(*ast.CallStmt)
	if !ok {
		t.Fatalf("expected call in With body, got %T", with.Body[0])
	}
	if mem, ok := call.Callee.(*ast.MemberExpr); !ok || mem.X != nil || mem.Name.Name != "Add" {
		t.Fatalf("expected With member call, got %#v", call.Callee)
	}
	single := proc.Body[8].(*ast.IfStmt)
	if !single.SingleLine || len(single.Then) != 1 || len(single.Else) != 1 {
		t.Fatalf("unexpected single-line If: %+v", single)
	}
}

func TestParse_ImplicitCallArguments(t *testing.T) {
	tests := []struct {
		name  string
		stmt  string
		args  int
		paren bool
	}{
		{name: "parenthesized first argument", stmt: "Foo (1), 2", args: 2, paren: true},
		{name: "plain arguments", stmt: "Foo 1, , 3", args: 3},
		{name: "print separators", stmt: `Debug.Print "a"; b`, args: 2},
		{name: "call keyword", stmt: "Call Foo(1, 2)", args: 2},
		{name: "named argument", stmt: "Foo Bar:=1", args: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, bag := parseSource(t, "Sub A()\n    "+tt.stmt+"\nEnd Sub\n")
			mustNoErrors(t, bag)
			proc := onlyProc(t, file)
			call, ok := proc.Body[0].(*ast.CallStmt)
			if !ok {
				t.Fatalf("expected CallStmt, got %T", proc.Body[0])
			}
			if len(call.Args) != tt.args {
				t.Fatalf("expected %d args, got %d", tt.args, len(call.Args))
			}
			if tt.paren {
				if _, ok := call.Args[0].Value.(*ast.ParenExpr); !ok {
					t.Fatalf("expected parenthesized first argument, got %T", call.Args[0].Value)
				}
			}
		})
	}
}

func TestParse_ExpressionPrecedence(t *testing.T) {
	src := "Sub A()\n    x = a + b * c\n    y = -2 ^ 2\n    z = Not a = b\n    w = a Or b And c\nEnd Sub\n"
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	proc := onlyProc(t, file)

	value := func(i int) ast.Expr { return proc.Body[i].(*ast.AssignStmt).Value }

	add := value(0).(*ast.BinaryExpr)
	if add.Op != token.Plus {
		t.Fatalf("expected + at the root, got %s", add.Op)
	}
	if mul, ok := add.Y.(*ast.BinaryExpr); !ok || mul.Op != token.Star {
		t.Fatalf("expected * under +")
	}
	neg := value(1).(*ast.UnaryExpr)
	if pow, ok := neg.X.(*ast.BinaryExpr); !ok || pow.Op != token.Caret {
		t.Fatalf("expected ^ under unary minus")
	}
	not := value(2).(*ast.UnaryExpr)
	if cmp, ok := not.X.(*ast.BinaryExpr); !ok || cmp.Op != token.Eq {
		t.Fatalf("expected comparison under Not")
	}
	or := value(3).(*ast.BinaryExpr)
	if or.Op != token.KwOr {
		t.Fatalf("expected Or at the root, got %s", or.Op)
	}
}

func TestParse_Annotations(t *testing.T) {
	src := strings.Join([]string{
		`'@Folder("Utilities")`,
		"Option Explicit",
		"",
		"'@Ignore UseMeaningfulName",
		"Private x As Long ' @Ignore Trailing",
		"",
		"'@Description(\"Does things\")",
		"Public Sub Run()",
		"    '@Ignore ImplicitDefaultMemberAccess",
		"    Foo x",
		"    Bar ' @Ignore NotHarvested",
		"End Sub",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)

	if len(file.Annotations) != 1 || file.Annotations[0].Name != "Folder" || file.Annotations[0].Args[0] != "Utilities" {
		t.Fatalf("unexpected module annotations: %+v", file.Annotations)
	}
	decl := file.Members[0].(*ast.VarDecl)
	if len(decl.Annotations) != 1 || decl.Annotations[0].Name != "Ignore" || decl.Annotations[0].Args[0] != "UseMeaningfulName" {
		t.Fatalf("unexpected variable annotations: %+v", decl.Annotations)
	}
	proc := file.Members[1].(*ast.Procedure)
	if len(proc.Annotations) != 1 || proc.Annotations[0].Name != "Description" {
		t.Fatalf("unexpected procedure annotations: %+v", proc.Annotations)
	}
	if anns := proc.Body[0].StmtAnnotations(); len(anns) != 1 || anns[0].Args[0] != "ImplicitDefaultMemberAccess" {
		t.Fatalf("unexpected statement annotations: %+v", anns)
	}
	if anns := proc.Body[1].StmtAnnotations(); len(anns) != 0 {
		t.Fatalf("trailing comment must not annotate: %+v", anns)
	}
}

func TestParse_ConditionalCompilationKeepsFirstBranch(t *testing.T) {
	src := strings.Join([]string{
		"#If VBA7 Then",
		`Private Declare PtrSafe Function GetTickCount Lib "kernel32" () As Long`,
		"#Else",
		`Private Declare Function GetTickCount Lib "kernel32" () As Long`,
		"#End If",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	if len(file.Members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(file.Members))
	}
	decl := file.Members[0].(*ast.DeclareDecl)
	if !decl.PtrSafe || decl.Lib != "kernel32" || decl.Name.Name != "GetTickCount" {
		t.Fatalf("unexpected declare: %+v", decl)
	}
}

func TestParse_NextClosesSeveralLoops(t *testing.T) {
	src := strings.Join([]string{
		"Sub A()",
		"    For i = 1 To 2",
		"        For j = 1 To 2",
		"        Next j, i",
		"    x = 1",
		"End Sub",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	proc := onlyProc(t, file)
	if len(proc.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(proc.Body))
	}
	outer := proc.Body[0].(*ast.ForStmt)
	if len(outer.Body) != 1 {
		t.Fatalf("expected nested loop in outer body, got %d statements", len(outer.Body))
	}
}

func TestParse_LabelsAndErrorHandling(t *testing.T) {
	src := strings.Join([]string{
		"Sub A()",
		"    On Error GoTo Fail",
		"    On Error Resume Next",
		"    On Error GoTo 0",
		"    Exit Sub",
		"Fail:",
		"    Resume Next",
		"10  Beep",
		"End Sub",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	proc := onlyProc(t, file)
	first := proc.Body[0].(*ast.OnErrorStmt)
	if first.Label == nil || first.Label.Name != "Fail" {
		t.Fatalf("expected On Error GoTo Fail")
	}
	if !proc.Body[1].(*ast.OnErrorStmt).ResumeNext {
		t.Fatalf("expected On Error Resume Next")
	}
	if proc.Body[2].(*ast.OnErrorStmt).Label != nil {
		t.Fatalf("GoTo 0 must not record a label")
	}
	if lbl, ok := proc.Body[4].(*ast.LabelStmt); !ok || lbl.Name.Name != "Fail" {
		t.Fatalf("expected label Fail, got %T", proc.Body[4])
	}
	if lbl, ok := proc.Body[6].(*ast.LabelStmt); !ok || lbl.Name.Name != "10" {
		t.Fatalf("expected line number label, got %T", proc.Body[6])
	}
	if _, ok := proc.Body[7].(*ast.CallStmt); !ok {
		t.Fatalf("expected call after line number, got %T", proc.Body[7])
	}
}

func TestParse_MissingEndRecovers(t *testing.T) {
	src := "Sub A()\n    x = 1\nSub B()\nEnd Sub\n"
	file, bag := parseSource(t, src)
	if !hasCode(bag, diag.SynMissingEnd) {
		t.Fatalf("expected SynMissingEnd, got %s", diagnosticsSummary(bag))
	}
	if len(file.Members) != 2 {
		t.Fatalf("expected 2 procedures after recovery, got %d", len(file.Members))
	}
	if bag.Len() != 1 {
		t.Fatalf("expected a single diagnostic, got %s", diagnosticsSummary(bag))
	}
}

func TestParse_MissingEndIfInsideProcedure(t *testing.T) {
	src := "Sub A()\n    If x Then\n        y = 1\nEnd Sub\n"
	file, bag := parseSource(t, src)
	if !hasCode(bag, diag.SynMissingEnd) {
		t.Fatalf("expected SynMissingEnd, got %s", diagnosticsSummary(bag))
	}
	proc := onlyProc(t, file)
	if len(proc.Body) != 1 {
		t.Fatalf("expected If statement kept, got %d statements", len(proc.Body))
	}
}

func TestParse_ParameterRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{name: "optional before required", src: "Sub A(Optional x, y)\nEnd Sub\n", code: diag.SynOptionalBeforeParam},
		{name: "paramarray not last", src: "Sub A(ParamArray xs(), y)\nEnd Sub\n", code: diag.SynVariadicMustBeLast},
		{name: "mismatched end", src: "Sub A()\nEnd Function\n", code: diag.SynMismatchedEnd},
		{name: "statement at module level", src: "x = 1\n", code: diag.SynMisplacedStatement},
		{name: "missing then", src: "Sub A()\n    If x\n    End If\nEnd Sub\n", code: diag.SynExpectThen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := parseSource(t, tt.src)
			if !hasCode(bag, tt.code) {
				t.Fatalf("expected %s, got %s", tt.code.ID(), diagnosticsSummary(bag))
			}
		})
	}
}

func TestParse_ModuleMembers(t *testing.T) {
	src := strings.Join([]string{
		"Option Private Module",
		"Public Const Answer As Long = 42, Other = 1",
		"Private Type Point",
		"    X As Long",
		"    Y As Long",
		"    Tag As String * 10",
		"End Type",
		"Public Enum Color",
		"    Red = 1",
		"    Green",
		"End Enum",
		"Public Event Changed(ByVal value As Long)",
		"Private WithEvents mSource As Class1",
		"Dim grid() As Variant",
		"",
	}, "\n")
	file, bag := parseSource(t, src)
	mustNoErrors(t, bag)
	if !file.Opts.PrivateModule {
		t.Fatalf("Option Private Module not recorded")
	}
	if len(file.Members) != 6 {
		t.Fatalf("expected 6 members, got %d", len(file.Members))
	}
	if c := file.Members[0].(*ast.ConstDecl); len(c.Consts) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(c.Consts))
	}
	typ := file.Members[1].(*ast.TypeDecl)
	if len(typ.Fields) != 3 || typ.Fields[2].Type.FixedLen == nil {
		t.Fatalf("unexpected Type fields")
	}
	if e := file.Members[2].(*ast.EnumDecl); len(e.Items) != 2 || e.Items[1].Value != nil {
		t.Fatalf("unexpected Enum items")
	}
	if v := file.Members[4].(*ast.VarDecl); !v.Vars[0].WithEvents || v.Vars[0].Type.Name() != "Class1" {
		t.Fatalf("unexpected WithEvents variable")
	}
	if v := file.Members[5].(*ast.VarDecl); !v.Vars[0].IsArray || v.Vis != ast.VisImplicit {
		t.Fatalf("unexpected Dim array")
	}
}

func TestParse_MaxErrorsStopsReporting(t *testing.T) {
	snap := source.NewSnapshot("Project", "Module1", source.KindStandard, []byte("x = 1\ny = 2\nz = 3\n"))
	bag := diag.NewBag(0)
	ParseFile(snap, Options{MaxErrors: 2, Reporter: diag.BagReporter{Bag: bag}})
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
}
