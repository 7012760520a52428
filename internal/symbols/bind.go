package symbols

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// ModuleBinding is the reference-resolution result of one module. It is
// rebuilt whenever the module or a name it uses changes elsewhere.
type ModuleBinding struct {
	Module source.ModuleID
	// Refs are ordered by position.
	Refs []*Reference
	// AsType links declarations of the module to the declaration of their type.
	AsType map[DeclID]DeclID
	Diags  []diag.Diagnostic

	names map[string]struct{}
}

// Uses reports whether the module refers to the folded name, bound or not.
func (b *ModuleBinding) Uses(folded string) bool {
	_, ok := b.names[folded]
	return ok
}

// UsesAny reports whether the module refers to any of the folded names.
func (b *ModuleBinding) UsesAny(folded []string) bool {
	return slices.ContainsFunc(folded, b.Uses)
}

type binder struct {
	ix  *Index
	m   *ModuleDecls
	out *ModuleBinding
	rep diag.Reporter

	proc   *Declaration
	member *Declaration
	anns   []*token.Annotation
	with   []*Declaration
}

// Bind resolves every identifier use of module m against the index. It only
// reads the index, so modules bind in parallel.
func (ix *Index) Bind(m *ModuleDecls) *ModuleBinding {
	bag := diag.NewBag(0)
	b := &binder{
		ix: ix,
		m:  m,
		out: &ModuleBinding{
			Module: m.Module,
			AsType: make(map[DeclID]DeclID),
			names:  make(map[string]struct{}),
		},
		rep: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
	for _, mem := range m.File.Members {
		b.bindMember(mem)
	}
	slices.SortStableFunc(b.out.Refs, func(x, y *Reference) int {
		return cmp.Compare(x.Span.Start, y.Span.Start)
	})
	b.out.Diags = bag.Items()
	return b.out
}

func (b *binder) decl(n ast.Node) *Declaration {
	d, _ := b.m.DeclFor(n)
	return d
}

func (b *binder) enter(member *Declaration, anns []*token.Annotation) {
	b.member = member
	b.anns = anns
}

func (b *binder) bindMember(mem ast.Member) {
	defer func() {
		b.member, b.anns, b.proc = nil, nil, nil
	}()
	switch n := mem.(type) {
	case *ast.VarDecl:
		for _, v := range n.Vars {
			b.enter(b.decl(v), n.Annotations)
			b.variable(v)
		}
	case *ast.ConstDecl:
		for _, k := range n.Consts {
			b.enter(b.decl(k), n.Annotations)
			b.constant(k)
		}
	case *ast.TypeDecl:
		td := b.decl(n)
		b.enter(td, n.Annotations)
		for _, f := range n.Fields {
			b.variable(f)
		}
		if td != nil {
			b.checkCircular(td)
		}
	case *ast.EnumDecl:
		b.enter(b.decl(n), n.Annotations)
		for _, it := range n.Items {
			b.expr(it.Value, use{})
		}
	case *ast.Procedure:
		pd := b.decl(n)
		b.enter(pd, n.Annotations)
		b.proc = pd
		b.params(n.Params)
		b.typeRef(n.Result, pd)
		b.stmts(n.Body)
	case *ast.DeclareDecl:
		dd := b.decl(n)
		b.enter(dd, n.Annotations)
		b.proc = dd
		b.params(n.Params)
		b.typeRef(n.Result, dd)
	case *ast.EventDecl:
		ev := b.decl(n)
		b.enter(ev, n.Annotations)
		b.proc = ev
		b.params(n.Params)
	case *ast.ImplementsDecl:
		b.typeRef(n.Type, nil)
	}
}

func (b *binder) variable(v *ast.Variable) {
	for _, bd := range v.Bounds {
		b.expr(bd.Lo, use{})
		b.expr(bd.Hi, use{})
	}
	b.typeRef(v.Type, b.decl(v))
}

func (b *binder) constant(k *ast.Constant) {
	b.typeRef(k.Type, b.decl(k))
	b.expr(k.Value, use{})
}

func (b *binder) params(params []*ast.Param) {
	for _, p := range params {
		b.typeRef(p.Type, b.decl(p))
		b.expr(p.Default, use{})
	}
}

func (b *binder) stmts(list []ast.Stmt) {
	for _, s := range list {
		b.stmt(s)
	}
}

func (b *binder) stmt(s ast.Stmt) {
	prev := b.anns
	b.anns = s.StmtAnnotations()
	defer func() { b.anns = prev }()

	switch s := s.(type) {
	case *ast.DimStmt:
		for _, v := range s.Vars {
			b.variable(v)
		}
	case *ast.ConstStmt:
		for _, k := range s.Consts {
			b.constant(k)
		}
	case *ast.ReDimStmt:
		for _, v := range s.Targets {
			b.name(v.Name, use{assign: true}, "")
			for _, bd := range v.Bounds {
				b.expr(bd.Lo, use{})
				b.expr(bd.Hi, use{})
			}
			b.typeRef(v.Type, nil)
		}
	case *ast.AssignStmt:
		b.expr(s.Value, use{})
		b.expr(s.Target, use{assign: true, set: s.Kind == ast.AssignSet})
	case *ast.CallStmt:
		d, ref := b.bind(s.Callee, use{})
		if ref != nil && s.Explicit {
			ref.HasExplicitBinding = true
		}
		b.args(d, s.Args)
	case *ast.IfStmt:
		b.expr(s.Cond, use{})
		b.stmts(s.Then)
		for _, ei := range s.ElseIfs {
			b.expr(ei.Cond, use{})
			b.stmts(ei.Body)
		}
		b.stmts(s.Else)
	case *ast.ForStmt:
		b.expr(s.Var, use{assign: true})
		b.expr(s.From, use{})
		b.expr(s.To, use{})
		b.expr(s.Step, use{})
		b.stmts(s.Body)
	case *ast.ForEachStmt:
		b.expr(s.Var, use{assign: true})
		b.expr(s.In, use{})
		b.stmts(s.Body)
	case *ast.DoStmt:
		b.expr(s.Cond, use{})
		b.stmts(s.Body)
	case *ast.WhileStmt:
		b.expr(s.Cond, use{})
		b.stmts(s.Body)
	case *ast.SelectStmt:
		b.expr(s.Subject, use{})
		for _, c := range s.Cases {
			for _, t := range c.Tests {
				b.expr(t, use{})
			}
			b.stmts(c.Body)
		}
	case *ast.WithStmt:
		obj := b.expr(s.Object, use{})
		b.with = append(b.with, b.containerOf(obj))
		b.stmts(s.Body)
		b.with = b.with[:len(b.with)-1]
	case *ast.GoToStmt:
		b.label(s.Label)
	case *ast.OnErrorStmt:
		if s.Label != nil {
			b.label(*s.Label)
		}
	case *ast.OnGoToStmt:
		b.expr(s.Selector, use{})
		for _, l := range s.Labels {
			b.label(l)
		}
	case *ast.ResumeStmt:
		if s.Label != nil {
			b.label(*s.Label)
		}
	case *ast.EraseStmt:
		for _, t := range s.Targets {
			b.expr(t, use{assign: true})
		}
	case *ast.RaiseEventStmt:
		var ev *Declaration
		for _, d := range b.m.Members(s.Name.Name) {
			if d.Kind == KindEvent {
				ev = d
				break
			}
		}
		b.record(s.Name, ev, use{}, "")
		b.args(ev, s.Args)
	case *ast.FileStmt:
		for _, e := range s.Exprs {
			b.expr(e, use{})
		}
	}
}

func (b *binder) label(id ast.Ident) {
	if id.Name == "" || id.Name == "0" {
		return
	}
	b.record(id, b.ix.lookupLabel(b.m, b.proc, id.Name), use{}, "")
}

// args binds call arguments. Named arguments refer to parameters of the
// callee when it is a procedure of the project.
func (b *binder) args(callee *Declaration, args []*ast.Arg) {
	for _, a := range args {
		if a == nil {
			continue
		}
		if a.Name != nil && callee != nil && callee.IsUserDefined() {
			var param *Declaration
			for _, d := range b.ix.children(callee, a.Name.Name) {
				if d.Kind == KindParameter {
					param = d
					break
				}
			}
			if param != nil {
				ref := b.record(*a.Name, param, use{}, "")
				ref.HasExplicitBinding = true
			}
		}
		b.expr(a.Value, use{})
	}
}

func (b *binder) expr(e ast.Expr, u use) *Declaration {
	d, _ := b.bind(e, u)
	return d
}

// bind records the references inside e and returns the declaration e denotes
// together with the reference that named it, when there is one.
func (b *binder) bind(e ast.Expr, u use) (*Declaration, *Reference) {
	switch e := e.(type) {
	case nil:
		return nil, nil
	case *ast.NameExpr:
		return b.name(e.Name, u, "")
	case *ast.MemberExpr:
		return b.memberAccess(e, u)
	case *ast.CallExpr:
		d, ref := b.bind(e.Fun, u)
		if ref != nil && d != nil && d.IsArray && !d.Kind.IsProcedure() {
			ref.IsArrayAccess = true
		}
		b.args(d, e.Args)
		return d, nil
	case *ast.MeExpr:
		return b.m.Root, nil
	case *ast.NewExpr:
		return b.typeRef(e.Type, nil), nil
	case *ast.ParenExpr:
		return b.expr(e.X, use{}), nil
	case *ast.BinaryExpr:
		b.expr(e.X, use{})
		b.expr(e.Y, use{})
	case *ast.UnaryExpr:
		b.expr(e.X, use{})
	case *ast.TypeOfExpr:
		b.expr(e.X, use{})
		b.typeRef(e.Type, nil)
	case *ast.AddressOfExpr:
		b.expr(e.X, use{})
	case *ast.RangeExpr:
		b.expr(e.Lo, use{})
		b.expr(e.Hi, use{})
	case *ast.IsExpr:
		b.expr(e.X, use{})
	}
	return nil, nil
}

func (b *binder) name(id ast.Ident, u use, qualifier string) (*Declaration, *Reference) {
	var (
		d   *Declaration
		amb []*Declaration
	)
	// inside Function Foo, "Foo = x" sets the return value
	if u.assign && b.proc != nil && (b.proc.Kind == KindFunction || b.proc.Kind == KindPropertyGet) &&
		source.EqualFold(b.proc.Name, id.Name) {
		d = b.proc
	} else {
		d, amb = b.ix.lookup(b.m, b.proc, id.Name, u)
	}
	ref := b.record(id, d, u, qualifier)
	switch {
	case d == nil:
		if b.m.File.Opts.Explicit {
			diag.ReportInfo(b.rep, diag.ResUnboundReference, id.Span,
				fmt.Sprintf("%q is not declared", id.Name)).Emit()
		}
	case len(amb) > 0:
		rb := diag.ReportWarning(b.rep, diag.ResAmbiguousName, id.Span,
			fmt.Sprintf("%q is declared in several modules; using %s", id.Name, d.Module))
		for _, other := range amb {
			rb.WithNote(other.Span, "also declared in "+string(other.Module))
		}
		rb.Emit()
	}
	return d, ref
}

func (b *binder) memberAccess(e *ast.MemberExpr, u use) (*Declaration, *Reference) {
	var (
		base      *Declaration
		qualifier string
	)
	if e.X == nil {
		if len(b.with) > 0 {
			base = b.with[len(b.with)-1]
		}
	} else {
		base = b.containerOf(b.expr(e.X, use{}))
		qualifier = b.m.Snap.Text(e.X.NodeSpan())
	}
	if e.Bang || base == nil {
		// default-member access and untyped bases have nothing to bind to
		return nil, nil
	}
	d := choose(b.ix.member(b.m, base, e.Name.Name), u)
	if d == nil && !base.IsUserDefined() {
		// library definitions are partial; a missing member is not evidence
		return nil, nil
	}
	ref := b.record(e.Name, d, u, qualifier)
	ref.HasExplicitBinding = true
	if d == nil {
		diag.ReportWarning(b.rep, diag.ResUnknownMember, e.Name.Span,
			fmt.Sprintf("%s has no accessible member %q", base.Name, e.Name.Name)).Emit()
	}
	return d, ref
}

// containerOf returns what member access on d looks into: d itself for
// modules, types and libraries, otherwise the declaration of d's type.
func (b *binder) containerOf(d *Declaration) *Declaration {
	if d == nil {
		return nil
	}
	if d.Kind.IsContainer() {
		return d
	}
	if d.Kind == KindParameter || d.Kind == KindVariable || d.Kind == KindConstant ||
		d.Kind == KindUserTypeMember || d.Kind == KindControl || d.Kind == KindFunction ||
		d.Kind == KindPropertyGet || d.Kind == KindLibraryFunction {
		t, _ := b.ix.AsType(d)
		return t
	}
	return nil
}

// typeRef binds a type written after As, New, Is or Implements. When owner is
// given and the name denotes a type, owner's AsType link is recorded.
func (b *binder) typeRef(t *ast.TypeRef, owner *Declaration) *Declaration {
	if t == nil {
		return nil
	}
	b.expr(t.FixedLen, use{})
	if len(t.Parts) == 1 && IsIntrinsicType(t.Parts[0].Name) {
		return nil
	}
	parts := make([]string, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = p.Name
	}
	path, notType := b.ix.typePath(b.m, b.proc, parts)
	var qualifier strings.Builder
	for i, d := range path {
		ref := b.record(t.Parts[i], d, use{}, qualifier.String())
		ref.IsTypeReference = i == len(t.Parts)-1
		ref.HasExplicitBinding = i > 0
		if i > 0 {
			qualifier.WriteByte('.')
		}
		qualifier.WriteString(t.Parts[i].Name)
	}
	if len(path) != len(t.Parts) {
		return nil
	}
	last := path[len(path)-1]
	if last == nil {
		return nil
	}
	if notType {
		diag.ReportError(b.rep, diag.ResNotAType, t.Span,
			fmt.Sprintf("%q is a %s, not a type", t.Name(), last.Kind)).
			WithNote(last.Span, "declared here").
			Emit()
		return nil
	}
	if owner != nil {
		b.out.AsType[owner.ID] = last.ID
	}
	return last
}

// checkCircular reports a user-defined type that contains itself by value,
// directly or through other types. Array fields break the cycle.
func (b *binder) checkCircular(td *Declaration) {
	seen := map[DeclID]bool{td.ID: true}
	var contains func(t *Declaration) bool
	contains = func(t *Declaration) bool {
		m, ok := b.ix.modules[t.Module]
		if !ok {
			return false
		}
		for _, f := range m.Decls {
			if f.Parent != t.ID || f.Kind != KindUserTypeMember || f.IsArray {
				continue
			}
			ft, ok := b.ix.AsType(f)
			if !ok || ft.Kind != KindUserType {
				continue
			}
			if ft.ID == td.ID {
				return true
			}
			if seen[ft.ID] {
				continue
			}
			seen[ft.ID] = true
			if contains(ft) {
				return true
			}
		}
		return false
	}
	if contains(td) {
		diag.ReportError(b.rep, diag.ResCircularType, td.Span,
			fmt.Sprintf("type %s contains itself", td.Name)).Emit()
	}
}

func (b *binder) record(id ast.Ident, d *Declaration, u use, qualifier string) *Reference {
	ref := &Reference{
		Module:          b.m.Module,
		Name:            id.Name,
		Span:            id.Span,
		Selection:       b.m.Snap.Resolve(id.Span),
		Enclosing:       b.m.Root.ID,
		Qualifier:       qualifier,
		IsAssignment:    u.assign,
		IsSetAssignment: u.set,
		Annotations:     b.anns,
	}
	if b.member != nil {
		ref.Enclosing = b.member.ID
	}
	if d != nil {
		ref.Target = d.ID
	}
	b.out.Refs = append(b.out.Refs, ref)
	b.out.names[source.Fold(id.Name)] = struct{}{}
	return ref
}
