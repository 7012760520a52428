package symbols

import (
	"fmt"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

type collector struct {
	m        *ModuleDecls
	project  string
	reporter diag.Reporter
}

// Collect materializes the declarations of one parsed module. It looks at no
// other module, so modules can be collected in parallel.
func Collect(project string, snap *source.Snapshot, file *ast.File) *ModuleDecls {
	bag := diag.NewBag(0)
	m := &ModuleDecls{
		Module: snap.Module,
		Kind:   snap.Kind,
		Snap:   snap,
		File:   file,
		byID:   make(map[DeclID]*Declaration),
		scopes: make(map[DeclID]scope),
		nodes:  make(map[ast.Node]*Declaration),
	}
	c := &collector{m: m, project: project, reporter: diag.BagReporter{Bag: bag}}
	c.collectModule()
	m.buildSurface()
	m.Diags = bag.Items()
	return m
}

func moduleKind(k source.ModuleKind) DeclKind {
	switch k {
	case source.KindClass:
		return KindClassModule
	case source.KindForm:
		return KindUserForm
	case source.KindDocument:
		return KindDocument
	default:
		return KindProceduralModule
	}
}

func (c *collector) collectModule() {
	m, file := c.m, c.m.File
	name := string(m.Module)
	nameSpan := source.Span{Module: m.Module}
	for _, attr := range file.Attributes {
		if strings.EqualFold(attr.Name, "VB_Name") {
			nameSpan = attr.Span
			break
		}
	}
	kind := moduleKind(m.Kind)
	root := &Declaration{
		ID:            MakeID(ProjectID(c.project), name, kind),
		Parent:        ProjectID(c.project),
		Project:       c.project,
		Module:        m.Module,
		Name:          name,
		Kind:          kind,
		Accessibility: AccPublic,
		Span:          nameSpan,
		Context:       file.Span,
		Annotations:   file.Annotations,
	}
	if file.Opts.PrivateModule {
		root.Accessibility = AccPrivate
	}
	c.finish(root)
	m.Root = root
	m.byID[root.ID] = root
	m.Decls = append(m.Decls, root)
	m.scopes[root.ID] = make(scope)

	for _, ctl := range file.Header.Controls {
		d := c.newDecl(root, ctl.Name, ctl.Span, KindControl, AccPublic, ctl.Span, nil)
		d.TypeName = ctl.TypeName
		d.TypeSpecified = ctl.TypeName != ""
		c.add(root, d)
	}
	for _, mem := range file.Members {
		c.collectMember(root, mem)
	}
}

func (c *collector) collectMember(root *Declaration, mem ast.Member) {
	switch n := mem.(type) {
	case *ast.VarDecl:
		acc := accessibilityOf(n.Vis)
		for _, v := range n.Vars {
			c.variable(root, v, KindVariable, acc, n.Annotations)
		}
	case *ast.ConstDecl:
		acc := accessibilityOf(n.Vis)
		for _, k := range n.Consts {
			c.constant(root, k, acc, n.Annotations)
		}
	case *ast.TypeDecl:
		td := c.declare(root, n.Name, KindUserType, accessibilityOf(n.Vis), n.Span, n.Annotations)
		c.m.nodes[n] = td
		c.m.scopes[td.ID] = make(scope)
		for _, f := range n.Fields {
			c.variable(td, f, KindUserTypeMember, AccImplicit, nil)
		}
	case *ast.EnumDecl:
		ed := c.declare(root, n.Name, KindEnumeration, accessibilityOf(n.Vis), n.Span, n.Annotations)
		c.m.nodes[n] = ed
		c.m.scopes[ed.ID] = make(scope)
		for _, it := range n.Items {
			item := c.declare(ed, it.Name, KindEnumerationMember, AccImplicit, it.Span, nil)
			item.TypeName = "Long"
			c.m.nodes[it] = item
			// enum members are reachable without the enum's name
			c.m.scopes[root.ID].add(item)
		}
	case *ast.Procedure:
		kind := procKind(n.Kind)
		pd := c.declare(root, n.Name, kind, accessibilityOf(n.Vis), n.Span, n.Annotations)
		if kind == KindFunction || kind == KindPropertyGet {
			pd.TypeName, pd.TypeSpecified = typeInfo(n.Result, n.Name.Hint)
			pd.IsArray = n.ResultArray
		}
		c.m.nodes[n] = pd
		c.m.scopes[pd.ID] = make(scope)
		c.params(pd, n.Params)
		c.locals(pd, n.Body)
	case *ast.DeclareDecl:
		kind := KindLibraryProcedure
		if n.IsFunction {
			kind = KindLibraryFunction
		}
		dd := c.declare(root, n.Name, kind, accessibilityOf(n.Vis), n.Span, n.Annotations)
		if n.IsFunction {
			dd.TypeName, dd.TypeSpecified = typeInfo(n.Result, n.Name.Hint)
		}
		c.m.nodes[n] = dd
		c.m.scopes[dd.ID] = make(scope)
		c.params(dd, n.Params)
	case *ast.EventDecl:
		ev := c.declare(root, n.Name, KindEvent, accessibilityOf(n.Vis), n.Span, n.Annotations)
		c.m.nodes[n] = ev
		c.m.scopes[ev.ID] = make(scope)
		c.params(ev, n.Params)
	case *ast.ImplementsDecl:
		// a type reference only; the binder records it
	}
}

func (c *collector) variable(parent *Declaration, v *ast.Variable, kind DeclKind, acc Accessibility, anns []*token.Annotation) *Declaration {
	d := c.declare(parent, v.Name, kind, acc, v.Span, anns)
	d.TypeName, d.TypeSpecified = typeInfo(v.Type, v.Name.Hint)
	d.IsArray = v.IsArray
	d.IsWithEvents = v.WithEvents
	d.IsSelfAssigned = v.New
	c.m.nodes[v] = d
	return d
}

func (c *collector) constant(parent *Declaration, k *ast.Constant, acc Accessibility, anns []*token.Annotation) *Declaration {
	d := c.declare(parent, k.Name, KindConstant, acc, k.Span, anns)
	d.TypeName, d.TypeSpecified = typeInfo(k.Type, k.Name.Hint)
	c.m.nodes[k] = d
	return d
}

func (c *collector) params(owner *Declaration, params []*ast.Param) {
	for _, p := range params {
		d := c.declare(owner, p.Name, KindParameter, AccImplicit, p.Span, nil)
		d.TypeName, d.TypeSpecified = typeInfo(p.Type, p.Name.Hint)
		d.IsArray = p.IsArray || p.ParamArray
		c.m.nodes[p] = d
	}
}

// locals collects Dim, Static, Const and labels anywhere in the body: they are
// all scoped to the whole procedure.
func (c *collector) locals(proc *Declaration, body []ast.Stmt) {
	for _, st := range body {
		ast.Inspect(st, func(n ast.Node) bool {
			switch s := n.(type) {
			case *ast.DimStmt:
				for _, v := range s.Vars {
					c.variable(proc, v, KindVariable, AccImplicit, s.Annotations)
				}
				return false
			case *ast.ConstStmt:
				for _, k := range s.Consts {
					c.constant(proc, k, AccImplicit, s.Annotations)
				}
				return false
			case *ast.LabelStmt:
				d := c.declare(proc, s.Name, KindLineLabel, AccImplicit, s.Span, s.Annotations)
				c.m.nodes[s] = d
			case ast.Expr:
				return false
			}
			return true
		})
	}
}

func (c *collector) declare(parent *Declaration, name ast.Ident, kind DeclKind, acc Accessibility, ctx source.Span, anns []*token.Annotation) *Declaration {
	d := c.newDecl(parent, name.Name, name.Span, kind, acc, ctx, anns)
	c.add(parent, d)
	return d
}

func (c *collector) newDecl(parent *Declaration, name string, nameSpan source.Span, kind DeclKind, acc Accessibility, ctx source.Span, anns []*token.Annotation) *Declaration {
	d := &Declaration{
		ID:            MakeID(parent.ID, name, kind),
		Parent:        parent.ID,
		Project:       c.project,
		Module:        c.m.Module,
		Name:          name,
		Kind:          kind,
		Accessibility: acc,
		Span:          nameSpan,
		Context:       ctx,
		Annotations:   anns,
	}
	c.finish(d)
	return d
}

func (c *collector) finish(d *Declaration) {
	d.Selection = c.m.Snap.Resolve(d.Span)
	d.ContextSel = c.m.Snap.Resolve(d.Context)
}

// add registers d in its parent's scope, reporting names the scope already holds.
// Property accessors of one property share a name legitimately.
func (c *collector) add(parent *Declaration, d *Declaration) {
	sc := c.m.scopes[parent.ID]
	for _, prev := range sc[source.Fold(d.Name)] {
		if prev.Kind.IsProperty() && d.Kind.IsProperty() && prev.Kind != d.Kind {
			continue
		}
		if prev.Kind == KindEnumerationMember && prev.Parent != parent.ID {
			continue
		}
		diag.ReportError(c.reporter, diag.ResDuplicateDeclaration, d.Span,
			fmt.Sprintf("%s %q is already declared in this scope", d.Kind, d.Name)).
			WithNote(prev.Span, "previous declaration is here").
			Emit()
		break
	}
	if _, taken := c.m.byID[d.ID]; taken {
		base := d.ID
		for n := 2; ; n++ {
			if _, taken := c.m.byID[base.withOrdinal(n)]; !taken {
				d.ID = base.withOrdinal(n)
				break
			}
		}
	}
	c.m.byID[d.ID] = d
	c.m.Decls = append(c.m.Decls, d)
	sc.add(d)
}

var hintTypes = map[byte]string{
	'%': "Integer",
	'&': "Long",
	'^': "LongLong",
	'!': "Single",
	'#': "Double",
	'@': "Currency",
	'$': "String",
}

// typeInfo returns the declared type name and whether one was given, either by
// an As clause or by a type hint character on the name.
func typeInfo(t *ast.TypeRef, hint byte) (string, bool) {
	if t != nil {
		return t.Name(), true
	}
	if name, ok := hintTypes[hint]; ok {
		return name, true
	}
	return "", false
}
