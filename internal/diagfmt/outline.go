package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/source"
)

// FormatOutline prints the module-level structure of a parse tree: header,
// options, attributes and one line per member with its nested declarators.
func FormatOutline(w io.Writer, file *ast.File, snap *source.Snapshot) error {
	o := &outline{w: w, snap: snap}
	o.line(0, file.Span, "%s %s", file.Kind, file.Module)
	if file.Header.Version != "" {
		o.line(1, file.Header.Span, "Version %s", file.Header.Version)
	}
	for _, c := range file.Header.Controls {
		o.line(2, c.Span, "Control %s As %s", c.Name, c.TypeName)
	}
	var opts []string
	if file.Opts.Explicit {
		opts = append(opts, "Explicit")
	}
	if file.Opts.Base != 0 {
		opts = append(opts, fmt.Sprintf("Base %d", file.Opts.Base))
	}
	if file.Opts.CompareText {
		opts = append(opts, "Compare Text")
	}
	if file.Opts.PrivateModule {
		opts = append(opts, "Private Module")
	}
	if len(opts) > 0 {
		o.line(1, source.Span{}, "Option %s", strings.Join(opts, ", "))
	}
	for _, a := range file.Annotations {
		o.line(1, a.Span, "'@%s %s", a.Name, strings.Join(a.Args, ", "))
	}
	for _, a := range file.Attributes {
		o.line(1, a.Span, "Attribute %s = %s", a.Name, a.Value)
	}
	for _, m := range file.Members {
		o.member(m)
	}
	return o.err
}

type outline struct {
	w    io.Writer
	snap *source.Snapshot
	err  error
}

func (o *outline) line(depth int, span source.Span, format string, args ...any) {
	if o.err != nil {
		return
	}
	text := strings.TrimRight(fmt.Sprintf(format, args...), " ")
	pos := ""
	if o.snap != nil && (span.Start != 0 || span.End != 0) {
		rng := o.snap.Resolve(span)
		pos = fmt.Sprintf(" @%d:%d-%d:%d", rng.Start.Line, rng.Start.Col, rng.End.Line, rng.End.Col)
	}
	_, o.err = fmt.Fprintf(o.w, "%s%s%s\n", strings.Repeat("  ", depth), text, pos)
}

func typeSuffix(t *ast.TypeRef) string {
	if t == nil {
		return ""
	}
	return " As " + t.Name()
}

func (o *outline) member(m ast.Member) {
	switch m := m.(type) {
	case *ast.VarDecl:
		o.line(1, m.Span, "%s Variables", m.Vis)
		for _, v := range m.Vars {
			o.variable(2, v)
		}
	case *ast.ConstDecl:
		o.line(1, m.Span, "%s Const", m.Vis)
		for _, c := range m.Consts {
			o.line(2, c.Span, "%s%s", c.Name.Name, typeSuffix(c.Type))
		}
	case *ast.TypeDecl:
		o.line(1, m.Span, "%s Type %s", m.Vis, m.Name.Name)
		for _, f := range m.Fields {
			o.variable(2, f)
		}
	case *ast.EnumDecl:
		o.line(1, m.Span, "%s Enum %s", m.Vis, m.Name.Name)
		for _, it := range m.Items {
			o.line(2, it.Span, "%s", it.Name.Name)
		}
	case *ast.Procedure:
		static := ""
		if m.Static {
			static = " Static"
		}
		o.line(1, m.Span, "%s%s %s %s(%s)%s [%d statements]", m.Vis, static, m.Kind, m.Name.Name, params(m.Params), typeSuffix(m.Result), len(m.Body))
	case *ast.DeclareDecl:
		kind := "Sub"
		if m.IsFunction {
			kind = "Function"
		}
		o.line(1, m.Span, "%s Declare %s %s Lib %q(%s)%s", m.Vis, kind, m.Name.Name, m.Lib, params(m.Params), typeSuffix(m.Result))
	case *ast.EventDecl:
		o.line(1, m.Span, "%s Event %s(%s)", m.Vis, m.Name.Name, params(m.Params))
	case *ast.ImplementsDecl:
		o.line(1, m.Span, "Implements %s", m.Type.Name())
	default:
		o.line(1, m.NodeSpan(), "%T", m)
	}
}

func (o *outline) variable(depth int, v *ast.Variable) {
	arr := ""
	if v.IsArray {
		arr = "()"
	}
	mods := ""
	if v.WithEvents {
		mods = "WithEvents "
	}
	if v.New {
		o.line(depth, v.Span, "%s%s%s As New %s", mods, v.Name.Name, arr, v.Type.Name())
		return
	}
	o.line(depth, v.Span, "%s%s%s%s", mods, v.Name.Name, arr, typeSuffix(v.Type))
}

func params(ps []*ast.Param) string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		var b strings.Builder
		if p.Optional {
			b.WriteString("Optional ")
		}
		if p.ByVal {
			b.WriteString("ByVal ")
		}
		if p.ParamArray {
			b.WriteString("ParamArray ")
		}
		b.WriteString(p.Name.Name)
		if p.IsArray {
			b.WriteString("()")
		}
		b.WriteString(typeSuffix(p.Type))
		out = append(out, b.String())
	}
	return strings.Join(out, ", ")
}
