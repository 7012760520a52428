package ast

// Inspect traverses n depth-first, calling f for every node. If f returns
// false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *File:
		for _, m := range n.Members {
			Inspect(m, f)
		}
	case *VarDecl:
		for _, v := range n.Vars {
			Inspect(v, f)
		}
	case *Variable:
		inspectBounds(n.Bounds, f)
	case *ConstDecl:
		for _, c := range n.Consts {
			Inspect(c, f)
		}
	case *Constant:
		inspectExpr(n.Value, f)
	case *TypeDecl:
		for _, v := range n.Fields {
			Inspect(v, f)
		}
	case *EnumDecl:
		for _, it := range n.Items {
			Inspect(it, f)
		}
	case *EnumItem:
		inspectExpr(n.Value, f)
	case *Procedure:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		inspectStmts(n.Body, f)
	case *Param:
		inspectExpr(n.Default, f)
	case *DeclareDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}
	case *EventDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}

	case *DimStmt:
		for _, v := range n.Vars {
			Inspect(v, f)
		}
	case *ConstStmt:
		for _, c := range n.Consts {
			Inspect(c, f)
		}
	case *ReDimStmt:
		for _, v := range n.Targets {
			Inspect(v, f)
		}
	case *AssignStmt:
		inspectExpr(n.Target, f)
		inspectExpr(n.Value, f)
	case *CallStmt:
		inspectExpr(n.Callee, f)
		inspectArgs(n.Args, f)
	case *IfStmt:
		inspectExpr(n.Cond, f)
		inspectStmts(n.Then, f)
		for _, ei := range n.ElseIfs {
			inspectExpr(ei.Cond, f)
			inspectStmts(ei.Body, f)
		}
		inspectStmts(n.Else, f)
	case *ForStmt:
		inspectExpr(n.Var, f)
		inspectExpr(n.From, f)
		inspectExpr(n.To, f)
		inspectExpr(n.Step, f)
		inspectStmts(n.Body, f)
	case *ForEachStmt:
		inspectExpr(n.Var, f)
		inspectExpr(n.In, f)
		inspectStmts(n.Body, f)
	case *DoStmt:
		inspectExpr(n.Cond, f)
		inspectStmts(n.Body, f)
	case *WhileStmt:
		inspectExpr(n.Cond, f)
		inspectStmts(n.Body, f)
	case *SelectStmt:
		inspectExpr(n.Subject, f)
		for _, c := range n.Cases {
			for _, t := range c.Tests {
				inspectExpr(t, f)
			}
			inspectStmts(c.Body, f)
		}
	case *WithStmt:
		inspectExpr(n.Object, f)
		inspectStmts(n.Body, f)
	case *OnGoToStmt:
		inspectExpr(n.Selector, f)
	case *EraseStmt:
		for _, e := range n.Targets {
			inspectExpr(e, f)
		}
	case *RaiseEventStmt:
		inspectArgs(n.Args, f)
	case *FileStmt:
		for _, e := range n.Exprs {
			inspectExpr(e, f)
		}

	case *MemberExpr:
		inspectExpr(n.X, f)
	case *CallExpr:
		inspectExpr(n.Fun, f)
		inspectArgs(n.Args, f)
	case *BinaryExpr:
		inspectExpr(n.X, f)
		inspectExpr(n.Y, f)
	case *UnaryExpr:
		inspectExpr(n.X, f)
	case *ParenExpr:
		inspectExpr(n.X, f)
	case *TypeOfExpr:
		inspectExpr(n.X, f)
	case *AddressOfExpr:
		inspectExpr(n.X, f)
	case *RangeExpr:
		inspectExpr(n.Lo, f)
		inspectExpr(n.Hi, f)
	case *IsExpr:
		inspectExpr(n.X, f)
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

func inspectStmts(list []Stmt, f func(Node) bool) {
	for _, s := range list {
		Inspect(s, f)
	}
}

func inspectArgs(args []*Arg, f func(Node) bool) {
	for _, a := range args {
		inspectExpr(a.Value, f)
	}
}

func inspectBounds(bounds []*Bound, f func(Node) bool) {
	for _, b := range bounds {
		inspectExpr(b.Lo, f)
		inspectExpr(b.Hi, f)
	}
}
