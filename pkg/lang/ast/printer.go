package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/javelinrt/javelin/pkg/lang/token"
)

// Print renders a program back to canonical source. Printing a parsed
// tree and parsing the result yields an equivalent tree, which the
// parser tests rely on.
func Print(p *Program) string {
	var pr printer
	for i, c := range p.Classes {
		if i > 0 {
			pr.line("")
		}
		pr.class(c)
	}
	for _, s := range p.Stmts {
		pr.stmt(s)
	}
	return pr.b.String()
}

// PrintExpr renders a single expression, mainly for diagnostics.
func PrintExpr(e Expr) string {
	return exprString(e)
}

type printer struct {
	b      strings.Builder
	indent int
}

func (pr *printer) line(s string) {
	for i := 0; i < pr.indent; i++ {
		pr.b.WriteString("    ")
	}
	pr.b.WriteString(s)
	pr.b.WriteByte('\n')
}

func (pr *printer) open(s string) {
	pr.line(s + " {")
	pr.indent++
}

func (pr *printer) close() {
	pr.indent--
	pr.line("}")
}

func (pr *printer) class(c *ClassDecl) {
	for _, a := range c.Annotations {
		pr.line(annotation(a))
	}
	pr.open("class " + c.Name)
	for _, f := range c.Fields {
		if f.Init != nil {
			pr.line(fmt.Sprintf("%s %s = %s;", f.Type, f.Name, exprString(f.Init)))
		} else {
			pr.line(fmt.Sprintf("%s %s;", f.Type, f.Name))
		}
	}
	for i, m := range c.Methods {
		if i > 0 || len(c.Fields) > 0 {
			pr.line("")
		}
		pr.method(m)
	}
	pr.close()
}

func (pr *printer) method(m *MethodDecl) {
	for _, a := range m.Annotations {
		pr.line(annotation(a))
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	pr.open(fmt.Sprintf("%s %s(%s)", m.ReturnType, m.Name, strings.Join(params, ", ")))
	for _, s := range m.Body.Stmts {
		pr.stmt(s)
	}
	pr.close()
}

func annotation(a *Annotation) string {
	if len(a.Args) == 0 {
		return "@" + a.Name
	}
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Name + "=" + exprString(arg.Value)
	}
	return "@" + a.Name + "(" + strings.Join(args, ", ") + ")"
}

func (pr *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *ExprStmt:
		pr.line(exprString(s.X) + ";")
	case *VarDeclStmt:
		if s.Init != nil {
			pr.line(fmt.Sprintf("%s %s = %s;", s.Type, s.Name, exprString(s.Init)))
		} else {
			pr.line(fmt.Sprintf("%s %s;", s.Type, s.Name))
		}
	case *IfStmt:
		pr.ifChain(s)
	case *WhileStmt:
		pr.open("while (" + exprString(s.Cond) + ")")
		for _, st := range s.Body.Stmts {
			pr.stmt(st)
		}
		pr.close()
	case *ForStmt:
		pr.open("for (" + forClauses(s) + ")")
		for _, st := range s.Body.Stmts {
			pr.stmt(st)
		}
		pr.close()
	case *BlockStmt:
		pr.open("")
		for _, st := range s.Stmts {
			pr.stmt(st)
		}
		pr.close()
	case *ReturnStmt:
		if s.Value != nil {
			pr.line("return " + exprString(s.Value) + ";")
		} else {
			pr.line("return;")
		}
	}
}

func (pr *printer) ifChain(s *IfStmt) {
	pr.open("if (" + exprString(s.Cond) + ")")
	for _, st := range s.Then.Stmts {
		pr.stmt(st)
	}
	pr.indent--
	switch e := s.Else.(type) {
	case nil:
		pr.line("}")
	case *IfStmt:
		pr.line("} else if (" + exprString(e.Cond) + ") {")
		pr.indent++
		for _, st := range e.Then.Stmts {
			pr.stmt(st)
		}
		pr.indent--
		// flatten the rest of the chain
		for e.Else != nil {
			next, ok := e.Else.(*IfStmt)
			if !ok {
				blk := e.Else.(*BlockStmt)
				pr.line("} else {")
				pr.indent++
				for _, st := range blk.Stmts {
					pr.stmt(st)
				}
				pr.indent--
				break
			}
			e = next
			pr.line("} else if (" + exprString(e.Cond) + ") {")
			pr.indent++
			for _, st := range e.Then.Stmts {
				pr.stmt(st)
			}
			pr.indent--
		}
		pr.line("}")
	case *BlockStmt:
		pr.line("} else {")
		pr.indent++
		for _, st := range e.Stmts {
			pr.stmt(st)
		}
		pr.indent--
		pr.line("}")
	}
}

func forClauses(s *ForStmt) string {
	var init, cond, post string
	switch st := s.Init.(type) {
	case *VarDeclStmt:
		if st.Init != nil {
			init = fmt.Sprintf("%s %s = %s", st.Type, st.Name, exprString(st.Init))
		} else {
			init = fmt.Sprintf("%s %s", st.Type, st.Name)
		}
	case *ExprStmt:
		init = exprString(st.X)
	}
	if s.Cond != nil {
		cond = exprString(s.Cond)
	}
	if s.Post != nil {
		post = exprString(s.Post)
	}
	return init + "; " + cond + "; " + post
}

func exprString(e Expr) string {
	switch e := e.(type) {
	case *Literal:
		return literalString(e)
	case *Ident:
		return e.Name
	case *Binary:
		return fmt.Sprintf("%s %s %s", wrap(e.Lhs), e.Op, wrap(e.Rhs))
	case *Unary:
		if e.Postfix {
			return wrap(e.X) + e.Op.String()
		}
		return e.Op.String() + wrap(e.X)
	case *Assign:
		return exprString(e.Target) + " = " + exprString(e.Value)
	case *Call:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprString(a)
		}
		return exprString(e.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *Member:
		return exprString(e.X) + "." + e.Name
	case *Index:
		return exprString(e.X) + "[" + exprString(e.Idx) + "]"
	case *New:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprString(a)
		}
		return "new " + e.Class + "(" + strings.Join(args, ", ") + ")"
	}
	return "?"
}

// wrap parenthesizes nested operator expressions so the printed form
// re-parses with the same shape regardless of precedence.
func wrap(e Expr) string {
	switch e.(type) {
	case *Binary, *Assign:
		return "(" + exprString(e) + ")"
	}
	return exprString(e)
}

func literalString(l *Literal) string {
	switch l.Kind {
	case token.INT:
		return strconv.FormatInt(l.Int, 10)
	case token.DOUBLE:
		s := strconv.FormatFloat(l.Float, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case token.STRING:
		return strconv.Quote(l.Str)
	case token.TRUE:
		return "true"
	case token.FALSE:
		return "false"
	case token.NULL:
		return "null"
	}
	return "?"
}
