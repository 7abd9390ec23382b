// Package parser turns Javelin token streams into syntax trees.
//
// The grammar is parsed by recursive descent with one level per
// precedence tier. Parsing fails fast: the first syntax error aborts
// with its source position; deeper diagnostics belong to the analysis
// pass, which only runs over trees that parsed cleanly.
package parser

import (
	"fmt"
	"strconv"

	"github.com/javelinrt/javelin/pkg/lang/ast"
	"github.com/javelinrt/javelin/pkg/lang/lexer"
	"github.com/javelinrt/javelin/pkg/lang/token"
)

// Error is a syntax error at a source position.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

// Parse scans and parses source in one step.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Scan(src)
	if err != nil {
		return nil, err
	}
	return New(toks).Program()
}

// Parser consumes a token stream produced by the lexer. Comment tokens
// are dropped on construction; they matter to tooling, not to the grammar.
type Parser struct {
	toks []token.Token
	pos  int
}

// New builds a parser over a scanned token stream.
func New(toks []token.Token) *Parser {
	kept := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != token.COMMENT {
			kept = append(kept, t)
		}
	}
	return &Parser{toks: kept}
}

// Program parses the whole stream. Class declarations and bare
// top-level statements may interleave; bare statements form the
// implicit script body.
func (p *Parser) Program() (*ast.Program, error) {
	prog := &ast.Program{Position: ast.At(p.peek())}
	for !p.atEnd() {
		anns, err := p.annotations()
		if err != nil {
			return nil, err
		}
		if p.check(token.CLASS) {
			c, err := p.classDecl(anns)
			if err != nil {
				return nil, err
			}
			prog.Classes = append(prog.Classes, c)
			continue
		}
		if len(anns) > 0 {
			return nil, p.errorAt(p.peek(), "annotations must precede a class or method declaration")
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, s)
	}
	return prog, nil
}

func (p *Parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) prev() token.Token { return p.toks[p.pos-1] }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// need consumes a token of kind k or fails with msg.
func (p *Parser) need(k token.Kind, msg string) (token.Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorAt(p.peek(), "%s", msg)
}

func (p *Parser) errorAt(t token.Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if t.Kind == token.EOF {
		return &Error{Line: t.Line, Column: t.Column, Message: msg + ", found end of input"}
	}
	return &Error{Line: t.Line, Column: t.Column, Message: fmt.Sprintf("%s, found %q", msg, t.Lexeme)}
}

// ---- Declarations ----

func (p *Parser) annotations() ([]*ast.Annotation, error) {
	var anns []*ast.Annotation
	for p.peek().Kind.IsAnnotation() {
		a, err := p.annotation()
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
	}
	return anns, nil
}

func (p *Parser) annotation() (*ast.Annotation, error) {
	t := p.advance()
	a := &ast.Annotation{Position: ast.At(t), Kind: t.Kind, Name: t.Lexeme[1:]}
	if !p.match(token.LPAREN) {
		return a, nil
	}
	for !p.check(token.RPAREN) {
		name, err := p.need(token.IDENT, "expected annotation argument name")
		if err != nil {
			return nil, err
		}
		if _, err := p.need(token.ASSIGN, "expected '=' after annotation argument name"); err != nil {
			return nil, err
		}
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		a.Args = append(a.Args, ast.AnnotationArg{Name: name.Lexeme, Value: lit})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.need(token.RPAREN, "expected ')' after annotation arguments"); err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Parser) classDecl(anns []*ast.Annotation) (*ast.ClassDecl, error) {
	kw := p.advance() // class
	name, err := p.need(token.IDENT, "expected class name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(token.LBRACE, "expected '{' after class name"); err != nil {
		return nil, err
	}
	c := &ast.ClassDecl{Position: ast.At(kw), Name: name.Lexeme, Annotations: anns}
	for !p.check(token.RBRACE) && !p.atEnd() {
		if err := p.member(c); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(token.RBRACE, "expected '}' to close class body"); err != nil {
		return nil, err
	}
	return c, nil
}

// member parses one field or method declaration inside a class body.
func (p *Parser) member(c *ast.ClassDecl) error {
	anns, err := p.annotations()
	if err != nil {
		return err
	}
	if !p.peek().Kind.IsType() {
		return p.errorAt(p.peek(), "expected member type")
	}
	typTok := p.advance()
	name, err := p.need(token.IDENT, "expected member name")
	if err != nil {
		return err
	}

	if p.check(token.LPAREN) {
		m, err := p.methodRest(anns, typTok, name)
		if err != nil {
			return err
		}
		c.Methods = append(c.Methods, m)
		return nil
	}

	if len(anns) > 0 {
		return p.errorAt(typTok, "annotations are not allowed on fields")
	}
	f := &ast.FieldDecl{Position: ast.At(typTok), Type: ast.TypeOf(typTok.Kind), Name: name.Lexeme}
	if p.match(token.ASSIGN) {
		f.Init, err = p.expression()
		if err != nil {
			return err
		}
	}
	if _, err := p.need(token.SEMICOLON, "expected ';' after field declaration"); err != nil {
		return err
	}
	c.Fields = append(c.Fields, f)
	return nil
}

func (p *Parser) methodRest(anns []*ast.Annotation, typTok, name token.Token) (*ast.MethodDecl, error) {
	p.advance() // (
	m := &ast.MethodDecl{
		Position:    ast.At(typTok),
		Annotations: anns,
		ReturnType:  ast.TypeOf(typTok.Kind),
		Name:        name.Lexeme,
	}
	for !p.check(token.RPAREN) {
		if !p.peek().Kind.IsType() {
			return nil, p.errorAt(p.peek(), "expected parameter type")
		}
		pt := p.advance()
		pn, err := p.need(token.IDENT, "expected parameter name")
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, &ast.Param{Type: ast.TypeOf(pt.Kind), Name: pn.Lexeme})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.need(token.RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

// ---- Statements ----

func (p *Parser) statement() (ast.Stmt, error) {
	switch p.peek().Kind {
	case token.LBRACE:
		return p.block()
	case token.IF:
		return p.ifStmt()
	case token.WHILE:
		return p.whileStmt()
	case token.FOR:
		return p.forStmt()
	case token.RETURN:
		return p.returnStmt()
	}
	if p.peek().Kind.IsType() {
		return p.varDecl()
	}
	return p.exprStmt()
}

func (p *Parser) block() (*ast.BlockStmt, error) {
	lb, err := p.need(token.LBRACE, "expected '{'")
	if err != nil {
		return nil, err
	}
	b := &ast.BlockStmt{Position: ast.At(lb)}
	for !p.check(token.RBRACE) && !p.atEnd() {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	if _, err := p.need(token.RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return b, nil
}

// body parses a control-flow body: either a braced block or a single
// statement, which is wrapped so downstream passes always see a block.
func (p *Parser) body() (*ast.BlockStmt, error) {
	if p.check(token.LBRACE) {
		return p.block()
	}
	s, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.BlockStmt{Position: s.Pos(), Stmts: []ast.Stmt{s}}, nil
}

func (p *Parser) ifStmt() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.need(token.LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(token.RPAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	then, err := p.body()
	if err != nil {
		return nil, err
	}
	s := &ast.IfStmt{Position: ast.At(kw), Cond: cond, Then: then}
	if p.match(token.ELSE) {
		if p.check(token.IF) {
			s.Else, err = p.ifStmt()
		} else {
			var blk *ast.BlockStmt
			blk, err = p.body()
			s.Else = blk
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *Parser) whileStmt() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.need(token.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(token.RPAREN, "expected ')' after condition"); err != nil {
		return nil, err
	}
	body, err := p.body()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Position: ast.At(kw), Cond: cond, Body: body}, nil
}

func (p *Parser) forStmt() (ast.Stmt, error) {
	kw := p.advance()
	if _, err := p.need(token.LPAREN, "expected '(' after 'for'"); err != nil {
		return nil, err
	}
	s := &ast.ForStmt{Position: ast.At(kw)}

	var err error
	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.peek().Kind.IsType():
		s.Init, err = p.varDecl()
	default:
		s.Init, err = p.exprStmt()
	}
	if err != nil {
		return nil, err
	}

	if !p.check(token.SEMICOLON) {
		s.Cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.need(token.SEMICOLON, "expected ';' after loop condition"); err != nil {
		return nil, err
	}

	if !p.check(token.RPAREN) {
		s.Post, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.need(token.RPAREN, "expected ')' after loop clauses"); err != nil {
		return nil, err
	}

	s.Body, err = p.body()
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) returnStmt() (ast.Stmt, error) {
	kw := p.advance()
	s := &ast.ReturnStmt{Position: ast.At(kw)}
	if !p.check(token.SEMICOLON) {
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		s.Value = v
	}
	if _, err := p.need(token.SEMICOLON, "expected ';' after return"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) varDecl() (ast.Stmt, error) {
	typTok := p.advance()
	if typTok.Kind == token.TYPE_VOID {
		return nil, p.errorAt(typTok, "variables cannot have type void")
	}
	name, err := p.need(token.IDENT, "expected variable name")
	if err != nil {
		return nil, err
	}
	s := &ast.VarDeclStmt{Position: ast.At(typTok), Type: ast.TypeOf(typTok.Kind), Name: name.Lexeme}
	if p.match(token.ASSIGN) {
		s.Init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.need(token.SEMICOLON, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) exprStmt() (ast.Stmt, error) {
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(token.SEMICOLON, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Position: e.Pos(), X: e}, nil
}

// ---- Expressions ----
//
// One method per precedence tier, loosest first:
//   assignment  =
//   or          ||
//   and         &&
//   equality    == !=
//   relational  < > <= >=
//   additive    + -
//   multiplicative * / %
//   unary       ! - ++x --x
//   postfix     call, member, index, x++ x--
//   primary     literals, identifiers, new, grouping

func (p *Parser) expression() (ast.Expr, error) {
	return p.assignment()
}

func (p *Parser) assignment() (ast.Expr, error) {
	lhs, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.check(token.ASSIGN) {
		return lhs, nil
	}
	eq := p.advance()
	switch lhs.(type) {
	case *ast.Ident, *ast.Member, *ast.Index:
	default:
		return nil, &Error{Line: eq.Line, Column: eq.Column, Message: "invalid assignment target"}
	}
	rhs, err := p.assignment() // right associative
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Position: lhs.Pos(), Target: lhs, Value: rhs}, nil
}

func (p *Parser) or() (ast.Expr, error) {
	return p.binary(p.and, token.OR)
}

func (p *Parser) and() (ast.Expr, error) {
	return p.binary(p.equality, token.AND)
}

func (p *Parser) equality() (ast.Expr, error) {
	return p.binary(p.relational, token.EQ, token.NEQ)
}

func (p *Parser) relational() (ast.Expr, error) {
	return p.binary(p.additive, token.LT, token.GT, token.LEQ, token.GEQ)
}

func (p *Parser) additive() (ast.Expr, error) {
	return p.binary(p.multiplicative, token.PLUS, token.MINUS)
}

func (p *Parser) multiplicative() (ast.Expr, error) {
	return p.binary(p.unary, token.STAR, token.SLASH, token.PERCENT)
}

// binary parses a left-associative run of the given operators over the
// next tighter tier.
func (p *Parser) binary(next func() (ast.Expr, error), ops ...token.Kind) (ast.Expr, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.prev()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{Position: lhs.Pos(), Op: op.Kind, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *Parser) unary() (ast.Expr, error) {
	if p.match(token.NOT, token.MINUS, token.INC, token.DEC) {
		op := p.prev()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op.Kind == token.INC || op.Kind == token.DEC {
			if _, ok := x.(*ast.Ident); !ok {
				return nil, &Error{Line: op.Line, Column: op.Column, Message: fmt.Sprintf("%q requires a variable operand", op.Lexeme)}
			}
		}
		return &ast.Unary{Position: ast.At(op), Op: op.Kind, X: x}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (ast.Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(token.LPAREN):
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			e = &ast.Call{Position: e.Pos(), Callee: e, Args: args}
		case p.match(token.DOT):
			name, err := p.need(token.IDENT, "expected member name after '.'")
			if err != nil {
				return nil, err
			}
			e = &ast.Member{Position: e.Pos(), X: e, Name: name.Lexeme}
		case p.match(token.LBRACKET):
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(token.RBRACKET, "expected ']' after index"); err != nil {
				return nil, err
			}
			e = &ast.Index{Position: e.Pos(), X: e, Idx: idx}
		case p.check(token.INC) || p.check(token.DEC):
			op := p.advance()
			if _, ok := e.(*ast.Ident); !ok {
				return nil, &Error{Line: op.Line, Column: op.Column, Message: fmt.Sprintf("%q requires a variable operand", op.Lexeme)}
			}
			e = &ast.Unary{Position: e.Pos(), Op: op.Kind, X: e, Postfix: true}
		default:
			return e, nil
		}
	}
}

func (p *Parser) arguments() ([]ast.Expr, error) {
	var args []ast.Expr
	for !p.check(token.RPAREN) {
		a, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.need(token.RPAREN, "expected ')' after arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) primary() (ast.Expr, error) {
	t := p.peek()
	switch t.Kind {
	case token.INT, token.DOUBLE, token.STRING, token.TRUE, token.FALSE, token.NULL:
		return p.literal()
	case token.IDENT:
		p.advance()
		return &ast.Ident{Position: ast.At(t), Name: t.Lexeme}, nil
	case token.NEW:
		return p.newExpr()
	case token.LPAREN:
		p.advance()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(token.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorAt(t, "expected expression")
}

func (p *Parser) newExpr() (ast.Expr, error) {
	kw := p.advance()
	name, err := p.need(token.IDENT, "expected class name after 'new'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(token.LPAREN, "expected '(' after class name"); err != nil {
		return nil, err
	}
	args, err := p.arguments()
	if err != nil {
		return nil, err
	}
	return &ast.New{Position: ast.At(kw), Class: name.Lexeme, Args: args}, nil
}

func (p *Parser) literal() (*ast.Literal, error) {
	t := p.peek()
	lit := &ast.Literal{Position: ast.At(t), Kind: t.Kind}
	switch t.Kind {
	case token.INT:
		n, err := strconv.ParseInt(t.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorAt(t, "integer literal out of range")
		}
		lit.Int = n
	case token.DOUBLE:
		f, err := strconv.ParseFloat(t.Lexeme, 64)
		if err != nil {
			return nil, p.errorAt(t, "malformed double literal")
		}
		lit.Float = f
	case token.STRING:
		lit.Str = lexer.Unquote(t.Lexeme)
	case token.TRUE:
		lit.Bool = true
	case token.FALSE:
		lit.Bool = false
	case token.NULL:
	default:
		return nil, p.errorAt(t, "expected literal value")
	}
	p.advance()
	return lit, nil
}
