// Package ast defines the syntax tree for Javelin programs.
//
// Nodes form two closed unions, Stmt and Expr, sealed by unexported marker
// methods so evaluator dispatch is exhaustive at compile time. A tree is
// built once per parse, owns its children, contains no cycles, and is
// discarded after the run.
package ast

import "github.com/javelinrt/javelin/pkg/lang/token"

// Position locates a node in the source text.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Pos returns the position itself; embedding Position gives every node
// its Node implementation.
func (p Position) Pos() Position { return p }

// At builds a Position from a token.
func At(t token.Token) Position {
	return Position{Line: t.Line, Column: t.Column}
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

// Stmt is the closed statement union.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the closed expression union.
type Expr interface {
	Node
	exprNode()
}

// Type is a primitive type keyword of the dialect.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeInt
	TypeDouble
	TypeBoolean
	TypeString
	TypeVoid
)

var typeNames = [...]string{"unknown", "int", "double", "boolean", "String", "void"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// TypeOf maps a type-keyword token kind to a Type.
func TypeOf(k token.Kind) Type {
	switch k {
	case token.TYPE_INT:
		return TypeInt
	case token.TYPE_DOUBLE:
		return TypeDouble
	case token.TYPE_BOOLEAN:
		return TypeBoolean
	case token.TYPE_STRING:
		return TypeString
	case token.TYPE_VOID:
		return TypeVoid
	}
	return TypeUnknown
}

// Program is the parse result: class declarations plus, for the simplified
// script form, bare top-level statements executed as an implicit main body.
type Program struct {
	Position
	Classes []*ClassDecl
	Stmts   []Stmt
}

// ClassDecl declares a class with typed fields and methods.
type ClassDecl struct {
	Position
	Name        string
	Annotations []*Annotation
	Fields      []*FieldDecl
	Methods     []*MethodDecl
}

// FieldDecl declares a typed class field with an optional initializer.
type FieldDecl struct {
	Position
	Type Type
	Name string
	Init Expr // nil when absent
}

// MethodDecl declares a method. Annotations preceding the declaration
// attach here.
type MethodDecl struct {
	Position
	Annotations []*Annotation
	ReturnType  Type
	Name        string
	Params      []*Param
	Body        *BlockStmt
}

// Deadline returns the @Deadline(ms=N) budget in milliseconds and whether
// the method carries one.
func (m *MethodDecl) Deadline() (int64, bool) {
	for _, a := range m.Annotations {
		if a.Kind == token.AT_DEADLINE {
			if v, ok := a.IntArg("ms"); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// HasAnnotation reports whether the method carries an annotation of kind k.
func (m *MethodDecl) HasAnnotation(k token.Kind) bool {
	for _, a := range m.Annotations {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// Param is a typed method parameter.
type Param struct {
	Type Type
	Name string
}

// Annotation is a declarative marker such as @Deadline(ms=5) or
// @Sensor(type="temperature"). Arguments are name=value pairs restricted
// to literal values.
type Annotation struct {
	Position
	Kind token.Kind // AT_DEADLINE .. AT_GENERIC
	Name string     // the part after '@'
	Args []AnnotationArg
}

// AnnotationArg is one name=value pair.
type AnnotationArg struct {
	Name  string
	Value *Literal
}

// IntArg returns the integer argument with the given name.
func (a *Annotation) IntArg(name string) (int64, bool) {
	for _, arg := range a.Args {
		if arg.Name == name && arg.Value.Kind == token.INT {
			return arg.Value.Int, true
		}
	}
	return 0, false
}

// StrArg returns the string argument with the given name.
func (a *Annotation) StrArg(name string) (string, bool) {
	for _, arg := range a.Args {
		if arg.Name == name && arg.Value.Kind == token.STRING {
			return arg.Value.Str, true
		}
	}
	return "", false
}

// ---- Statements ----

// ExprStmt is an expression evaluated for effect, e.g. a call.
type ExprStmt struct {
	Position
	X Expr
}

// VarDeclStmt declares a typed local variable: `int x = 10;`.
type VarDeclStmt struct {
	Position
	Type Type
	Name string
	Init Expr // nil when absent
}

// IfStmt executes exactly one branch.
type IfStmt struct {
	Position
	Cond Expr
	Then *BlockStmt
	Else Stmt // nil, *BlockStmt, or *IfStmt (else-if chain)
}

// WhileStmt loops while the condition holds, subject to the runtime's
// iteration bound.
type WhileStmt struct {
	Position
	Cond Expr
	Body *BlockStmt
}

// ForStmt is the C-style loop: init; cond; post.
type ForStmt struct {
	Position
	Init Stmt // nil, *VarDeclStmt, or *ExprStmt
	Cond Expr // nil means true
	Post Expr // nil when absent
	Body *BlockStmt
}

// BlockStmt is a braced statement list.
type BlockStmt struct {
	Position
	Stmts []Stmt
}

// ReturnStmt short-circuits statement execution up the call chain.
type ReturnStmt struct {
	Position
	Value Expr // nil for bare return
}

func (*ExprStmt) stmtNode()    {}
func (*VarDeclStmt) stmtNode() {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*ForStmt) stmtNode()     {}
func (*BlockStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()  {}

// ---- Expressions ----

// Literal is a constant. Kind selects which field is meaningful:
// INT→Int, DOUBLE→Float, STRING→Str, TRUE/FALSE→Bool, NULL→none.
type Literal struct {
	Position
	Kind  token.Kind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// Ident references a bound name.
type Ident struct {
	Position
	Name string
}

// Binary applies an infix operator.
type Binary struct {
	Position
	Op  token.Kind
	Lhs Expr
	Rhs Expr
}

// Unary applies a prefix (!x, -x, ++x, --x) or postfix (x++, x--) operator.
type Unary struct {
	Position
	Op      token.Kind
	X       Expr
	Postfix bool
}

// Assign rebinds a target. Targets are Ident, Member, or Index expressions.
type Assign struct {
	Position
	Target Expr
	Value  Expr
}

// Call invokes a method or builtin. Callee is an Ident or Member chain
// (System.out.println).
type Call struct {
	Position
	Callee Expr
	Args   []Expr
}

// Member accesses obj.name.
type Member struct {
	Position
	X    Expr
	Name string
}

// Index accesses x[i].
type Index struct {
	Position
	X   Expr
	Idx Expr
}

// New instantiates a class: `new Monitor()`.
type New struct {
	Position
	Class string
	Args  []Expr
}

func (*Literal) exprNode() {}
func (*Ident) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Unary) exprNode()   {}
func (*Assign) exprNode()  {}
func (*Call) exprNode()    {}
func (*Member) exprNode()  {}
func (*Index) exprNode()   {}
func (*New) exprNode()     {}

// Method looks up a method by name across the program's classes,
// first match wins.
func (p *Program) Method(name string) (*ClassDecl, *MethodDecl) {
	for _, c := range p.Classes {
		for _, m := range c.Methods {
			if m.Name == name {
				return c, m
			}
		}
	}
	return nil, nil
}

// Main returns the program's entry method, if any class declares one.
func (p *Program) Main() (*ClassDecl, *MethodDecl) {
	return p.Method("main")
}
