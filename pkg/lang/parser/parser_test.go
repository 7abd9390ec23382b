package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/javelinrt/javelin/pkg/lang/ast"
	"github.com/javelinrt/javelin/pkg/lang/token"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return prog
}

func TestParseSensorClass(t *testing.T) {
	src := `
@RealTime
class TemperatureMonitor {
    int reading = 0;
    double threshold = 25.5;

    @Deadline(ms=5)
    @Sensor(type="temperature")
    void poll() {
        reading = reading + 1;
    }

    int current() {
        return reading;
    }
}
`
	prog := parseOK(t, src)
	if len(prog.Classes) != 1 {
		t.Fatalf("got %d classes, want 1", len(prog.Classes))
	}
	c := prog.Classes[0]
	if c.Name != "TemperatureMonitor" {
		t.Errorf("class name = %q", c.Name)
	}
	if len(c.Annotations) != 1 || c.Annotations[0].Kind != token.AT_REAL_TIME {
		t.Errorf("class annotations = %+v", c.Annotations)
	}
	if len(c.Fields) != 2 || c.Fields[0].Name != "reading" || c.Fields[1].Type != ast.TypeDouble {
		t.Errorf("fields = %+v", c.Fields)
	}
	if len(c.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(c.Methods))
	}

	poll := c.Methods[0]
	if ms, ok := poll.Deadline(); !ok || ms != 5 {
		t.Errorf("poll deadline = %d, %v; want 5, true", ms, ok)
	}
	sensorType, ok := poll.Annotations[1].StrArg("type")
	if !ok || sensorType != "temperature" {
		t.Errorf("sensor type = %q, %v", sensorType, ok)
	}
	if poll.ReturnType != ast.TypeVoid {
		t.Errorf("poll return type = %v", poll.ReturnType)
	}
}

func TestParseScriptStatements(t *testing.T) {
	prog := parseOK(t, `int x = 10; System.out.println(x);`)
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*ast.VarDeclStmt); !ok {
		t.Errorf("first statement is %T, want *ast.VarDeclStmt", prog.Stmts[0])
	}
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3;", "1 + (2 * 3)"},
		{"1 * 2 + 3;", "(1 * 2) + 3"},
		{"a - b - c;", "(a - b) - c"},
		{"a < b == c > d;", "(a < b) == (c > d)"},
		{"a && b || c && d;", "(a && b) || (c && d)"},
		{"!a && b;", "!a && b"},
		{"-a * b;", "-a * b"},
		{"(1 + 2) * 3;", "(1 + 2) * 3"},
		{"a % b * c;", "(a % b) * c"},
	}
	for _, tt := range tests {
		prog := parseOK(t, tt.src)
		got := ast.PrintExpr(prog.Stmts[0].(*ast.ExprStmt).X)
		if got != tt.want {
			t.Errorf("%q parsed as %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	prog := parseOK(t, "a = b = 1;")
	outer, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.Assign)
	if !ok {
		t.Fatalf("statement is not an assignment")
	}
	if _, ok := outer.Value.(*ast.Assign); !ok {
		t.Errorf("a = b = 1 did not nest to the right: %T", outer.Value)
	}
}

func TestMemberCallChain(t *testing.T) {
	prog := parseOK(t, `System.out.println("hi");`)
	call, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.Call)
	if !ok {
		t.Fatalf("statement is not a call")
	}
	if got := ast.PrintExpr(call.Callee); got != "System.out.println" {
		t.Errorf("callee = %q", got)
	}
	if len(call.Args) != 1 {
		t.Errorf("got %d args, want 1", len(call.Args))
	}
}

func TestPostfixIncrement(t *testing.T) {
	prog := parseOK(t, "i++;")
	u, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.Unary)
	if !ok || !u.Postfix || u.Op != token.INC {
		t.Fatalf("i++ parsed as %+v", prog.Stmts[0])
	}
}

func TestNewExpr(t *testing.T) {
	prog := parseOK(t, "new Monitor();")
	n, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.New)
	if !ok || n.Class != "Monitor" || len(n.Args) != 0 {
		t.Fatalf("new Monitor() parsed as %+v", prog.Stmts[0])
	}
}

func TestIndexExpr(t *testing.T) {
	prog := parseOK(t, "s[2];")
	idx, ok := prog.Stmts[0].(*ast.ExprStmt).X.(*ast.Index)
	if !ok {
		t.Fatalf("s[2] parsed as %T", prog.Stmts[0].(*ast.ExprStmt).X)
	}
	if ast.PrintExpr(idx) != "s[2]" {
		t.Errorf("printed as %q", ast.PrintExpr(idx))
	}
}

func TestIfElseChain(t *testing.T) {
	src := `
if (x > 10) {
    y = 1;
} else if (x > 5) {
    y = 2;
} else {
    y = 3;
}
`
	prog := parseOK(t, src)
	s := prog.Stmts[0].(*ast.IfStmt)
	elseIf, ok := s.Else.(*ast.IfStmt)
	if !ok {
		t.Fatalf("else branch is %T, want *ast.IfStmt", s.Else)
	}
	if _, ok := elseIf.Else.(*ast.BlockStmt); !ok {
		t.Fatalf("final else is %T, want *ast.BlockStmt", elseIf.Else)
	}
}

func TestSingleStatementBodies(t *testing.T) {
	prog := parseOK(t, "if (x > 0) y = 1;")
	s := prog.Stmts[0].(*ast.IfStmt)
	if len(s.Then.Stmts) != 1 {
		t.Fatalf("then body = %+v", s.Then)
	}
}

func TestForLoopClauses(t *testing.T) {
	prog := parseOK(t, "for (int i = 0; i < 10; i++) { sum = sum + i; }")
	f := prog.Stmts[0].(*ast.ForStmt)
	if _, ok := f.Init.(*ast.VarDeclStmt); !ok {
		t.Errorf("init = %T", f.Init)
	}
	if f.Cond == nil || f.Post == nil {
		t.Errorf("missing cond or post: %+v", f)
	}

	prog = parseOK(t, "for (;;) { break_never_happens(); }")
	f = prog.Stmts[0].(*ast.ForStmt)
	if f.Init != nil || f.Cond != nil || f.Post != nil {
		t.Errorf("empty clauses parsed as %+v", f)
	}
}

func TestCommentsDoNotAffectTree(t *testing.T) {
	bare := parseOK(t, "int x = 1;\nint y = 2;")
	commented := parseOK(t, "// leading\nint x = 1;\n/* middle */\nint y = 2; // trailing")
	if diff := cmp.Diff(ast.Print(bare), ast.Print(commented)); diff != "" {
		t.Errorf("comments changed the tree (-bare +commented):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantMsg string
		line    int
	}{
		{"int x = 10", "expected ';'", 1},
		{"if (x > 0 { y = 1; }", "expected ')'", 1},
		{"class {", "expected class name", 1},
		{"void v;", "variables cannot have type void", 1},
		{"1 = 2;", "invalid assignment target", 1},
		{"++1;", "requires a variable operand", 1},
		{"1++;", "requires a variable operand", 1},
		{"@Deadline(ms=x) class C { }", "expected literal value", 1},
		{"@Deadline(ms=5)\nint x = 1;", "annotations must precede", 2},
		{"int x = ;", "expected expression", 1},
		{"class C { @Deadline(ms=1) int f = 0; }", "annotations are not allowed on fields", 1},
	}
	for _, tt := range tests {
		_, err := Parse(tt.src)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error %q", tt.src, tt.wantMsg)
			continue
		}
		var perr *Error
		if !errors.As(err, &perr) {
			t.Errorf("Parse(%q) error type %T: %v", tt.src, err, err)
			continue
		}
		if !strings.Contains(perr.Message, tt.wantMsg) {
			t.Errorf("Parse(%q) error %q, want containing %q", tt.src, perr.Message, tt.wantMsg)
		}
		if perr.Line != tt.line {
			t.Errorf("Parse(%q) error on line %d, want %d", tt.src, perr.Line, tt.line)
		}
	}
}

// TestPrintParseFixpoint checks that printing a parsed program and
// parsing the result reaches a fixpoint: print(parse(print(parse(src))))
// equals print(parse(src)).
func TestPrintParseFixpoint(t *testing.T) {
	sources := []string{
		`int x = 10; int y = x * 2; System.out.println(y);`,
		`
@RealTime
class Reactor {
    double temp = 99.5;
    boolean alarmed = false;

    @Deadline(ms=20)
    @SafetyCheck
    void tick() {
        if (temp > 100.0 && !alarmed) {
            alarmed = true;
        } else if (temp < 50.0) {
            alarmed = false;
        } else {
            temp = temp - 0.5;
        }
    }

    @Sensor(type="pressure")
    int read(int scale) {
        int total = 0;
        for (int i = 0; i < scale; i++) {
            total = total + i % 3;
        }
        while (total > 100) {
            total--;
        }
        return total;
    }
}
`,
		`String s = "a" + "b"; s[0]; new Reactor(); x = y = -3;`,
	}
	for _, src := range sources {
		first := ast.Print(parseOK(t, src))
		second := ast.Print(parseOK(t, first))
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("print/parse fixpoint failed for %q (-first +second):\n%s", src, diff)
		}
	}
}

func TestParsePropagatesLexErrors(t *testing.T) {
	if _, err := Parse(`String s = "unterminated`); err == nil {
		t.Fatal("Parse accepted an unterminated string")
	}
}
