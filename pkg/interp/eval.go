package interp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/javelinrt/javelin/internal/clock"
	"github.com/javelinrt/javelin/pkg/deadline"
	"github.com/javelinrt/javelin/pkg/heap"
	"github.com/javelinrt/javelin/pkg/lang/ast"
	"github.com/javelinrt/javelin/pkg/lang/token"
	"github.com/javelinrt/javelin/pkg/safety"
	"github.com/javelinrt/javelin/pkg/timetravel"
)

// DefaultMaxLoopIterations bounds every while/for loop so the simulated
// workload always terminates.
const DefaultMaxLoopIterations = 10000

// Runtime bundles the subsystems the evaluator drives. All fields are
// required except Rand and MaxLoopIterations, which default. A nil
// Rand falls back to the shared math/rand/v2 source; tests inject a
// fixed function for determinism.
type Runtime struct {
	Safety            *safety.Verifier
	Deadline          *deadline.Tracker
	Heap              *heap.Engine
	Recorder          *timetravel.Recorder
	Clock             clock.Clock
	Rand              func() float64
	MaxLoopIterations int
}

// signal steers statement execution: sigReturn unwinds to the nearest
// method boundary, sigHalt unwinds the whole run.
type signal uint8

const (
	sigNone signal = iota
	sigReturn
	sigHalt
)

// Evaluator walks one program. It is single-use per run (Reset rearms
// it) and owned by exactly one goroutine.
type Evaluator struct {
	rt   Runtime
	env  *Environment
	prog *ast.Program
	ctx  context.Context

	out     strings.Builder
	stack   []string
	retVal  Value
	halted  bool
	haltMsg string
	stmts   int64
}

// New builds an evaluator over the given runtime.
func New(rt Runtime) *Evaluator {
	if rt.Clock == nil {
		rt.Clock = clock.Real{}
	}
	if rt.MaxLoopIterations <= 0 {
		rt.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if rt.Rand == nil {
		rt.Rand = rand.Float64
	}
	return &Evaluator{rt: rt, env: NewEnvironment()}
}

// Run executes the program: class fields are initialized first, then
// top-level statements; when there are none, the main method runs
// instead. User-code failures never surface as Go errors. They land in
// the output buffer and the violation logs.
func (ev *Evaluator) Run(ctx context.Context, prog *ast.Program) {
	ev.prog = prog
	ev.ctx = ctx
	ev.stack = ev.stack[:0]

	ev.initFields()
	if ev.halted {
		return
	}

	if len(prog.Stmts) > 0 {
		ev.stack = append(ev.stack, "main")
		ev.execBlockStmts(prog.Stmts)
		return
	}
	if _, m := prog.Main(); m != nil {
		ev.invoke(m, nil, m.Line)
	}
}

// initFields binds every class field in declaration order, evaluating
// initializers in the shared flat environment.
func (ev *Evaluator) initFields() {
	for _, c := range ev.prog.Classes {
		for _, f := range c.Fields {
			if ev.halted {
				return
			}
			v := zeroValue(f.Type)
			if f.Init != nil {
				v = coerce(ev.eval(f.Init), f.Type)
			}
			ev.bind(f.Line, f.Name, v)
		}
	}
}

// Output returns everything the program printed, including runtime
// warnings.
func (ev *Evaluator) Output() string { return ev.out.String() }

// Halted reports whether a CRITICAL violation stopped the run, and
// HaltMessage says why.
func (ev *Evaluator) Halted() bool { return ev.halted }

// HaltMessage returns the violation message that stopped the run.
func (ev *Evaluator) HaltMessage() string { return ev.haltMsg }

// Statements returns how many statements executed.
func (ev *Evaluator) Statements() int64 { return ev.stmts }

// Env exposes the environment for inspection (REPL, snapshots).
func (ev *Evaluator) Env() *Environment { return ev.env }

// Reset rearms the evaluator for a fresh run over a fresh program.
func (ev *Evaluator) Reset() {
	ev.env.Reset()
	ev.out.Reset()
	ev.stack = nil
	ev.retVal = Void
	ev.halted = false
	ev.haltMsg = ""
	ev.stmts = 0
	ev.prog = nil
}

// ---- statement execution ----

// execBlockStmts runs statements in order, recording a snapshot and
// giving the collector a chance after each one.
func (ev *Evaluator) execBlockStmts(stmts []ast.Stmt) signal {
	for _, s := range stmts {
		sig := ev.execStmt(s)
		ev.afterStatement(s.Pos().Line)
		if sig != sigNone {
			return sig
		}
		if ev.halted {
			return sigHalt
		}
	}
	return sigNone
}

func (ev *Evaluator) execStmt(s ast.Stmt) signal {
	if ev.halted {
		return sigHalt
	}
	if ev.ctx != nil && ev.ctx.Err() != nil {
		ev.halt(s.Pos().Line, "execution cancelled")
		return sigHalt
	}
	ev.stmts++

	switch s := s.(type) {
	case *ast.VarDeclStmt:
		v := zeroValue(s.Type)
		if s.Init != nil {
			v = coerce(ev.eval(s.Init), s.Type)
		}
		ev.bind(s.Line, s.Name, v)
	case *ast.ExprStmt:
		ev.eval(s.X)
	case *ast.IfStmt:
		if ev.evalCond(s.Cond) {
			return ev.execBlockStmts(s.Then.Stmts)
		}
		if s.Else != nil {
			return ev.execStmt(s.Else)
		}
	case *ast.WhileStmt:
		return ev.runLoop(s.Line, func() bool { return ev.evalCond(s.Cond) }, nil, s.Body)
	case *ast.ForStmt:
		if s.Init != nil {
			if sig := ev.execStmt(s.Init); sig != sigNone {
				return sig
			}
			ev.afterStatement(s.Init.Pos().Line)
		}
		cond := func() bool {
			if s.Cond == nil {
				return true
			}
			return ev.evalCond(s.Cond)
		}
		var post func()
		if s.Post != nil {
			post = func() { ev.eval(s.Post) }
		}
		return ev.runLoop(s.Line, cond, post, s.Body)
	case *ast.BlockStmt:
		return ev.execBlockStmts(s.Stmts)
	case *ast.ReturnStmt:
		ev.retVal = Void
		if s.Value != nil {
			ev.retVal = ev.eval(s.Value)
		}
		return sigReturn
	}

	if ev.halted {
		return sigHalt
	}
	return sigNone
}

// runLoop drives while and for bodies under the iteration bound.
func (ev *Evaluator) runLoop(line int, cond func() bool, post func(), body *ast.BlockStmt) signal {
	max := ev.rt.MaxLoopIterations
	for iter := 0; ; iter++ {
		if ev.halted {
			return sigHalt
		}
		if !cond() || ev.halted {
			return sigNone
		}
		if iter >= max {
			ev.warnf(line, "loop terminated after %d iterations", max)
			return sigNone
		}
		if sig := ev.execBlockStmts(body.Stmts); sig != sigNone {
			return sig
		}
		if post != nil {
			post()
		}
	}
}

// afterStatement is the per-statement runtime hook: capture a snapshot,
// then collect if the heap crossed its threshold.
func (ev *Evaluator) afterStatement(line int) {
	h := ev.rt.Heap
	hs := timetravel.HeapState{
		UsedBytes:        h.Used(),
		MaxBytes:         h.Budget(),
		Objects:          h.Counters().Objects,
		OffHeapAllocated: h.Arena().Allocated(),
	}
	ev.rt.Recorder.Capture(line, ev.env.Bindings(), ev.stack, hs, h.Counters(), ev.out.String())

	if h.ShouldCollect() {
		h.Collect(ev.env.LiveObjects())
	}
}

// ---- expression evaluation ----

func (ev *Evaluator) eval(e ast.Expr) Value {
	if ev.halted {
		return Null
	}
	switch e := e.(type) {
	case *ast.Literal:
		return literalValue(e)
	case *ast.Ident:
		v, ok := ev.env.Get(e.Name)
		if !ok {
			ev.warnf(e.Line, "undefined variable %q", e.Name)
			return Null
		}
		return v
	case *ast.Binary:
		return ev.evalBinary(e)
	case *ast.Unary:
		return ev.evalUnary(e)
	case *ast.Assign:
		return ev.evalAssign(e)
	case *ast.Call:
		return ev.evalCall(e)
	case *ast.Member:
		return ev.evalMember(e)
	case *ast.Index:
		return ev.evalIndex(e)
	case *ast.New:
		return ev.evalNew(e)
	}
	return Null
}

func literalValue(l *ast.Literal) Value {
	switch l.Kind {
	case token.INT:
		return IntVal(l.Int)
	case token.DOUBLE:
		return DoubleVal(l.Float)
	case token.STRING:
		return StrVal(l.Str)
	case token.TRUE, token.FALSE:
		return BoolVal(l.Bool)
	}
	return Null
}

// evalCond evaluates a control-flow condition, which must be boolean.
func (ev *Evaluator) evalCond(e ast.Expr) bool {
	v := ev.eval(e)
	if v.Kind != KindBool {
		if !ev.halted {
			ev.warnf(e.Pos().Line, "condition is not a boolean (got %s)", v.Kind)
		}
		return false
	}
	return v.Bool
}

func (ev *Evaluator) evalBinary(b *ast.Binary) Value {
	line := b.Line

	// Short-circuit logical operators.
	switch b.Op {
	case token.AND:
		if !ev.evalCond(b.Lhs) {
			return BoolVal(false)
		}
		return BoolVal(ev.evalCond(b.Rhs))
	case token.OR:
		if ev.evalCond(b.Lhs) {
			return BoolVal(true)
		}
		return BoolVal(ev.evalCond(b.Rhs))
	}

	l := ev.eval(b.Lhs)
	r := ev.eval(b.Rhs)
	if ev.halted {
		return Null
	}

	switch b.Op {
	case token.PLUS:
		if l.Kind == KindString || r.Kind == KindString {
			return ev.alloc(line, StrVal(l.String()+r.String()))
		}
		return ev.arith(line, b.Op, l, r)
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		return ev.arith(line, b.Op, l, r)
	case token.EQ:
		return BoolVal(l.Equal(r))
	case token.NEQ:
		return BoolVal(!l.Equal(r))
	case token.LT, token.GT, token.LEQ, token.GEQ:
		return ev.compare(line, b.Op, l, r)
	}
	ev.warnf(line, "operator %s is not supported here", b.Op)
	return Null
}

// arith applies a numeric operator with int-to-double promotion: the
// result stays int only when both operands are int.
func (ev *Evaluator) arith(line int, op token.Kind, l, r Value) Value {
	if !l.IsNumeric() || !r.IsNumeric() {
		ev.warnf(line, "operator %s requires numeric operands (got %s, %s)", op, l.Kind, r.Kind)
		return Null
	}

	if op == token.SLASH || op == token.PERCENT {
		if viol := ev.rt.Safety.CheckDivision(line, r.AsFloat()); viol != nil {
			ev.halt(line, viol.Message)
			return IntVal(0)
		}
	}

	if l.Kind == KindInt && r.Kind == KindInt {
		switch op {
		case token.PLUS:
			return IntVal(l.Int + r.Int)
		case token.MINUS:
			return IntVal(l.Int - r.Int)
		case token.STAR:
			return IntVal(l.Int * r.Int)
		case token.SLASH:
			return IntVal(l.Int / r.Int)
		case token.PERCENT:
			return IntVal(l.Int % r.Int)
		}
	}

	lf, rf := l.AsFloat(), r.AsFloat()
	switch op {
	case token.PLUS:
		return DoubleVal(lf + rf)
	case token.MINUS:
		return DoubleVal(lf - rf)
	case token.STAR:
		return DoubleVal(lf * rf)
	case token.SLASH:
		return DoubleVal(lf / rf)
	case token.PERCENT:
		return DoubleVal(fmod(lf, rf))
	}
	return Null
}

func (ev *Evaluator) compare(line int, op token.Kind, l, r Value) Value {
	if !l.IsNumeric() || !r.IsNumeric() {
		ev.warnf(line, "operator %s requires numeric operands (got %s, %s)", op, l.Kind, r.Kind)
		return BoolVal(false)
	}
	lf, rf := l.AsFloat(), r.AsFloat()
	switch op {
	case token.LT:
		return BoolVal(lf < rf)
	case token.GT:
		return BoolVal(lf > rf)
	case token.LEQ:
		return BoolVal(lf <= rf)
	case token.GEQ:
		return BoolVal(lf >= rf)
	}
	return BoolVal(false)
}

func (ev *Evaluator) evalUnary(u *ast.Unary) Value {
	line := u.Line
	switch u.Op {
	case token.NOT:
		v := ev.eval(u.X)
		if v.Kind != KindBool {
			ev.warnf(line, "operator ! requires a boolean operand (got %s)", v.Kind)
			return Null
		}
		return BoolVal(!v.Bool)
	case token.MINUS:
		v := ev.eval(u.X)
		switch v.Kind {
		case KindInt:
			return IntVal(-v.Int)
		case KindDouble:
			return DoubleVal(-v.Float)
		}
		ev.warnf(line, "operator - requires a numeric operand (got %s)", v.Kind)
		return Null
	case token.INC, token.DEC:
		return ev.evalIncDec(u)
	}
	return Null
}

func (ev *Evaluator) evalIncDec(u *ast.Unary) Value {
	line := u.Line
	id := u.X.(*ast.Ident) // guaranteed by the parser
	old, ok := ev.env.Get(id.Name)
	if !ok {
		ev.warnf(line, "undefined variable %q", id.Name)
		return Null
	}
	var next Value
	switch old.Kind {
	case KindInt:
		if u.Op == token.INC {
			next = IntVal(old.Int + 1)
		} else {
			next = IntVal(old.Int - 1)
		}
	case KindDouble:
		if u.Op == token.INC {
			next = DoubleVal(old.Float + 1)
		} else {
			next = DoubleVal(old.Float - 1)
		}
	default:
		ev.warnf(line, "operator %s requires a numeric variable (got %s)", u.Op, old.Kind)
		return Null
	}
	ev.bind(line, id.Name, next)
	if u.Postfix {
		return old
	}
	return next
}

func (ev *Evaluator) evalAssign(a *ast.Assign) Value {
	v := ev.eval(a.Value)
	if ev.halted {
		return Null
	}
	switch target := a.Target.(type) {
	case *ast.Ident:
		if old, ok := ev.env.Get(target.Name); ok && old.IsNumeric() && v.IsNumeric() {
			// Assignment preserves the variable's numeric kind.
			if old.Kind == KindInt {
				v = coerce(v, ast.TypeInt)
			} else {
				v = coerce(v, ast.TypeDouble)
			}
		}
		ev.bind(a.Line, target.Name, v)
	case *ast.Member:
		recv := ev.eval(target.X)
		if recv.Kind == KindNull && recv.ObjID == 0 {
			ev.violationNull(target.Line, ast.PrintExpr(target.X))
		}
		// Object state is not modeled: the value's allocation was
		// already accounted when it was produced, and the field store
		// itself is dropped.
	case *ast.Index:
		ev.warnf(a.Line, "indexed assignment is not supported")
	}
	return v
}

func (ev *Evaluator) evalMember(m *ast.Member) Value {
	recv := ev.eval(m.X)
	if ev.halted {
		return Null
	}
	if recv.Kind == KindString && m.Name == "length" {
		return IntVal(int64(len(recv.Str)))
	}
	if recv.Kind == KindNull && recv.ObjID == 0 {
		ev.violationNull(m.Line, ast.PrintExpr(m.X))
		return Null
	}
	// Field state is not modeled on object references; reads fall back
	// to the flat environment when the field name is bound there.
	if v, ok := ev.env.Get(m.Name); ok {
		return v
	}
	return Null
}

func (ev *Evaluator) evalIndex(ix *ast.Index) Value {
	recv := ev.eval(ix.X)
	idxV := ev.eval(ix.Idx)
	if ev.halted {
		return Null
	}
	if recv.Kind != KindString {
		ev.warnf(ix.Line, "only strings can be indexed (got %s)", recv.Kind)
		return Null
	}
	if idxV.Kind != KindInt {
		ev.warnf(ix.Line, "index must be an int (got %s)", idxV.Kind)
		return Null
	}
	idx := int(idxV.Int)
	if viol := ev.rt.Safety.CheckIndex(ix.Line, idx, len(recv.Str)); viol != nil {
		return Null
	}
	return StrVal(recv.Str[idx : idx+1])
}

func (ev *Evaluator) evalNew(n *ast.New) Value {
	for _, a := range n.Args {
		ev.eval(a) // constructor arguments evaluate for effect only
	}
	class := ev.classByName(n.Class)
	if class == nil {
		ev.warnf(n.Line, "unknown class %q", n.Class)
		return Null
	}
	size := instanceSize(class)
	if viol := ev.rt.Safety.CheckAllocation(n.Line, size, ev.rt.Heap.Used(), ev.rt.Heap.Budget()); viol != nil {
		ev.halt(n.Line, viol.Message)
		return Null
	}
	id := ev.rt.Heap.Register(n.Class, size)
	v := Null
	v.ObjID = id
	return v
}

// instanceSize is the sum of the class's field sizes by declared type.
func instanceSize(c *ast.ClassDecl) int64 {
	var size int64
	for _, f := range c.Fields {
		size += zeroValue(f.Type).Size()
		if f.Type == ast.TypeString {
			if lit, ok := f.Init.(*ast.Literal); ok && lit.Kind == token.STRING {
				size += 2 * int64(len(lit.Str))
			}
		}
	}
	return size
}

func (ev *Evaluator) classByName(name string) *ast.ClassDecl {
	for _, c := range ev.prog.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ---- calls ----

func (ev *Evaluator) evalCall(c *ast.Call) Value {
	line := c.Line

	if path, ok := flatPath(c.Callee); ok {
		switch path {
		case "System.out.println":
			return ev.builtinPrint(c.Args, true)
		case "System.out.print":
			return ev.builtinPrint(c.Args, false)
		case "Math.random":
			return DoubleVal(ev.rt.Rand())
		case "Thread.sleep":
			return ev.builtinSleep(line, c.Args)
		}
	}

	switch callee := c.Callee.(type) {
	case *ast.Ident:
		_, m := ev.prog.Method(callee.Name)
		if m == nil {
			ev.warnf(line, "unknown method %q", callee.Name)
			return Null
		}
		return ev.invoke(m, ev.evalArgs(c.Args), line)
	case *ast.Member:
		recv := ev.eval(callee.X)
		if ev.halted {
			return Null
		}
		if recv.Kind == KindString && callee.Name == "length" {
			return IntVal(int64(len(recv.Str)))
		}
		if recv.Kind == KindNull && recv.ObjID == 0 {
			ev.violationNull(line, ast.PrintExpr(callee.X))
			return Null
		}
		m := ev.resolveMethod(recv, callee.Name)
		if m == nil {
			ev.warnf(line, "unknown method %q", callee.Name)
			return Null
		}
		return ev.invoke(m, ev.evalArgs(c.Args), line)
	}
	ev.warnf(line, "expression is not callable")
	return Null
}

// resolveMethod finds name on the receiver's class when the reference
// carries one, falling back to a program-wide search.
func (ev *Evaluator) resolveMethod(recv Value, name string) *ast.MethodDecl {
	if recv.ObjID != 0 {
		if obj, ok := ev.rt.Heap.Object(recv.ObjID); ok {
			if c := ev.classByName(obj.Val); c != nil {
				for _, m := range c.Methods {
					if m.Name == name {
						return m
					}
				}
			}
		}
	}
	_, m := ev.prog.Method(name)
	return m
}

func (ev *Evaluator) evalArgs(args []ast.Expr) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = ev.eval(a)
	}
	return out
}

// invoke runs a user method: call depth is acquired with a deferred
// release so aborts cannot leak it, parameters bind positionally into
// the flat environment, and a @Deadline budget is measured around the
// body.
func (ev *Evaluator) invoke(m *ast.MethodDecl, args []Value, line int) Value {
	release, viol := ev.rt.Safety.EnterCall(line, m.Name)
	defer release()
	if viol != nil {
		ev.halt(line, viol.Message)
		return Null
	}

	ev.stack = append(ev.stack, m.Name)
	defer func() { ev.stack = ev.stack[:len(ev.stack)-1] }()

	if len(args) != len(m.Params) {
		ev.warnf(line, "%s expects %d arguments, got %d", m.Name, len(m.Params), len(args))
	}
	for i, p := range m.Params {
		v := zeroValue(p.Type)
		if i < len(args) {
			v = coerce(args[i], p.Type)
		}
		ev.bind(line, p.Name, v)
	}

	var stop func() *deadline.Violation
	if ms, ok := m.Deadline(); ok {
		stop = ev.rt.Deadline.Start(m.Name, ms)
	}

	ev.retVal = Void
	sig := ev.execBlockStmts(m.Body.Stmts)

	if stop != nil {
		stop() // violations accumulate; deadlines never halt
	}
	if sig == sigReturn {
		return coerce(ev.retVal, m.ReturnType)
	}
	return Void
}

// ---- builtins ----

func (ev *Evaluator) builtinPrint(args []ast.Expr, newline bool) Value {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ev.eval(a).String()
	}
	ev.out.WriteString(strings.Join(parts, " "))
	if newline {
		ev.out.WriteByte('\n')
	}
	return Void
}

func (ev *Evaluator) builtinSleep(line int, args []ast.Expr) Value {
	if len(args) != 1 {
		ev.warnf(line, "Thread.sleep expects 1 argument, got %d", len(args))
		return Void
	}
	v := ev.eval(args[0])
	if !v.IsNumeric() {
		ev.warnf(line, "Thread.sleep expects a numeric argument (got %s)", v.Kind)
		return Void
	}
	ms := v.AsFloat()
	if ms < 0 {
		ms = 0
	}
	ev.rt.Clock.Sleep(time.Duration(ms * float64(time.Millisecond)))
	return Void
}

// ---- binding and allocation ----

// bind writes a name into the environment, accounting the value as a
// heap allocation unless it already carries a registered object or has
// no size.
func (ev *Evaluator) bind(line int, name string, v Value) {
	if v.ObjID == 0 {
		v = ev.alloc(line, v)
		if ev.halted {
			return
		}
	}
	ev.env.Bind(name, v)
}

// alloc registers v with the heap engine after the allocation check.
// On heap overflow the run halts and v comes back unregistered.
func (ev *Evaluator) alloc(line int, v Value) Value {
	size := v.Size()
	if size <= 0 {
		return v
	}
	if viol := ev.rt.Safety.CheckAllocation(line, size, ev.rt.Heap.Used(), ev.rt.Heap.Budget()); viol != nil {
		ev.halt(line, viol.Message)
		return v
	}
	v.ObjID = ev.rt.Heap.Register(v.String(), size)
	return v
}

func (ev *Evaluator) violationNull(line int, name string) {
	ev.rt.Safety.CheckNull(line, name)
	ev.warnf(line, "null reference access on %q", name)
}

// ---- diagnostics ----

func (ev *Evaluator) warnf(line int, format string, args ...any) {
	fmt.Fprintf(&ev.out, "WARNING: "+format+" (line %d)\n", append(args, line)...)
}

func (ev *Evaluator) halt(line int, msg string) {
	if ev.halted {
		return
	}
	ev.halted = true
	ev.haltMsg = msg
	fmt.Fprintf(&ev.out, "CRITICAL: %s (line %d); execution halted\n", msg, line)
}

// ---- helpers ----

func coerce(v Value, t ast.Type) Value {
	switch t {
	case ast.TypeInt:
		if v.Kind == KindDouble {
			return IntVal(int64(v.Float))
		}
	case ast.TypeDouble:
		if v.Kind == KindInt {
			return DoubleVal(float64(v.Int))
		}
	}
	return v
}

func zeroValue(t ast.Type) Value {
	switch t {
	case ast.TypeInt:
		return IntVal(0)
	case ast.TypeDouble:
		return DoubleVal(0)
	case ast.TypeBoolean:
		return BoolVal(false)
	case ast.TypeString:
		return StrVal("")
	}
	return Null
}

// fmod is the float remainder with the sign of the dividend, matching
// the dialect's % on doubles.
func fmod(a, b float64) float64 {
	return a - b*float64(int64(a/b))
}

// flatPath renders an identifier-rooted member chain like
// System.out.println; it fails on anything with computed parts.
func flatPath(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.Member:
		base, ok := flatPath(e.X)
		if !ok {
			return "", false
		}
		return base + "." + e.Name, true
	}
	return "", false
}
