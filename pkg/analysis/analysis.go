// Package analysis performs static checks over a scanned token stream.
//
// Checks never execute code and never mutate the stream. They produce
// ordered diagnostics: WARNING entries are advisory, while a single
// ERROR entry is enough for the engine to refuse execution of the
// program outright.
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/javelinrt/javelin/pkg/lang/token"
)

// Severity ranks a diagnostic.
type Severity uint8

const (
	// Warning diagnostics are reported but do not block execution.
	Warning Severity = iota
	// Error diagnostics suppress execution of the program.
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "ERROR"
	}
	return "WARNING"
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Diagnostic is one static finding tied to a source line.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s line %d: %s", d.Severity, d.Line, d.Message)
}

type rule struct {
	name string
	run  func(s *stream) []Diagnostic
}

// Rules run in order; diagnostics are re-sorted by line afterwards, so
// order only matters for ties.
var rules = []rule{
	{"division-by-zero", checkDivisionByZero},
	{"deadline-annotation", checkDeadlines},
	{"forbidden-call", checkForbiddenCalls},
	{"assignment-in-condition", checkAssignmentInCondition},
	{"empty-loop-body", checkEmptyLoops},
	{"unbalanced-braces", checkBraces},
}

// Check runs every rule over the token stream and returns the combined
// diagnostics ordered by line.
func Check(toks []token.Token) []Diagnostic {
	s := newStream(toks)
	var diags []Diagnostic
	for _, r := range rules {
		s.reset()
		for _, d := range r.run(s) {
			d.Rule = r.name
			diags = append(diags, d)
		}
	}
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })
	return diags
}

// HasErrors reports whether any diagnostic is ERROR tier.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// stream is a cursor over the token list with comment-skipping lookahead.
// Comments stay in the underlying slice so rules that want them can still
// see them.
type stream struct {
	toks []token.Token
	pos  int
}

func newStream(toks []token.Token) *stream { return &stream{toks: toks} }

func (s *stream) reset() { s.pos = 0 }

func (s *stream) atEnd() bool { return s.pos >= len(s.toks) || s.toks[s.pos].Kind == token.EOF }

func (s *stream) next() token.Token {
	t := s.toks[s.pos]
	s.pos++
	return t
}

// peekCode returns the n-th upcoming non-comment token.
func (s *stream) peekCode(n int) token.Token {
	seen := 0
	for i := s.pos; i < len(s.toks); i++ {
		if s.toks[i].Kind == token.COMMENT {
			continue
		}
		if seen == n {
			return s.toks[i]
		}
		seen++
	}
	return token.Token{Kind: token.EOF}
}

// ---- Rules ----

// checkDivisionByZero flags `/ 0` and `% 0` with literal zero operands.
// Runtime division feeds through the safety verifier as well; this rule
// exists so the obviously-wrong case never starts executing.
func checkDivisionByZero(s *stream) []Diagnostic {
	var diags []Diagnostic
	for !s.atEnd() {
		t := s.next()
		if t.Kind != token.SLASH && t.Kind != token.PERCENT {
			continue
		}
		rhs := s.peekCode(0)
		if !isZeroLiteral(rhs) {
			continue
		}
		msg := "Division by zero detected"
		if t.Kind == token.PERCENT {
			msg = "Modulo by zero detected"
		}
		diags = append(diags, Diagnostic{Severity: Error, Line: t.Line, Message: msg})
	}
	return diags
}

func isZeroLiteral(t token.Token) bool {
	switch t.Kind {
	case token.INT:
		return t.Lexeme == "0"
	case token.DOUBLE:
		f := t.Lexeme
		for i := 0; i < len(f); i++ {
			if f[i] != '0' && f[i] != '.' {
				return false
			}
		}
		return true
	}
	return false
}

// checkDeadlines validates every @Deadline annotation: it must carry an
// integer ms argument greater than zero.
func checkDeadlines(s *stream) []Diagnostic {
	var diags []Diagnostic
	for !s.atEnd() {
		t := s.next()
		if t.Kind != token.AT_DEADLINE {
			continue
		}
		bad := func(msg string) {
			diags = append(diags, Diagnostic{Severity: Error, Line: t.Line, Message: msg})
		}
		if s.peekCode(0).Kind != token.LPAREN {
			bad("Deadline annotation requires an ms parameter")
			continue
		}
		name := s.peekCode(1)
		if name.Kind != token.IDENT || name.Lexeme != "ms" {
			bad("Deadline annotation requires an ms parameter")
			continue
		}
		if s.peekCode(2).Kind != token.ASSIGN {
			bad("Deadline annotation requires an ms parameter")
			continue
		}
		val := s.peekCode(3)
		switch val.Kind {
		case token.INT:
			if val.Lexeme == "0" {
				bad("Deadline must be positive")
			}
		case token.MINUS:
			bad("Deadline must be positive")
		default:
			bad("Deadline ms value must be an integer")
		}
	}
	return diags
}

// forbiddenCalls maps receiver identifiers to the member calls the
// sandboxed dialect refuses to run.
var forbiddenCalls = map[string][]string{
	"System":         {"exit", "load", "loadLibrary", "getenv"},
	"Runtime":        {"exec", "getRuntime", "halt"},
	"ProcessBuilder": {"*"},
	"File":           {"*"},
	"FileReader":     {"*"},
	"FileWriter":     {"*"},
	"Socket":         {"*"},
	"ServerSocket":   {"*"},
}

func checkForbiddenCalls(s *stream) []Diagnostic {
	var diags []Diagnostic
	for !s.atEnd() {
		t := s.next()
		if t.Kind != token.IDENT {
			continue
		}
		members, ok := forbiddenCalls[t.Lexeme]
		if !ok {
			continue
		}
		if len(members) == 1 && members[0] == "*" {
			diags = append(diags, Diagnostic{
				Severity: Error,
				Line:     t.Line,
				Message:  fmt.Sprintf("Forbidden system access: %s", t.Lexeme),
			})
			continue
		}
		if s.peekCode(0).Kind != token.DOT {
			continue
		}
		member := s.peekCode(1)
		for _, m := range members {
			if member.Kind == token.IDENT && member.Lexeme == m {
				diags = append(diags, Diagnostic{
					Severity: Error,
					Line:     t.Line,
					Message:  fmt.Sprintf("Forbidden system call: %s.%s", t.Lexeme, m),
				})
				break
			}
		}
	}
	return diags
}

// checkAssignmentInCondition flags a bare '=' inside an if/while
// condition, the classic ==/= slip.
func checkAssignmentInCondition(s *stream) []Diagnostic {
	var diags []Diagnostic
	for !s.atEnd() {
		t := s.next()
		if t.Kind != token.IF && t.Kind != token.WHILE {
			continue
		}
		if s.peekCode(0).Kind != token.LPAREN {
			continue
		}
		depth := 0
		for i := s.pos; i < len(s.toks); i++ {
			switch s.toks[i].Kind {
			case token.LPAREN:
				depth++
			case token.RPAREN:
				depth--
			case token.ASSIGN:
				if depth > 0 {
					diags = append(diags, Diagnostic{
						Severity: Warning,
						Line:     s.toks[i].Line,
						Message:  "Assignment inside condition, did you mean '=='?",
					})
				}
			}
			if depth == 0 && i > s.pos {
				break
			}
		}
	}
	return diags
}

// checkEmptyLoops flags while/for loops whose body is `{}` or a bare
// semicolon. They burn the iteration budget without doing anything.
func checkEmptyLoops(s *stream) []Diagnostic {
	var diags []Diagnostic
	for !s.atEnd() {
		t := s.next()
		if t.Kind != token.WHILE && t.Kind != token.FOR {
			continue
		}
		if s.peekCode(0).Kind != token.LPAREN {
			continue
		}
		// find the matching close paren, then inspect the body
		depth := 0
		i := s.pos
		for ; i < len(s.toks); i++ {
			if s.toks[i].Kind == token.LPAREN {
				depth++
			} else if s.toks[i].Kind == token.RPAREN {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if i >= len(s.toks) {
			return diags
		}
		body := codeAfter(s.toks, i)
		if len(body) >= 1 && body[0].Kind == token.SEMICOLON {
			diags = append(diags, Diagnostic{Severity: Warning, Line: t.Line, Message: "Empty loop body"})
		}
		if len(body) >= 2 && body[0].Kind == token.LBRACE && body[1].Kind == token.RBRACE {
			diags = append(diags, Diagnostic{Severity: Warning, Line: t.Line, Message: "Empty loop body"})
		}
	}
	return diags
}

// codeAfter returns the non-comment tokens following index i, at most two.
func codeAfter(toks []token.Token, i int) []token.Token {
	var out []token.Token
	for j := i + 1; j < len(toks) && len(out) < 2; j++ {
		if toks[j].Kind != token.COMMENT {
			out = append(out, toks[j])
		}
	}
	return out
}

// checkBraces reports unbalanced braces. The parser rejects these
// programs anyway; the diagnostic gives the line the imbalance became
// unrecoverable, which the parse error does not always pin down.
func checkBraces(s *stream) []Diagnostic {
	depth := 0
	lastOpen := 0
	for !s.atEnd() {
		t := s.next()
		switch t.Kind {
		case token.LBRACE:
			depth++
			lastOpen = t.Line
		case token.RBRACE:
			depth--
			if depth < 0 {
				return []Diagnostic{{Severity: Warning, Line: t.Line, Message: "Unmatched '}'"}}
			}
		}
	}
	if depth > 0 {
		return []Diagnostic{{Severity: Warning, Line: lastOpen, Message: "Unclosed '{'"}}
	}
	return nil
}
