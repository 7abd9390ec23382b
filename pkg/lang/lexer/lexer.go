// Package lexer converts Javelin source text into a token stream.
//
// The scan is a single left-to-right pass with one byte of lookahead and
// no backtracking. Comments are retained as COMMENT tokens so downstream
// diagnostics can reference them; whitespace is the only thing discarded.
package lexer

import (
	"fmt"
	"strings"

	"github.com/javelinrt/javelin/pkg/lang/token"
)

// Error is a fatal lexical error. Lexing stops at the first one.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Lexer scans one source string. Not safe for reuse; construct one per input.
type Lexer struct {
	src    string
	pos    int // current byte offset
	start  int // start offset of the token being scanned
	line   int // 1-based line of pos
	column int // 1-based column of pos

	startLine   int
	startColumn int

	tokens []token.Token
}

// New creates a lexer for src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// Scan tokenizes the whole input. The returned slice always ends with an
// EOF token. An unterminated string or block comment is a fatal error.
func Scan(src string) ([]token.Token, error) {
	return New(src).Scan()
}

// Scan runs the lexer to completion.
func (l *Lexer) Scan() ([]token.Token, error) {
	for !l.atEnd() {
		l.skipWhitespace()
		if l.atEnd() {
			break
		}
		l.markStart()
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.markStart()
	l.emit(token.EOF)
	return l.tokens, nil
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

// match consumes the next byte iff it equals want.
func (l *Lexer) match(want byte) bool {
	if l.atEnd() || l.src[l.pos] != want {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startColumn = l.column
}

func (l *Lexer) emit(kind token.Kind) {
	l.tokens = append(l.tokens, token.Token{
		Kind:   kind,
		Lexeme: l.src[l.start:l.pos],
		Line:   l.startLine,
		Column: l.startColumn,
		Span:   token.Span{Start: l.start, End: l.pos},
	})
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &Error{Line: l.startLine, Column: l.startColumn, Message: fmt.Sprintf(format, args...)}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) scanToken() error {
	ch := l.advance()
	switch {
	case isAlpha(ch):
		l.scanIdentifier()
		return nil
	case isDigit(ch):
		l.scanNumber()
		return nil
	}

	switch ch {
	case '"':
		return l.scanString()
	case '@':
		return l.scanAnnotation()
	case '/':
		switch {
		case l.match('/'):
			l.scanLineComment()
		case l.match('*'):
			return l.scanBlockComment()
		default:
			l.emit(token.SLASH)
		}
		return nil
	case '+':
		if l.match('+') {
			l.emit(token.INC)
		} else {
			l.emit(token.PLUS)
		}
	case '-':
		if l.match('-') {
			l.emit(token.DEC)
		} else {
			l.emit(token.MINUS)
		}
	case '*':
		l.emit(token.STAR)
	case '%':
		l.emit(token.PERCENT)
	case '=':
		if l.match('=') {
			l.emit(token.EQ)
		} else {
			l.emit(token.ASSIGN)
		}
	case '!':
		if l.match('=') {
			l.emit(token.NEQ)
		} else {
			l.emit(token.NOT)
		}
	case '<':
		if l.match('=') {
			l.emit(token.LEQ)
		} else {
			l.emit(token.LT)
		}
	case '>':
		if l.match('=') {
			l.emit(token.GEQ)
		} else {
			l.emit(token.GT)
		}
	case '&':
		if l.match('&') {
			l.emit(token.AND)
		} else {
			return l.errorf("unexpected character '&' (did you mean '&&'?)")
		}
	case '|':
		if l.match('|') {
			l.emit(token.OR)
		} else {
			return l.errorf("unexpected character '|' (did you mean '||'?)")
		}
	case '(':
		l.emit(token.LPAREN)
	case ')':
		l.emit(token.RPAREN)
	case '{':
		l.emit(token.LBRACE)
	case '}':
		l.emit(token.RBRACE)
	case '[':
		l.emit(token.LBRACKET)
	case ']':
		l.emit(token.RBRACKET)
	case ',':
		l.emit(token.COMMA)
	case ';':
		l.emit(token.SEMICOLON)
	case '.':
		l.emit(token.DOT)
	default:
		return l.errorf("unexpected character %q", ch)
	}
	return nil
}

func (l *Lexer) scanIdentifier() {
	for !l.atEnd() && isAlphaNumeric(l.peek()) {
		l.advance()
	}
	l.emit(token.Lookup(l.src[l.start:l.pos]))
}

func (l *Lexer) scanNumber() {
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	kind := token.INT
	if l.peek() == '.' && isDigit(l.peekNext()) {
		kind = token.DOUBLE
		l.advance() // '.'
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	l.emit(kind)
}

// scanString consumes a double-quoted literal. The emitted lexeme keeps the
// quotes and raw escapes; Unquote decodes them.
func (l *Lexer) scanString() error {
	for !l.atEnd() {
		ch := l.advance()
		switch ch {
		case '"':
			l.emit(token.STRING)
			return nil
		case '\\':
			if l.atEnd() {
				return l.errorf("unterminated string literal")
			}
			l.advance()
		case '\n':
			return l.errorf("unterminated string literal")
		}
	}
	return l.errorf("unterminated string literal")
}

// scanAnnotation consumes '@Name'. Names the runtime recognizes get
// dedicated kinds; anything else is AT_GENERIC.
func (l *Lexer) scanAnnotation() error {
	if l.atEnd() || !isAlpha(l.peek()) {
		return l.errorf("expected annotation name after '@'")
	}
	nameStart := l.pos
	for !l.atEnd() && isAlphaNumeric(l.peek()) {
		l.advance()
	}
	l.emit(token.LookupAnnotation(l.src[nameStart:l.pos]))
	return nil
}

func (l *Lexer) scanLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	l.emit(token.COMMENT)
}

func (l *Lexer) scanBlockComment() error {
	for !l.atEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			l.emit(token.COMMENT)
			return nil
		}
		l.advance()
	}
	return l.errorf("unterminated block comment")
}

// Unquote decodes a STRING token's lexeme (quotes and escapes) into its
// runtime value. The lexer guarantees well-formedness, so unknown escapes
// decode to the escaped byte itself.
func Unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return ""
	}
	body := lexeme[1 : len(lexeme)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' || i+1 >= len(body) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isAlphaNumeric(ch byte) bool { return isAlpha(ch) || isDigit(ch) }
