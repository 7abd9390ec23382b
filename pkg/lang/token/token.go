// Package token defines the lexical tokens of the Javelin dialect, a
// restricted real-time Java subset with timing and safety annotations.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind uint8

const (
	ILLEGAL Kind = iota
	EOF
	COMMENT // // ... and /* ... */, retained for diagnostics

	// Literals and identifiers
	IDENT  // counter, sensorValue
	INT    // 42
	DOUBLE // 3.14
	STRING // "reading"

	// Keywords
	CLASS
	IF
	ELSE
	WHILE
	FOR
	RETURN
	NEW
	TRUE
	FALSE
	NULL

	// Type keywords
	TYPE_INT
	TYPE_DOUBLE
	TYPE_BOOLEAN
	TYPE_STRING
	TYPE_VOID

	// Annotations (one kind per recognized name; the sigil form is
	// @Name, matched exactly). Anything else after '@' is AT_GENERIC.
	AT_DEADLINE
	AT_SENSOR
	AT_SAFETY_CHECK
	AT_REAL_TIME
	AT_GENERIC

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	ASSIGN  // =
	EQ      // ==
	NEQ     // !=
	LT      // <
	GT      // >
	LEQ     // <=
	GEQ     // >=
	AND     // &&
	OR      // ||
	NOT     // !
	INC     // ++
	DEC     // --

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	SEMICOLON // ;
	DOT       // .
)

var kindNames = map[Kind]string{
	ILLEGAL:         "ILLEGAL",
	EOF:             "EOF",
	COMMENT:         "COMMENT",
	IDENT:           "IDENT",
	INT:             "INT",
	DOUBLE:          "DOUBLE",
	STRING:          "STRING",
	CLASS:           "class",
	IF:              "if",
	ELSE:            "else",
	WHILE:           "while",
	FOR:             "for",
	RETURN:          "return",
	NEW:             "new",
	TRUE:            "true",
	FALSE:           "false",
	NULL:            "null",
	TYPE_INT:        "int",
	TYPE_DOUBLE:     "double",
	TYPE_BOOLEAN:    "boolean",
	TYPE_STRING:     "String",
	TYPE_VOID:       "void",
	AT_DEADLINE:     "@Deadline",
	AT_SENSOR:       "@Sensor",
	AT_SAFETY_CHECK: "@SafetyCheck",
	AT_REAL_TIME:    "@RealTime",
	AT_GENERIC:      "@ANNOTATION",
	PLUS:            "+",
	MINUS:           "-",
	STAR:            "*",
	SLASH:           "/",
	PERCENT:         "%",
	ASSIGN:          "=",
	EQ:              "==",
	NEQ:             "!=",
	LT:              "<",
	GT:              ">",
	LEQ:             "<=",
	GEQ:             ">=",
	AND:             "&&",
	OR:              "||",
	NOT:             "!",
	INC:             "++",
	DEC:             "--",
	LPAREN:          "(",
	RPAREN:          ")",
	LBRACE:          "{",
	RBRACE:          "}",
	LBRACKET:        "[",
	RBRACKET:        "]",
	COMMA:           ",",
	SEMICOLON:       ";",
	DOT:             ".",
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// keywords maps reserved words to their kinds.
var keywords = map[string]Kind{
	"class":   CLASS,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"for":     FOR,
	"return":  RETURN,
	"new":     NEW,
	"true":    TRUE,
	"false":   FALSE,
	"null":    NULL,
	"int":     TYPE_INT,
	"double":  TYPE_DOUBLE,
	"boolean": TYPE_BOOLEAN,
	"String":  TYPE_STRING,
	"void":    TYPE_VOID,
}

// Lookup maps an identifier to its keyword kind, or IDENT.
func Lookup(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return IDENT
}

// annotations maps recognized annotation names (the part after '@')
// to their dedicated kinds.
var annotations = map[string]Kind{
	"Deadline":    AT_DEADLINE,
	"Sensor":      AT_SENSOR,
	"SafetyCheck": AT_SAFETY_CHECK,
	"RealTime":    AT_REAL_TIME,
}

// LookupAnnotation maps an annotation name to its kind, or AT_GENERIC
// for names the runtime does not recognize.
func LookupAnnotation(name string) Kind {
	if k, ok := annotations[name]; ok {
		return k
	}
	return AT_GENERIC
}

// IsAnnotation reports whether k is one of the annotation kinds.
func (k Kind) IsAnnotation() bool {
	return k >= AT_DEADLINE && k <= AT_GENERIC
}

// IsType reports whether k is one of the primitive type keywords.
func (k Kind) IsType() bool {
	return k >= TYPE_INT && k <= TYPE_VOID
}

// IsLiteral reports whether k is a literal token kind.
func (k Kind) IsLiteral() bool {
	switch k {
	case INT, DOUBLE, STRING, TRUE, FALSE, NULL:
		return true
	}
	return false
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Token is a single lexical token. Tokens are immutable once produced:
// the lexer is the only writer.
type Token struct {
	Kind   Kind   `json:"kind"`
	Lexeme string `json:"lexeme"`
	Line   int    `json:"line"`   // 1-based
	Column int    `json:"column"` // 1-based
	Span   Span   `json:"span"`
}

// String renders the token for diagnostics and the tokens command.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case IDENT, INT, DOUBLE, STRING, COMMENT:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Lexeme)
	default:
		return t.Kind.String()
	}
}
