// Package token defines the token kinds produced by the lexer and
// consumed by the parser.
package token

import "github.com/Aiffelowy/harpy-sub000/internal/source"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	// Literals
	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	LET
	GLOBAL
	FN
	FOR
	WHILE
	LOOP
	IF
	ELSE
	SWITCH
	BOXED
	BOX
	BORROW
	BORROWED
	MUT
	RETURN
	TRUE
	FALSE
	IN

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	COMMA
	COLON
	SEMI
	ARROW    // ->
	FATARROW // =>
	DOT      // . (default switch arm)

	// Operators
	ASSIGN // =
	PLUS
	MINUS
	STAR
	SLASH
	BANG
	AMP // &

	EQ  // ==
	NEQ // !=
	LT
	LTE
	GT
	GTE
	ANDAND // &&
	OROR   // ||

	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
)

var keywords = map[string]Kind{
	"let":      LET,
	"global":   GLOBAL,
	"fn":       FN,
	"for":      FOR,
	"while":    WHILE,
	"loop":     LOOP,
	"if":       IF,
	"else":     ELSE,
	"switch":   SWITCH,
	"boxed":    BOXED,
	"box":      BOX,
	"borrow":   BORROW,
	"borrowed": BORROWED,
	"mut":      MUT,
	"return":   RETURN,
	"true":     TRUE,
	"false":    FALSE,
	"in":       IN,
}

// LookupIdent classifies ident as a keyword Kind, or IDENT if it isn't one.
func LookupIdent(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return IDENT
}

var names = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	LET: "let", GLOBAL: "global", FN: "fn", FOR: "for", WHILE: "while", LOOP: "loop",
	IF: "if", ELSE: "else", SWITCH: "switch", BOXED: "boxed", BOX: "box",
	BORROW: "borrow", BORROWED: "borrowed", MUT: "mut", RETURN: "return",
	TRUE: "true", FALSE: "false", IN: "in",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", COMMA: ",", COLON: ":",
	SEMI: ";", ARROW: "->", FATARROW: "=>", DOT: ".",
	ASSIGN: "=", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", BANG: "!", AMP: "&",
	EQ: "==", NEQ: "!=", LT: "<", LTE: "<=", GT: ">", GTE: ">=", ANDAND: "&&", OROR: "||",
	PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=", SLASH_ASSIGN: "/=",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Token is a single lexical unit with its source span.
type Token struct {
	Kind    Kind
	Lexeme  string
	IntVal  int64
	FltVal  float64
	StrVal  string
	Span    source.Span
}
