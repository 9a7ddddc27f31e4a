package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER
	INTEGER
	CHARLIT
	STRING

	// Keywords (spec.md §3/§6: var func if else while for return asm cast
	// true false). "struct" is added because the type registry's
	// declareStruct/defineStruct need a declaration site and the distilled
	// top-level grammar in spec.md §4.5 is silent on one.
	VAR
	FUNC
	IF
	ELSE
	WHILE
	FOR
	RETURN
	ASM
	CAST
	TRUE
	FALSE
	STRUCT

	// Base type names. spec.md §3 lists only the eleven keywords above, but
	// the lexer classifies these through the same keyword table (see
	// keywords below), so the parser receives them already tagged.
	INT
	CHAR
	BOOL
	VOID

	// Preprocessor directive, e.g. #include
	DIRECTIVE

	// Punctuation
	LBRACE
	RBRACE
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	SEMICOLON
	COMMA
	COLON

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	NOT
	ASSIGN

	EQUALS
	NOT_EQ
	LESS
	GREATER
	LESS_EQ
	GREATER_EQ
	AND_LOGICAL
	OR_LOGICAL
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	CHARLIT:     "CHARLIT",
	STRING:      "STRING",
	VAR:         "VAR",
	FUNC:        "FUNC",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	FOR:         "FOR",
	RETURN:      "RETURN",
	ASM:         "ASM",
	CAST:        "CAST",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	STRUCT:      "STRUCT",
	INT:         "INT",
	CHAR:        "CHAR",
	BOOL:        "BOOL",
	VOID:        "VOID",
	DIRECTIVE:   "DIRECTIVE",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACKET:    "LBRACKET",
	RBRACKET:    "RBRACKET",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	COLON:       "COLON",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AMP:         "AMP",
	NOT:         "NOT",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) && tokenNames[tt] != "" {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords maps source text to its keyword TokenType. Base type names are
// included so the lexer can hand the parser a single classified token
// instead of a bare identifier it would need to re-inspect.
var keywords = map[string]TokenType{
	"var":    VAR,
	"func":   FUNC,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"return": RETURN,
	"asm":    ASM,
	"cast":   CAST,
	"true":   TRUE,
	"false":  FALSE,
	"struct": STRUCT,
	"int":    INT,
	"char":   CHAR,
	"bool":   BOOL,
	"void":   VOID,
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	IntVal int64 // valid when Type == INTEGER (the parsed 64-bit value) or CHARLIT (the code point)
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q line %d", t.Type, t.Lexeme, t.Line)
}
