package compiler

import (
	"reflect"
	"testing"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
		wantErr  bool
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Operators",
			input: "+ - * / % ! = == != < > <= >= && ||",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: AND_LOGICAL, Lexeme: "&&", Line: 1},
				{Type: OR_LOGICAL, Lexeme: "||", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and identifiers",
			input: "var func if else while for return asm cast true false struct int char bool void foo_1",
			expected: []Token{
				{Type: VAR, Lexeme: "var", Line: 1},
				{Type: FUNC, Lexeme: "func", Line: 1},
				{Type: IF, Lexeme: "if", Line: 1},
				{Type: ELSE, Lexeme: "else", Line: 1},
				{Type: WHILE, Lexeme: "while", Line: 1},
				{Type: FOR, Lexeme: "for", Line: 1},
				{Type: RETURN, Lexeme: "return", Line: 1},
				{Type: ASM, Lexeme: "asm", Line: 1},
				{Type: CAST, Lexeme: "cast", Line: 1},
				{Type: TRUE, Lexeme: "true", Line: 1},
				{Type: FALSE, Lexeme: "false", Line: 1},
				{Type: STRUCT, Lexeme: "struct", Line: 1},
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: CHAR, Lexeme: "char", Line: 1},
				{Type: BOOL, Lexeme: "bool", Line: 1},
				{Type: VOID, Lexeme: "void", Line: 1},
				{Type: IDENTIFIER, Lexeme: "foo_1", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Decimal and hex integers",
			input: "123 0x1F",
			expected: []Token{
				{Type: INTEGER, Lexeme: "123", Line: 1, IntVal: 123},
				{Type: INTEGER, Lexeme: "0x1F", Line: 1, IntVal: 31},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Char literal",
			input: `'a' 'Z'`,
			expected: []Token{
				{Type: CHARLIT, Lexeme: "97", Line: 1, IntVal: int64('a')},
				{Type: CHARLIT, Lexeme: "90", Line: 1, IntVal: int64('Z')},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:    "Empty char literal is an error",
			input:   "''",
			wantErr: true,
		},
		{
			name:  "String literal",
			input: `"hello"`,
			expected: []Token{
				{Type: STRING, Lexeme: "hello", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Line comment skipped",
			input: "int // a comment\nfoo",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: IDENTIFIER, Lexeme: "foo", Line: 2},
				{Type: EOF, Lexeme: "", Line: 2},
			},
		},
		{
			name:    "Unterminated string is an error",
			input:   `"oops`,
			wantErr: true,
		},
		{
			name:    "Unexpected character",
			input:   "@",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Lex(tt.input, "test.wat")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(toks, tt.expected) {
				t.Fatalf("got %v, want %v", toks, tt.expected)
			}
		})
	}
}
