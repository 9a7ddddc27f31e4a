package compiler

import "gocpu/internal/diag"

// SyntaxError is raised by the parser on an unexpected token (spec.md §4.5).
type SyntaxError struct{ *diag.Diag }

func newSyntaxError(pos diag.Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{diag.New(pos, format, args...)}
}

// TypeError is raised by the Typer: unresolvable identifiers, mismatched
// types, bad operand kinds, return/argument mismatches (spec.md §4.6).
type TypeError struct{ *diag.Diag }

func newTypeError(pos diag.Position, format string, args ...any) *TypeError {
	return &TypeError{diag.New(pos, format, args...)}
}

// SymbolError is raised on duplicate declarations, a missing main, or an
// undefined struct left forward-declared (spec.md §4.4, §4.8).
type SymbolError struct{ *diag.Diag }

func newSymbolError(pos diag.Position, format string, args ...any) *SymbolError {
	return &SymbolError{diag.New(pos, format, args...)}
}
