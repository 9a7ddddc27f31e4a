package asm

import "gocpu/internal/diag"

// AssemblyError is raised for a bad register operand, an out-of-range
// immediate or word, a duplicate label, or a patch naming an unknown label
// (spec.md §7).
type AssemblyError struct{ *diag.Diag }

func newAssemblyError(pos diag.Position, format string, args ...any) *AssemblyError {
	return &AssemblyError{diag.New(pos, format, args...)}
}
