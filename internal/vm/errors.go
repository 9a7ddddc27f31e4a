package vm

import "gocpu/internal/diag"

// RuntimeError is raised when the emulator decodes an opcode it does not
// recognise (spec.md §4.10, §7), divides by zero, or loads or stores
// outside the memory image. Its position carries the PC in the Line field.
// There is no recovery: execution aborts.
type RuntimeError struct{ *diag.Diag }

func newRuntimeError(pos diag.Position, format string, args ...any) *RuntimeError {
	return &RuntimeError{diag.New(pos, format, args...)}
}
