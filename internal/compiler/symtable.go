package compiler

import "gocpu/internal/diag"

// VarLoc describes where a variable's value lives once the compiler has
// assigned it storage (spec.md §3: "loc is assigned by the compiler").
// Globals carry an absolute byte offset in the static data region; locals
// and arguments carry a frame-relative byte offset from BASE.
type VarLoc struct {
	Assigned bool
	Offset   int
}

// Var is one declared variable: a global, a function argument, or a local.
// FuncIdx is an index into the SymbolTable's Funcs slice rather than a
// pointer back to the owning function, per spec.md §9's design note that
// the back-reference should never be traversed as ownership.
type Var struct {
	Pos     diag.Position
	Name    string
	FuncIdx int // -1 for globals
	Type    *Type
	Loc     VarLoc
}

func (v *Var) IsGlobal() bool { return v.FuncIdx < 0 }

// Func is one declared function: its signature and local-variable list.
type Func struct {
	Pos        diag.Position
	Name       string
	Args       []*Var
	Locals     []*Var
	ReturnType *Type
}

// InternedString is a string literal interned once per distinct byte
// sequence; Loc is filled in during data-section layout (spec.md §4.9).
type InternedString struct {
	Bytes string
	Loc   VarLoc
}

// SymbolTable holds globals, functions (with their args/locals), and the
// string intern pool for one compilation (spec.md §4.4).
type SymbolTable struct {
	Globals   []*Var
	globalIdx map[string]int

	Funcs   []*Func
	funcIdx map[string]int

	Strings   []*InternedString
	stringIdx map[string]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		globalIdx: make(map[string]int),
		funcIdx:   make(map[string]int),
		stringIdx: make(map[string]int),
	}
}

// DeclareGlobal adds a new global variable, rejecting a name already
// declared at global scope.
func (s *SymbolTable) DeclareGlobal(pos diag.Position, name string, typ *Type) (*Var, error) {
	if _, ok := s.globalIdx[name]; ok {
		return nil, newSymbolError(pos, "global %q already declared", name)
	}
	v := &Var{Pos: pos, Name: name, FuncIdx: -1, Type: typ}
	s.globalIdx[name] = len(s.Globals)
	s.Globals = append(s.Globals, v)
	return v, nil
}

// DeclareFunc adds a new function, rejecting a name already declared as a
// function. Functions and globals are separate namespaces, so a function
// may share its name with a global.
func (s *SymbolTable) DeclareFunc(pos diag.Position, name string, retType *Type) (*Func, error) {
	if _, ok := s.funcIdx[name]; ok {
		return nil, newSymbolError(pos, "function %q already declared", name)
	}
	f := &Func{Pos: pos, Name: name, ReturnType: retType}
	s.funcIdx[name] = len(s.Funcs)
	s.Funcs = append(s.Funcs, f)
	return f, nil
}

func (s *SymbolTable) LookupFunc(name string) (*Func, int, bool) {
	i, ok := s.funcIdx[name]
	if !ok {
		return nil, -1, false
	}
	return s.Funcs[i], i, true
}

// DeclareArg adds an argument to the function at funcIdx, rejecting a
// name already used by another argument of the same function.
func (s *SymbolTable) DeclareArg(pos diag.Position, funcIdx int, name string, typ *Type) (*Var, error) {
	f := s.Funcs[funcIdx]
	for _, a := range f.Args {
		if a.Name == name {
			return nil, newSymbolError(pos, "argument %q already declared in function %q", name, f.Name)
		}
	}
	v := &Var{Pos: pos, Name: name, FuncIdx: funcIdx, Type: typ}
	f.Args = append(f.Args, v)
	return v, nil
}

// DeclareLocal adds a local to the function at funcIdx, rejecting a name
// already used by another local OR by an argument of the same function
// (shadowing a global is allowed; spec.md §8 property 4).
func (s *SymbolTable) DeclareLocal(pos diag.Position, funcIdx int, name string, typ *Type) (*Var, error) {
	f := s.Funcs[funcIdx]
	for _, a := range f.Args {
		if a.Name == name {
			return nil, newSymbolError(pos, "local %q collides with argument of the same name in function %q", name, f.Name)
		}
	}
	for _, l := range f.Locals {
		if l.Name == name {
			return nil, newSymbolError(pos, "local %q already declared in function %q", name, f.Name)
		}
	}
	v := &Var{Pos: pos, Name: name, FuncIdx: funcIdx, Type: typ}
	f.Locals = append(f.Locals, v)
	return v, nil
}

// LookupVar resolves name in order: current function's locals, then its
// args, then globals (spec.md §4.4). funcIdx < 0 means "at top level" and
// skips straight to globals.
func (s *SymbolTable) LookupVar(name string, funcIdx int) (*Var, bool) {
	if funcIdx >= 0 {
		f := s.Funcs[funcIdx]
		for i := len(f.Locals) - 1; i >= 0; i-- {
			if f.Locals[i].Name == name {
				return f.Locals[i], true
			}
		}
		for _, a := range f.Args {
			if a.Name == name {
				return a, true
			}
		}
	}
	if i, ok := s.globalIdx[name]; ok {
		return s.Globals[i], true
	}
	return nil, false
}

// InternString returns a stable id for bytes, interning it on first use.
func (s *SymbolTable) InternString(bytes string) int {
	if id, ok := s.stringIdx[bytes]; ok {
		return id
	}
	id := len(s.Strings)
	s.Strings = append(s.Strings, &InternedString{Bytes: bytes})
	s.stringIdx[bytes] = id
	return id
}
