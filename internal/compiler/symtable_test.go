package compiler

import (
	"gocpu/internal/diag"
	"testing"
)

func TestDeclareGlobalRejectsDuplicate(t *testing.T) {
	syms := NewSymbolTable()
	reg := NewTypeRegistry()
	if _, err := syms.DeclareGlobal(diag.Position{}, "x", reg.Primitive(TInt)); err != nil {
		t.Fatalf("unexpected error on first declaration: %v", err)
	}
	if _, err := syms.DeclareGlobal(diag.Position{}, "x", reg.Primitive(TInt)); err == nil {
		t.Fatalf("expected an error redeclaring global %q", "x")
	}
}

func TestDeclareFuncRejectsDuplicate(t *testing.T) {
	syms := NewSymbolTable()
	reg := NewTypeRegistry()
	if _, err := syms.DeclareFunc(diag.Position{}, "f", reg.Primitive(TVoid)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := syms.DeclareFunc(diag.Position{}, "f", reg.Primitive(TVoid)); err == nil {
		t.Fatalf("expected an error redeclaring function %q", "f")
	}
}

func TestDeclareArgRejectsDuplicate(t *testing.T) {
	syms := NewSymbolTable()
	reg := NewTypeRegistry()
	f, err := syms.DeclareFunc(diag.Position{}, "f", reg.Primitive(TVoid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, fi, _ := syms.LookupFunc("f")
	if _, err := syms.DeclareArg(diag.Position{}, fi, "a", reg.Primitive(TInt)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := syms.DeclareArg(diag.Position{}, fi, "a", reg.Primitive(TInt)); err == nil {
		t.Fatalf("expected an error redeclaring argument %q", "a")
	}
	if len(f.Args) != 1 {
		t.Fatalf("expected 1 arg to stick, got %d", len(f.Args))
	}
}

func TestDeclareLocalRejectsArgCollisionAndDuplicate(t *testing.T) {
	syms := NewSymbolTable()
	reg := NewTypeRegistry()
	syms.DeclareFunc(diag.Position{}, "f", reg.Primitive(TVoid))
	_, fi, _ := syms.LookupFunc("f")
	syms.DeclareArg(diag.Position{}, fi, "a", reg.Primitive(TInt))

	if _, err := syms.DeclareLocal(diag.Position{}, fi, "a", reg.Primitive(TInt)); err == nil {
		t.Fatalf("expected a local colliding with an argument name to be rejected")
	}
	if _, err := syms.DeclareLocal(diag.Position{}, fi, "b", reg.Primitive(TInt)); err != nil {
		t.Fatalf("unexpected error declaring local %q: %v", "b", err)
	}
	if _, err := syms.DeclareLocal(diag.Position{}, fi, "b", reg.Primitive(TInt)); err == nil {
		t.Fatalf("expected an error redeclaring local %q", "b")
	}
}

func TestLookupVarPrefersLocalsThenArgsThenGlobals(t *testing.T) {
	syms := NewSymbolTable()
	reg := NewTypeRegistry()
	syms.DeclareGlobal(diag.Position{}, "x", reg.Primitive(TInt))
	syms.DeclareFunc(diag.Position{}, "f", reg.Primitive(TVoid))
	_, fi, _ := syms.LookupFunc("f")
	syms.DeclareArg(diag.Position{}, fi, "x", reg.Primitive(TBool))

	v, ok := syms.LookupVar("x", fi)
	if !ok {
		t.Fatalf("expected to find %q", "x")
	}
	if v.Type.Kind != TBool {
		t.Fatalf("expected the argument to shadow the global, got type %s", v.Type)
	}

	// DeclareLocal rejects a local that reuses an argument's name, so the
	// shadowing local is appended directly to exercise LookupVar's order.
	local := &Var{Name: "x", FuncIdx: fi, Type: reg.Primitive(TChar)}
	syms.Funcs[fi].Locals = append(syms.Funcs[fi].Locals, local)
	v, ok = syms.LookupVar("x", fi)
	if !ok || v != local {
		t.Fatalf("expected the local to shadow both the argument and the global")
	}

	v, ok = syms.LookupVar("x", -1)
	if !ok || v.Type.Kind != TInt {
		t.Fatalf("expected top-level lookup to resolve straight to the global")
	}
}

func TestLookupVarUnknownNameFails(t *testing.T) {
	syms := NewSymbolTable()
	if _, ok := syms.LookupVar("nope", -1); ok {
		t.Fatalf("expected lookup of an undeclared name to fail")
	}
}

func TestInternStringDedupesByBytes(t *testing.T) {
	syms := NewSymbolTable()
	id1 := syms.InternString("hello")
	id2 := syms.InternString("world")
	id3 := syms.InternString("hello")
	if id1 != id3 {
		t.Fatalf("expected repeated interning of the same bytes to return the same id")
	}
	if id1 == id2 {
		t.Fatalf("expected distinct byte sequences to get distinct ids")
	}
	if len(syms.Strings) != 2 {
		t.Fatalf("expected 2 distinct interned strings, got %d", len(syms.Strings))
	}
}

func TestVarIsGlobal(t *testing.T) {
	g := &Var{FuncIdx: -1}
	l := &Var{FuncIdx: 0}
	if !g.IsGlobal() {
		t.Fatalf("expected FuncIdx -1 to report IsGlobal")
	}
	if l.IsGlobal() {
		t.Fatalf("expected FuncIdx 0 not to report IsGlobal")
	}
}
