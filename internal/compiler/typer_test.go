package compiler

import "testing"

func mustType(t *testing.T, src string) ([]Stmt, *TypeRegistry, *SymbolTable) {
	t.Helper()
	stmts, reg, syms := mustParse(t, src)
	typer := NewTyper(reg, syms)
	if err := typer.TypeProgram(stmts); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
	return stmts, reg, syms
}

func TestTypeBinaryExprGetsIntType(t *testing.T) {
	stmts, reg, _ := mustType(t, `func add(a: int, b: int): int { return a + b; }`)
	fn := stmts[0].(*FuncDecl)
	ret := fn.Body.Stmts[0].(*ReturnStmt)
	bin := ret.Value.(*BinaryExpr)
	if bin.TypeOf() != reg.Primitive(TInt) {
		t.Fatalf("expected a + b to type as int, got %s", bin.TypeOf())
	}
}

func TestTypeComparisonGetsBoolType(t *testing.T) {
	stmts, reg, _ := mustType(t, `func main(): void {
		var ok: bool = 1 < 2;
	}`)
	fn := stmts[0].(*FuncDecl)
	decl := fn.Body.Stmts[0].(*VarDeclStmt)
	bin := decl.Init.(*BinaryExpr)
	if bin.TypeOf() != reg.Primitive(TBool) {
		t.Fatalf("expected 1 < 2 to type as bool, got %s", bin.TypeOf())
	}
}

func TestTypeIfConditionMustBeBool(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(`func main(): void {
		if (1) {}
	}`, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	typer := NewTyper(reg, syms)
	err = typer.TypeProgram(stmts)
	if err == nil {
		t.Fatalf("expected a type error for a non-bool if condition")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T", err)
	}
}

func TestTypeAssignIncompatibleTypesIsError(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(`func main(): void {
		var x: int;
		var y: bool;
		x = y;
	}`, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	typer := NewTyper(reg, syms)
	err = typer.TypeProgram(stmts)
	if err == nil {
		t.Fatalf("expected a type error assigning bool to int")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T", err)
	}
}

func TestTypeCallArgCountMismatchIsError(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(`
	func add(a: int, b: int): int { return a + b; }
	func main(): void {
		add(1);
	}`, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	typer := NewTyper(reg, syms)
	err = typer.TypeProgram(stmts)
	if err == nil {
		t.Fatalf("expected a type error for wrong argument count")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T", err)
	}
}

func TestTypeCallArgTypeMismatchIsError(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(`
	func add(a: int, b: int): int { return a + b; }
	func main(): void {
		var ok: bool;
		add(1, ok);
	}`, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	typer := NewTyper(reg, syms)
	err = typer.TypeProgram(stmts)
	if err == nil {
		t.Fatalf("expected a type error passing bool where int is expected")
	}
}

func TestTypePointerArithmeticKeepsPointerType(t *testing.T) {
	stmts, _, _ := mustType(t, `func main(): void {
		var p: *int;
		var q: *int = p + 1;
	}`)
	fn := stmts[0].(*FuncDecl)
	decl := fn.Body.Stmts[1].(*VarDeclStmt)
	bin := decl.Init.(*BinaryExpr)
	if bin.TypeOf().Kind != TPtr || bin.TypeOf().Inner.Kind != TInt {
		t.Fatalf("expected p + 1 to stay *int, got %s", bin.TypeOf())
	}
}

func TestAssignableAllowsVoidPointerWidening(t *testing.T) {
	reg := NewTypeRegistry()
	intPtr := reg.Pointer(reg.Primitive(TInt))
	voidPtr := reg.Pointer(reg.Primitive(TVoid))
	if !assignable(intPtr, voidPtr) {
		t.Fatalf("expected *void to be assignable to *int")
	}
	if assignable(voidPtr, reg.Primitive(TInt)) {
		t.Fatalf("expected plain int not to be assignable to *void")
	}
}

func TestComparableAllowsNumericCrossKind(t *testing.T) {
	reg := NewTypeRegistry()
	if !comparable(reg.Primitive(TInt), reg.Primitive(TChar)) {
		t.Fatalf("expected int and char to be comparable")
	}
	if comparable(reg.Primitive(TBool), reg.Primitive(TInt)) {
		t.Fatalf("expected bool and int not to be comparable")
	}
}

func TestTypeDereferenceOfNonPointerIsError(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(`func main(): void {
		var x: int;
		var y: int = *x;
	}`, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	typer := NewTyper(reg, syms)
	err = typer.TypeProgram(stmts)
	if err == nil {
		t.Fatalf("expected a type error dereferencing a non-pointer")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected *TypeError, got %T", err)
	}
}
