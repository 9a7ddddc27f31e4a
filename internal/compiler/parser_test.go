package compiler

import (
	"testing"

	"gocpu/internal/diag"
)

func mustParse(t *testing.T, src string) ([]Stmt, *TypeRegistry, *SymbolTable) {
	t.Helper()
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(src, "test.wat", nil, reg, syms)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return stmts, reg, syms
}

func TestParseFuncDeclAndSignature(t *testing.T) {
	src := `func add(a: int, b: int): int { return a + b; }`
	stmts, _, syms := mustParse(t, src)

	if len(stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(stmts))
	}
	fn, ok := stmts[0].(*FuncDecl)
	if !ok {
		t.Fatalf("expected *FuncDecl, got %T", stmts[0])
	}
	if fn.Name != "add" {
		t.Fatalf("expected func name %q, got %q", "add", fn.Name)
	}

	f, _, ok := syms.LookupFunc("add")
	if !ok {
		t.Fatalf("add not registered in symbol table")
	}
	if len(f.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(f.Args))
	}
	if f.ReturnType.Kind != TInt {
		t.Fatalf("expected int return type, got %v", f.ReturnType.Kind)
	}

	body := fn.Body.Stmts
	if len(body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(body))
	}
	ret, ok := body[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected *ReturnStmt, got %T", body[0])
	}
	bin, ok := ret.Value.(*BinaryExpr)
	if !ok {
		t.Fatalf("expected *BinaryExpr return value, got %T", ret.Value)
	}
	if bin.Op != PLUS {
		t.Fatalf("expected PLUS, got %v", bin.Op)
	}
}

func TestParseForDesugarsToWhile(t *testing.T) {
	src := `func main(): void {
		var i: int;
		for (i = 0; i < 10; i = i + 1) {
		}
	}`
	stmts, _, _ := mustParse(t, src)
	fn := stmts[0].(*FuncDecl)
	if len(fn.Body.Stmts) != 2 {
		t.Fatalf("expected [var, for-block], got %d stmts", len(fn.Body.Stmts))
	}
	outer, ok := fn.Body.Stmts[1].(*BlockStmt)
	if !ok {
		t.Fatalf("expected *BlockStmt wrapper, got %T", fn.Body.Stmts[1])
	}
	if len(outer.Stmts) != 2 {
		t.Fatalf("expected [init, while] inside the wrapper, got %d stmts", len(outer.Stmts))
	}
	if _, ok := outer.Stmts[0].(*AssignStmt); !ok {
		t.Fatalf("expected init to be *AssignStmt, got %T", outer.Stmts[0])
	}
	while, ok := outer.Stmts[1].(*WhileStmt)
	if !ok {
		t.Fatalf("expected *WhileStmt, got %T", outer.Stmts[1])
	}
	if len(while.Body.(*BlockStmt).Stmts) != 2 {
		t.Fatalf("expected [body, post] inside the while body, got %d", len(while.Body.(*BlockStmt).Stmts))
	}
	if _, ok := while.Body.(*BlockStmt).Stmts[1].(*AssignStmt); !ok {
		t.Fatalf("expected the post-statement to be appended inside the while body")
	}
}

func TestParseArrayLiteralIntAndChars(t *testing.T) {
	src := `func main(): void {
		var xs: *int = [3]{1, 2, 3};
		var cs: *char = [4]"abc";
	}`
	stmts, _, _ := mustParse(t, src)
	fn := stmts[0].(*FuncDecl)

	xs := fn.Body.Stmts[0].(*VarDeclStmt)
	arr := xs.Init.(*ArrayLit)
	if arr.DeclaredLen != 3 || len(arr.Values) != 3 || arr.IsChars {
		t.Fatalf("unexpected int array literal: %+v", arr)
	}

	cs := fn.Body.Stmts[1].(*VarDeclStmt)
	carr := cs.Init.(*ArrayLit)
	if carr.DeclaredLen != 4 || !carr.IsChars || len(carr.Values) != 3 {
		t.Fatalf("unexpected char array literal: %+v", carr)
	}
}

func TestParseAssertGetsFileAndLineAppended(t *testing.T) {
	src := `func main(): void {
		assert(1 == 1);
	}`
	stmts, _, _ := mustParse(t, src)
	fn := stmts[0].(*FuncDecl)
	exprStmt := fn.Body.Stmts[0].(*ExprStmt)
	call := exprStmt.Expr.(*CallExpr)
	if len(call.Args) != 3 {
		t.Fatalf("expected assert to carry 3 args (cond, file, line), got %d", len(call.Args))
	}
	if _, ok := call.Args[1].(*StringLit); !ok {
		t.Fatalf("expected second assert arg to be the filename, got %T", call.Args[1])
	}
	if _, ok := call.Args[2].(*IntLiteral); !ok {
		t.Fatalf("expected third assert arg to be the line number, got %T", call.Args[2])
	}
}

func TestParseStructDeclAndForwardDeclaration(t *testing.T) {
	src := `
	struct Point;
	struct Point { x: int; y: int; }
	func main(): void {}
	`
	_, reg, _ := mustParse(t, src)
	st := reg.DeclareStruct(diag.Position{}, "Point")
	if len(st.Fields) != 2 {
		t.Fatalf("expected Point to have 2 fields, got %d", len(st.Fields))
	}
}

func TestParseMissingSemicolonIsSyntaxError(t *testing.T) {
	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	_, err := ParseProgram(`func main(): void { return 1 }`, "test.wat", nil, reg, syms)
	if err == nil {
		t.Fatalf("expected a syntax error for the missing semicolon")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("expected *SyntaxError, got %T", err)
	}
}
