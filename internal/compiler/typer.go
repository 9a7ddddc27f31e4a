package compiler

// Typer walks the AST once, post-order, resolving every node's type into
// its cached Type slot and enforcing the assignability rules of spec.md
// §4.6. It is a single pass, grounded in shape on the per-node-kind type
// derivation gocpu/pkg/compiler/codegen.go's getType performs, but run as
// its own pre-codegen stage the way spec.md's C7 precedes C8/C9.
type Typer struct {
	reg  *TypeRegistry
	syms *SymbolTable
}

func NewTyper(reg *TypeRegistry, syms *SymbolTable) *Typer {
	return &Typer{reg: reg, syms: syms}
}

// TypeProgram types every top-level declaration in stmts.
func (t *Typer) TypeProgram(stmts []Stmt) error {
	for _, s := range stmts {
		switch n := s.(type) {
		case *VarDeclStmt:
			if err := t.typeVarDecl(n, -1); err != nil {
				return err
			}
		case *FuncDecl:
			f, funcIdx, ok := t.syms.LookupFunc(n.Name)
			if !ok {
				return newSymbolError(n.Pos, "internal: function %q missing from symbol table", n.Name)
			}
			if err := t.typeStmt(n.Body, funcIdx); err != nil {
				return err
			}
			_ = f
		default:
			return newTypeError(s.Position(), "unexpected top-level statement %T", s)
		}
	}
	return nil
}

func (t *Typer) typeVarDecl(d *VarDeclStmt, funcIdx int) error {
	v, ok := t.syms.LookupVar(d.Name, funcIdx)
	if !ok {
		return newSymbolError(d.Pos, "internal: variable %q missing from symbol table", d.Name)
	}
	d.Var = v
	if d.Init != nil {
		initType, err := t.typeExpr(d.Init, funcIdx)
		if err != nil {
			return err
		}
		if !assignable(d.VarType, initType) {
			return newTypeError(d.Pos, "cannot initialize %q of type %s with value of type %s", d.Name, d.VarType, initType)
		}
	}
	return nil
}

func (t *Typer) typeStmt(s Stmt, funcIdx int) error {
	switch n := s.(type) {
	case *BlockStmt:
		for _, inner := range n.Stmts {
			if err := t.typeStmt(inner, funcIdx); err != nil {
				return err
			}
		}
		return nil
	case *VarDeclStmt:
		return t.typeVarDecl(n, funcIdx)
	case *IfStmt:
		condType, err := t.typeExpr(n.Cond, funcIdx)
		if err != nil {
			return err
		}
		if condType.Kind != TBool {
			return newTypeError(n.Cond.Position(), "if condition must be bool, got %s", condType)
		}
		if err := t.typeStmt(n.Then, funcIdx); err != nil {
			return err
		}
		if n.Else != nil {
			return t.typeStmt(n.Else, funcIdx)
		}
		return nil
	case *WhileStmt:
		condType, err := t.typeExpr(n.Cond, funcIdx)
		if err != nil {
			return err
		}
		if condType.Kind != TBool {
			return newTypeError(n.Cond.Position(), "while condition must be bool, got %s", condType)
		}
		return t.typeStmt(n.Body, funcIdx)
	case *ReturnStmt:
		if n.FuncIdx < 0 {
			return newTypeError(n.Pos, "return statement outside any function")
		}
		f := t.syms.Funcs[n.FuncIdx]
		if n.Value == nil {
			if f.ReturnType.Kind != TVoid {
				return newTypeError(n.Pos, "function %q must return a value of type %s", f.Name, f.ReturnType)
			}
			return nil
		}
		valType, err := t.typeExpr(n.Value, funcIdx)
		if err != nil {
			return err
		}
		if valType != f.ReturnType {
			return newTypeError(n.Pos, "function %q returns %s, got %s", f.Name, f.ReturnType, valType)
		}
		return nil
	case *AsmStmt:
		return nil
	case *AssignStmt:
		leftType, err := t.typeExpr(n.Left, funcIdx)
		if err != nil {
			return err
		}
		switch n.Left.(type) {
		case *Ident:
		case *UnaryExpr:
			if n.Left.(*UnaryExpr).Op != STAR {
				return newTypeError(n.Pos, "left side of assignment must be an identifier or *expr")
			}
		default:
			return newTypeError(n.Pos, "left side of assignment must be an identifier or *expr")
		}
		valType, err := t.typeExpr(n.Value, funcIdx)
		if err != nil {
			return err
		}
		if !assignable(leftType, valType) {
			return newTypeError(n.Pos, "cannot assign value of type %s to %s", valType, leftType)
		}
		return nil
	case *ExprStmt:
		if _, ok := n.Expr.(*CallExpr); !ok {
			return newTypeError(n.Pos, "expression statement must be a function call")
		}
		_, err := t.typeExpr(n.Expr, funcIdx)
		return err
	default:
		return newTypeError(s.Position(), "unexpected statement %T", s)
	}
}

func (t *Typer) typeExpr(e Expr, funcIdx int) (*Type, error) {
	switch n := e.(type) {
	case *IntLiteral:
		n.SetType(t.reg.Primitive(n.Kind))
		return n.TypeOf(), nil
	case *StringLit:
		n.SetType(t.reg.Pointer(t.reg.Primitive(TChar)))
		return n.TypeOf(), nil
	case *Ident:
		v, ok := t.syms.LookupVar(n.Name, funcIdx)
		if !ok {
			return nil, newTypeError(n.Pos, "undeclared identifier %q", n.Name)
		}
		n.Var = v
		n.SetType(v.Type)
		return n.TypeOf(), nil
	case *Paren:
		inner, err := t.typeExpr(n.Inner, funcIdx)
		if err != nil {
			return nil, err
		}
		n.SetType(inner)
		return inner, nil
	case *UnaryExpr:
		operandType, err := t.typeExpr(n.Operand, funcIdx)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case MINUS:
			if operandType.Kind != TInt {
				return nil, newTypeError(n.Pos, "unary - requires int, got %s", operandType)
			}
			n.SetType(t.reg.Primitive(TInt))
		case NOT:
			if operandType.Kind != TBool {
				return nil, newTypeError(n.Pos, "unary ! requires bool, got %s", operandType)
			}
			n.SetType(t.reg.Primitive(TBool))
		case STAR:
			if operandType.Kind != TPtr {
				return nil, newTypeError(n.Pos, "unary * requires a pointer, got %s", operandType)
			}
			n.SetType(operandType.Inner)
		default:
			return nil, newTypeError(n.Pos, "unsupported unary operator %s", n.Op)
		}
		return n.TypeOf(), nil
	case *BinaryExpr:
		return t.typeBinary(n, funcIdx)
	case *CastExpr:
		if _, err := t.typeExpr(n.Inner, funcIdx); err != nil {
			return nil, err
		}
		n.SetType(n.Target)
		return n.Target, nil
	case *ArrayLit:
		if n.IsChars {
			n.SetType(t.reg.Pointer(t.reg.Primitive(TChar)))
		} else {
			n.SetType(t.reg.Pointer(t.reg.Primitive(TInt)))
		}
		return n.TypeOf(), nil
	case *CallExpr:
		return t.typeCall(n, funcIdx)
	default:
		return nil, newTypeError(e.Position(), "unexpected expression %T", e)
	}
}

func (t *Typer) typeBinary(n *BinaryExpr, funcIdx int) (*Type, error) {
	leftType, err := t.typeExpr(n.Left, funcIdx)
	if err != nil {
		return nil, err
	}
	rightType, err := t.typeExpr(n.Right, funcIdx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case PLUS, MINUS, STAR, SLASH, PERCENT:
		if leftType.Kind == TPtr {
			if rightType.Kind != TInt && rightType.Kind != TPtr {
				return nil, newTypeError(n.Pos, "pointer arithmetic requires int or pointer on the right, got %s", rightType)
			}
			n.SetType(leftType)
			return leftType, nil
		}
		if !numeric(leftType) {
			return nil, newTypeError(n.Pos, "arithmetic requires int or char, got %s", leftType)
		}
		if !numeric(rightType) {
			return nil, newTypeError(n.Pos, "arithmetic requires int or char, got %s", rightType)
		}
		n.SetType(leftType)
		return leftType, nil
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		if !comparable(leftType, rightType) {
			return nil, newTypeError(n.Pos, "cannot compare %s with %s", leftType, rightType)
		}
		n.SetType(t.reg.Primitive(TBool))
		return n.TypeOf(), nil
	case AND_LOGICAL, OR_LOGICAL:
		if leftType.Kind != TBool || rightType.Kind != TBool {
			return nil, newTypeError(n.Pos, "%s requires bool operands", opSymbol(n.Op))
		}
		n.SetType(t.reg.Primitive(TBool))
		return n.TypeOf(), nil
	default:
		return nil, newTypeError(n.Pos, "unsupported binary operator %s", n.Op)
	}
}

func (t *Typer) typeCall(n *CallExpr, funcIdx int) (*Type, error) {
	f, _, ok := t.syms.LookupFunc(n.Callee)
	if !ok {
		return nil, newTypeError(n.Pos, "call to undeclared function %q", n.Callee)
	}
	n.Func = f
	if len(n.Args) != len(f.Args) {
		return nil, newTypeError(n.Pos, "function %q expects %d argument(s), got %d", n.Callee, len(f.Args), len(n.Args))
	}
	for i, arg := range n.Args {
		argType, err := t.typeExpr(arg, funcIdx)
		if err != nil {
			return nil, err
		}
		paramType := f.Args[i].Type
		if !assignable(paramType, argType) {
			return nil, newTypeError(arg.Position(), "argument %d of %q: expected %s, got %s", i+1, n.Callee, paramType, argType)
		}
	}
	n.SetType(f.ReturnType)
	return f.ReturnType, nil
}

// numeric reports whether t is int or char — the operand kinds accepted
// by plain (non-pointer) arithmetic (spec.md §4.6).
func numeric(t *Type) bool {
	return t.Kind == TInt || t.Kind == TChar
}

// comparable reports whether a and b may be compared with a relational
// or equality operator: both numeric, or both pointers (with the same
// *void-widening exception assignment allows).
func comparable(a, b *Type) bool {
	if numeric(a) && numeric(b) {
		return true
	}
	if a.Kind == TPtr && b.Kind == TPtr {
		return assignable(a, b) || assignable(b, a)
	}
	return a == b
}

// assignable reports whether a value of type src may be stored into a
// location of type dst: identical types, or the *T := *void weakening
// spec.md §4.6 carves out explicitly.
func assignable(dst, src *Type) bool {
	if dst == src {
		return true
	}
	if dst.Kind == TPtr && src.Kind == TPtr && src.Inner.Kind == TVoid {
		return true
	}
	return false
}
