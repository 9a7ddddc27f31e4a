package compiler

import (
	"fmt"

	"gocpu/internal/diag"
)

// Node is embedded by every AST node: it carries a Position and the type
// slot the Typer fills in (spec.md §3). Every reachable node has a non-nil
// Type after the Typer runs (spec.md §3 invariant).
type Node struct {
	Pos  diag.Position
	Type *Type
}

func (n *Node) Position() diag.Position { return n.Pos }
func (n *Node) TypeOf() *Type           { return n.Type }
func (n *Node) SetType(t *Type)         { n.Type = t }

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	Position() diag.Position
	TypeOf() *Type
	SetType(*Type)
	String() string
}

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	Position() diag.Position
	String() string
}

// IntLiteral is a compile-time int, bool, or char constant (spec.md §3:
// "integer-like literal (int|bool|char value)").
type IntLiteral struct {
	Node
	Value int64
	Kind  TypeKind // TInt, TBool, or TChar
}

func (*IntLiteral) exprNode() {}
func (l *IntLiteral) String() string {
	return fmt.Sprintf("%d", l.Value)
}

// StringLit is a reference into the symbol table's string intern pool.
type StringLit struct {
	Node
	ID    int
	Value string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Value) }

// Ident is a read of a named variable.
type Ident struct {
	Node
	Name string
	// Var is resolved by the Typer and consumed by the Compiler.
	Var *Var
}

func (*Ident) exprNode()        {}
func (i *Ident) String() string { return i.Name }

// Paren is a parenthesised sub-expression; it passes its inner type
// through unchanged (spec.md §4.6).
type Paren struct {
	Node
	Inner Expr
}

func (*Paren) exprNode()        {}
func (p *Paren) String() string { return fmt.Sprintf("(%s)", p.Inner) }

// UnaryExpr represents one of the unary operators {-, *, !} (spec.md §3).
type UnaryExpr struct {
	Node
	Op      TokenType
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string {
	return fmt.Sprintf("(%s%s)", opSymbol(u.Op), u.Operand)
}

// BinaryExpr represents Left Op Right over the full binary operator set
// in spec.md §3, including assignment (Op == ASSIGN).
type BinaryExpr struct {
	Node
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opSymbol(b.Op), b.Right)
}

// CastExpr represents cast(T) inner — a pure type assertion with no
// runtime conversion (spec.md §4.6).
type CastExpr struct {
	Node
	Target *Type
	Inner  Expr
}

func (*CastExpr) exprNode() {}
func (c *CastExpr) String() string {
	return fmt.Sprintf("cast(%s)(%s)", c.Target, c.Inner)
}

// ArrayLit represents [len]{v1, v2, ...} or [len]"string" (spec.md §3).
// DeclaredLen is -1 when the length is inferred from the initializer.
type ArrayLit struct {
	Node
	DeclaredLen int
	Values      []int64 // backing constant values
	IsChars     bool    // "array-of-chars" flavour vs plain "array"
}

func (*ArrayLit) exprNode() {}
func (a *ArrayLit) String() string {
	return fmt.Sprintf("[%d]{...}", a.DeclaredLen)
}

// CallExpr represents callee(args).
type CallExpr struct {
	Node
	Callee string
	Args   []Expr
	Func   *Func
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	return fmt.Sprintf("%s(...)", c.Callee)
}

// BlockStmt is a sequence of statements.
type BlockStmt struct {
	Node
	Stmts []Stmt
}

func (*BlockStmt) stmtNode()        {}
func (b *BlockStmt) String() string { return fmt.Sprintf("{ %d stmts }", len(b.Stmts)) }

// IfStmt represents if (Cond) Then [else Else].
type IfStmt struct {
	Node
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

func (*IfStmt) stmtNode()        {}
func (i *IfStmt) String() string { return fmt.Sprintf("if (%s) ...", i.Cond) }

// WhileStmt represents while (Cond) Body.
type WhileStmt struct {
	Node
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode()        {}
func (w *WhileStmt) String() string { return fmt.Sprintf("while (%s) ...", w.Cond) }

// ReturnStmt represents return [Value];
type ReturnStmt struct {
	Node
	Value   Expr // nil for a bare "return;"
	FuncIdx int
}

func (*ReturnStmt) stmtNode()        {}
func (r *ReturnStmt) String() string { return "return" }

// AsmStmt represents asm "raw text";
type AsmStmt struct {
	Node
	Text string
}

func (*AsmStmt) stmtNode()        {}
func (a *AsmStmt) String() string { return fmt.Sprintf("asm %q", a.Text) }

// VarDeclStmt represents  var name : type [= init];
type VarDeclStmt struct {
	Node
	Name    string
	VarType *Type
	Init    Expr // nil if absent
	Var     *Var
}

func (*VarDeclStmt) stmtNode()        {}
func (d *VarDeclStmt) String() string { return fmt.Sprintf("var %s: %s", d.Name, d.VarType) }

// AssignStmt represents assignable = expr;
type AssignStmt struct {
	Node
	Left  Expr // Ident or UnaryExpr{Op: STAR}
	Value Expr
}

func (*AssignStmt) stmtNode()        {}
func (a *AssignStmt) String() string { return fmt.Sprintf("%s = %s", a.Left, a.Value) }

// ExprStmt is an expression evaluated for its side effects (a call).
type ExprStmt struct {
	Node
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return e.Expr.String() }

// FuncDecl represents func name(args):retType { body }
type FuncDecl struct {
	Node
	Name string
	Body *BlockStmt
}

func (*FuncDecl) stmtNode()        {}
func (f *FuncDecl) String() string { return fmt.Sprintf("func %s", f.Name) }

func opSymbol(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case EQUALS:
		return "=="
	case NOT_EQ:
		return "!="
	case LESS:
		return "<"
	case GREATER:
		return ">"
	case LESS_EQ:
		return "<="
	case GREATER_EQ:
		return ">="
	case AND_LOGICAL:
		return "&&"
	case OR_LOGICAL:
		return "||"
	case NOT:
		return "!"
	case ASSIGN:
		return "="
	default:
		return tt.String()
	}
}
