package compiler

import (
	"fmt"

	"gocpu/internal/asm"
	"gocpu/internal/diag"
)

// Register conventions fixed by spec.md §4.8.
const (
	zeroReg   uint8 = 0
	retvalReg uint8 = 28
	baseReg   uint8 = 29
	stackReg  uint8 = 30
	linkReg   uint8 = 31

	firstScratchReg uint8 = 1
	lastScratchReg  uint8 = 27
)

// tempStorage describes where a just-lowered expression's value lives: a
// scratch register for anything that fits in a word, or a stack pointer
// plus byte size for a struct value (spec.md GLOSSARY: "Tempstorage").
type tempStorage struct {
	isPtr bool
	reg   uint8 // valid when !isPtr
	ptr   uint8 // valid when isPtr
	size  int   // byte size; 4 for every non-struct value
}

// Compiler drives Codegen: it lays out globals/strings, allocates frame
// offsets, and lowers every statement and expression into instructions
// (spec.md §4.8). Grounded directly on original_source/compiler.cc's
// resolveSymbolLocations/compileTerm/compileStatement/compileCall, carried
// over into Go's error-return idiom in place of C++ exceptions.
type Compiler struct {
	cg          *asm.Codegen
	reg         *TypeRegistry
	syms        *SymbolTable
	curReg      uint8
	labelN      int
	curFuncIdx  int
}

func NewCompiler(reg *TypeRegistry, syms *SymbolTable) *Compiler {
	return &Compiler{cg: asm.NewCodegen(), reg: reg, syms: syms, curReg: firstScratchReg, curFuncIdx: -1}
}

func (c *Compiler) uniqueLabel() string {
	c.labelN++
	return fmt.Sprintf("L%d", c.labelN)
}

func (c *Compiler) allocReg() (uint8, error) {
	if c.curReg > lastScratchReg {
		return 0, newSymbolError(diag.Position{}, "out of scratch registers")
	}
	r := c.curReg
	c.curReg++
	return r, nil
}

func (c *Compiler) globalLabel(v *Var) string { return "global_" + v.Name }
func (c *Compiler) stringLabel(id int) string { return fmt.Sprintf("string_%d", id) }
func (c *Compiler) funcLabel(funcIdx int) string {
	return "func_" + c.syms.Funcs[funcIdx].Name
}

// loadImm emits "lis dst; .word v" — the idiom for materialising any
// compile-time constant into a register.
func (c *Compiler) loadImm(pos diag.Position, dst uint8, v int32) {
	c.cg.Lis(dst)
	c.cg.Word(v)
}

// loadAddr computes base+offset into dst via a lis/add pair through one
// scratch register (released again before returning),
// used for frame-relative addresses whose offset may exceed a 16-bit
// immediate (spec.md §4.9 allows arbitrarily large frames).
func (c *Compiler) loadAddr(pos diag.Position, dst, base uint8, offset int) error {
	tmp, err := c.allocReg()
	if err != nil {
		return err
	}
	c.loadImm(pos, tmp, int32(offset))
	c.cg.Add(dst, base, tmp)
	c.rewind(tmp)
	return nil
}

func (c *Compiler) rewind(to uint8) { c.curReg = to }

func sizeOf(v *Var) int { return v.Type.SizeInWords() * 4 }

// layoutFrames assigns every function's local and argument variables a
// byte offset relative to BASE, replicating
// original_source/compiler.cc's resolveSymbolLocations: locals are packed
// first (so the last-declared local sits closest to BASE), then args are
// packed immediately above them (closest to where the caller left SP
// before the callee's own frame was carved out).
func (c *Compiler) layoutFrames() {
	for _, f := range c.syms.Funcs {
		localsSize := 0
		for _, v := range f.Locals {
			localsSize += sizeOf(v)
		}
		cur := localsSize
		for _, v := range f.Locals {
			cur -= sizeOf(v)
			v.Loc = VarLoc{Assigned: true, Offset: cur}
		}

		spaceUsed := localsSize
		for _, v := range f.Args {
			spaceUsed += sizeOf(v)
		}
		cur = spaceUsed
		for _, v := range f.Args {
			cur -= sizeOf(v)
			v.Loc = VarLoc{Assigned: true, Offset: cur}
		}
	}
}

func localsSizeOf(f *Func) int {
	total := 0
	for _, v := range f.Locals {
		total += sizeOf(v)
	}
	return total
}

// Lower drives the whole codegen pass over a fully typed program and
// returns the finalized, patched instruction vector ready for the
// emulator.
func (c *Compiler) Lower(stmts []Stmt) ([]uint32, error) {
	if err := c.preLowerChecks(); err != nil {
		return nil, err
	}
	c.layoutFrames()

	if err := c.emitBootstrap(); err != nil {
		return nil, err
	}
	if err := c.emitDataSection(); err != nil {
		return nil, err
	}

	for _, s := range stmts {
		fd, ok := s.(*FuncDecl)
		if !ok {
			continue
		}
		if err := c.lowerFunc(fd); err != nil {
			return nil, err
		}
	}

	if err := c.cg.LabelHere(diag.Position{}, "memStart"); err != nil {
		return nil, err
	}
	if err := c.cg.Finalize(); err != nil {
		return nil, err
	}
	return c.cg.Encode(), nil
}

// preLowerChecks verifies main exists (with no parameters) and every
// declared struct has been defined (spec.md §4.8 "Pre-call checks").
func (c *Compiler) preLowerChecks() error {
	mainFunc, _, ok := c.syms.LookupFunc("main")
	if !ok {
		return newSymbolError(diag.Position{}, "program has no func main")
	}
	if len(mainFunc.Args) != 0 {
		return newSymbolError(mainFunc.Pos, "func main must take no arguments")
	}
	for _, s := range c.reg.Structs() {
		if len(s.Fields) == 0 {
			return newSymbolError(s.DeclAt, "struct %q is declared but never defined", s.Name)
		}
	}
	return nil
}

// emitBootstrap writes the program's entry sequence: persist the original
// exit sentinel, then jump to main; main's own epilogue returns to the
// sentinel, which terminates execution (spec.md §4.8 "Prologue").
func (c *Compiler) emitBootstrap() error {
	pos := diag.Position{}
	r1, err := c.allocReg()
	if err != nil {
		return err
	}
	c.cg.LisLabel(pos, r1, "exitAddrGlobal")
	c.cg.Sw(linkReg, 0, r1)
	c.rewind(firstScratchReg)

	// Jump straight to main with a bare jr, not a call: $31 already holds
	// the true exit sentinel (just persisted above), and a jr leaves it
	// untouched, so main's own epilogue "jr $31" lands on it directly. A
	// jalr here would clobber $31 with a return address that is never
	// consumed, needing an extra reload this way avoids.
	r2, err := c.allocReg()
	if err != nil {
		return err
	}
	c.cg.LisLabel(pos, r2, c.funcLabel(mustFuncIdx(c.syms, "main")))
	c.cg.Jr(r2)
	c.rewind(firstScratchReg)
	return nil
}

func mustFuncIdx(syms *SymbolTable, name string) int {
	_, idx, _ := syms.LookupFunc(name)
	return idx
}

// emitDataSection lays out globals and interned strings as one 32-bit word
// per element (see DESIGN.md for why this module treats char the same as
// int/pointer rather than packing four characters per word), followed by
// the exitAddrGlobal cell (spec.md §4.8).
func (c *Compiler) emitDataSection() error {
	for _, v := range c.syms.Globals {
		v.Loc = VarLoc{Assigned: true, Offset: c.cg.Here() * 4}
		if err := c.cg.LabelHere(v.Pos, c.globalLabel(v)); err != nil {
			return err
		}
		c.cg.Word(0)
	}

	for id, s := range c.syms.Strings {
		s.Loc = VarLoc{Assigned: true, Offset: c.cg.Here() * 4}
		if err := c.cg.LabelHere(diag.Position{}, c.stringLabel(id)); err != nil {
			return err
		}
		for _, r := range s.Bytes {
			c.cg.Word(int32(r))
		}
		c.cg.Word(0)
	}

	if err := c.cg.LabelHere(diag.Position{}, "exitAddrGlobal"); err != nil {
		return err
	}
	c.cg.Word(0)
	return nil
}

// lowerFunc lowers one function's body, following the prologue/epilogue
// sequence of original_source/compiler.cc exactly: reserve the locals
// frame, save LINK and the caller's BASE, establish the new BASE, then
// lower the body; the epilogue is re-emitted at every return site.
func (c *Compiler) lowerFunc(fd *FuncDecl) error {
	f, funcIdx, ok := c.syms.LookupFunc(fd.Name)
	if !ok {
		return newSymbolError(fd.Pos, "internal: function %q missing from symbol table", fd.Name)
	}
	c.curFuncIdx = funcIdx
	c.curReg = firstScratchReg

	if err := c.cg.LabelHere(fd.Pos, c.funcLabel(funcIdx)); err != nil {
		return err
	}

	localsSize := localsSizeOf(f)
	if localsSize > 0 {
		tmp, err := c.allocReg()
		if err != nil {
			return err
		}
		c.loadImm(fd.Pos, tmp, int32(localsSize))
		c.cg.Sub(stackReg, stackReg, tmp)
		c.rewind(firstScratchReg)
	}

	c.cg.Sw(linkReg, -4, stackReg)
	c.cg.Sw(baseReg, -8, stackReg)
	c.cg.Add(baseReg, stackReg, zeroReg)

	tmp, err := c.allocReg()
	if err != nil {
		return err
	}
	c.loadImm(fd.Pos, tmp, 8)
	c.cg.Sub(stackReg, stackReg, tmp)
	c.rewind(firstScratchReg)

	if err := c.lowerStmt(fd.Body); err != nil {
		return err
	}

	c.emitEpilogue()
	c.curFuncIdx = -1
	return nil
}

// emitEpilogue restores SP/LINK/BASE and returns to the caller. Used both
// for an explicit "return" and as the fallthrough at the end of a void
// function's body.
func (c *Compiler) emitEpilogue() {
	c.cg.Add(stackReg, baseReg, zeroReg)
	c.cg.Lw(linkReg, -4, stackReg)
	c.cg.Lw(baseReg, -8, stackReg)
	c.cg.Jr(linkReg)
}

func (c *Compiler) lowerStmt(s Stmt) error {
	switch n := s.(type) {
	case *BlockStmt:
		for _, inner := range n.Stmts {
			if err := c.lowerStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *VarDeclStmt:
		return c.lowerVarDecl(n)
	case *IfStmt:
		return c.lowerIf(n)
	case *WhileStmt:
		return c.lowerWhile(n)
	case *ReturnStmt:
		return c.lowerReturn(n)
	case *AsmStmt:
		return asm.Parse(c.cg, n.Pos, n.Text)
	case *AssignStmt:
		return c.lowerAssign(n)
	case *ExprStmt:
		prev := c.curReg
		if _, err := c.lowerExpr(n.Expr); err != nil {
			return err
		}
		c.rewind(prev)
		return nil
	default:
		return newSymbolError(s.Position(), "internal: cannot lower statement %T", s)
	}
}

func (c *Compiler) lowerVarDecl(d *VarDeclStmt) error {
	if d.Init == nil {
		return nil
	}
	prev := c.curReg
	val, err := c.lowerExpr(d.Init)
	if err != nil {
		return err
	}
	if err := c.storeInto(d.Pos, d.Var, val); err != nil {
		return err
	}
	c.rewind(prev)
	return nil
}

func (c *Compiler) lowerAssign(a *AssignStmt) error {
	prev := c.curReg
	val, err := c.lowerExpr(a.Value)
	if err != nil {
		return err
	}
	switch lhs := a.Left.(type) {
	case *Ident:
		if err := c.storeInto(a.Pos, lhs.Var, val); err != nil {
			return err
		}
	case *UnaryExpr: // Op == STAR, enforced by the Typer
		ptrVal, err := c.lowerExpr(lhs.Operand)
		if err != nil {
			return err
		}
		if val.isPtr {
			if err := c.memcpyWords(a.Pos, ptrVal.reg, 0, val.ptr, 0, val.size); err != nil {
				return err
			}
		} else {
			c.cg.Sw(val.reg, 0, ptrVal.reg)
		}
	default:
		return newSymbolError(a.Pos, "internal: unsupported assignment target %T", a.Left)
	}
	c.rewind(prev)
	return nil
}

// storeInto writes val into v's storage: global (label-addressed) or
// frame-relative local/arg (BASE-relative).
func (c *Compiler) storeInto(pos diag.Position, v *Var, val tempStorage) error {
	if v.IsGlobal() {
		addr, err := c.allocReg()
		if err != nil {
			return err
		}
		c.cg.LisLabel(pos, addr, c.globalLabel(v))
		if val.isPtr {
			if err := c.memcpyWords(pos, addr, 0, val.ptr, 0, val.size); err != nil {
				return err
			}
		} else {
			c.cg.Sw(val.reg, 0, addr)
		}
		c.rewind(addr)
		return nil
	}

	if val.isPtr {
		addr, err := c.allocReg()
		if err != nil {
			return err
		}
		if err := c.loadAddr(pos, addr, baseReg, v.Loc.Offset); err != nil {
			return err
		}
		if err := c.memcpyWords(pos, addr, 0, val.ptr, 0, val.size); err != nil {
			return err
		}
		c.rewind(addr)
		return nil
	}
	c.cg.Sw(val.reg, int16(v.Loc.Offset), baseReg)
	return nil
}

// memcpyWords copies n bytes (n a multiple of 4) word-by-word from
// srcOff(srcBase) to dstOff(dstBase).
func (c *Compiler) memcpyWords(pos diag.Position, dstBase uint8, dstOff int, srcBase uint8, srcOff int, n int) error {
	tmp, err := c.allocReg()
	if err != nil {
		return err
	}
	for i := 0; i < n; i += 4 {
		c.cg.Lw(tmp, int16(srcOff+i), srcBase)
		c.cg.Sw(tmp, int16(dstOff+i), dstBase)
	}
	c.rewind(tmp)
	return nil
}

func (c *Compiler) lowerIf(n *IfStmt) error {
	prev := c.curReg
	cond, err := c.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	altLabel := c.uniqueLabel()
	endLabel := c.uniqueLabel()

	c.cg.BeqLabel(n.Pos, cond.reg, zeroReg, altLabel)

	if err := c.lowerStmt(n.Then); err != nil {
		return err
	}

	tmp, err := c.allocReg()
	if err != nil {
		return err
	}
	c.cg.LisLabel(n.Pos, tmp, endLabel)
	c.cg.Jr(tmp)

	c.rewind(prev)
	if err := c.cg.LabelHere(n.Pos, altLabel); err != nil {
		return err
	}
	if n.Else != nil {
		if err := c.lowerStmt(n.Else); err != nil {
			return err
		}
	}
	return c.cg.LabelHere(n.Pos, endLabel)
}

func (c *Compiler) lowerWhile(n *WhileStmt) error {
	prev := c.curReg
	condLabel := c.uniqueLabel()
	if err := c.cg.LabelHere(n.Pos, condLabel); err != nil {
		return err
	}

	cond, err := c.lowerExpr(n.Cond)
	if err != nil {
		return err
	}
	endLabel := c.uniqueLabel()
	c.cg.BeqLabel(n.Pos, cond.reg, zeroReg, endLabel)

	if err := c.lowerStmt(n.Body); err != nil {
		return err
	}

	tmp, err := c.allocReg()
	if err != nil {
		return err
	}
	c.cg.LisLabel(n.Pos, tmp, condLabel)
	c.cg.Jr(tmp)

	c.rewind(prev)
	return c.cg.LabelHere(n.Pos, endLabel)
}

func (c *Compiler) lowerReturn(n *ReturnStmt) error {
	if n.Value != nil {
		prev := c.curReg
		val, err := c.lowerExpr(n.Value)
		if err != nil {
			return err
		}
		// main has no caller to hand it a return-slot address in
		// retvalReg — it is entered from the bootstrap with a bare jr, not
		// a call, so nothing ever points retvalReg anywhere. main's own
		// scalar return value is therefore left directly in retvalReg
		// instead of written through it (spec.md §4.8 "Returning a
		// value"); main returning a struct has no observer and is
		// unsupported.
		if n.FuncIdx == mustFuncIdx(c.syms, "main") {
			if val.isPtr {
				return newSymbolError(n.Pos, "main cannot return a struct value")
			}
			c.cg.Add(retvalReg, val.reg, zeroReg)
		} else if val.isPtr {
			if err := c.memcpyWords(n.Pos, retvalReg, 0, val.ptr, 0, val.size); err != nil {
				return err
			}
		} else {
			c.cg.Sw(val.reg, 0, retvalReg)
		}
		c.rewind(prev)
	}
	c.emitEpilogue()
	return nil
}

// lowerExpr lowers e into a tempStorage, following
// original_source/compiler.cc's compileTerm precisely: composite nodes
// reserve their destination register *before* lowering their children, so
// that rewinding to dest+1 afterwards frees every register the children
// used.
func (c *Compiler) lowerExpr(e Expr) (tempStorage, error) {
	switch n := e.(type) {
	case *IntLiteral:
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		c.loadImm(n.Pos, dst, int32(n.Value))
		return tempStorage{reg: dst, size: 4}, nil

	case *StringLit:
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		c.cg.LisLabel(n.Pos, dst, c.stringLabel(n.ID))
		return tempStorage{reg: dst, size: 4}, nil

	case *Ident:
		return c.lowerIdentRead(n.Pos, n.Var)

	case *Paren:
		return c.lowerExpr(n.Inner)

	case *UnaryExpr:
		return c.lowerUnary(n)

	case *BinaryExpr:
		return c.lowerBinary(n)

	case *CastExpr:
		return c.lowerExpr(n.Inner)

	case *ArrayLit:
		return c.lowerArrayLit(n)

	case *CallExpr:
		return c.emitCall(n.Pos, n.Func, n.Args)

	default:
		return tempStorage{}, newSymbolError(e.Position(), "internal: cannot lower expression %T", e)
	}
}

func (c *Compiler) lowerIdentRead(pos diag.Position, v *Var) (tempStorage, error) {
	size := sizeOf(v)
	baseR := baseReg
	if v.IsGlobal() {
		baseR = zeroReg
	}

	if size == 4 {
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		if v.IsGlobal() {
			c.cg.LisLabel(pos, dst, c.globalLabel(v))
			c.cg.Lw(dst, 0, dst)
		} else {
			c.cg.Lw(dst, int16(v.Loc.Offset), baseR)
		}
		return tempStorage{reg: dst, size: 4}, nil
	}

	// Struct-sized value: copy it onto the stack and return a pointer.
	dstPtr, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	srcAddr, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	if v.IsGlobal() {
		c.cg.LisLabel(pos, srcAddr, c.globalLabel(v))
	} else {
		if err := c.loadAddr(pos, srcAddr, baseR, v.Loc.Offset); err != nil {
			return tempStorage{}, err
		}
	}

	tmp, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	sizeReg, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	c.loadImm(pos, sizeReg, int32(size))
	c.cg.Sub(stackReg, stackReg, sizeReg)
	c.cg.Add(dstPtr, stackReg, zeroReg)
	for i := 0; i < size; i += 4 {
		c.cg.Lw(tmp, int16(i), srcAddr)
		c.cg.Sw(tmp, int16(i), dstPtr)
	}
	c.rewind(dstPtr + 1)
	return tempStorage{isPtr: true, ptr: dstPtr, size: size}, nil
}

func (c *Compiler) lowerUnary(n *UnaryExpr) (tempStorage, error) {
	switch n.Op {
	case MINUS:
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		val, err := c.lowerExpr(n.Operand)
		if err != nil {
			return tempStorage{}, err
		}
		c.cg.Sub(dst, zeroReg, val.reg)
		c.rewind(dst + 1)
		return tempStorage{reg: dst, size: 4}, nil
	case NOT:
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		val, err := c.lowerExpr(n.Operand)
		if err != nil {
			return tempStorage{}, err
		}
		// boolean is 0/1: NOT is 1 - val
		one, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		c.loadImm(n.Pos, one, 1)
		c.cg.Sub(dst, one, val.reg)
		c.rewind(dst + 1)
		return tempStorage{reg: dst, size: 4}, nil
	case STAR:
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		val, err := c.lowerExpr(n.Operand)
		if err != nil {
			return tempStorage{}, err
		}
		c.cg.Lw(dst, 0, val.reg)
		c.rewind(dst + 1)
		return tempStorage{reg: dst, size: 4}, nil
	default:
		return tempStorage{}, newSymbolError(n.Pos, "internal: unsupported unary operator")
	}
}

func (c *Compiler) lowerBinary(n *BinaryExpr) (tempStorage, error) {
	dest, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}

	ltype := n.Left.TypeOf()
	scale := 1
	if ltype != nil && ltype.Kind == TPtr {
		scale = ltype.Inner.SizeInWords() * 4
		if scale == 0 {
			scale = 4
		}
	}

	a, err := c.lowerExpr(n.Left)
	if err != nil {
		return tempStorage{}, err
	}
	b, err := c.lowerExpr(n.Right)
	if err != nil {
		return tempStorage{}, err
	}

	switch n.Op {
	case PLUS, MINUS:
		rhs := b.reg
		if ltype != nil && ltype.Kind == TPtr && scale != 1 {
			scaled, err := c.allocReg()
			if err != nil {
				return tempStorage{}, err
			}
			factor, err := c.allocReg()
			if err != nil {
				return tempStorage{}, err
			}
			c.loadImm(n.Pos, factor, int32(scale))
			c.cg.Mult(b.reg, factor)
			c.cg.Mflo(scaled)
			rhs = scaled
		}
		if n.Op == PLUS {
			c.cg.Add(dest, a.reg, rhs)
		} else {
			c.cg.Sub(dest, a.reg, rhs)
		}
	case STAR:
		c.cg.Mult(a.reg, b.reg)
		c.cg.Mflo(dest)
	case SLASH:
		c.cg.Div(a.reg, b.reg)
		c.cg.Mflo(dest)
	case PERCENT:
		c.cg.Div(a.reg, b.reg)
		c.cg.Mfhi(dest)
	case EQUALS:
		c.loadImm(n.Pos, dest, 1)
		c.cg.Beq(a.reg, b.reg, 1)
		c.cg.Add(dest, zeroReg, zeroReg)
	case NOT_EQ:
		c.loadImm(n.Pos, dest, 1)
		c.cg.Bne(a.reg, b.reg, 1)
		c.cg.Add(dest, zeroReg, zeroReg)
	case LESS:
		c.cg.Slt(dest, a.reg, b.reg)
	case GREATER:
		c.cg.Slt(dest, a.reg, b.reg)
		one, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		c.loadImm(n.Pos, one, 1)
		c.cg.Sub(dest, one, dest)
		c.cg.Bne(a.reg, b.reg, 1)
		c.cg.Add(dest, zeroReg, zeroReg)
	case LESS_EQ:
		c.cg.Slt(dest, a.reg, b.reg)
		c.cg.Bne(a.reg, b.reg, 2)
		c.loadImm(n.Pos, dest, 1)
	case GREATER_EQ:
		c.cg.Slt(dest, a.reg, b.reg)
		one, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		c.loadImm(n.Pos, one, 1)
		c.cg.Sub(dest, one, dest)
	case AND_LOGICAL:
		c.loadImm(n.Pos, dest, 0)
		c.cg.Beq(a.reg, zeroReg, 3)
		c.cg.Beq(b.reg, zeroReg, 2)
		c.loadImm(n.Pos, dest, 1)
	case OR_LOGICAL:
		c.loadImm(n.Pos, dest, 1)
		c.cg.Bne(a.reg, zeroReg, 3)
		c.cg.Bne(b.reg, zeroReg, 2)
		c.loadImm(n.Pos, dest, 0)
	default:
		return tempStorage{}, newSymbolError(n.Pos, "internal: unsupported binary operator %s", opSymbol(n.Op))
	}

	c.rewind(dest + 1)
	return tempStorage{reg: dest, size: 4}, nil
}

// lowerArrayLit emits a forward jump over an inline data block holding the
// literal's words, then loads the block's start address (spec.md §4.8).
func (c *Compiler) lowerArrayLit(n *ArrayLit) (tempStorage, error) {
	dst, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	startLabel := c.uniqueLabel()
	endLabel := c.uniqueLabel()

	c.cg.LisLabel(n.Pos, dst, endLabel)
	c.cg.Jr(dst)

	if err := c.cg.LabelHere(n.Pos, startLabel); err != nil {
		return tempStorage{}, err
	}

	length := n.DeclaredLen
	if length < 0 {
		length = len(n.Values)
	}
	for i := 0; i < length; i++ {
		var v int64
		if i < len(n.Values) {
			v = n.Values[i]
		}
		c.cg.Word(int32(v))
	}

	if err := c.cg.LabelHere(n.Pos, endLabel); err != nil {
		return tempStorage{}, err
	}
	c.cg.LisLabel(n.Pos, dst, startLabel)
	return tempStorage{reg: dst, size: 4}, nil
}

// emitCall lowers a function call following original_source/compiler.cc's
// compileCall: reserve a return slot if needed, save every scratch
// register currently in use, push arguments, jalr, then unwind.
func (c *Compiler) emitCall(pos diag.Position, f *Func, argExprs []Expr) (tempStorage, error) {
	returnSize := f.ReturnType.SizeInWords() * 4
	hasReturn := f.ReturnType.Kind != TVoid

	temp, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}

	// retvalReg may already hold the address our own enclosing function is
	// waiting to write its return value through; a nested call reuses
	// retvalReg for its own return slot, so that address must be saved and
	// restored around the call exactly like a live scratch register.
	c.cg.Sw(retvalReg, -4, stackReg)
	c.loadImm(pos, temp, 4)
	c.cg.Sub(stackReg, stackReg, temp)

	if hasReturn {
		c.loadImm(pos, temp, int32(returnSize))
		c.cg.Sub(stackReg, stackReg, temp)
		c.cg.Add(retvalReg, stackReg, zeroReg)
	}
	c.rewind(temp)

	numRegsStored := c.curReg
	for i := firstScratchReg; i < numRegsStored; i++ {
		c.cg.Sw(i, -int16(i)*4, stackReg)
	}
	c.rewind(temp + 1)

	c.loadImm(pos, temp, int32(numRegsStored)*4)
	c.cg.Sub(stackReg, stackReg, temp)

	sizeSoFar := 0
	for i, argExpr := range argExprs {
		val, err := c.lowerExpr(argExpr)
		if err != nil {
			return tempStorage{}, err
		}
		argSize := f.Args[i].Type.SizeInWords() * 4
		sizeSoFar += argSize
		if val.isPtr {
			if err := c.memcpyWords(pos, stackReg, -sizeSoFar, val.ptr, 0, argSize); err != nil {
				return tempStorage{}, err
			}
			c.rewind(val.ptr)
		} else {
			c.cg.Sw(val.reg, -int16(sizeSoFar), stackReg)
			c.rewind(val.reg)
		}
	}

	c.loadImm(pos, temp, int32(sizeSoFar))
	c.cg.Sub(stackReg, stackReg, temp)

	c.cg.LisLabel(pos, temp, c.funcLabel(mustFuncIdx(c.syms, f.Name)))
	c.cg.Jalr(temp)

	// Pop args and the callee's locals frame (its epilogue leaves SP at its
	// BASE, below the locals), then restore saved registers.
	c.loadImm(pos, temp, int32(sizeSoFar+localsSizeOf(f)))
	c.cg.Add(stackReg, stackReg, temp)

	c.loadImm(pos, temp, int32(numRegsStored)*4)
	c.cg.Add(stackReg, stackReg, temp)

	for i := firstScratchReg; i < numRegsStored; i++ {
		c.cg.Lw(i, -int16(i)*4, stackReg)
	}
	c.rewind(temp)

	// retvalReg currently holds this call's own return-slot address, not
	// the value itself: the callee only ever stored through it (lowerReturn
	// moves the value into retvalReg itself only when returning from main).
	// Materialise the result into
	// a fresh register — a load for a scalar, an address copy for a
	// struct — before retvalReg is restored to the enclosing call's value
	// below.
	var result tempStorage
	if hasReturn {
		dst, err := c.allocReg()
		if err != nil {
			return tempStorage{}, err
		}
		if returnSize == 4 {
			c.cg.Lw(dst, 0, retvalReg)
			result = tempStorage{reg: dst, size: 4}
		} else {
			c.cg.Add(dst, retvalReg, zeroReg)
			result = tempStorage{isPtr: true, ptr: dst, size: returnSize}
		}
	}

	// Pop the return slot (if any) and restore retvalReg to the address
	// saved just below it at call setup.
	popTemp, err := c.allocReg()
	if err != nil {
		return tempStorage{}, err
	}
	c.loadImm(pos, popTemp, int32(returnSize)+4)
	c.cg.Add(stackReg, stackReg, popTemp)
	c.cg.Lw(retvalReg, -4, stackReg)
	c.rewind(popTemp)

	if !hasReturn {
		return tempStorage{}, nil
	}
	return result, nil
}
