package asm

import (
	"strconv"
	"strings"

	"gocpu/internal/diag"
)

// PatchKind discriminates what a Patch overwrites once its label resolves.
type PatchKind int

const (
	WordPatch   PatchKind = iota // replace instr.Raw with labelIndex*4
	BranchPatch                  // replace instr.Imm with the relative branch offset
)

// Patch is a deferred substitution recorded at emit time and resolved by
// Finalize once every label in the program has been bound (spec.md §3,
// §4.7).
type Patch struct {
	Kind       PatchKind
	InstrIndex int
	Label      string
	Pos        diag.Position
}

// Codegen accumulates a program's instruction vector and its outstanding
// patches. It has no notion of registers or statements — that is the
// Compiler's job (internal/compiler/lower.go); Codegen only ever knows how
// to emit and patch instruction words (spec.md §4.7: "Codegen (Assembler-
// as-library)").
type Codegen struct {
	Instrs []Instruction
	labels map[string]int
	Patches []Patch
}

func NewCodegen() *Codegen {
	return &Codegen{labels: make(map[string]int)}
}

func (g *Codegen) emit(in Instruction) int {
	idx := len(g.Instrs)
	g.Instrs = append(g.Instrs, in)
	return idx
}

// LabelHere binds name to the next instruction index. A label may be
// defined at most once (spec.md §3 invariant).
func (g *Codegen) LabelHere(pos diag.Position, name string) error {
	if _, ok := g.labels[name]; ok {
		return newAssemblyError(pos, "duplicate label %q", name)
	}
	g.labels[name] = len(g.Instrs)
	return nil
}

// Here returns the index the next emitted instruction will occupy.
func (g *Codegen) Here() int { return len(g.Instrs) }

func (g *Codegen) Lis(d uint8) int  { return g.emit(Instruction{Op: LIS, D: d}) }
func (g *Codegen) Mfhi(d uint8) int { return g.emit(Instruction{Op: MFHI, D: d}) }
func (g *Codegen) Mflo(d uint8) int { return g.emit(Instruction{Op: MFLO, D: d}) }

func (g *Codegen) Add(d, s, t uint8) int { return g.emit(Instruction{Op: ADD, S: s, T: t, D: d}) }
func (g *Codegen) Sub(d, s, t uint8) int { return g.emit(Instruction{Op: SUB, S: s, T: t, D: d}) }
func (g *Codegen) Slt(d, s, t uint8) int { return g.emit(Instruction{Op: SLT, S: s, T: t, D: d}) }

func (g *Codegen) Mult(s, t uint8) int { return g.emit(Instruction{Op: MULT, S: s, T: t}) }
func (g *Codegen) Div(s, t uint8) int  { return g.emit(Instruction{Op: DIV, S: s, T: t}) }

func (g *Codegen) Jr(s uint8) int   { return g.emit(Instruction{Op: JR, S: s}) }
func (g *Codegen) Jalr(s uint8) int { return g.emit(Instruction{Op: JALR, S: s}) }

// Lw/Sw: memory operand imm($s), value register t.
func (g *Codegen) Lw(t uint8, imm int16, s uint8) int {
	return g.emit(Instruction{Op: LW, S: s, T: t, Imm: imm})
}
func (g *Codegen) Sw(t uint8, imm int16, s uint8) int {
	return g.emit(Instruction{Op: SW, S: s, T: t, Imm: imm})
}

// Beq/Bne take a literal, already-relative instruction-count offset. Most
// callers want the label-taking overloads below instead.
func (g *Codegen) Beq(s, t uint8, imm int16) int { return g.emit(Instruction{Op: BEQ, S: s, T: t, Imm: imm}) }
func (g *Codegen) Bne(s, t uint8, imm int16) int { return g.emit(Instruction{Op: BNE, S: s, T: t, Imm: imm}) }

// Word emits a raw literal data word.
func (g *Codegen) Word(v int32) int { return g.emit(Instruction{Op: WORD, Raw: uint32(v)}) }

// WordLabel emits a placeholder data word and records a patch resolving it
// to label's byte address (labelIndex*4) once Finalize runs.
func (g *Codegen) WordLabel(pos diag.Position, label string) int {
	idx := g.emit(Instruction{Op: WORD})
	g.Patches = append(g.Patches, Patch{Kind: WordPatch, InstrIndex: idx, Label: label, Pos: pos})
	return idx
}

// LisLabel emits "lis d" followed by a patched data word, the idiom used
// throughout lowering to load a label's address into a register.
func (g *Codegen) LisLabel(pos diag.Position, d uint8, label string) int {
	instrIdx := g.Lis(d)
	g.WordLabel(pos, label)
	return instrIdx
}

// BeqLabel/BneLabel emit a branch with a placeholder immediate and record a
// patch resolving it to the relative offset of label (spec.md §4.7).
func (g *Codegen) BeqLabel(pos diag.Position, s, t uint8, label string) int {
	idx := g.emit(Instruction{Op: BEQ, S: s, T: t})
	g.Patches = append(g.Patches, Patch{Kind: BranchPatch, InstrIndex: idx, Label: label, Pos: pos})
	return idx
}

func (g *Codegen) BneLabel(pos diag.Position, s, t uint8, label string) int {
	idx := g.emit(Instruction{Op: BNE, S: s, T: t})
	g.Patches = append(g.Patches, Patch{Kind: BranchPatch, InstrIndex: idx, Label: label, Pos: pos})
	return idx
}

// Finalize resolves every outstanding patch against the bound labels,
// mutating the affected instructions in place (spec.md §4.7 "Patch
// resolution"). It fails on any patch naming a label that was never bound,
// or on a branch offset outside the signed 16-bit range.
func (g *Codegen) Finalize() error {
	for _, p := range g.Patches {
		labelIdx, ok := g.labels[p.Label]
		if !ok {
			return newAssemblyError(p.Pos, "undefined label %q", p.Label)
		}
		switch p.Kind {
		case WordPatch:
			g.Instrs[p.InstrIndex].Raw = uint32(labelIdx * 4)
		case BranchPatch:
			off := labelIdx - p.InstrIndex - 1
			if off < -32768 || off > 32767 {
				return newAssemblyError(p.Pos, "branch to %q is out of 16-bit range (%d)", p.Label, off)
			}
			g.Instrs[p.InstrIndex].Imm = int16(off)
		}
	}
	return nil
}

// Encode returns the fully patched instruction vector as big-endian 32-bit
// words. Call only after Finalize succeeds.
func (g *Codegen) Encode() []uint32 {
	out := make([]uint32, len(g.Instrs))
	for i, in := range g.Instrs {
		out[i] = in.Encode()
	}
	return out
}

// ---- inline assembly ----

// regNames maps each register operand spelling "$0".."$31" to its register
// number; any other spelling is rejected by parseRegToken.
var regNames = func() map[string]uint8 {
	m := make(map[string]uint8, 32)
	for i := 0; i < 32; i++ {
		m["$"+strconv.Itoa(i)] = uint8(i)
	}
	return m
}()

// Parse assembles the inline-assembly text of one "asm" statement, which
// may hold several physical lines (labels, .word data, and mnemonics from
// the fixed instruction set), in the classic one-line-per-instruction
// syntax spec.md §4.7 describes. Each line is parsed and emitted against g
// in order, so labels defined on one line are visible to branches on later
// lines within the same block.
func Parse(g *Codegen, basePos diag.Position, text string) error {
	for i, raw := range strings.Split(text, "\n") {
		pos := diag.Position{Line: basePos.Line + i, Filename: basePos.Filename}
		if err := parseLine(g, pos, raw); err != nil {
			return err
		}
	}
	return nil
}

func parseLine(g *Codegen, pos diag.Position, raw string) error {
	line := raw
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if idx := strings.Index(line, ":"); idx >= 0 && !strings.HasPrefix(line, ".") {
		label := strings.TrimSpace(line[:idx])
		if label != "" && !strings.ContainsAny(label, " \t$(),") {
			if err := g.LabelHere(pos, label); err != nil {
				return err
			}
			line = strings.TrimSpace(line[idx+1:])
			if line == "" {
				return nil
			}
		}
	}

	fields := tokenizeAsmLine(line)
	if len(fields) == 0 {
		return nil
	}
	mnemonic := strings.ToLower(fields[0])
	ops := fields[1:]

	switch mnemonic {
	case ".word":
		if len(ops) != 1 {
			return newAssemblyError(pos, ".word expects exactly one operand")
		}
		return parseWordOperand(g, pos, ops[0])
	case "lis":
		d, err := parseReg(pos, ops, 1)
		if err != nil {
			return err
		}
		g.Lis(d[0])
		return nil
	case "mfhi":
		d, err := parseReg(pos, ops, 1)
		if err != nil {
			return err
		}
		g.Mfhi(d[0])
		return nil
	case "mflo":
		d, err := parseReg(pos, ops, 1)
		if err != nil {
			return err
		}
		g.Mflo(d[0])
		return nil
	case "add", "sub", "slt":
		r, err := parseReg(pos, ops, 3)
		if err != nil {
			return err
		}
		switch mnemonic {
		case "add":
			g.Add(r[0], r[1], r[2])
		case "sub":
			g.Sub(r[0], r[1], r[2])
		case "slt":
			g.Slt(r[0], r[1], r[2])
		}
		return nil
	case "mult", "div":
		r, err := parseReg(pos, ops, 2)
		if err != nil {
			return err
		}
		if mnemonic == "mult" {
			g.Mult(r[0], r[1])
		} else {
			g.Div(r[0], r[1])
		}
		return nil
	case "jr", "jalr":
		r, err := parseReg(pos, ops, 1)
		if err != nil {
			return err
		}
		if mnemonic == "jr" {
			g.Jr(r[0])
		} else {
			g.Jalr(r[0])
		}
		return nil
	case "lw", "sw":
		if len(ops) != 2 {
			return newAssemblyError(pos, "%s expects a register and a memory operand", mnemonic)
		}
		t, err := parseRegToken(pos, ops[0])
		if err != nil {
			return err
		}
		imm, s, err := parseMemOperand(pos, ops[1])
		if err != nil {
			return err
		}
		if mnemonic == "lw" {
			g.Lw(t, imm, s)
		} else {
			g.Sw(t, imm, s)
		}
		return nil
	case "beq", "bne":
		if len(ops) != 3 {
			return newAssemblyError(pos, "%s expects two registers and an offset or label", mnemonic)
		}
		s, err := parseRegToken(pos, ops[0])
		if err != nil {
			return err
		}
		t, err := parseRegToken(pos, ops[1])
		if err != nil {
			return err
		}
		if imm, ok := parseImm16(ops[2]); ok {
			if mnemonic == "beq" {
				g.Beq(s, t, imm)
			} else {
				g.Bne(s, t, imm)
			}
			return nil
		}
		if mnemonic == "beq" {
			g.BeqLabel(pos, s, t, ops[2])
		} else {
			g.BneLabel(pos, s, t, ops[2])
		}
		return nil
	default:
		return newAssemblyError(pos, "unknown mnemonic %q", mnemonic)
	}
}

func tokenizeAsmLine(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	return strings.Fields(line)
}

func parseRegToken(pos diag.Position, tok string) (uint8, error) {
	r, ok := regNames[tok]
	if !ok {
		return 0, newAssemblyError(pos, "invalid register operand %q", tok)
	}
	return r, nil
}

func parseReg(pos diag.Position, ops []string, n int) ([]uint8, error) {
	if len(ops) != n {
		return nil, newAssemblyError(pos, "expected %d register operand(s), got %d", n, len(ops))
	}
	out := make([]uint8, n)
	for i, tok := range ops {
		r, err := parseRegToken(pos, tok)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// parseMemOperand parses "imm($reg)".
func parseMemOperand(pos diag.Position, tok string) (int16, uint8, error) {
	open := strings.Index(tok, "(")
	shut := strings.LastIndex(tok, ")")
	if open < 0 || shut < open {
		return 0, 0, newAssemblyError(pos, "malformed memory operand %q", tok)
	}
	immStr := tok[:open]
	regStr := tok[open+1 : shut]
	imm, ok := parseImm16(immStr)
	if !ok {
		return 0, 0, newAssemblyError(pos, "immediate %q out of 16-bit range", immStr)
	}
	reg, err := parseRegToken(pos, regStr)
	if err != nil {
		return 0, 0, err
	}
	return imm, reg, nil
}

func parseImm16(tok string) (int16, bool) {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, false
	}
	if v < -32768 || v > 65535 {
		return 0, false
	}
	return int16(uint16(v)), true
}

func parseWordOperand(g *Codegen, pos diag.Position, tok string) error {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		g.WordLabel(pos, tok)
		return nil
	}
	if v < -(1<<31) || v > (1<<32-1) {
		return newAssemblyError(pos, "word literal %q out of 32-bit range", tok)
	}
	g.Word(int32(v))
	return nil
}
