// Package asm is the library used by the Compiler's code generator and by
// inline "asm" statements: it assembles the fixed MIPS-like instruction set
// of spec.md §4.7/§6 into 32-bit big-endian words, and resolves deferred
// label patches once every address is known. Grounded in shape on
// gocpu/pkg/asm/asm.go (a mnemonic-table, two-pass assembler) but adapted to
// a single-pass, patch-list design because our caller (the Compiler) emits
// instructions interleaved with lowering rather than from whole-program
// source text.
package asm

import "fmt"

// Op tags each instruction. Its ordinal is the opcode that occupies the top
// 4 bits of an encoded R-form or I-form word (spec.md §4.7/§6). WORD is the
// one exception: see Instruction.Encode.
type Op int

const (
	LIS Op = iota
	WORD
	ADD
	SUB
	MULT
	DIV
	SLT
	MFHI
	MFLO
	LW
	SW
	BEQ
	BNE
	JR
	JALR
)

var opNames = [...]string{
	LIS: "lis", WORD: ".word", ADD: "add", SUB: "sub", MULT: "mult",
	DIV: "div", SLT: "slt", MFHI: "mfhi", MFLO: "mflo", LW: "lw", SW: "sw",
	BEQ: "beq", BNE: "bne", JR: "jr", JALR: "jalr",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// form classifies how an instruction's operand bits are packed.
type form int

const (
	formR      form = iota // s, t, d
	formI                  // s, t, imm
	formS                  // s only (jr, jalr)
	formD                  // d only (lis, mfhi, mflo)
	formST                 // s, t only (mult, div)
	formRaw                // .word: no packing at all
)

func (o Op) form() form {
	switch o {
	case LIS, MFHI, MFLO:
		return formD
	case ADD, SUB, SLT:
		return formR
	case MULT, DIV:
		return formST
	case LW, SW, BEQ, BNE:
		return formI
	case JR, JALR:
		return formS
	case WORD:
		return formRaw
	default:
		return formRaw
	}
}

// Instruction is one slot in a program's instruction vector: either a
// decoded R-form/I-form instruction, or (when Op == WORD) a raw 32-bit data
// payload. Kept as a struct, not a pre-encoded uint32, so that Finalize can
// rewrite a branch's Imm or a word's payload in place before the final
// Encode pass (spec.md §4.7 "Patch resolution").
type Instruction struct {
	Op      Op
	S, T, D uint8
	Imm     int16
	Raw     uint32 // payload when Op == WORD
}

// Encode packs the instruction into its final 32-bit big-endian word.
// WORD instructions are the one case exempted from the opcode-in-top-nibble
// scheme: a .word slot must be able to hold any 32-bit value (a literal
// constant, or a patched label address) without losing 4 bits to a type
// tag the emulator never decodes — LIS always skips over its trailing word
// rather than executing it, and data-section words are never fetched as
// code at all.
func (in Instruction) Encode() uint32 {
	if in.Op == WORD {
		return in.Raw
	}
	top := uint32(in.Op) << 28
	switch in.Op.form() {
	case formD:
		return top | uint32(in.D&0x1f)<<13
	case formR:
		return top | uint32(in.S&0x1f)<<23 | uint32(in.T&0x1f)<<18 | uint32(in.D&0x1f)<<13
	case formST:
		return top | uint32(in.S&0x1f)<<23 | uint32(in.T&0x1f)<<18
	case formI:
		return top | uint32(in.S&0x1f)<<23 | uint32(in.T&0x1f)<<18 | uint32(uint16(in.Imm))
	case formS:
		return top | uint32(in.S&0x1f)<<23
	default:
		return in.Raw
	}
}
