package asm

import "fmt"

// Disassemble renders an encoded program back into one mnemonic line per
// word, for the CLI driver's "-dump-asm" inspection flag (SPEC_FULL.md
// §6). It is a best-effort decode with no label recovery. A word carries
// no marker of whether it is code or data, so every word is decoded by its
// top 4 bits: a data word (including a patched address) prints as whatever
// instruction those bits name, and only a word whose top 4 bits are WORD's
// ordinal or an unused ordinal prints as a ".word" literal.
func Disassemble(words []uint32) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = fmt.Sprintf("%04d: %s", i, disassembleOne(w))
	}
	return out
}

func disassembleOne(w uint32) string {
	op := Op((w >> 28) & 0xf)
	s := uint8((w >> 23) & 0x1f)
	t := uint8((w >> 18) & 0x1f)
	d := uint8((w >> 13) & 0x1f)
	imm := int16(w & 0xffff)

	switch op {
	case LIS, MFHI, MFLO:
		return fmt.Sprintf("%s $%d", op, d)
	case ADD, SUB, SLT:
		return fmt.Sprintf("%s $%d, $%d, $%d", op, d, s, t)
	case MULT, DIV:
		return fmt.Sprintf("%s $%d, $%d", op, s, t)
	case LW, SW:
		return fmt.Sprintf("%s $%d, %d($%d)", op, t, imm, s)
	case BEQ, BNE:
		return fmt.Sprintf("%s $%d, $%d, %d", op, s, t, imm)
	case JR, JALR:
		return fmt.Sprintf("%s $%d", op, s)
	default:
		return fmt.Sprintf(".word %#08x", w)
	}
}
