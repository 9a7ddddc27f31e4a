package asm

import (
	"testing"

	"gocpu/internal/diag"
)

func TestEncodeRFormPacksFields(t *testing.T) {
	g := NewCodegen()
	g.Add(3, 1, 2)
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	want := uint32(ADD)<<28 | uint32(1)<<23 | uint32(2)<<18 | uint32(3)<<13
	if words[0] != want {
		t.Fatalf("got %#08x, want %#08x", words[0], want)
	}
}

func TestEncodeIFormPacksImmediate(t *testing.T) {
	g := NewCodegen()
	g.Lw(5, -4, 29)
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	imm := int16(-4)
	want := uint32(LW)<<28 | uint32(29)<<23 | uint32(5)<<18 | uint32(uint16(imm))
	if words[0] != want {
		t.Fatalf("got %#08x, want %#08x", words[0], want)
	}
}

func TestWordIsNeverOpcodeTagged(t *testing.T) {
	g := NewCodegen()
	g.Word(-1)
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	if words[0] != 0xFFFFFFFF {
		t.Fatalf("expected a raw .word payload untouched by opcode tagging, got %#08x", words[0])
	}
}

func TestLabelHereRejectsDuplicate(t *testing.T) {
	g := NewCodegen()
	if err := g.LabelHere(diag.Position{}, "start"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.LabelHere(diag.Position{}, "start"); err == nil {
		t.Fatalf("expected a duplicate-label error")
	}
}

func TestWordLabelPatchesToByteAddress(t *testing.T) {
	g := NewCodegen()
	g.WordLabel(diag.Position{}, "target")
	g.Lis(1)
	if err := g.LabelHere(diag.Position{}, "target"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	if words[0] != 2*4 {
		t.Fatalf("expected the patched word to hold byte address 8, got %d", words[0])
	}
}

func TestBranchLabelPatchesToRelativeOffset(t *testing.T) {
	g := NewCodegen()
	g.BeqLabel(diag.Position{}, 1, 2, "end")
	g.Add(0, 0, 0)
	g.Add(0, 0, 0)
	if err := g.LabelHere(diag.Position{}, "end"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	gotImm := int16(uint16(words[0] & 0xffff))
	if gotImm != 2 {
		t.Fatalf("expected a relative branch offset of 2, got %d", gotImm)
	}
}

func TestFinalizeRejectsUndefinedLabel(t *testing.T) {
	g := NewCodegen()
	g.WordLabel(diag.Position{}, "nowhere")
	if err := g.Finalize(); err == nil {
		t.Fatalf("expected an error patching an undefined label")
	}
}

func TestFinalizeRejectsOutOfRangeBranch(t *testing.T) {
	g := NewCodegen()
	g.BeqLabel(diag.Position{}, 0, 0, "far")
	for i := 0; i < 40000; i++ {
		g.Add(0, 0, 0)
	}
	if err := g.LabelHere(diag.Position{}, "far"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Finalize(); err == nil {
		t.Fatalf("expected an error for a branch offset outside 16 bits")
	}
}

func TestEncodeIsDeterministicAcrossRuns(t *testing.T) {
	build := func() []uint32 {
		g := NewCodegen()
		g.Lis(1)
		g.WordLabel(diag.Position{}, "main")
		g.Jr(1)
		g.LabelHere(diag.Position{}, "main")
		g.Add(2, 0, 0)
		if err := g.Finalize(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return g.Encode()
	}
	a := build()
	b := build()
	if len(a) != len(b) {
		t.Fatalf("expected identical-length output, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("word %d differs across identical builds: %#08x vs %#08x", i, a[i], b[i])
		}
	}
}

func TestParseInlineAssemblyMnemonicsAndLabels(t *testing.T) {
	g := NewCodegen()
	src := "loop: add $1, $2, $3\nbeq $1, $0, loop\n.word 42"
	if err := Parse(g, diag.Position{Filename: "test.wat", Line: 1}, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := g.Encode()
	if len(words) != 3 {
		t.Fatalf("expected 3 emitted words, got %d", len(words))
	}
	if words[2] != 42 {
		t.Fatalf("expected the .word literal to encode as 42, got %d", words[2])
	}
	gotImm := int16(uint16(words[1] & 0xffff))
	if gotImm != -2 {
		t.Fatalf("expected the branch back to loop: to have offset -2, got %d", gotImm)
	}
}

func TestParseUnknownMnemonicIsError(t *testing.T) {
	g := NewCodegen()
	if err := Parse(g, diag.Position{}, "nope $1"); err == nil {
		t.Fatalf("expected an error for an unknown mnemonic")
	}
}

func TestParseInvalidRegisterIsError(t *testing.T) {
	g := NewCodegen()
	if err := Parse(g, diag.Position{}, "add $1, $2, $99"); err == nil {
		t.Fatalf("expected an error for an out-of-range register operand")
	}
}
