// Package vm is the emulator of spec.md §4.10: it executes a patched
// instruction vector against a flat, byte-addressable memory image with two
// memory-mapped I/O cells. Grounded in shape on gocpu/pkg/cpu/cpu.go (a
// register-file struct stepped one instruction at a time, with an
// io.Writer hook for MMIO output) but re-targeted at the fixed MIPS-like
// opcode set of internal/asm rather than the teacher's own instruction set.
package vm

import (
	"encoding/binary"
	"io"
	"os"

	"gocpu/internal/asm"
	"gocpu/internal/diag"
)

const (
	// MemSize is the size of the flat memory image (spec.md §4.10).
	MemSize = 1 << 20

	// GetcAddr and PutcAddr are the memory-mapped I/O addresses (spec.md §6).
	GetcAddr uint32 = 0xFFFF0004
	PutcAddr uint32 = 0xFFFF000C

	// ExitAddress is the sentinel stored in $31 (LINK) at start; control
	// returning to it ends execution (spec.md §4.10).
	ExitAddress int32 = -1
)

// CPU is one emulator instance: 32 general registers, the lo/hi multiply-
// divide results, the program counter, and the memory image.
type CPU struct {
	Regs [32]int32
	Lo   int32
	Hi   int32
	PC   int32

	Mem []byte

	// Stdin/Stdout back the GETC/PUTC memory-mapped cells. Defaulted to
	// os.Stdin/os.Stdout by NewCPU when left nil, mirroring the
	// teacher's CPU.Output convention of falling back to os.Stdout.
	Stdin  io.Reader
	Stdout io.Writer
}

// NewCPU builds a CPU with program copied to the start of memory and the
// special registers initialised per spec.md §4.10: $30 = memSize,
// $31 = exitAddress.
func NewCPU(program []uint32, stdin io.Reader, stdout io.Writer) *CPU {
	c := &CPU{Mem: make([]byte, MemSize), Stdin: stdin, Stdout: stdout}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	for i, word := range program {
		binary.BigEndian.PutUint32(c.Mem[i*4:i*4+4], word)
	}
	c.Regs[30] = MemSize
	c.Regs[31] = ExitAddress
	return c
}

func (c *CPU) pos() diag.Position { return diag.Position{Line: int(c.PC)} }

func (c *CPU) loadWordRaw(addr uint32) (int32, error) {
	if addr+4 > uint32(len(c.Mem)) {
		return 0, newRuntimeError(c.pos(), "load out of bounds at address %#x", addr)
	}
	return int32(binary.BigEndian.Uint32(c.Mem[addr : addr+4])), nil
}

func (c *CPU) storeWordRaw(addr uint32, v int32) error {
	if addr+4 > uint32(len(c.Mem)) {
		return newRuntimeError(c.pos(), "store out of bounds at address %#x", addr)
	}
	binary.BigEndian.PutUint32(c.Mem[addr:addr+4], uint32(v))
	return nil
}

// loadMMIO dispatches a load through the GETC memory-mapped cell, falling
// back to ordinary memory otherwise.
func (c *CPU) loadMMIO(addr uint32) (int32, error) {
	if addr == GetcAddr {
		var buf [1]byte
		n, err := c.Stdin.Read(buf[:])
		if n == 0 || err != nil {
			return -1, nil
		}
		return int32(buf[0]), nil
	}
	return c.loadWordRaw(addr)
}

// storeMMIO dispatches a store through the PUTC memory-mapped cell, falling
// back to ordinary memory otherwise.
func (c *CPU) storeMMIO(addr uint32, v int32) error {
	if addr == PutcAddr {
		_, err := c.Stdout.Write([]byte{byte(v)})
		return err
	}
	return c.storeWordRaw(addr, v)
}

// Step decodes and executes the instruction at PC, returning done=true once
// PC has reached ExitAddress (spec.md §4.10).
func (c *CPU) Step() (done bool, err error) {
	if c.PC == ExitAddress {
		return true, nil
	}

	word, err := c.loadWordRaw(uint32(c.PC))
	if err != nil {
		return false, err
	}
	c.Regs[0] = 0

	op := asm.Op((uint32(word) >> 28) & 0xf)
	s := uint8((uint32(word) >> 23) & 0x1f)
	t := uint8((uint32(word) >> 18) & 0x1f)
	d := uint8((uint32(word) >> 13) & 0x1f)
	imm := int16(uint32(word) & 0xffff)

	switch op {
	case asm.LIS:
		c.PC += 4
		val, err := c.loadWordRaw(uint32(c.PC))
		if err != nil {
			return false, err
		}
		c.Regs[d] = val
		c.PC += 4

	case asm.ADD:
		c.Regs[d] = c.Regs[s] + c.Regs[t]
		c.PC += 4
	case asm.SUB:
		c.Regs[d] = c.Regs[s] - c.Regs[t]
		c.PC += 4
	case asm.MULT:
		result := int64(c.Regs[s]) * int64(c.Regs[t])
		c.Lo = int32(result)
		c.Hi = int32(result >> 32)
		c.PC += 4
	case asm.DIV:
		if c.Regs[t] == 0 {
			return false, newRuntimeError(c.pos(), "division by zero")
		}
		c.Lo = c.Regs[s] / c.Regs[t]
		c.Hi = c.Regs[s] % c.Regs[t]
		c.PC += 4
	case asm.SLT:
		if c.Regs[s] < c.Regs[t] {
			c.Regs[d] = 1
		} else {
			c.Regs[d] = 0
		}
		c.PC += 4
	case asm.MFHI:
		c.Regs[d] = c.Hi
		c.PC += 4
	case asm.MFLO:
		c.Regs[d] = c.Lo
		c.PC += 4
	case asm.LW:
		addr := uint32(c.Regs[s]) + uint32(imm)
		val, err := c.loadMMIO(addr)
		if err != nil {
			return false, err
		}
		c.Regs[t] = val
		c.PC += 4
	case asm.SW:
		addr := uint32(c.Regs[s]) + uint32(imm)
		if err := c.storeMMIO(addr, c.Regs[t]); err != nil {
			return false, err
		}
		c.PC += 4
	case asm.BEQ:
		c.PC += 4
		if c.Regs[s] == c.Regs[t] {
			c.PC += int32(imm) * 4
		}
	case asm.BNE:
		c.PC += 4
		if c.Regs[s] != c.Regs[t] {
			c.PC += int32(imm) * 4
		}
	case asm.JR:
		c.PC = c.Regs[s]
	case asm.JALR:
		next := c.PC + 4
		target := c.Regs[s]
		c.Regs[31] = next
		c.PC = target

	default:
		return false, newRuntimeError(c.pos(), "unknown opcode %d at pc=%d", int(op), c.PC)
	}

	return false, nil
}

// Run steps the CPU until it terminates or a runtime error occurs.
func (c *CPU) Run() error {
	for {
		done, err := c.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
