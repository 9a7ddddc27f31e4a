package main

import (
	"flag"
	"fmt"
	"os"

	"gocpu/internal/asm"
	"gocpu/internal/compiler"
	"gocpu/internal/vm"
)

func main() {
	outPath := flag.String("out", "", "write the patched instruction stream to this file instead of running it")
	dumpAsm := flag.Bool("dump-asm", false, "print the disassembled instruction stream before running")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gocpu <path>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	program, err := compiler.Compile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dumpAsm {
		for _, line := range asm.Disassemble(program) {
			fmt.Println(line)
		}
	}

	if *outPath != "" {
		if err := writeWords(*outPath, program); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %q: %v\n", *outPath, err)
			os.Exit(1)
		}
		return
	}

	cpu := vm.NewCPU(program, os.Stdin, os.Stdout)
	if err := cpu.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeWords(path string, words []uint32) error {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w >> 24)
		buf[i*4+1] = byte(w >> 16)
		buf[i*4+2] = byte(w >> 8)
		buf[i*4+3] = byte(w)
	}
	return os.WriteFile(path, buf, 0o644)
}
