package compiler

import (
	"os"
	"path/filepath"
)

// Compile runs the full front-to-back pipeline over the file at path: parse
// (which lexes and splices in #include targets), type, lower, and
// finalize (spec.md §4: "pipeline stages"). It returns the patched,
// big-endian-ready instruction words, or the first Diag-typed error
// raised by any stage.
func Compile(path string) ([]uint32, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	loader := func(includePath string) (string, error) {
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(dir, includePath)
		}
		b, err := os.ReadFile(includePath)
		return string(b), err
	}

	reg := NewTypeRegistry()
	syms := NewSymbolTable()
	stmts, err := ParseProgram(string(src), path, loader, reg, syms)
	if err != nil {
		return nil, err
	}

	typer := NewTyper(reg, syms)
	if err := typer.TypeProgram(stmts); err != nil {
		return nil, err
	}

	compiler := NewCompiler(reg, syms)
	return compiler.Lower(stmts)
}
