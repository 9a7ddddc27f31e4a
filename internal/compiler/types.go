package compiler

import (
	"fmt"

	"gocpu/internal/diag"
)

// TypeKind discriminates the Type tagged variant (spec.md §3).
type TypeKind int

const (
	TVoid TypeKind = iota
	TBool
	TChar
	TInt
	TPtr
	TStruct
)

// Field is one member of a struct type.
type Field struct {
	Name string
	Type *Type
}

// Type is the compiler's canonical type descriptor. Primitives are
// singletons; pointer types are interned by their inner type so that
// pointer-equality of *Type values is type-equality (spec.md §3, §4.3).
// Struct types may start out forward-declared (empty Fields) and be
// filled in later by DefineStruct.
type Type struct {
	Kind   TypeKind
	Inner  *Type   // valid when Kind == TPtr
	Name   string  // valid when Kind == TStruct
	Fields []Field // valid when Kind == TStruct; empty means forward-declared
	DeclAt diag.Position
}

func (t *Type) String() string {
	switch t.Kind {
	case TVoid:
		return "void"
	case TBool:
		return "bool"
	case TChar:
		return "char"
	case TInt:
		return "int"
	case TPtr:
		return "*" + t.Inner.String()
	case TStruct:
		return t.Name
	default:
		return "?"
	}
}

// SizeInWords is the size of a value of this type in 32-bit words
// (spec.md §3: primitives and pointers = 1; struct = sum of field sizes).
func (t *Type) SizeInWords() int {
	switch t.Kind {
	case TStruct:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.SizeInWords()
		}
		return total
	default:
		return 1
	}
}

// TypeRegistry interns primitive, pointer, and struct type descriptors
// (spec.md §4.3). Equality of *Type values is reference equality.
type TypeRegistry struct {
	prims    map[TypeKind]*Type
	pointers map[*Type]*Type
	structs  map[string]*Type
}

func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		prims:    make(map[TypeKind]*Type),
		pointers: make(map[*Type]*Type),
		structs:  make(map[string]*Type),
	}
	r.prims[TVoid] = &Type{Kind: TVoid}
	r.prims[TBool] = &Type{Kind: TBool}
	r.prims[TChar] = &Type{Kind: TChar}
	r.prims[TInt] = &Type{Kind: TInt}
	return r
}

// Primitive returns the canonical singleton for kind.
func (r *TypeRegistry) Primitive(kind TypeKind) *Type {
	t, ok := r.prims[kind]
	if !ok {
		panic(fmt.Sprintf("not a primitive kind: %v", kind))
	}
	return t
}

// Pointer returns the canonical pointer-to-inner type, creating it on
// first request.
func (r *TypeRegistry) Pointer(inner *Type) *Type {
	if p, ok := r.pointers[inner]; ok {
		return p
	}
	p := &Type{Kind: TPtr, Inner: inner}
	r.pointers[inner] = p
	return p
}

// DeclareStruct returns an existing (possibly forward-declared) struct or
// creates a forward declaration with no fields.
func (r *TypeRegistry) DeclareStruct(pos diag.Position, name string) *Type {
	if s, ok := r.structs[name]; ok {
		return s
	}
	s := &Type{Kind: TStruct, Name: name, DeclAt: pos}
	r.structs[name] = s
	return s
}

// DefineStruct fills a previously declared struct's field list, or errors
// if it is already defined, or if fields is empty (spec.md §4.3).
func (r *TypeRegistry) DefineStruct(pos diag.Position, name string, fields []Field) (*Type, error) {
	if len(fields) == 0 {
		return nil, newSymbolError(pos, "struct %q cannot be defined with no fields", name)
	}
	s := r.DeclareStruct(pos, name)
	if len(s.Fields) != 0 {
		return nil, newSymbolError(pos, "struct %q is already defined", name)
	}
	s.Fields = fields
	return s, nil
}

// Structs returns every struct type known to the registry, used at the
// end of compilation to check that no struct was left forward-declared.
func (r *TypeRegistry) Structs() []*Type {
	out := make([]*Type, 0, len(r.structs))
	for _, s := range r.structs {
		out = append(out, s)
	}
	return out
}

// LookupField returns the field named name on struct type s, and its
// cumulative byte offset from the start of the struct.
func LookupField(s *Type, name string) (Field, int, bool) {
	offset := 0
	for _, f := range s.Fields {
		if f.Name == name {
			return f, offset, true
		}
		offset += f.Type.SizeInWords() * 4
	}
	return Field{}, 0, false
}
