// Package types implements Nova's hash-consed type table (spec §3,
// "TypePtr"). A System is owned by a single compilation; equality
// between two TypePtr values is pointer equality by construction, exactly
// as spec §3 requires.
//
// The tagged-union shape here (a Kind discriminator plus per-kind fields)
// mirrors the teacher's Value type in tunascript/syntax/value.go, adapted
// from a run-time value union to a compile-time type union.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the variant a Type holds.
type Kind int

const (
	Primitive Kind = iota
	Named
	Pointer
	Array
	Function
	Unresolved
)

// PrimitiveKind enumerates the primitive type keywords from spec §6.
type PrimitiveKind int

const (
	Void PrimitiveKind = iota
	Bool
	Char
	Int
	Long
	Float
	Double
	String
)

func (p PrimitiveKind) String() string {
	switch p {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	default:
		return "?primitive"
	}
}

// NamedTypeSymbol is the subset of a symbols.Symbol that the type table
// needs to know about. It is satisfied by *symbols.Symbol; the interface
// exists so that this package does not import symbols (which itself
// imports types for a Type symbol's canonical TypePtr), avoiding an import
// cycle.
type NamedTypeSymbol interface {
	QualifiedName() string
}

// Type is one hash-consed type value. Two *Type pointers are interchangeable
// with == precisely when they describe the same type, except Unresolved
// values, which per spec §3 never equal anything else (each carries a
// unique id minted when it was created).
type Type struct {
	Kind Kind

	Prim PrimitiveKind // valid when Kind == Primitive

	Named NamedTypeSymbol // valid when Kind == Named

	Elem *Type // valid when Kind == Pointer or Kind == Array
	Size *int  // valid when Kind == Array; nil means unsized

	Return *Type   // valid when Kind == Function
	Params []*Type // valid when Kind == Function

	UnresolvedID int // valid when Kind == Unresolved
}

// String renders the type in Nova's own surface-syntax spelling, useful
// for diagnostics and the IR text dump.
func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case Primitive:
		return t.Prim.String()
	case Named:
		return t.Named.QualifiedName()
	case Pointer:
		return t.Elem.String() + "*"
	case Array:
		if t.Size != nil {
			return fmt.Sprintf("%s[%d]", t.Elem.String(), *t.Size)
		}
		return t.Elem.String() + "[]"
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Return.String())
	case Unresolved:
		return fmt.Sprintf("<unresolved #%d>", t.UnresolvedID)
	default:
		return "<invalid type>"
	}
}

// IsPrimitive reports whether t is the given primitive kind. A nil type is
// never any primitive kind.
func (t *Type) IsPrimitive(k PrimitiveKind) bool {
	return t != nil && t.Kind == Primitive && t.Prim == k
}

// IsNumeric reports whether t is one of Nova's numeric primitives.
func (t *Type) IsNumeric() bool {
	if t == nil || t.Kind != Primitive {
		return false
	}
	switch t.Prim {
	case Int, Long, Float, Double, Char:
		return true
	default:
		return false
	}
}

// System is the per-compilation hash-consing table. It owns every *Type
// ever produced for one compilation; none of its tables are safe to share
// across compilations, consistent with spec §5's per-compilation arena
// model.
type System struct {
	primitives  map[PrimitiveKind]*Type
	named       map[string]*Type
	pointers    map[*Type]*Type
	arrays      map[arrayKey]*Type
	functions   map[string]*Type
	nextUnresID int
}

type arrayKey struct {
	elem *Type
	size int // -1 means unsized
}

// NewSystem creates an empty, per-compilation type table.
func NewSystem() *System {
	return &System{
		primitives: make(map[PrimitiveKind]*Type),
		named:      make(map[string]*Type),
		pointers:   make(map[*Type]*Type),
		arrays:     make(map[arrayKey]*Type),
		functions:  make(map[string]*Type),
	}
}

// PrimitiveType returns the canonical Type for a primitive kind, creating
// it on first use.
func (s *System) PrimitiveType(k PrimitiveKind) *Type {
	if t, ok := s.primitives[k]; ok {
		return t
	}
	t := &Type{Kind: Primitive, Prim: k}
	s.primitives[k] = t
	return t
}

// NamedType returns the canonical Type for a declared class/struct symbol,
// creating it on first use. Two calls with symbols sharing a qualified name
// return the same pointer.
func (s *System) NamedType(sym NamedTypeSymbol) *Type {
	key := sym.QualifiedName()
	if t, ok := s.named[key]; ok {
		return t
	}
	t := &Type{Kind: Named, Named: sym}
	s.named[key] = t
	return t
}

// PointerTo returns the canonical pointer-to-elem type.
func (s *System) PointerTo(elem *Type) *Type {
	if t, ok := s.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: Pointer, Elem: elem}
	s.pointers[elem] = t
	return t
}

// ArrayOf returns the canonical array-of-elem type. size < 0 means an
// unsized array type.
func (s *System) ArrayOf(elem *Type, size int) *Type {
	key := arrayKey{elem: elem, size: size}
	if t, ok := s.arrays[key]; ok {
		return t
	}
	t := &Type{Kind: Array, Elem: elem}
	if size >= 0 {
		sz := size
		t.Size = &sz
	}
	s.arrays[key] = t
	return t
}

// FunctionType returns the canonical function-signature type for the given
// return type and ordered parameter types.
func (s *System) FunctionType(ret *Type, params []*Type) *Type {
	key := ret.String()
	for _, p := range params {
		key += "," + p.String()
	}
	if t, ok := s.functions[key]; ok {
		return t
	}
	t := &Type{Kind: Function, Return: ret, Params: append([]*Type(nil), params...)}
	s.functions[key] = t
	return t
}

// NewUnresolved mints a fresh Unresolved type with a unique id. Per spec
// §3, Unresolved values never equal each other or anything else even when
// their ids happen to match some other field, because equality here is
// always pointer equality.
func (s *System) NewUnresolved() *Type {
	id := s.nextUnresID
	s.nextUnresID++
	return &Type{Kind: Unresolved, UnresolvedID: id}
}

// Conversion classifies how (from -> to) is allowed to convert, per the
// GLOSSARY's Conversion classifier and the Open Question resolution in
// SPEC_FULL.md §9 (widening-allowed numeric conversions).
type Conversion int

const (
	NoConversion Conversion = iota
	Identity
	ImplicitNumeric
	ExplicitNumeric
	ImplicitReference
	ExplicitReference
	Boxing
	Unboxing
	UserDefined
)

// numericRank orders the numeric primitives from narrowest to widest for
// the widening-allowed conversion matrix.
var numericRank = map[PrimitiveKind]int{
	Char:   0,
	Int:    1,
	Long:   2,
	Float:  3,
	Double: 4,
}

// Classify implements the conversion classifier: given a source and target
// type, returns the kind of conversion (if any) that is allowed between
// them. Numeric primitives widen implicitly (char → int → long → float →
// double) and narrow only explicitly. Within the compiler, internal/resolve
// is the pass that consults it (through AllowsImplicit during overload
// resolution); internal/bind and internal/hlir apply no conversion checks.
func Classify(from, to *Type) Conversion {
	if from == nil || to == nil {
		return NoConversion
	}
	if from == to {
		return Identity
	}
	if from.Kind == Primitive && to.Kind == Primitive {
		fr, frok := numericRank[from.Prim]
		tr, tiok := numericRank[to.Prim]
		if frok && tiok {
			if fr <= tr {
				return ImplicitNumeric
			}
			return ExplicitNumeric
		}
		if from.Prim == Bool && to.Prim == Bool {
			return Identity
		}
		return NoConversion
	}
	if from.Kind == Named && to.Kind == Named {
		if isBaseOf(to, from) {
			return ImplicitReference
		}
		if isBaseOf(from, to) {
			return ExplicitReference
		}
	}
	if from.Kind == Pointer && to.Kind == Pointer {
		return Classify(from.Elem, to.Elem)
	}
	return NoConversion
}

// baseLister is implemented by symbol types that can report their base
// class, used only by isBaseOf to avoid importing internal/symbols here.
type baseLister interface {
	BaseQualifiedNames() []string
}

func isBaseOf(base, derived *Type) bool {
	if base.Kind != Named || derived.Kind != Named {
		return false
	}
	bl, ok := derived.Named.(baseLister)
	if !ok {
		return false
	}
	target := base.Named.QualifiedName()
	for _, name := range bl.BaseQualifiedNames() {
		if name == target {
			return true
		}
	}
	return false
}

// AllowsImplicit reports whether Classify(from, to) denotes a conversion
// overload resolution may apply without an explicit cast.
func AllowsImplicit(from, to *Type) bool {
	switch Classify(from, to) {
	case Identity, ImplicitNumeric, ImplicitReference, Boxing:
		return true
	default:
		return false
	}
}
