// Package symbols implements Nova's symbol table and scoping model (spec
// §3's ScopeTree/Symbol and §4.3's symbol-table builder). A Scope is
// modeled, per the GLOSSARY, as a Symbol subclass rather than a distinct
// type: the Kind discriminator marks which symbols double as scopes
// (Namespace, Type, Function, Block/For).
package symbols

import (
	"strings"

	"github.com/dekarrin/nova/internal/types"
)

// Kind discriminates the Symbol variants from spec §3: Namespace, Type,
// Field, Property, Function, Parameter, Variable, Block.
type Kind int

const (
	NamespaceKind Kind = iota
	TypeKind
	FieldKind
	PropertyKind
	FunctionKind
	ParameterKind
	VariableKind
	BlockKind
)

func (k Kind) String() string {
	switch k {
	case NamespaceKind:
		return "namespace"
	case TypeKind:
		return "type"
	case FieldKind:
		return "field"
	case PropertyKind:
		return "property"
	case FunctionKind:
		return "function"
	case ParameterKind:
		return "parameter"
	case VariableKind:
		return "variable"
	case BlockKind:
		return "block"
	default:
		return "?symbol"
	}
}

// blockScopeName is the synthetic name spec §3 assigns anonymous block
// scopes.
const blockScopeName = "$block"

// forScopeName is the synthetic name spec §3 assigns the scope a for-loop
// contributes so its loop variable is enclosed by it.
const forScopeName = "$for"

// Symbol is one entry in the ScopeTree. Every symbol has a name, a
// (possibly nil, for the root) parent, an ordered member list, and a
// lookup index. Function symbols additionally carry parameter symbols,
// return type, and the virtual/constructor/external flags; Type symbols
// carry field order, virtual-method order, and a canonical TypePtr;
// Property symbols hold at most two children named "get"/"set".
type Symbol struct {
	Kind   Kind
	Name   string
	Parent *Symbol

	Members []*Symbol
	index   map[string][]*Symbol // multi-map: overload sets share a name

	// ---- Type-symbol fields ----
	Bases           []string // base-class simple names as written, resolved later
	BaseQualified   []string // qualified names of bases, filled by internal/resolve
	FieldOrder      []*Symbol
	VirtualOrder    []*Symbol // vtable layout, in slot order
	CanonicalType   *types.Type
	IsForwardDecl   bool

	// ---- Function-symbol fields ----
	Params        []*Symbol
	ReturnType    *types.Type
	IsVirtual     bool
	IsOverride    bool
	IsConstructor bool
	IsDestructor  bool
	IsExternal    bool
	IsStatic      bool
	VTableSlot    int // -1 when the function is not virtual

	// ---- Field/Variable/Parameter fields ----
	DeclaredType *types.Type
}

// QualifiedName returns the symbol's dotted path from the (unnamed) root
// namespace, e.g. "Game.Entities.Player.update". Per spec §8's universal
// invariant, this value is unique within a compilation for every symbol.
func (s *Symbol) QualifiedName() string {
	if s == nil {
		return ""
	}
	var parts []string
	for cur := s; cur != nil && cur.Parent != nil; cur = cur.Parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, ".")
}

// BaseQualifiedNames implements types.baseLister so the type system's
// conversion classifier can walk a class's inheritance chain without
// importing this package.
func (s *Symbol) BaseQualifiedNames() []string {
	if s == nil {
		return nil
	}
	return s.BaseQualified
}

// IsScope reports whether this symbol kind doubles as a lexical scope per
// the GLOSSARY (Namespace, Type, Function, Block -- which covers the
// synthetic for-loop scope too, since it is just a Block named "$for").
func (s *Symbol) IsScope() bool {
	switch s.Kind {
	case NamespaceKind, TypeKind, FunctionKind, BlockKind:
		return true
	default:
		return false
	}
}

// NewRoot creates the single root namespace symbol required by the
// ScopeTree invariants in spec §3.
func NewRoot() *Symbol {
	return &Symbol{Kind: NamespaceKind, index: map[string][]*Symbol{}}
}

// newChild allocates a new symbol as a child of parent, without inserting
// it into parent's member table (callers that want the insertion side
// effects should use Insert).
func newChild(kind Kind, name string, parent *Symbol) *Symbol {
	return &Symbol{Kind: kind, Name: name, Parent: parent, VTableSlot: -1, index: map[string][]*Symbol{}}
}

// NewNamespace creates (or, if one with the same name already exists in
// parent, returns the existing) child namespace symbol. Reopening a
// namespace with repeated `namespace a.b { ... }` blocks is expected, so
// this does not go through Insert's duplicate-definition diagnostic.
func NewNamespace(parent *Symbol, name string) *Symbol {
	if existing, ok := parent.index[name]; ok {
		for _, e := range existing {
			if e.Kind == NamespaceKind {
				return e
			}
		}
	}
	ns := newChild(NamespaceKind, name, parent)
	parent.Members = append(parent.Members, ns)
	parent.index[name] = append(parent.index[name], ns)
	return ns
}

// NewType creates a new Type symbol as a child of parent.
func NewType(parent *Symbol, name string) *Symbol {
	return newChild(TypeKind, name, parent)
}

// NewFunction creates a new Function symbol as a child of parent (a
// Namespace or Type symbol).
func NewFunction(parent *Symbol, name string) *Symbol {
	return newChild(FunctionKind, name, parent)
}

// NewField creates a new Field symbol as a child of a Type symbol.
func NewField(parent *Symbol, name string) *Symbol {
	return newChild(FieldKind, name, parent)
}

// NewProperty creates a new Property symbol as a child of a Type symbol.
// Its "get"/"set" children are themselves Function symbols, added via
// Insert by the caller.
func NewProperty(parent *Symbol, name string) *Symbol {
	return newChild(PropertyKind, name, parent)
}

// NewParameter creates a new Parameter symbol as a child of a Function
// scope.
func NewParameter(parent *Symbol, name string) *Symbol {
	return newChild(ParameterKind, name, parent)
}

// NewVariable creates a new local-Variable symbol as a child of a Block
// (or Function, for directly-enclosed locals) scope.
func NewVariable(parent *Symbol, name string) *Symbol {
	return newChild(VariableKind, name, parent)
}

// NewBlock creates a new anonymous Block scope as a child of parent.
func NewBlock(parent *Symbol) *Symbol {
	return newChild(BlockKind, blockScopeName, parent)
}

// NewForScope creates the synthetic "$for" Block scope a for-loop
// contributes so that its loop variable is enclosed by it, per spec §3.
func NewForScope(parent *Symbol) *Symbol {
	return newChild(BlockKind, forScopeName, parent)
}

// Insert adds child as a member of s, recording it in s's lookup index.
// Per spec §4.3/§7, a duplicate simple name within a scope is an error
// except for overload sets (multiple Function symbols sharing a name);
// Insert reports whether the insertion was a plain, non-overload
// duplicate so the caller (internal/symbols' builder) can decide whether
// to record a SymbolError. The first definition always wins: on a
// rejected duplicate, child is NOT linked into s (not inserted into
// Members or the index), matching spec §7's "keep first, ignore
// subsequent" policy.
func (s *Symbol) Insert(child *Symbol) (duplicate bool) {
	existing := s.index[child.Name]
	if len(existing) > 0 {
		allFunctions := child.Kind == FunctionKind
		for _, e := range existing {
			if e.Kind != FunctionKind {
				allFunctions = false
			}
		}
		if !allFunctions {
			return true
		}
	}
	child.Parent = s
	s.Members = append(s.Members, child)
	s.index[child.Name] = append(s.index[child.Name], child)
	return false
}

// Lookup returns every symbol directly declared in s under name (more
// than one only for an overload set), and whether any were found.
func (s *Symbol) Lookup(name string) ([]*Symbol, bool) {
	syms, ok := s.index[name]
	return syms, ok
}

// LookupChain searches s and then each enclosing scope in turn (spec
// §4.5's "scope stack rebuilt from each declaration's scope symbol"),
// returning the first scope at which name is found.
func LookupChain(s *Symbol, name string) ([]*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if syms, ok := cur.Lookup(name); ok {
			return syms, true
		}
	}
	return nil, false
}

// DescendQualified walks further dotted-name parts from an initial
// LookupChain result, descending into nested namespace/type members. Used
// to resolve qualified names (`a.b.c`) once the first component has been
// found, by internal/symbols itself and by internal/bind/internal/resolve.
func DescendQualified(start []*Symbol, rest []string) *Symbol {
	if len(start) == 0 {
		return nil
	}
	cur := start[0]
	for _, part := range rest {
		syms, ok := cur.Lookup(part)
		if !ok || len(syms) == 0 {
			return nil
		}
		cur = syms[0]
	}
	return cur
}

// EnclosingType returns the nearest Type symbol enclosing s (or nil if
// none), used to resolve `this` (spec §4.5's BoundThisExpression) and
// implicit `this.` rewriting (spec §4.4).
func EnclosingType(s *Symbol) *Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == TypeKind {
			return cur
		}
	}
	return nil
}

// EnclosingFunction returns the nearest Function symbol enclosing s, used
// to find the function whose body a statement/expression belongs to.
func EnclosingFunction(s *Symbol) *Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == FunctionKind {
			return cur
		}
	}
	return nil
}
