// Package syntax implements Nova's concrete/abstract syntax tree (SynTree,
// spec §3) and the recursive-descent parser that builds it (spec §4.2).
//
// Node dispatch follows the tagged-union-over-virtual-inheritance approach
// spec §9's DESIGN NOTES recommend: every node embeds a Header carrying its
// location, and a visitor matches on the node's Go type with a type switch
// instead of relying on an interface-method-per-node-kind hierarchy. The
// node-field shape otherwise follows the teacher's tunascript/syntax/ast.go;
// of its conventions only String() is carried over, on CompilationUnit and
// NamedTypeRef, and no node has an Equal() method.
package syntax

import (
	"fmt"
	"strings"

	"github.com/dekarrin/nova/internal/source"
)

// Arena owns every node built during one parse. Node ownership in Go does
// not require manual allocation/deallocation the way the teacher's
// bump-allocator discipline (spec §5) would in a systems language, but the
// Arena still serves the role spec §9 assigns it: it is the single,
// per-compilation place the AST-node id counter lives, instead of a
// process-wide global.
type Arena struct {
	nextID int
}

// NewArena creates an empty, per-compilation node arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) nodeID() int {
	id := a.nextID
	a.nextID++
	return id
}

// Header is embedded in every concrete node type. It carries the node's
// location and its arena-assigned id. No pass fills in Scope: the
// symbol-table builder records each node's scope in
// symbols.ScopeTree.NodeScope instead.
type Header struct {
	ID       int
	Location source.Location
	Scope    interface{} // *symbols.Symbol once internal/symbols has run; interface{} here avoids an import cycle
}

func (h *Header) Loc() source.Location { return h.Location }

// Node is implemented by every syntax tree node.
type Node interface {
	Loc() source.Location
	node()
}

// Decl is implemented by every declaration-level node.
type Decl interface {
	Node
	decl()
}

// Stmt is implemented by every statement-level node.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every expression-level node.
type Expr interface {
	Node
	expr()
}

// TypeRef is implemented by every type-reference node (named, array, or
// pointer), per spec §3.
type TypeRef interface {
	Node
	typeRef()
}

// ModifierSet is the small flag bitmask from spec §3.
type ModifierSet uint16

const (
	Public ModifierSet = 1 << iota
	Private
	Protected
	Internal
	Static
	Readonly
	Virtual
	Override
	Abstract
	Extern
)

func (m ModifierSet) Has(flag ModifierSet) bool { return m&flag != 0 }

func (m ModifierSet) String() string {
	names := []struct {
		flag ModifierSet
		name string
	}{
		{Public, "public"}, {Private, "private"}, {Protected, "protected"},
		{Internal, "internal"}, {Static, "static"}, {Readonly, "readonly"},
		{Virtual, "virtual"}, {Override, "override"}, {Abstract, "abstract"},
		{Extern, "extern"},
	}
	var parts []string
	for _, n := range names {
		if m.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

// ---- declarations ----

// CompilationUnit is the root of one parsed source file.
type CompilationUnit struct {
	Header
	Filename string
	Usings   []*UsingDirective
	Decls    []Decl
}

// UsingDirective is a `using a.b.c;` import-style directive.
type UsingDirective struct {
	Header
	Path []string
}

// NamespaceDecl is `namespace a.b { ... }` or `namespace a.b;`.
type NamespaceDecl struct {
	Header
	Path    []string
	Members []Decl
	// BraceLess is true for the `namespace a.b;` file-scoped form, which
	// per spec §4.2's grammar has no explicit member list parsed under it
	// (members, if any, follow as further top-level decls).
	BraceLess bool
}

// TypeDecl is `class Name : Base { members }`.
type TypeDecl struct {
	Header
	Modifiers ModifierSet
	Name      string
	Bases     []string
	Members   []Decl
}

// FieldDecl is `T name, name2 = expr;`.
type FieldDecl struct {
	Header
	Modifiers   ModifierSet
	Type        TypeRef
	Declarators []*VariableDeclarator
}

// VariableDeclarator is one `name` or `name = initializer` entry in a
// field or local-variable declaration.
type VariableDeclarator struct {
	Header
	Name        string
	Initializer Expr // nil if uninitialized
}

// ParameterDecl is one formal parameter in a method/constructor signature.
type ParameterDecl struct {
	Header
	Type TypeRef
	Name string
}

// MethodDecl is `T name(params) { body }`, also used (with no enclosing
// TypeDecl) for the grammar's top-level `ExternalMethodDecl` production.
type MethodDecl struct {
	Header
	Modifiers  ModifierSet
	ReturnType TypeRef
	Name       string
	Params     []*ParameterDecl
	Body       *BlockStmt // nil for `extern`/`abstract` methods
}

// ConstructorDecl is `Name(params) { body }` inside a TypeDecl whose name
// matches the enclosing class.
type ConstructorDecl struct {
	Header
	Modifiers ModifierSet
	Name      string
	Params    []*ParameterDecl
	Body      *BlockStmt
}

// DestructorDecl is `~Name() { body }`.
type DestructorDecl struct {
	Header
	Name string
	Body *BlockStmt
}

// AccessorDecl is a property's `get { ... }` / `set { ... }` accessor, or
// its auto-property form (`get;`/`set;`, Body == nil).
type AccessorDecl struct {
	Header
	IsSetter bool
	Body     *BlockStmt // nil for an auto-property accessor
}

// PropertyDecl is `T name { get; set; }`.
type PropertyDecl struct {
	Header
	Modifiers ModifierSet
	Type      TypeRef
	Name      string
	Getter    *AccessorDecl // nil if the property has no getter
	Setter    *AccessorDecl // nil if the property has no setter
}

func (*CompilationUnit) node()  {}
func (*UsingDirective) node()   {}
func (*NamespaceDecl) node()    {}
func (*TypeDecl) node()         {}
func (*FieldDecl) node()        {}
func (*VariableDeclarator) node() {}
func (*ParameterDecl) node()    {}
func (*MethodDecl) node()       {}
func (*ConstructorDecl) node()  {}
func (*DestructorDecl) node()   {}
func (*AccessorDecl) node()     {}
func (*PropertyDecl) node()     {}

func (*UsingDirective) decl()  {}
func (*NamespaceDecl) decl()   {}
func (*TypeDecl) decl()        {}
func (*FieldDecl) decl()       {}
func (*MethodDecl) decl()      {}
func (*ConstructorDecl) decl() {}
func (*DestructorDecl) decl()  {}
func (*PropertyDecl) decl()    {}

// ---- type references ----

// NamedTypeRef is a primitive keyword or a (possibly dotted) class name.
type NamedTypeRef struct {
	Header
	Parts []string
}

// ArrayTypeRef is `T[]` or `T[N]`.
type ArrayTypeRef struct {
	Header
	Elem TypeRef
	Size Expr // nil for an unsized array type
}

// PointerTypeRef is `T*`.
type PointerTypeRef struct {
	Header
	Elem TypeRef
}

func (*NamedTypeRef) node()    {}
func (*ArrayTypeRef) node()    {}
func (*PointerTypeRef) node()  {}
func (*NamedTypeRef) typeRef() {}
func (*ArrayTypeRef) typeRef() {}
func (*PointerTypeRef) typeRef() {}

func (t *NamedTypeRef) String() string { return strings.Join(t.Parts, ".") }

// ---- statements ----

type BlockStmt struct {
	Header
	Stmts []Stmt
}

type ExprStmt struct {
	Header
	Expr Expr
}

type LocalVarDeclStmt struct {
	Header
	Type        TypeRef
	Declarators []*VariableDeclarator
}

type IfStmt struct {
	Header
	Cond Expr
	Then Stmt
	Else Stmt // nil if there is no else branch
}

type WhileStmt struct {
	Header
	Cond Expr
	Body Stmt
}

type ForStmt struct {
	Header
	Init   Stmt // nil, an ExprStmt, or a LocalVarDeclStmt
	Cond   Expr // nil means "always true"
	Update Expr // nil means no update expression
	Body   Stmt
}

type ReturnStmt struct {
	Header
	Value Expr // nil for `return;`
}

type BreakStmt struct{ Header }
type ContinueStmt struct{ Header }

func (*BlockStmt) node()        {}
func (*ExprStmt) node()         {}
func (*LocalVarDeclStmt) node() {}
func (*IfStmt) node()           {}
func (*WhileStmt) node()        {}
func (*ForStmt) node()          {}
func (*ReturnStmt) node()       {}
func (*BreakStmt) node()        {}
func (*ContinueStmt) node()     {}

func (*BlockStmt) stmt()        {}
func (*ExprStmt) stmt()         {}
func (*LocalVarDeclStmt) stmt() {}
func (*IfStmt) stmt()           {}
func (*WhileStmt) stmt()        {}
func (*ForStmt) stmt()          {}
func (*ReturnStmt) stmt()       {}
func (*BreakStmt) stmt()        {}
func (*ContinueStmt) stmt()     {}

// ---- expressions ----

// LiteralKind discriminates the primary-literal forms from spec §6.
type LiteralKind int

const (
	IntLit LiteralKind = iota
	FloatLit
	StringLit
	CharLit
	BoolLit
	NullLit
)

type LiteralExpr struct {
	Header
	Kind LiteralKind

	IntValue    int64
	FloatValue  float64
	StringValue string
	BoolValue   bool
}

// NameExpr is an (possibly dotted) unqualified-at-parse-time identifier
// chain, e.g. `x` or `a.b.c` before the binder decides how to split it.
type NameExpr struct {
	Header
	Parts []string
}

type ThisExpr struct{ Header }

type MemberAccessExpr struct {
	Header
	Object Expr
	Member string
}

type IndexExpr struct {
	Header
	Object Expr
	Index  Expr
}

type CallExpr struct {
	Header
	Callee Expr
	Args   []Expr
}

type NewExpr struct {
	Header
	Type TypeRef
	Args []Expr
}

// UnaryOp enumerates the prefix/postfix unary operators from spec §4.2.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryPlus
	UnaryPreInc
	UnaryPreDec
	UnaryPostInc
	UnaryPostDec
)

type UnaryExpr struct {
	Header
	Op      UnaryOp
	Operand Expr
}

// BinaryOp enumerates the binary operators across the precedence ladder
// from spec §4.2 (logical-or down through multiplicative).
type BinaryOp int

const (
	BinOr BinaryOp = iota
	BinAnd
	BinEq
	BinNotEq
	BinLt
	BinGt
	BinLtEq
	BinGtEq
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
)

type BinaryExpr struct {
	Header
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// AssignOp enumerates simple and compound assignment from spec §6.
type AssignOp int

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
)

type AssignExpr struct {
	Header
	Op     AssignOp
	Target Expr
	Value  Expr
}

func (*LiteralExpr) node()      {}
func (*NameExpr) node()         {}
func (*ThisExpr) node()         {}
func (*MemberAccessExpr) node() {}
func (*IndexExpr) node()        {}
func (*CallExpr) node()         {}
func (*NewExpr) node()          {}
func (*UnaryExpr) node()        {}
func (*BinaryExpr) node()       {}
func (*AssignExpr) node()       {}

func (*LiteralExpr) expr()      {}
func (*NameExpr) expr()         {}
func (*ThisExpr) expr()         {}
func (*MemberAccessExpr) expr() {}
func (*IndexExpr) expr()        {}
func (*CallExpr) expr()         {}
func (*NewExpr) expr()          {}
func (*UnaryExpr) expr()        {}
func (*BinaryExpr) expr()       {}
func (*AssignExpr) expr()       {}

// ErrorNode stands in for an expression or statement the parser could not
// make sense of, so that later passes can skip the subtree without a nil
// check at every call site (spec §7: "bind ... leave the offending node
// partially unbound; later passes skip unbound sub-expressions").
type ErrorNode struct{ Header }

func (*ErrorNode) node() {}
func (*ErrorNode) expr() {}
func (*ErrorNode) stmt() {}

// String is a debug rendering of a CompilationUnit's declarations, useful
// in tests, in the spirit of the teacher's AST.String() pretty-printer.
func (cu *CompilationUnit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CompilationUnit(%s)\n", cu.Filename)
	for _, d := range cu.Decls {
		fmt.Fprintf(&sb, "  %T\n", d)
	}
	return sb.String()
}
