// Package bind implements Nova's bound-tree construction (spec §4.4): a
// second tree mirroring internal/syntax's node categories, but with name,
// member, call, `this`, and type references linked to the symbols the
// symbol-table pass produced wherever that can be done locally. Fields
// this pass cannot resolve on its own are left nil for internal/resolve to
// fill in, per spec §4.5.
//
// As the syntax tree's NamespaceDecl contributes no information beyond
// scoping (already fully captured in each Symbol's parent chain), the
// bound tree flattens namespace nesting: BoundCompilationUnit holds a flat
// list of top-level Types and Functions rather than a nested
// BoundNamespaceDecl, the way the teacher's tunascript/syntax/ast.go
// flattens its own namespace-less AST shape.
package bind

import (
	"github.com/dekarrin/nova/internal/source"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

// ValueCategory distinguishes an lvalue (has an address, assignable) bound
// expression from an rvalue.
type ValueCategory int

const (
	RValue ValueCategory = iota
	LValue
)

// ConstantValue holds a compile-time-decoded literal value (spec §4.4).
// Only the field matching Kind is meaningful; Kind == syntax.NullLit
// carries no payload field.
type ConstantValue struct {
	Kind        syntax.LiteralKind
	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	StringValue string
}

// ExprHeader is embedded in every bound expression node.
type ExprHeader struct {
	Location source.Location
	Type     *types.Type // nil until resolved, e.g. a name the binder could not resolve locally
	Category ValueCategory
	Constant *ConstantValue // non-nil only for literal and folded-constant expressions
}

func (h *ExprHeader) Loc() source.Location { return h.Location }

// BoundExpr is implemented by every bound expression node.
type BoundExpr interface {
	Loc() source.Location
	boundExpr()
}

// BoundStmt is implemented by every bound statement node.
type BoundStmt interface {
	Loc() source.Location
	boundStmt()
}

// ---- expressions ----

type BoundLiteralExpr struct {
	ExprHeader
	Kind syntax.LiteralKind
}

// BoundNameExpr is an identifier (possibly still dotted) that the binder
// could not fold into a BoundMemberAccessExpr chain, per spec §4.4's rule
// that a namespace/type-prefixed or as-yet-unresolved name stays a
// multi-part name. Symbol is set when the binder resolved it outright
// (e.g. a local variable or a fully-qualified static member); otherwise it
// is left nil for internal/resolve.
type BoundNameExpr struct {
	ExprHeader
	Parts  []string
	Symbol *symbols.Symbol

	// Scope is the lexical scope the name appeared in, i.e. the starting
	// point for the "scope stack rebuilt from each declaration's scope
	// symbol" internal/resolve walks for any reference the binder could
	// not settle locally (an overload-set name used as a call target).
	Scope *symbols.Symbol
}

// BoundThisExpr is `this`. ContainingType is set by the binder when the
// enclosing scope has one; if not (a `this` appearing outside any type),
// it is left nil and the binder records a BindError.
type BoundThisExpr struct {
	ExprHeader
	ContainingType *symbols.Symbol
}

// BoundMemberAccessExpr is `object.member`, including the implicit
// `this.x` the binder synthesizes for an unqualified instance-member name
// (spec §4.4). MemberSymbol is filled in by internal/resolve once Object's
// type is known, except when the binder already knows it directly (the
// synthesized `this.x` case).
type BoundMemberAccessExpr struct {
	ExprHeader
	Object       BoundExpr
	Member       string
	MemberSymbol *symbols.Symbol
}

type BoundIndexExpr struct {
	ExprHeader
	Object          BoundExpr
	Index           BoundExpr
	IndexerProperty *symbols.Symbol // the object type's "Item" property; filled by internal/resolve
}

type BoundCallExpr struct {
	ExprHeader
	Callee BoundExpr
	Args   []BoundExpr
	Method *symbols.Symbol // filled by internal/resolve's overload resolution
}

type BoundNewExpr struct {
	ExprHeader
	Args        []BoundExpr
	Constructor *symbols.Symbol // filled by internal/resolve's overload resolution
}

type BoundUnaryExpr struct {
	ExprHeader
	Op      syntax.UnaryOp
	Operand BoundExpr
}

type BoundBinaryExpr struct {
	ExprHeader
	Op    syntax.BinaryOp
	Left  BoundExpr
	Right BoundExpr
}

// BoundAssignExpr preserves compound-assignment operators as-is; the
// `target op= value` desugaring into `target = target op value` is
// internal/hlir's job at lowering time (spec §4.4, §4.6), not the
// binder's.
type BoundAssignExpr struct {
	ExprHeader
	Op     syntax.AssignOp
	Target BoundExpr
	Value  BoundExpr
}

// BoundErrorExpr stands in for a syntax.ErrorNode or any expression the
// binder could not make sense of, so later passes can skip it without a
// nil check at every call site (spec §7).
type BoundErrorExpr struct{ ExprHeader }

func (*BoundLiteralExpr) boundExpr()      {}
func (*BoundNameExpr) boundExpr()         {}
func (*BoundThisExpr) boundExpr()         {}
func (*BoundMemberAccessExpr) boundExpr() {}
func (*BoundIndexExpr) boundExpr()        {}
func (*BoundCallExpr) boundExpr()         {}
func (*BoundNewExpr) boundExpr()          {}
func (*BoundUnaryExpr) boundExpr()        {}
func (*BoundBinaryExpr) boundExpr()       {}
func (*BoundAssignExpr) boundExpr()       {}
func (*BoundErrorExpr) boundExpr()        {}

// ---- statements ----

type StmtHeader struct {
	Location source.Location
}

func (h *StmtHeader) Loc() source.Location { return h.Location }

type BoundBlockStmt struct {
	StmtHeader
	Stmts []BoundStmt
}

type BoundExprStmt struct {
	StmtHeader
	Expr BoundExpr
}

// BoundVariableDeclarator is one `name` or `name = initializer` entry
// within a BoundLocalVarDeclStmt.
type BoundVariableDeclarator struct {
	Location    source.Location
	Symbol      *symbols.Symbol
	Initializer BoundExpr // nil if uninitialized
}

type BoundLocalVarDeclStmt struct {
	StmtHeader
	Declarators []*BoundVariableDeclarator
}

type BoundIfStmt struct {
	StmtHeader
	Cond BoundExpr
	Then BoundStmt
	Else BoundStmt // nil if there is no else branch
}

type BoundWhileStmt struct {
	StmtHeader
	Cond BoundExpr
	Body BoundStmt
}

type BoundForStmt struct {
	StmtHeader
	Init   BoundStmt // nil, a BoundExprStmt, or a BoundLocalVarDeclStmt
	Cond   BoundExpr // nil means "always true"
	Update BoundExpr // nil means no update expression
	Body   BoundStmt
}

type BoundReturnStmt struct {
	StmtHeader
	Value BoundExpr // nil for `return;`
}

type BoundBreakStmt struct{ StmtHeader }
type BoundContinueStmt struct{ StmtHeader }
type BoundErrorStmt struct{ StmtHeader }

func (*BoundBlockStmt) boundStmt()        {}
func (*BoundExprStmt) boundStmt()         {}
func (*BoundLocalVarDeclStmt) boundStmt() {}
func (*BoundIfStmt) boundStmt()           {}
func (*BoundWhileStmt) boundStmt()        {}
func (*BoundForStmt) boundStmt()          {}
func (*BoundReturnStmt) boundStmt()       {}
func (*BoundBreakStmt) boundStmt()        {}
func (*BoundContinueStmt) boundStmt()     {}
func (*BoundErrorStmt) boundStmt()        {}

// ---- declarations ----

// BoundFunctionDecl covers every bound function-shaped declaration: a
// method, a constructor, a destructor, or a top-level external method.
// Its parameter list and every flag (virtual/override/constructor/
// external) live on Symbol, so they are not duplicated here.
type BoundFunctionDecl struct {
	Location source.Location
	Symbol   *symbols.Symbol
	Body     *BoundBlockStmt // nil for an external/abstract function
}

// BoundPropertyAccessor is a property's getter or setter body, bound as an
// ordinary function keyed by its own Function symbol (spec §4.4: "a
// property's getter/setter body is a BoundPropertyAccessor whose
// function_symbol points to the child function symbol, enabling ordinary
// function-level lowering").
type BoundPropertyAccessor struct {
	Location       source.Location
	FunctionSymbol *symbols.Symbol
	Body           *BoundBlockStmt // nil for an auto-property accessor (`get;`/`set;`)
}

// BoundTypeDecl is a bound class: its own Symbol plus every method,
// constructor, destructor, and property accessor body it declares. Fields
// need no bound representation; their shape is fully captured by Symbol's
// FieldOrder.
type BoundTypeDecl struct {
	Location  source.Location
	Symbol    *symbols.Symbol
	Functions []*BoundFunctionDecl
	Accessors []*BoundPropertyAccessor
}

// BoundUsingDirective is a `using a.b.c;` directive. TargetNamespace is
// filled by internal/resolve (spec §4.5).
type BoundUsingDirective struct {
	Location        source.Location
	Path            []string
	TargetNamespace *symbols.Symbol
}

// BoundCompilationUnit is the root of one bound source file.
type BoundCompilationUnit struct {
	Filename  string
	Usings    []*BoundUsingDirective
	Types     []*BoundTypeDecl
	Functions []*BoundFunctionDecl // top-level external method declarations
}
