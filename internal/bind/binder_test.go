package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

func bindSource(t *testing.T, src string) (*BoundCompilationUnit, []string) {
	t.Helper()
	stream, lexErrs := lexer.Lex(src, "test.nova")
	require.Empty(t, lexErrs)
	cu, parseErrs := syntax.Parse(stream, "test.nova")
	require.Empty(t, parseErrs)
	ts := types.NewSystem()
	tree, symErrs := symbols.Build(cu, ts)
	require.Empty(t, symErrs)
	bcu, errs := Bind(cu, tree, ts)
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return bcu, msgs
}

func Test_Bind_implicitThisSynthesized(t *testing.T) {
	bcu, errs := bindSource(t, `class C { int x; int get() { return x; } }`)
	assert.Empty(t, errs)
	get := bcu.Types[0].Functions[0] // field x has no bound node; "get" is the only bound function
	require.Equal(t, "get", get.Symbol.Name)
	ret := get.Body.Stmts[0].(*BoundReturnStmt)
	mem := ret.Value.(*BoundMemberAccessExpr)
	assert.Equal(t, "x", mem.Member)
	_, ok := mem.Object.(*BoundThisExpr)
	assert.True(t, ok)
	assert.NotNil(t, mem.MemberSymbol)
	assert.Equal(t, "x", mem.MemberSymbol.Name)
}

func Test_Bind_localVariableNotRewrittenToThis(t *testing.T) {
	bcu, errs := bindSource(t, `class C { int x; int f(int x) { return x; } }`)
	assert.Empty(t, errs)
	fn := bcu.Types[0].Functions[0]
	ret := fn.Body.Stmts[0].(*BoundReturnStmt)
	name, ok := ret.Value.(*BoundNameExpr)
	require.True(t, ok, "local parameter shadows the field and must stay a plain name")
	assert.Equal(t, symbols.ParameterKind, name.Symbol.Kind)
}

func Test_Bind_literalDecodedToConstantValue(t *testing.T) {
	bcu, errs := bindSource(t, `class C { int f() { return 42; } }`)
	assert.Empty(t, errs)
	fn := bcu.Types[0].Functions[0]
	ret := fn.Body.Stmts[0].(*BoundReturnStmt)
	lit := ret.Value.(*BoundLiteralExpr)
	require.NotNil(t, lit.Constant)
	assert.Equal(t, int64(42), lit.Constant.IntValue)
	assert.True(t, lit.Type.IsPrimitive(types.Int))
}

func Test_Bind_compoundAssignmentPreserved(t *testing.T) {
	bcu, errs := bindSource(t, `class C { void f(int x) { x += 1; } }`)
	assert.Empty(t, errs)
	fn := bcu.Types[0].Functions[0]
	es := fn.Body.Stmts[0].(*BoundExprStmt)
	assign := es.Expr.(*BoundAssignExpr)
	assert.Equal(t, syntax.AssignAdd, assign.Op)
}

func Test_Bind_propertyAccessorsBoundAsFunctions(t *testing.T) {
	bcu, errs := bindSource(t, `class C { int X { get { return 1; } set { } } }`)
	assert.Empty(t, errs)
	require.Len(t, bcu.Types[0].Accessors, 2)
	getAcc := bcu.Types[0].Accessors[0]
	assert.Equal(t, "get", getAcc.FunctionSymbol.Name)
	require.NotNil(t, getAcc.Body)
	ret := getAcc.Body.Stmts[0].(*BoundReturnStmt)
	_, ok := ret.Value.(*BoundLiteralExpr)
	assert.True(t, ok)
}

func Test_Bind_newExpressionResolvesTypeImmediately(t *testing.T) {
	bcu, errs := bindSource(t, `class Pt { int x; Pt(int v) { x = v; } } void h() { Pt p = new Pt(3); }`)
	assert.Empty(t, errs)
	require.Len(t, bcu.Functions, 1)
	h := bcu.Functions[0]
	decl := h.Body.Stmts[0].(*BoundLocalVarDeclStmt)
	ne := decl.Declarators[0].Initializer.(*BoundNewExpr)
	assert.Equal(t, "Pt", ne.Type.Named.QualifiedName())
	require.Len(t, ne.Args, 1)
}

func Test_Bind_qualifiedChainThroughLocalExpandsToMemberAccess(t *testing.T) {
	bcu, errs := bindSource(t, `class Pt { int x; } class C { void f(Pt p) { p.x; } }`)
	assert.Empty(t, errs)
	fn := bcu.Types[1].Functions[0]
	es := fn.Body.Stmts[0].(*BoundExprStmt)
	mem := es.Expr.(*BoundMemberAccessExpr)
	assert.Equal(t, "x", mem.Member)
	name, ok := mem.Object.(*BoundNameExpr)
	require.True(t, ok)
	assert.Equal(t, symbols.ParameterKind, name.Symbol.Kind)
}

func Test_Bind_breakOutsideLoopStillBindsWithoutPanic(t *testing.T) {
	bcu, errs := bindSource(t, `class C { void f() { break; } }`)
	assert.Empty(t, errs)
	fn := bcu.Types[0].Functions[0]
	_, ok := fn.Body.Stmts[0].(*BoundBreakStmt)
	assert.True(t, ok)
}
