package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/bind"
	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

func resolveSource(t *testing.T, src string) (*bind.BoundCompilationUnit, []string) {
	t.Helper()
	stream, lexErrs := lexer.Lex(src, "test.nova")
	require.Empty(t, lexErrs)
	cu, parseErrs := syntax.Parse(stream, "test.nova")
	require.Empty(t, parseErrs)
	ts := types.NewSystem()
	tree, symErrs := symbols.Build(cu, ts)
	require.Empty(t, symErrs)
	bcu, bindErrs := bind.Bind(cu, tree, ts)
	require.Empty(t, bindErrs)
	errs := Resolve(bcu, tree, ts)
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return bcu, msgs
}

func Test_Resolve_noMatchingOverloadReportedVerbatim(t *testing.T) {
	// spec §8 scenario: int f(int) / int f(bool) called with f(1.0) yields
	// exactly one ResolutionError, worded "no matching overload".
	_, errs := resolveSource(t, `
		int f(int x) { return x; }
		int f(bool x) { return 1; }
		void g() { f(1.0); }
	`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no matching overload")
	assert.Contains(t, errs[0], "ResolutionError")
}

func Test_Resolve_ambiguousCallReported(t *testing.T) {
	_, errs := resolveSource(t, `
		int f(int x) { return x; }
		int f(long x) { return 1; }
		void g() { f(1); }
	`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "ambiguous")
}

func Test_Resolve_uniqueOverloadResolvesCall(t *testing.T) {
	bcu, errs := resolveSource(t, `
		int f(int x) { return x; }
		void g() { f(1); }
	`)
	assert.Empty(t, errs)
	g := bcu.Functions[1]
	es := g.Body.Stmts[0].(*bind.BoundExprStmt)
	call := es.Expr.(*bind.BoundCallExpr)
	require.NotNil(t, call.Method)
	assert.Equal(t, "f", call.Method.Name)
}

func Test_Resolve_memberCallOnObjectType(t *testing.T) {
	bcu, errs := resolveSource(t, `
		class Pt { int get() { return 1; } }
		void g(Pt p) { p.get(); }
	`)
	assert.Empty(t, errs)
	g := bcu.Functions[0]
	es := g.Body.Stmts[0].(*bind.BoundExprStmt)
	call := es.Expr.(*bind.BoundCallExpr)
	require.NotNil(t, call.Method)
	assert.Equal(t, "get", call.Method.Name)
	mem := call.Callee.(*bind.BoundMemberAccessExpr)
	assert.Same(t, call.Method, mem.MemberSymbol)
}

func Test_Resolve_constructorResolvedByArgumentCount(t *testing.T) {
	bcu, errs := resolveSource(t, `
		class Pt { int x; Pt(int v) { x = v; } }
		void g() { Pt p = new Pt(3); }
	`)
	assert.Empty(t, errs)
	g := bcu.Functions[0]
	decl := g.Body.Stmts[0].(*bind.BoundLocalVarDeclStmt)
	ne := decl.Declarators[0].Initializer.(*bind.BoundNewExpr)
	require.NotNil(t, ne.Constructor)
	assert.True(t, ne.Constructor.IsConstructor)
}

func Test_Resolve_typeWithNoConstructorIsNotAnError(t *testing.T) {
	bcu, errs := resolveSource(t, `
		class Pt { int x; }
		void g() { Pt p = new Pt(); }
	`)
	assert.Empty(t, errs)
	g := bcu.Functions[0]
	decl := g.Body.Stmts[0].(*bind.BoundLocalVarDeclStmt)
	ne := decl.Declarators[0].Initializer.(*bind.BoundNewExpr)
	assert.Nil(t, ne.Constructor)
}

func Test_Resolve_memberAccessThroughBaseClass(t *testing.T) {
	bcu, errs := resolveSource(t, `
		class Animal { int legs; }
		class Dog : Animal { int f() { return this.legs; } }
	`)
	assert.Empty(t, errs)
	dog := bcu.Types[1]
	require.Equal(t, []string{"Animal"}, dog.Symbol.BaseQualified)
	fn := dog.Functions[0]
	ret := fn.Body.Stmts[0].(*bind.BoundReturnStmt)
	mem, ok := ret.Value.(*bind.BoundMemberAccessExpr)
	require.True(t, ok)
	require.NotNil(t, mem.MemberSymbol)
	assert.Equal(t, "legs", mem.MemberSymbol.Name)
}

func Test_Resolve_undefinedNameReportsResolutionError(t *testing.T) {
	_, errs := resolveSource(t, `void g() { doesNotExist; }`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "undefined name")
}

func Test_Resolve_usingDirectiveTargetNamespace(t *testing.T) {
	bcu, errs := resolveSource(t, `
		using Game.Entities;
		namespace Game.Entities { class Player {} }
	`)
	assert.Empty(t, errs)
	require.NotNil(t, bcu.Usings[0].TargetNamespace)
	assert.Equal(t, symbols.NamespaceKind, bcu.Usings[0].TargetNamespace.Kind)
	assert.Equal(t, "Game.Entities", bcu.Usings[0].TargetNamespace.QualifiedName())
}

func Test_Resolve_indexExpressionUsesItemProperty(t *testing.T) {
	bcu, errs := resolveSource(t, `
		class Arr { int Item { get { return 0; } set { } } }
		void g(Arr a) { a[0]; }
	`)
	assert.Empty(t, errs)
	g := bcu.Functions[0]
	es := g.Body.Stmts[0].(*bind.BoundExprStmt)
	idx := es.Expr.(*bind.BoundIndexExpr)
	require.NotNil(t, idx.IndexerProperty)
	assert.Equal(t, "Item", idx.IndexerProperty.Name)
}

func Test_Resolve_isIdempotentAcrossRepeatedRuns(t *testing.T) {
	src := `
		class Pt { int x; int get() { return x; } }
		void g(Pt p) { p.get(); }
	`
	stream, lexErrs := lexer.Lex(src, "test.nova")
	require.Empty(t, lexErrs)
	cu, parseErrs := syntax.Parse(stream, "test.nova")
	require.Empty(t, parseErrs)
	ts := types.NewSystem()
	tree, symErrs := symbols.Build(cu, ts)
	require.Empty(t, symErrs)
	bcu, bindErrs := bind.Bind(cu, tree, ts)
	require.Empty(t, bindErrs)

	errs1 := Resolve(bcu, tree, ts)
	g := bcu.Functions[0]
	es := g.Body.Stmts[0].(*bind.BoundExprStmt)
	call := es.Expr.(*bind.BoundCallExpr)
	firstMethod := call.Method
	require.NotNil(t, firstMethod)

	errs2 := Resolve(bcu, tree, ts)
	assert.Empty(t, errs1)
	assert.Empty(t, errs2)
	assert.Same(t, firstMethod, call.Method)
}
