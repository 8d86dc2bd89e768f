package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

func build(t *testing.T, src string) (*ScopeTree, *syntax.CompilationUnit, []string) {
	t.Helper()
	stream, lexErrs := lexer.Lex(src, "test.nova")
	require.Empty(t, lexErrs)
	cu, parseErrs := syntax.Parse(stream, "test.nova")
	require.Empty(t, parseErrs)
	ts := types.NewSystem()
	tree, errs := Build(cu, ts)
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return tree, cu, msgs
}

func Test_Build_namespaceNestingAndQualifiedName(t *testing.T) {
	tree, _, errs := build(t, `namespace a.b; class C { void f() { } }`)
	assert.Empty(t, errs)
	b, ok := tree.Root.Lookup("a")
	require.True(t, ok)
	bSym := b[0]
	innerSyms, ok := bSym.Lookup("b")
	require.True(t, ok)
	inner := innerSyms[0]
	classSyms, ok := inner.Lookup("C")
	require.True(t, ok)
	assert.Equal(t, "a.b.C", classSyms[0].QualifiedName())
}

func Test_Build_duplicateFieldIsError(t *testing.T) {
	_, _, errs := build(t, `class C { int x; int x; }`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate definition")
}

func Test_Build_overloadedMethodsAllowed(t *testing.T) {
	tree, _, errs := build(t, `class C { void f() { } void f(int x) { } }`)
	assert.Empty(t, errs)
	classSyms, _ := tree.Root.Lookup("C")
	cls := classSyms[0]
	fs, ok := cls.Lookup("f")
	require.True(t, ok)
	assert.Len(t, fs, 2)
}

func Test_Build_namedFieldTypeResolvesToDeclaredClass(t *testing.T) {
	tree, _, errs := build(t, `class Pt { int x; } class C { Pt p; }`)
	assert.Empty(t, errs)
	classSyms, _ := tree.Root.Lookup("C")
	pField, ok := classSyms[0].Lookup("p")
	require.True(t, ok)
	assert.Equal(t, types.Named, pField[0].DeclaredType.Kind)
	assert.Equal(t, "Pt", pField[0].DeclaredType.Named.QualifiedName())
}

func Test_Build_unknownTypeIsError(t *testing.T) {
	_, _, errs := build(t, `class C { Ghost g; }`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown type")
}

func Test_Build_virtualMethodsRecordedInVirtualOrder(t *testing.T) {
	tree, _, errs := build(t, `class C { virtual void f() { } void g() { } virtual void h() { } }`)
	assert.Empty(t, errs)
	classSyms, _ := tree.Root.Lookup("C")
	cls := classSyms[0]
	require.Len(t, cls.VirtualOrder, 2)
	assert.Equal(t, "f", cls.VirtualOrder[0].Name)
	assert.Equal(t, "h", cls.VirtualOrder[1].Name)
}

func Test_Build_propertyCreatesGetSetFunctionSymbols(t *testing.T) {
	tree, _, errs := build(t, `class C { int X { get; set; } }`)
	assert.Empty(t, errs)
	classSyms, _ := tree.Root.Lookup("C")
	props, ok := classSyms[0].Lookup("X")
	require.True(t, ok)
	prop := props[0]
	assert.Equal(t, PropertyKind, prop.Kind)
	getters, ok := prop.Lookup("get")
	require.True(t, ok)
	assert.Equal(t, types.Int, getters[0].ReturnType.Prim)
	setters, ok := prop.Lookup("set")
	require.True(t, ok)
	require.Len(t, setters[0].Params, 1)
}

func Test_Build_localVariableScopedToBlock(t *testing.T) {
	tree, cu, errs := build(t, `class C { void f() { { int x; } } }`)
	assert.Empty(t, errs)
	cls := cu.Decls[0].(*syntax.TypeDecl)
	method := cls.Members[0].(*syntax.MethodDecl)
	outerBlock := method.Body
	outerScope := tree.ScopeOf(outerBlock)
	require.NotNil(t, outerScope)
	_, ok := outerScope.Lookup("x")
	assert.False(t, ok, "x should not be visible in the method's own scope, only the nested block")

	innerBlockStmt := outerBlock.Stmts[0].(*syntax.BlockStmt)
	innerScope := tree.ScopeOf(innerBlockStmt)
	_, ok = innerScope.Lookup("x")
	assert.True(t, ok)
}

func Test_Build_forLoopVariableScopedToSyntheticForScope(t *testing.T) {
	tree, cu, errs := build(t, `class C { void f() { for (int i = 0; i < 1; i = i + 1) { } } }`)
	assert.Empty(t, errs)
	cls := cu.Decls[0].(*syntax.TypeDecl)
	method := cls.Members[0].(*syntax.MethodDecl)
	forStmt := method.Body.Stmts[0].(*syntax.ForStmt)
	forScope := tree.ScopeOf(forStmt)
	require.NotNil(t, forScope)
	assert.Equal(t, forScopeName, forScope.Name)
	_, ok := forScope.Lookup("i")
	assert.True(t, ok)
}

func Test_Build_enclosingTypeAndFunction(t *testing.T) {
	tree, cu, errs := build(t, `class C { void f() { int y; } }`)
	assert.Empty(t, errs)
	cls := cu.Decls[0].(*syntax.TypeDecl)
	method := cls.Members[0].(*syntax.MethodDecl)
	bodyScope := tree.ScopeOf(method.Body)
	assert.Equal(t, "C", EnclosingType(bodyScope).Name)
	assert.Equal(t, "f", EnclosingFunction(bodyScope).Name)
}

func Test_Build_lookupChainFindsEnclosingField(t *testing.T) {
	tree, cu, errs := build(t, `class C { int x; void f() { { int y; } } } `)
	assert.Empty(t, errs)
	cls := cu.Decls[0].(*syntax.TypeDecl)
	method := cls.Members[1].(*syntax.MethodDecl)
	inner := method.Body.Stmts[0].(*syntax.BlockStmt)
	innerScope := tree.ScopeOf(inner)
	syms, ok := LookupChain(innerScope, "x")
	require.True(t, ok)
	assert.Equal(t, FieldKind, syms[0].Kind)
	_ = tree
}
