package nova

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/hlir"
)

func findFunc(t *testing.T, m *hlir.Module, simpleName string) *hlir.Function {
	t.Helper()
	for _, f := range m.Functions {
		if f.Symbol.Name == simpleName {
			return f
		}
	}
	t.Fatalf("no function named %q in module", simpleName)
	return nil
}

func opcodes(b *hlir.Block) []hlir.Opcode {
	ops := make([]hlir.Opcode, len(b.Instructions))
	for i, instr := range b.Instructions {
		ops[i] = instr.Op
	}
	return ops
}

func Test_Compile_simpleArithmeticFunction(t *testing.T) {
	m, errs := Compile(`class C { int add(int a, int b) { return a + b; } }`, "test.nova")
	require.Empty(t, errs)
	fn := findFunc(t, m, "add")
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, []hlir.Opcode{hlir.OpAdd, hlir.OpRet}, opcodes(fn.Blocks[0]))
}

func Test_Compile_ifWithElseProducesFourBlocks(t *testing.T) {
	m, errs := Compile(`int f(int x) { if (x == 0) return 1; else return 2; }`, "test.nova")
	require.Empty(t, errs)
	fn := findFunc(t, m, "f")
	require.Len(t, fn.Blocks, 4)
	names := []string{fn.Blocks[0].Name, fn.Blocks[1].Name, fn.Blocks[2].Name, fn.Blocks[3].Name}
	assert.Equal(t, []string{"entry", "then", "else", "merge"}, names)

	then := fn.Blocks[1]
	last := then.Terminator()
	require.NotNil(t, last)
	assert.Equal(t, hlir.OpRet, last.Op)
	assert.EqualValues(t, 1, last.Operands[0].Def.ConstInt)

	elseB := fn.Blocks[2]
	last = elseB.Terminator()
	require.NotNil(t, last)
	assert.EqualValues(t, 2, last.Operands[0].Def.ConstInt)

	merge := fn.Blocks[3]
	assert.Nil(t, merge.Terminator())
}

func Test_Compile_whileLoopWithBreak(t *testing.T) {
	m, errs := Compile(`void g() { while (true) { break; } }`, "test.nova")
	require.Empty(t, errs)
	fn := findFunc(t, m, "g")
	require.Len(t, fn.Blocks, 4)
	names := []string{fn.Blocks[0].Name, fn.Blocks[1].Name, fn.Blocks[2].Name, fn.Blocks[3].Name}
	assert.Equal(t, []string{"entry", "header", "body", "exit"}, names)

	header := fn.Blocks[1]
	hterm := header.Terminator()
	require.NotNil(t, hterm)
	assert.Equal(t, hlir.OpCondBr, hterm.Op)

	body := fn.Blocks[2]
	bterm := body.Terminator()
	require.NotNil(t, bterm)
	assert.Equal(t, hlir.OpBr, bterm.Op)

	exit := fn.Blocks[3]
	eterm := exit.Terminator()
	require.NotNil(t, eterm)
	assert.Equal(t, hlir.OpRet, eterm.Op)
}

func Test_Compile_implicitThisFieldAccess(t *testing.T) {
	m, errs := Compile(`class C { int x; int get() { return x; } }`, "test.nova")
	require.Empty(t, errs)
	fn := findFunc(t, m, "get")
	require.Len(t, fn.Blocks, 1)
	ops := opcodes(fn.Blocks[0])
	require.Len(t, ops, 3)
	assert.Equal(t, []hlir.Opcode{hlir.OpFieldAddr, hlir.OpLoad, hlir.OpRet}, ops)

	fieldAddr := fn.Blocks[0].Instructions[0]
	assert.Same(t, fn.Params[0], fieldAddr.Operands[0])
	assert.Equal(t, 0, fieldAddr.FieldIndex)
}

func Test_Compile_constructorCallOnNew(t *testing.T) {
	m, errs := Compile(`
		class Pt { int x; Pt(int v) { x = v; } }
		void h() { Pt p = new Pt(3); }
	`, "test.nova")
	require.Empty(t, errs)
	fn := findFunc(t, m, "h")
	require.Len(t, fn.Blocks, 1)
	instrs := fn.Blocks[0].Instructions
	require.Len(t, instrs, 4)
	assert.Equal(t, hlir.OpAlloc, instrs[0].Op)
	assert.Equal(t, hlir.OpConstInt, instrs[1].Op)
	assert.Equal(t, hlir.OpCall, instrs[2].Op)
	require.NotNil(t, instrs[2].Callee)
	assert.True(t, instrs[2].Callee.IsConstructor)
	assert.Same(t, instrs[0].Result, instrs[2].Operands[0])
	assert.Same(t, instrs[1].Result, instrs[2].Operands[1])
	assert.Equal(t, hlir.OpRet, instrs[3].Op)
}

func Test_Compile_overloadResolutionErrorReportsNoMatch(t *testing.T) {
	src := `
		int f(int a) { return a; }
		int f(bool b) { return 0; }
		int caller() { return f(1.0); }
	`
	m, errs := Compile(src, "test.nova")
	assert.Nil(t, m)
	require.Len(t, errs, 1)
	assert.Equal(t, "ResolutionError", errs[0].Kind.String())
	assert.Contains(t, errs[0].Message, "no matching overload")
}
