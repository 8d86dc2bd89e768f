package hlir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/nova/internal/bind"
	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/resolve"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

func lowerSource(t *testing.T, src string) (*Module, []string) {
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
	resolveErrs := resolve.Resolve(bcu, tree, ts)
	require.Empty(t, resolveErrs)
	m, errs := Lower(bcu, tree, ts)
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return m, msgs
}

func findFunc(t *testing.T, m *Module, simpleName string) *Function {
	t.Helper()
	for _, f := range m.Functions {
		if f.Symbol.Name == simpleName {
			return f
		}
	}
	t.Fatalf("no function named %q in module", simpleName)
	return nil
}

func opcodes(b *Block) []Opcode {
	ops := make([]Opcode, len(b.Instructions))
	for i, instr := range b.Instructions {
		ops[i] = instr.Op
	}
	return ops
}

func Test_Lower_simpleArithmeticFunction(t *testing.T) {
	m, errs := lowerSource(t, `class C { int add(int a, int b) { return a + b; } }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "add")
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, []Opcode{OpAdd, OpRet}, opcodes(fn.Blocks[0]))
	addInstr := fn.Blocks[0].Instructions[0]
	// params: [this, a, b] since add is an instance method
	require.Len(t, fn.Params, 3)
	assert.Same(t, fn.Params[1], addInstr.Operands[0])
	assert.Same(t, fn.Params[2], addInstr.Operands[1])
	retInstr := fn.Blocks[0].Instructions[1]
	assert.Same(t, addInstr.Result, retInstr.Operands[0])
}

func Test_Lower_ifWithElseProducesFourBlocks(t *testing.T) {
	m, errs := lowerSource(t, `int f(int x) { if (x == 0) return 1; else return 2; }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "f")
	require.Len(t, fn.Blocks, 4)
	names := []string{fn.Blocks[0].Name, fn.Blocks[1].Name, fn.Blocks[2].Name, fn.Blocks[3].Name}
	assert.Equal(t, []string{"entry", "then", "else", "merge"}, names)

	then := fn.Blocks[1]
	require.NotEmpty(t, then.Instructions)
	last := then.Instructions[len(then.Instructions)-1]
	assert.Equal(t, OpRet, last.Op)
	assert.Equal(t, OpConstInt, last.Operands[0].Def.Op)
	assert.EqualValues(t, 1, last.Operands[0].Def.ConstInt)

	elseB := fn.Blocks[2]
	last = elseB.Instructions[len(elseB.Instructions)-1]
	assert.Equal(t, OpRet, last.Op)
	assert.EqualValues(t, 2, last.Operands[0].Def.ConstInt)

	merge := fn.Blocks[3]
	assert.Empty(t, merge.Instructions)
}

func Test_Lower_whileLoopWithBreak(t *testing.T) {
	m, errs := lowerSource(t, `void g() { while (true) { break; } }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "g")
	require.Len(t, fn.Blocks, 4)
	names := []string{fn.Blocks[0].Name, fn.Blocks[1].Name, fn.Blocks[2].Name, fn.Blocks[3].Name}
	assert.Equal(t, []string{"entry", "header", "body", "exit"}, names)

	header := fn.Blocks[1]
	term := header.Terminator()
	require.NotNil(t, term)
	assert.Equal(t, OpCondBr, term.Op)
	assert.Equal(t, []*Block{fn.Blocks[2], fn.Blocks[3]}, term.Targets)

	body := fn.Blocks[2]
	require.Len(t, body.Instructions, 1)
	assert.Equal(t, OpBr, body.Instructions[0].Op)
	assert.Equal(t, fn.Blocks[3], body.Instructions[0].Targets[0])

	exit := fn.Blocks[3]
	require.Len(t, exit.Instructions, 1)
	assert.Equal(t, OpRet, exit.Instructions[0].Op)
}

func Test_Lower_whileLoopCarriesVariableThroughHeaderPhi(t *testing.T) {
	m, errs := lowerSource(t, `int f() { int i = 0; while (i < 10) { i = i + 1; } return i; }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "f")
	require.Len(t, fn.Blocks, 4)
	entry, header, body, exit := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	require.NotEmpty(t, header.Instructions)
	phi := header.Instructions[0]
	assert.Equal(t, OpPhi, phi.Op)
	require.Len(t, phi.Operands, 2)
	require.Len(t, phi.PhiSources, 2)
	assert.Equal(t, entry, phi.PhiSources[0])
	assert.Equal(t, body, phi.PhiSources[1])
	assert.Equal(t, OpConstInt, phi.Operands[0].Def.Op)
	assert.EqualValues(t, 0, phi.Operands[0].Def.ConstInt)

	// the body's "i = i + 1" must read the phi's result, not the stale
	// preheader value, and feed its own result back as the phi's other
	// operand.
	add := phi.Operands[1].Def
	assert.Equal(t, OpAdd, add.Op)
	assert.Same(t, phi.Result, add.Operands[0])

	var cond *Instruction
	for _, instr := range header.Instructions {
		if instr.Op == OpLt {
			cond = instr
		}
	}
	require.NotNil(t, cond)
	assert.Same(t, phi.Result, cond.Operands[0])

	// "return i" in exit must read the phi directly: the body's add does
	// not dominate exit (exit is reached only via header's false edge).
	ret := exit.Instructions[len(exit.Instructions)-1]
	assert.Equal(t, OpRet, ret.Op)
	assert.Same(t, phi.Result, ret.Operands[0])
}

func Test_Lower_forLoopCarriesUpdateVariableThroughHeaderPhi(t *testing.T) {
	m, errs := lowerSource(t, `void f() { for (int i = 0; i < 3; i = i + 1) { } }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "f")
	require.Len(t, fn.Blocks, 5)
	entry, header, update := fn.Blocks[0], fn.Blocks[1], fn.Blocks[3]

	require.NotEmpty(t, header.Instructions)
	phi := header.Instructions[0]
	assert.Equal(t, OpPhi, phi.Op)
	require.Len(t, phi.Operands, 2)
	assert.Equal(t, entry, phi.PhiSources[0])
	assert.Equal(t, update, phi.PhiSources[1])

	var add *Instruction
	for _, instr := range update.Instructions {
		if instr.Op == OpAdd {
			add = instr
		}
	}
	require.NotNil(t, add)
	assert.Same(t, phi.Result, add.Operands[0])

	var cond *Instruction
	for _, instr := range header.Instructions {
		if instr.Op == OpLt {
			cond = instr
		}
	}
	require.NotNil(t, cond)
	assert.Same(t, phi.Result, cond.Operands[0])
}

func Test_Lower_implicitThisFieldAccess(t *testing.T) {
	m, errs := lowerSource(t, `class C { int x; int get() { return x; } }`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "get")
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, []Opcode{OpFieldAddr, OpLoad, OpRet}, opcodes(fn.Blocks[0]))
	faddr := fn.Blocks[0].Instructions[0]
	assert.Same(t, fn.Params[0], faddr.Operands[0])
	assert.Equal(t, 0, faddr.FieldIndex)
	load := fn.Blocks[0].Instructions[1]
	assert.Same(t, faddr.Result, load.Operands[0])
	ret := fn.Blocks[0].Instructions[2]
	assert.Same(t, load.Result, ret.Operands[0])
}

func Test_Lower_constructorCallOnNew(t *testing.T) {
	m, errs := lowerSource(t, `
		class Pt { int x; Pt(int v) { x = v; } }
		void h() { Pt p = new Pt(3); }
	`)
	assert.Empty(t, errs)
	fn := findFunc(t, m, "h")
	require.Len(t, fn.Blocks, 1)
	instrs := fn.Blocks[0].Instructions
	require.Len(t, instrs, 4)
	assert.Equal(t, OpAlloc, instrs[0].Op)
	assert.Equal(t, OpConstInt, instrs[1].Op)
	assert.Equal(t, OpCall, instrs[2].Op)
	require.NotNil(t, instrs[2].Callee)
	assert.True(t, instrs[2].Callee.IsConstructor)
	assert.Same(t, instrs[0].Result, instrs[2].Operands[0])
	assert.Same(t, instrs[1].Result, instrs[2].Operands[1])
	assert.Equal(t, OpRet, instrs[3].Op)
}

func Test_Lower_overloadResolutionFailureReportsAtCall(t *testing.T) {
	stream, lexErrs := lexer.Lex(`
		int f(int x) { return x; }
		int f(bool x) { return 1; }
		void g() { f(1.0); }
	`, "test.nova")
	require.Empty(t, lexErrs)
	cu, parseErrs := syntax.Parse(stream, "test.nova")
	require.Empty(t, parseErrs)
	ts := types.NewSystem()
	tree, symErrs := symbols.Build(cu, ts)
	require.Empty(t, symErrs)
	bcu, bindErrs := bind.Bind(cu, tree, ts)
	require.Empty(t, bindErrs)
	resolveErrs := resolve.Resolve(bcu, tree, ts)
	require.Len(t, resolveErrs, 1)
	assert.Contains(t, resolveErrs[0].Error(), "no matching overload")

	_, lowerErrs := Lower(bcu, tree, ts)
	require.Len(t, lowerErrs, 1)
	assert.Contains(t, lowerErrs[0].Error(), "LoweringError")
}

func Test_Lower_breakOutsideLoopReportsErrorAndEmitsNoTerminatorFromBreak(t *testing.T) {
	m, errs := lowerSource(t, `void g() { break; }`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "break outside loop")
	fn := findFunc(t, m, "g")
	require.Len(t, fn.Blocks, 1)
	require.Len(t, fn.Blocks[0].Instructions, 1)
	assert.Equal(t, OpRet, fn.Blocks[0].Instructions[0].Op)
}

func Test_Lower_virtualCallUsesCallVirtualOpcode(t *testing.T) {
	m, errs := lowerSource(t, `
		class Animal { virtual int legs() { return 4; } }
		class Dog : Animal { override int legs() { return 4; } }
		void g(Animal a) { a.legs(); }
	`)
	assert.Empty(t, errs)
	dogDef := func() *TypeDefinition {
		for _, td := range m.TypeDefinitions {
			if td.Symbol.Name == "Dog" {
				return td
			}
		}
		t.Fatal("no TypeDefinition for Dog")
		return nil
	}()
	require.Len(t, dogDef.VTable, 1)
	assert.Equal(t, 0, dogDef.VTable[0].VTableSlot)

	fn := findFunc(t, m, "g")
	var callInstr *Instruction
	for _, instr := range fn.Blocks[0].Instructions {
		if instr.Op == OpCallVirtual {
			callInstr = instr
		}
	}
	require.NotNil(t, callInstr)
}
