// Package hlir implements Nova's high-level IR (spec §4.6): a basic-block,
// SSA-valued module built from the bound tree once symbol resolution has
// finished. Its state-objects-linked-by-named-transitions shape (a Block
// holding explicit Preds/Succs, a Function holding an ordered Blocks slice)
// generalizes the control-flow graph the teacher builds one state at a time
// in internal/tunascript/automaton.go to a true basic-block IR.
package hlir

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/types"
)

// Opcode names an IR instruction per spec §4.6's lowering-rule table.
type Opcode int

const (
	OpConstInt Opcode = iota
	OpConstFloat
	OpConstBool
	OpConstString
	OpConstNull
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNotEq
	OpLt
	OpGt
	OpLtEq
	OpGtEq
	OpOr
	OpAnd
	OpNeg
	OpNot
	OpFieldAddr
	OpElementAddr
	OpLoad
	OpStore
	OpAlloc
	OpCall
	OpCallVirtual
	OpRet
	OpBr
	OpCondBr
	OpPhi
)

func (op Opcode) String() string {
	switch op {
	case OpConstInt:
		return "const.int"
	case OpConstFloat:
		return "const.float"
	case OpConstBool:
		return "const.bool"
	case OpConstString:
		return "const.string"
	case OpConstNull:
		return "const.null"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpEq:
		return "eq"
	case OpNotEq:
		return "neq"
	case OpLt:
		return "lt"
	case OpGt:
		return "gt"
	case OpLtEq:
		return "lteq"
	case OpGtEq:
		return "gteq"
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	case OpFieldAddr:
		return "fieldaddr"
	case OpElementAddr:
		return "elementaddr"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpAlloc:
		return "alloc"
	case OpCall:
		return "call"
	case OpCallVirtual:
		return "callvirt"
	case OpRet:
		return "ret"
	case OpBr:
		return "br"
	case OpCondBr:
		return "cond_br"
	case OpPhi:
		return "phi"
	default:
		return "?op"
	}
}

// IsTerminator reports whether op may only appear as a block's last
// instruction, per spec §4.6's "block's terminator is the last instruction".
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpRet, OpBr, OpCondBr:
		return true
	default:
		return false
	}
}

// Value is one SSA value: produced by exactly one Instruction (Def), used by
// zero or more others (Uses), per spec §8's "every SSA value has exactly one
// defining instruction" invariant.
type Value struct {
	ID   int
	Type *types.Type
	Def  *Instruction // nil for a Function parameter value
	Uses []*Instruction
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%%%d", v.ID)
}

func (v *Value) addUse(instr *Instruction) {
	v.Uses = append(v.Uses, instr)
}

// Instruction is one IR operation. Result is nil for a void instruction
// (store, br, cond_br, ret).
type Instruction struct {
	Op       Opcode
	Result   *Value
	Operands []*Value

	ConstInt    int64
	ConstFloat  float64
	ConstBool   bool
	ConstString string

	// Field is the struct-shaped field/property symbol an OpFieldAddr
	// addresses, and FieldIndex its position within the owning type's
	// FieldOrder.
	Field      *symbols.Symbol
	FieldIndex int

	// Callee is the target of an OpCall/OpCallVirtual.
	Callee *symbols.Symbol

	// Targets holds successor blocks: one for OpBr, [then, else] for
	// OpCondBr. Empty for OpRet.
	Targets []*Block

	// PhiSources pairs each OpPhi operand with the predecessor block it is
	// selected from, in Operands order.
	PhiSources []*Block
}

func (i *Instruction) String() string {
	var b strings.Builder
	if i.Result != nil {
		fmt.Fprintf(&b, "%s = ", i.Result)
	}
	b.WriteString(i.Op.String())
	switch i.Op {
	case OpConstInt:
		fmt.Fprintf(&b, " %d", i.ConstInt)
	case OpConstFloat:
		fmt.Fprintf(&b, " %g", i.ConstFloat)
	case OpConstBool:
		fmt.Fprintf(&b, " %t", i.ConstBool)
	case OpConstString:
		fmt.Fprintf(&b, " %q", i.ConstString)
	}
	for _, o := range i.Operands {
		fmt.Fprintf(&b, " %s", o)
	}
	if i.Field != nil {
		fmt.Fprintf(&b, ", %d", i.FieldIndex)
	}
	if i.Callee != nil {
		fmt.Fprintf(&b, ", @%s", i.Callee.QualifiedName())
	}
	for _, t := range i.Targets {
		fmt.Fprintf(&b, ", %s", t.Name)
	}
	return b.String()
}

// Block is a maximal straight-line instruction sequence ending in exactly
// one terminator (glossary "Basic block"), wired to its CFG neighbors via
// Preds/Succs rather than implied purely by Targets, so a consumer can walk
// the graph from either direction.
type Block struct {
	Name         string
	Instructions []*Instruction
	Preds        []*Block
	Succs        []*Block
}

// Terminator returns the block's last instruction if it is a terminator,
// or nil if the block is still empty (not yet reached during lowering, per
// spec §8's if/else merge-block scenario) or does not yet end in one.
func (b *Block) Terminator() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Function is one lowered (or pre-created, bodyless) function.
type Function struct {
	Symbol *symbols.Symbol
	Params []*Value
	Blocks []*Block
}

func (f *Function) String() string {
	ed := rosed.Edit("")
	header := fmt.Sprintf("func @%s(%s)", f.Symbol.QualifiedName(), paramList(f.Params))
	if len(f.Blocks) == 0 {
		return header + " {}"
	}
	var body strings.Builder
	for _, b := range f.Blocks {
		fmt.Fprintf(&body, "%s:\n", b.Name)
		for _, instr := range b.Instructions {
			fmt.Fprintf(&body, "%s\n", instr)
		}
	}
	indented := ed.Insert(0, strings.TrimRight(body.String(), "\n")).Indent(1).String()
	return header + " {\n" + indented + "\n}"
}

func paramList(params []*Value) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s: %s", p, p.Type)
	}
	return strings.Join(parts, ", ")
}

// TypeDefinition is a type symbol's lowered shape: its field layout (mirrors
// Symbol.FieldOrder) and its vtable, a vector of method symbols in
// Symbol.VirtualOrder's slot order (spec §4.6 "Vtables").
type TypeDefinition struct {
	Symbol *symbols.Symbol
	Fields []*symbols.Symbol
	VTable []*symbols.Symbol
}

// Module is the IR consumer contract's root: per-module iteration over
// Functions and TypeDefinitions (spec §6).
type Module struct {
	Functions       []*Function
	TypeDefinitions []*TypeDefinition

	nextValueID int
}

func (m *Module) newValue(t *types.Type) *Value {
	v := &Value{ID: m.nextValueID, Type: t}
	m.nextValueID++
	return v
}

// FunctionFor returns the pre-created Function for sym, or nil.
func (m *Module) FunctionFor(sym *symbols.Symbol) *Function {
	for _, f := range m.Functions {
		if f.Symbol == sym {
			return f
		}
	}
	return nil
}

// TypeDefinitionFor returns the pre-created TypeDefinition for sym, or nil.
func (m *Module) TypeDefinitionFor(sym *symbols.Symbol) *TypeDefinition {
	for _, td := range m.TypeDefinitions {
		if td.Symbol == sym {
			return td
		}
	}
	return nil
}

func (m *Module) String() string {
	var b strings.Builder
	for _, td := range m.TypeDefinitions {
		fmt.Fprintf(&b, "type @%s { fields: %d, vtable: %d }\n", td.Symbol.QualifiedName(), len(td.Fields), len(td.VTable))
	}
	for _, f := range m.Functions {
		fmt.Fprintf(&b, "%s\n", f)
	}
	return b.String()
}
