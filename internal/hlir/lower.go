package hlir

import (
	"strconv"
	"strings"

	"github.com/dekarrin/nova/internal/bind"
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
	"github.com/dekarrin/nova/internal/util"
)

// Lower implements spec §4.6: pre-create a Function for every function
// symbol and a TypeDefinition for every type symbol, assign vtable slots,
// then lower every function/accessor body with one in turn.
func Lower(bcu *bind.BoundCompilationUnit, tree *symbols.ScopeTree, ts *types.System) (*Module, []*diag.Error) {
	m := &Module{}
	var errs diag.Collector

	for _, t := range bcu.Types {
		m.TypeDefinitions = append(m.TypeDefinitions, &TypeDefinition{
			Symbol: t.Symbol,
			Fields: append([]*symbols.Symbol(nil), t.Symbol.FieldOrder...),
		})
	}
	assignVTableSlots(bcu)
	for _, td := range m.TypeDefinitions {
		td.VTable = append([]*symbols.Symbol(nil), td.Symbol.VirtualOrder...)
	}

	for _, t := range bcu.Types {
		for _, fn := range t.Functions {
			m.Functions = append(m.Functions, &Function{Symbol: fn.Symbol, Params: buildParams(m, fn.Symbol)})
		}
		for _, acc := range t.Accessors {
			m.Functions = append(m.Functions, &Function{Symbol: acc.FunctionSymbol, Params: buildParams(m, acc.FunctionSymbol)})
		}
	}
	for _, fn := range bcu.Functions {
		m.Functions = append(m.Functions, &Function{Symbol: fn.Symbol, Params: buildParams(m, fn.Symbol)})
	}

	for _, t := range bcu.Types {
		for _, fn := range t.Functions {
			lowerFunctionBody(m, ts, &errs, m.FunctionFor(fn.Symbol), fn.Body)
		}
		for _, acc := range t.Accessors {
			lowerFunctionBody(m, ts, &errs, m.FunctionFor(acc.FunctionSymbol), acc.Body)
		}
	}
	for _, fn := range bcu.Functions {
		lowerFunctionBody(m, ts, &errs, m.FunctionFor(fn.Symbol), fn.Body)
	}

	return m, errs.Errors()
}

// ---- pre-creation helpers ----

// isInstance reports whether fn is called with an implicit receiver: an
// ordinary method/constructor/destructor on a type, or a property accessor
// (always instance-shaped in this grammar -- there is no static-property
// modifier), but never a static method or a top-level external function.
func isInstance(fn *symbols.Symbol) bool {
	if fn.IsStatic {
		return false
	}
	switch fn.Parent.Kind {
	case symbols.TypeKind, symbols.PropertyKind:
		return true
	default:
		return false
	}
}

// instanceOwnerType returns the Type symbol an instance function's implicit
// `this` is typed as.
func instanceOwnerType(fn *symbols.Symbol) *symbols.Symbol {
	switch fn.Parent.Kind {
	case symbols.TypeKind:
		return fn.Parent
	case symbols.PropertyKind:
		return fn.Parent.Parent
	default:
		return nil
	}
}

// buildParams allocates the Function's parameter Values: an implicit `this`
// first (spec §4.6 "This: the current function's first parameter") for
// instance functions, followed by one Value per declared parameter.
func buildParams(m *Module, fn *symbols.Symbol) []*Value {
	var params []*Value
	if isInstance(fn) {
		var thisType *types.Type
		if owner := instanceOwnerType(fn); owner != nil {
			thisType = owner.CanonicalType
		}
		params = append(params, m.newValue(thisType))
	}
	for _, p := range fn.Params {
		params = append(params, m.newValue(p.DeclaredType))
	}
	return params
}

// assignVTableSlots replaces each type's Symbol.VirtualOrder (currently just
// the virtual/override methods declared directly on that type, in
// declaration order, per internal/symbols' builder) with the type's full
// vtable: inherited slots first, an override reusing its base's slot, a new
// virtual appended at the next free slot.
func assignVTableSlots(bcu *bind.BoundCompilationUnit) {
	byQualified := map[string]*symbols.Symbol{}
	for _, t := range bcu.Types {
		byQualified[t.Symbol.QualifiedName()] = t.Symbol
	}
	visited := map[*symbols.Symbol]bool{}
	var assign func(t *symbols.Symbol) []*symbols.Symbol
	assign = func(t *symbols.Symbol) []*symbols.Symbol {
		if visited[t] {
			return t.VirtualOrder
		}
		visited[t] = true
		var baseVTable []*symbols.Symbol
		if len(t.BaseQualified) > 0 {
			if base := byQualified[t.BaseQualified[0]]; base != nil {
				baseVTable = assign(base)
			}
		}
		merged := append([]*symbols.Symbol(nil), baseVTable...)
		for _, fn := range t.VirtualOrder {
			slot := -1
			if fn.IsOverride {
				for i, b := range merged {
					if b.Name == fn.Name && sameSignature(b, fn) {
						slot = i
						break
					}
				}
			}
			if slot >= 0 {
				merged[slot] = fn
				fn.VTableSlot = slot
			} else {
				fn.VTableSlot = len(merged)
				merged = append(merged, fn)
			}
		}
		t.VirtualOrder = merged
		return merged
	}
	for _, t := range bcu.Types {
		assign(t.Symbol)
	}
}

func sameSignature(a, b *symbols.Symbol) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].DeclaredType != b.Params[i].DeclaredType {
			return false
		}
	}
	return true
}

// ---- per-function lowering ----

type loopCtx struct {
	continueTarget *Block
	breakTarget    *Block
}

type funcBuilder struct {
	m          *Module
	ts         *types.System
	errs       *diag.Collector
	fn         *Function
	cur        *Block
	vals       map[*symbols.Symbol]*Value
	loops      []loopCtx
	blockSeq   int
	blockNames util.StringSet
	headerPhis []*headerPhiSet
}

// headerPhiSet tracks the phi instructions placed at a loop header for its
// loop-carried variables while the loop's back edges are still being
// discovered, per spec §4.6's "PendingPhi list ... completed on loop-scope
// exit by looking up each tracked symbol's defining value at each
// predecessor."
type headerPhiSet struct {
	header  *Block
	entries map[*symbols.Symbol]*phiEntry
}

type phiEntry struct {
	instr    *Instruction
	incoming map[*Block]*Value
}

func lowerFunctionBody(m *Module, ts *types.System, errs *diag.Collector, fn *Function, body *bind.BoundBlockStmt) {
	if fn == nil || body == nil {
		return
	}
	fb := &funcBuilder{m: m, ts: ts, errs: errs, fn: fn, vals: map[*symbols.Symbol]*Value{}, blockNames: util.NewStringSet()}
	fb.cur = fb.newBlock("entry")

	offset := 0
	if isInstance(fn.Symbol) {
		offset = 1
	}
	for i, p := range fn.Symbol.Params {
		fb.vals[p] = fn.Params[offset+i]
	}

	fb.lowerBlock(body)
	if !fb.terminated(fb.cur) && fb.reachable(fb.cur) {
		if fn.Symbol.ReturnType == nil || fn.Symbol.ReturnType.IsPrimitive(types.Void) {
			fb.ret(nil)
		} else {
			fb.errs.Add(diag.LoweringError, body.Loc(), "function %q falls off the end without returning a value", fn.Symbol.QualifiedName())
			fb.ret(fb.zeroValue(fn.Symbol.ReturnType))
		}
	}
}

// reachable reports whether b can actually be reached at runtime: either
// it is the function's entry block, or some other block branches into it.
// A trailing block with no predecessors (e.g. the merge block after an
// if/else whose every branch returns) is dead code and must be left empty
// rather than getting a synthesized terminator, per spec §8's if/else
// merge-block scenario.
func (fb *funcBuilder) reachable(b *Block) bool {
	return b == fb.fn.Blocks[0] || len(b.Preds) > 0
}

// newBlock allocates a new block named name, suffixing it with a counter if
// that name is already taken in this function (a nested if/loop reusing
// "then"/"header"/etc).
func (fb *funcBuilder) newBlock(name string) *Block {
	if fb.blockNames.Has(name) {
		fb.blockSeq++
		name = name + itoa(fb.blockSeq)
	}
	fb.blockNames.Add(name)
	b := &Block{Name: name}
	fb.fn.Blocks = append(fb.fn.Blocks, b)
	return b
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func (fb *funcBuilder) terminated(b *Block) bool {
	return b.Terminator() != nil
}

func linkEdge(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

func (fb *funcBuilder) emit(instr *Instruction) *Value {
	for _, o := range instr.Operands {
		if o != nil {
			o.addUse(instr)
		}
	}
	if instr.Result != nil {
		instr.Result.Def = instr
	}
	fb.cur.Instructions = append(fb.cur.Instructions, instr)
	return instr.Result
}

func (fb *funcBuilder) br(target *Block) {
	if fb.terminated(fb.cur) {
		return
	}
	from := fb.cur
	fb.emit(&Instruction{Op: OpBr, Targets: []*Block{target}})
	linkEdge(from, target)
	fb.recordHeaderIncoming(target, from)
}

// recordHeaderIncoming captures, for every loop-carried symbol at an
// active header under construction, the SSA value reaching header along
// the from->header edge just linked -- the natural body-end fallthrough
// as well as any continue statement branching straight to a while's
// header.
func (fb *funcBuilder) recordHeaderIncoming(header, from *Block) {
	for _, set := range fb.headerPhis {
		if set.header != header {
			continue
		}
		for sym, entry := range set.entries {
			if _, ok := entry.incoming[from]; !ok {
				entry.incoming[from] = fb.vals[sym]
			}
		}
	}
}

func (fb *funcBuilder) condBr(cond *Value, thenB, elseB *Block) {
	fb.emit(&Instruction{Op: OpCondBr, Operands: []*Value{cond}, Targets: []*Block{thenB, elseB}})
	linkEdge(fb.cur, thenB)
	linkEdge(fb.cur, elseB)
}

func (fb *funcBuilder) ret(val *Value) {
	if fb.terminated(fb.cur) {
		return
	}
	instr := &Instruction{Op: OpRet}
	if val != nil {
		instr.Operands = []*Value{val}
	}
	fb.emit(instr)
}

func (fb *funcBuilder) emitConstInt(v int64, t *types.Type) *Value {
	instr := &Instruction{Op: OpConstInt, ConstInt: v}
	instr.Result = fb.m.newValue(t)
	fb.emit(instr)
	return instr.Result
}

func (fb *funcBuilder) emitConstFloat(v float64, t *types.Type) *Value {
	instr := &Instruction{Op: OpConstFloat, ConstFloat: v}
	instr.Result = fb.m.newValue(t)
	fb.emit(instr)
	return instr.Result
}

func (fb *funcBuilder) emitConstBool(v bool) *Value {
	instr := &Instruction{Op: OpConstBool, ConstBool: v}
	instr.Result = fb.m.newValue(fb.ts.PrimitiveType(types.Bool))
	fb.emit(instr)
	return instr.Result
}

func (fb *funcBuilder) emitConstString(v string) *Value {
	instr := &Instruction{Op: OpConstString, ConstString: v}
	instr.Result = fb.m.newValue(fb.ts.PrimitiveType(types.String))
	fb.emit(instr)
	return instr.Result
}

func (fb *funcBuilder) emitConstNull(t *types.Type) *Value {
	instr := &Instruction{Op: OpConstNull}
	instr.Result = fb.m.newValue(t)
	fb.emit(instr)
	return instr.Result
}

// zeroValue produces the poison/default value spec §7 calls for ("a poison
// value (typed zero of the expected type)"): an uninitialized local's value
// and a missing-return's placeholder both come through here.
func (fb *funcBuilder) zeroValue(t *types.Type) *Value {
	if t == nil {
		return fb.emitConstNull(nil)
	}
	if t.Kind == types.Primitive {
		switch t.Prim {
		case types.Bool:
			return fb.emitConstBool(false)
		case types.Char, types.Int, types.Long:
			return fb.emitConstInt(0, t)
		case types.Float, types.Double:
			return fb.emitConstFloat(0, t)
		case types.String:
			return fb.emitConstString("")
		}
	}
	return fb.emitConstNull(t)
}

// ---- statements ----

func (fb *funcBuilder) lowerBlock(b *bind.BoundBlockStmt) {
	for _, s := range b.Stmts {
		fb.lowerStmt(s)
	}
}

func (fb *funcBuilder) lowerStmt(s bind.BoundStmt) {
	switch stmt := s.(type) {
	case *bind.BoundBlockStmt:
		fb.lowerBlock(stmt)
	case *bind.BoundExprStmt:
		fb.lowerExpr(stmt.Expr)
	case *bind.BoundLocalVarDeclStmt:
		for _, d := range stmt.Declarators {
			var val *Value
			if d.Initializer != nil {
				val = fb.lowerExpr(d.Initializer)
			} else {
				val = fb.zeroValue(d.Symbol.DeclaredType)
			}
			fb.vals[d.Symbol] = val
		}
	case *bind.BoundIfStmt:
		fb.lowerIf(stmt)
	case *bind.BoundWhileStmt:
		fb.lowerWhile(stmt)
	case *bind.BoundForStmt:
		fb.lowerFor(stmt)
	case *bind.BoundReturnStmt:
		if stmt.Value != nil {
			fb.ret(fb.lowerExpr(stmt.Value))
		} else {
			fb.ret(nil)
		}
	case *bind.BoundBreakStmt:
		if len(fb.loops) == 0 {
			fb.errs.Add(diag.LoweringError, stmt.Location, "break outside loop")
			return
		}
		fb.br(fb.loops[len(fb.loops)-1].breakTarget)
	case *bind.BoundContinueStmt:
		if len(fb.loops) == 0 {
			fb.errs.Add(diag.LoweringError, stmt.Location, "continue outside loop")
			return
		}
		fb.br(fb.loops[len(fb.loops)-1].continueTarget)
	case *bind.BoundErrorStmt:
		// nothing to lower; spec §7 leaves the offending node unbound.
	}
}

func (fb *funcBuilder) lowerIf(stmt *bind.BoundIfStmt) {
	cond := fb.lowerExpr(stmt.Cond)
	thenB := fb.newBlock("then")
	var elseB *Block
	if stmt.Else != nil {
		elseB = fb.newBlock("else")
	}
	mergeB := fb.newBlock("merge")

	target := mergeB
	if elseB != nil {
		target = elseB
	}
	fb.condBr(cond, thenB, target)

	fb.cur = thenB
	fb.lowerStmt(stmt.Then)
	fb.br(mergeB)

	if stmt.Else != nil {
		fb.cur = elseB
		fb.lowerStmt(stmt.Else)
		fb.br(mergeB)
	}

	fb.cur = mergeB
}

func (fb *funcBuilder) lowerWhile(stmt *bind.BoundWhileStmt) {
	headerB := fb.newBlock("header")
	bodyB := fb.newBlock("body")
	exitB := fb.newBlock("exit")

	fb.br(headerB)
	fb.cur = headerB
	carried := loopCarriedSymbols(stmt.Body, fb.vals)
	set := fb.beginLoopHeader(headerB, carried)
	cond := fb.lowerExpr(stmt.Cond)
	fb.condBr(cond, bodyB, exitB)

	fb.loops = append(fb.loops, loopCtx{continueTarget: headerB, breakTarget: exitB})
	fb.cur = bodyB
	fb.lowerStmt(stmt.Body)
	fb.br(headerB)
	fb.loops = fb.loops[:len(fb.loops)-1]
	fb.completeLoopHeader(set)

	fb.cur = exitB
}

func (fb *funcBuilder) lowerFor(stmt *bind.BoundForStmt) {
	if stmt.Init != nil {
		fb.lowerStmt(stmt.Init)
	}
	headerB := fb.newBlock("header")
	bodyB := fb.newBlock("body")
	updateB := fb.newBlock("update")
	exitB := fb.newBlock("exit")

	fb.br(headerB)
	fb.cur = headerB
	carried := loopCarriedSymbols(stmt.Body, fb.vals)
	carried = append(carried, exprCarriedSymbols(stmt.Update, fb.vals, carried)...)
	set := fb.beginLoopHeader(headerB, carried)
	var cond *Value
	if stmt.Cond != nil {
		cond = fb.lowerExpr(stmt.Cond)
	} else {
		cond = fb.emitConstBool(true)
	}
	fb.condBr(cond, bodyB, exitB)

	fb.loops = append(fb.loops, loopCtx{continueTarget: updateB, breakTarget: exitB})
	fb.cur = bodyB
	fb.lowerStmt(stmt.Body)
	fb.br(updateB)
	fb.loops = fb.loops[:len(fb.loops)-1]

	fb.cur = updateB
	if stmt.Update != nil {
		fb.lowerExpr(stmt.Update)
	}
	fb.br(headerB)
	fb.completeLoopHeader(set)

	fb.cur = exitB
}

// beginLoopHeader places an empty OpPhi at the top of header for each
// loop-carried symbol, binds it into fb.vals so the condition and body read
// it instead of the stale preheader value, and records the preheader's
// incoming value as the first of the phi's PendingPhi entries (spec §4.6).
func (fb *funcBuilder) beginLoopHeader(header *Block, carried []*symbols.Symbol) *headerPhiSet {
	set := &headerPhiSet{header: header, entries: map[*symbols.Symbol]*phiEntry{}}
	preheader := header.Preds[len(header.Preds)-1]
	for _, sym := range carried {
		instr := &Instruction{Op: OpPhi}
		instr.Result = fb.m.newValue(sym.DeclaredType)
		instr.Result.Def = instr
		header.Instructions = append(header.Instructions, instr)
		set.entries[sym] = &phiEntry{instr: instr, incoming: map[*Block]*Value{preheader: fb.vals[sym]}}
		fb.vals[sym] = instr.Result
	}
	fb.headerPhis = append(fb.headerPhis, set)
	return set
}

// completeLoopHeader fills in each pending phi's operands from every
// predecessor edge into header discovered since beginLoopHeader (the
// preheader plus the body's natural fallthrough and any continue that
// branches straight to header), then rebinds fb.vals to the phi result so
// code after the loop reads the value merged across every iteration path.
func (fb *funcBuilder) completeLoopHeader(set *headerPhiSet) {
	for i, s := range fb.headerPhis {
		if s == set {
			fb.headerPhis = append(fb.headerPhis[:i], fb.headerPhis[i+1:]...)
			break
		}
	}
	for sym, entry := range set.entries {
		operands := make([]*Value, 0, len(set.header.Preds))
		sources := make([]*Block, 0, len(set.header.Preds))
		for _, pred := range set.header.Preds {
			v, ok := entry.incoming[pred]
			if !ok {
				v = fb.zeroValue(sym.DeclaredType)
			}
			v.addUse(entry.instr)
			operands = append(operands, v)
			sources = append(sources, pred)
		}
		entry.instr.Operands = operands
		entry.instr.PhiSources = sources
		fb.vals[sym] = entry.instr.Result
	}
}

// loopCarriedSymbols returns, in first-assignment order, every symbol in
// live (the values tracked on entry to the loop) that body reassigns by
// plain/compound assignment or increment/decrement anywhere inside it --
// exactly the set whose header phi spec §4.6 calls for, since those are
// the only variables that can reach the header with two different
// definitions (the preheader value and a body-assigned value).
func loopCarriedSymbols(body bind.BoundStmt, live map[*symbols.Symbol]*Value) []*symbols.Symbol {
	var order []*symbols.Symbol
	seen := map[*symbols.Symbol]bool{}
	record := func(sym *symbols.Symbol) {
		if sym == nil || seen[sym] {
			return
		}
		if _, ok := live[sym]; !ok {
			return
		}
		seen[sym] = true
		order = append(order, sym)
	}

	var walkExpr func(e bind.BoundExpr)
	var walkStmt func(s bind.BoundStmt)

	walkExpr = func(e bind.BoundExpr) {
		if e == nil {
			return
		}
		switch x := e.(type) {
		case *bind.BoundAssignExpr:
			if name, ok := x.Target.(*bind.BoundNameExpr); ok {
				record(name.Symbol)
			}
			walkExpr(x.Target)
			walkExpr(x.Value)
		case *bind.BoundUnaryExpr:
			switch x.Op {
			case syntax.UnaryPreInc, syntax.UnaryPreDec, syntax.UnaryPostInc, syntax.UnaryPostDec:
				if name, ok := x.Operand.(*bind.BoundNameExpr); ok {
					record(name.Symbol)
				}
			}
			walkExpr(x.Operand)
		case *bind.BoundMemberAccessExpr:
			walkExpr(x.Object)
		case *bind.BoundIndexExpr:
			walkExpr(x.Object)
			walkExpr(x.Index)
		case *bind.BoundCallExpr:
			walkExpr(x.Callee)
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *bind.BoundNewExpr:
			for _, a := range x.Args {
				walkExpr(a)
			}
		case *bind.BoundBinaryExpr:
			walkExpr(x.Left)
			walkExpr(x.Right)
		}
	}

	walkStmt = func(s bind.BoundStmt) {
		if s == nil {
			return
		}
		switch x := s.(type) {
		case *bind.BoundBlockStmt:
			for _, inner := range x.Stmts {
				walkStmt(inner)
			}
		case *bind.BoundExprStmt:
			walkExpr(x.Expr)
		case *bind.BoundLocalVarDeclStmt:
			for _, d := range x.Declarators {
				walkExpr(d.Initializer)
			}
		case *bind.BoundIfStmt:
			walkExpr(x.Cond)
			walkStmt(x.Then)
			walkStmt(x.Else)
		case *bind.BoundWhileStmt:
			walkExpr(x.Cond)
			walkStmt(x.Body)
		case *bind.BoundForStmt:
			walkStmt(x.Init)
			walkExpr(x.Cond)
			walkExpr(x.Update)
			walkStmt(x.Body)
		case *bind.BoundReturnStmt:
			walkExpr(x.Value)
		}
	}

	walkStmt(body)
	return order
}

// exprCarriedSymbols is loopCarriedSymbols restricted to a single
// standalone expression (a for loop's update clause, lowered in its own
// block rather than as part of Body), skipping any symbol already in
// exclude.
func exprCarriedSymbols(e bind.BoundExpr, live map[*symbols.Symbol]*Value, exclude []*symbols.Symbol) []*symbols.Symbol {
	wrapped := &bind.BoundExprStmt{Expr: e}
	already := map[*symbols.Symbol]bool{}
	for _, sym := range exclude {
		already[sym] = true
	}
	found := loopCarriedSymbols(wrapped, live)
	var extra []*symbols.Symbol
	for _, sym := range found {
		if !already[sym] {
			extra = append(extra, sym)
		}
	}
	return extra
}

// ---- expressions ----

func (fb *funcBuilder) lowerExpr(e bind.BoundExpr) *Value {
	switch expr := e.(type) {
	case *bind.BoundLiteralExpr:
		return fb.lowerLiteral(expr)
	case *bind.BoundNameExpr:
		return fb.lowerName(expr)
	case *bind.BoundThisExpr:
		if len(fb.fn.Params) == 0 {
			fb.errs.Add(diag.LoweringError, expr.Location, "this used outside an instance function")
			return fb.zeroValue(expr.Type)
		}
		return fb.fn.Params[0]
	case *bind.BoundMemberAccessExpr:
		return fb.lowerMemberAccess(expr)
	case *bind.BoundIndexExpr:
		return fb.lowerIndex(expr)
	case *bind.BoundCallExpr:
		return fb.lowerCall(expr)
	case *bind.BoundNewExpr:
		return fb.lowerNew(expr)
	case *bind.BoundUnaryExpr:
		return fb.lowerUnary(expr)
	case *bind.BoundBinaryExpr:
		return fb.lowerBinary(expr)
	case *bind.BoundAssignExpr:
		return fb.lowerAssign(expr)
	case *bind.BoundErrorExpr:
		return fb.zeroValue(expr.Type)
	default:
		fb.errs.AddInternal(e.Loc(), "unhandled bound expression kind %T in lowering", e)
		return nil
	}
}

func (fb *funcBuilder) lowerLiteral(e *bind.BoundLiteralExpr) *Value {
	c := e.Constant
	if c == nil {
		fb.errs.Add(diag.LoweringError, e.Location, "literal has no constant value")
		return fb.zeroValue(e.Type)
	}
	switch c.Kind {
	case syntax.IntLit:
		return fb.emitConstInt(c.IntValue, e.Type)
	case syntax.FloatLit:
		return fb.emitConstFloat(c.FloatValue, e.Type)
	case syntax.BoolLit:
		return fb.emitConstBool(c.BoolValue)
	case syntax.StringLit:
		return fb.emitConstString(c.StringValue)
	case syntax.NullLit:
		return fb.emitConstNull(e.Type)
	default:
		fb.errs.AddInternal(e.Location, "unhandled literal kind %v in lowering", c.Kind)
		return fb.zeroValue(e.Type)
	}
}

func (fb *funcBuilder) lowerName(e *bind.BoundNameExpr) *Value {
	if e.Symbol == nil {
		fb.errs.Add(diag.LoweringError, e.Location, "unresolved name %q reached lowering", strings.Join(e.Parts, "."))
		return fb.zeroValue(e.Type)
	}
	if v, ok := fb.vals[e.Symbol]; ok {
		return v
	}
	fb.errs.Add(diag.LoweringError, e.Location, "no SSA value bound for %q", e.Symbol.QualifiedName())
	return fb.zeroValue(e.Type)
}

func fieldIndex(field *symbols.Symbol) int {
	if field.Parent == nil {
		return -1
	}
	for i, f := range field.Parent.FieldOrder {
		if f == field {
			return i
		}
	}
	return -1
}

func (fb *funcBuilder) emitFieldAddr(obj *Value, field *symbols.Symbol) *Value {
	idx := fieldIndex(field)
	instr := &Instruction{Op: OpFieldAddr, Operands: []*Value{obj}, Field: field, FieldIndex: idx}
	instr.Result = fb.m.newValue(fb.ts.PointerTo(field.DeclaredType))
	return fb.emit(instr)
}

// propertyAccessor returns prop's get or set child Function symbol.
func propertyAccessor(prop *symbols.Symbol, which string) *symbols.Symbol {
	syms, ok := prop.Lookup(which)
	if !ok || len(syms) == 0 {
		return nil
	}
	return syms[0]
}

func (fb *funcBuilder) emitCall(callee *symbols.Symbol, resultType *types.Type, operands ...*Value) *Value {
	instr := &Instruction{Op: OpCall, Callee: callee, Operands: operands}
	if callee != nil && callee.IsVirtual {
		instr.Op = OpCallVirtual
	}
	if resultType != nil && !resultType.IsPrimitive(types.Void) {
		instr.Result = fb.m.newValue(resultType)
	}
	return fb.emit(instr)
}

func (fb *funcBuilder) lowerMemberAccess(e *bind.BoundMemberAccessExpr) *Value {
	obj := fb.lowerExpr(e.Object)
	if e.MemberSymbol == nil {
		fb.errs.Add(diag.LoweringError, e.Location, "unresolved member %q reached lowering", e.Member)
		return fb.zeroValue(e.Type)
	}
	switch e.MemberSymbol.Kind {
	case symbols.PropertyKind:
		get := propertyAccessor(e.MemberSymbol, "get")
		return fb.emitCall(get, e.MemberSymbol.DeclaredType, obj)
	default:
		addr := fb.emitFieldAddr(obj, e.MemberSymbol)
		instr := &Instruction{Op: OpLoad, Operands: []*Value{addr}}
		instr.Result = fb.m.newValue(e.MemberSymbol.DeclaredType)
		return fb.emit(instr)
	}
}

func (fb *funcBuilder) lowerIndex(e *bind.BoundIndexExpr) *Value {
	obj := fb.lowerExpr(e.Object)
	idx := fb.lowerExpr(e.Index)
	if e.IndexerProperty != nil {
		get := propertyAccessor(e.IndexerProperty, "get")
		return fb.emitCall(get, e.IndexerProperty.DeclaredType, obj, idx)
	}
	instr := &Instruction{Op: OpElementAddr, Operands: []*Value{obj, idx}}
	instr.Result = fb.m.newValue(fb.ts.PointerTo(e.Type))
	addr := fb.emit(instr)
	load := &Instruction{Op: OpLoad, Operands: []*Value{addr}}
	load.Result = fb.m.newValue(e.Type)
	return fb.emit(load)
}

// lowerCallTarget computes the receiver value for a call expression's
// Callee sub-expression: the lowered Object of a member access (lowered
// exactly once), or nil for any other callee shape.
func (fb *funcBuilder) lowerCallTarget(callee bind.BoundExpr) *Value {
	switch c := callee.(type) {
	case *bind.BoundMemberAccessExpr:
		return fb.lowerExpr(c.Object)
	default:
		return nil
	}
}

func (fb *funcBuilder) lowerCall(e *bind.BoundCallExpr) *Value {
	if e.Method == nil {
		// The callee itself is left partially unresolved by spec §7's
		// resolve-stage recovery policy; lowering its sub-expressions would
		// just re-report the same unresolved reference, so only the call
		// site gets the diagnostic here.
		for _, a := range e.Args {
			fb.lowerExpr(a)
		}
		fb.errs.Add(diag.LoweringError, e.Location, "unresolved call target reached lowering")
		return fb.zeroValue(e.Type)
	}
	recv := fb.lowerCallTarget(e.Callee)
	var operands []*Value
	if isInstance(e.Method) {
		operands = append(operands, recv)
	}
	for _, a := range e.Args {
		operands = append(operands, fb.lowerExpr(a))
	}
	return fb.emitCall(e.Method, e.Method.ReturnType, operands...)
}

func (fb *funcBuilder) lowerNew(e *bind.BoundNewExpr) *Value {
	instr := &Instruction{Op: OpAlloc}
	instr.Result = fb.m.newValue(e.Type)
	alloc := fb.emit(instr)
	if e.Constructor != nil {
		operands := append([]*Value{alloc}, fb.lowerArgs(e.Args)...)
		fb.emitCall(e.Constructor, fb.ts.PrimitiveType(types.Void), operands...)
	} else {
		fb.lowerArgs(e.Args)
	}
	return alloc
}

func (fb *funcBuilder) lowerArgs(args []bind.BoundExpr) []*Value {
	vals := make([]*Value, len(args))
	for i, a := range args {
		vals[i] = fb.lowerExpr(a)
	}
	return vals
}

func (fb *funcBuilder) lowerUnary(e *bind.BoundUnaryExpr) *Value {
	switch e.Op {
	case syntax.UnaryPreInc, syntax.UnaryPreDec, syntax.UnaryPostInc, syntax.UnaryPostDec:
		return fb.lowerIncDec(e)
	}
	operand := fb.lowerExpr(e.Operand)
	var op Opcode
	switch e.Op {
	case syntax.UnaryNeg, syntax.UnaryPlus:
		op = OpNeg
	case syntax.UnaryNot:
		op = OpNot
	default:
		fb.errs.AddInternal(e.Location, "unhandled unary operator %v in lowering", e.Op)
		return fb.zeroValue(e.Type)
	}
	if e.Op == syntax.UnaryPlus {
		return operand
	}
	instr := &Instruction{Op: op, Operands: []*Value{operand}}
	instr.Result = fb.m.newValue(e.Type)
	return fb.emit(instr)
}

func (fb *funcBuilder) lowerIncDec(e *bind.BoundUnaryExpr) *Value {
	target := fb.resolveTarget(e.Operand)
	old := fb.readTarget(target)
	one := fb.emitConstInt(1, e.Type)
	op := OpAdd
	if e.Op == syntax.UnaryPreDec || e.Op == syntax.UnaryPostDec {
		op = OpSub
	}
	instr := &Instruction{Op: op, Operands: []*Value{old, one}}
	instr.Result = fb.m.newValue(e.Type)
	updated := fb.emit(instr)
	fb.writeTarget(target, updated)
	if e.Op == syntax.UnaryPreInc || e.Op == syntax.UnaryPreDec {
		return updated
	}
	return old
}

func binaryOpcode(op syntax.BinaryOp) Opcode {
	switch op {
	case syntax.BinOr:
		return OpOr
	case syntax.BinAnd:
		return OpAnd
	case syntax.BinEq:
		return OpEq
	case syntax.BinNotEq:
		return OpNotEq
	case syntax.BinLt:
		return OpLt
	case syntax.BinGt:
		return OpGt
	case syntax.BinLtEq:
		return OpLtEq
	case syntax.BinGtEq:
		return OpGtEq
	case syntax.BinAdd:
		return OpAdd
	case syntax.BinSub:
		return OpSub
	case syntax.BinMul:
		return OpMul
	case syntax.BinDiv:
		return OpDiv
	case syntax.BinMod:
		return OpMod
	default:
		return OpAdd
	}
}

func (fb *funcBuilder) lowerBinary(e *bind.BoundBinaryExpr) *Value {
	left := fb.lowerExpr(e.Left)
	right := fb.lowerExpr(e.Right)
	instr := &Instruction{Op: binaryOpcode(e.Op), Operands: []*Value{left, right}}
	instr.Result = fb.m.newValue(e.Type)
	return fb.emit(instr)
}

// assignTarget is an address-like abstraction over the four kinds of place
// an assignment may write, per spec §4.6's "Assignment" rule.
type assignTarget struct {
	kind  string // "var", "field", "prop", "indexer"
	sym   *symbols.Symbol
	obj   *Value
	index *Value
	addr  *Value
}

func (fb *funcBuilder) resolveTarget(e bind.BoundExpr) assignTarget {
	switch t := e.(type) {
	case *bind.BoundNameExpr:
		return assignTarget{kind: "var", sym: t.Symbol}
	case *bind.BoundMemberAccessExpr:
		obj := fb.lowerExpr(t.Object)
		if t.MemberSymbol != nil && t.MemberSymbol.Kind == symbols.PropertyKind {
			return assignTarget{kind: "prop", sym: t.MemberSymbol, obj: obj}
		}
		return assignTarget{kind: "field", sym: t.MemberSymbol, addr: fb.emitFieldAddr(obj, t.MemberSymbol)}
	case *bind.BoundIndexExpr:
		obj := fb.lowerExpr(t.Object)
		idx := fb.lowerExpr(t.Index)
		if t.IndexerProperty != nil {
			return assignTarget{kind: "indexer", sym: t.IndexerProperty, obj: obj, index: idx}
		}
		instr := &Instruction{Op: OpElementAddr, Operands: []*Value{obj, idx}}
		instr.Result = fb.m.newValue(fb.ts.PointerTo(t.Type))
		return assignTarget{kind: "field", addr: fb.emit(instr)}
	default:
		fb.errs.Add(diag.LoweringError, e.Loc(), "invalid assignment target")
		return assignTarget{kind: "field"}
	}
}

func (fb *funcBuilder) readTarget(t assignTarget) *Value {
	switch t.kind {
	case "var":
		if v, ok := fb.vals[t.sym]; ok {
			return v
		}
		return fb.zeroValue(t.sym.DeclaredType)
	case "prop":
		get := propertyAccessor(t.sym, "get")
		return fb.emitCall(get, t.sym.DeclaredType, t.obj)
	case "indexer":
		get := propertyAccessor(t.sym, "get")
		return fb.emitCall(get, t.sym.DeclaredType, t.obj, t.index)
	default:
		if t.addr == nil {
			return fb.zeroValue(nil)
		}
		instr := &Instruction{Op: OpLoad, Operands: []*Value{t.addr}}
		instr.Result = fb.m.newValue(t.addr.Type.Elem)
		return fb.emit(instr)
	}
}

func (fb *funcBuilder) writeTarget(t assignTarget, val *Value) {
	switch t.kind {
	case "var":
		fb.vals[t.sym] = val
	case "prop":
		set := propertyAccessor(t.sym, "set")
		fb.emitCall(set, fb.ts.PrimitiveType(types.Void), t.obj, val)
	case "indexer":
		set := propertyAccessor(t.sym, "set")
		fb.emitCall(set, fb.ts.PrimitiveType(types.Void), t.obj, t.index, val)
	default:
		if t.addr == nil {
			return
		}
		fb.emit(&Instruction{Op: OpStore, Operands: []*Value{t.addr, val}})
	}
}

func (fb *funcBuilder) lowerAssign(e *bind.BoundAssignExpr) *Value {
	target := fb.resolveTarget(e.Target)
	if e.Op == syntax.AssignSet {
		val := fb.lowerExpr(e.Value)
		fb.writeTarget(target, val)
		return val
	}
	old := fb.readTarget(target)
	rhs := fb.lowerExpr(e.Value)
	var op Opcode
	switch e.Op {
	case syntax.AssignAdd:
		op = OpAdd
	case syntax.AssignSub:
		op = OpSub
	case syntax.AssignMul:
		op = OpMul
	case syntax.AssignDiv:
		op = OpDiv
	case syntax.AssignMod:
		op = OpMod
	}
	instr := &Instruction{Op: op, Operands: []*Value{old, rhs}}
	instr.Result = fb.m.newValue(e.Type)
	updated := fb.emit(instr)
	fb.writeTarget(target, updated)
	return updated
}
