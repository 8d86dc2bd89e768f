// Package resolve implements Nova's symbol resolution pass (spec §4.5): a
// second traversal over the bound tree that fills in every reference the
// binder could not settle locally because it depends on a type or an
// argument list — member access, call-target overloads, constructor
// overloads, indexers, `using` targets, and base-class qualified names.
package resolve

import (
	"strings"

	"github.com/dekarrin/nova/internal/bind"
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/source"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
	"github.com/dekarrin/nova/internal/util"
)

// candidateList renders a function overload set as "f(int) and f(bool)" etc.
// for appending to an ambiguous/no-match diagnostic.
func candidateList(candidates []*symbols.Symbol) string {
	sigs := make([]string, len(candidates))
	for i, c := range candidates {
		params := make([]string, len(c.Params))
		for j, p := range c.Params {
			params[j] = p.DeclaredType.String()
		}
		sigs[i] = c.Name + "(" + strings.Join(params, ", ") + ")"
	}
	return util.MakeTextList(sigs)
}

type resolver struct {
	tree  *symbols.ScopeTree
	types *types.System
	errs  diag.Collector
}

// Resolve walks bcu, filling in every field §4.5 assigns to this pass. tree
// and ts must be the same ones internal/symbols and internal/bind used to
// produce bcu.
func Resolve(bcu *bind.BoundCompilationUnit, tree *symbols.ScopeTree, ts *types.System) []*diag.Error {
	r := &resolver{tree: tree, types: ts}
	for _, u := range bcu.Usings {
		r.resolveUsing(u)
	}
	for _, t := range bcu.Types {
		r.resolveBases(t.Symbol, t.Location)
	}
	for _, t := range bcu.Types {
		for _, fn := range t.Functions {
			r.resolveFunction(fn)
		}
		for _, acc := range t.Accessors {
			r.resolveAccessor(acc)
		}
	}
	for _, fn := range bcu.Functions {
		r.resolveFunction(fn)
	}
	return r.errs.Errors()
}

func (r *resolver) resolveUsing(u *bind.BoundUsingDirective) {
	cur := r.tree.Root
	for _, part := range u.Path {
		syms, ok := cur.Lookup(part)
		next := (*symbols.Symbol)(nil)
		if ok {
			for _, s := range syms {
				if s.Kind == symbols.NamespaceKind {
					next = s
					break
				}
			}
		}
		if next == nil {
			r.errs.Add(diag.ResolutionError, u.Location, "unknown namespace %q", strings.Join(u.Path, "."))
			return
		}
		cur = next
	}
	u.TargetNamespace = cur
}

// resolveBases fills in typeSym.BaseQualified (spec §9's "qualified names
// of bases, filled by internal/resolve") by resolving each written base
// name against the scope enclosing the type declaration.
func (r *resolver) resolveBases(typeSym *symbols.Symbol, loc source.Location) {
	for _, baseName := range typeSym.Bases {
		syms, ok := symbols.LookupChain(typeSym.Parent, baseName)
		var base *symbols.Symbol
		if ok {
			for _, s := range syms {
				if s.Kind == symbols.TypeKind {
					base = s
					break
				}
			}
		}
		if base == nil {
			r.errs.Add(diag.ResolutionError, loc, "unknown base type %q", baseName)
			continue
		}
		typeSym.BaseQualified = append(typeSym.BaseQualified, base.QualifiedName())
	}
}

func (r *resolver) resolveFunction(fn *bind.BoundFunctionDecl) {
	if fn.Body != nil {
		r.resolveBlock(fn.Body)
	}
}

func (r *resolver) resolveAccessor(acc *bind.BoundPropertyAccessor) {
	if acc.Body != nil {
		r.resolveBlock(acc.Body)
	}
}

// ---- statements ----

func (r *resolver) resolveBlock(b *bind.BoundBlockStmt) {
	for _, s := range b.Stmts {
		r.resolveStmt(s)
	}
}

func (r *resolver) resolveStmt(s bind.BoundStmt) {
	switch stmt := s.(type) {
	case *bind.BoundBlockStmt:
		r.resolveBlock(stmt)
	case *bind.BoundLocalVarDeclStmt:
		for _, d := range stmt.Declarators {
			if d.Initializer != nil {
				r.resolveExpr(d.Initializer)
			}
		}
	case *bind.BoundExprStmt:
		r.resolveExpr(stmt.Expr)
	case *bind.BoundIfStmt:
		r.resolveExpr(stmt.Cond)
		r.resolveStmt(stmt.Then)
		if stmt.Else != nil {
			r.resolveStmt(stmt.Else)
		}
	case *bind.BoundWhileStmt:
		r.resolveExpr(stmt.Cond)
		r.resolveStmt(stmt.Body)
	case *bind.BoundForStmt:
		if stmt.Init != nil {
			r.resolveStmt(stmt.Init)
		}
		if stmt.Cond != nil {
			r.resolveExpr(stmt.Cond)
		}
		if stmt.Update != nil {
			r.resolveExpr(stmt.Update)
		}
		r.resolveStmt(stmt.Body)
	case *bind.BoundReturnStmt:
		if stmt.Value != nil {
			r.resolveExpr(stmt.Value)
		}
	case *bind.BoundBreakStmt, *bind.BoundContinueStmt, *bind.BoundErrorStmt:
		// nothing to resolve; break/continue loop-context checking is
		// internal/hlir's job (spec §8's "break outside loop" scenario).
	}
}

// ---- expressions ----

func (r *resolver) resolveExpr(e bind.BoundExpr) *types.Type {
	switch expr := e.(type) {
	case *bind.BoundLiteralExpr:
		return expr.Type
	case *bind.BoundNameExpr:
		r.resolveName(expr)
		return expr.Type
	case *bind.BoundThisExpr:
		return expr.Type
	case *bind.BoundMemberAccessExpr:
		return r.resolveMemberAccess(expr)
	case *bind.BoundIndexExpr:
		return r.resolveIndex(expr)
	case *bind.BoundCallExpr:
		return r.resolveCall(expr)
	case *bind.BoundNewExpr:
		r.resolveNew(expr)
		return expr.Type
	case *bind.BoundUnaryExpr:
		return r.resolveUnary(expr)
	case *bind.BoundBinaryExpr:
		return r.resolveBinary(expr)
	case *bind.BoundAssignExpr:
		return r.resolveAssign(expr)
	case *bind.BoundErrorExpr:
		return nil
	default:
		r.errs.AddInternal(e.Loc(), "unhandled bound expression kind %T in resolver", e)
		return nil
	}
}

// resolveName fills BoundNameExpression.symbol (spec §4.5) for any name the
// binder could not settle locally: not found at bind time, or an overload
// set referenced where the binder had no argument list to disambiguate
// with. A name still referring to an overload set here (not wrapped in a
// call) stays unresolved: disambiguating it is the call site's job, not
// this pass's, per §4.5's "callee's kind" rule.
func (r *resolver) resolveName(e *bind.BoundNameExpr) {
	if e.Symbol != nil || e.Scope == nil {
		return
	}
	syms, found := symbols.LookupChain(e.Scope, e.Parts[0])
	if !found {
		r.errs.Add(diag.ResolutionError, e.Location, "undefined name %q", strings.Join(e.Parts, "."))
		return
	}
	if len(syms) > 1 {
		return
	}
	target := syms[0]
	if len(e.Parts) > 1 {
		target = symbols.DescendQualified(syms, e.Parts[1:])
		if target == nil {
			r.errs.Add(diag.ResolutionError, e.Location, "undefined name %q", strings.Join(e.Parts, "."))
			return
		}
	}
	e.Symbol = target
	switch target.Kind {
	case symbols.FieldKind, symbols.VariableKind, symbols.ParameterKind, symbols.PropertyKind:
		e.Type = target.DeclaredType
		e.Category = bind.LValue
	case symbols.TypeKind:
		e.Type = target.CanonicalType
	}
}

func (r *resolver) resolveMemberAccess(e *bind.BoundMemberAccessExpr) *types.Type {
	objType := r.resolveExpr(e.Object)
	if e.MemberSymbol != nil {
		return e.Type
	}
	sym, ok := r.lookupMember(objType, e.Member)
	if !ok {
		r.errs.Add(diag.ResolutionError, e.Location, "type %s has no member %q", typeName(objType), e.Member)
		return nil
	}
	e.MemberSymbol = sym
	switch sym.Kind {
	case symbols.FieldKind, symbols.VariableKind, symbols.PropertyKind:
		e.Type = sym.DeclaredType
		e.Category = bind.LValue
	case symbols.FunctionKind:
		// a method group; fully resolved only when this access is the
		// callee of a BoundCallExpression (resolveCall handles that case
		// directly, without going through this function).
	}
	return e.Type
}

func (r *resolver) resolveIndex(e *bind.BoundIndexExpr) *types.Type {
	objType := r.resolveExpr(e.Object)
	r.resolveExpr(e.Index)
	if e.IndexerProperty != nil {
		return e.Type
	}
	if objType != nil && objType.Kind == types.Array {
		e.Type = objType.Elem
		e.Category = bind.LValue
		return e.Type
	}
	sym, ok := r.lookupMember(objType, "Item")
	if !ok {
		r.errs.Add(diag.ResolutionError, e.Location, "type %s has no indexer", typeName(objType))
		return nil
	}
	e.IndexerProperty = sym
	e.Type = sym.DeclaredType
	e.Category = bind.LValue
	return e.Type
}

// resolveCall implements spec §4.5's call-method resolution: candidates
// come from the callee's own shape (a name's overload set in scope, or a
// method lookup on the callee object's type), then overloadResolve applies
// the minimal arity/implicit-conversion rule from the Glossary.
func (r *resolver) resolveCall(e *bind.BoundCallExpr) *types.Type {
	argTypes := make([]*types.Type, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = r.resolveExpr(a)
	}
	if e.Method != nil {
		return e.Type
	}

	var candidates []*symbols.Symbol
	switch callee := e.Callee.(type) {
	case *bind.BoundNameExpr:
		candidates = r.callCandidatesForName(callee)
	case *bind.BoundMemberAccessExpr:
		objType := r.resolveExpr(callee.Object)
		candidates = r.callCandidatesForMember(objType, callee.Member)
	default:
		r.resolveExpr(e.Callee)
	}

	var functionCandidates []*symbols.Symbol
	for _, c := range candidates {
		if c.Kind == symbols.FunctionKind {
			functionCandidates = append(functionCandidates, c)
		}
	}

	selected, matched, ambiguous := overloadResolve(functionCandidates, argTypes)
	switch {
	case ambiguous:
		r.errs.Add(diag.ResolutionError, e.Location, "ambiguous call: more than one overload matches the given arguments (candidates: %s)", candidateList(functionCandidates))
	case !matched:
		r.errs.Add(diag.ResolutionError, e.Location, "no matching overload for call (candidates: %s)", candidateList(functionCandidates))
	default:
		e.Method = selected
		e.Type = selected.ReturnType
		switch callee := e.Callee.(type) {
		case *bind.BoundMemberAccessExpr:
			callee.MemberSymbol = selected
		case *bind.BoundNameExpr:
			callee.Symbol = selected
		}
	}
	return e.Type
}

func (r *resolver) callCandidatesForName(callee *bind.BoundNameExpr) []*symbols.Symbol {
	if callee.Scope == nil {
		return nil
	}
	syms, found := symbols.LookupChain(callee.Scope, callee.Parts[0])
	if !found {
		return nil
	}
	if len(callee.Parts) == 1 {
		return syms
	}
	container := symbols.DescendQualified(syms, callee.Parts[1:len(callee.Parts)-1])
	if container == nil {
		return nil
	}
	last := callee.Parts[len(callee.Parts)-1]
	candidates, _ := container.Lookup(last)
	return candidates
}

func (r *resolver) callCandidatesForMember(objType *types.Type, member string) []*symbols.Symbol {
	if objType == nil || objType.Kind != types.Named {
		return nil
	}
	sym, ok := objType.Named.(*symbols.Symbol)
	if !ok {
		return nil
	}
	if candidates, found := sym.Lookup(member); found {
		return candidates
	}
	for _, baseQName := range sym.BaseQualified {
		base := r.lookupQualified(baseQName)
		if base == nil {
			continue
		}
		if candidates, found := base.Lookup(member); found {
			return candidates
		}
	}
	return nil
}

// resolveNew implements spec §4.5's constructor resolution: overload
// resolution against the type's constructor set, keyed by the same name as
// the type itself (internal/symbols names a constructor's Function symbol
// after its enclosing type). A type with no declared constructor at all is
// not an error (spec §4.6: fields are left default-initialized).
func (r *resolver) resolveNew(e *bind.BoundNewExpr) {
	argTypes := make([]*types.Type, len(e.Args))
	for i, a := range e.Args {
		argTypes[i] = r.resolveExpr(a)
	}
	if e.Constructor != nil {
		return
	}
	if e.Type == nil || e.Type.Kind != types.Named {
		return
	}
	typeSym, ok := e.Type.Named.(*symbols.Symbol)
	if !ok {
		return
	}
	ctorSyms, found := typeSym.Lookup(typeSym.Name)
	if !found {
		return
	}
	var candidates []*symbols.Symbol
	for _, c := range ctorSyms {
		if c.IsConstructor {
			candidates = append(candidates, c)
		}
	}
	selected, matched, ambiguous := overloadResolve(candidates, argTypes)
	switch {
	case ambiguous:
		r.errs.Add(diag.ResolutionError, e.Location, "ambiguous constructor call for type %q (candidates: %s)", typeSym.QualifiedName(), candidateList(candidates))
	case !matched:
		r.errs.Add(diag.ResolutionError, e.Location, "no matching overload for constructor of type %q (candidates: %s)", typeSym.QualifiedName(), candidateList(candidates))
	default:
		e.Constructor = selected
	}
}

func (r *resolver) resolveUnary(e *bind.BoundUnaryExpr) *types.Type {
	operandType := r.resolveExpr(e.Operand)
	switch e.Op {
	case syntax.UnaryNot:
		e.Type = r.types.PrimitiveType(types.Bool)
	default:
		e.Type = operandType
	}
	return e.Type
}

func (r *resolver) resolveBinary(e *bind.BoundBinaryExpr) *types.Type {
	lt := r.resolveExpr(e.Left)
	rt := r.resolveExpr(e.Right)
	switch e.Op {
	case syntax.BinOr, syntax.BinAnd, syntax.BinEq, syntax.BinNotEq,
		syntax.BinLt, syntax.BinGt, syntax.BinLtEq, syntax.BinGtEq:
		e.Type = r.types.PrimitiveType(types.Bool)
	default:
		e.Type = widerNumeric(lt, rt)
	}
	return e.Type
}

func (r *resolver) resolveAssign(e *bind.BoundAssignExpr) *types.Type {
	targetType := r.resolveExpr(e.Target)
	r.resolveExpr(e.Value)
	e.Type = targetType
	e.Category = bind.RValue
	return e.Type
}

// ---- shared helpers ----

// lookupMember looks up name directly on t's own members, falling back to
// one level of inheritance through t's (already-resolved) BaseQualified
// list if not found there.
func (r *resolver) lookupMember(t *types.Type, name string) (*symbols.Symbol, bool) {
	if t == nil || t.Kind != types.Named {
		return nil, false
	}
	sym, ok := t.Named.(*symbols.Symbol)
	if !ok {
		return nil, false
	}
	if syms, found := sym.Lookup(name); found && len(syms) > 0 {
		return syms[0], true
	}
	for _, baseQName := range sym.BaseQualified {
		base := r.lookupQualified(baseQName)
		if base == nil {
			continue
		}
		if syms, found := base.Lookup(name); found && len(syms) > 0 {
			return syms[0], true
		}
	}
	return nil, false
}

func (r *resolver) lookupQualified(qname string) *symbols.Symbol {
	parts := strings.Split(qname, ".")
	syms, ok := r.tree.Root.Lookup(parts[0])
	if !ok || len(syms) == 0 {
		return nil
	}
	return symbols.DescendQualified(syms, parts[1:])
}

func typeName(t *types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

// widerNumeric picks the wider of two numeric types for a binary
// arithmetic/bitwise result, per the Glossary's widening-conversion
// ordering; a nil operand (an already-errored sub-expression) yields
// whichever side is non-nil.
func widerNumeric(l, r *types.Type) *types.Type {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if types.AllowsImplicit(l, r) {
		return r
	}
	return l
}

// overloadResolve implements the minimal overload-resolution rule from
// spec §4.5: a candidate matches when its arity equals len(argTypes) and
// every argument type either equals or implicitly converts to the
// corresponding parameter type. More than one match is ambiguous; zero
// matches is reported by the caller as "no matching overload" verbatim,
// per spec §4.5's explicit wording.
func overloadResolve(candidates []*symbols.Symbol, argTypes []*types.Type) (selected *symbols.Symbol, matched, ambiguous bool) {
	var matches []*symbols.Symbol
candidateLoop:
	for _, c := range candidates {
		if len(c.Params) != len(argTypes) {
			continue
		}
		for i, p := range c.Params {
			at := argTypes[i]
			if at == nil || !types.AllowsImplicit(at, p.DeclaredType) {
				continue candidateLoop
			}
		}
		matches = append(matches, c)
	}
	switch len(matches) {
	case 0:
		return nil, false, false
	case 1:
		return matches[0], true, false
	default:
		return nil, false, true
	}
}
