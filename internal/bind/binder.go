package bind

import (
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/source"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

// primitiveKeywords mirrors internal/symbols' own table; needed again here
// because `new T(...)` type references are not part of any declaration
// the symbol-table builder already resolved a type for.
var primitiveKeywords = map[string]types.PrimitiveKind{
	"void": types.Void, "bool": types.Bool, "char": types.Char,
	"int": types.Int, "long": types.Long, "float": types.Float,
	"double": types.Double, "string": types.String,
}

type binder struct {
	tree  *symbols.ScopeTree
	types *types.System
	errs  diag.Collector
}

// Bind walks cu's declarations and produces the bound tree, using tree
// (already built by internal/symbols) to resolve every name reference
// that can be resolved without type information. ts must be the same
// types.System tree's symbols were minted from.
func Bind(cu *syntax.CompilationUnit, tree *symbols.ScopeTree, ts *types.System) (*BoundCompilationUnit, []*diag.Error) {
	b := &binder{tree: tree, types: ts}
	bcu := &BoundCompilationUnit{Filename: cu.Filename}
	for _, u := range cu.Usings {
		bcu.Usings = append(bcu.Usings, &BoundUsingDirective{Location: u.Loc(), Path: u.Path})
	}
	b.bindDecls(cu.Decls, bcu)
	return bcu, b.errs.Errors()
}

func (b *binder) bindDecls(decls []syntax.Decl, bcu *BoundCompilationUnit) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *syntax.NamespaceDecl:
			b.bindDecls(decl.Members, bcu)
		case *syntax.TypeDecl:
			bcu.Types = append(bcu.Types, b.bindType(decl))
		case *syntax.MethodDecl:
			sym := b.tree.SymbolOf(decl)
			bcu.Functions = append(bcu.Functions, b.bindFunction(decl.Loc(), sym, decl.Body))
		}
	}
}

func (b *binder) bindType(decl *syntax.TypeDecl) *BoundTypeDecl {
	typeSym := b.tree.SymbolOf(decl)
	bt := &BoundTypeDecl{Location: decl.Loc(), Symbol: typeSym}
	for _, m := range decl.Members {
		switch member := m.(type) {
		case *syntax.ConstructorDecl:
			sym := b.tree.SymbolOf(member)
			bt.Functions = append(bt.Functions, b.bindFunction(member.Loc(), sym, member.Body))
		case *syntax.DestructorDecl:
			sym := b.tree.SymbolOf(member)
			bt.Functions = append(bt.Functions, b.bindFunction(member.Loc(), sym, member.Body))
		case *syntax.MethodDecl:
			sym := b.tree.SymbolOf(member)
			bt.Functions = append(bt.Functions, b.bindFunction(member.Loc(), sym, member.Body))
		case *syntax.PropertyDecl:
			if member.Getter != nil {
				sym := b.tree.SymbolOf(member.Getter)
				bt.Accessors = append(bt.Accessors, b.bindAccessor(member.Getter.Loc(), sym, member.Getter.Body))
			}
			if member.Setter != nil {
				sym := b.tree.SymbolOf(member.Setter)
				bt.Accessors = append(bt.Accessors, b.bindAccessor(member.Setter.Loc(), sym, member.Setter.Body))
			}
		}
	}
	return bt
}

func (b *binder) bindFunction(loc source.Location, sym *symbols.Symbol, body *syntax.BlockStmt) *BoundFunctionDecl {
	bf := &BoundFunctionDecl{Location: loc, Symbol: sym}
	if body != nil {
		bf.Body = b.bindBlock(body)
	}
	return bf
}

func (b *binder) bindAccessor(loc source.Location, sym *symbols.Symbol, body *syntax.BlockStmt) *BoundPropertyAccessor {
	ba := &BoundPropertyAccessor{Location: loc, FunctionSymbol: sym}
	if body != nil {
		ba.Body = b.bindBlock(body)
	}
	return ba
}

// ---- statements ----

func (b *binder) bindBlock(block *syntax.BlockStmt) *BoundBlockStmt {
	scope := b.tree.ScopeOf(block)
	bb := &BoundBlockStmt{StmtHeader: StmtHeader{Location: block.Loc()}}
	for _, s := range block.Stmts {
		bb.Stmts = append(bb.Stmts, b.bindStmt(scope, s))
	}
	return bb
}

func (b *binder) bindStmt(scope *symbols.Symbol, s syntax.Stmt) BoundStmt {
	switch stmt := s.(type) {
	case *syntax.BlockStmt:
		return b.bindBlock(stmt)
	case *syntax.LocalVarDeclStmt:
		decl := &BoundLocalVarDeclStmt{StmtHeader: StmtHeader{Location: stmt.Loc()}}
		for _, dtor := range stmt.Declarators {
			sym := b.tree.SymbolOf(dtor)
			var init BoundExpr
			if dtor.Initializer != nil {
				init = b.bindExpr(scope, dtor.Initializer)
			}
			decl.Declarators = append(decl.Declarators, &BoundVariableDeclarator{
				Location: dtor.Loc(), Symbol: sym, Initializer: init,
			})
		}
		return decl
	case *syntax.ExprStmt:
		return &BoundExprStmt{StmtHeader: StmtHeader{Location: stmt.Loc()}, Expr: b.bindExpr(scope, stmt.Expr)}
	case *syntax.IfStmt:
		ifs := &BoundIfStmt{
			StmtHeader: StmtHeader{Location: stmt.Loc()},
			Cond:       b.bindExpr(scope, stmt.Cond),
			Then:       b.bindStmt(scope, stmt.Then),
		}
		if stmt.Else != nil {
			ifs.Else = b.bindStmt(scope, stmt.Else)
		}
		return ifs
	case *syntax.WhileStmt:
		return &BoundWhileStmt{
			StmtHeader: StmtHeader{Location: stmt.Loc()},
			Cond:       b.bindExpr(scope, stmt.Cond),
			Body:       b.bindStmt(scope, stmt.Body),
		}
	case *syntax.ForStmt:
		forScope := b.tree.ScopeOf(stmt)
		fs := &BoundForStmt{StmtHeader: StmtHeader{Location: stmt.Loc()}}
		if stmt.Init != nil {
			fs.Init = b.bindStmt(forScope, stmt.Init)
		}
		if stmt.Cond != nil {
			fs.Cond = b.bindExpr(forScope, stmt.Cond)
		}
		if stmt.Update != nil {
			fs.Update = b.bindExpr(forScope, stmt.Update)
		}
		fs.Body = b.bindStmt(forScope, stmt.Body)
		return fs
	case *syntax.ReturnStmt:
		ret := &BoundReturnStmt{StmtHeader: StmtHeader{Location: stmt.Loc()}}
		if stmt.Value != nil {
			ret.Value = b.bindExpr(scope, stmt.Value)
		}
		return ret
	case *syntax.BreakStmt:
		return &BoundBreakStmt{StmtHeader{Location: stmt.Loc()}}
	case *syntax.ContinueStmt:
		return &BoundContinueStmt{StmtHeader{Location: stmt.Loc()}}
	case *syntax.ErrorNode:
		return &BoundErrorStmt{StmtHeader{Location: stmt.Loc()}}
	default:
		b.errs.AddInternal(s.Loc(), "unhandled statement kind %T in binder", s)
		return &BoundErrorStmt{StmtHeader{Location: s.Loc()}}
	}
}

// ---- expressions ----

func (b *binder) bindExpr(scope *symbols.Symbol, e syntax.Expr) BoundExpr {
	switch expr := e.(type) {
	case *syntax.LiteralExpr:
		return b.bindLiteral(expr)
	case *syntax.NameExpr:
		return b.bindName(scope, expr)
	case *syntax.ThisExpr:
		ct := symbols.EnclosingType(scope)
		var t *types.Type
		if ct != nil {
			t = ct.CanonicalType
		} else {
			b.errs.Add(diag.BindError, expr.Loc(), "'this' used outside of any type")
		}
		return &BoundThisExpr{
			ExprHeader:     ExprHeader{Location: expr.Loc(), Type: t, Category: LValue},
			ContainingType: ct,
		}
	case *syntax.MemberAccessExpr:
		obj := b.bindExpr(scope, expr.Object)
		return &BoundMemberAccessExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: LValue},
			Object:     obj,
			Member:     expr.Member,
		}
	case *syntax.IndexExpr:
		return &BoundIndexExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: LValue},
			Object:     b.bindExpr(scope, expr.Object),
			Index:      b.bindExpr(scope, expr.Index),
		}
	case *syntax.CallExpr:
		call := &BoundCallExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: RValue},
			Callee:     b.bindExpr(scope, expr.Callee),
		}
		for _, a := range expr.Args {
			call.Args = append(call.Args, b.bindExpr(scope, a))
		}
		return call
	case *syntax.NewExpr:
		ne := &BoundNewExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Type: b.resolveTypeRef(expr.Type, scope), Category: RValue},
		}
		for _, a := range expr.Args {
			ne.Args = append(ne.Args, b.bindExpr(scope, a))
		}
		return ne
	case *syntax.UnaryExpr:
		return &BoundUnaryExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: RValue},
			Op:         expr.Op,
			Operand:    b.bindExpr(scope, expr.Operand),
		}
	case *syntax.BinaryExpr:
		return &BoundBinaryExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: RValue},
			Op:         expr.Op,
			Left:       b.bindExpr(scope, expr.Left),
			Right:      b.bindExpr(scope, expr.Right),
		}
	case *syntax.AssignExpr:
		return &BoundAssignExpr{
			ExprHeader: ExprHeader{Location: expr.Loc(), Category: RValue},
			Op:         expr.Op,
			Target:     b.bindExpr(scope, expr.Target),
			Value:      b.bindExpr(scope, expr.Value),
		}
	case *syntax.ErrorNode:
		return &BoundErrorExpr{ExprHeader{Location: expr.Loc()}}
	default:
		b.errs.AddInternal(e.Loc(), "unhandled expression kind %T in binder", e)
		return &BoundErrorExpr{ExprHeader{Location: e.Loc()}}
	}
}

func (b *binder) bindLiteral(lit *syntax.LiteralExpr) *BoundLiteralExpr {
	h := ExprHeader{Location: lit.Loc(), Category: RValue}
	c := &ConstantValue{Kind: lit.Kind}
	switch lit.Kind {
	case syntax.IntLit:
		h.Type = b.types.PrimitiveType(types.Int)
		c.IntValue = lit.IntValue
	case syntax.FloatLit:
		h.Type = b.types.PrimitiveType(types.Double)
		c.FloatValue = lit.FloatValue
	case syntax.StringLit:
		h.Type = b.types.PrimitiveType(types.String)
		c.StringValue = lit.StringValue
	case syntax.CharLit:
		h.Type = b.types.PrimitiveType(types.Char)
		c.StringValue = lit.StringValue
	case syntax.BoolLit:
		h.Type = b.types.PrimitiveType(types.Bool)
		c.BoolValue = lit.BoolValue
	case syntax.NullLit:
		h.Type = b.types.NewUnresolved() // contextually typed at the use site
	}
	h.Constant = c
	return &BoundLiteralExpr{ExprHeader: h, Kind: lit.Kind}
}

// bindName implements spec §4.4's name-disambiguation rule: an
// unqualified instance-member name becomes an implicit `this.x`; a
// qualified name rooted at a local/parameter expands into a
// BoundMemberAccessExpr chain; a name rooted at a namespace, type, or
// static member stays a (possibly multi-part) BoundNameExpr; anything the
// scope chain does not find locally is left for internal/resolve.
func (b *binder) bindName(scope *symbols.Symbol, e *syntax.NameExpr) BoundExpr {
	first := e.Parts[0]
	syms, found := symbols.LookupChain(scope, first)
	if found && len(e.Parts) == 1 && len(syms) > 0 {
		instanceMethods := true
		for _, s := range syms {
			if s.Kind != symbols.FunctionKind || s.IsStatic || s.IsConstructor || s.Parent == nil || s.Parent.Kind != symbols.TypeKind {
				instanceMethods = false
			}
		}
		if ct := symbols.EnclosingType(scope); instanceMethods && ct != nil {
			// An instance method (or its overload set) named bare: implicit
			// `this.m`, with the overload chosen by internal/resolve.
			this := &BoundThisExpr{ExprHeader: ExprHeader{Location: e.Loc(), Type: ct.CanonicalType, Category: LValue}, ContainingType: ct}
			return &BoundMemberAccessExpr{ExprHeader: ExprHeader{Location: e.Loc(), Category: RValue}, Object: this, Member: first}
		}
	}
	if !found || len(syms) != 1 {
		// Not found locally, or an overload set: overload selection is a
		// call-site concern internal/resolve handles (spec §4.5).
		return &BoundNameExpr{ExprHeader: ExprHeader{Location: e.Loc(), Category: RValue}, Parts: e.Parts, Scope: scope}
	}
	sym := syms[0]
	switch sym.Kind {
	case symbols.VariableKind, symbols.ParameterKind:
		return b.expandChain(e, &BoundNameExpr{
			ExprHeader: ExprHeader{Location: e.Loc(), Type: sym.DeclaredType, Category: LValue},
			Parts:      e.Parts[:1],
			Symbol:     sym,
			Scope:      scope,
		}, e.Parts[1:])
	case symbols.FieldKind, symbols.PropertyKind:
		if sym.IsStatic {
			return &BoundNameExpr{ExprHeader: ExprHeader{Location: e.Loc(), Type: sym.DeclaredType, Category: LValue}, Parts: e.Parts, Symbol: sym, Scope: scope}
		}
		ct := symbols.EnclosingType(scope)
		var ctType *types.Type
		if ct != nil {
			ctType = ct.CanonicalType
		}
		this := &BoundThisExpr{ExprHeader: ExprHeader{Location: e.Loc(), Type: ctType, Category: LValue}, ContainingType: ct}
		head := &BoundMemberAccessExpr{
			ExprHeader:   ExprHeader{Location: e.Loc(), Type: sym.DeclaredType, Category: LValue},
			Object:       this,
			Member:       first,
			MemberSymbol: sym,
		}
		return b.expandChain(e, head, e.Parts[1:])
	case symbols.FunctionKind:
		// A unique function symbol resolved by simple name; overload
		// disambiguation still happens at the enclosing call site.
		return &BoundNameExpr{ExprHeader: ExprHeader{Location: e.Loc(), Category: RValue}, Parts: e.Parts, Symbol: sym, Scope: scope}
	case symbols.NamespaceKind, symbols.TypeKind:
		target := symbols.DescendQualified(syms, e.Parts[1:])
		bn := &BoundNameExpr{ExprHeader: ExprHeader{Location: e.Loc(), Category: RValue}, Parts: e.Parts, Scope: scope}
		if target != nil {
			bn.Symbol = target
			if target.Kind == symbols.FieldKind || target.Kind == symbols.VariableKind {
				bn.Type = target.DeclaredType
				bn.Category = LValue
			} else if target.Kind == symbols.TypeKind {
				bn.Type = target.CanonicalType
			}
		}
		return bn
	default:
		return &BoundNameExpr{ExprHeader: ExprHeader{Location: e.Loc(), Category: RValue}, Parts: e.Parts, Scope: scope}
	}
}

// expandChain wraps head in a BoundMemberAccessExpr for each remaining
// dotted-name part, implementing the "a.b.c where a is local/parameter
// expands into a chain of BoundMemberAccess" rule.
func (b *binder) expandChain(e *syntax.NameExpr, head BoundExpr, rest []string) BoundExpr {
	cur := head
	for _, part := range rest {
		cur = &BoundMemberAccessExpr{
			ExprHeader: ExprHeader{Location: e.Loc(), Category: LValue},
			Object:     cur,
			Member:     part,
		}
	}
	return cur
}

// ---- type references ----

// resolveTypeRef resolves a syntax.TypeRef appearing inside an expression
// (currently only `new T(...)`'s T) against scope. Declaration-site type
// references (fields, parameters, return types) were already resolved by
// internal/symbols and are available directly from the relevant Symbol.
func (b *binder) resolveTypeRef(tr syntax.TypeRef, scope *symbols.Symbol) *types.Type {
	if tr == nil {
		return b.types.PrimitiveType(types.Void)
	}
	switch ref := tr.(type) {
	case *syntax.NamedTypeRef:
		if len(ref.Parts) == 1 {
			if prim, ok := primitiveKeywords[ref.Parts[0]]; ok {
				return b.types.PrimitiveType(prim)
			}
		}
		syms, ok := symbols.LookupChain(scope, ref.Parts[0])
		if ok {
			target := symbols.DescendQualified(syms, ref.Parts[1:])
			if target != nil && target.Kind == symbols.TypeKind {
				return b.types.NamedType(target)
			}
		}
		b.errs.Add(diag.BindError, ref.Loc(), "unknown type %q", ref.String())
		return b.types.NewUnresolved()
	case *syntax.ArrayTypeRef:
		elem := b.resolveTypeRef(ref.Elem, scope)
		size := -1
		if lit, ok := ref.Size.(*syntax.LiteralExpr); ok && lit.Kind == syntax.IntLit {
			size = int(lit.IntValue)
		}
		return b.types.ArrayOf(elem, size)
	case *syntax.PointerTypeRef:
		return b.types.PointerTo(b.resolveTypeRef(ref.Elem, scope))
	default:
		return b.types.NewUnresolved()
	}
}
