package symbols

import (
	"strings"

	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/source"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

// primitiveKeywords maps the fixed primitive-name set onto types.PrimitiveKind,
// used by resolveTypeRef to short-circuit a NamedTypeRef before trying a
// scope lookup.
var primitiveKeywords = map[string]types.PrimitiveKind{
	"void": types.Void, "bool": types.Bool, "char": types.Char,
	"int": types.Int, "long": types.Long, "float": types.Float,
	"double": types.Double, "string": types.String,
}

// builder runs the two-pass symbol-table construction spec §4.3 describes:
// a declare pass that creates every Namespace and Type symbol so named-type
// references can be resolved regardless of declaration order within a file,
// followed by a member pass that fills in fields, properties, functions,
// parameters, and nested block/variable scopes.
type builder struct {
	tree  *ScopeTree
	types *types.System
	errs  diag.Collector
}

// Build constructs the complete ScopeTree for one compilation unit. ts is
// the type system the resulting Type symbols' CanonicalType values and any
// resolved TypeRefs are minted from; callers building a full compilation
// normally share one types.System across the whole pipeline.
func Build(cu *syntax.CompilationUnit, ts *types.System) (*ScopeTree, []*diag.Error) {
	b := &builder{tree: newScopeTree(), types: ts}
	b.declareDecls(b.tree.Root, cu.Decls)
	b.bindDecls(b.tree.Root, cu.Decls)
	return b.tree, b.errs.Errors()
}

// ---- declare pass: Namespace and Type symbols only ----

func (b *builder) declareDecls(current *Symbol, decls []syntax.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *syntax.NamespaceDecl:
			ns := b.declareNamespacePath(current, decl.Path)
			b.tree.NodeScope[decl] = current
			b.tree.NodeSymbol[decl] = ns
			if decl.BraceLess {
				current = ns
			} else {
				b.declareDecls(ns, decl.Members)
			}
		case *syntax.TypeDecl:
			b.declareType(current, decl)
		case *syntax.MethodDecl:
			// Top-level ExternalMethodDecl: only its scope is recorded
			// here; its Function symbol, parameters and body are created
			// in the member pass (bindExternalMethod).
			b.tree.NodeScope[decl] = current
		}
	}
}

// declareNamespacePath walks/creates the chain of namespace symbols named
// by path, returning the innermost one.
func (b *builder) declareNamespacePath(current *Symbol, path []string) *Symbol {
	for _, part := range path {
		current = NewNamespace(current, part)
	}
	return current
}

func (b *builder) declareType(parent *Symbol, decl *syntax.TypeDecl) {
	sym := NewType(parent, decl.Name)
	sym.Bases = append([]string(nil), decl.Bases...)
	sym.CanonicalType = b.types.NamedType(sym)
	if dup := parent.Insert(sym); dup {
		b.errs.Add(diag.SymbolError, decl.Loc(), "duplicate definition of %q in this scope", decl.Name)
		return
	}
	b.tree.NodeScope[decl] = parent
	b.tree.NodeSymbol[decl] = sym
}

// ---- member pass: everything else ----

func (b *builder) bindDecls(current *Symbol, decls []syntax.Decl) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *syntax.NamespaceDecl:
			ns := b.tree.NodeSymbol[decl]
			if ns == nil {
				// Duplicate-name collision already reported at declare time;
				// fall back to a lookup by path so the member pass can still
				// proceed into whichever namespace symbol won.
				ns = b.lookupNamespacePath(current, decl.Path)
			}
			if decl.BraceLess {
				current = ns
			} else {
				b.bindDecls(ns, decl.Members)
			}
		case *syntax.TypeDecl:
			b.bindType(decl)
		case *syntax.MethodDecl:
			b.bindExternalMethod(current, decl)
		}
	}
}

func (b *builder) lookupNamespacePath(current *Symbol, path []string) *Symbol {
	for _, part := range path {
		syms, ok := current.Lookup(part)
		if !ok || len(syms) == 0 {
			return current
		}
		current = syms[0]
	}
	return current
}

func (b *builder) bindExternalMethod(parent *Symbol, decl *syntax.MethodDecl) {
	fn := b.declareFunction(parent, decl.Name, decl.Modifiers, decl.ReturnType, decl.Params, decl.Loc())
	fn.IsExternal = decl.Modifiers.Has(syntax.Extern) || decl.Body == nil
	b.tree.NodeScope[decl] = parent
	b.tree.NodeSymbol[decl] = fn
	if decl.Body != nil {
		b.bindBlock(fn, decl.Body)
	}
}

func (b *builder) bindType(decl *syntax.TypeDecl) {
	typeSym := b.tree.NodeSymbol[decl]
	if typeSym == nil {
		return // duplicate-name collision already reported
	}
	for _, m := range decl.Members {
		switch member := m.(type) {
		case *syntax.FieldDecl:
			b.bindField(typeSym, member)
		case *syntax.PropertyDecl:
			b.bindProperty(typeSym, member)
		case *syntax.ConstructorDecl:
			b.bindConstructor(typeSym, member)
		case *syntax.DestructorDecl:
			b.bindDestructor(typeSym, member)
		case *syntax.MethodDecl:
			b.bindMethod(typeSym, member)
		}
	}
}

func (b *builder) bindField(typeSym *Symbol, decl *syntax.FieldDecl) {
	ft := b.resolveTypeRef(decl.Type, typeSym)
	for _, dtor := range decl.Declarators {
		field := NewField(typeSym, dtor.Name)
		field.DeclaredType = ft
		if dup := typeSym.Insert(field); dup {
			b.errs.Add(diag.SymbolError, dtor.Loc(), "duplicate definition of %q in this scope", dtor.Name)
			continue
		}
		typeSym.FieldOrder = append(typeSym.FieldOrder, field)
		b.tree.NodeScope[dtor] = typeSym
		b.tree.NodeSymbol[dtor] = field
	}
	b.tree.NodeScope[decl] = typeSym
}

func (b *builder) bindProperty(typeSym *Symbol, decl *syntax.PropertyDecl) {
	pt := b.resolveTypeRef(decl.Type, typeSym)
	prop := NewProperty(typeSym, decl.Name)
	prop.DeclaredType = pt
	if dup := typeSym.Insert(prop); dup {
		b.errs.Add(diag.SymbolError, decl.Loc(), "duplicate definition of %q in this scope", decl.Name)
		return
	}
	b.tree.NodeScope[decl] = typeSym
	b.tree.NodeSymbol[decl] = prop

	if decl.Getter != nil {
		get := NewFunction(prop, "get")
		get.ReturnType = pt
		get.VTableSlot = -1
		prop.Insert(get)
		b.tree.NodeSymbol[decl.Getter] = get
		b.tree.NodeScope[decl.Getter] = prop
		if decl.Getter.Body != nil {
			b.bindBlock(get, decl.Getter.Body)
		}
	}
	if decl.Setter != nil {
		set := NewFunction(prop, "set")
		set.ReturnType = b.types.PrimitiveType(types.Void)
		valueParam := NewParameter(set, "value")
		valueParam.DeclaredType = pt
		set.Params = append(set.Params, valueParam)
		set.Insert(valueParam)
		prop.Insert(set)
		b.tree.NodeSymbol[decl.Setter] = set
		b.tree.NodeScope[decl.Setter] = prop
		if decl.Setter.Body != nil {
			b.bindBlock(set, decl.Setter.Body)
		}
	}
}

func (b *builder) bindConstructor(typeSym *Symbol, decl *syntax.ConstructorDecl) {
	fn := NewFunction(typeSym, typeSym.Name)
	fn.IsConstructor = true
	fn.ReturnType = typeSym.CanonicalType
	b.addParams(fn, decl.Params)
	if dup := typeSym.Insert(fn); dup {
		b.errs.Add(diag.SymbolError, decl.Loc(), "duplicate constructor overload conflicts on arity/types in this scope")
	}
	b.tree.NodeScope[decl] = typeSym
	b.tree.NodeSymbol[decl] = fn
	if decl.Body != nil {
		b.bindBlock(fn, decl.Body)
	}
}

func (b *builder) bindDestructor(typeSym *Symbol, decl *syntax.DestructorDecl) {
	fn := NewFunction(typeSym, "~"+typeSym.Name)
	fn.IsDestructor = true
	fn.ReturnType = b.types.PrimitiveType(types.Void)
	if prior, _ := typeSym.Lookup(fn.Name); len(prior) > 0 {
		b.errs.Add(diag.SymbolError, decl.Loc(), "a type may declare at most one destructor")
	} else {
		typeSym.Insert(fn)
	}
	b.tree.NodeScope[decl] = typeSym
	b.tree.NodeSymbol[decl] = fn
	if decl.Body != nil {
		b.bindBlock(fn, decl.Body)
	}
}

func (b *builder) bindMethod(typeSym *Symbol, decl *syntax.MethodDecl) {
	fn := b.declareFunction(typeSym, decl.Name, decl.Modifiers, decl.ReturnType, decl.Params, decl.Loc())
	fn.IsVirtual = decl.Modifiers.Has(syntax.Virtual) || decl.Modifiers.Has(syntax.Abstract)
	fn.IsOverride = decl.Modifiers.Has(syntax.Override)
	fn.IsStatic = decl.Modifiers.Has(syntax.Static)
	fn.IsExternal = decl.Modifiers.Has(syntax.Extern) || decl.Body == nil
	if fn.IsVirtual || fn.IsOverride {
		typeSym.VirtualOrder = append(typeSym.VirtualOrder, fn)
	}
	b.tree.NodeScope[decl] = typeSym
	b.tree.NodeSymbol[decl] = fn
	if decl.Body != nil {
		b.bindBlock(fn, decl.Body)
	}
}

// declareFunction creates and inserts a Function symbol with its
// parameters and return type filled in; shared by methods and top-level
// external method declarations.
func (b *builder) declareFunction(parent *Symbol, name string, mods syntax.ModifierSet, retRef syntax.TypeRef, params []*syntax.ParameterDecl, loc source.Location) *Symbol {
	fn := NewFunction(parent, name)
	fn.ReturnType = b.resolveTypeRef(retRef, parent)
	b.addParams(fn, params)
	if dup := parent.Insert(fn); dup {
		b.errs.Add(diag.SymbolError, loc, "duplicate overload of %q conflicts with an existing non-function member", name)
	}
	return fn
}

func (b *builder) addParams(fn *Symbol, params []*syntax.ParameterDecl) {
	for _, p := range params {
		param := NewParameter(fn, p.Name)
		param.DeclaredType = b.resolveTypeRef(p.Type, fn)
		fn.Params = append(fn.Params, param)
		if dup := fn.Insert(param); dup {
			b.errs.Add(diag.SymbolError, p.Loc(), "duplicate parameter name %q", p.Name)
			continue
		}
		b.tree.NodeScope[p] = fn
		b.tree.NodeSymbol[p] = param
	}
}

// ---- statement/local scope binding ----

func (b *builder) bindBlock(parent *Symbol, block *syntax.BlockStmt) *Symbol {
	scope := NewBlock(parent)
	b.tree.NodeScope[block] = scope
	for _, s := range block.Stmts {
		b.bindStmt(scope, s)
	}
	return scope
}

func (b *builder) bindStmt(scope *Symbol, s syntax.Stmt) {
	b.tree.NodeScope[s] = scope
	switch stmt := s.(type) {
	case *syntax.BlockStmt:
		b.bindBlock(scope, stmt)
	case *syntax.LocalVarDeclStmt:
		vt := b.resolveTypeRef(stmt.Type, scope)
		for _, dtor := range stmt.Declarators {
			v := NewVariable(scope, dtor.Name)
			v.DeclaredType = vt
			if dup := scope.Insert(v); dup {
				b.errs.Add(diag.SymbolError, dtor.Loc(), "duplicate definition of %q in this scope", dtor.Name)
				continue
			}
			b.tree.NodeScope[dtor] = scope
			b.tree.NodeSymbol[dtor] = v
		}
	case *syntax.IfStmt:
		b.bindStmt(scope, stmt.Then)
		if stmt.Else != nil {
			b.bindStmt(scope, stmt.Else)
		}
	case *syntax.WhileStmt:
		b.bindStmt(scope, stmt.Body)
	case *syntax.ForStmt:
		forScope := NewForScope(scope)
		b.tree.NodeScope[stmt] = forScope
		if stmt.Init != nil {
			b.bindStmt(forScope, stmt.Init)
		}
		b.bindStmt(forScope, stmt.Body)
	}
}

// ---- type references ----

func (b *builder) resolveTypeRef(tr syntax.TypeRef, scope *Symbol) *types.Type {
	if tr == nil {
		return b.types.PrimitiveType(types.Void)
	}
	switch ref := tr.(type) {
	case *syntax.NamedTypeRef:
		return b.resolveNamedTypeRef(ref, scope)
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

func (b *builder) resolveNamedTypeRef(ref *syntax.NamedTypeRef, scope *Symbol) *types.Type {
	if len(ref.Parts) == 1 {
		if prim, ok := primitiveKeywords[ref.Parts[0]]; ok {
			return b.types.PrimitiveType(prim)
		}
	}
	name := strings.Join(ref.Parts, ".")
	syms, ok := LookupChain(scope, ref.Parts[0])
	if ok {
		target := DescendQualified(syms, ref.Parts[1:])
		if target != nil && target.Kind == TypeKind {
			return b.types.NamedType(target)
		}
	}
	b.errs.Add(diag.SymbolError, ref.Loc(), "unknown type %q", name)
	return b.types.NewUnresolved()
}
