package syntax

import (
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/source"
)

// primitiveKeywords is the set of type keywords that may start a TypeRef,
// used by the local-var-vs-expression-statement lookahead (spec §4.2) and
// by the declaration-boundary recovery skip-set (spec §4.2's error
// recovery policy).
var primitiveKeywords = map[string]bool{
	"void": true, "bool": true, "char": true, "int": true, "long": true,
	"float": true, "double": true, "string": true,
}

var modifierKeywords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "readonly": true, "virtual": true, "override": true,
	"abstract": true, "extern": true,
}

const maxErrorsPerBlock = 10

// Parser implements Nova's recursive-descent parser (spec §4.2). It never
// panics for a recoverable problem: every parse rule records a diagnostic
// on errs and returns its best-effort partial node, exactly as the
// teacher's Parse/parseExpression in internal/tunascript/parser.go returns
// (node, error) pairs instead of using exceptions for control flow.
type Parser struct {
	s            *lexer.Stream
	arena        *Arena
	errs         diag.Collector
	filename     string
	lastConsumed lexer.Token
}

// Parse consumes tokens and produces a CompilationUnit plus the list of
// ParseErrors recorded along the way, per spec §4.2's contract.
func Parse(stream *lexer.Stream, filename string) (*CompilationUnit, []*diag.Error) {
	p := &Parser{s: stream, arena: NewArena(), filename: filename}
	cu := p.parseCompilationUnit()
	return cu, p.errs.Errors()
}

func (p *Parser) header(start source.Location) Header {
	return Header{ID: p.arena.nodeID(), Location: start}
}

func (p *Parser) finish(h *Header) {
	// The node's location end is the end of the most-recently-consumed
	// token, per spec §4.2's node-finalization rule. Next() always
	// advances past the last token actually consumed by the rule that
	// calls finish, so we look one token behind the cursor.
	prev := p.lastConsumed
	h.Location.LineEnd = prev.Location.LineEnd
	h.Location.ColEnd = prev.Location.ColEnd
}

func (p *Parser) next() lexer.Token {
	t := p.s.Next()
	p.lastConsumed = t
	return t
}

func (p *Parser) peek() lexer.Token      { return p.s.Peek() }
func (p *Parser) peekAt(n int) lexer.Token { return p.s.PeekAt(n) }

func (p *Parser) at(kind lexer.Kind) bool { return p.peek().Kind == kind }

func (p *Parser) atKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == lexer.Keyword && t.Lexeme == kw
}

func (p *Parser) errorf(loc source.Location, format string, args ...interface{}) {
	p.errs.Add(diag.ParseError, loc, format, args...)
}

// expect consumes the current token if it matches kind; otherwise it
// records a ParseError at the current location (without advancing, so the
// caller's recovery logic decides what happens next) and returns the zero
// Token with ok=false.
func (p *Parser) expect(kind lexer.Kind, human string) (lexer.Token, bool) {
	if p.at(kind) {
		return p.next(), true
	}
	p.errorf(p.peek().Location, "expected %s, found %q", human, p.peek().Lexeme)
	return lexer.Token{}, false
}

// ---- top level ----

func (p *Parser) parseCompilationUnit() *CompilationUnit {
	start := p.peek().Location
	h := p.header(start)
	cu := &CompilationUnit{Header: h, Filename: p.filename}

	for p.atKeyword("using") {
		cu.Usings = append(cu.Usings, p.parseUsingDirective())
	}

	for !p.at(lexer.EOF) {
		d := p.parseTopLevelDecl()
		if d != nil {
			cu.Decls = append(cu.Decls, d)
		}
	}
	p.finish(&cu.Header)
	return cu
}

func (p *Parser) parseUsingDirective() *UsingDirective {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'using'
	parts := p.parseQualName()
	p.expect(lexer.Semicolon, `";"`)
	u := &UsingDirective{Header: h, Path: parts}
	p.finish(&u.Header)
	return u
}

func (p *Parser) parseQualName() []string {
	var parts []string
	t, ok := p.expect(lexer.Identifier, "identifier")
	if !ok {
		return parts
	}
	parts = append(parts, t.Lexeme)
	for p.at(lexer.Dot) {
		p.next()
		t, ok := p.expect(lexer.Identifier, "identifier")
		if !ok {
			break
		}
		parts = append(parts, t.Lexeme)
	}
	return parts
}

func (p *Parser) parseTopLevelDecl() Decl {
	if p.atKeyword("namespace") {
		return p.parseNamespaceDecl()
	}
	mods := p.parseModifiers()
	if p.atKeyword("class") {
		return p.parseTypeDecl(mods)
	}
	if p.looksLikeTypeStart() {
		return p.parseMethodDeclAfterModifiers(mods)
	}
	p.errorf(p.peek().Location, "expected a namespace, class, or external method declaration, found %q", p.peek().Lexeme)
	p.recoverToDeclBoundary()
	return nil
}

func (p *Parser) parseNamespaceDecl() *NamespaceDecl {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'namespace'
	path := p.parseQualName()
	n := &NamespaceDecl{Header: h, Path: path}
	if p.at(lexer.Semicolon) {
		p.next()
		n.BraceLess = true
		p.finish(&n.Header)
		return n
	}
	if _, ok := p.expect(lexer.LBrace, `"{"`); !ok {
		p.finish(&n.Header)
		return n
	}
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		d := p.parseMemberOrNested()
		if d != nil {
			n.Members = append(n.Members, d)
		}
	}
	p.expectCloser(lexer.RBrace, `"}"`, start)
	p.finish(&n.Header)
	return n
}

// parseMemberOrNested parses one declaration inside a namespace body:
// another namespace, a class, or an external method.
func (p *Parser) parseMemberOrNested() Decl {
	if p.atKeyword("namespace") {
		return p.parseNamespaceDecl()
	}
	mods := p.parseModifiers()
	if p.atKeyword("class") {
		return p.parseTypeDecl(mods)
	}
	if p.looksLikeTypeStart() {
		return p.parseMethodDeclAfterModifiers(mods)
	}
	p.errorf(p.peek().Location, "expected a declaration, found %q", p.peek().Lexeme)
	p.recoverToDeclBoundary()
	return nil
}

func (p *Parser) parseModifiers() ModifierSet {
	var m ModifierSet
	for {
		t := p.peek()
		if t.Kind != lexer.Keyword || !modifierKeywords[t.Lexeme] {
			return m
		}
		p.next()
		switch t.Lexeme {
		case "public":
			m |= Public
		case "private":
			m |= Private
		case "protected":
			m |= Protected
		case "internal":
			m |= Internal
		case "static":
			m |= Static
		case "readonly":
			m |= Readonly
		case "virtual":
			m |= Virtual
		case "override":
			m |= Override
		case "abstract":
			m |= Abstract
		case "extern":
			m |= Extern
		}
	}
}

func (p *Parser) looksLikeTypeStart() bool {
	t := p.peek()
	if t.Kind == lexer.Keyword && primitiveKeywords[t.Lexeme] {
		return true
	}
	return t.Kind == lexer.Identifier
}

// ---- type declarations ----

func (p *Parser) parseTypeDecl(mods ModifierSet) *TypeDecl {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'class'
	name := ""
	if t, ok := p.expect(lexer.Identifier, "class name"); ok {
		name = t.Lexeme
	}
	td := &TypeDecl{Header: h, Modifiers: mods, Name: name}
	if p.at(lexer.Colon) {
		p.next()
		td.Bases = append(td.Bases, p.parseQualName()...)
		for p.at(lexer.Comma) {
			p.next()
			td.Bases = append(td.Bases, p.parseQualName()...)
		}
	}
	if _, ok := p.expect(lexer.LBrace, `"{"`); !ok {
		p.finish(&td.Header)
		return td
	}
	errCount := 0
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		member := p.parseMember(name)
		if member != nil {
			td.Members = append(td.Members, member)
		} else {
			errCount++
			if errCount > maxErrorsPerBlock {
				p.skipToMatching(lexer.RBrace)
				break
			}
		}
	}
	p.expectCloser(lexer.RBrace, `"}"`, start)
	p.finish(&td.Header)
	return td
}

// parseMember parses one class member: a field, method, constructor,
// destructor, or property, per spec §4.2's lookahead-based disambiguation
// (Identifier( matching the class name is a constructor; ~Identifier(
// matching the class name is a destructor).
func (p *Parser) parseMember(className string) Decl {
	// destructor lookahead: `~Identifier(` matching the enclosing class
	// name, per spec §4.2.
	if p.at(lexer.Tilde) && p.peekAt(1).Kind == lexer.Identifier && p.peekAt(1).Lexeme == className && p.peekAt(2).Kind == lexer.LParen {
		return p.parseDestructorDecl(className)
	}

	mods := p.parseModifiers()

	if p.at(lexer.Identifier) && p.peek().Lexeme == className && p.peekAt(1).Kind == lexer.LParen {
		return p.parseConstructorDecl(mods, className)
	}

	if p.looksLikeTypeStart() {
		typ := p.parseTypeRef()
		nameTok, ok := p.expect(lexer.Identifier, "member name")
		if !ok {
			p.recoverToDeclBoundary()
			return nil
		}
		if p.at(lexer.LParen) {
			return p.parseMethodDeclWithSignature(mods, typ, nameTok)
		}
		if p.at(lexer.LBrace) {
			return p.parsePropertyDecl(mods, typ, nameTok)
		}
		return p.parseFieldDeclWithFirstName(mods, typ, nameTok)
	}

	p.errorf(p.peek().Location, "expected a member declaration, found %q", p.peek().Lexeme)
	p.recoverToDeclBoundary()
	return nil
}

func (p *Parser) parseConstructorDecl(mods ModifierSet, className string) *ConstructorDecl {
	start := p.peek().Location
	h := p.header(start)
	p.next() // name
	params := p.parseParameterList()
	body := p.tryParseBlock()
	c := &ConstructorDecl{Header: h, Modifiers: mods, Name: className, Params: params, Body: body}
	p.finish(&c.Header)
	return c
}

func (p *Parser) parseMethodDeclAfterModifiers(mods ModifierSet) *MethodDecl {
	start := p.peek().Location
	h := p.header(start)
	typ := p.parseTypeRef()
	nameTok, ok := p.expect(lexer.Identifier, "method name")
	name := ""
	if ok {
		name = nameTok.Lexeme
	}
	params := p.parseParameterList()
	body := p.tryParseBlock()
	if body == nil {
		// extern/abstract declarations end in ';' instead of a body.
		p.expect(lexer.Semicolon, `";"`)
	}
	m := &MethodDecl{Header: h, Modifiers: mods, ReturnType: typ, Name: name, Params: params, Body: body}
	p.finish(&m.Header)
	return m
}

func (p *Parser) parseMethodDeclWithSignature(mods ModifierSet, typ TypeRef, nameTok lexer.Token) *MethodDecl {
	h := Header{ID: p.arena.nodeID(), Location: typ.Loc()}
	params := p.parseParameterList()
	body := p.tryParseBlock()
	if body == nil {
		p.expect(lexer.Semicolon, `";"`)
	}
	m := &MethodDecl{Header: h, Modifiers: mods, ReturnType: typ, Name: nameTok.Lexeme, Params: params, Body: body}
	p.finish(&m.Header)
	return m
}

func (p *Parser) parseParameterList() []*ParameterDecl {
	open := p.peek().Location
	if _, ok := p.expect(lexer.LParen, `"("`); !ok {
		return nil
	}
	var params []*ParameterDecl
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		start := p.peek().Location
		h := p.header(start)
		typ := p.parseTypeRef()
		nameTok, ok := p.expect(lexer.Identifier, "parameter name")
		name := ""
		if ok {
			name = nameTok.Lexeme
		}
		pd := &ParameterDecl{Header: h, Type: typ, Name: name}
		p.finish(&pd.Header)
		params = append(params, pd)
		if p.at(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expectCloser(lexer.RParen, `")"`, open)
	return params
}

func (p *Parser) parseDestructorDecl(className string) *DestructorDecl {
	start := p.peek().Location
	h := p.header(start)
	p.next() // '~'
	p.expect(lexer.Identifier, "destructor name")
	p.expect(lexer.LParen, `"("`)
	p.expect(lexer.RParen, `")"`)
	body := p.tryParseBlock()
	d := &DestructorDecl{Header: h, Name: className, Body: body}
	p.finish(&d.Header)
	return d
}

func (p *Parser) parsePropertyDecl(mods ModifierSet, typ TypeRef, nameTok lexer.Token) *PropertyDecl {
	h := Header{ID: p.arena.nodeID(), Location: typ.Loc()}
	prop := &PropertyDecl{Header: h, Modifiers: mods, Type: typ, Name: nameTok.Lexeme}
	open := p.peek().Location
	p.expect(lexer.LBrace, `"{"`)
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		if p.peek().Kind == lexer.Identifier && (p.peek().Lexeme == "get" || p.peek().Lexeme == "set") {
			acc := p.parseAccessor()
			if acc.IsSetter {
				prop.Setter = acc
			} else {
				prop.Getter = acc
			}
			continue
		}
		p.errorf(p.peek().Location, "expected get or set accessor, found %q", p.peek().Lexeme)
		p.next()
	}
	p.expectCloser(lexer.RBrace, `"}"`, open)
	p.finish(&prop.Header)
	return prop
}

func (p *Parser) parseAccessor() *AccessorDecl {
	start := p.peek().Location
	h := p.header(start)
	tok := p.next()
	a := &AccessorDecl{Header: h, IsSetter: tok.Lexeme == "set"}
	if p.at(lexer.LBrace) {
		a.Body = p.tryParseBlock()
	} else {
		p.expect(lexer.Semicolon, `";"`)
	}
	p.finish(&a.Header)
	return a
}

func (p *Parser) parseFieldDeclWithFirstName(mods ModifierSet, typ TypeRef, nameTok lexer.Token) *FieldDecl {
	h := Header{ID: p.arena.nodeID(), Location: typ.Loc()}
	f := &FieldDecl{Header: h, Modifiers: mods, Type: typ}
	f.Declarators = append(f.Declarators, p.parseDeclaratorAfterName(nameTok))
	for p.at(lexer.Comma) {
		p.next()
		nt, ok := p.expect(lexer.Identifier, "variable name")
		if !ok {
			break
		}
		f.Declarators = append(f.Declarators, p.parseDeclaratorAfterName(nt))
	}
	p.expect(lexer.Semicolon, `";"`)
	p.finish(&f.Header)
	return f
}

func (p *Parser) parseDeclaratorAfterName(nameTok lexer.Token) *VariableDeclarator {
	h := p.header(nameTok.Location)
	vd := &VariableDeclarator{Header: h, Name: nameTok.Lexeme}
	if p.at(lexer.Assign) {
		p.next()
		vd.Initializer = p.parseExpression()
	}
	p.finish(&vd.Header)
	return vd
}

// ---- type references ----

func (p *Parser) parseTypeRef() TypeRef {
	start := p.peek().Location
	h := p.header(start)
	var base TypeRef
	if p.peek().Kind == lexer.Keyword && primitiveKeywords[p.peek().Lexeme] {
		t := p.next()
		nt := &NamedTypeRef{Header: h, Parts: []string{t.Lexeme}}
		p.finish(&nt.Header)
		base = nt
	} else {
		parts := p.parseQualName()
		nt := &NamedTypeRef{Header: h, Parts: parts}
		p.finish(&nt.Header)
		base = nt
	}
	for {
		if p.at(lexer.Star) {
			ph := p.header(base.Loc())
			p.next()
			pt := &PointerTypeRef{Header: ph, Elem: base}
			p.finish(&pt.Header)
			base = pt
			continue
		}
		if p.at(lexer.LBracket) {
			open := p.peek().Location
			ah := p.header(base.Loc())
			p.next()
			var size Expr
			if !p.at(lexer.RBracket) {
				size = p.parseExpression()
			}
			p.expectCloser(lexer.RBracket, `"]"`, open)
			at := &ArrayTypeRef{Header: ah, Elem: base, Size: size}
			p.finish(&at.Header)
			base = at
			continue
		}
		break
	}
	return base
}

// ---- statements ----

func (p *Parser) tryParseBlock() *BlockStmt {
	if !p.at(lexer.LBrace) {
		return nil
	}
	return p.parseBlock()
}

func (p *Parser) parseBlock() *BlockStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next() // '{'
	b := &BlockStmt{Header: h}
	errCount := 0
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		errsBefore := len(p.errs.Errors())
		stmt := p.parseStatement()
		if stmt != nil {
			b.Stmts = append(b.Stmts, stmt)
		}
		if len(p.errs.Errors()) > errsBefore {
			errCount++
			if errCount > maxErrorsPerBlock {
				p.skipToMatching(lexer.RBrace)
				break
			}
		}
	}
	p.expectCloser(lexer.RBrace, `"}"`, start)
	p.finish(&b.Header)
	return b
}

func (p *Parser) parseStatement() Stmt {
	switch {
	case p.at(lexer.LBrace):
		return p.parseBlock()
	case p.atKeyword("if"):
		return p.parseIfStmt()
	case p.atKeyword("while"):
		return p.parseWhileStmt()
	case p.atKeyword("for"):
		return p.parseForStmt()
	case p.atKeyword("return"):
		return p.parseReturnStmt()
	case p.atKeyword("break"):
		return p.parseBreakStmt()
	case p.atKeyword("continue"):
		return p.parseContinueStmt()
	case p.isLocalVarDeclStart():
		return p.parseLocalVarDeclStmt()
	default:
		return p.parseExprStmt()
	}
}

// isLocalVarDeclStart implements spec §4.2's single-token-of-lookahead
// rule: `Type Identifier` (Type a primitive keyword or an Identifier)
// begins a local variable declaration; anything else is an expression
// statement.
func (p *Parser) isLocalVarDeclStart() bool {
	t := p.peek()
	if t.Kind == lexer.Keyword && primitiveKeywords[t.Lexeme] {
		return true
	}
	if t.Kind != lexer.Identifier {
		return false
	}
	i := 1
	for p.peekAt(i).Kind == lexer.Dot && p.peekAt(i+1).Kind == lexer.Identifier {
		i += 2
	}
	for p.peekAt(i).Kind == lexer.LBracket && p.peekAt(i+1).Kind == lexer.RBracket {
		i += 2
	}
	for p.peekAt(i).Kind == lexer.Star {
		i++
	}
	return p.peekAt(i).Kind == lexer.Identifier
}

func (p *Parser) parseLocalVarDeclStmt() *LocalVarDeclStmt {
	start := p.peek().Location
	h := p.header(start)
	typ := p.parseTypeRef()
	nameTok, ok := p.expect(lexer.Identifier, "variable name")
	s := &LocalVarDeclStmt{Header: h, Type: typ}
	if ok {
		s.Declarators = append(s.Declarators, p.parseDeclaratorAfterName(nameTok))
		for p.at(lexer.Comma) {
			p.next()
			nt, ok := p.expect(lexer.Identifier, "variable name")
			if !ok {
				break
			}
			s.Declarators = append(s.Declarators, p.parseDeclaratorAfterName(nt))
		}
	}
	p.expect(lexer.Semicolon, `";"`)
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseExprStmt() Stmt {
	start := p.peek().Location
	if p.at(lexer.Semicolon) {
		p.next() // empty statement
		return nil
	}
	h := p.header(start)
	e := p.parseExpression()
	p.expect(lexer.Semicolon, `";"`)
	es := &ExprStmt{Header: h, Expr: e}
	p.finish(&es.Header)
	return es
}

func (p *Parser) parseIfStmt() *IfStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'if'
	open := p.peek().Location
	p.expect(lexer.LParen, `"("`)
	cond := p.parseExpression()
	p.expectCloser(lexer.RParen, `")"`, open)
	then := p.parseStatement()
	s := &IfStmt{Header: h, Cond: cond, Then: then}
	if p.atKeyword("else") {
		p.next()
		s.Else = p.parseStatement()
	}
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseWhileStmt() *WhileStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'while'
	open := p.peek().Location
	p.expect(lexer.LParen, `"("`)
	cond := p.parseExpression()
	p.expectCloser(lexer.RParen, `")"`, open)
	body := p.parseStatement()
	s := &WhileStmt{Header: h, Cond: cond, Body: body}
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseForStmt() *ForStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'for'
	open := p.peek().Location
	p.expect(lexer.LParen, `"("`)

	s := &ForStmt{Header: h}
	if !p.at(lexer.Semicolon) {
		if p.isLocalVarDeclStart() {
			s.Init = p.parseLocalVarDeclStmt()
		} else {
			e := p.parseExpression()
			p.expect(lexer.Semicolon, `";"`)
			eh := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			s.Init = &ExprStmt{Header: eh, Expr: e}
		}
	} else {
		p.next()
	}

	if !p.at(lexer.Semicolon) {
		s.Cond = p.parseExpression()
	}
	p.expect(lexer.Semicolon, `";"`)

	if !p.at(lexer.RParen) {
		s.Update = p.parseExpression()
	}
	p.expectCloser(lexer.RParen, `")"`, open)

	s.Body = p.parseStatement()
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseReturnStmt() *ReturnStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'return'
	s := &ReturnStmt{Header: h}
	if !p.at(lexer.Semicolon) {
		s.Value = p.parseExpression()
	}
	p.expect(lexer.Semicolon, `";"`)
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseBreakStmt() *BreakStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next()
	p.expect(lexer.Semicolon, `";"`)
	s := &BreakStmt{Header: h}
	p.finish(&s.Header)
	return s
}

func (p *Parser) parseContinueStmt() *ContinueStmt {
	start := p.peek().Location
	h := p.header(start)
	p.next()
	p.expect(lexer.Semicolon, `";"`)
	s := &ContinueStmt{Header: h}
	p.finish(&s.Header)
	return s
}

// ---- expressions ----
//
// Precedence, low to high, mirrors spec §4.2 exactly: assignment
// (right-assoc), logical-or, logical-and, equality, relational, additive,
// multiplicative, unary, postfix, primary. Each tier is its own function,
// in the classic recursive-descent style the teacher's parser uses at the
// single-tier expression level (internal/tunascript/parser.go); here the
// tiers are made explicit because Nova's grammar fixes the whole ladder
// instead of deriving it from per-token binding powers.

func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() Expr {
	left := p.parseLogicalOr()
	op, isAssign := p.assignOpAt(p.peek().Kind)
	if !isAssign {
		return left
	}
	p.next() // assignment operator
	right := p.parseAssignment() // right-associative
	h := Header{ID: p.arena.nodeID(), Location: left.Loc()}
	a := &AssignExpr{Header: h, Op: op, Target: left, Value: right}
	p.finish(&a.Header)
	return a
}

func (p *Parser) assignOpAt(k lexer.Kind) (AssignOp, bool) {
	switch k {
	case lexer.Assign:
		return AssignSet, true
	case lexer.PlusEq:
		return AssignAdd, true
	case lexer.MinusEq:
		return AssignSub, true
	case lexer.StarEq:
		return AssignMul, true
	case lexer.SlashEq:
		return AssignDiv, true
	case lexer.PercentEq:
		return AssignMod, true
	default:
		return 0, false
	}
}

func (p *Parser) parseLogicalOr() Expr {
	left := p.parseLogicalAnd()
	for p.at(lexer.OrOr) {
		p.next()
		right := p.parseLogicalAnd()
		left = p.mkBinary(left, BinOr, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() Expr {
	left := p.parseEquality()
	for p.at(lexer.AndAnd) {
		p.next()
		right := p.parseEquality()
		left = p.mkBinary(left, BinAnd, right)
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseRelational()
	for p.at(lexer.Eq) || p.at(lexer.NotEq) {
		op := BinEq
		if p.at(lexer.NotEq) {
			op = BinNotEq
		}
		p.next()
		right := p.parseRelational()
		left = p.mkBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseRelational() Expr {
	left := p.parseAdditive()
	for {
		var op BinaryOp
		switch {
		case p.at(lexer.Lt):
			op = BinLt
		case p.at(lexer.Gt):
			op = BinGt
		case p.at(lexer.LtEq):
			op = BinLtEq
		case p.at(lexer.GtEq):
			op = BinGtEq
		default:
			return left
		}
		// Bounded trial parse for "possibly-a-generic-call" (spec §4.2):
		// only relevant at a '<'; Nova's fixed simplified grammar (spec §9
		// Open Question resolution) always falls back to the comparison
		// reading because no generic declaration syntax exists, but the
		// save/restore machinery is kept so a later grammar revision can
		// re-enable it without restructuring this tier.
		if op == BinLt {
			mark := p.s.Mark()
			p.tryGenericArgList()
			p.s.Reset(mark)
		}
		p.next()
		right := p.parseAdditive()
		left = p.mkBinary(left, op, right)
	}
}

// tryGenericArgList attempts the bounded trial parse described in spec
// §4.2: a comma-separated type list terminated by '>' immediately
// followed by '('. It never mutates the tree; it only probes the token
// stream, advancing the cursor, and reports whether the tokens have that
// shape. The grammar has no generic-call node to commit to, so its only
// caller, parseRelational's '<' handling, rewinds after the probe whatever
// it returns and parses '<' as less-than.
func (p *Parser) tryGenericArgList() bool {
	if !p.at(lexer.Lt) {
		return false
	}
	p.next()
	for {
		if p.peek().Kind != lexer.Identifier && !(p.peek().Kind == lexer.Keyword && primitiveKeywords[p.peek().Lexeme]) {
			return false
		}
		p.next()
		if p.at(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	if !p.at(lexer.Gt) {
		return false
	}
	p.next()
	return p.at(lexer.LParen)
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.at(lexer.Plus) || p.at(lexer.Minus) {
		op := BinAdd
		if p.at(lexer.Minus) {
			op = BinSub
		}
		p.next()
		right := p.parseMultiplicative()
		left = p.mkBinary(left, op, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.at(lexer.Star) || p.at(lexer.Slash) || p.at(lexer.Percent) {
		var op BinaryOp
		switch {
		case p.at(lexer.Star):
			op = BinMul
		case p.at(lexer.Slash):
			op = BinDiv
		default:
			op = BinMod
		}
		p.next()
		right := p.parseUnary()
		left = p.mkBinary(left, op, right)
	}
	return left
}

func (p *Parser) mkBinary(left Expr, op BinaryOp, right Expr) *BinaryExpr {
	h := Header{ID: p.arena.nodeID(), Location: left.Loc()}
	b := &BinaryExpr{Header: h, Op: op, Left: left, Right: right}
	p.finish(&b.Header)
	return b
}

func (p *Parser) parseUnary() Expr {
	start := p.peek().Location
	switch {
	case p.at(lexer.Not):
		h := p.header(start)
		p.next()
		operand := p.parseUnary()
		u := &UnaryExpr{Header: h, Op: UnaryNot, Operand: operand}
		p.finish(&u.Header)
		return u
	case p.at(lexer.Minus):
		h := p.header(start)
		p.next()
		operand := p.parseUnary()
		u := &UnaryExpr{Header: h, Op: UnaryNeg, Operand: operand}
		p.finish(&u.Header)
		return u
	case p.at(lexer.Plus):
		h := p.header(start)
		p.next()
		operand := p.parseUnary()
		u := &UnaryExpr{Header: h, Op: UnaryPlus, Operand: operand}
		p.finish(&u.Header)
		return u
	case p.at(lexer.PlusPlus):
		h := p.header(start)
		p.next()
		operand := p.parseUnary()
		u := &UnaryExpr{Header: h, Op: UnaryPreInc, Operand: operand}
		p.finish(&u.Header)
		return u
	case p.at(lexer.MinusMinus):
		h := p.header(start)
		p.next()
		operand := p.parseUnary()
		u := &UnaryExpr{Header: h, Op: UnaryPreDec, Operand: operand}
		p.finish(&u.Header)
		return u
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		switch {
		case p.at(lexer.Dot):
			p.next()
			nameTok, ok := p.expect(lexer.Identifier, "member name")
			name := ""
			if ok {
				name = nameTok.Lexeme
			}
			h := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			m := &MemberAccessExpr{Header: h, Object: e, Member: name}
			p.finish(&m.Header)
			e = m
		case p.at(lexer.LBracket):
			open := p.peek().Location
			p.next()
			idx := p.parseExpression()
			p.expectCloser(lexer.RBracket, `"]"`, open)
			h := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			ie := &IndexExpr{Header: h, Object: e, Index: idx}
			p.finish(&ie.Header)
			e = ie
		case p.at(lexer.LParen):
			args := p.parseArgList()
			h := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			c := &CallExpr{Header: h, Callee: e, Args: args}
			p.finish(&c.Header)
			e = c
		case p.at(lexer.PlusPlus):
			p.next()
			h := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			u := &UnaryExpr{Header: h, Op: UnaryPostInc, Operand: e}
			p.finish(&u.Header)
			e = u
		case p.at(lexer.MinusMinus):
			p.next()
			h := Header{ID: p.arena.nodeID(), Location: e.Loc()}
			u := &UnaryExpr{Header: h, Op: UnaryPostDec, Operand: e}
			p.finish(&u.Header)
			e = u
		default:
			return e
		}
	}
}

func (p *Parser) parseArgList() []Expr {
	open := p.peek().Location
	p.expect(lexer.LParen, `"("`)
	var args []Expr
	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		args = append(args, p.parseExpression())
		if p.at(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expectCloser(lexer.RParen, `")"`, open)
	return args
}

func (p *Parser) parsePrimary() Expr {
	start := p.peek().Location
	t := p.peek()

	switch t.Kind {
	case lexer.IntLiteral:
		p.next()
		h := p.header(start)
		e := &LiteralExpr{Header: h, Kind: IntLit, IntValue: t.IntValue}
		p.finish(&e.Header)
		return e
	case lexer.FloatLiteral:
		p.next()
		h := p.header(start)
		e := &LiteralExpr{Header: h, Kind: FloatLit, FloatValue: t.FloatValue}
		p.finish(&e.Header)
		return e
	case lexer.StringLiteral:
		p.next()
		h := p.header(start)
		e := &LiteralExpr{Header: h, Kind: StringLit, StringValue: t.StringValue}
		p.finish(&e.Header)
		return e
	case lexer.CharLiteral:
		p.next()
		h := p.header(start)
		e := &LiteralExpr{Header: h, Kind: CharLit, StringValue: t.StringValue}
		p.finish(&e.Header)
		return e
	case lexer.Keyword:
		switch t.Lexeme {
		case "true", "false":
			p.next()
			h := p.header(start)
			e := &LiteralExpr{Header: h, Kind: BoolLit, BoolValue: t.Lexeme == "true"}
			p.finish(&e.Header)
			return e
		case "null":
			p.next()
			h := p.header(start)
			e := &LiteralExpr{Header: h, Kind: NullLit}
			p.finish(&e.Header)
			return e
		case "this":
			p.next()
			h := p.header(start)
			e := &ThisExpr{Header: h}
			p.finish(&e.Header)
			return e
		case "new":
			return p.parseNewExpr()
		}
	case lexer.Identifier:
		return p.parseNameExpr()
	case lexer.LParen:
		p.next()
		inner := p.parseExpression()
		p.expect(lexer.RParen, `")"`)
		return inner
	}

	p.errorf(start, "unexpected token %q (cannot start an expression here)", t.Lexeme)
	h := p.header(start)
	p.next()
	e := &ErrorNode{Header: h}
	p.finish(&e.Header)
	return e
}

func (p *Parser) parseNameExpr() Expr {
	start := p.peek().Location
	h := p.header(start)
	parts := p.parseQualName()
	e := &NameExpr{Header: h, Parts: parts}
	p.finish(&e.Header)
	return e
}

func (p *Parser) parseNewExpr() Expr {
	start := p.peek().Location
	h := p.header(start)
	p.next() // 'new'
	typ := p.parseTypeRef()
	args := p.parseArgList()
	e := &NewExpr{Header: h, Type: typ, Args: args}
	p.finish(&e.Header)
	return e
}

// ---- error recovery ----

// recoverToDeclBoundary implements spec §4.2's declaration-boundary
// recovery: skip forward until a modifier keyword, a type keyword, or '}'.
func (p *Parser) recoverToDeclBoundary() {
	for !p.at(lexer.EOF) {
		t := p.peek()
		if t.Kind == lexer.RBrace {
			return
		}
		if t.Kind == lexer.Keyword && (modifierKeywords[t.Lexeme] || primitiveKeywords[t.Lexeme] || t.Lexeme == "class" || t.Lexeme == "namespace") {
			return
		}
		p.next()
	}
}

// skipToMatching skips forward to (and consumes) the next occurrence of
// closeKind, used when a block accumulates more than maxErrorsPerBlock
// errors (spec §4.2).
func (p *Parser) skipToMatching(closeKind lexer.Kind) {
	depth := 0
	openKind := lexer.LBrace
	if closeKind == lexer.RParen {
		openKind = lexer.LParen
	} else if closeKind == lexer.RBracket {
		openKind = lexer.LBracket
	}
	for !p.at(lexer.EOF) {
		if p.at(openKind) {
			depth++
		}
		if p.at(closeKind) {
			if depth == 0 {
				p.next()
				return
			}
			depth--
		}
		p.next()
	}
}

// expectCloser consumes closeKind if present; otherwise it records a
// missing-closer diagnostic at openLoc and continues at the implicit
// close position, per spec §4.2 ("records the missing closer and
// continues ... rather than searching arbitrarily far").
func (p *Parser) expectCloser(closeKind lexer.Kind, human string, openLoc source.Location) {
	if p.at(closeKind) {
		p.next()
		return
	}
	p.errorf(openLoc, "missing closing %s for construct opened here", human)
}
