package symbols

import "github.com/dekarrin/nova/internal/syntax"

// ScopeTree is the complete symbol-table result for one compilation unit
// (spec §3's ScopeTree, §4.3's two AST-to-symbol dictionaries). Root is the
// single unnamed root namespace; NodeScope maps an AST node to the scope
// symbol lexically enclosing it, except that a block or for statement maps
// to the block scope it opens itself; NodeSymbol maps a declaration node to
// the symbol it declared. Both maps together let every later pass recover
// "what scope am I in" and "what symbol did this declaration produce"
// without re-walking the tree.
type ScopeTree struct {
	Root       *Symbol
	NodeScope  map[syntax.Node]*Symbol
	NodeSymbol map[syntax.Node]*Symbol
}

func newScopeTree() *ScopeTree {
	return &ScopeTree{
		Root:       NewRoot(),
		NodeScope:  map[syntax.Node]*Symbol{},
		NodeSymbol: map[syntax.Node]*Symbol{},
	}
}

// ScopeOf returns n's NodeScope entry (the scope enclosing n, or for a
// block or for statement the scope it opens), or nil if n was never
// visited by the builder.
func (t *ScopeTree) ScopeOf(n syntax.Node) *Symbol {
	return t.NodeScope[n]
}

// SymbolOf returns the symbol a declaration node introduced, or nil if n
// either declares nothing or was never visited.
func (t *ScopeTree) SymbolOf(n syntax.Node) *Symbol {
	return t.NodeSymbol[n]
}
