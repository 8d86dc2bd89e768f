// Package nova is the single entry point for compiling one Nova
// compilation unit: it wires the lexer, parser, symbol-table builder,
// binder, resolver, and HLIR lowerer together in the same way the
// teacher's engine.go wired a game's input reader, output writer, and
// world loader into one Engine before handing control to RunUntilQuit.
package nova

import (
	"github.com/dekarrin/nova/internal/bind"
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/hlir"
	"github.com/dekarrin/nova/internal/lexer"
	"github.com/dekarrin/nova/internal/resolve"
	"github.com/dekarrin/nova/internal/symbols"
	"github.com/dekarrin/nova/internal/syntax"
	"github.com/dekarrin/nova/internal/types"
)

// Compile runs source (the text of filename) through every stage of the
// pipeline and returns the lowered module. A stage that reports any error
// halts the pipeline immediately and returns those errors; later stages
// are never reached with a tree or table a prior stage gave up on.
func Compile(source, filename string) (*hlir.Module, []*diag.Error) {
	stream, errs := lexer.Lex(source, filename)
	if len(errs) > 0 {
		return nil, errs
	}

	cu, errs := syntax.Parse(stream, filename)
	if len(errs) > 0 {
		return nil, errs
	}

	ts := types.NewSystem()

	tree, errs := symbols.Build(cu, ts)
	if len(errs) > 0 {
		return nil, errs
	}

	bcu, errs := bind.Bind(cu, tree, ts)
	if len(errs) > 0 {
		return nil, errs
	}

	if errs := resolve.Resolve(bcu, tree, ts); len(errs) > 0 {
		return nil, errs
	}

	return hlir.Lower(bcu, tree, ts)
}
