// Package driver sequences a compilation end to end and stamps it with a
// run id for log correlation, in the orchestration role the teacher's
// engine.go played wiring a game engine to its input/output/world
// collaborators before handing control to RunUntilQuit. Watcher adapts that
// same sequencing for a caller that invokes it once per file-change event
// rather than once per process.
package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/dekarrin/nova"
	"github.com/dekarrin/nova/internal/cache"
	"github.com/dekarrin/nova/internal/diag"
	"github.com/dekarrin/nova/internal/hlir"
)

// Result is the outcome of one compilation run.
type Result struct {
	RunID   uuid.UUID
	Path    string
	Module  *hlir.Module
	Errors  []*diag.Error
	// Cached reports whether this result came from internal/cache rather
	// than a fresh Compile call. A cached result never carries a Module --
	// only the prior run's success/failure and diagnostics are retained.
	Cached bool
}

// Success reports whether the run recorded no errors.
func (r Result) Success() bool {
	return len(r.Errors) == 0
}

// Run compiles source (the text of path) once, with no cache lookup,
// stamping the result with a fresh run id.
func Run(ctx context.Context, path, source string) (Result, error) {
	runID, err := uuid.NewRandom()
	if err != nil {
		return Result{}, fmt.Errorf("generating run id: %w", err)
	}
	mod, errs := nova.Compile(source, path)
	return Result{RunID: runID, Path: path, Module: mod, Errors: errs}, nil
}

// Driver sequences compilation runs against a shared incremental-compile
// cache, so a caller that recompiles the same unchanged file repeatedly
// (e.g. a watch loop) skips redundant work.
type Driver struct {
	cache *cache.Store
}

// New returns a Driver. store may be nil, in which case every run is a
// full compile with no cache lookup or write-back.
func New(store *cache.Store) *Driver {
	return &Driver{cache: store}
}

// Run compiles source (the text of path), first checking the cache by
// content hash when one is configured. A cache hit short-circuits the
// compile entirely and returns the prior run's recorded diagnostics with
// Result.Cached set; the caller gets no Module in that case since none was
// rebuilt.
func (d *Driver) Run(ctx context.Context, path, source string) (Result, error) {
	runID, err := uuid.NewRandom()
	if err != nil {
		return Result{}, fmt.Errorf("generating run id: %w", err)
	}

	if d.cache != nil {
		hash := contentHash(source)
		if entry, ok, err := d.cache.Lookup(ctx, path, hash); err != nil {
			return Result{}, fmt.Errorf("checking compile cache for %q: %w", path, err)
		} else if ok {
			return Result{
				RunID:  runID,
				Path:   path,
				Errors: recordsToErrors(entry.Diagnostics),
				Cached: true,
			}, nil
		}

		mod, errs := nova.Compile(source, path)
		if err := d.cache.Put(ctx, path, hash, errs); err != nil {
			return Result{}, fmt.Errorf("updating compile cache for %q: %w", path, err)
		}
		return Result{RunID: runID, Path: path, Module: mod, Errors: errs}, nil
	}

	mod, errs := nova.Compile(source, path)
	return Result{RunID: runID, Path: path, Module: mod, Errors: errs}, nil
}

func contentHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// recordsToErrors reconstructs diag.Errors from a cache.Entry's recorded
// diagnostics for reporting purposes. The reconstructed errors carry no
// source.Location -- the cache only remembers that a prior run of this
// exact content produced a diagnostic with this kind and message, not its
// original range.
func recordsToErrors(recs []cache.Record) []*diag.Error {
	if len(recs) == 0 {
		return nil
	}
	errs := make([]*diag.Error, len(recs))
	for i, r := range recs {
		errs[i] = &diag.Error{Kind: kindFromString(r.Kind), Message: r.Message}
	}
	return errs
}

func kindFromString(s string) diag.Kind {
	switch s {
	case "LexError":
		return diag.LexError
	case "ParseError":
		return diag.ParseError
	case "SymbolError":
		return diag.SymbolError
	case "BindError":
		return diag.BindError
	case "ResolutionError":
		return diag.ResolutionError
	case "LoweringError":
		return diag.LoweringError
	default:
		return diag.InternalError
	}
}

// Watcher adapts a Driver for a caller that invokes it once per file-change
// event (the external file-watcher collaborator named in spec §6) instead
// of once per process.
type Watcher struct {
	d *Driver
}

// NewWatcher returns a Watcher backed by d.
func NewWatcher(d *Driver) *Watcher {
	return &Watcher{d: d}
}

// OnChange recompiles path with its new contents.
func (w *Watcher) OnChange(ctx context.Context, path, newContents string) (Result, error) {
	return w.d.Run(ctx, path, newContents)
}
