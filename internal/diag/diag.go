// Package diag holds the CompileError type shared across every stage of the
// Nova pipeline (spec §7) and a small collector used to gather them without
// aborting the pass that found them.
package diag

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/dekarrin/nova/internal/source"
)

// Kind distinguishes the stage (or invariant failure) that produced a
// CompileError.
type Kind int

const (
	LexError Kind = iota
	ParseError
	SymbolError
	BindError
	ResolutionError
	LoweringError
	InternalError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case ParseError:
		return "ParseError"
	case SymbolError:
		return "SymbolError"
	case BindError:
		return "BindError"
	case ResolutionError:
		return "ResolutionError"
	case LoweringError:
		return "LoweringError"
	case InternalError:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is a single recorded problem. All of LexError, ParseError,
// SymbolError, BindError, ResolutionError, and LoweringError may occur any
// number of times in a compilation and are collected into a list by a
// Collector. InternalError indicates a broken invariant; it is fatal to the
// pass that recorded it but, per spec §7, still yields a report rather than
// crashing the process.
type Error struct {
	Kind     Kind
	Message  string
	Location source.Location
}

// Error implements the error interface so that a diag.Error can be returned
// and wrapped like any other Go error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

// FullMessage renders the error with the offending source line and a
// cursor pointing at the start column, in the manner of the teacher's
// SyntaxError.FullMessage/SourceLineWithCursor. sourceLine is the raw text
// of e.Location.LineStart, or "" if unavailable (e.g. a synthetic
// location).
func (e *Error) FullMessage(sourceLine string) string {
	msg := wrap(e.Error())
	if sourceLine == "" {
		return msg
	}
	cursor := strings.Repeat(" ", max(e.Location.ColStart-1, 0)) + "^"
	return sourceLine + "\n" + cursor + "\n" + msg
}

func wrap(s string) string {
	return rosed.Edit(s).Wrap(100).String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Collector accumulates Errors produced during a single compilation. It is
// not safe for concurrent use; per spec §5 each compilation is
// single-threaded.
type Collector struct {
	errors []*Error
}

// Add records a new error of the given kind at the given location.
func (c *Collector) Add(kind Kind, loc source.Location, format string, args ...interface{}) {
	c.errors = append(c.errors, &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// AddInternal records an InternalError, the only kind spec §7 treats as
// fatal to the pass that raised it (the pass should return immediately
// after calling this).
func (c *Collector) AddInternal(loc source.Location, format string, args ...interface{}) {
	c.Add(InternalError, loc, format, args...)
}

// Errors returns every error recorded so far, in recording order.
func (c *Collector) Errors() []*Error {
	return c.errors
}

// HasErrors reports whether any error has been recorded.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// HasFatal reports whether any InternalError has been recorded.
func (c *Collector) HasFatal() bool {
	for _, e := range c.errors {
		if e.Kind == InternalError {
			return true
		}
	}
	return false
}

// Merge appends another collector's errors onto this one, preserving
// order. Used when a pass delegates part of its work to a helper that
// keeps its own Collector.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	c.errors = append(c.errors, other.errors...)
}
