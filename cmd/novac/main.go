/*
Novac compiles a single Nova source file.

It reads the file, runs it through the full pipeline, and reports any
diagnostics to stderr. With --emit-ir, it additionally prints (or, with
--output, writes) the compiled module's IR text dump.

Usage:

	novac [flags] FILE

The flags are:

	-v, --version
		Give the current version of Nova and then exit.

	-o, --output FILE
		Write the IR text dump to FILE instead of stdout. Implies --emit-ir.

	--emit-ir
		Print the compiled module's IR text dump after a successful compile.

	-w, --watch
		After the first compile, poll FILE for content changes and
		recompile on every change until interrupted.

	-i, --interactive
		Start an interactive session reading Nova snippets from stdin via
		GNU Readline instead of compiling FILE.

	-c, --config FILE
		Load project settings (source roots, cache file) from the given
		TOML project file.

Once a session has started in interactive mode, each blank line submits the
snippet accumulated since the last submission as its own compilation unit.
Type "QUIT" on a line by itself to exit.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/dekarrin/nova/internal/cache"
	"github.com/dekarrin/nova/internal/config"
	"github.com/dekarrin/nova/internal/driver"
	"github.com/dekarrin/nova/internal/version"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitCompileError
)

var (
	returnCode      = ExitSuccess
	flagVersion     = pflag.BoolP("version", "v", false, "Give the current version of Nova and then exit.")
	flagOutput      = pflag.StringP("output", "o", "", "Write the IR text dump to the given file instead of stdout.")
	flagEmitIR      = pflag.Bool("emit-ir", false, "Print the compiled module's IR text dump.")
	flagWatch       = pflag.BoolP("watch", "w", false, "Poll the input file for changes and recompile on each one.")
	flagInteractive = pflag.BoolP("interactive", "i", false, "Start an interactive REPL session instead of compiling a file.")
	flagConfig      = pflag.StringP("config", "c", "", "Load project settings from the given TOML project file.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("novac %s\n", version.Current)
		return
	}

	var proj config.Project
	if *flagConfig != "" {
		var err error
		proj, err = config.LoadProject(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitUsageError
			return
		}
	}

	var store *cache.Store
	if proj.Build.CacheFile != "" {
		var err error
		store, err = cache.Open(proj.Build.CacheFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: opening compile cache: %s\n", err.Error())
			returnCode = ExitUsageError
			return
		}
		defer store.Close()
	}
	d := driver.New(store)

	if *flagInteractive {
		if err := runInteractive(d); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitCompileError
		}
		return
	}

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Exactly one input file is required.\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}
	path := args[0]

	emitIR := *flagEmitIR || *flagOutput != "" || proj.Build.EmitIR

	if *flagWatch {
		if err := runWatch(d, path, emitIR); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitCompileError
		}
		return
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitUsageError
		return
	}

	result, err := d.Run(context.Background(), path, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitCompileError
		return
	}

	if !reportResult(result, emitIR) {
		returnCode = ExitCompileError
	}
}

// runWatch polls path for content changes, recompiling through the same
// Driver each time, in the manner spec §6 names "exercising
// internal/driver.Watcher".
func runWatch(d *driver.Driver, path string, emitIR bool) error {
	w := driver.NewWatcher(d)

	lastSrc := ""
	for {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if string(src) != lastSrc {
			lastSrc = string(src)
			result, err := w.OnChange(context.Background(), path, lastSrc)
			if err != nil {
				return err
			}
			reportResult(result, emitIR)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func reportResult(result driver.Result, emitIR bool) bool {
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, e.Error())
	}
	if !result.Success() {
		return false
	}
	if emitIR && result.Module != nil {
		dump := result.Module.String()
		if *flagOutput != "" {
			if err := os.WriteFile(*flagOutput, []byte(dump), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: writing IR output: %s\n", err.Error())
				return false
			}
		} else {
			fmt.Println(dump)
		}
	}
	return true
}
