package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/nova/internal/driver"
	"github.com/dekarrin/nova/internal/input"
)

const interactiveFilename = "<repl>"

// runInteractive reads Nova source snippets from stdin, one per
// blank-line-terminated block, compiling each as its own unit -- the same
// read-submit-react shape as the teacher's RunUntilQuit loop, but reading
// compilation units instead of game commands.
func runInteractive(d *driver.Driver) error {
	reader, err := newLineReader()
	if err != nil {
		return fmt.Errorf("initializing input reader: %w", err)
	}
	defer reader.Close()
	reader.AllowBlank(true)

	fmt.Println("Nova interactive session. Blank line compiles the snippet so far; QUIT exits.")

	var buf string
	for {
		line, err := reader.ReadCommand()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if buf == "" && line == "QUIT" {
			return nil
		}

		if line == "" {
			if buf == "" {
				continue
			}
			result, err := d.Run(context.Background(), interactiveFilename, buf)
			buf = ""
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
				continue
			}
			reportResult(result, true)
			continue
		}

		buf += line + "\n"
	}
}

// newLineReader prefers GNU Readline since -i is an explicit request for an
// interactive session; it falls back to a direct reader if readline itself
// can't be initialized (e.g. no controlling terminal).
func newLineReader() (interface {
	ReadCommand() (string, error)
	AllowBlank(bool)
	Close() error
}, error) {
	if rl, err := input.NewInteractiveReader(); err == nil {
		return rl, nil
	}
	return input.NewDirectReader(os.Stdin), nil
}
