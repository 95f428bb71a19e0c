package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// console is where a command talks to the operator. Answers to
// confirmation prompts and artifact choices come from the same reader,
// so one can't swallow the input meant for the other.
type console struct {
	in  *bufio.Reader
	out io.Writer
	err io.Writer
	// whether out is a terminal, so that progress bars and tool output
	// are worth drawing
	tty bool
}

func newConsole(in io.Reader, out, errOut io.Writer) *console {
	c := &console{
		in:  bufio.NewReader(in),
		out: out,
		err: errOut,
	}
	if f, ok := out.(*os.File); ok {
		c.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return c
}

// Confirm asks a yes/no question; anything but y or yes is a no.
func (c *console) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	answer, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// progress is the writer for progress bars and streamed tool output,
// or nil when nobody is watching.
func (c *console) progress() io.Writer {
	if !c.tty {
		return nil
	}
	return c.err
}
