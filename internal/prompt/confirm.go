// Package prompt asks the operator to confirm destructive or irreversible steps.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned by Require when no terminal is attached and the caller
// did not pre-approve the action.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (pass --yes)")

// Confirmer asks a yes/no question and blocks until it is answered.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, message string) (bool, error)

// Confirm calls f.
func (f Func) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Always answers every question with the same value without prompting.
func Always(answer bool) Confirmer {
	return Func(func(context.Context, string) (bool, error) {
		return answer, nil
	})
}

// Console reads answers from an input stream, one line per question.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	fd  uintptr
	tty bool
}

// NewConsole returns a Console on stdin/stderr.
func NewConsole() *Console {
	return NewConsoleFrom(os.Stdin, os.Stderr)
}

// NewConsoleFrom returns a Console reading from in and writing prompts to out.
// in is treated as a terminal only if it is an *os.File attached to one.
func NewConsoleFrom(in io.Reader, out io.Writer) *Console {
	c := &Console{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok {
		c.fd = f.Fd()
		c.tty = isatty.IsTerminal(c.fd) || isatty.IsCygwinTerminal(c.fd)
	}
	return c
}

// Interactive reports whether the input is a terminal.
func (c *Console) Interactive() bool {
	return c.tty
}

// Confirm prints message followed by "(yes/no)" and reads one line. "y" and "yes" in any
// case confirm; anything else, including end of input, declines.
func (c *Console) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(c.out, "%s (yes/no) ", message)

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(c.out)
	}
	return IsYes(line), nil
}

// IsYes reports whether an answer confirms.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Require picks the confirmer for a command: pre-approved actions never prompt, and
// without a terminal the caller must pre-approve.
func Require(console *Console, assumeYes bool) (Confirmer, error) {
	if assumeYes {
		return Always(true), nil
	}
	if !console.Interactive() {
		return nil, ErrNotInteractive
	}
	return console, nil
}
