package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// Input gives a command its arguments, flags and, when interactive, stdin.
type Input struct {
	args        []string
	flags       *pflag.FlagSet
	interactive bool
	reader      *bufio.Reader
	out         io.Writer
}

// NewInput builds an Input; mostly useful to call a command's Handle in tests.
func NewInput(args []string, flags *pflag.FlagSet, interactive bool, stdin io.Reader, out io.Writer) *Input {
	if flags == nil {
		flags = pflag.NewFlagSet("input", pflag.ContinueOnError)
	}
	in := &Input{args: args, flags: flags, interactive: interactive, out: out}
	if stdin != nil {
		in.reader = bufio.NewReader(stdin)
	}
	return in
}

// Argument returns the i-th positional argument, or "".
func (in *Input) Argument(i int) string {
	if i < 0 || i >= len(in.args) {
		return ""
	}
	return in.args[i]
}

func (in *Input) Arguments() []string { return in.args }

func (in *Input) String(name string) string {
	v, _ := in.flags.GetString(name)
	return v
}

func (in *Input) Bool(name string) bool {
	v, _ := in.flags.GetBool(name)
	return v
}

func (in *Input) Int(name string) int {
	v, _ := in.flags.GetInt(name)
	return v
}

// Interactive is false under --no-interaction.
func (in *Input) Interactive() bool { return in.interactive }

// Confirm asks a yes/no question. Without interaction, or when stdin is
// exhausted, def is returned.
func (in *Input) Confirm(question string, def bool) bool {
	if !in.interactive || in.reader == nil {
		return def
	}
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	if in.out != nil {
		fmt.Fprintf(in.out, "%s [%s]: ", question, hint)
	}

	line, err := in.reader.ReadString('\n')
	if err != nil && line == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}
