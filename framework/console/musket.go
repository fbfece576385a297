package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Exit codes returned by Musket.Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ErrInvalidVerbosity is returned when --verbose is outside 0-3.
var ErrInvalidVerbosity = errors.New("verbosity must be between 0 and 3")

// Musket is the command runner behind the musket binary.
type Musket struct {
	root *cobra.Command

	stdin          io.Reader
	stdout, stderr io.Writer
	noColor        bool

	quiet         bool
	silent        bool
	noInteraction bool
	verbosity     int
}

// MusketOption configures a Musket.
type MusketOption func(*Musket)

// WithStreams redirects stdin, stdout and stderr.
func WithStreams(in io.Reader, out, err io.Writer) MusketOption {
	return func(m *Musket) {
		m.stdin, m.stdout, m.stderr = in, out, err
	}
}

// WithoutColor disables ANSI colors regardless of the terminal.
func WithoutColor() MusketOption {
	return func(m *Musket) { m.noColor = true }
}

// NewMusket creates a runner named name (the binary) at version.
func NewMusket(name, version string, opts ...MusketOption) *Musket {
	m := &Musket{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		noColor: color.NoColor,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.root = &cobra.Command{
		Use:           name,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if m.verbosity < VerbosityNormal || m.verbosity > VerbosityDebug {
				return fmt.Errorf("%w: %d", ErrInvalidVerbosity, m.verbosity)
			}
			return nil
		},
	}
	m.root.CompletionOptions.DisableDefaultCmd = true
	m.root.SetIn(m.stdin)
	m.root.SetOut(m.stdout)
	m.root.SetErr(m.stderr)

	pf := m.root.PersistentFlags()
	pf.BoolVarP(&m.quiet, "quiet", "q", false, "Do not output any message except warnings and errors")
	pf.BoolVar(&m.silent, "silent", false, "Do not output any message")
	pf.BoolVarP(&m.noInteraction, "no-interaction", "n", false, "Do not ask any interactive question")
	pf.VarP((*verbosityValue)(&m.verbosity), "verbose", "v", "Increase the verbosity of messages: 1 for normal output, 2 for more verbose output and 3 for debug (-v, -vv, -vvv or --verbose=N)")
	pf.Lookup("verbose").NoOptDefVal = incrementVerbosity

	return m
}

// incrementVerbosity is what pflag passes for a bare -v or --verbose, once
// per repetition, so -vvv counts to 3.
const incrementVerbosity = "+1"

// verbosityValue accepts both an explicit level and repeated short flags.
type verbosityValue int

func (v *verbosityValue) Set(s string) error {
	if s == incrementVerbosity {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidVerbosity, s)
	}
	*v = verbosityValue(n)
	return nil
}

func (v *verbosityValue) String() string { return strconv.Itoa(int(*v)) }

// Type is "count" so help output omits a value placeholder, as for CountVarP.
func (v *verbosityValue) Type() string { return "count" }

// Register adds commands. A later command with the same name replaces the
// earlier one.
func (m *Musket) Register(cmds ...*Command) {
	for _, c := range cmds {
		if existing := m.find(c.Name); existing != nil {
			m.root.RemoveCommand(existing)
		}
		m.root.AddCommand(m.adapt(c))
	}
}

// Names lists registered command names, sorted.
func (m *Musket) Names() []string {
	var names []string
	for _, c := range m.root.Commands() {
		if c.Name() != "help" {
			names = append(names, c.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Run executes args (without the program name) and returns the exit code.
func (m *Musket) Run(ctx context.Context, args []string) int {
	// Global flags are reset so repeated -v does not accumulate across runs.
	m.quiet, m.silent, m.noInteraction, m.verbosity = false, false, false, VerbosityNormal
	m.root.SetArgs(args)
	if err := m.root.ExecuteContext(ctx); err != nil {
		m.Output().Error("%s", err)
		return ExitFailure
	}
	return ExitSuccess
}

// Output returns an Output reflecting the parsed global flags.
func (m *Musket) Output() *Output {
	return NewOutput(m.stdout, m.stderr, m.quiet, m.silent, m.verbosity, m.noColor)
}

func (m *Musket) adapt(c *Command) *cobra.Command {
	cc := &cobra.Command{
		Use:   c.use(),
		Short: c.Description,
		Args:  c.Args,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := m.Output()
			in := NewInput(args, cmd.Flags(), !m.noInteraction, m.stdin, m.stdout)
			return c.Handle(cmd.Context(), in, out)
		},
	}
	if c.Flags != nil {
		c.Flags(cc.Flags())
	}
	return cc
}

func (m *Musket) find(name string) *cobra.Command {
	for _, c := range m.root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
