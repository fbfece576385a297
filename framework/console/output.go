package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Verbosity levels accepted by --verbose.
const (
	VerbosityNormal      = 0
	VerbosityVerbose     = 1
	VerbosityVeryVerbose = 2
	VerbosityDebug       = 3
)

// Output prints leveled, colorized lines.
//
//	--silent   nothing at all
//	--quiet    warnings and errors only
//	--verbose  debug lines at or below the given level
type Output struct {
	out, err  io.Writer
	quiet     bool
	silent    bool
	verbosity int

	info, success, warn, debug, fail *color.Color
}

// NewOutput creates an Output writing regular lines to out and errors to err.
func NewOutput(out, err io.Writer, quiet, silent bool, verbosity int, noColor bool) *Output {
	o := &Output{
		out:       out,
		err:       err,
		quiet:     quiet,
		silent:    silent,
		verbosity: verbosity,
		info:      color.New(color.FgCyan),
		success:   color.New(color.FgGreen),
		warn:      color.New(color.FgYellow),
		debug:     color.New(color.FgHiBlack),
		fail:      color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{o.info, o.success, o.warn, o.debug, o.fail} {
			c.DisableColor()
		}
	}
	return o
}

func (o *Output) Verbosity() int { return o.verbosity }
func (o *Output) IsQuiet() bool  { return o.quiet || o.silent }
func (o *Output) IsSilent() bool { return o.silent }

// Info prints an informational line.
func (o *Output) Info(format string, args ...any) {
	if o.IsQuiet() {
		return
	}
	o.print(o.out, o.info, "INFO", format, args...)
}

// Success prints a success line.
func (o *Output) Success(format string, args ...any) {
	if o.IsQuiet() {
		return
	}
	o.print(o.out, o.success, "DONE", format, args...)
}

// Warn prints a warning; only --silent hides it.
func (o *Output) Warn(format string, args ...any) {
	if o.silent {
		return
	}
	o.print(o.err, o.warn, "WARN", format, args...)
}

// Error prints an error; only --silent hides it.
func (o *Output) Error(format string, args ...any) {
	if o.silent {
		return
	}
	o.print(o.err, o.fail, "ERROR", format, args...)
}

// Debug prints when --verbose is set.
func (o *Output) Debug(format string, args ...any) {
	o.Verbose(VerbosityVerbose, format, args...)
}

// Verbose prints when the verbosity is at least level.
func (o *Output) Verbose(level int, format string, args ...any) {
	if o.IsQuiet() || o.verbosity < level {
		return
	}
	o.print(o.out, o.debug, "DEBUG", format, args...)
}

// Line prints an unlabelled line.
func (o *Output) Line(format string, args ...any) {
	if o.IsQuiet() {
		return
	}
	fmt.Fprintf(o.out, format+"\n", args...)
}

// Table prints rows aligned under headers.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.IsQuiet() {
		return
	}
	tw := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// Writer returns the standard output stream, for commands that stream data.
func (o *Output) Writer() io.Writer { return o.out }

func (o *Output) print(w io.Writer, c *color.Color, label, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", c.Sprintf("%-5s", label), fmt.Sprintf(format, args...))
}
