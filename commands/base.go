package commands

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/josephlewis42/vmsh/core/vm"
	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// builtinShort holds the one line description shown by help.
var builtinShort = make(map[string]string)

type ShellBuiltin interface {
	Main(s *Shell, stdio vm.IO, args []string) vm.Status
}

type ShellBuiltinFunc func(s *Shell, stdio vm.IO, args []string) vm.Status

func (f ShellBuiltinFunc) Main(s *Shell, stdio vm.IO, args []string) vm.Status {
	return f(s, stdio, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// addBuiltin registers a builtin under every name given.
func addBuiltin(short string, fn ShellBuiltinFunc, names ...string) {
	for _, name := range names {
		if _, ok := AllBuiltins[name]; ok {
			panic(fmt.Sprintf("duplicate builtin %q", name))
		}
		AllBuiltins[name] = fn
		builtinShort[name] = short
	}
}

// BuiltinNames lists the registered builtins in sorted order.
func BuiltinNames() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuiltinShort returns the one line description of a builtin.
func BuiltinShort(name string) string {
	return builtinShort[name]
}

// status converts a success flag to a builtin status.
func status(ok bool) vm.Status {
	if ok {
		return vm.StatusContinue
	}
	return vm.StatusFailed
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a sone line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was succcessful call the callback.
func (s *SimpleCommand) Run(stdio vm.IO, args []string, callback func() vm.Status) vm.Status {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(args, nil)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "error: %s\n\n", err)

		s.PrintHelp(stdio.Stderr)
		return vm.StatusFailed
	}

	if *s.ShowHelp {
		s.PrintHelp(stdio.Stdout)
		return vm.StatusContinue
	}

	return callback()
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter decides whether output to a stream gets colored.
type ColorPrinter struct {
	value *string
	out   io.Writer
}

// NewColorPrinter creates a printer with a fixed mode (always|auto|never)
// for output going to w.
func NewColorPrinter(mode string, w io.Writer) *ColorPrinter {
	return &ColorPrinter{value: &mode, out: w}
}

// Init sets up the flag and output stream to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, defaultMode string, w io.Writer) {
	c.out = w
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		defaultMode,
		"colorize the output (always|auto|never)")
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case c.value == nil || *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		return isTerminal(c.out)
	}
}

func (c *ColorPrinter) Sprintf(color *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		// The color package disables itself when the process stdout isn't a
		// terminal, this printer makes its own decision.
		fg := *color
		fg.EnableColor()
		return fg.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}

func isTerminal(w io.Writer) bool {
	fd, ok := w.(*os.File)
	return ok && term.IsTerminal(int(fd.Fd()))
}
