package commands

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/vm"
)

// Which reports how each name would be run: as an alias, a builtin or a
// program found on $PATH.
func Which(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "which [-a] COMMAND...",
		Short: "Locate a command.",
	}

	opts := cmd.Flags()
	all := opts.Bool('a', "print every match instead of the first")
	var printer ColorPrinter
	printer.Init(opts, colorAuto, stdio.Stdout)

	return cmd.Run(stdio, args, func() vm.Status {
		names := opts.Args()
		if len(names) == 0 {
			cmd.PrintHelp(stdio.Stderr)
			return vm.StatusFailed
		}

		ok := true
		for _, name := range names {
			matches := s.which(&printer, name)
			if len(matches) == 0 {
				fmt.Fprintf(stdio.Stderr, "which: no %s in (%s)\n", printer.Sprintf(ColorBoldRed, "%s", name), s.Env.Getenv(env.Path))
				ok = false
				continue
			}
			if !*all {
				matches = matches[:1]
			}
			for _, m := range matches {
				fmt.Fprintln(stdio.Stdout, m)
			}
		}
		return status(ok)
	})
}

// which lists the ways name resolves in lookup order.
func (s *Shell) which(printer *ColorPrinter, name string) []string {
	var out []string
	if replacement, ok := s.Aliases[name]; ok {
		out = append(out, fmt.Sprintf("%s: aliased to %s", printer.Sprintf(ColorBoldCyan, "%s", name), replacement))
	}
	if _, ok := AllBuiltins[name]; ok {
		out = append(out, fmt.Sprintf("%s: shell builtin", printer.Sprintf(ColorBoldBlue, "%s", name)))
	}

	if strings.Contains(name, "/") {
		if path, err := vm.LookPath(name, ""); err == nil {
			out = append(out, path)
		}
		return out
	}
	for _, dir := range strings.Split(s.Env.Getenv(env.Path), ":") {
		if dir == "" {
			dir = "."
		}
		if path, err := vm.LookPath(name, dir); err == nil {
			out = append(out, path)
		}
	}
	return out
}

func init() {
	addBuiltin("Locate a command.", Which, "which")
}
