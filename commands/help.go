package commands

import (
	"fmt"

	"github.com/josephlewis42/vmsh/core/vm"
)

// Help lists the builtins or shows the usage of one.
func Help(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "help [NAME]",
		Short: "Display information about builtin commands.",
	}

	return cmd.Run(stdio, args, func() vm.Status {
		w := stdio.Stdout

		names := cmd.Flags().Args()
		if len(names) == 0 {
			fmt.Fprintln(w, "vmsh, a small command interpreter.")
			fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
			fmt.Fprintln(w, "Type `help name' to find out more about the function `name'.")
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Builtins:")
			fmt.Fprintln(w)

			for _, name := range BuiltinNames() {
				fmt.Fprintf(w, "  %s %s\n", s.Color.Sprintf(ColorBoldGreen, "%-8s", name), BuiltinShort(name))
			}
			return vm.StatusContinue
		}

		ok := true
		for _, name := range names {
			builtin, found := AllBuiltins[name]
			if !found {
				fmt.Fprintf(stdio.Stderr, "help: no help topics match `%s'\n", name)
				ok = false
				continue
			}
			builtin.Main(s, stdio, []string{name, "--help"})
		}
		return status(ok)
	})
}

func init() {
	addBuiltin("Display information about builtin commands.", Help, "help")
}
