package commands

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/vmsh/core/vm"
)

// Set shows or changes environment variables.
func Set(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "set [-u NAME] [NAME VALUE | NAME=VALUE]",
		Short: "Show all environment variables, or set and unset one.",
	}

	opts := cmd.Flags()
	unset := opts.String('u', "", "remove NAME from the environment", "NAME")

	return cmd.Run(stdio, args, func() vm.Status {
		if *unset != "" {
			s.Env.Unsetenv(*unset)
		}

		rest := opts.Args()
		switch {
		case len(rest) == 0 && *unset == "":
			for _, kv := range s.Env.Environ() {
				fmt.Fprintln(stdio.Stdout, kv)
			}
		case len(rest) == 0:
		case len(rest) == 1 && strings.Contains(rest[0], "="):
			kv := strings.SplitN(rest[0], "=", 2)
			return s.setenv(stdio, kv[0], kv[1])
		case len(rest) == 2:
			return s.setenv(stdio, rest[0], rest[1])
		default:
			fmt.Fprintln(stdio.Stderr, "set: expected NAME VALUE or NAME=VALUE")
			return vm.StatusFailed
		}
		return vm.StatusContinue
	})
}

func (s *Shell) setenv(stdio vm.IO, name, value string) vm.Status {
	if name == "" || strings.ContainsAny(name, "= \t") {
		fmt.Fprintf(stdio.Stderr, "set: `%s': not a valid identifier\n", name)
		return vm.StatusFailed
	}
	s.Env.Setenv(name, value)
	return vm.StatusContinue
}

func init() {
	addBuiltin("Show or change environment variables.", Set, "set")
}
