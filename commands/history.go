package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/vmsh/core/vm"
)

// History shows or edits the saved command lines.
func History(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "history [-c] [count | clean | add LINE... | rm N | remove N]",
		Short: "Display or manipulate the history list.",
	}

	opts := cmd.Flags()
	clear := opts.Bool('c', "clear the history by deleting all entries")

	return cmd.Run(stdio, args, func() vm.Status {
		rest := opts.Args()
		if *clear {
			rest = []string{"clean"}
		}

		if len(rest) == 0 {
			s.History.Print(stdio.Stdout)
			return vm.StatusContinue
		}

		switch sub, subArgs := rest[0], rest[1:]; sub {
		case "count":
			fmt.Fprintln(stdio.Stdout, s.History.Count())

		case "clean":
			if err := s.History.Clean(); err != nil {
				fmt.Fprintf(stdio.Stderr, "history: %v\n", err)
				return vm.StatusFailed
			}
			if s.Readline != nil {
				s.Readline.ResetHistory()
			}

		case "add":
			if len(subArgs) == 0 {
				fmt.Fprintln(stdio.Stderr, "history: add needs a line")
				return vm.StatusFailed
			}
			s.addHistory(strings.Join(subArgs, " "))

		case "rm", "remove":
			if len(subArgs) != 1 {
				fmt.Fprintf(stdio.Stderr, "history: %s needs one position\n", sub)
				return vm.StatusFailed
			}
			n, err := strconv.Atoi(subArgs[0])
			if err == nil {
				err = s.History.Remove(n)
			}
			if err != nil {
				fmt.Fprintf(stdio.Stderr, "history: %s: %v\n", subArgs[0], err)
				return vm.StatusFailed
			}

		default:
			fmt.Fprintf(stdio.Stderr, "history: unknown subcommand %q\n\n", sub)
			cmd.PrintHelp(stdio.Stderr)
			return vm.StatusFailed
		}
		return vm.StatusContinue
	})
}

func init() {
	addBuiltin("Display or manipulate the history list.", History, "history")
}
