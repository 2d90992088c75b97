package commands

import (
	"fmt"
	"strconv"

	"github.com/josephlewis42/vmsh/core/vm"
)

// Exit quits the shell with the status given or the last status.
func Exit(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   fmt.Sprintf("%s [N]", args[0]),
		Short: "Exit the shell with a status of N, or the last status if N is omitted.",
	}

	return cmd.Run(stdio, args, func() vm.Status {
		code := s.LastStatus()

		switch rest := cmd.Flags().Args(); len(rest) {
		case 0:
		case 1:
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				fmt.Fprintf(stdio.Stderr, "%s: %s: numeric argument required\n", args[0], rest[0])
				return vm.StatusFailed
			}
			code = n & 0xff
		default:
			fmt.Fprintf(stdio.Stderr, "%s: too many arguments\n", args[0])
			return vm.StatusFailed
		}

		s.exitCode = &code
		s.Quit = true
		return vm.StatusExit
	})
}

func init() {
	addBuiltin("Exit the shell.", Exit, "exit", "quit", "q")
}
