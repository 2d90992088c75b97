package commands

import (
	"fmt"

	"github.com/josephlewis42/vmsh/core/vm"
)

// Clear clears the terminal screen.
func Clear(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "clear",
		Short: "Clear the terminal screen.",
	}

	return cmd.Run(stdio, args, func() vm.Status {
		if isTerminal(stdio.Stdout) {
			// Assumes VT100 compatibility.
			fmt.Fprint(stdio.Stdout, "\033[H\033[2J")
		}
		return vm.StatusContinue
	})
}

func init() {
	addBuiltin("Clear the terminal screen.", Clear, "clear", "reset")
}
