package commands

import (
	"fmt"
	"path/filepath"

	"github.com/josephlewis42/vmsh/core/vm"
)

// Z jumps to frequently and recently used directories.
func Z(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "z [QUERY... | add DIR | rm DIR | remove DIR | print]",
		Short: "Jump to the most frecent directory matching every QUERY in order.",
	}

	return cmd.Run(stdio, args, func() vm.Status {
		rest := cmd.Flags().Args()
		if len(rest) == 0 {
			return Cd(s, stdio, []string{"cd"})
		}

		switch sub, subArgs := rest[0], rest[1:]; sub {
		case "print":
			s.Z.Print(stdio.Stdout)
			return vm.StatusContinue

		case "add", "rm", "remove":
			if len(subArgs) != 1 {
				fmt.Fprintf(stdio.Stderr, "z: %s needs one directory\n", sub)
				return vm.StatusFailed
			}
			dir, err := filepath.Abs(subArgs[0])
			if err == nil {
				if sub == "add" {
					err = s.Z.Add(dir)
				} else {
					err = s.Z.Remove(dir)
				}
			}
			if err != nil {
				fmt.Fprintf(stdio.Stderr, "z: %s: %v\n", subArgs[0], err)
				return vm.StatusFailed
			}
			return vm.StatusContinue
		}

		dir, err := s.Z.Match(rest)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "z: %v\n", err)
			return vm.StatusFailed
		}
		if err := s.changeDir(dir); err != nil {
			fmt.Fprintf(stdio.Stderr, "z: %v\n", err)
			return vm.StatusFailed
		}
		return vm.StatusContinue
	})
}

func init() {
	addBuiltin("Jump to a frecent directory.", Z, "z")
}
