package commands

import (
	"fmt"
	"path/filepath"

	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/vm"
)

// Pwd prints the working directory.
func Pwd(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "pwd [-LP]",
		Short: "Print the name of the current working directory.",
	}

	opts := cmd.Flags()
	opts.Bool('L', "print $PWD if it names the working directory (default)")
	physical := opts.Bool('P', "print the physical directory, without any symbolic links")

	return cmd.Run(stdio, args, func() vm.Status {
		wd, err := s.getwd()
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "pwd: %v\n", err)
			return vm.StatusFailed
		}

		if *physical {
			if resolved, err := filepath.EvalSymlinks(wd); err == nil {
				wd = resolved
			}
		} else if logical := s.Env.Getenv(env.PWD); logical != "" && sameDir(logical, wd) {
			wd = logical
		}

		fmt.Fprintln(stdio.Stdout, wd)
		return vm.StatusContinue
	})
}

func sameDir(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}

func init() {
	addBuiltin("Print the name of the current working directory.", Pwd, "pwd")
}
