package commands

import (
	"fmt"
	"path/filepath"

	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/vm"
)

// Cd is the cd shell builtin
func Cd(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "cd [DIR]",
		Short: "Change the shell working directory to DIR, $HOME by default. A DIR of - is $OLDPWD.",
	}

	return cmd.Run(stdio, args, func() vm.Status {
		var dir string
		switch rest := cmd.Flags().Args(); len(rest) {
		case 0:
			dir = s.Env.Home()
			if dir == "" {
				fmt.Fprintf(stdio.Stderr, "%s: HOME not set\n", args[0])
				return vm.StatusFailed
			}
		case 1:
			dir = rest[0]
			if dir == "-" {
				dir = s.Env.Getenv(env.OldPWD)
				if dir == "" {
					fmt.Fprintf(stdio.Stderr, "%s: OLDPWD not set\n", args[0])
					return vm.StatusFailed
				}
				fmt.Fprintln(stdio.Stdout, dir)
			}
		default:
			fmt.Fprintf(stdio.Stderr, "%s: too many arguments\n", args[0])
			return vm.StatusFailed
		}

		if err := s.changeDir(dir); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %v\n", args[0], err)
			return vm.StatusFailed
		}
		return vm.StatusContinue
	})
}

// changeDir moves the shell to dir, updating $PWD, $OLDPWD and the
// frecency database.
func (s *Shell) changeDir(dir string) error {
	old, _ := s.getwd()
	if err := s.chdir(dir); err != nil {
		return err
	}

	wd, err := s.getwd()
	if err != nil {
		wd = filepath.Clean(dir)
	}

	if old != "" {
		s.Env.Setenv(env.OldPWD, old)
	}
	s.Env.Setenv(env.PWD, wd)

	if err := s.Z.Add(wd); err != nil {
		s.log.Printf("updating z database: %v", err)
	}
	return nil
}

func init() {
	addBuiltin("Change the shell working directory.", Cd, "cd")
}
