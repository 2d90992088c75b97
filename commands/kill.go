package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/vmsh/core/vm"
	"golang.org/x/sys/unix"
)

// parseSignal accepts a signal number or name, with or without the SIG
// prefix, in any case.
func parseSignal(name string) (unix.Signal, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		sig := unix.Signal(n)
		return sig, n > 0 && unix.SignalName(sig) != ""
	}

	name = strings.ToUpper(name)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	return sig, sig != 0
}

// normalizeKillArgs rewrites the "kill -SIGNAL" form as "kill -s SIGNAL" so
// the flag parser understands it.
func normalizeKillArgs(args []string) []string {
	if len(args) < 2 || !strings.HasPrefix(args[1], "-") {
		return args
	}
	switch args[1] {
	case "-l", "-s", "-h", "--help", "--":
		return args
	}
	if _, ok := parseSignal(args[1][1:]); !ok {
		return args
	}

	out := []string{args[0], "-s", args[1][1:]}
	return append(out, args[2:]...)
}

// Kill sends a signal to processes.
func Kill(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "kill [-s SIGNAL | -SIGNAL] PID ... or kill -l",
		Short: "Send a signal to processes, SIGTERM by default.",
	}

	opts := cmd.Flags()
	list := opts.Bool('l', "list signal names")
	sigName := opts.String('s', "TERM", "signal to send, by name or number", "SIGNAL")

	return cmd.Run(stdio, normalizeKillArgs(args), func() vm.Status {
		if *list {
			for sig := unix.Signal(1); sig < 32; sig++ {
				if name := unix.SignalName(sig); name != "" {
					fmt.Fprintf(stdio.Stdout, "%2d) %s\n", int(sig), name)
				}
			}
			return vm.StatusContinue
		}

		sig, ok := parseSignal(*sigName)
		if !ok {
			fmt.Fprintf(stdio.Stderr, "kill: %s: invalid signal specification\n", *sigName)
			return vm.StatusFailed
		}

		pids := opts.Args()
		if len(pids) == 0 {
			fmt.Fprintln(stdio.Stderr, "kill: missing pid")
			cmd.PrintHelp(stdio.Stderr)
			return vm.StatusFailed
		}

		succeeded := true
		for _, arg := range pids {
			pid, err := strconv.Atoi(arg)
			if err != nil || pid == 0 {
				fmt.Fprintf(stdio.Stderr, "kill: %s: arguments must be process ids\n", arg)
				succeeded = false
				continue
			}
			if err := unix.Kill(pid, sig); err != nil {
				fmt.Fprintf(stdio.Stderr, "kill: (%d) - %v\n", pid, err)
				succeeded = false
			}
		}
		return status(succeeded)
	})
}

func init() {
	addBuiltin("Send a signal to processes.", Kill, "kill")
}
