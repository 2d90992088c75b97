package vm

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ProcAttr holds the attributes that will be applied to a new process.
type ProcAttr struct {
	// Env is the environment of the new process, "key=value" pairs.
	Env []string
	// Files holds the child's stdin, stdout and stderr.
	Files []*os.File
	// Detach starts the process in a new session.
	Detach bool
}

// WaitStatus is how a child finished.
type WaitStatus struct {
	Code     int
	Signaled bool
	Signal   unix.Signal
}

// ExitCode returns the shell status of the child: its exit code, or 128 plus
// the signal number if it was killed.
func (w WaitStatus) ExitCode() int {
	if w.Signaled {
		return 128 + int(w.Signal)
	}
	return w.Code
}

// Spawner starts and reaps child processes.
type Spawner interface {
	// Spawn starts the program at path and returns its pid.
	Spawn(path string, argv []string, attr *ProcAttr) (int, error)
	// Wait blocks until the child exits or is killed by a signal.
	Wait(pid int) (WaitStatus, error)
}

// OSSpawner spawns real processes.
type OSSpawner struct{}

var _ Spawner = OSSpawner{}

// Spawn implements Spawner.Spawn.
func (OSSpawner) Spawn(path string, argv []string, attr *ProcAttr) (int, error) {
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   attr.Env,
		Files: attr.Files,
		Sys:   &syscall.SysProcAttr{Setsid: attr.Detach},
	})
	if err != nil {
		return 0, err
	}

	pid := proc.Pid
	// Children are reaped by pid with Wait4, drop the handle.
	_ = proc.Release()
	return pid, nil
}

// Wait implements Spawner.Wait.
func (OSSpawner) Wait(pid int) (WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return WaitStatus{}, errors.Wrapf(err, "wait %d", pid)
		case ws.Exited():
			return WaitStatus{Code: ws.ExitStatus()}, nil
		case ws.Signaled():
			return WaitStatus{Signaled: true, Signal: ws.Signal()}, nil
		}
	}
}
