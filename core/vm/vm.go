// Package vm runs planned pipelines as operating system processes.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/josephlewis42/vmsh/core/logger"
	"github.com/josephlewis42/vmsh/core/relay"
	"github.com/josephlewis42/vmsh/core/shell"
	"golang.org/x/sys/unix"
)

// Status is the outcome of a builtin or a pipeline.
type Status int

const (
	// StatusContinue means the command succeeded and the shell keeps going.
	StatusContinue Status = iota
	// StatusExit asks the shell to quit.
	StatusExit
	// StatusFailed means the command failed but the shell keeps going.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusExit:
		return "exit"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// interruptedCode is the status of a child killed by SIGINT.
const interruptedCode = 128 + int(unix.SIGINT)

// IO holds the streams handed to a builtin.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// BuiltinFunc is an in-process command.
type BuiltinFunc func(stdio IO, argv []string) Status

// Builtins looks up in-process commands by name.
type Builtins interface {
	LookupBuiltin(name string) (BuiltinFunc, bool)
}

// Aliases expands the first word of a command.
type Aliases interface {
	Lookup(name string) ([]string, bool)
}

// EventRecorder stores structured events about what ran.
type EventRecorder interface {
	Record(eventType string, payload map[string]interface{}) error
}

// Result is the outcome of running one pipeline.
type Result struct {
	Status Status
	// ExitCode is the status of the last stage that ran.
	ExitCode int
	// Interrupted is set when the pipeline was stopped by SIGINT, either
	// forwarded by the relay or delivered to the child directly.
	Interrupted bool

	// Job and Pid are set for background pipelines.
	Job int
	Pid int
}

// Succeeded reports whether the pipeline counts as a success for && and ||.
func (r Result) Succeeded() bool {
	return r.Status == StatusContinue && r.ExitCode == 0
}

func failed(code int) Result {
	return Result{Status: StatusFailed, ExitCode: code}
}

func interrupted() Result {
	return Result{Status: StatusFailed, ExitCode: interruptedCode, Interrupted: true}
}

// VM executes pipelines.
type VM struct {
	// Files are the shell's own standard streams; they are never modified.
	Files

	Builtins Builtins
	Aliases  Aliases
	Relay    *relay.Relay
	Spawner  Spawner
	Events   EventRecorder

	// Pipe creates a pipe, os.Pipe when nil.
	Pipe func() (r *os.File, w *os.File, err error)
	// LookPath resolves a program name; when nil the PATH in Environ is searched.
	LookPath func(name string) (string, error)
	// Environ returns the environment of new processes, os.Environ when nil.
	Environ func() []string
	// NullDevice is bound to background jobs' standard streams.
	NullDevice string

	jobs int
}

// New creates a VM that spawns real processes.
func New(files Files) *VM {
	return &VM{
		Files:      files,
		Relay:      relay.New(),
		Spawner:    OSSpawner{},
		Pipe:       os.Pipe,
		Environ:    os.Environ,
		NullDevice: os.DevNull,
	}
}

func (vm *VM) environ() []string {
	if vm.Environ == nil {
		return os.Environ()
	}
	return vm.Environ()
}

func (vm *VM) pipe() (*os.File, *os.File, error) {
	if vm.Pipe == nil {
		return os.Pipe()
	}
	return vm.Pipe()
}

func (vm *VM) lookPath(name string) (string, error) {
	if vm.LookPath != nil {
		return vm.LookPath(name)
	}

	var path string
	for _, kv := range vm.environ() {
		if strings.HasPrefix(kv, "PATH=") {
			path = strings.TrimPrefix(kv, "PATH=")
		}
	}
	return LookPath(name, path)
}

func (vm *VM) record(eventType string, payload map[string]interface{}) {
	if vm.Events == nil {
		return
	}
	_ = vm.Events.Record(eventType, payload)
}

func (vm *VM) resolveAlias(argv []string) []string {
	if vm.Aliases == nil || len(argv) == 0 {
		return argv
	}
	words, ok := vm.Aliases.Lookup(argv[0])
	if !ok {
		return argv
	}
	return append(append([]string(nil), words...), argv[1:]...)
}

// Jobs returns the number of background jobs started.
func (vm *VM) Jobs() int {
	return vm.jobs
}

// Run executes one validated pipeline. Failures to find a program are
// reported on the stage's stderr and reflected in the result; a non-nil error
// is a ResourceError or ErrInterrupted and means the pipeline was aborted.
func (vm *VM) Run(ctx context.Context, plan *shell.Plan) (Result, error) {
	if err := ctx.Err(); err != nil {
		return interrupted(), ErrInterrupted
	}

	if plan.Background {
		return vm.runBackground(plan)
	}

	red, err := Redirect(vm.Files, plan)
	if err != nil {
		return failed(1), err
	}
	defer red.Restore()

	return vm.runStages(ctx, plan, red.Files)
}

type pipePair struct {
	r, w *os.File
}

func (p *pipePair) closeRead() {
	if p.r != nil {
		_ = p.r.Close()
		p.r = nil
	}
}

func (p *pipePair) closeWrite() {
	if p.w != nil {
		_ = p.w.Close()
		p.w = nil
	}
}

func (vm *VM) runStages(ctx context.Context, plan *shell.Plan, files Files) (Result, error) {
	// Stage i writes to pipes[i%2] and reads from the pair the previous stage
	// wrote to, so at most two pairs are ever open.
	var pipes [2]pipePair
	defer func() {
		for i := range pipes {
			pipes[i].closeRead()
			pipes[i].closeWrite()
		}
	}()

	result := Result{Status: StatusContinue}
	for stage := 0; stage < plan.Stages; stage++ {
		if stage > 0 && ctx.Err() != nil {
			return interrupted(), ErrInterrupted
		}

		first, last := stage == 0, stage == plan.Stages-1
		inbound, outbound := &pipes[(stage+1)%2], &pipes[stage%2]

		stdio := files
		if !first {
			stdio.Stdin = inbound.r
		}
		if !last {
			r, w, err := vm.pipe()
			if err != nil {
				return failed(1), &ResourceError{Op: "pipe", Err: err}
			}
			outbound.r, outbound.w = r, w
			stdio.Stdout = w
		}

		res, err := vm.runStage(plan.StageArgv(stage), stdio)

		// The child has its own copies of these now.
		outbound.closeWrite()
		if !first {
			inbound.closeRead()
		}

		if err != nil {
			return res, err
		}
		result = res

		if res.Status == StatusExit || res.Interrupted {
			// Ctrl-C kills the rest of the pipeline too.
			return res, nil
		}
	}

	return result, nil
}

func (vm *VM) runStage(argv []string, stdio Files) (Result, error) {
	argv = vm.resolveAlias(argv)
	if len(argv) == 0 {
		return Result{Status: StatusContinue}, nil
	}

	if vm.Builtins != nil {
		if builtin, ok := vm.Builtins.LookupBuiltin(argv[0]); ok {
			vm.record(logger.EventBuiltin, map[string]interface{}{"argv": argv})

			status := builtin(IO{Stdin: stdio.Stdin, Stdout: stdio.Stdout, Stderr: stdio.Stderr}, argv)
			if status == StatusFailed {
				return Result{Status: status, ExitCode: 1}, nil
			}
			return Result{Status: status}, nil
		}
	}

	path, err := vm.lookPath(argv[0])
	if err != nil {
		return vm.execFailed(stdio.Stderr, argv, err), nil
	}

	pid, err := vm.Spawner.Spawn(path, argv, &ProcAttr{
		Env:   vm.environ(),
		Files: stdio.list(),
	})
	if err != nil {
		return failed(1), &ResourceError{Op: "spawn", Path: argv[0], Err: err}
	}
	vm.record(logger.EventRunCommand, map[string]interface{}{"argv": argv, "path": path, "pid": pid})

	if vm.Relay != nil {
		vm.Relay.SetForeground(pid)
	}
	ws, err := vm.Spawner.Wait(pid)
	forwarded := false
	if vm.Relay != nil {
		forwarded = vm.Relay.ClearForeground(pid)
	}
	if err != nil {
		return failed(1), &ResourceError{Op: "wait", Path: argv[0], Err: err}
	}

	code := ws.ExitCode()
	vm.record(logger.EventExitStatus, map[string]interface{}{"argv": argv, "code": code})

	res := Result{Status: StatusContinue, ExitCode: code}
	if code != 0 {
		res.Status = StatusFailed
	}
	res.Interrupted = forwarded || (ws.Signaled && ws.Signal == unix.SIGINT)
	return res, nil
}

func (vm *VM) execFailed(stderr *os.File, argv []string, err error) Result {
	execErr := &ExecError{Name: argv[0], Err: err}
	fmt.Fprintf(stderr, "vmsh: %v\n", execErr)
	vm.record(logger.EventUnknownCommand, map[string]interface{}{"argv": argv, "error": err.Error()})
	return failed(execErr.ExitCode())
}

func (vm *VM) runBackground(plan *shell.Plan) (Result, error) {
	argv := vm.resolveAlias(plan.StageArgv(0))
	if len(argv) == 0 {
		return Result{Status: StatusContinue}, nil
	}

	nullDevice := vm.NullDevice
	if nullDevice == "" {
		nullDevice = os.DevNull
	}
	null, err := os.OpenFile(nullDevice, os.O_RDWR, 0)
	if err != nil {
		return failed(1), &ResourceError{Op: "open", Path: nullDevice, Err: err}
	}
	defer null.Close()

	red, err := Redirect(Files{Stdin: null, Stdout: null, Stderr: null}, plan)
	if err != nil {
		return failed(1), err
	}
	defer red.Restore()

	path, err := vm.lookPath(argv[0])
	if err != nil {
		return vm.execFailed(vm.Stderr, argv, err), nil
	}

	pid, err := vm.Spawner.Spawn(path, argv, &ProcAttr{
		Env:    vm.environ(),
		Files:  red.list(),
		Detach: true,
	})
	if err != nil {
		return failed(1), &ResourceError{Op: "spawn", Path: argv[0], Err: err}
	}

	vm.jobs++
	job := vm.jobs
	fmt.Fprintf(vm.Stdout, "[%d] %d\n", job, pid)
	vm.record(logger.EventBackgroundJob, map[string]interface{}{"argv": argv, "job": job, "pid": pid})

	spawner := vm.Spawner
	go func() {
		_, _ = spawner.Wait(pid)
	}()

	return Result{Status: StatusContinue, Job: job, Pid: pid}, nil
}
