package vm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/josephlewis42/vmsh/core/relay"
	"github.com/josephlewis42/vmsh/core/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func requireCommands(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not on PATH", name)
		}
	}
}

type testShell struct {
	vm     *VM
	dir    string
	stdout string
	stderr string
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()
	dir := t.TempDir()

	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	stdout, err := os.Create(filepath.Join(dir, "shell.stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "shell.stderr"))
	require.NoError(t, err)
	t.Cleanup(func() {
		stdin.Close()
		stdout.Close()
		stderr.Close()
	})

	return &testShell{
		vm:     New(Files{Stdin: stdin, Stdout: stdout, Stderr: stderr}),
		dir:    dir,
		stdout: stdout.Name(),
		stderr: stderr.Name(),
	}
}

// path returns the absolute path of a file in the test directory.
func (ts *testShell) path(name string) string {
	return filepath.Join(ts.dir, name)
}

func (ts *testShell) run(t *testing.T, line string) (Result, error) {
	t.Helper()

	tokens := shell.NewTokenizer(nil, nil).Tokenize(line)
	require.NoError(t, shell.Validate(tokens))
	return ts.vm.Run(context.Background(), shell.NewPlan(tokens))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(contents)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestVM_pipeline(t *testing.T) {
	requireCommands(t, "cat", "sort", "wc")
	ts := newTestShell(t)
	writeFile(t, ts.path("in.txt"), "b\na\nc\n")

	res, err := ts.run(t, fmt.Sprintf("cat %s | sort | wc -l > %s", ts.path("in.txt"), ts.path("out.txt")))

	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "3", strings.TrimSpace(readFile(t, ts.path("out.txt"))))
}

func TestVM_stdinRedirect(t *testing.T) {
	requireCommands(t, "sort")
	ts := newTestShell(t)
	writeFile(t, ts.path("in.txt"), "b\na\nc\n")

	_, err := ts.run(t, fmt.Sprintf("sort < %s > %s", ts.path("in.txt"), ts.path("out.txt")))

	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", readFile(t, ts.path("out.txt")))
}

func TestVM_truncateAndAppend(t *testing.T) {
	requireCommands(t, "echo")
	ts := newTestShell(t)
	out := ts.path("out.txt")
	writeFile(t, out, "previous contents that are longer\n")

	_, err := ts.run(t, "echo hello > "+out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", readFile(t, out))

	_, err = ts.run(t, "echo again >> "+out)
	require.NoError(t, err)
	assert.Equal(t, "hello\nagain\n", readFile(t, out))
}

func TestVM_stderrRedirect(t *testing.T) {
	requireCommands(t, "ls")
	ts := newTestShell(t)

	res, err := ts.run(t, fmt.Sprintf("ls %s 2> %s", ts.path("missing"), ts.path("err.txt")))

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.NotZero(t, res.ExitCode)
	assert.NotEmpty(t, readFile(t, ts.path("err.txt")))
	assert.Empty(t, readFile(t, ts.stderr))
}

func TestVM_combinedRedirect(t *testing.T) {
	requireCommands(t, "ls")
	ts := newTestShell(t)
	writeFile(t, ts.path("present.txt"), "")

	_, err := ts.run(t, fmt.Sprintf("ls %s %s &> %s", ts.path("present.txt"), ts.path("missing"), ts.path("out.txt")))

	require.NoError(t, err)
	out := readFile(t, ts.path("out.txt"))
	assert.Contains(t, out, "present.txt")
	assert.Contains(t, out, "missing")
}

func TestVM_exitCodes(t *testing.T) {
	requireCommands(t, "true", "false")
	ts := newTestShell(t)

	res, err := ts.run(t, "true")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	res, err = ts.run(t, "false")
	require.NoError(t, err)
	assert.Equal(t, failed(1), res)
}

func TestVM_notFound(t *testing.T) {
	ts := newTestShell(t)

	res, err := ts.run(t, "vmsh-no-such-command --flag")

	require.NoError(t, err)
	assert.Equal(t, failed(127), res)
	assert.Equal(t, "vmsh: vmsh-no-such-command: command not found\n", readFile(t, ts.stderr))
}

func TestVM_openFailure(t *testing.T) {
	ts := newTestShell(t)
	spawner := &fakeSpawner{}
	ts.vm.Spawner = spawner

	_, err := ts.run(t, fmt.Sprintf("cat < %s", ts.path("missing/in.txt")))

	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Equal(t, "open", resErr.Op)
	assert.Equal(t, ts.path("missing/in.txt"), resErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, spawner.calls, "nothing runs")
}

func TestVM_background(t *testing.T) {
	requireCommands(t, "sleep")
	ts := newTestShell(t)

	start := time.Now()
	res, err := ts.run(t, "sleep 100 &")
	require.NoError(t, err)
	defer unix.Kill(res.Pid, unix.SIGKILL)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, res.Job)
	assert.Positive(t, res.Pid)
	assert.Equal(t, fmt.Sprintf("[1] %d\n", res.Pid), readFile(t, ts.stdout))
	assert.Equal(t, 1, ts.vm.Jobs())
}

func TestVM_backgroundDetached(t *testing.T) {
	ts := newTestShell(t)
	spawner := &fakeSpawner{}
	ts.vm.Spawner = spawner
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, fmt.Sprintf("server --port 80 > %s &", ts.path("server.log")))

	require.NoError(t, err)
	assert.Equal(t, StatusContinue, res.Status)
	calls, attrs := spawner.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"server", "--port", "80"}, calls[0])
	assert.True(t, attrs[0].Detach)
	assert.Equal(t, os.DevNull, attrs[0].Files[0].Name())
	assert.Equal(t, ts.path("server.log"), attrs[0].Files[1].Name())
	assert.Equal(t, os.DevNull, attrs[0].Files[2].Name())
}

type fakeBuiltins map[string]BuiltinFunc

func (f fakeBuiltins) LookupBuiltin(name string) (BuiltinFunc, bool) {
	fn, ok := f[name]
	return fn, ok
}

type fakeAliases map[string][]string

func (f fakeAliases) Lookup(name string) ([]string, bool) {
	words, ok := f[name]
	return words, ok
}

func testBuiltins() fakeBuiltins {
	return fakeBuiltins{
		"greet": func(stdio IO, argv []string) Status {
			fmt.Fprintln(stdio.Stdout, "hello", strings.Join(argv[1:], " "))
			return StatusContinue
		},
		"quit": func(stdio IO, argv []string) Status {
			return StatusExit
		},
		"fail": func(stdio IO, argv []string) Status {
			fmt.Fprintln(stdio.Stderr, "failing")
			return StatusFailed
		},
	}
}

func TestVM_builtins(t *testing.T) {
	ts := newTestShell(t)
	ts.vm.Builtins = testBuiltins()
	ts.vm.Spawner = &fakeSpawner{}

	res, err := ts.run(t, fmt.Sprintf("greet world > %s", ts.path("out.txt")))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "hello world\n", readFile(t, ts.path("out.txt")))

	res, err = ts.run(t, "fail")
	require.NoError(t, err)
	assert.Equal(t, failed(1), res)
	assert.Equal(t, "failing\n", readFile(t, ts.stderr))

	res, err = ts.run(t, "quit")
	require.NoError(t, err)
	assert.Equal(t, StatusExit, res.Status)
}

func TestVM_builtinInPipeline(t *testing.T) {
	requireCommands(t, "cat")
	ts := newTestShell(t)
	ts.vm.Builtins = testBuiltins()

	_, err := ts.run(t, fmt.Sprintf("greet pipe | cat > %s", ts.path("out.txt")))

	require.NoError(t, err)
	assert.Equal(t, "hello pipe\n", readFile(t, ts.path("out.txt")))
}

func TestVM_alias(t *testing.T) {
	ts := newTestShell(t)
	ts.vm.Builtins = testBuiltins()
	ts.vm.Aliases = fakeAliases{"hi": {"greet", "from", "alias"}}

	_, err := ts.run(t, fmt.Sprintf("hi there > %s", ts.path("out.txt")))

	require.NoError(t, err)
	assert.Equal(t, "hello from alias there\n", readFile(t, ts.path("out.txt")))
}

func TestVM_interrupted(t *testing.T) {
	ts := newTestShell(t)
	spawner := &fakeSpawner{}
	ts.vm.Spawner = spawner
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tokens := shell.NewTokenizer(nil, nil).Tokenize("sleep 1")
	_, err := ts.vm.Run(ctx, shell.NewPlan(tokens))

	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, spawner.calls)
}

type fakeSpawner struct {
	mu    sync.Mutex
	calls [][]string
	attrs []*ProcAttr

	// failOn is the 1-based spawn call that fails, 0 for none.
	failOn int
	// onWait is called with the pid being waited for.
	onWait func(pid int)
	// status is returned for every wait.
	status WaitStatus
}

func (f *fakeSpawner) Spawn(path string, argv []string, attr *ProcAttr) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn == len(f.calls)+1 {
		return 0, errors.New("resource temporarily unavailable")
	}
	f.calls = append(f.calls, argv)
	f.attrs = append(f.attrs, attr)
	return 1000 + len(f.calls), nil
}

func (f *fakeSpawner) Wait(pid int) (WaitStatus, error) {
	if f.onWait != nil {
		f.onWait(pid)
	}
	return f.status, nil
}

func (f *fakeSpawner) snapshot() ([][]string, []*ProcAttr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.attrs
}

type pipeRecorder struct {
	files []*os.File
}

func (p *pipeRecorder) pipe() (*os.File, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	p.files = append(p.files, r, w)
	return r, w, nil
}

func (p *pipeRecorder) assertAllClosed(t *testing.T) {
	t.Helper()
	for i, f := range p.files {
		assert.ErrorIs(t, f.Close(), os.ErrClosed, "pipe end %d left open", i)
	}
}

func TestVM_pipeWiring(t *testing.T) {
	ts := newTestShell(t)
	pipes := &pipeRecorder{}
	spawner := &fakeSpawner{}
	ts.vm.Spawner = spawner
	ts.vm.Pipe = pipes.pipe
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, "a | b | c | d")

	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	calls, attrs := spawner.snapshot()
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}}, calls)
	require.Len(t, pipes.files, 6, "one pipe between each pair of stages")

	assert.Equal(t, ts.vm.Stdin, attrs[0].Files[0])
	for stage := 0; stage < 3; stage++ {
		r, w := pipes.files[2*stage], pipes.files[2*stage+1]
		assert.Same(t, w, attrs[stage].Files[1], "stage %d stdout", stage)
		assert.Same(t, r, attrs[stage+1].Files[0], "stage %d stdin", stage+1)
	}
	assert.Equal(t, ts.vm.Stdout, attrs[3].Files[1])
	pipes.assertAllClosed(t)
}

func TestVM_spawnFailureLeaksNothing(t *testing.T) {
	ts := newTestShell(t)
	pipes := &pipeRecorder{}
	ts.vm.Spawner = &fakeSpawner{failOn: 2}
	ts.vm.Pipe = pipes.pipe
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, "cat | sort | wc")

	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.Equal(t, "spawn", resErr.Op)
	assert.Equal(t, "sort", resErr.Path)
	assert.Equal(t, StatusFailed, res.Status)
	assert.NotEmpty(t, pipes.files)
	pipes.assertAllClosed(t)
}

func TestVM_foregroundTracking(t *testing.T) {
	ts := newTestShell(t)
	ts.vm.Relay = &relay.Relay{Kill: func(int, unix.Signal) error { return nil }}
	var seen []int
	ts.vm.Spawner = &fakeSpawner{onWait: func(pid int) {
		seen = append(seen, ts.vm.Relay.Foreground())
	}}
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	_, err := ts.run(t, "a | b")

	require.NoError(t, err)
	assert.Equal(t, []int{1001, 1002}, seen)
	assert.Zero(t, ts.vm.Relay.Foreground())
}

func TestVM_interruptStopsPipeline(t *testing.T) {
	ts := newTestShell(t)
	spawner := &fakeSpawner{status: WaitStatus{Signaled: true, Signal: unix.SIGINT}}
	ts.vm.Spawner = spawner
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, "a | b")

	require.NoError(t, err)
	assert.Equal(t, 130, res.ExitCode)
	assert.True(t, res.Interrupted)
	calls, _ := spawner.snapshot()
	assert.Len(t, calls, 1)
}

func TestVM_exitStatus130IsNotAnInterrupt(t *testing.T) {
	ts := newTestShell(t)
	spawner := &fakeSpawner{status: WaitStatus{Code: 130}}
	ts.vm.Spawner = spawner
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, "a | b")

	require.NoError(t, err)
	assert.Equal(t, 130, res.ExitCode)
	assert.False(t, res.Interrupted)
	calls, _ := spawner.snapshot()
	assert.Equal(t, [][]string{{"a"}, {"b"}}, calls)
}

func TestVM_forwardedInterruptStopsPipeline(t *testing.T) {
	ts := newTestShell(t)
	ts.vm.Relay = &relay.Relay{Kill: func(int, unix.Signal) error { return nil }}
	// The child traps SIGINT and exits normally.
	spawner := &fakeSpawner{onWait: func(pid int) {
		ts.vm.Relay.Interrupt()
	}}
	ts.vm.Spawner = spawner
	ts.vm.LookPath = func(name string) (string, error) { return "/bin/" + name, nil }

	res, err := ts.run(t, "a | b")

	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	calls, _ := spawner.snapshot()
	assert.Len(t, calls, 1)
}
