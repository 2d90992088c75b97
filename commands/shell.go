package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/vmsh/core/alias"
	"github.com/josephlewis42/vmsh/core/complete"
	"github.com/josephlewis42/vmsh/core/config"
	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/history"
	"github.com/josephlewis42/vmsh/core/logger"
	"github.com/josephlewis42/vmsh/core/relay"
	"github.com/josephlewis42/vmsh/core/shell"
	"github.com/josephlewis42/vmsh/core/vm"
	"github.com/josephlewis42/vmsh/core/zdb"
	"github.com/spf13/afero"
)

const (
	DefaultPrompt = `\u@\h:\w\$ `

	// syntaxErrorStatus is the status of a line that failed validation.
	syntaxErrorStatus = 2
)

var (
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// FatalIOError is returned when the shell can no longer read its input.
type FatalIOError struct {
	Err error
}

func (e *FatalIOError) Error() string {
	return fmt.Sprintf("reading input: %v", e.Err)
}

func (e *FatalIOError) Unwrap() error {
	return e.Err
}

// Options hold the collaborators of a Shell, zero values get defaults.
type Options struct {
	Config *config.Configuration
	Env    *env.MapEnv
	Files  vm.Files
	Events vm.EventRecorder
	Log    *log.Logger
}

type Shell struct {
	Config    *config.Configuration
	Env       *env.MapEnv
	VM        *vm.VM
	Relay     *relay.Relay
	Tokenizer *shell.Tokenizer
	History   *history.Store
	Z         *zdb.DB
	Aliases   alias.Table
	Color     *ColorPrinter
	Readline  *readline.Instance

	events vm.EventRecorder
	log    *log.Logger

	// chdir and getwd change and report the working directory of the process.
	chdir func(dir string) error
	getwd func() (string, error)

	lastStatus int
	exitCode   *int

	// Set to true to quit the shell
	Quit bool
}

// NewShell creates a shell that runs programs with the given standard files.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default(afero.NewMemMapFs())
	}
	environ := opts.Env
	if environ == nil {
		environ = env.FromOS()
	}
	appLog := opts.Log
	if appLog == nil {
		appLog = log.New(ioutil.Discard, "", 0)
	}

	hist, err := history.Open(cfg.Fs(), config.HistoryName, cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	z, err := zdb.Open(cfg.Fs(), config.ZName)
	if err != nil {
		return nil, err
	}

	tokenizer := shell.NewTokenizer(afero.NewOsFs(), environ.Home)
	tokenizer.MaxTokens = cfg.MaxTokens
	tokenizer.MaxTokenLength = cfg.MaxTokenLength

	s := &Shell{
		Config:    cfg,
		Env:       environ,
		Tokenizer: tokenizer,
		History:   hist,
		Z:         z,
		Aliases:   alias.Table(cfg.Aliases),
		Color:     NewColorPrinter(cfg.Color, opts.Files.Stderr),

		events: opts.Events,
		log:    appLog,
		chdir:  os.Chdir,
		getwd:  os.Getwd,
	}

	s.VM = vm.New(opts.Files)
	s.VM.Builtins = s
	s.VM.Aliases = s.Aliases
	s.VM.Events = opts.Events
	s.VM.Environ = environ.Environ
	s.VM.NullDevice = cfg.NullDevice

	s.Relay = s.VM.Relay
	s.Relay.OnInterrupt = func(action relay.Action, pid int) {
		s.record(logger.EventInterrupt, map[string]interface{}{
			"action": action.String(),
			"pid":    pid,
		})
	}

	if wd, err := s.getwd(); err == nil {
		s.Env.Setenv(env.PWD, wd)
	}

	return s, nil
}

// LookupBuiltin implements vm.Builtins.
func (s *Shell) LookupBuiltin(name string) (vm.BuiltinFunc, bool) {
	builtin, ok := AllBuiltins[name]
	if !ok {
		return nil, false
	}
	return func(stdio vm.IO, argv []string) vm.Status {
		return builtin.Main(s, stdio, argv)
	}, true
}

var _ vm.Builtins = (*Shell)(nil)

// LastStatus is the exit code of the most recent pipeline.
func (s *Shell) LastStatus() int {
	return s.lastStatus
}

// ExitCode is the status the shell process should exit with.
func (s *Shell) ExitCode() int {
	if s.exitCode != nil {
		return *s.exitCode
	}
	return s.lastStatus
}

func (s *Shell) stderr() io.Writer {
	if s.VM.Stderr == nil {
		return ioutil.Discard
	}
	return s.VM.Stderr
}

func (s *Shell) record(eventType string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(eventType, payload); err != nil {
		s.log.Printf("recording %s event: %v", eventType, err)
	}
}

func (s *Shell) prompt() string {
	prompt := s.Config.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	user := s.Env.Getenv(env.User)
	host, _ := os.Hostname()
	prompt = strings.ReplaceAll(prompt, `\u`, user)
	prompt = strings.ReplaceAll(prompt, `\h`, host)

	pwd := s.Env.Getenv(env.PWD)
	home := s.Env.Home()
	if home != "" && (pwd == home || strings.HasPrefix(pwd, home+"/")) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	prompt = unescape(prompt)
	if !s.Color.ShouldColor() {
		prompt = ansiEscape.ReplaceAllString(prompt, "")
	}
	return prompt
}

// RunCommand runs one line: each pipeline joined by && or || runs when the
// previous result allows it.
func (s *Shell) RunCommand(ctx context.Context, line string) vm.Status {
	if strings.TrimSpace(line) == "" {
		return vm.StatusContinue
	}

	tokens := s.Tokenizer.Tokenize(line)
	if err := shell.Validate(tokens); err != nil {
		fmt.Fprintf(s.stderr(), "vmsh: %v\n", err)

		reason := err.Error()
		var syntaxErr *shell.SyntaxError
		if errors.As(err, &syntaxErr) {
			reason = syntaxErr.Err.Error()
		}
		s.record(logger.EventSyntaxError, map[string]interface{}{
			"line":  line,
			"error": reason,
		})
		s.lastStatus = syntaxErrorStatus
		return vm.StatusFailed
	}

	lineCtx, cancel := s.Relay.LineContext(ctx)
	defer cancel()

	prev, succeeded := shell.Constant, true
	for _, link := range shell.Split(tokens) {
		if !shell.ShouldRun(prev, succeeded) {
			prev = link.Next
			continue
		}

		res, err := s.VM.Run(lineCtx, shell.NewPlan(link.Tokens))
		switch {
		case errors.Is(err, vm.ErrInterrupted):
			fmt.Fprintln(s.stderr())
			s.lastStatus = res.ExitCode
			return vm.StatusFailed
		case err != nil:
			fmt.Fprintf(s.stderr(), "vmsh: %v\n", err)
			s.log.Printf("aborted %q: %v", line, err)
			s.lastStatus = res.ExitCode
			return vm.StatusFailed
		}

		s.lastStatus = res.ExitCode
		if res.Status == vm.StatusExit {
			s.Quit = true
			return vm.StatusExit
		}
		succeeded = res.Succeeded()
		if lineCtx.Err() != nil || res.Interrupted {
			break
		}
		prev = link.Next
	}

	return status(succeeded)
}

// addHistory stores an executed line.
func (s *Shell) addHistory(line string) {
	if err := s.History.Add(line); err != nil {
		s.log.Printf("saving history: %v", err)
	}
	if s.Readline != nil {
		_ = s.Readline.SaveHistory(line)
	}
}

func (s *Shell) completer() *complete.Completer {
	osFs := afero.NewOsFs()
	return &complete.Completer{
		Commands: complete.CommandTrie(osFs, s.Env.Getenv(env.Path), BuiltinNames()),
		Fs:       osFs,
	}
}

// RunInteractive reads lines from the terminal until EOF or exit.
func (s *Shell) RunInteractive(ctx context.Context) error {
	gate := newInputGate(s.VM.Stdin)
	defer gate.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt(),
		HistoryLimit:           s.Config.HistoryLimit,
		DisableAutoSaveHistory: true,
		AutoComplete:           s.completer(),
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		Stdin:                  readline.NewCancelableStdin(gate),
		Stdout:                 s.VM.Stdout,
		Stderr:                 s.VM.Stderr,
	})
	if err != nil {
		return &FatalIOError{Err: err}
	}
	s.Readline = rl
	defer func() {
		rl.Close()
		s.Readline = nil
	}()

	for _, line := range s.History.Lines() {
		_ = rl.SaveHistory(line)
	}

	stop := s.Relay.Start()
	defer stop()

	s.record(logger.EventSession, map[string]interface{}{"event": "start", "interactive": true})
	defer s.recordEnd()

	for !s.Quit {
		rl.SetPrompt(s.prompt())
		gate.Open()
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			return &FatalIOError{Err: err}

		case strings.TrimSpace(line) == "":
			continue // empty line

		default:
			s.RunCommand(ctx, line)
			s.addHistory(line)
		}
	}
	return nil
}

// RunScript runs r line by line until EOF or exit. Blank lines and lines
// starting with # are skipped.
func (s *Shell) RunScript(ctx context.Context, r io.Reader) error {
	stop := s.Relay.Start()
	defer stop()

	s.record(logger.EventSession, map[string]interface{}{"event": "start", "interactive": false})
	defer s.recordEnd()

	scanner := bufio.NewScanner(r)
	for !s.Quit && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.RunCommand(ctx, line)
	}

	if err := scanner.Err(); err != nil {
		return &FatalIOError{Err: err}
	}
	return nil
}

func (s *Shell) recordEnd() {
	s.record(logger.EventSession, map[string]interface{}{"event": "end", "exit_code": s.ExitCode()})
}
