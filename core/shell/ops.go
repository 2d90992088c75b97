// Package shell turns input lines into operator-tagged tokens and plans the
// pipelines they describe.
package shell

import "fmt"

// Op classifies a token.
type Op int

const (
	// Constant is any word that isn't an operator.
	Constant Op = iota
	Pipe
	StdoutRedir
	StdoutRedirAppend
	StdinRedir
	StdinRedirAppend
	StderrRedir
	StderrRedirAppend
	StdoutAndStderrRedir
	StdoutAndStderrRedirAppend
	Background
	And
	Or
)

var opLexemes = map[Op]string{
	Pipe:                       "|",
	StdoutRedir:                ">",
	StdoutRedirAppend:          ">>",
	StdinRedir:                 "<",
	StdinRedirAppend:           "<<",
	StderrRedir:                "2>",
	StderrRedirAppend:          "2>>",
	StdoutAndStderrRedir:       "&>",
	StdoutAndStderrRedirAppend: "&>>",
	Background:                 "&",
	And:                        "&&",
	Or:                         "||",
}

var opNames = map[Op]string{
	Constant:                   "CONSTANT",
	Pipe:                       "PIPE",
	StdoutRedir:                "STDOUT_REDIR",
	StdoutRedirAppend:          "STDOUT_REDIR_APPEND",
	StdinRedir:                 "STDIN_REDIR",
	StdinRedirAppend:           "STDIN_REDIR_APPEND",
	StderrRedir:                "STDERR_REDIR",
	StderrRedirAppend:          "STDERR_REDIR_APPEND",
	StdoutAndStderrRedir:       "STDOUT_AND_STDERR_REDIR",
	StdoutAndStderrRedirAppend: "STDOUT_AND_STDERR_REDIR_APPEND",
	Background:                 "BACKGROUND",
	And:                        "AND",
	Or:                         "OR",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Lexeme returns the text of the operator, or the empty string for Constant.
func (o Op) Lexeme() string {
	return opLexemes[o]
}

// IsRedirect reports whether the operator binds a file to a standard stream.
func (o Op) IsRedirect() bool {
	switch o {
	case StdoutRedir, StdoutRedirAppend,
		StdinRedir, StdinRedirAppend,
		StderrRedir, StderrRedirAppend,
		StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
		return true
	case Constant, Pipe, Background, And, Or:
		return false
	}
	return false
}

// IsAppend reports whether a redirect opens its file for appending.
func (o Op) IsAppend() bool {
	switch o {
	case StdoutRedirAppend, StdinRedirAppend, StderrRedirAppend, StdoutAndStderrRedirAppend:
		return true
	case Constant, Pipe, StdoutRedir, StdinRedir, StderrRedir, StdoutAndStderrRedir, Background, And, Or:
		return false
	}
	return false
}

// Slot returns the stream a redirect operator binds, or NoSlot for
// non-redirect operators.
func (o Op) Slot() Slot {
	switch o {
	case StdoutRedir, StdoutRedirAppend:
		return SlotStdout
	case StdinRedir, StdinRedirAppend:
		return SlotStdin
	case StderrRedir, StderrRedirAppend:
		return SlotStderr
	case StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
		return SlotCombined
	case Constant, Pipe, Background, And, Or:
		return NoSlot
	}
	return NoSlot
}

// classify matches an unquoted word against the operator lexemes, shortest
// lexemes first.
func classify(word string) Op {
	switch len(word) {
	case 1:
		switch word {
		case "|":
			return Pipe
		case ">":
			return StdoutRedir
		case "<":
			return StdinRedir
		case "&":
			return Background
		}
	case 2:
		switch word {
		case ">>":
			return StdoutRedirAppend
		case "<<":
			return StdinRedirAppend
		case "2>":
			return StderrRedir
		case "&>":
			return StdoutAndStderrRedir
		case "&&":
			return And
		case "||":
			return Or
		}
	case 3:
		switch word {
		case "2>>":
			return StderrRedirAppend
		case "&>>":
			return StdoutAndStderrRedirAppend
		}
	}
	return Constant
}

// Slot is one of the standard stream bindings a pipeline can redirect.
type Slot int

const (
	SlotStdout Slot = iota
	SlotStdin
	SlotStderr
	SlotCombined

	// NumSlots is the number of redirectable slots.
	NumSlots int = iota

	// NoSlot is returned for operators that don't redirect.
	NoSlot Slot = -1
)

var slotNames = [...]string{"stdout", "stdin", "stderr", "stdout+stderr"}

func (s Slot) String() string {
	if s >= 0 && int(s) < len(slotNames) {
		return slotNames[s]
	}
	return "none"
}
