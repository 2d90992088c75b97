package shell

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyLine           = errors.New("empty command")
	ErrLeadingOperator     = errors.New("command can't start with an operator")
	ErrTrailingOperator    = errors.New("command can't end with an operator")
	ErrMisplacedBackground = errors.New("& may only appear at the end of a command")
	ErrDuplicateRedirect   = errors.New("ambiguous redirect")
	ErrMissingFilename     = errors.New("redirect needs a file name")
	ErrEmptyStage          = errors.New("empty command in pipeline")
	ErrBackgroundPipeline  = errors.New("pipelines can't run in the background")
)

// SyntaxError describes a badly placed operator.
type SyntaxError struct {
	Err error
	// Token is the offending token text, empty if the line was empty.
	Token string
	// Index is the position of the offending token, -1 if there isn't one.
	Index int
}

func (e *SyntaxError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("syntax error: %v", e.Err)
	}
	return fmt.Sprintf("syntax error near unexpected token `%s': %v", e.Token, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func syntaxErr(err error, tokens Tokens, idx int) *SyntaxError {
	return &SyntaxError{Err: err, Token: tokens[idx].Text, Index: idx}
}

// Validate checks operator placement in a line before anything runs.
func Validate(tokens Tokens) error {
	if len(tokens) == 0 {
		return &SyntaxError{Err: ErrEmptyLine, Index: -1}
	}

	last := len(tokens) - 1
	if tokens[0].Op != Constant {
		return syntaxErr(ErrLeadingOperator, tokens, 0)
	}
	switch tokens[last].Op {
	case Constant, Background:
	case Pipe, And, Or,
		StdoutRedir, StdoutRedirAppend,
		StdinRedir, StdinRedirAppend,
		StderrRedir, StderrRedirAppend,
		StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
		return syntaxErr(ErrTrailingOperator, tokens, last)
	}

	var (
		slots       [NumSlots]bool
		pipes       int
		stageHasCmd bool
	)

	endStage := func(idx int) error {
		if !stageHasCmd {
			return syntaxErr(ErrEmptyStage, tokens, idx)
		}
		stageHasCmd = false
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		switch op := tokens[i].Op; op {
		case Constant:
			stageHasCmd = true

		case Pipe:
			if err := endStage(i); err != nil {
				return err
			}
			pipes++

		case And, Or:
			if err := endStage(i); err != nil {
				return err
			}
			slots = [NumSlots]bool{}
			pipes = 0

		case Background:
			if i != last {
				return syntaxErr(ErrMisplacedBackground, tokens, i)
			}
			if pipes > 0 {
				return syntaxErr(ErrBackgroundPipeline, tokens, i)
			}

		case StdoutRedir, StdoutRedirAppend,
			StdinRedir, StdinRedirAppend,
			StderrRedir, StderrRedirAppend,
			StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
			if tokens[i+1].Op != Constant {
				return syntaxErr(ErrMissingFilename, tokens, i+1)
			}
			slot := op.Slot()
			if slots[slot] {
				return syntaxErr(ErrDuplicateRedirect, tokens, i)
			}
			slots[slot] = true
			// The file name isn't part of the command.
			i++
		}
	}

	if !stageHasCmd {
		return syntaxErr(ErrEmptyStage, tokens, last)
	}
	return nil
}
