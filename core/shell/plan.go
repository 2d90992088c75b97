package shell

// Redirect is a file bound to one of the standard stream slots.
type Redirect struct {
	// Index of the redirect operator in the token list.
	Index    int
	Filename string
	Append   bool
}

// Plan is the execution layout of a single pipeline.
type Plan struct {
	Tokens     Tokens
	Stages     int
	Redirects  [NumSlots]*Redirect
	Background bool
}

// NewPlan derives the stage count, redirects and background flag from the
// tokens of one pipeline. The tokens must have passed Validate.
func NewPlan(tokens Tokens) *Plan {
	p := &Plan{Tokens: tokens, Stages: 1}

	for i := 0; i < len(tokens); i++ {
		switch op := tokens[i].Op; op {
		case Pipe:
			p.Stages++
		case Background:
			if i == len(tokens)-1 {
				p.Background = true
			}
		case StdoutRedir, StdoutRedirAppend,
			StdinRedir, StdinRedirAppend,
			StderrRedir, StderrRedirAppend,
			StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
			if i+1 < len(tokens) {
				p.Redirects[op.Slot()] = &Redirect{
					Index:    i,
					Filename: tokens[i+1].Text,
					Append:   op.IsAppend(),
				}
				i++
			}
		case Constant, And, Or:
		}
	}

	return p
}

// Redirect returns the redirect bound to the slot, or nil.
func (p *Plan) Redirect(slot Slot) *Redirect {
	if slot < 0 || int(slot) >= NumSlots {
		return nil
	}
	return p.Redirects[slot]
}

// StageArgv returns the arguments of the given stage with redirect operators
// and their targets removed.
func (p *Plan) StageArgv(stage int) []string {
	var (
		argv    []string
		current int
	)

	for i := 0; i < len(p.Tokens); i++ {
		tok := p.Tokens[i]
		switch tok.Op {
		case Constant:
			if current == stage {
				argv = append(argv, tok.Text)
			}
		case Pipe:
			current++
			if current > stage {
				return argv
			}
		case StdoutRedir, StdoutRedirAppend,
			StdinRedir, StdinRedirAppend,
			StderrRedir, StderrRedirAppend,
			StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
			i++
		case Background, And, Or:
			return argv
		}
	}
	return argv
}
