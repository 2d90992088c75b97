package shell

// Link is one pipeline of a line joined to the next by && or ||.
type Link struct {
	Tokens Tokens
	// Next is And or Or when another link follows, Constant otherwise.
	Next Op
}

// Split cuts a validated line at its && and || operators.
func Split(tokens Tokens) []Link {
	var (
		links []Link
		start int
	)

	for i, tok := range tokens {
		switch tok.Op {
		case And, Or:
			links = append(links, Link{Tokens: tokens[start:i], Next: tok.Op})
			start = i + 1
		case Constant, Pipe, Background,
			StdoutRedir, StdoutRedirAppend,
			StdinRedir, StdinRedirAppend,
			StderrRedir, StderrRedirAppend,
			StdoutAndStderrRedir, StdoutAndStderrRedirAppend:
		}
	}

	if start < len(tokens) {
		links = append(links, Link{Tokens: tokens[start:], Next: Constant})
	}
	return links
}

// ShouldRun reports whether the link following prev runs given whether prev
// succeeded.
func ShouldRun(prev Op, succeeded bool) bool {
	switch prev {
	case And:
		return succeeded
	case Or:
		return !succeeded
	}
	return true
}
