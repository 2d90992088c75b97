package commands

import (
	"bytes"
	"io"
	"sync"
)

// inputGate hands terminal input to the line editor only while a prompt is
// up. It shuts itself after passing on a line terminator and stays shut
// until the next Open, so whatever is typed while a command runs is left on
// the terminal for the foreground child.
type inputGate struct {
	r io.Reader

	mu     sync.Mutex
	cond   *sync.Cond
	open   bool
	closed bool
}

func newInputGate(r io.Reader) *inputGate {
	g := &inputGate{r: r}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Open lets the next read through.
func (g *inputGate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = true
	g.cond.Broadcast()
}

// Close releases blocked readers with io.EOF.
func (g *inputGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cond.Broadcast()
	return nil
}

func (g *inputGate) Read(p []byte) (int, error) {
	g.mu.Lock()
	for !g.open && !g.closed {
		g.cond.Wait()
	}
	closed := g.closed
	g.mu.Unlock()

	if closed {
		return 0, io.EOF
	}

	n, err := g.r.Read(p)
	if bytes.ContainsAny(p[:n], "\r\n") {
		g.mu.Lock()
		g.open = false
		g.mu.Unlock()
	}
	return n, err
}

var _ io.ReadCloser = (*inputGate)(nil)
