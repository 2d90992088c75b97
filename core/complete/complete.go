package complete

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/spf13/afero"
)

// CommandTrie indexes the given names plus every executable found in the
// directories of path.
func CommandTrie(fs afero.Fs, path string, names []string) *Trie {
	t := NewTrie(names...)

	for _, dir := range filepath.SplitList(path) {
		infos, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}
		for _, info := range infos {
			if !info.IsDir() && info.Mode().Perm()&0111 != 0 {
				t.Insert(info.Name())
			}
		}
	}

	return t
}

// Completer completes the first word of a line as a command and later words
// as file names.
type Completer struct {
	Commands *Trie
	// Fs is searched for file names; relative names resolve against its
	// working directory.
	Fs afero.Fs
}

var _ readline.AutoCompleter = (*Completer)(nil)

// Do implements readline.AutoCompleter.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	text := string(line[:pos])

	start := strings.LastIndexAny(text, " \t") + 1
	word := text[start:]

	if strings.TrimSpace(text[:start]) == "" {
		return c.commands(word)
	}
	return c.files(word)
}

func (c *Completer) commands(word string) ([][]rune, int) {
	if c.Commands == nil {
		return nil, 0
	}

	var out [][]rune
	for _, match := range c.Commands.Complete(word) {
		out = append(out, []rune(strings.TrimPrefix(match, word)+" "))
	}
	return out, len([]rune(word))
}

func (c *Completer) files(word string) ([][]rune, int) {
	if c.Fs == nil {
		return nil, 0
	}

	dir, base := filepath.Split(word)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}

	infos, err := afero.ReadDir(c.Fs, readDir)
	if err != nil {
		return nil, 0
	}

	var names []string
	for _, info := range infos {
		name := info.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		// Hidden files only complete when asked for.
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if info.IsDir() {
			name += "/"
		} else {
			name += " "
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([][]rune, 0, len(names))
	for _, name := range names {
		out = append(out, []rune(strings.TrimPrefix(name, base)))
	}
	return out, len([]rune(base))
}
